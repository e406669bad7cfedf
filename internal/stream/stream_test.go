// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSSEReaderReadsDataLines(t *testing.T) {
	body := "data: {\"event\":\"token\"}\n\ndata: {\"event\":\"done\"}\n\n"
	r := NewSSEReader(strings.NewReader(body))

	ev1, err := r.ReadEvent()
	require.NoError(t, err)
	assert.Equal(t, `{"event":"token"}`, string(ev1))

	ev2, err := r.ReadEvent()
	require.NoError(t, err)
	assert.Equal(t, `{"event":"done"}`, string(ev2))

	_, err = r.ReadEvent()
	assert.Equal(t, io.EOF, err)
}

func TestSSEReaderIgnoresNonDataFields(t *testing.T) {
	body := ": comment\nid: 7\nretry: 100\ndata: {\"event\":\"x\"}\n\n"
	r := NewSSEReader(strings.NewReader(body))

	ev, err := r.ReadEvent()
	require.NoError(t, err)
	assert.Equal(t, `{"event":"x"}`, string(ev))
}

func TestSSEReaderFlushesTrailingEventAtEOF(t *testing.T) {
	// No terminating blank line before EOF.
	r := NewSSEReader(strings.NewReader("data: {\"event\":\"done\"}\n"))

	ev, err := r.ReadEvent()
	require.NoError(t, err)
	assert.Equal(t, `{"event":"done"}`, string(ev))
}

func TestDecodeCompare(t *testing.T) {
	tests := []struct {
		name string
		data string
		want CompareEvent
	}{
		{
			name: "token",
			data: `{"event":"token","model_id":"m1","content":"He"}`,
			want: CompareToken{ModelID: "m1", Content: "He"},
		},
		{
			name: "token with chunk field",
			data: `{"event":"token","model_id":"m1","chunk":"llo"}`,
			want: CompareToken{ModelID: "m1", Content: "llo"},
		},
		{
			name: "info",
			data: `{"event":"info","model_id":"m1","message":"rate limit, waiting"}`,
			want: CompareInfo{ModelID: "m1", Message: "rate limit, waiting"},
		},
		{
			name: "done",
			data: `{"event":"done","model_id":"m1"}`,
			want: CompareDone{ModelID: "m1"},
		},
		{
			name: "bare error",
			data: `{"event":"error","error":"backend exploded"}`,
			want: CompareFailure{Message: "backend exploded"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeCompare([]byte(tt.data))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeCompareUnknownEvent(t *testing.T) {
	_, err := DecodeCompare([]byte(`{"event":"mystery"}`))
	assert.True(t, errors.Is(err, ErrUnknownEvent))
}

func TestDecodeCompareMalformed(t *testing.T) {
	_, err := DecodeCompare([]byte(`{not json`))
	assert.Error(t, err)
}

func TestDecodeCouncil(t *testing.T) {
	got, err := DecodeCouncil([]byte(`{"event":"stage2_complete","aggregate_rankings":[{"model_id":"m1","model_name":"One","average_rank":1.5,"votes_count":2}]}`))
	require.NoError(t, err)
	complete, ok := got.(CouncilStage2Complete)
	require.True(t, ok)
	require.Len(t, complete.Rankings, 1)
	assert.Equal(t, "One", complete.Rankings[0].ModelName)
	assert.Equal(t, 1.5, complete.Rankings[0].AverageRank)
	assert.Equal(t, 2, complete.Rankings[0].VotesCount)
}

func TestDecodeCouncilRankingResponse(t *testing.T) {
	got, err := DecodeCouncil([]byte(`{"event":"ranking_response","reviewer_id":"m2","reviewer_name":"Two","ranking":"1. A\n2. B"}`))
	require.NoError(t, err)
	assert.Equal(t, CouncilRankingResponse{ReviewerID: "m2", ReviewerName: "Two", Text: "1. A\n2. B"}, got)
}

func TestDecodeCouncilStage3Complete(t *testing.T) {
	got, err := DecodeCouncil([]byte(`{"event":"stage3_complete","response":"final word"}`))
	require.NoError(t, err)
	assert.Equal(t, CouncilStage3Complete{Response: "final word"}, got)
}

// TestDecodeRoundtableTurnCompleteNesting pins the wire quirk: the
// turn_complete payload is nested under "turn" while turn_error carries
// model_id at the top level.
func TestDecodeRoundtableTurnCompleteNesting(t *testing.T) {
	got, err := DecodeRoundtable([]byte(`{"event":"turn_complete","turn":{"model_id":"m1","turn_number":2,"response":"my take"}}`))
	require.NoError(t, err)
	complete, ok := got.(RoundtableTurnComplete)
	require.True(t, ok)
	assert.Equal(t, "m1", complete.Turn.ModelID)
	assert.Equal(t, 2, complete.Turn.TurnNumber)
	assert.Equal(t, "my take", complete.Turn.Response)

	got, err = DecodeRoundtable([]byte(`{"event":"turn_error","model_id":"m2","turn_number":3,"error":"timed out"}`))
	require.NoError(t, err)
	assert.Equal(t, RoundtableTurnError{ModelID: "m2", TurnNumber: 3, Message: "timed out"}, got)
}

func TestDecodeRoundtableAnalysisComplete(t *testing.T) {
	data := `{"event":"analysis_complete","analysis":{
		"domain_weights":{"Systems":0.6,"Ethics":0.4},
		"model_expertise_scores":{"m1":0.9},
		"discussion_lead":"m1",
		"expected_turns":3,
		"reasoning":"because"}}`
	got, err := DecodeRoundtable([]byte(data))
	require.NoError(t, err)
	complete, ok := got.(RoundtableAnalysisComplete)
	require.True(t, ok)
	assert.Equal(t, "m1", complete.Analysis.DiscussionLead)
	assert.Equal(t, 3, complete.Analysis.ExpectedTurns)
	assert.Equal(t, 0.6, complete.Analysis.DomainWeights["Systems"])
}

func TestDecodePersonalityChunkMergesPersonaFields(t *testing.T) {
	got, err := DecodePersonality([]byte(`{"event":"model_chunk","model_id":"m1","content":"Hi","persona_emoji":"🦉","persona_name":"Sage"}`))
	require.NoError(t, err)
	chunk, ok := got.(PersonalityChunk)
	require.True(t, ok)
	assert.Equal(t, "Hi", chunk.Content)
	assert.Equal(t, "🦉", chunk.PersonaEmoji)
	assert.Equal(t, "Sage", chunk.PersonaName)
	assert.Equal(t, "", chunk.PersonaTrait)
}
