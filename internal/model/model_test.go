// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"testing"
	"time"
)

func testModels() []Model {
	return []Model{
		{ID: "qwen", Name: "Qwen 2.5", Type: TypeSelfHosted},
		{ID: "gpt-4o", Name: "GPT-4o", Type: TypeGitHub},
		{ID: "claude", Name: "Claude", Type: TypeExternal, Priority: 1},
	}
}

func TestStoreLoadPreservesOrder(t *testing.T) {
	s := NewStore()
	s.Load(testModels())

	ids := s.IDs()
	want := []string{"qwen", "gpt-4o", "claude"}
	if len(ids) != len(want) {
		t.Fatalf("IDs() returned %d ids, want %d", len(ids), len(want))
	}
	for i, id := range want {
		if ids[i] != id {
			t.Errorf("IDs()[%d] = %q, want %q", i, ids[i], id)
		}
	}
}

func TestStoreResetForRound(t *testing.T) {
	s := NewStore()
	s.Load(testModels())
	s.AppendDelta("qwen", "old text", "")
	s.SetError("gpt-4o", "boom")

	s.ResetForRound([]string{"qwen", "gpt-4o"}, nil)

	if got := s.State("qwen").Response; got != PlaceholderResponse {
		t.Errorf("qwen response = %q, want placeholder", got)
	}
	if st := s.State("gpt-4o"); st.Failed() {
		t.Error("gpt-4o error should be cleared by reset")
	}
}

func TestStoreResetForRoundSeedsPreviousResponses(t *testing.T) {
	s := NewStore()
	s.Load(testModels())

	s.ResetForRound([]string{"qwen", "gpt-4o"}, map[string]string{"qwen": "already done"})

	if got := s.State("qwen").Response; got != "already done" {
		t.Errorf("seeded response = %q, want %q", got, "already done")
	}
	if got := s.State("gpt-4o").Response; got != PlaceholderResponse {
		t.Errorf("unseeded response = %q, want placeholder", got)
	}
}

func TestStoreAppendDeltaReplacesPlaceholder(t *testing.T) {
	s := NewStore()
	s.Load(testModels())
	s.ResetForRound([]string{"qwen"}, nil)

	s.AppendDelta("qwen", "He", "hmm")
	s.AppendDelta("qwen", "llo", "")

	st := s.State("qwen")
	if st.Response != "Hello" {
		t.Errorf("response = %q, want %q", st.Response, "Hello")
	}
	if st.Thinking != "hmm" {
		t.Errorf("thinking = %q, want %q", st.Thinking, "hmm")
	}
}

func TestStoreUnknownIDGetsSyntheticSlot(t *testing.T) {
	s := NewStore()
	s.Load(testModels())

	// Moderator ids are not in the catalog but still carry state.
	s.SetResponse("moderator", "synthesis text")
	if got := s.State("moderator").Response; got != "synthesis text" {
		t.Errorf("moderator response = %q, want %q", got, "synthesis text")
	}
	if got := s.Name("moderator"); got != "moderator" {
		t.Errorf("Name fallback = %q, want id", got)
	}
}

func TestStoreMergePersonaKeepsExisting(t *testing.T) {
	s := NewStore()
	s.Load(testModels())
	s.MergePersona("qwen", "🦊", "Foxy", "")
	s.MergePersona("qwen", "", "", "cunning")

	st := s.State("qwen")
	if st.PersonaEmoji != "🦊" || st.PersonaName != "Foxy" || st.PersonaTrait != "cunning" {
		t.Errorf("persona = %q %q %q, want merged values", st.PersonaEmoji, st.PersonaName, st.PersonaTrait)
	}
}

func TestTimingBoard(t *testing.T) {
	now := time.Unix(1000, 0)
	clock := func() time.Time { return now }
	b := NewTimingBoardWithClock(clock)

	b.Reset([]string{"m1", "m2"})

	now = now.Add(50 * time.Millisecond)
	b.RecordFirstToken("m1")
	now = now.Add(100 * time.Millisecond)
	b.RecordEnd("m1")

	e, ok := b.Get("m1")
	if !ok {
		t.Fatal("missing timing for m1")
	}
	if e.FirstTokenMs != 50 {
		t.Errorf("FirstTokenMs = %d, want 50", e.FirstTokenMs)
	}
	if e.EndMs != 150 {
		t.Errorf("EndMs = %d, want 150", e.EndMs)
	}

	// RecordFirstToken is once-only.
	now = now.Add(time.Second)
	b.RecordFirstToken("m1")
	e, _ = b.Get("m1")
	if e.FirstTokenMs != 50 {
		t.Errorf("FirstTokenMs overwritten to %d", e.FirstTokenMs)
	}

	// EnsureEnded stamps only the participant still running.
	b.EnsureEnded()
	e2, _ := b.Get("m2")
	if !e2.Ended() {
		t.Error("m2 should be ended after EnsureEnded")
	}
	e, _ = b.Get("m1")
	if e.EndMs != 150 {
		t.Errorf("m1 EndMs clobbered to %d", e.EndMs)
	}
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{"chat", ModeChat, false},
		{"compare", ModeCompare, false},
		{"council", ModeCouncil, false},
		{"roundtable", ModeRoundtable, false},
		{"personality", ModePersonality, false},
		{"arena", ModeChat, true},
	}
	for _, tt := range tests {
		got, err := ParseMode(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseMode(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("ParseMode(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestModeMinParticipants(t *testing.T) {
	if got := ModeCouncil.MinParticipants(); got != 2 {
		t.Errorf("council min = %d, want 2", got)
	}
	if got := ModeRoundtable.MinParticipants(); got != 2 {
		t.Errorf("roundtable min = %d, want 2", got)
	}
	if got := ModeCompare.MinParticipants(); got != 1 {
		t.Errorf("compare min = %d, want 1", got)
	}
}
