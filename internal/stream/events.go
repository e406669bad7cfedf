// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Decoding errors.
var (
	// ErrEventTooLarge indicates a single SSE event exceeded MaxEventSize.
	ErrEventTooLarge = errors.New("sse event too large")

	// ErrUnknownEvent indicates an event discriminator this client does not
	// recognize. Callers skip these rather than failing the stream.
	ErrUnknownEvent = errors.New("unknown event type")
)

// envelope is the superset of wire fields across all modes. Each decode
// function picks the fields its event carries.
type envelope struct {
	Event   string `json:"event"`
	ModelID string `json:"model_id"`
	Message string `json:"message"`
	Content string `json:"content"`
	Chunk   string `json:"chunk"`
	Text    string `json:"text"`
	ErrMsg  string `json:"error"`

	Response  string `json:"response"`
	Synthesis string `json:"synthesis"`

	ReviewerID   string `json:"reviewer_id"`
	ReviewerName string `json:"reviewer_name"`
	Ranking      string `json:"ranking"`

	AggregateRankings []AggregateRanking `json:"aggregate_rankings"`
	Analysis          *RoundtableAnalysis `json:"analysis"`

	TurnNumber int             `json:"turn_number"`
	Turn       *RoundtableTurn `json:"turn"`

	PersonaEmoji string `json:"persona_emoji"`
	PersonaName  string `json:"persona_name"`
	PersonaTrait string `json:"persona_trait"`
}

// text returns the token payload; some backends say "content", older ones
// say "chunk".
func (e *envelope) text() string {
	if e.Content != "" {
		return e.Content
	}
	return e.Chunk
}

func decodeEnvelope(data []byte) (*envelope, error) {
	var e envelope
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("decode event: %w", err)
	}
	return &e, nil
}

// =============================================================================
// SHARED PAYLOAD TYPES
// =============================================================================

// AggregateRanking is one row of the council's stage-2 vote aggregation.
type AggregateRanking struct {
	ModelID     string  `json:"model_id"`
	ModelName   string  `json:"model_name"`
	AverageRank float64 `json:"average_rank"`
	VotesCount  int     `json:"votes_count"`
}

// RoundtableAnalysis is the moderator's pre-discussion plan.
type RoundtableAnalysis struct {
	DomainWeights        map[string]float64 `json:"domain_weights"`
	ModelExpertiseScores map[string]float64 `json:"model_expertise_scores"`
	DiscussionLead       string             `json:"discussion_lead"`
	ExpectedTurns        int                `json:"expected_turns"`
	Reasoning            string             `json:"reasoning"`
}

// RoundtableTurn is one completed sequential contribution.
//
// The backend nests this payload under a "turn" key on turn_complete while
// turn_chunk and turn_error carry model_id at the top level. The asymmetry
// is a fixed quirk of the wire contract; it is preserved here rather than
// papered over.
type RoundtableTurn struct {
	ModelID    string `json:"model_id"`
	TurnNumber int    `json:"turn_number"`
	Response   string `json:"response"`
	Error      string `json:"error,omitempty"`
}

// =============================================================================
// COMPARE EVENTS
// =============================================================================

// CompareEvent is one decoded event from the compare chat stream.
type CompareEvent interface{ isCompareEvent() }

// CompareInfo is a transient system note for one model.
type CompareInfo struct{ ModelID, Message string }

// CompareToken is one incremental text delta for one model.
type CompareToken struct{ ModelID, Content string }

// CompareDone marks one model's generation as finished.
type CompareDone struct{ ModelID string }

// CompareFailure is a failure; ModelID is empty for a stream-wide error.
type CompareFailure struct{ ModelID, Message string }

func (CompareInfo) isCompareEvent()    {}
func (CompareToken) isCompareEvent()   {}
func (CompareDone) isCompareEvent()    {}
func (CompareFailure) isCompareEvent() {}

// DecodeCompare decodes one compare-stream event.
func DecodeCompare(data []byte) (CompareEvent, error) {
	e, err := decodeEnvelope(data)
	if err != nil {
		return nil, err
	}
	switch e.Event {
	case "info":
		return CompareInfo{ModelID: e.ModelID, Message: e.Message}, nil
	case "token":
		return CompareToken{ModelID: e.ModelID, Content: e.text()}, nil
	case "done":
		return CompareDone{ModelID: e.ModelID}, nil
	case "error":
		return CompareFailure{ModelID: e.ModelID, Message: errText(e)}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, e.Event)
	}
}

// =============================================================================
// COUNCIL EVENTS
// =============================================================================

// CouncilEvent is one decoded event from the council stream.
type CouncilEvent interface{ isCouncilEvent() }

// Stage 1: independent parallel generation.
type (
	CouncilModelStart    struct{ ModelID string }
	CouncilModelChunk    struct{ ModelID, Content string }
	CouncilModelResponse struct{ ModelID, Response string }
	CouncilModelError    struct{ ModelID, Message string }
)

// Stage 2: anonymous peer review.
type (
	CouncilStage2Start     struct{}
	CouncilRankingResponse struct{ ReviewerID, ReviewerName, Text string }
	CouncilRankingError    struct{ ReviewerID, ReviewerName, Message string }
	CouncilStage2Complete  struct{ Rankings []AggregateRanking }
)

// CouncilChairmanQuip is a short moderator aside between stages.
type CouncilChairmanQuip struct{ Text string }

// Stage 3: moderator synthesis.
type (
	CouncilStage3Start    struct{}
	CouncilStage3Complete struct{ Response string }
	CouncilStage3Error    struct{ Message string }
)

// CouncilFailure is a bare stream-wide error; it halts the session.
type CouncilFailure struct{ Message string }

func (CouncilModelStart) isCouncilEvent()      {}
func (CouncilModelChunk) isCouncilEvent()      {}
func (CouncilModelResponse) isCouncilEvent()   {}
func (CouncilModelError) isCouncilEvent()      {}
func (CouncilStage2Start) isCouncilEvent()     {}
func (CouncilRankingResponse) isCouncilEvent() {}
func (CouncilRankingError) isCouncilEvent()    {}
func (CouncilStage2Complete) isCouncilEvent()  {}
func (CouncilChairmanQuip) isCouncilEvent()    {}
func (CouncilStage3Start) isCouncilEvent()     {}
func (CouncilStage3Complete) isCouncilEvent()  {}
func (CouncilStage3Error) isCouncilEvent()     {}
func (CouncilFailure) isCouncilEvent()         {}

// DecodeCouncil decodes one council-stream event.
func DecodeCouncil(data []byte) (CouncilEvent, error) {
	e, err := decodeEnvelope(data)
	if err != nil {
		return nil, err
	}
	switch e.Event {
	case "model_start":
		return CouncilModelStart{ModelID: e.ModelID}, nil
	case "model_chunk":
		return CouncilModelChunk{ModelID: e.ModelID, Content: e.text()}, nil
	case "model_response":
		return CouncilModelResponse{ModelID: e.ModelID, Response: e.Response}, nil
	case "model_error":
		return CouncilModelError{ModelID: e.ModelID, Message: errText(e)}, nil
	case "stage2_start":
		return CouncilStage2Start{}, nil
	case "ranking_response":
		return CouncilRankingResponse{ReviewerID: e.ReviewerID, ReviewerName: e.ReviewerName, Text: e.Ranking}, nil
	case "ranking_error":
		return CouncilRankingError{ReviewerID: e.ReviewerID, ReviewerName: e.ReviewerName, Message: errText(e)}, nil
	case "stage2_complete":
		return CouncilStage2Complete{Rankings: e.AggregateRankings}, nil
	case "chairman_quip":
		return CouncilChairmanQuip{Text: firstNonEmpty(e.Text, e.Message)}, nil
	case "stage3_start":
		return CouncilStage3Start{}, nil
	case "stage3_complete":
		return CouncilStage3Complete{Response: firstNonEmpty(e.Response, e.Synthesis)}, nil
	case "stage3_error":
		return CouncilStage3Error{Message: errText(e)}, nil
	case "error":
		return CouncilFailure{Message: errText(e)}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, e.Event)
	}
}

// =============================================================================
// ROUNDTABLE EVENTS
// =============================================================================

// RoundtableEvent is one decoded event from the discussion stream.
type RoundtableEvent interface{ isRoundtableEvent() }

type (
	RoundtableAnalysisStart    struct{}
	RoundtableAnalysisComplete struct{ Analysis RoundtableAnalysis }
	RoundtableTurnStart        struct {
		ModelID    string
		TurnNumber int
	}
	RoundtableTurnChunk struct{ ModelID, Content string }
	// RoundtableTurnComplete carries the nested turn payload (see
	// RoundtableTurn for the wire quirk).
	RoundtableTurnComplete struct{ Turn RoundtableTurn }
	RoundtableTurnError    struct {
		ModelID    string
		TurnNumber int
		Message    string
	}
	RoundtableSynthesisStart      struct{}
	RoundtableDiscussionComplete  struct{ Synthesis string }
	RoundtableFailure             struct{ Message string }
)

func (RoundtableAnalysisStart) isRoundtableEvent()    {}
func (RoundtableAnalysisComplete) isRoundtableEvent() {}
func (RoundtableTurnStart) isRoundtableEvent()        {}
func (RoundtableTurnChunk) isRoundtableEvent()        {}
func (RoundtableTurnComplete) isRoundtableEvent()     {}
func (RoundtableTurnError) isRoundtableEvent()        {}
func (RoundtableSynthesisStart) isRoundtableEvent()   {}
func (RoundtableDiscussionComplete) isRoundtableEvent() {}
func (RoundtableFailure) isRoundtableEvent()            {}

// DecodeRoundtable decodes one discussion-stream event.
func DecodeRoundtable(data []byte) (RoundtableEvent, error) {
	e, err := decodeEnvelope(data)
	if err != nil {
		return nil, err
	}
	switch e.Event {
	case "analysis_start":
		return RoundtableAnalysisStart{}, nil
	case "analysis_complete":
		var a RoundtableAnalysis
		if e.Analysis != nil {
			a = *e.Analysis
		}
		return RoundtableAnalysisComplete{Analysis: a}, nil
	case "turn_start":
		return RoundtableTurnStart{ModelID: e.ModelID, TurnNumber: e.TurnNumber}, nil
	case "turn_chunk":
		return RoundtableTurnChunk{ModelID: e.ModelID, Content: e.text()}, nil
	case "turn_complete":
		var turn RoundtableTurn
		if e.Turn != nil {
			turn = *e.Turn
		}
		return RoundtableTurnComplete{Turn: turn}, nil
	case "turn_error":
		return RoundtableTurnError{ModelID: e.ModelID, TurnNumber: e.TurnNumber, Message: errText(e)}, nil
	case "synthesis_start":
		return RoundtableSynthesisStart{}, nil
	case "discussion_complete":
		return RoundtableDiscussionComplete{Synthesis: firstNonEmpty(e.Synthesis, e.Response)}, nil
	case "error":
		return RoundtableFailure{Message: errText(e)}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, e.Event)
	}
}

// =============================================================================
// PERSONALITY EVENTS
// =============================================================================

// PersonalityEvent is one decoded event from the personality stream.
type PersonalityEvent interface{ isPersonalityEvent() }

type (
	PersonalityInfo struct{ ModelID, Message string }
	// PersonalityChunk carries a text delta plus whatever persona fields
	// the backend has streamed so far; empty fields mean "no change".
	PersonalityChunk struct {
		ModelID      string
		Content      string
		PersonaEmoji string
		PersonaName  string
		PersonaTrait string
	}
	PersonalityResponse   struct{ ModelID, Response string }
	PersonalityModelError struct{ ModelID, Message string }
	PersonalityDone       struct{ ModelID string }
	PersonalityFailure    struct{ Message string }
)

func (PersonalityInfo) isPersonalityEvent()       {}
func (PersonalityChunk) isPersonalityEvent()      {}
func (PersonalityResponse) isPersonalityEvent()   {}
func (PersonalityModelError) isPersonalityEvent() {}
func (PersonalityDone) isPersonalityEvent()       {}
func (PersonalityFailure) isPersonalityEvent()    {}

// DecodePersonality decodes one personality-stream event.
func DecodePersonality(data []byte) (PersonalityEvent, error) {
	e, err := decodeEnvelope(data)
	if err != nil {
		return nil, err
	}
	switch e.Event {
	case "info":
		return PersonalityInfo{ModelID: e.ModelID, Message: e.Message}, nil
	case "model_chunk", "token":
		return PersonalityChunk{
			ModelID:      e.ModelID,
			Content:      e.text(),
			PersonaEmoji: e.PersonaEmoji,
			PersonaName:  e.PersonaName,
			PersonaTrait: e.PersonaTrait,
		}, nil
	case "model_response":
		return PersonalityResponse{ModelID: e.ModelID, Response: e.Response}, nil
	case "model_error":
		return PersonalityModelError{ModelID: e.ModelID, Message: errText(e)}, nil
	case "done":
		return PersonalityDone{ModelID: e.ModelID}, nil
	case "error":
		return PersonalityFailure{Message: errText(e)}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, e.Event)
	}
}

// =============================================================================
// HELPERS
// =============================================================================

func errText(e *envelope) string {
	return firstNonEmpty(e.ErrMsg, e.Message)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
