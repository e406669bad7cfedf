// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package history

import (
	"strings"
	"sync"
)

// =============================================================================
// ENTRY TYPES
// =============================================================================

// Role identifies who produced a transcript entry.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Kind tags an assistant entry with its protocol provenance.
type Kind string

const (
	KindCompareSummary      Kind = "compare_summary"
	KindCouncilSynthesis    Kind = "council_synthesis"
	KindCouncilTurn         Kind = "council_turn"
	KindCouncilChairman     Kind = "council_chairman"
	KindCouncilRanking      Kind = "council_ranking"
	KindRoundtableSynthesis Kind = "roundtable_synthesis"
	KindRoundtableAnalysis  Kind = "roundtable_analysis"
	KindRoundtableTurn      Kind = "roundtable_turn"
	KindPersonalityResponse Kind = "personality_response"
)

// IsSynthesis reports whether the kind is a final cross-model conclusion.
// Only synthesis entries survive carryover into non-compare modes.
func (k Kind) IsSynthesis() bool {
	return k == KindCouncilSynthesis || k == KindRoundtableSynthesis
}

// Entry is one transcript line. Kind is set for assistant entries only.
type Entry struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
	Kind    Kind   `json:"kind,omitempty"`
}

// UserEntry builds a user transcript entry.
func UserEntry(content string) Entry {
	return Entry{Role: RoleUser, Content: content}
}

// AssistantEntry builds an assistant transcript entry with a provenance kind.
func AssistantEntry(kind Kind, content string) Entry {
	return Entry{Role: RoleAssistant, Content: content, Kind: kind}
}

// =============================================================================
// LEDGER
// =============================================================================

// Ledger is the append-only ordered log of conversation turns. It is the
// sole source of truth for what happened in a session, independent of the
// transient per-model display state. Entries are appended at protocol
// checkpoints, never per token.
type Ledger struct {
	mu      sync.RWMutex
	entries []Entry
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{}
}

// Push appends entries in order. A nil or empty slice is a no-op.
func (l *Ledger) Push(entries ...Entry) {
	if len(entries) == 0 {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, entries...)
}

// Clear resets the ledger to empty for a new round.
func (l *Ledger) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = nil
}

// Entries returns a copy of the transcript in order.
func (l *Ledger) Entries() []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len returns the number of transcript entries.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Replace swaps the transcript wholesale. Used when carryover seeds a new
// mode's context.
func (l *Ledger) Replace(entries []Entry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append([]Entry(nil), entries...)
}

// =============================================================================
// TEXT RENDERING
// =============================================================================

// ToText renders entries as "User: ..." / "Assistant: ..." pairs joined by
// blank lines, the textual context format the inference backend expects.
func ToText(entries []Entry) string {
	parts := make([]string, 0, len(entries))
	for _, e := range entries {
		switch e.Role {
		case RoleUser:
			parts = append(parts, "User: "+e.Content)
		case RoleAssistant:
			parts = append(parts, "Assistant: "+e.Content)
		}
	}
	return strings.Join(parts, "\n\n")
}

// Text renders the ledger's current transcript via ToText.
func (l *Ledger) Text() string {
	return ToText(l.Entries())
}
