// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

// PlaceholderResponse is the text every participating model shows at the
// start of a new session round, before its first token arrives.
const PlaceholderResponse = "Ready to generate..."

// =============================================================================
// MODEL TYPE
// =============================================================================

// ModelType identifies which kind of backend serves a model.
type ModelType string

const (
	// TypeSelfHosted is a model served by the local inference backend.
	TypeSelfHosted ModelType = "self-hosted"
	// TypeGitHub is a model served through GitHub Models.
	TypeGitHub ModelType = "github"
	// TypeExternal is a model served by a third-party API.
	TypeExternal ModelType = "external"
)

// Model is one queryable LLM endpoint from the catalog. The catalog fields
// are immutable after load; per-session mutable state lives in SessionState.
type Model struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Type          ModelType `json:"type"`
	Color         string    `json:"color,omitempty"`
	Priority      int       `json:"priority,omitempty"`
	ContextLength int       `json:"context_length,omitempty"`
}

// HasExplicitPriority reports whether the catalog assigned a priority.
// Zero means "unset"; explicit priorities start at 1.
func (m Model) HasExplicitPriority() bool {
	return m.Priority > 0
}

// =============================================================================
// SESSION STATE
// =============================================================================

// SessionState holds the mutable per-model fields for the active session
// round. It is reset to placeholder values when a new round starts.
type SessionState struct {
	// Response is the accumulated visible answer text.
	Response string
	// Thinking is the accumulated internal-reasoning text, if any.
	Thinking string
	// Err is the terminal failure message for this model, if any.
	Err string
	// StatusMessage is a transient system note (rate-limit backoff etc.);
	// it never enters the transcript.
	StatusMessage string

	// Persona fields, personality mode only.
	PersonaEmoji string
	PersonaName  string
	PersonaTrait string
}

// Failed reports whether the model ended the round with a terminal error.
func (s *SessionState) Failed() bool {
	return s.Err != ""
}

// HasContent reports whether the model produced visible answer text beyond
// the placeholder.
func (s *SessionState) HasContent() bool {
	return s.Response != "" && s.Response != PlaceholderResponse
}
