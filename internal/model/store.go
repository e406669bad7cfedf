// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"sort"
	"sync"
)

// =============================================================================
// MODEL STORE
// =============================================================================

// Store is an indexed, thread-safe registry of catalog models and their
// per-session mutable state. All session writes go through update-by-id
// operations so an event for one model never touches another model's state.
type Store struct {
	mu     sync.RWMutex
	order  []string
	models map[string]Model
	states map[string]*SessionState
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		models: make(map[string]Model),
		states: make(map[string]*SessionState),
	}
}

// Load replaces the catalog with the given models, preserving their order.
// Existing session state for retained ids is kept.
func (s *Store) Load(models []Model) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.order = s.order[:0]
	s.models = make(map[string]Model, len(models))
	for _, m := range models {
		if _, dup := s.models[m.ID]; dup {
			continue
		}
		s.models[m.ID] = m
		s.order = append(s.order, m.ID)
		if _, ok := s.states[m.ID]; !ok {
			s.states[m.ID] = &SessionState{}
		}
	}
}

// Get returns the catalog entry for id.
func (s *Store) Get(id string) (Model, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.models[id]
	return m, ok
}

// Name returns the display name for id, falling back to the id itself for
// synthetic participants (the moderator) that are not in the catalog.
func (s *Store) Name(id string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if m, ok := s.models[id]; ok {
		return m.Name
	}
	return id
}

// IDs returns the catalog ids in catalog order.
func (s *Store) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Models returns the catalog entries in catalog order.
func (s *Store) Models() []Model {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Model, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.models[id])
	}
	return out
}

// Len returns the number of catalog models.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// =============================================================================
// SESSION STATE UPDATES
// =============================================================================

// state returns the mutable slot for id, creating one if needed. Callers
// must hold s.mu. Slots are created on demand so synthetic ids (moderator)
// and late-arriving event ids always have somewhere to land.
func (s *Store) state(id string) *SessionState {
	st, ok := s.states[id]
	if !ok {
		st = &SessionState{}
		s.states[id] = st
	}
	return st
}

// State returns a copy of the session state for id.
func (s *Store) State(id string) SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if st, ok := s.states[id]; ok {
		return *st
	}
	return SessionState{}
}

// ResetForRound resets state for every given id at the start of a new
// session round. Ids present in seed keep the seeded response instead of
// the placeholder, so a restarted session does not regenerate work that
// already completed.
func (s *Store) ResetForRound(ids []string, seed map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		st := s.state(id)
		*st = SessionState{Response: PlaceholderResponse}
		if prev, ok := seed[id]; ok && prev != "" {
			st.Response = prev
		}
	}
}

// AppendDelta concatenates answer and thinking text onto the model's
// accumulated buffers. A placeholder response is replaced, not appended to.
func (s *Store) AppendDelta(id, answerAdd, thinkingAdd string) {
	if answerAdd == "" && thinkingAdd == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.state(id)
	if answerAdd != "" {
		if st.Response == PlaceholderResponse {
			st.Response = ""
		}
		st.Response += answerAdd
	}
	st.Thinking += thinkingAdd
}

// SetResponse overwrites the model's visible response. Used when a
// synthesis replaces streamed content.
func (s *Store) SetResponse(id, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state(id).Response = text
}

// SetError marks the model failed with a terminal error message.
func (s *Store) SetError(id, msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state(id).Err = msg
}

// SetStatusMessage sets the transient system note for a model.
func (s *Store) SetStatusMessage(id, msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state(id).StatusMessage = msg
}

// ClearStatusMessage removes the transient system note.
func (s *Store) ClearStatusMessage(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state(id).StatusMessage = ""
}

// MergePersona merges persona metadata into the model state as fields
// arrive. Empty arguments leave the existing value untouched.
func (s *Store) MergePersona(id, emoji, name, trait string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.state(id)
	if emoji != "" {
		st.PersonaEmoji = emoji
	}
	if name != "" {
		st.PersonaName = name
	}
	if trait != "" {
		st.PersonaTrait = trait
	}
}

// =============================================================================
// SNAPSHOTS
// =============================================================================

// Card pairs a catalog model with a copy of its session state, for display.
type Card struct {
	Model Model
	State SessionState
}

// Snapshot returns cards for the given ids in the given order. Ids missing
// from the catalog get a minimal synthetic Model.
func (s *Store) Snapshot(ids []string) []Card {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Card, 0, len(ids))
	for _, id := range ids {
		m, ok := s.models[id]
		if !ok {
			m = Model{ID: id, Name: id}
		}
		c := Card{Model: m}
		if st, ok := s.states[id]; ok {
			c.State = *st
		}
		out = append(out, c)
	}
	return out
}

// SortedIDs returns the catalog ids sorted lexically. Useful for stable
// iteration in tests and exports.
func (s *Store) SortedIDs() []string {
	ids := s.IDs()
	sort.Strings(ids)
	return ids
}
