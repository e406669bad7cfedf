// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package selection

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jeranaias/shipctl-tui/internal/model"
)

// RateLimitCooldown is how long a recorded rate limit demotes a model.
const RateLimitCooldown = 60 * time.Second

// =============================================================================
// PRIORITY TABLES
// =============================================================================

// priorityEntry maps a case-insensitive id substring to a priority.
// Lower is preferred.
type priorityEntry struct {
	substr   string
	priority int
}

// Per-type tables. Self-hosted models outrank GitHub Models which outrank
// external APIs in the default weighting; entries within a type order the
// known families.
var priorityTables = map[model.ModelType][]priorityEntry{
	model.TypeSelfHosted: {
		{"qwen", 10},
		{"llama", 20},
		{"mistral", 30},
		{"deepseek", 40},
		{"phi", 50},
	},
	model.TypeGitHub: {
		{"gpt-4o-mini", 130},
		{"gpt-4o", 110},
		{"gpt-4", 120},
		{"o1", 140},
	},
	model.TypeExternal: {
		{"claude", 210},
		{"gemini", 220},
		{"grok", 230},
	},
}

// typeDefaults are the fallback priorities when no table entry matches.
var typeDefaults = map[model.ModelType]int{
	model.TypeSelfHosted: 100,
	model.TypeGitHub:     200,
	model.TypeExternal:   300,
}

// resolvePriority returns the effective priority for a model: explicit
// catalog priority, then table substring match, then the type default.
func resolvePriority(m model.Model) int {
	if m.HasExplicitPriority() {
		return m.Priority
	}
	needle := strings.ToLower(m.ID + " " + m.Name)
	for _, entry := range priorityTables[m.Type] {
		if strings.Contains(needle, entry.substr) {
			return entry.priority
		}
	}
	if def, ok := typeDefaults[m.Type]; ok {
		return def
	}
	return typeDefaults[model.TypeExternal]
}

// =============================================================================
// RANKER
// =============================================================================

// Ranker orders candidate models for auto-selected orchestration roles.
// It prefers "it just worked" continuity (the last successful model),
// then configured priority, and demotes anything that recently hit a
// provider rate limit to last resort without excluding it outright — a
// rate-limited model may still be the only option.
type Ranker struct {
	mu          sync.Mutex
	now         func() time.Time
	limited     map[string]time.Time
	lastSuccess string
}

// NewRanker creates a ranker using the real clock.
func NewRanker() *Ranker {
	return NewRankerWithClock(time.Now)
}

// NewRankerWithClock creates a ranker with an injectable clock for tests.
func NewRankerWithClock(now func() time.Time) *Ranker {
	return &Ranker{
		now:     now,
		limited: make(map[string]time.Time),
	}
}

// RecordRateLimit marks a model as rate limited as of now.
func (r *Ranker) RecordRateLimit(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.limited[id] = r.now()
}

// RecordSuccess marks a model as the most recent one that worked.
func (r *Ranker) RecordSuccess(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastSuccess = id
}

// IsRateLimited reports whether a rate limit was recorded for id within
// the cooldown window.
func (r *Ranker) IsRateLimited(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.isRateLimitedLocked(id)
}

func (r *Ranker) isRateLimitedLocked(id string) bool {
	at, ok := r.limited[id]
	if !ok {
		return false
	}
	return r.now().Sub(at) < RateLimitCooldown
}

// decorated is a model plus its resolved ranking inputs.
type decorated struct {
	m           model.Model
	priority    int
	rateLimited bool
	lastSuccess bool
}

// SortModels returns a priority-ordered copy of list. Ordering: all
// non-rate-limited models first (the last-successful model leads, then
// ascending priority, then self-hosted before other types on ties, then
// id), followed by all rate-limited models (ascending priority, then id).
func (r *Ranker) SortModels(list []model.Model) []model.Model {
	r.mu.Lock()
	decoratedList := make([]decorated, len(list))
	for i, m := range list {
		decoratedList[i] = decorated{
			m:           m,
			priority:    resolvePriority(m),
			rateLimited: r.isRateLimitedLocked(m.ID),
			lastSuccess: m.ID == r.lastSuccess,
		}
	}
	r.mu.Unlock()

	sort.SliceStable(decoratedList, func(i, j int) bool {
		a, b := decoratedList[i], decoratedList[j]
		if a.rateLimited != b.rateLimited {
			return !a.rateLimited
		}
		if !a.rateLimited {
			if a.lastSuccess != b.lastSuccess {
				return a.lastSuccess
			}
			if a.priority != b.priority {
				return a.priority < b.priority
			}
			aSelf := a.m.Type == model.TypeSelfHosted
			bSelf := b.m.Type == model.TypeSelfHosted
			if aSelf != bSelf {
				return aSelf
			}
			return a.m.ID < b.m.ID
		}
		if a.priority != b.priority {
			return a.priority < b.priority
		}
		return a.m.ID < b.m.ID
	})

	out := make([]model.Model, len(decoratedList))
	for i, d := range decoratedList {
		out[i] = d.m
	}
	return out
}

// PickOrchestrator returns the best candidate for the moderator/chairman
// role, or false when the list is empty.
func (r *Ranker) PickOrchestrator(list []model.Model) (model.Model, bool) {
	ranked := r.SortModels(list)
	if len(ranked) == 0 {
		return model.Model{}, false
	}
	return ranked[0], true
}
