// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package accum

import (
	"strings"
	"sync"
	"time"
)

// DefaultFlushInterval approximates one rendering frame. Raw token events
// can arrive far faster than one state update per token is affordable;
// batching to frame cadence bounds the update frequency independent of
// token rate.
const DefaultFlushInterval = 33 * time.Millisecond

// Sink receives coalesced deltas on flush. The model store implements it.
type Sink interface {
	ApplyDelta(modelID, answerAdd, thinkingAdd string)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(modelID, answerAdd, thinkingAdd string)

// ApplyDelta implements Sink.
func (f SinkFunc) ApplyDelta(modelID, answerAdd, thinkingAdd string) {
	f(modelID, answerAdd, thinkingAdd)
}

// pendingDelta is one model's not-yet-flushed text.
type pendingDelta struct {
	answer   strings.Builder
	thinking strings.Builder
}

// =============================================================================
// ACCUMULATOR
// =============================================================================

// Accumulator batches per-model incremental text deltas and flushes them to
// the sink at a bounded rate. Scheduling is idempotent: any number of
// enqueues before a flush schedules exactly one flush.
type Accumulator struct {
	mu        sync.Mutex
	sink      Sink
	interval  time.Duration
	pending   map[string]*pendingDelta
	timer     *time.Timer
	scheduled bool
}

// New creates an accumulator flushing at DefaultFlushInterval.
func New(sink Sink) *Accumulator {
	return NewWithInterval(sink, DefaultFlushInterval)
}

// NewWithInterval creates an accumulator with a custom flush cadence.
// Tests use a tiny interval or call Flush directly.
func NewWithInterval(sink Sink, interval time.Duration) *Accumulator {
	return &Accumulator{
		sink:     sink,
		interval: interval,
		pending:  make(map[string]*pendingDelta),
	}
}

// Enqueue appends a delta to the model's pending buffer and schedules a
// flush if one is not already scheduled.
func (a *Accumulator) Enqueue(modelID, answerAdd, thinkingAdd string) {
	if answerAdd == "" && thinkingAdd == "" {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	d, ok := a.pending[modelID]
	if !ok {
		d = &pendingDelta{}
		a.pending[modelID] = d
	}
	d.answer.WriteString(answerAdd)
	d.thinking.WriteString(thinkingAdd)

	if !a.scheduled {
		a.scheduled = true
		a.timer = time.AfterFunc(a.interval, a.Flush)
	}
}

// Flush applies each model's accumulated delta to the sink in a single
// application per model, then drains the pending map. Draining and applying
// happen under the lock as one step, so ClearPendingForModel and Reset
// order strictly against an in-flight flush: a retraction either removes
// the delta before it reaches the sink or runs after the apply completes,
// never between the two. The sink must not call back into the accumulator.
func (a *Accumulator) Flush() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.scheduled = false
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
	for id, d := range a.pending {
		a.sink.ApplyDelta(id, d.answer.String(), d.thinking.String())
	}
	a.pending = make(map[string]*pendingDelta)
}

// ClearPendingForModel discards any not-yet-flushed delta for one model.
// Used when a model errors or a synthesis overwrites its content, so a
// stale queued delta cannot reappear after the replacement.
func (a *Accumulator) ClearPendingForModel(modelID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.pending, modelID)
}

// Reset clears all pending deltas and cancels any scheduled flush. Called
// at session start and teardown.
func (a *Accumulator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.pending = make(map[string]*pendingDelta)
	a.scheduled = false
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
}

// PendingModels returns the ids with queued deltas. Test helper.
func (a *Accumulator) PendingModels() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	ids := make([]string, 0, len(a.pending))
	for id := range a.pending {
		ids = append(ids, id)
	}
	return ids
}
