// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"sync"
	"time"
)

// =============================================================================
// EXECUTION TIMING
// =============================================================================

// ExecutionTime is the per-model timing record for one session round.
// Times are wall-clock milliseconds since the round started; FirstTokenMs
// and EndMs are -1 until recorded.
type ExecutionTime struct {
	StartMs      int64
	FirstTokenMs int64
	EndMs        int64
}

// Ended reports whether the model's generation has finished.
func (e ExecutionTime) Ended() bool {
	return e.EndMs >= 0
}

// TimingBoard tracks ExecutionTime for every participant of the active
// round. The clock is injectable for tests.
type TimingBoard struct {
	mu         sync.Mutex
	now        func() time.Time
	roundStart time.Time
	times      map[string]*ExecutionTime
}

// NewTimingBoard creates a board using the real clock.
func NewTimingBoard() *TimingBoard {
	return NewTimingBoardWithClock(time.Now)
}

// NewTimingBoardWithClock creates a board with an injectable clock.
func NewTimingBoardWithClock(now func() time.Time) *TimingBoard {
	return &TimingBoard{
		now:   now,
		times: make(map[string]*ExecutionTime),
	}
}

// Reset discards all timing and stamps a fresh start for every given id.
func (b *TimingBoard) Reset(ids []string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.roundStart = b.now()
	b.times = make(map[string]*ExecutionTime, len(ids))
	for _, id := range ids {
		b.times[id] = &ExecutionTime{FirstTokenMs: -1, EndMs: -1}
	}
}

// elapsed returns milliseconds since the round started. Callers hold b.mu.
func (b *TimingBoard) elapsed() int64 {
	return b.now().Sub(b.roundStart).Milliseconds()
}

// entry returns the record for id, creating one if the id joined after
// Reset. Callers hold b.mu.
func (b *TimingBoard) entry(id string) *ExecutionTime {
	e, ok := b.times[id]
	if !ok {
		e = &ExecutionTime{StartMs: b.elapsed(), FirstTokenMs: -1, EndMs: -1}
		b.times[id] = e
	}
	return e
}

// RecordFirstToken stamps the first-token time for id, once.
func (b *TimingBoard) RecordFirstToken(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	e := b.entry(id)
	if e.FirstTokenMs < 0 {
		e.FirstTokenMs = b.elapsed()
	}
}

// RecordEnd stamps the end time for id, once.
func (b *TimingBoard) RecordEnd(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	e := b.entry(id)
	if e.EndMs < 0 {
		e.EndMs = b.elapsed()
	}
}

// EnsureEnded stamps an end time for every participant still missing one.
// Called when a session finishes or is torn down, so no card is left
// showing a running clock.
func (b *TimingBoard) EnsureEnded() {
	b.mu.Lock()
	defer b.mu.Unlock()
	ms := b.elapsed()
	for _, e := range b.times {
		if e.EndMs < 0 {
			e.EndMs = ms
		}
	}
}

// Get returns a copy of the timing record for id.
func (b *TimingBoard) Get(id string) (ExecutionTime, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	e, ok := b.times[id]
	if !ok {
		return ExecutionTime{}, false
	}
	return *e, true
}
