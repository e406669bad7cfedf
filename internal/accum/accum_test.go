// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package accum

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingSink records every ApplyDelta call.
type recordingSink struct {
	mu    sync.Mutex
	calls [][3]string
}

func (r *recordingSink) ApplyDelta(modelID, answerAdd, thinkingAdd string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, [3]string{modelID, answerAdd, thinkingAdd})
}

func (r *recordingSink) snapshot() [][3]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([][3]string, len(r.calls))
	copy(out, r.calls)
	return out
}

func TestFlushCoalescesIntoOneApplication(t *testing.T) {
	sink := &recordingSink{}
	a := NewWithInterval(sink, time.Hour) // never fires on its own

	a.Enqueue("m1", "a", "b")
	a.Enqueue("m1", "a", "b")
	a.Enqueue("m1", "a", "b")
	a.Flush()

	calls := sink.snapshot()
	require.Len(t, calls, 1, "three enqueues must flush as one state update")
	assert.Equal(t, [3]string{"m1", "aaa", "bbb"}, calls[0])
}

func TestFlushDrainsPending(t *testing.T) {
	sink := &recordingSink{}
	a := NewWithInterval(sink, time.Hour)

	a.Enqueue("m1", "x", "")
	a.Flush()
	a.Flush()

	assert.Len(t, sink.snapshot(), 1, "second flush must be a no-op")
}

func TestClearPendingForModel(t *testing.T) {
	sink := &recordingSink{}
	a := NewWithInterval(sink, time.Hour)

	a.Enqueue("m1", "stale", "")
	a.Enqueue("m2", "keep", "")
	a.ClearPendingForModel("m1")
	a.Flush()

	calls := sink.snapshot()
	require.Len(t, calls, 1)
	assert.Equal(t, "m2", calls[0][0])
}

func TestResetCancelsScheduledFlush(t *testing.T) {
	sink := &recordingSink{}
	a := NewWithInterval(sink, 10*time.Millisecond)

	a.Enqueue("m1", "x", "")
	a.Reset()

	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, sink.snapshot(), "reset must cancel the pending flush")
}

func TestScheduledFlushFires(t *testing.T) {
	sink := &recordingSink{}
	a := NewWithInterval(sink, 5*time.Millisecond)

	a.Enqueue("m1", "he", "")
	a.Enqueue("m1", "llo", "")

	require.Eventually(t, func() bool {
		calls := sink.snapshot()
		return len(calls) == 1 && calls[0] == [3]string{"m1", "hello", ""}
	}, time.Second, 2*time.Millisecond)
}

func TestEnqueueEmptyIsNoop(t *testing.T) {
	sink := &recordingSink{}
	a := NewWithInterval(sink, time.Hour)

	a.Enqueue("m1", "", "")
	a.Flush()

	assert.Empty(t, sink.snapshot())
}

// gatedSink parks inside ApplyDelta until released, exposing the window
// between a flush draining a delta and the sink receiving it.
type gatedSink struct {
	mu      sync.Mutex
	text    map[string]string
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func newGatedSink() *gatedSink {
	return &gatedSink{
		text:    make(map[string]string),
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
}

func (g *gatedSink) ApplyDelta(modelID, answerAdd, _ string) {
	g.once.Do(func() { close(g.entered) })
	<-g.release
	g.mu.Lock()
	defer g.mu.Unlock()
	g.text[modelID] += answerAdd
}

func (g *gatedSink) set(modelID, text string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.text[modelID] = text
}

func (g *gatedSink) get(modelID string) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.text[modelID]
}

// A synthesis overwrite clears the model's pending delta and then replaces
// its text. If a timer flush already drained that delta, the retraction
// must wait for the apply to finish rather than let the stale delta land
// on top of the replacement.
func TestClearPendingOrdersAgainstInFlightFlush(t *testing.T) {
	sink := newGatedSink()
	a := NewWithInterval(sink, time.Hour)

	a.Enqueue("m1", "PARTIAL", "")

	go a.Flush()
	<-sink.entered // flush is mid-apply, holding the stale delta

	overwritten := make(chan struct{})
	go func() {
		a.ClearPendingForModel("m1")
		sink.set("m1", "FINAL")
		close(overwritten)
	}()

	select {
	case <-overwritten:
		t.Fatal("retraction completed while a flush was still applying")
	case <-time.After(20 * time.Millisecond):
	}

	close(sink.release)
	<-overwritten

	assert.Equal(t, "FINAL", sink.get("m1"),
		"stale delta must not survive the overwrite")
}

func TestPerModelIsolation(t *testing.T) {
	sink := &recordingSink{}
	a := NewWithInterval(sink, time.Hour)

	a.Enqueue("m1", "one", "")
	a.Enqueue("m2", "two", "t")
	a.Flush()

	calls := sink.snapshot()
	require.Len(t, calls, 2)
	got := map[string][3]string{}
	for _, c := range calls {
		got[c[0]] = c
	}
	assert.Equal(t, [3]string{"m1", "one", ""}, got["m1"])
	assert.Equal(t, [3]string{"m2", "two", "t"}, got["m2"])
}
