// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/shipctl-tui/internal/backend"
	"github.com/jeranaias/shipctl-tui/internal/history"
	"github.com/jeranaias/shipctl-tui/internal/model"
	"github.com/jeranaias/shipctl-tui/internal/stream"
)

const (
	eventuallyTimeout = time.Second
	eventuallyTick    = 5 * time.Millisecond
)

// fakeStreamer replays canned events for whichever mode is exercised.
type fakeStreamer struct {
	compareEvents     []stream.CompareEvent
	councilEvents     []stream.CouncilEvent
	roundtableEvents  []stream.RoundtableEvent
	personalityEvents []stream.PersonalityEvent

	err error

	compareCalls chan backend.CompareRequest
	councilCalls chan backend.CouncilRequest

	// gate, when set, blocks the next stream open until released or the
	// context is cancelled. Used to hold a session in flight. It is
	// consumed by that one open; a subsequent restart streams freely.
	mu   sync.Mutex
	gate chan struct{}
}

func newFakeStreamer() *fakeStreamer {
	return &fakeStreamer{
		compareCalls: make(chan backend.CompareRequest, 8),
		councilCalls: make(chan backend.CouncilRequest, 8),
	}
}

func (f *fakeStreamer) wait(ctx context.Context) error {
	f.mu.Lock()
	gate := f.gate
	f.gate = nil
	f.mu.Unlock()
	if gate == nil {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-gate:
		return nil
	}
}

func (f *fakeStreamer) StreamCompare(ctx context.Context, req backend.CompareRequest, apply func(stream.CompareEvent)) error {
	f.compareCalls <- req
	if err := f.wait(ctx); err != nil {
		return err
	}
	if f.err != nil {
		return f.err
	}
	for _, ev := range f.compareEvents {
		apply(ev)
	}
	return nil
}

func (f *fakeStreamer) StreamCouncil(ctx context.Context, req backend.CouncilRequest, apply func(stream.CouncilEvent)) error {
	f.councilCalls <- req
	if err := f.wait(ctx); err != nil {
		return err
	}
	if f.err != nil {
		return f.err
	}
	for _, ev := range f.councilEvents {
		apply(ev)
	}
	return nil
}

func (f *fakeStreamer) StreamRoundtable(ctx context.Context, req backend.RoundtableRequest, apply func(stream.RoundtableEvent)) error {
	if err := f.wait(ctx); err != nil {
		return err
	}
	if f.err != nil {
		return f.err
	}
	for _, ev := range f.roundtableEvents {
		apply(ev)
	}
	return nil
}

func (f *fakeStreamer) StreamPersonality(ctx context.Context, req backend.PersonalityRequest, apply func(stream.PersonalityEvent)) error {
	if err := f.wait(ctx); err != nil {
		return err
	}
	if f.err != nil {
		return f.err
	}
	for _, ev := range f.personalityEvents {
		apply(ev)
	}
	return nil
}

func newTestController(f *fakeStreamer, mode model.Mode) (*Controller, *model.Store, *history.Ledger) {
	store := model.NewStore()
	store.Load([]model.Model{
		{ID: "m1", Name: "Qwen", Type: model.TypeSelfHosted},
		{ID: "m2", Name: "GPT-4o", Type: model.TypeGitHub},
		{ID: "m3", Name: "Claude", Type: model.TypeExternal},
	})
	ledger := history.NewLedger()
	c := NewController(f, store, ledger)
	c.mode = mode
	c.SetParticipants([]string{"m1", "m2"})
	return c, store, ledger
}

// =============================================================================
// PRECONDITIONS
// =============================================================================

func TestSendMessageRefusesEmptyText(t *testing.T) {
	c, _, _ := newTestController(newFakeStreamer(), model.ModeCompare)
	err := c.SendMessage(context.Background(), "   ", SendOptions{})
	assert.ErrorIs(t, err, ErrEmptyMessage)
}

func TestSendMessageRefusesWithoutParticipants(t *testing.T) {
	c, _, _ := newTestController(newFakeStreamer(), model.ModeCompare)
	c.SetParticipants(nil)
	err := c.SendMessage(context.Background(), "hi", SendOptions{})
	assert.ErrorIs(t, err, ErrNoParticipants)
}

func TestSendMessageRefusesWhileBusy(t *testing.T) {
	f := newFakeStreamer()
	gate := make(chan struct{})
	f.gate = gate
	c, _, _ := newTestController(f, model.ModeCompare)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = c.SendMessage(context.Background(), "hi", SendOptions{})
	}()
	<-f.compareCalls // session is in flight

	err := c.SendMessage(context.Background(), "again", SendOptions{})
	assert.ErrorIs(t, err, ErrBusy)

	close(gate)
	<-done
	assert.False(t, c.IsGenerating())
}

func TestCouncilGuardRequiresTwoParticipants(t *testing.T) {
	f := newFakeStreamer()
	c, store, _ := newTestController(f, model.ModeCouncil)
	c.SetParticipants([]string{"m1"})

	err := c.SendMessage(context.Background(), "hi", SendOptions{})
	require.NoError(t, err)

	assert.Empty(t, f.councilCalls, "no request may be made")
	assert.Equal(t, phaseError, c.Phase())
	assert.Equal(t, "Council requires at least 2 participants.", store.State(ModeratorID).Err)
}

// =============================================================================
// COMPARE
// =============================================================================

func TestCompareEndToEnd(t *testing.T) {
	f := newFakeStreamer()
	f.compareEvents = []stream.CompareEvent{
		stream.CompareInfo{ModelID: "m2", Message: "rate limit hit, waiting"},
		stream.CompareToken{ModelID: "m1", Content: "<think>plan</think>Answer"},
		stream.CompareToken{ModelID: "m2", Content: "Other"},
		stream.CompareToken{ModelID: "m1", Content: " one"},
		stream.CompareDone{ModelID: "m1"},
		stream.CompareDone{ModelID: "m2"},
	}
	c, store, ledger := newTestController(f, model.ModeCompare)

	require.NoError(t, c.SendMessage(context.Background(), "question", SendOptions{MaxTokens: 512}))

	req := <-f.compareCalls
	assert.Equal(t, []string{"m1", "m2"}, req.Models)
	require.Len(t, req.Messages, 1)
	assert.Equal(t, "question", req.Messages[0].Content)
	assert.Equal(t, 512, req.MaxTokens)

	st1 := store.State("m1")
	assert.Equal(t, "Answer one", st1.Response)
	assert.Equal(t, "plan", st1.Thinking)
	assert.Equal(t, "Other", store.State("m2").Response)
	assert.Empty(t, store.State("m2").StatusMessage, "first token clears the status note")

	entries := ledger.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, history.RoleUser, entries[0].Role)
	assert.Equal(t, history.KindCompareSummary, entries[1].Kind)
	assert.Contains(t, entries[1].Content, "Qwen:\nAnswer one")
	assert.Contains(t, entries[1].Content, "GPT-4o:\nOther")

	et, ok := c.Timing("m1")
	require.True(t, ok)
	assert.True(t, et.Ended())
	assert.False(t, c.IsGenerating())
	assert.Empty(t, c.Phase())
}

func TestCompareDeduplicatesIdenticalResponses(t *testing.T) {
	f := newFakeStreamer()
	f.compareEvents = []stream.CompareEvent{
		stream.CompareToken{ModelID: "m1", Content: "same"},
		stream.CompareToken{ModelID: "m2", Content: "same"},
		stream.CompareDone{ModelID: "m1"},
		stream.CompareDone{ModelID: "m2"},
	}
	c, _, ledger := newTestController(f, model.ModeCompare)

	require.NoError(t, c.SendMessage(context.Background(), "q", SendOptions{}))

	entries := ledger.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "Qwen:\nsame", entries[1].Content)
}

func TestChatModeAppendsPlainAssistantEntry(t *testing.T) {
	f := newFakeStreamer()
	f.compareEvents = []stream.CompareEvent{
		stream.CompareToken{ModelID: "m1", Content: "hello"},
		stream.CompareDone{ModelID: "m1"},
	}
	c, _, ledger := newTestController(f, model.ModeChat)
	c.SetParticipants([]string{"m1"})

	require.NoError(t, c.SendMessage(context.Background(), "q", SendOptions{}))

	entries := ledger.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, history.RoleAssistant, entries[1].Role)
	assert.Empty(t, string(entries[1].Kind))
	assert.Equal(t, "hello", entries[1].Content)
}

func TestPerModelFailureDoesNotHaltOthers(t *testing.T) {
	f := newFakeStreamer()
	f.compareEvents = []stream.CompareEvent{
		stream.CompareToken{ModelID: "m1", Content: "partial"},
		stream.CompareFailure{ModelID: "m1", Message: "model exploded"},
		stream.CompareToken{ModelID: "m2", Content: "fine"},
		stream.CompareDone{ModelID: "m2"},
	}
	c, store, _ := newTestController(f, model.ModeCompare)

	require.NoError(t, c.SendMessage(context.Background(), "q", SendOptions{}))

	assert.Equal(t, "model exploded", store.State("m1").Err)
	assert.Equal(t, "fine", store.State("m2").Response)
	assert.NotEqual(t, phaseError, c.Phase())
}

// =============================================================================
// FAILURE SEMANTICS
// =============================================================================

func TestStreamErrorRendersSessionError(t *testing.T) {
	f := newFakeStreamer()
	f.err = errors.New("connection refused")
	c, store, _ := newTestController(f, model.ModeCompare)

	require.NoError(t, c.SendMessage(context.Background(), "q", SendOptions{}))

	assert.Equal(t, "Session Error: connection refused", store.State(ModeratorID).Response)
	assert.Equal(t, genericFailure, store.State("m1").Err)
	assert.Equal(t, genericFailure, store.State("m2").Err)
	assert.Equal(t, phaseError, c.Phase())
	assert.False(t, c.IsGenerating())
}

func TestUserStopIsSilent(t *testing.T) {
	f := newFakeStreamer()
	f.gate = make(chan struct{}) // never released; only Stop ends it
	c, store, _ := newTestController(f, model.ModeCompare)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = c.SendMessage(context.Background(), "q", SendOptions{})
	}()
	<-f.compareCalls
	c.Stop()
	<-done

	assert.Empty(t, store.State("m1").Err)
	assert.NotEqual(t, phaseError, c.Phase())
	assert.False(t, c.IsGenerating())

	et, ok := c.Timing("m1")
	require.True(t, ok)
	assert.True(t, et.Ended(), "teardown stamps missing end times")
}

func TestBareErrorEventHaltsFurtherUpdates(t *testing.T) {
	f := newFakeStreamer()
	f.compareEvents = []stream.CompareEvent{
		stream.CompareToken{ModelID: "m1", Content: "before"},
		stream.CompareFailure{Message: "backend gave up"},
		stream.CompareToken{ModelID: "m1", Content: " after"},
	}
	c, store, _ := newTestController(f, model.ModeCompare)

	require.NoError(t, c.SendMessage(context.Background(), "q", SendOptions{}))

	assert.Equal(t, "backend gave up", store.State(ModeratorID).Response)
	assert.Equal(t, phaseError, c.Phase())
	assert.NotContains(t, store.State("m1").Response, "after")
}

// =============================================================================
// RESTART / TOGGLE
// =============================================================================

func TestToggleModelRestartsWithSeededResponses(t *testing.T) {
	f := newFakeStreamer()
	f.gate = make(chan struct{})
	c, store, _ := newTestController(f, model.ModeCompare)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = c.SendMessage(context.Background(), "q", SendOptions{})
	}()
	<-f.compareCalls

	// m1 finished some text before the user removes m2.
	store.SetResponse("m1", "finished work")

	f.compareEvents = []stream.CompareEvent{
		stream.CompareDone{ModelID: "m1"},
	}

	// The restart cancels the gated session and streams the new events.
	require.NoError(t, c.ToggleModel(context.Background(), "m2"))
	<-done

	req := <-f.compareCalls // the restart request
	assert.Equal(t, []string{"m1"}, req.Models)
	assert.Equal(t, "finished work", store.State("m1").Response, "seeded text survives the reset")
	assert.Equal(t, []string{"m1"}, c.Participants())
}

func TestToggleModelAbandonsCouncilBelowTwo(t *testing.T) {
	f := newFakeStreamer()
	f.gate = make(chan struct{})
	c, store, _ := newTestController(f, model.ModeCouncil)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = c.SendMessage(context.Background(), "q", SendOptions{})
	}()
	<-f.councilCalls

	require.NoError(t, c.ToggleModel(context.Background(), "m2"))
	<-done

	assert.Equal(t, "Council requires at least 2 participants.", store.State(ModeratorID).Err)
	assert.Equal(t, phaseError, c.Phase())
	assert.False(t, c.IsGenerating())
	assert.Empty(t, f.councilCalls, "no restart request")
}

func TestToggleModelIdleJustUpdatesSelection(t *testing.T) {
	c, _, _ := newTestController(newFakeStreamer(), model.ModeCompare)
	require.NoError(t, c.ToggleModel(context.Background(), "m2"))
	assert.Equal(t, []string{"m1"}, c.Participants())
}

// =============================================================================
// MODE SWITCH CARRYOVER
// =============================================================================

func TestSetModeAppliesCarryover(t *testing.T) {
	c, _, ledger := newTestController(newFakeStreamer(), model.ModeCouncil)
	ledger.Push(
		history.UserEntry("A"),
		history.AssistantEntry(history.KindCouncilTurn, "turn"),
		history.AssistantEntry(history.KindCouncilSynthesis, "conclusion"),
	)

	c.SetMode(model.ModeRoundtable)

	entries := ledger.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "A", entries[0].Content)
	assert.Equal(t, history.KindCouncilSynthesis, entries[1].Kind)
}
