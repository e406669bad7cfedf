// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tui

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/shipctl-tui/internal/backend"
	"github.com/jeranaias/shipctl-tui/internal/config"
	"github.com/jeranaias/shipctl-tui/internal/history"
	"github.com/jeranaias/shipctl-tui/internal/model"
	"github.com/jeranaias/shipctl-tui/internal/session"
	"github.com/jeranaias/shipctl-tui/internal/stream"
)

// nullStreamer completes every round immediately with one token per model.
type nullStreamer struct{}

func (nullStreamer) StreamCompare(ctx context.Context, req backend.CompareRequest, apply func(stream.CompareEvent)) error {
	for _, id := range req.Models {
		apply(stream.CompareToken{ModelID: id, Content: "hello"})
		apply(stream.CompareDone{ModelID: id})
	}
	return nil
}

func (nullStreamer) StreamCouncil(ctx context.Context, req backend.CouncilRequest, apply func(stream.CouncilEvent)) error {
	return nil
}

func (nullStreamer) StreamRoundtable(ctx context.Context, req backend.RoundtableRequest, apply func(stream.RoundtableEvent)) error {
	return nil
}

func (nullStreamer) StreamPersonality(ctx context.Context, req backend.PersonalityRequest, apply func(stream.PersonalityEvent)) error {
	return nil
}

func newTestModel(t *testing.T, participants ...string) Model {
	t.Helper()
	store := model.NewStore()
	store.Load([]model.Model{
		{ID: "m1", Name: "Qwen", Type: model.TypeSelfHosted},
		{ID: "m2", Name: "GPT-4o", Type: model.TypeGitHub},
		{ID: "m3", Name: "Claude", Type: model.TypeExternal},
	})
	ledger := history.NewLedger()
	ctl := session.NewController(nullStreamer{}, store, ledger)
	if len(participants) == 0 {
		participants = []string{"m1", "m2"}
	}
	ctl.SetParticipants(participants)
	return New(ctl, store, ledger, config.Default())
}

func resize(m Model, w, h int) Model {
	updated, _ := m.Update(tea.WindowSizeMsg{Width: w, Height: h})
	return updated.(Model)
}

func TestNewDefaults(t *testing.T) {
	m := newTestModel(t)
	assert.Equal(t, StateReady, m.state)
	assert.True(t, m.showThinking)
	assert.Equal(t, 0, m.focused)
}

func TestViewShowsParticipants(t *testing.T) {
	m := resize(newTestModel(t), 120, 40)
	out := m.View()
	assert.Contains(t, out, "Qwen")
	assert.Contains(t, out, "GPT-4o")
	assert.Contains(t, out, "CHAT")
}

func TestCycleModeSkipsModesNeedingMoreParticipants(t *testing.T) {
	m := newTestModel(t, "m1")
	m.ctl.SetMode(model.ModeChat)

	m.cycleMode()
	assert.Equal(t, model.ModeCompare, m.ctl.Mode())

	// Council and roundtable need two participants; with one the cycle
	// jumps straight to personality.
	m.cycleMode()
	assert.Equal(t, model.ModePersonality, m.ctl.Mode())

	m.cycleMode()
	assert.Equal(t, model.ModeChat, m.ctl.Mode())
}

func TestCycleModeVisitsAllWithEnoughParticipants(t *testing.T) {
	m := newTestModel(t, "m1", "m2")
	m.ctl.SetMode(model.ModeCompare)

	m.cycleMode()
	assert.Equal(t, model.ModeCouncil, m.ctl.Mode())
	m.cycleMode()
	assert.Equal(t, model.ModeRoundtable, m.ctl.Mode())
}

func TestCardFocusWrapsAround(t *testing.T) {
	m := resize(newTestModel(t), 120, 40)

	updated, _ := m.handleKey(tea.KeyMsg{Type: tea.KeyRight})
	m = updated.(Model)
	assert.Equal(t, 1, m.focused)

	updated, _ = m.handleKey(tea.KeyMsg{Type: tea.KeyRight})
	m = updated.(Model)
	assert.Equal(t, 0, m.focused)

	updated, _ = m.handleKey(tea.KeyMsg{Type: tea.KeyLeft})
	m = updated.(Model)
	assert.Equal(t, 1, m.focused)
}

func TestSubmitStartsRound(t *testing.T) {
	m := resize(newTestModel(t), 120, 40)
	m.input.SetValue("why is the sky blue")

	updated, cmd := m.handleKey(tea.KeyMsg{Type: tea.KeyEnter})
	m = updated.(Model)

	assert.Equal(t, StateStreaming, m.state)
	assert.NotNil(t, cmd)
	assert.Empty(t, m.input.Value())
}

func TestSubmitIgnoresEmptyInput(t *testing.T) {
	m := resize(newTestModel(t), 120, 40)

	updated, cmd := m.handleKey(tea.KeyMsg{Type: tea.KeyEnter})
	m = updated.(Model)

	assert.Equal(t, StateReady, m.state)
	assert.Nil(t, cmd)
}

func TestRoundDoneReturnsToReady(t *testing.T) {
	m := resize(newTestModel(t), 120, 40)
	m.state = StateStreaming

	updated, _ := m.Update(roundDoneMsg{})
	m = updated.(Model)
	assert.Equal(t, StateReady, m.state)
	assert.Empty(t, m.statusLine)
}

func TestRoundDoneSurfacesError(t *testing.T) {
	m := resize(newTestModel(t), 120, 40)
	m.state = StateStreaming

	updated, _ := m.Update(roundDoneMsg{err: errors.New("backend unreachable")})
	m = updated.(Model)
	assert.Equal(t, StateReady, m.state)
	assert.Contains(t, m.statusLine, "backend unreachable")
}

func TestStaleRoundDoneIsIgnored(t *testing.T) {
	m := resize(newTestModel(t), 120, 40)
	m.input.SetValue("first question")
	updated, _ := m.handleKey(tea.KeyMsg{Type: tea.KeyEnter})
	m = updated.(Model)
	require.Equal(t, StateStreaming, m.state)

	// A completion from a superseded round (cancelled when the focused
	// model was dropped and the survivors restarted) must not flip the
	// UI back to ready while the replacement round streams.
	updated, _ = m.Update(roundDoneMsg{gen: m.round - 1, err: context.Canceled})
	m = updated.(Model)
	assert.Equal(t, StateStreaming, m.state)
	assert.Empty(t, m.statusLine)

	updated, _ = m.Update(roundDoneMsg{gen: m.round})
	m = updated.(Model)
	assert.Equal(t, StateReady, m.state)
}

func TestFrameTickStopsWhenReady(t *testing.T) {
	m := resize(newTestModel(t), 120, 40)

	_, cmd := m.Update(frameMsg{})
	assert.Nil(t, cmd, "frame ticks should not reschedule when idle")

	m.state = StateStreaming
	_, cmd = m.Update(frameMsg{})
	assert.NotNil(t, cmd)
}

func TestViewRendersRoundOutput(t *testing.T) {
	m := resize(newTestModel(t), 120, 40)

	err := m.ctl.SendMessage(context.Background(), "hi", session.SendOptions{})
	require.NoError(t, err)

	m.refreshViewport()
	out := m.View()
	assert.Contains(t, out, "hello")
}

func TestHelpToggle(t *testing.T) {
	m := resize(newTestModel(t), 120, 40)
	assert.Contains(t, m.renderFooter(), "ctrl+h help")

	updated, _ := m.handleKey(tea.KeyMsg{Type: tea.KeyCtrlH})
	m = updated.(Model)
	assert.Contains(t, m.renderFooter(), "save transcript")
}

func TestWrapBreaksLongLines(t *testing.T) {
	got := wrap("one two three four five", 9)
	for _, line := range strings.Split(got, "\n") {
		assert.LessOrEqual(t, len(line), 9)
	}
	assert.Equal(t, "one two three four five", strings.ReplaceAll(got, "\n", " "))
}

func TestWrapPreservesExistingNewlines(t *testing.T) {
	got := wrap("alpha\nbeta", 40)
	assert.Equal(t, "alpha\nbeta", got)
}

func TestTruncateLine(t *testing.T) {
	assert.Equal(t, "abc", truncateLine("abc", 10))
	assert.Equal(t, "ab…", truncateLine("abcdef", 3))
	assert.Equal(t, "", truncateLine("abc", 0))
}
