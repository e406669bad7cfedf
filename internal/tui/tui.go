// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// tui.go - Bubble Tea model for the playground TUI.
//
// The session controller runs a round in a background goroutine while
// the TUI polls its snapshots on a fixed frame cadence. Tokens land in
// the controller's store between frames, so rendering stays at the
// frame rate regardless of stream speed.
package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/shipctl-tui/internal/accum"
	"github.com/jeranaias/shipctl-tui/internal/config"
	"github.com/jeranaias/shipctl-tui/internal/history"
	"github.com/jeranaias/shipctl-tui/internal/model"
	"github.com/jeranaias/shipctl-tui/internal/session"
	"github.com/jeranaias/shipctl-tui/internal/storage"
)

// State represents the current state of the playground view.
type State int

const (
	StateReady     State = iota // Ready for input
	StateStreaming              // A round is in flight
)

// frameInterval is the render cadence while streaming. It matches the
// delta accumulator's flush interval so one frame sees one batch.
const frameInterval = accum.DefaultFlushInterval

// =============================================================================
// MESSAGES
// =============================================================================

// frameMsg drives a render while a round is streaming.
type frameMsg time.Time

// roundDoneMsg reports a finished round. The generation identifies which
// round produced it; a superseded round's message is ignored.
type roundDoneMsg struct {
	gen int
	err error
}

// savedMsg reports a transcript save.
type savedMsg struct {
	id  string
	err error
}

// =============================================================================
// MODEL
// =============================================================================

// Model is the Bubble Tea model for the playground.
type Model struct {
	state State

	width  int
	height int

	ctl    *session.Controller
	store  *model.Store
	ledger *history.Ledger
	cfg    *config.Config

	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model
	keys     KeyMap

	// focused selects the card receiving scroll and drop actions.
	focused int

	// round counts started rounds; completion messages from older rounds
	// are dropped so a restart cannot be flipped back to ready early.
	round int

	showThinking bool
	showHelp     bool
	statusLine   string

	roundCancel context.CancelFunc
}

// New builds the playground TUI over an assembled session stack.
func New(ctl *session.Controller, store *model.Store, ledger *history.Ledger, cfg *config.Config) Model {
	input := textinput.New()
	input.Placeholder = "Ask the models anything..."
	input.CharLimit = 4000
	input.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.MiniDot

	return Model{
		state:        StateReady,
		ctl:          ctl,
		store:        store,
		ledger:       ledger,
		cfg:          cfg,
		input:        input,
		viewport:     viewport.New(0, 0),
		spinner:      sp,
		keys:         DefaultKeyMap(),
		showThinking: cfg.UI.ShowThinking,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// =============================================================================
// COMMANDS
// =============================================================================

// startRound launches one SendMessage round in the background.
func (m *Model) startRound(text string) tea.Cmd {
	ctx, cancel := context.WithCancel(context.Background())
	m.roundCancel = cancel
	m.round++
	gen := m.round

	opts := session.SendOptions{
		MaxTokens:   m.cfg.Session.MaxTokens,
		Temperature: m.cfg.Session.Temperature,
		Turns:       m.cfg.Session.Turns,
	}

	run := func() tea.Msg {
		return roundDoneMsg{gen: gen, err: m.ctl.SendMessage(ctx, text, opts)}
	}
	return tea.Batch(run, frameTick(), m.spinner.Tick)
}

func frameTick() tea.Cmd {
	return tea.Tick(frameInterval, func(t time.Time) tea.Msg {
		return frameMsg(t)
	})
}

func saveTranscript(ctl *session.Controller, ledger *history.Ledger) tea.Cmd {
	return func() tea.Msg {
		store, err := storage.NewTranscriptStore()
		if err != nil {
			return savedMsg{err: err}
		}
		id, err := store.Save(&storage.Transcript{
			Mode:         ctl.Mode().String(),
			Participants: ctl.Participants(),
			Entries:      ledger.Entries(),
		})
		return savedMsg{id: id, err: err}
	}
}

// =============================================================================
// UPDATE
// =============================================================================

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		return m, nil

	case frameMsg:
		if m.state != StateStreaming {
			return m, nil
		}
		m.refreshViewport()
		return m, frameTick()

	case roundDoneMsg:
		if msg.gen != m.round {
			// A cancelled round finishing after its replacement started.
			return m, nil
		}
		m.state = StateReady
		m.roundCancel = nil
		if msg.err != nil {
			m.statusLine = errorStyle.Render(msg.err.Error())
		} else {
			m.statusLine = ""
		}
		m.refreshViewport()
		return m, nil

	case savedMsg:
		if msg.err != nil {
			m.statusLine = errorStyle.Render("save failed: " + msg.err.Error())
		} else {
			m.statusLine = "saved transcript " + msg.id
		}
		return m, nil

	case spinner.TickMsg:
		if m.state != StateStreaming {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	// Cursor blink and other component messages route to the input.
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		if m.roundCancel != nil {
			m.roundCancel()
		}
		return m, tea.Quit

	case key.Matches(msg, m.keys.Cancel):
		if m.state == StateStreaming {
			m.ctl.Stop()
			if m.roundCancel != nil {
				m.roundCancel()
			}
		}
		return m, nil

	case key.Matches(msg, m.keys.Help):
		m.showHelp = !m.showHelp
		m.layout()
		return m, nil

	case key.Matches(msg, m.keys.ToggleThink):
		m.showThinking = !m.showThinking
		m.refreshViewport()
		return m, nil

	case key.Matches(msg, m.keys.NextCard):
		if n := len(m.ctl.Participants()); n > 0 {
			m.focused = (m.focused + 1) % n
			m.refreshViewport()
		}
		return m, nil

	case key.Matches(msg, m.keys.PrevCard):
		if n := len(m.ctl.Participants()); n > 0 {
			m.focused = (m.focused - 1 + n) % n
			m.refreshViewport()
		}
		return m, nil

	case key.Matches(msg, m.keys.ScrollUp):
		m.viewport.HalfViewUp()
		return m, nil

	case key.Matches(msg, m.keys.ScrollDown):
		m.viewport.HalfViewDown()
		return m, nil
	}

	// The remaining bindings only act between rounds.
	if m.state == StateStreaming {
		if key.Matches(msg, m.keys.ToggleModel) {
			cmd := m.dropFocusedModel()
			return m, cmd
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Submit):
		text := m.input.Value()
		if text == "" {
			return m, nil
		}
		m.input.Reset()
		m.state = StateStreaming
		m.statusLine = ""
		m.focused = 0
		cmd := m.startRound(text)
		return m, cmd

	case key.Matches(msg, m.keys.CycleMode):
		m.cycleMode()
		m.refreshViewport()
		return m, nil

	case key.Matches(msg, m.keys.ClearHistory):
		m.ctl.ClearHistory()
		m.statusLine = "history cleared"
		m.refreshViewport()
		return m, nil

	case key.Matches(msg, m.keys.SaveTranscript):
		if m.ledger.Len() == 0 {
			m.statusLine = "nothing to save"
			return m, nil
		}
		return m, saveTranscript(m.ctl, m.ledger)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// cycleMode advances to the next mode whose participant minimum the
// current selection satisfies.
func (m *Model) cycleMode() {
	modes := []model.Mode{
		model.ModeChat, model.ModeCompare, model.ModeCouncil,
		model.ModeRoundtable, model.ModePersonality,
	}
	cur := m.ctl.Mode()
	n := len(m.ctl.Participants())
	for i, md := range modes {
		if md != cur {
			continue
		}
		for step := 1; step <= len(modes); step++ {
			next := modes[(i+step)%len(modes)]
			if n >= next.MinParticipants() {
				m.ctl.SetMode(next)
				return
			}
		}
		return
	}
}

// dropFocusedModel removes the focused participant mid-round; the
// controller restarts the survivors with finished answers preserved.
func (m *Model) dropFocusedModel() tea.Cmd {
	participants := m.ctl.Participants()
	if m.focused >= len(participants) {
		return nil
	}
	id := participants[m.focused]

	ctx, cancel := context.WithCancel(context.Background())
	if m.roundCancel != nil {
		m.roundCancel()
	}
	m.roundCancel = cancel
	m.round++
	gen := m.round

	return func() tea.Msg {
		return roundDoneMsg{gen: gen, err: m.ctl.ToggleModel(ctx, id)}
	}
}

// layout recomputes component dimensions.
func (m *Model) layout() {
	contentHeight := m.height - headerHeight - footerHeight(m.showHelp) - inputHeight
	if contentHeight < 3 {
		contentHeight = 3
	}
	m.viewport.Width = m.width
	m.viewport.Height = contentHeight
	m.input.Width = m.width - 4
	m.refreshViewport()
}

// refreshViewport re-renders the card grid into the viewport.
func (m *Model) refreshViewport() {
	atBottom := m.viewport.AtBottom()
	m.viewport.SetContent(m.renderCards())
	if atBottom {
		m.viewport.GotoBottom()
	}
}

var _ tea.Model = Model{}
