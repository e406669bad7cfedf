// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// keys.go - Keyboard bindings for the playground TUI.
package tui

import (
	"github.com/charmbracelet/bubbles/key"
)

// KeyMap defines all keyboard bindings for the playground interface.
type KeyMap struct {
	Submit        key.Binding
	Cancel        key.Binding
	Quit          key.Binding
	CycleMode     key.Binding
	NextCard      key.Binding
	PrevCard      key.Binding
	ToggleModel   key.Binding
	ToggleThink   key.Binding
	ClearHistory  key.Binding
	SaveTranscript key.Binding
	Help          key.Binding
	ScrollUp      key.Binding
	ScrollDown    key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Submit: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("Enter", "send"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("Esc", "stop generation"),
		),
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c", "ctrl+q"),
			key.WithHelp("C-c", "quit"),
		),
		CycleMode: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("Tab", "cycle mode"),
		),
		NextCard: key.NewBinding(
			key.WithKeys("right", "ctrl+n"),
			key.WithHelp("→", "next card"),
		),
		PrevCard: key.NewBinding(
			key.WithKeys("left", "ctrl+p"),
			key.WithHelp("←", "prev card"),
		),
		ToggleModel: key.NewBinding(
			key.WithKeys("ctrl+x"),
			key.WithHelp("C-x", "drop focused model"),
		),
		ToggleThink: key.NewBinding(
			key.WithKeys("ctrl+t"),
			key.WithHelp("C-t", "toggle thinking"),
		),
		ClearHistory: key.NewBinding(
			key.WithKeys("ctrl+l"),
			key.WithHelp("C-l", "clear history"),
		),
		SaveTranscript: key.NewBinding(
			key.WithKeys("ctrl+s"),
			key.WithHelp("C-s", "save transcript"),
		),
		Help: key.NewBinding(
			key.WithKeys("ctrl+h"),
			key.WithHelp("C-h", "toggle help"),
		),
		ScrollUp: key.NewBinding(
			key.WithKeys("pgup", "ctrl+u"),
			key.WithHelp("PgUp", "scroll up"),
		),
		ScrollDown: key.NewBinding(
			key.WithKeys("pgdown", "ctrl+d"),
			key.WithHelp("PgDn", "scroll down"),
		),
	}
}
