// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package tui implements the interactive playground interface built on
// Bubble Tea.
//
// The model owns no generation state of its own: a round runs inside the
// session controller on a background goroutine, and the view re-reads
// controller snapshots on a fixed frame tick while streaming. This keeps
// rendering at a steady cadence no matter how fast tokens arrive.
//
// # Key Types
//
//   - Model: the Bubble Tea model; one per program
//   - KeyMap: the key bindings, built on bubbles/key
//
// # Usage
//
//	m := tui.New(ctl, store, ledger, cfg)
//	p := tea.NewProgram(m, tea.WithAltScreen())
//	_, err := p.Run()
package tui
