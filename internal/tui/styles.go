// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// styles.go - Lipgloss styles for the playground TUI.
package tui

import "github.com/charmbracelet/lipgloss"

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39"))

	modeBadgeStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("232")).
			Background(lipgloss.Color("39")).
			Padding(0, 1)

	participantStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("245"))

	phaseStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	cardBorderStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)

	cardFocusedStyle = cardBorderStyle.Copy().
				BorderForeground(lipgloss.Color("39"))

	cardTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("141"))

	cardTimingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("242"))

	thinkingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("242")).
			Italic(true)

	statusNoteStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	personaStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("82"))

	footerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("242"))

	inputBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), true, false, false, false).
			BorderForeground(lipgloss.Color("240"))
)
