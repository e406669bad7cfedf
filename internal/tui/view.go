// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// view.go - Rendering for the playground TUI.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/jeranaias/shipctl-tui/internal/model"
)

const (
	headerHeight = 2
	inputHeight  = 3

	// minCardWidth keeps cards readable; below it the grid wraps rows.
	minCardWidth = 32
)

func footerHeight(showHelp bool) int {
	if showHelp {
		return 4
	}
	return 1
}

// View implements tea.Model.
func (m Model) View() string {
	if m.width == 0 {
		return "loading..."
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.viewport.View())
	b.WriteString("\n")
	b.WriteString(m.renderInput())
	b.WriteString("\n")
	b.WriteString(m.renderFooter())
	return b.String()
}

// =============================================================================
// HEADER
// =============================================================================

func (m Model) renderHeader() string {
	badge := modeBadgeStyle.Render(" " + strings.ToUpper(m.ctl.Mode().String()) + " ")
	title := headerStyle.Render("shipctl playground")

	participants := participantStyle.Render(strings.Join(m.ctl.Participants(), ", "))

	left := lipgloss.JoinHorizontal(lipgloss.Center, title, "  ", badge, "  ", participants)

	var right string
	if m.state == StateStreaming {
		right = m.spinner.View() + " " + phaseStyle.Render(m.phaseLabel())
	}

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}
	return left + strings.Repeat(" ", gap) + right + "\n" +
		footerStyle.Render(strings.Repeat("─", m.width))
}

// phaseLabel describes the in-flight stage for multi-stage modes.
func (m Model) phaseLabel() string {
	phase := m.ctl.Phase()
	if phase == "" {
		return "generating"
	}
	if speaking := m.ctl.Speaking(); len(speaking) > 0 {
		return phase + ": " + strings.Join(speaking, ", ")
	}
	return phase
}

// =============================================================================
// CARD GRID
// =============================================================================

// renderCards lays the participant cards out in rows. Cards split the
// width evenly until they would drop under minCardWidth, then wrap.
func (m Model) renderCards() string {
	cards := m.ctl.Cards()
	if len(cards) == 0 {
		return footerStyle.Render("no participants selected")
	}

	perRow := m.width / (minCardWidth + 2)
	if perRow < 1 {
		perRow = 1
	}
	if perRow > len(cards) {
		perRow = len(cards)
	}
	cardWidth := m.width/perRow - 4
	if cardWidth < minCardWidth-4 {
		cardWidth = minCardWidth - 4
	}

	var rows []string
	for start := 0; start < len(cards); start += perRow {
		end := start + perRow
		if end > len(cards) {
			end = len(cards)
		}
		var rendered []string
		for i := start; i < end; i++ {
			rendered = append(rendered, m.renderCard(cards[i], i, cardWidth))
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, rendered...))
	}

	out := lipgloss.JoinVertical(lipgloss.Left, rows...)

	if section := m.renderRankings(); section != "" {
		out += "\n" + section
	}
	return out
}

func (m Model) renderCard(c model.Card, index, width int) string {
	var b strings.Builder

	title := cardTitleStyle.Render(truncateLine(c.Model.Name, width))
	b.WriteString(title)

	if c.State.PersonaName != "" {
		persona := fmt.Sprintf("%s %s (%s)", c.State.PersonaEmoji, c.State.PersonaName, c.State.PersonaTrait)
		b.WriteString("\n" + personaStyle.Render(truncateLine(persona, width)))
	}

	if t, ok := m.ctl.Timing(c.Model.ID); ok && t.Ended() {
		b.WriteString("\n" + cardTimingStyle.Render(fmt.Sprintf("%.1fs", float64(t.EndMs-t.StartMs)/1000)))
	}

	b.WriteString("\n")

	switch {
	case c.State.Failed():
		b.WriteString(errorStyle.Render("[ERROR] ") + wrap(c.State.Err, width))
	default:
		if m.showThinking && c.State.Thinking != "" {
			b.WriteString(thinkingStyle.Render(wrap(c.State.Thinking, width)))
			b.WriteString("\n\n")
		}
		b.WriteString(wrap(c.State.Response, width))
	}

	if c.State.StatusMessage != "" {
		b.WriteString("\n" + statusNoteStyle.Render(truncateLine(c.State.StatusMessage, width)))
	}

	style := cardBorderStyle
	if index == m.focused {
		style = cardFocusedStyle
	}
	return style.Width(width + 2).Render(b.String())
}

// renderRankings shows the aggregated council peer rankings once votes
// exist for the round.
func (m Model) renderRankings() string {
	rankings := m.ctl.Rankings()
	if len(rankings) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(cardTitleStyle.Render("Peer Rankings"))
	for i, r := range rankings {
		b.WriteString(fmt.Sprintf("\n  %d. %-28s avg %.2f (%d votes)", i+1, r.ModelName, r.AverageRank, r.VotesCount))
	}
	return b.String()
}

// =============================================================================
// INPUT + FOOTER
// =============================================================================

func (m Model) renderInput() string {
	return inputBoxStyle.Width(m.width - 2).Render(m.input.View())
}

func (m Model) renderFooter() string {
	if m.statusLine != "" {
		return m.statusLine
	}
	if m.showHelp {
		lines := []string{
			"enter submit · esc stop · tab cycle mode · ctrl+c quit",
			"←/→ focus card · ctrl+x drop focused model · ctrl+t thinking",
			"ctrl+l clear history · ctrl+s save transcript · ctrl+h close help",
		}
		return footerStyle.Render(strings.Join(lines, "\n"))
	}
	return footerStyle.Render("ctrl+h help · tab mode · enter send")
}

// =============================================================================
// TEXT HELPERS
// =============================================================================

// truncateLine caps a single line at the given display width.
func truncateLine(s string, width int) string {
	if width <= 0 {
		return ""
	}
	return runewidth.Truncate(s, width, "…")
}

// wrap performs word wrapping at the given display width.
func wrap(text string, width int) string {
	if width <= 0 || text == "" {
		return text
	}
	var out []string
	for _, line := range strings.Split(text, "\n") {
		out = append(out, wrapLine(line, width)...)
	}
	return strings.Join(out, "\n")
}

func wrapLine(line string, width int) []string {
	words := strings.Fields(line)
	if len(words) == 0 {
		return []string{""}
	}
	var (
		lines []string
		cur   string
	)
	for _, word := range words {
		if cur == "" {
			cur = word
			continue
		}
		if runewidth.StringWidth(cur)+1+runewidth.StringWidth(word) <= width {
			cur += " " + word
		} else {
			lines = append(lines, cur)
			cur = word
		}
	}
	lines = append(lines, cur)
	return lines
}
