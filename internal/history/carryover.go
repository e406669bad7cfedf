// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package history

import "github.com/jeranaias/shipctl-tui/internal/model"

// BuildCarryover reduces a transcript for continuation in targetMode after
// a mode switch.
//
// Compare wants raw history, so switching into it passes the full entry
// list unmodified. Every other target mode keeps all user entries plus only
// the most recent synthesis-kind assistant entry: the intermediate per-model
// turns, rankings, and asides are deliberately dropped so cross-mode context
// stays focused on conclusions rather than raw deliberation.
func BuildCarryover(entries []Entry, targetMode model.Mode) []Entry {
	if targetMode == model.ModeCompare {
		out := make([]Entry, len(entries))
		copy(out, entries)
		return out
	}

	lastSynthesis := -1
	for i, e := range entries {
		if e.Role == RoleAssistant && e.Kind.IsSynthesis() {
			lastSynthesis = i
		}
	}

	out := make([]Entry, 0, len(entries))
	for i, e := range entries {
		if e.Role == RoleUser || i == lastSynthesis {
			out = append(out, e)
		}
	}
	return out
}
