// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import "fmt"

// Mode selects which orchestration protocol a session runs and which
// history carryover rule applies when switching into it.
type Mode int

const (
	// ModeChat is a plain single-stream conversation.
	ModeChat Mode = iota
	// ModeCompare runs all participants in parallel against one chat stream.
	ModeCompare
	// ModeCouncil runs three stages: responses, anonymous review, synthesis.
	ModeCouncil
	// ModeRoundtable runs moderator-led sequential turns.
	ModeRoundtable
	// ModePersonality runs parallel generation decorated with personas.
	ModePersonality
)

// String returns the wire/config name of the mode.
func (m Mode) String() string {
	switch m {
	case ModeChat:
		return "chat"
	case ModeCompare:
		return "compare"
	case ModeCouncil:
		return "council"
	case ModeRoundtable:
		return "roundtable"
	case ModePersonality:
		return "personality"
	default:
		return "unknown"
	}
}

// ParseMode converts a mode name to a Mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "chat":
		return ModeChat, nil
	case "compare":
		return ModeCompare, nil
	case "council":
		return ModeCouncil, nil
	case "roundtable":
		return ModeRoundtable, nil
	case "personality":
		return ModePersonality, nil
	default:
		return ModeChat, fmt.Errorf("unknown mode: %q", s)
	}
}

// MinParticipants returns the minimum participant count the mode's
// protocol requires. Council and roundtable need at least two models to
// deliberate; the other modes work with one.
func (m Mode) MinParticipants() int {
	switch m {
	case ModeCouncil, ModeRoundtable:
		return 2
	default:
		return 1
	}
}
