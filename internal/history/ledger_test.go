// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package history

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/shipctl-tui/internal/model"
)

func TestLedgerPushAppendsInOrder(t *testing.T) {
	l := NewLedger()
	e1 := UserEntry("first")
	e2 := AssistantEntry(KindCouncilTurn, "second")

	l.Push(e1, e2)

	entries := l.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, e1, entries[0])
	assert.Equal(t, e2, entries[1])
}

func TestLedgerPushEmptyIsNoop(t *testing.T) {
	l := NewLedger()
	l.Push(UserEntry("x"))

	l.Push()

	assert.Equal(t, 1, l.Len(), "pushing nothing must not change length")
}

func TestLedgerClear(t *testing.T) {
	l := NewLedger()
	l.Push(UserEntry("a"), AssistantEntry(KindCompareSummary, "b"))

	l.Clear()

	assert.Equal(t, 0, l.Len())
}

func TestLedgerEntriesReturnsCopy(t *testing.T) {
	l := NewLedger()
	l.Push(UserEntry("a"))

	entries := l.Entries()
	entries[0].Content = "mutated"

	assert.Equal(t, "a", l.Entries()[0].Content, "callers must not be able to mutate the ledger")
}

func TestToText(t *testing.T) {
	entries := []Entry{
		UserEntry("hello"),
		AssistantEntry(KindCouncilSynthesis, "hi there"),
	}

	got := ToText(entries)
	want := "User: hello\n\nAssistant: hi there"
	assert.Equal(t, want, got)
}

func TestToTextEmpty(t *testing.T) {
	assert.Equal(t, "", ToText(nil))
}

func TestBuildCarryoverCompareKeepsEverything(t *testing.T) {
	entries := []Entry{
		UserEntry("A"),
		UserEntry("B"),
		AssistantEntry(KindCouncilTurn, "X"),
		AssistantEntry(KindCouncilSynthesis, "Y"),
	}

	got := BuildCarryover(entries, model.ModeCompare)

	assert.Equal(t, entries, got, "compare carryover must be the unmodified list")
}

func TestBuildCarryoverReducesToSynthesis(t *testing.T) {
	entries := []Entry{
		UserEntry("A"),
		UserEntry("B"),
		AssistantEntry(KindCouncilTurn, "X"),
		AssistantEntry(KindCouncilSynthesis, "Y"),
	}

	got := BuildCarryover(entries, model.ModeRoundtable)

	require.Len(t, got, 3)
	assert.Equal(t, "A", got[0].Content)
	assert.Equal(t, "B", got[1].Content)
	assert.Equal(t, "Y", got[2].Content)
	assert.Equal(t, KindCouncilSynthesis, got[2].Kind)
}

func TestBuildCarryoverKeepsOnlyMostRecentSynthesis(t *testing.T) {
	entries := []Entry{
		UserEntry("q1"),
		AssistantEntry(KindCouncilSynthesis, "old synthesis"),
		UserEntry("q2"),
		AssistantEntry(KindRoundtableSynthesis, "new synthesis"),
		AssistantEntry(KindRoundtableTurn, "turn noise"),
	}

	got := BuildCarryover(entries, model.ModeChat)

	require.Len(t, got, 3)
	assert.Equal(t, "new synthesis", got[2].Content)
}

func TestBuildCarryoverNoSynthesisKeepsUsersOnly(t *testing.T) {
	entries := []Entry{
		UserEntry("A"),
		AssistantEntry(KindCouncilRanking, "1. x"),
		AssistantEntry(KindCouncilChairman, "quip"),
	}

	got := BuildCarryover(entries, model.ModeCouncil)

	require.Len(t, got, 1)
	assert.Equal(t, RoleUser, got[0].Role)
}
