// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package archive

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/shipctl-tui/internal/history"
	"github.com/jeranaias/shipctl-tui/internal/storage"
)

func newTestArchive(t *testing.T) *Archive {
	t.Helper()
	arc, err := Open(filepath.Join(t.TempDir(), "archive.db"))
	require.NoError(t, err)
	t.Cleanup(func() { arc.Close() })
	return arc
}

func sampleTranscript(id, title string, entries ...history.Entry) *storage.Transcript {
	now := time.Now()
	return &storage.Transcript{
		ID:           id,
		Title:        title,
		Mode:         "chat",
		Participants: []string{"qwen3-coder"},
		CreatedAt:    now,
		UpdatedAt:    now,
		Entries:      entries,
	}
}

func TestIndexAndSearch(t *testing.T) {
	arc := newTestArchive(t)

	tr := sampleTranscript("t-1", "debugging session",
		history.UserEntry("my program has a goroutine leak"),
		history.AssistantEntry("", "check for channels that are never closed"),
	)
	require.NoError(t, arc.IndexTranscript(tr))

	results, err := arc.Search("goroutine", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)

	assert.Equal(t, "t-1", results[0].TranscriptID)
	assert.Equal(t, "debugging session", results[0].Title)
	assert.Equal(t, history.RoleUser, results[0].Role)
	assert.Contains(t, results[0].Snippet, "goroutine")
}

func TestSearchPrefixMatch(t *testing.T) {
	arc := newTestArchive(t)

	tr := sampleTranscript("t-1", "sorting",
		history.UserEntry("explain quicksort partitioning"),
	)
	require.NoError(t, arc.IndexTranscript(tr))

	results, err := arc.Search("quick", 10)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestSearchSpecialCharacters(t *testing.T) {
	arc := newTestArchive(t)

	tr := sampleTranscript("t-1", "syntax",
		history.UserEntry(`what does "defer" do in go`),
	)
	require.NoError(t, arc.IndexTranscript(tr))

	// Quotes and FTS operators in the query must not break the match.
	results, err := arc.Search(`"defer" AND (go)`, 10)
	require.NoError(t, err)
	assert.NotEmpty(t, results)
}

func TestSearchEmptyQuery(t *testing.T) {
	arc := newTestArchive(t)

	_, err := arc.Search("   ", 10)
	assert.ErrorIs(t, err, ErrEmptyQuery)
}

func TestReindexReplacesEntries(t *testing.T) {
	arc := newTestArchive(t)

	tr := sampleTranscript("t-1", "first",
		history.UserEntry("original question about parsers"),
	)
	require.NoError(t, arc.IndexTranscript(tr))

	tr.Title = "second"
	tr.Entries = []history.Entry{history.UserEntry("replacement question about lexers")}
	require.NoError(t, arc.IndexTranscript(tr))

	// Old content is gone from the index.
	results, err := arc.Search("parsers", 10)
	require.NoError(t, err)
	assert.Empty(t, results)

	results, err = arc.Search("lexers", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "second", results[0].Title)

	transcripts, entries, err := arc.Stats()
	require.NoError(t, err)
	assert.Equal(t, 1, transcripts)
	assert.Equal(t, 1, entries)
}

func TestRemoveCascades(t *testing.T) {
	arc := newTestArchive(t)

	tr := sampleTranscript("t-1", "doomed",
		history.UserEntry("ephemeral content here"),
	)
	require.NoError(t, arc.IndexTranscript(tr))
	require.NoError(t, arc.Remove("t-1"))

	results, err := arc.Search("ephemeral", 10)
	require.NoError(t, err)
	assert.Empty(t, results)

	transcripts, entries, err := arc.Stats()
	require.NoError(t, err)
	assert.Equal(t, 0, transcripts)
	assert.Equal(t, 0, entries)

	assert.ErrorIs(t, arc.Remove("t-1"), ErrNotArchived)
}

func TestRecentOrdersByUpdate(t *testing.T) {
	arc := newTestArchive(t)

	old := sampleTranscript("t-old", "older", history.UserEntry("a"))
	old.UpdatedAt = time.Now().Add(-time.Hour)
	require.NoError(t, arc.IndexTranscript(old))

	fresh := sampleTranscript("t-new", "newer", history.UserEntry("b"))
	require.NoError(t, arc.IndexTranscript(fresh))

	metas, err := arc.Recent(10)
	require.NoError(t, err)
	require.Len(t, metas, 2)
	assert.Equal(t, "t-new", metas[0].ID)
	assert.Equal(t, "t-old", metas[1].ID)
}

func TestSyncFromStore(t *testing.T) {
	arc := newTestArchive(t)

	store, err := storage.NewTranscriptStoreWithDir(t.TempDir())
	require.NoError(t, err)
	tr := sampleTranscript("", "", history.UserEntry("sync me into the index"))
	_, err = store.Save(tr)
	require.NoError(t, err)

	n, err := arc.Sync(store)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	results, err := arc.Search("sync", 10)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}
