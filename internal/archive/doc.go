// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package archive provides a searchable SQLite mirror of saved
// transcripts with full-text search over entry content.
//
// The archive lives at ~/.shipctl/archive.db and is kept in sync with
// the on-disk transcript store. FTS5 triggers maintain the search
// index as entries are inserted and removed.
//
// # Key Types
//
//   - Archive: SQLite-backed transcript index
//   - SearchResult: a matching entry with transcript context
//   - ArchivedMeta: a listing row for recent transcripts
//
// # Usage
//
//	arc, err := archive.Open(dbPath)
//	if err != nil {
//	    return err
//	}
//	defer arc.Close()
//
//	arc.IndexTranscript(tr)
//	results, err := arc.Search("goroutine leak", 10)
package archive
