// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package archive

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/jeranaias/shipctl-tui/internal/history"
	"github.com/jeranaias/shipctl-tui/internal/storage"
)

// =============================================================================
// SCHEMA
// =============================================================================

// SchemaVersion tracks the database schema version for migrations.
const SchemaVersion = 1

// Schema is the SQLite schema for the transcript archive with FTS.
const Schema = `
CREATE TABLE IF NOT EXISTS metadata (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL
) WITHOUT ROWID;

-- Transcripts table: one row per archived session
CREATE TABLE IF NOT EXISTS transcripts (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    mode TEXT NOT NULL,
    participants TEXT,          -- JSON array of model ids
    created_at INTEGER NOT NULL, -- Unix timestamp
    updated_at INTEGER NOT NULL,
    entry_count INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_transcripts_updated ON transcripts(updated_at);
CREATE INDEX IF NOT EXISTS idx_transcripts_mode ON transcripts(mode);

-- Entries table: ledger lines per transcript
CREATE TABLE IF NOT EXISTS entries (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    transcript_id TEXT NOT NULL,
    seq INTEGER NOT NULL,
    role TEXT NOT NULL,
    kind TEXT,
    content TEXT NOT NULL,
    FOREIGN KEY(transcript_id) REFERENCES transcripts(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_entries_transcript ON entries(transcript_id);

-- Full-text search over entry content
CREATE VIRTUAL TABLE IF NOT EXISTS entries_fts USING fts5(
    content,
    content='entries',
    content_rowid='id',
    tokenize='porter unicode61'
);

CREATE TRIGGER IF NOT EXISTS entries_ai AFTER INSERT ON entries BEGIN
    INSERT INTO entries_fts(rowid, content) VALUES (new.id, new.content);
END;

CREATE TRIGGER IF NOT EXISTS entries_ad AFTER DELETE ON entries BEGIN
    INSERT INTO entries_fts(entries_fts, rowid, content) VALUES ('delete', old.id, old.content);
END;
`

// initMetadata seeds the metadata table.
const initMetadata = `
INSERT OR IGNORE INTO metadata (key, value) VALUES ('schema_version', '1');
INSERT OR IGNORE INTO metadata (key, value) VALUES ('created_at', strftime('%s', 'now'));
`

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrEmptyQuery indicates a blank search query.
	ErrEmptyQuery = errors.New("search query is empty")

	// ErrNotArchived indicates the transcript is not in the archive.
	ErrNotArchived = errors.New("transcript not archived")
)

// =============================================================================
// ARCHIVE
// =============================================================================

// Archive is a searchable SQLite mirror of saved transcripts.
type Archive struct {
	db   *sql.DB
	path string
}

// DefaultPath returns the archive database path under the config dir.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".shipctl", "archive.db"), nil
}

// Open opens (or creates) the archive database at dbPath.
func Open(dbPath string) (*Archive, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create archive directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive database: %w", err)
	}

	// SQLite allows one writer; keep the pool at a single connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA temp_store=MEMORY",
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	if _, err := db.Exec(initMetadata); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize metadata: %w", err)
	}

	return &Archive{db: db, path: dbPath}, nil
}

// Close closes the archive database.
func (a *Archive) Close() error {
	return a.db.Close()
}

// =============================================================================
// INDEXING
// =============================================================================

// IndexTranscript inserts or replaces a transcript and its entries.
func (a *Archive) IndexTranscript(tr *storage.Transcript) error {
	if tr == nil || tr.ID == "" {
		return errors.New("transcript has no id")
	}

	participants, err := json.Marshal(tr.Participants)
	if err != nil {
		return err
	}

	tx, err := a.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// Replacing entries first keeps the FTS triggers in sync.
	if _, err := tx.Exec("DELETE FROM entries WHERE transcript_id = ?", tr.ID); err != nil {
		return err
	}

	_, err = tx.Exec(`
		INSERT INTO transcripts (id, title, mode, participants, created_at, updated_at, entry_count)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			mode = excluded.mode,
			participants = excluded.participants,
			updated_at = excluded.updated_at,
			entry_count = excluded.entry_count
	`, tr.ID, tr.Title, tr.Mode, string(participants),
		tr.CreatedAt.Unix(), tr.UpdatedAt.Unix(), len(tr.Entries))
	if err != nil {
		return err
	}

	stmt, err := tx.Prepare(`
		INSERT INTO entries (transcript_id, seq, role, kind, content)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for seq, entry := range tr.Entries {
		if _, err := stmt.Exec(tr.ID, seq, string(entry.Role), string(entry.Kind), entry.Content); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Remove deletes a transcript from the archive.
func (a *Archive) Remove(id string) error {
	res, err := a.db.Exec("DELETE FROM transcripts WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotArchived
	}
	return nil
}

// =============================================================================
// SEARCH
// =============================================================================

// SearchResult is one matching entry with its transcript context.
type SearchResult struct {
	TranscriptID string
	Title        string
	Mode         string
	Seq          int
	Role         history.Role
	Kind         history.Kind
	Snippet      string
	UpdatedAt    time.Time
}

// Search runs a full-text query over entry content, most relevant
// first. limit <= 0 means a default of 20 results.
func (a *Archive) Search(query string, limit int) ([]SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	if limit <= 0 {
		limit = 20
	}

	rows, err := a.db.Query(`
		SELECT t.id, t.title, t.mode, e.seq, e.role, e.kind,
		       snippet(entries_fts, 0, '[', ']', '…', 12),
		       t.updated_at
		FROM entries_fts fts
		JOIN entries e ON e.id = fts.rowid
		JOIN transcripts t ON t.id = e.transcript_id
		WHERE entries_fts MATCH ?
		ORDER BY rank
		LIMIT ?
	`, buildFTSQuery(query), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []SearchResult
	for rows.Next() {
		var r SearchResult
		var role, kind string
		var updated int64
		if err := rows.Scan(&r.TranscriptID, &r.Title, &r.Mode, &r.Seq, &role, &kind, &r.Snippet, &updated); err != nil {
			return nil, err
		}
		r.Role = history.Role(role)
		r.Kind = history.Kind(kind)
		r.UpdatedAt = time.Unix(updated, 0)
		results = append(results, r)
	}
	return results, rows.Err()
}

// buildFTSQuery turns user input into a safe FTS5 query: each token is
// quoted and prefix-matched.
func buildFTSQuery(query string) string {
	fields := strings.Fields(query)
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.ReplaceAll(f, `"`, `""`)
		tokens = append(tokens, `"`+f+`"*`)
	}
	return strings.Join(tokens, " ")
}

// =============================================================================
// LISTING & STATS
// =============================================================================

// ArchivedMeta is one archive listing row.
type ArchivedMeta struct {
	ID         string
	Title      string
	Mode       string
	EntryCount int
	UpdatedAt  time.Time
}

// Recent lists archived transcripts, most recently updated first.
func (a *Archive) Recent(limit int) ([]ArchivedMeta, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := a.db.Query(`
		SELECT id, title, mode, entry_count, updated_at
		FROM transcripts
		ORDER BY updated_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var metas []ArchivedMeta
	for rows.Next() {
		var m ArchivedMeta
		var updated int64
		if err := rows.Scan(&m.ID, &m.Title, &m.Mode, &m.EntryCount, &updated); err != nil {
			return nil, err
		}
		m.UpdatedAt = time.Unix(updated, 0)
		metas = append(metas, m)
	}
	return metas, rows.Err()
}

// Stats reports transcript and entry counts.
func (a *Archive) Stats() (transcripts, entries int, err error) {
	if err := a.db.QueryRow("SELECT COUNT(*) FROM transcripts").Scan(&transcripts); err != nil {
		return 0, 0, err
	}
	if err := a.db.QueryRow("SELECT COUNT(*) FROM entries").Scan(&entries); err != nil {
		return 0, 0, err
	}
	return transcripts, entries, nil
}

// Sync mirrors every transcript in the store into the archive.
func (a *Archive) Sync(store *storage.TranscriptStore) (int, error) {
	metas, err := store.List()
	if err != nil {
		return 0, err
	}

	indexed := 0
	for _, meta := range metas {
		tr, err := store.Load(meta.ID)
		if err != nil {
			continue
		}
		if err := a.IndexTranscript(tr); err != nil {
			return indexed, err
		}
		indexed++
	}
	return indexed, nil
}
