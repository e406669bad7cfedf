// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides session transcript persistence for shipctl.
package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jeranaias/shipctl-tui/internal/history"
	"github.com/jeranaias/shipctl-tui/internal/util"
)

// =============================================================================
// TRANSCRIPT TYPES
// =============================================================================

// Transcript is a persisted multi-model session.
type Transcript struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Mode         string    `json:"mode"`
	Participants []string  `json:"participants,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	// Entries is the session ledger in order.
	Entries []history.Entry `json:"entries"`

	// Timings holds per-model generation durations in milliseconds.
	Timings map[string]int64 `json:"timings,omitempty"`
}

// TranscriptMeta contains metadata for listing transcripts.
type TranscriptMeta struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Mode         string    `json:"mode"`
	Participants []string  `json:"participants,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	EntryCount   int       `json:"entry_count"`
	Preview      string    `json:"preview"`
}

// =============================================================================
// TRANSCRIPT STORE
// =============================================================================

// TranscriptStore handles transcript persistence.
type TranscriptStore struct {
	// BaseDir is the directory for storing transcripts.
	// Default: ~/.shipctl/transcripts/
	BaseDir string

	// MaxTranscripts limits stored transcripts (0 = unlimited).
	MaxTranscripts int
}

// NewTranscriptStore creates a store rooted at the default directory.
func NewTranscriptStore() (*TranscriptStore, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	return NewTranscriptStoreWithDir(filepath.Join(homeDir, ".shipctl", "transcripts"))
}

// NewTranscriptStoreWithDir creates a store with a custom directory.
func NewTranscriptStoreWithDir(baseDir string) (*TranscriptStore, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, err
	}
	return &TranscriptStore{
		BaseDir:        baseDir,
		MaxTranscripts: 200,
	}, nil
}

// =============================================================================
// SAVE OPERATIONS
// =============================================================================

// Save persists a transcript and returns its ID.
func (s *TranscriptStore) Save(tr *Transcript) (string, error) {
	if tr.ID == "" {
		tr.ID = uuid.NewString()
	}
	if tr.Title == "" {
		tr.Title = s.generateTitle(tr)
	}

	tr.UpdatedAt = time.Now()
	if tr.CreatedAt.IsZero() {
		tr.CreatedAt = tr.UpdatedAt
	}

	data, err := json.MarshalIndent(tr, "", "  ")
	if err != nil {
		return "", err
	}

	if err := util.AtomicWriteFile(s.filePath(tr.ID), data, 0644); err != nil {
		return "", err
	}

	if s.MaxTranscripts > 0 {
		s.enforceLimit()
	}
	return tr.ID, nil
}

// generateTitle derives a title from the first user entry.
func (s *TranscriptStore) generateTitle(tr *Transcript) string {
	for _, entry := range tr.Entries {
		if entry.Role == history.RoleUser && entry.Content != "" {
			title := strings.ReplaceAll(entry.Content, "\n", " ")
			title = strings.ReplaceAll(title, "\r", "")
			return truncateTitle(title, 50)
		}
	}
	return "New session"
}

// enforceLimit removes the oldest transcripts when over the cap.
func (s *TranscriptStore) enforceLimit() {
	metas, err := s.List()
	if err != nil || len(metas) <= s.MaxTranscripts {
		return
	}

	sort.Slice(metas, func(i, j int) bool {
		return metas[i].UpdatedAt.Before(metas[j].UpdatedAt)
	})
	for i := 0; i < len(metas)-s.MaxTranscripts; i++ {
		s.Delete(metas[i].ID)
	}
}

// =============================================================================
// LOAD OPERATIONS
// =============================================================================

// Load retrieves a transcript by ID.
func (s *TranscriptStore) Load(id string) (*Transcript, error) {
	data, err := os.ReadFile(s.filePath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrTranscriptNotFound
		}
		return nil, err
	}

	var tr Transcript
	if err := json.Unmarshal(data, &tr); err != nil {
		return nil, err
	}
	return &tr, nil
}

// LoadByIndex loads a transcript by list position (0 = most recent).
func (s *TranscriptStore) LoadByIndex(index int) (*Transcript, error) {
	metas, err := s.List()
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(metas) {
		return nil, ErrTranscriptNotFound
	}
	return s.Load(metas[index].ID)
}

// =============================================================================
// LIST OPERATIONS
// =============================================================================

// List returns all saved transcripts, most recent first.
func (s *TranscriptStore) List() ([]TranscriptMeta, error) {
	entries, err := os.ReadDir(s.BaseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []TranscriptMeta{}, nil
		}
		return nil, err
	}

	var metas []TranscriptMeta
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		id := strings.TrimSuffix(entry.Name(), ".json")
		tr, err := s.Load(id)
		if err != nil {
			// Corrupted files are skipped, not fatal.
			continue
		}

		metas = append(metas, TranscriptMeta{
			ID:           tr.ID,
			Title:        tr.Title,
			Mode:         tr.Mode,
			Participants: tr.Participants,
			CreatedAt:    tr.CreatedAt,
			UpdatedAt:    tr.UpdatedAt,
			EntryCount:   len(tr.Entries),
			Preview:      tr.Preview(),
		})
	}

	sort.Slice(metas, func(i, j int) bool {
		return metas[i].UpdatedAt.After(metas[j].UpdatedAt)
	})
	return metas, nil
}

// Search finds transcripts whose title or preview matches the query.
func (s *TranscriptStore) Search(query string) ([]TranscriptMeta, error) {
	all, err := s.List()
	if err != nil {
		return nil, err
	}

	query = strings.ToLower(query)
	var results []TranscriptMeta
	for _, meta := range all {
		if strings.Contains(strings.ToLower(meta.Title), query) ||
			strings.Contains(strings.ToLower(meta.Preview), query) {
			results = append(results, meta)
		}
	}
	return results, nil
}

// SearchEntries searches transcripts by entry content.
func (s *TranscriptStore) SearchEntries(query string) ([]TranscriptMeta, error) {
	if query == "" {
		return s.List()
	}

	query = strings.ToLower(query)
	all, err := s.List()
	if err != nil {
		return nil, err
	}

	var results []TranscriptMeta
	for _, meta := range all {
		tr, err := s.Load(meta.ID)
		if err != nil {
			continue
		}
		for _, entry := range tr.Entries {
			if strings.Contains(strings.ToLower(entry.Content), query) {
				results = append(results, meta)
				break
			}
		}
	}
	return results, nil
}

// =============================================================================
// DELETE OPERATIONS
// =============================================================================

// Delete removes a transcript by ID.
func (s *TranscriptStore) Delete(id string) error {
	if err := os.Remove(s.filePath(id)); err != nil {
		if os.IsNotExist(err) {
			return ErrTranscriptNotFound
		}
		return err
	}
	return nil
}

// Clear removes all saved transcripts.
func (s *TranscriptStore) Clear() error {
	entries, err := os.ReadDir(s.BaseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".json") {
			os.Remove(filepath.Join(s.BaseDir, entry.Name()))
		}
	}
	return nil
}

// =============================================================================
// HELPERS
// =============================================================================

func (s *TranscriptStore) filePath(id string) string {
	return filepath.Join(s.BaseDir, id+".json")
}

// truncateTitle truncates rune-wise, adding "..." when shortened.
func truncateTitle(s string, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}

// =============================================================================
// ERRORS
// =============================================================================

// ErrTranscriptNotFound is returned when a transcript doesn't exist.
// Use errors.Is(err, ErrTranscriptNotFound) to check for this error.
var ErrTranscriptNotFound = &TranscriptError{Message: "transcript not found"}

// TranscriptError represents a transcript-related error.
type TranscriptError struct {
	Message string
}

func (e *TranscriptError) Error() string {
	return e.Message
}

// Is implements errors.Is support for comparing transcript errors.
func (e *TranscriptError) Is(target error) bool {
	t, ok := target.(*TranscriptError)
	if !ok {
		return false
	}
	return e.Message == t.Message
}

// =============================================================================
// TRANSCRIPT FORMATTING
// =============================================================================

// FormatTranscriptList formats transcripts for display in a table.
func FormatTranscriptList(metas []TranscriptMeta) string {
	if len(metas) == 0 {
		return "No transcripts found."
	}

	var sb strings.Builder
	sb.WriteString("Transcripts:\n")
	sb.WriteString("------------------------------------------------------------------\n")
	sb.WriteString(formatPadded("ID", 10) + " " + formatPadded("Mode", 12) + " " +
		formatPadded("Updated", 17) + " " + formatPadded("Entries", 8) + " Preview\n")
	sb.WriteString("------------------------------------------------------------------\n")

	for _, m := range metas {
		id := m.ID
		if len(id) > 8 {
			id = id[:8]
		}
		sb.WriteString(formatPadded(id, 10) + " " +
			formatPadded(m.Mode, 12) + " " +
			formatPadded(m.UpdatedAt.Format("2006-01-02 15:04"), 17) + " " +
			formatPadded(util.IntToStr(m.EntryCount), 8) + " " +
			truncateTitle(m.Preview, 26) + "\n")
	}
	return sb.String()
}

func formatPadded(s string, width int) string {
	runes := []rune(s)
	if len(runes) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(runes))
}

// =============================================================================
// TRANSCRIPT EXPORT
// =============================================================================

// ExportMarkdown renders the transcript as Markdown with metadata,
// timestamps, and role labels.
func (t *Transcript) ExportMarkdown() string {
	var sb strings.Builder
	sb.WriteString("# " + t.Title + "\n\n")
	sb.WriteString("Mode: " + t.Mode + "\n")
	if len(t.Participants) > 0 {
		sb.WriteString("Participants: " + strings.Join(t.Participants, ", ") + "\n")
	}
	sb.WriteString("Created: " + t.CreatedAt.Format(time.RFC3339) + "\n\n")
	sb.WriteString("---\n\n")

	for _, entry := range t.Entries {
		label := "**User**"
		if entry.Role == history.RoleAssistant {
			label = "**Assistant**"
			if entry.Kind != "" {
				label = "**Assistant** (" + string(entry.Kind) + ")"
			}
		}
		sb.WriteString(label + ":\n\n")
		sb.WriteString(entry.Content)
		sb.WriteString("\n\n---\n\n")
	}
	return sb.String()
}

// ExportJSON renders the transcript as pretty-printed JSON.
func (t *Transcript) ExportJSON() ([]byte, error) {
	return json.MarshalIndent(t, "", "  ")
}

// Preview returns a short excerpt from the first user entry.
func (t *Transcript) Preview() string {
	for _, entry := range t.Entries {
		if entry.Role == history.RoleUser && entry.Content != "" {
			return truncateTitle(entry.Content, 80)
		}
	}
	return ""
}

// EntryCount returns the number of ledger entries.
func (t *Transcript) EntryCount() int {
	return len(t.Entries)
}
