// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides session transcript persistence for shipctl.
//
// This package handles saving and loading session transcripts to/from
// disk, with support for search, listing, and pruning.
//
// # Key Types
//
//   - TranscriptStore: Main storage interface for transcripts
//   - Transcript: Serializable session with ledger entries and timings
//   - TranscriptMeta: Lightweight metadata for listing
//
// # Usage
//
// Create a store and save a transcript:
//
//	store, err := storage.NewTranscriptStore()
//	id, err := store.Save(transcript)
//
// List and load transcripts:
//
//	metas, err := store.List()
//	tr, err := store.Load(metas[0].ID)
//
// Search transcripts:
//
//	results, err := store.Search("query text")
//
// # Storage Location
//
// Transcripts are stored in ~/.shipctl/transcripts/ as JSON files.
package storage
