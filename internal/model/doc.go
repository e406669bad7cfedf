// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the playground's model catalog and per-session
// model state.
//
// A Model describes one queryable LLM endpoint (self-hosted, GitHub Models,
// or external API). The Store indexes models by id and owns the mutable
// per-session state: accumulated response and thinking text, terminal
// errors, transient status notes, and persona decorations. The TimingBoard
// tracks per-model start / first-token / end times for the active round.
//
// # Key Types
//
//   - Model, ModelType: immutable catalog entry
//   - SessionState: mutable per-round fields (response, thinking, error)
//   - Store: indexed registry with update-by-id operations
//   - TimingBoard, ExecutionTime: per-model round timing
//   - Mode: which orchestration protocol a session runs
package model
