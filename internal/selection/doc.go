// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package selection ranks candidate models for auto-selected roles such
// as the roundtable orchestrator and council chairman.
//
// # Ordering
//
// Models that recently hit a provider rate limit sort behind everything
// else for a fixed cooldown (60s), but are never excluded. Among healthy
// models the most recently successful model leads, then ascending
// priority, with self-hosted models winning ties against cloud types.
//
// Priorities come from the catalog when set explicitly, otherwise from
// built-in per-type substring tables, otherwise from a per-type default
// that prefers self-hosted over GitHub Models over external APIs.
//
// # Key Types
//
//   - Ranker: records rate limits and successes, sorts model lists.
//
// # Usage
//
//	r := selection.NewRanker()
//	r.RecordSuccess("qwen2.5:7b")
//	orchestrator, ok := r.PickOrchestrator(catalog)
package selection
