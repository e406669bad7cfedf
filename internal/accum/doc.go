// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package accum batches per-model streaming text deltas.
//
// Token events arrive faster than the display layer can usefully consume
// them. The Accumulator queues deltas per model and flushes them to a Sink
// once per frame interval, coalescing however many tokens arrived in that
// window into one state update per model. Scheduling is idempotent and the
// pending buffer can be cleared per model (error / synthesis overwrite) or
// wholesale (session reset).
package accum
