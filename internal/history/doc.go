// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package history maintains the append-only conversation transcript.
//
// The Ledger records one Entry per protocol checkpoint (a user prompt, a
// council turn, a ranking table, a final synthesis) in strict order. It is
// the authoritative record of a session: per-model streaming state may
// interleave arbitrarily, but the transcript order is whatever order the
// triggering protocol events were processed in.
//
// BuildCarryover implements the mode-switch rule: compare mode receives the
// raw transcript, every other mode receives the user entries plus the most
// recent synthesis only.
package history
