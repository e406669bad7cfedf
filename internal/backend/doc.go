// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package backend is the HTTP client for the playground inference
// backend: the models catalog, the health probe, and the four per-mode
// streaming endpoints (compare, council, roundtable, personality).
//
// Short requests go through a shared pooled client with retries and
// exponential backoff. Streaming POSTs use a second pooled client with
// no client-side timeout; stream lifetime is governed by the caller's
// context. Each stream yields typed events decoded by the stream
// package; unknown or malformed events are skipped, not fatal.
//
// # Key Types
//
//   - Client: catalog fetch, health probe, Stream* methods.
//   - CompareRequest, CouncilRequest, RoundtableRequest,
//     PersonalityRequest: the per-mode wire payloads.
//   - RateLimitError: 429 with an optional Retry-After hint; matches
//     errors.Is(err, ErrRateLimited).
package backend
