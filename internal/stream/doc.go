// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package stream parses the inference backend's server-sent event streams.
//
// Each playground mode streams JSON objects on `data: ` lines with an
// "event" discriminator. This package reads raw SSE events and decodes
// them at the stream boundary into one tagged union per mode
// (CompareEvent, CouncilEvent, RoundtableEvent, PersonalityEvent), so the
// session state machines can switch exhaustively over known variants
// instead of probing ad hoc field names.
//
// Unknown event types decode to ErrUnknownEvent and are skipped by
// consumers; a malformed JSON line is likewise skipped rather than failing
// the whole stream.
package stream
