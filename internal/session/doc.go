// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session is the protocol driver at the heart of the playground:
// it turns one user prompt plus a participant set into a running
// multi-model session for the active mode and reconciles the resulting
// event stream into per-model state and the ordered transcript.
//
// # Protocols
//
//   - Chat/Compare: all participants stream in parallel on one chat
//     stream; the round ends with a plain answer (chat) or a synthesized
//     summary of distinct responses (compare).
//   - Council: three stages on one stream — parallel answers, anonymous
//     peer review with a live progress label, chairman synthesis.
//   - Roundtable: moderator analysis, strictly sequential speaker
//     rounds, moderator synthesis.
//   - Personality: parallel generation decorated with streamed persona
//     metadata.
//
// # Session identity
//
// Each SendMessage call takes the next generation number and its own
// cancel function. Every event application and the teardown path check
// the generation, so a superseded or stopped session can never write
// over the state of the one that replaced it. A user stop surfaces as
// context.Canceled and is swallowed; the display freezes at the last
// accumulated text.
//
// # Key Types
//
//   - Controller: SendMessage, Stop, ToggleModel, and the snapshot
//     accessors the UI renders from.
//   - SendOptions: per-call overrides, including the participant subset
//     and seeded responses used by partial-failure restarts.
package session
