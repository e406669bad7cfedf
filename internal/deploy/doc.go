// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package deploy models the per-service deployment lifecycle as a pure
// state machine: idle → triggering → deploying → checking → success or
// failed, with re-trigger from either terminal state.
//
// The machine performs no I/O. Dispatching the GitHub Actions workflow,
// watching the run, and probing service health all happen elsewhere and
// feed back in as events. Health checking carries a bounded retry
// budget; exhausting it fails the deployment with a fixed message.
//
// # Key Types
//
//   - Machine: the transition table plus its Context record.
//   - Context: service name, workflow/run ids, error, retries left.
//   - Event: one input (TRIGGER, RUN_STARTED, SUCCESS, FAILURE,
//     HEALTH_OK, HEALTH_FAIL, RETRY, CANCEL).
package deploy
