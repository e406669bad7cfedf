// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ops manages the playground backend process: starting it in a
// supported mode under its own process group, stopping the whole tree
// with bounded escalation, reporting liveness, tailing logs, running
// allowlisted build targets, and persisting the two-path env config.
//
// # Key Types
//
//   - Controller: process lifecycle rooted at the managed repo
//   - State: the persisted pid record in .native-host/state.json
//   - HealthPoller: drives a deploy.Machine through its checking phase
//
// # Usage
//
//	ctl := ops.NewController("")
//	st, err := ctl.Start(ops.ModeDevChat)
//	status, _ := ctl.Status("http://localhost:8000")
//	_ = ctl.Stop()
package ops
