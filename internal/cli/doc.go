// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements command-line parsing and handlers for shipctl.
//
// Parsing is hand-rolled: global flags are stripped first, the first
// remaining argument selects the command, and per-command parsers
// consume the rest. An unrecognized first argument is treated as a
// question for the ask command.
//
// # Key Types
//
//   - Command: the selected top-level command
//   - Args: parsed flags, options, and positionals
//   - Playground: the wired session stack shared by ask and chat
//
// # Usage
//
//	cmd, args := cli.Parse()
//	switch cmd {
//	case cli.CmdAsk:
//	    cli.HandleAsk(args)
//	case cli.CmdChat:
//	    cli.HandleChat(args)
//	}
package cli
