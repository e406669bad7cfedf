// shipctl TUI - A terminal playground for multi-model AI sessions.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/shipctl-tui/internal/cli"
	"github.com/jeranaias/shipctl-tui/internal/tui"
)

// Version information (set at build time)
var (
	Version   = "0.4.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func init() {
	// Sync version info with cli package
	cli.Version = Version
	cli.GitCommit = GitCommit
	cli.BuildDate = BuildDate
}

func main() {
	cmd, args := cli.Parse()

	switch cmd {
	case cli.CmdTUI:
		runTUI(args)
	case cli.CmdAsk:
		cli.HandleAsk(args)
	case cli.CmdChat:
		cli.HandleChat(args)
	case cli.CmdModels:
		exitOn(cli.HandleModels(args), args)
	case cli.CmdStatus:
		exitOn(cli.HandleStatus(args), args)
	case cli.CmdDeploy:
		exitOn(cli.HandleDeploy(args), args)
	case cli.CmdServe:
		exitOn(cli.HandleServe(args), args)
	case cli.CmdHistory:
		exitOn(cli.HandleHistory(args), args)
	case cli.CmdConfig:
		exitOn(cli.HandleConfig(args), args)
	case cli.CmdVersion:
		cli.HandleVersion(args)
	case cli.CmdHelp:
		cli.HandleHelp()
	default:
		runTUI(args)
	}
}

func exitOn(err error, args cli.Args) {
	if err == nil {
		return
	}
	cli.DisplayError(err, args.JSON)
	os.Exit(cli.GetExitCode(err))
}

// runTUI assembles the session stack and starts the interactive playground.
func runTUI(args cli.Args) {
	pg, err := cli.NewPlayground(context.Background(), args)
	if err != nil {
		cli.DisplayError(err, args.JSON)
		os.Exit(cli.GetExitCode(err))
	}

	m := tui.New(pg.Controller, pg.Store, pg.Ledger, pg.Config)

	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running shipctl: %v\n", err)
		os.Exit(1)
	}
}
