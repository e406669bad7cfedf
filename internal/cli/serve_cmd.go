// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// serve_cmd.go - Panel server and process management for the shipctl CLI.
//
// "shipctl serve" runs the localhost control API that the browser panel
// talks to. The start/stop/logs/make subcommands drive the managed
// backend process directly, without the HTTP layer.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jeranaias/shipctl-tui/internal/config"
	"github.com/jeranaias/shipctl-tui/internal/ops"
	"github.com/jeranaias/shipctl-tui/internal/server"
)

// HandleServe handles the "serve" command.
func HandleServe(args Args) error {
	cfg := config.Global()

	ctl := ops.NewController(cfg.Panel.RepoPath)

	switch args.Subcommand {
	case "":
		return runPanelServer(cfg, ctl, args)

	case "start":
		mode := ops.ModeDevChat
		if len(args.Raw) > 0 {
			mode = args.Raw[0]
		}
		st, err := ctl.Start(mode)
		if err != nil {
			return WrapError(err, "failed to start backend")
		}
		fmt.Printf("%s backend started pid=%d mode=%s\n", SuccessStyle.Render("[OK]"), st.PID, st.Mode)
		return nil

	case "stop":
		if err := ctl.Stop(); err != nil {
			return WrapError(err, "failed to stop backend")
		}
		fmt.Printf("%s backend stopped\n", SuccessStyle.Render("[OK]"))
		return nil

	case "logs":
		out, err := ctl.Logs(args.IntOption("lines", 50))
		if err != nil {
			return WrapError(err, "failed to read logs")
		}
		fmt.Print(out)
		return nil

	case "make":
		if len(args.Raw) == 0 {
			return ErrMissingArgument("target", "shipctl serve make build-playground")
		}
		result, err := ctl.RunMake(args.Raw[0])
		if err != nil {
			return WrapError(err, "make failed")
		}
		if args.JSON {
			return NewJSONResponse("serve make", result).Print()
		}
		fmt.Print(result.LogTail)
		if !result.OK {
			return fmt.Errorf("make exited with code %d", result.ExitCode)
		}
		return nil

	default:
		return NewValidationError("subcommand", args.Subcommand,
			"expected one of: (none), start, stop, logs, make")
	}
}

// runPanelServer runs the control API until interrupted.
func runPanelServer(cfg *config.Config, ctl *ops.Controller, args Args) error {
	port := args.IntOption("port", cfg.Panel.Port)

	srv := server.NewServer(port, ctl, cfg.Backend.BaseURL)
	if cfg.Panel.AuthToken != "" || len(cfg.Panel.AllowedIPs) > 0 {
		srv.WithAuth(&server.AuthConfig{
			Enabled:     true,
			BearerToken: cfg.Panel.AuthToken,
			AllowedIPs:  cfg.Panel.AllowedIPs,
		})
	}

	// Hot-reload config edits while serving.
	watcher, err := config.NewWatcher(nil)
	if err == nil {
		if werr := watcher.Watch(); werr == nil {
			defer watcher.Close()
		}
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	if !args.Quiet {
		fmt.Printf("%s panel server listening on 127.0.0.1:%d\n",
			InfoStyle.Render("[serve]"), srv.Port())
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-sigCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return WrapError(err, "shutdown failed")
	}
	if !args.Quiet {
		fmt.Println(DimStyle.Render("panel server stopped"))
	}
	return nil
}
