// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// deploy_cmd.go - Deployment command handlers for the shipctl CLI.
//
// "shipctl deploy" dispatches the configured GitHub Actions workflow and
// drives the deployment state machine through run tracking and
// post-deploy health checking.
//
// Subcommands:
//   shipctl deploy              Dispatch and track to health
//   shipctl deploy status       Show the latest workflow run
//   shipctl deploy workflows    List repository workflows
package cli

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/jeranaias/shipctl-tui/internal/config"
	"github.com/jeranaias/shipctl-tui/internal/deploy"
	"github.com/jeranaias/shipctl-tui/internal/github"
	"github.com/jeranaias/shipctl-tui/internal/ops"
)

const (
	// runAppearTimeout bounds how long we wait for the dispatched run to
	// show up in the Actions API.
	runAppearTimeout = 2 * time.Minute

	// runCompleteTimeout bounds the whole workflow execution.
	runCompleteTimeout = 30 * time.Minute
)

// HandleDeploy handles the "deploy" command.
func HandleDeploy(args Args) error {
	cfg := config.Global()

	if cfg.GitHub.Token == "" {
		return NewValidationError("github.token", "",
			"not configured; set GITHUB_TOKEN or run: shipctl config set github.token <token>")
	}
	if cfg.GitHub.Owner == "" || cfg.GitHub.Repo == "" {
		return NewValidationError("github.owner/github.repo", "",
			"not configured; run: shipctl config set github.owner <owner>")
	}

	client := github.NewClient(cfg.GitHub.Owner, cfg.GitHub.Repo, cfg.GitHub.Token)

	workflow := cfg.GitHub.WorkflowFile
	if v, ok := args.Options["workflow"]; ok {
		workflow = v
	}
	ref := cfg.GitHub.Ref
	if v, ok := args.Options["ref"]; ok {
		ref = v
	}

	switch args.Subcommand {
	case "workflows":
		return deployListWorkflows(client, args)
	case "status":
		return deployShowStatus(client, workflow, args)
	case "":
		return deployRun(client, cfg, workflow, ref, args)
	default:
		return NewValidationError("subcommand", args.Subcommand,
			"expected one of: (none), status, workflows")
	}
}

func deployListWorkflows(client *github.Client, args Args) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	workflows, err := client.ListWorkflows(ctx)
	if err != nil {
		return WrapError(err, "failed to list workflows")
	}

	if args.JSON {
		return NewJSONResponse("deploy workflows", workflows).Print()
	}

	fmt.Println(TitleStyle.Render("Workflows"))
	for _, w := range workflows {
		fmt.Printf("  %-30s %-10s %s\n", w.Path, w.State, w.Name)
	}
	return nil
}

func deployShowStatus(client *github.Client, workflow string, args Args) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	run, err := client.LatestRun(ctx, workflow)
	if err != nil {
		return WrapError(err, "failed to fetch latest run")
	}

	if args.JSON {
		return NewJSONResponse("deploy status", run).Print()
	}

	status := run.Status
	if run.Completed() {
		status = run.Conclusion
	}
	fmt.Printf("%s %s\n", RenderLabel("Workflow"), workflow)
	fmt.Printf("%s %s %s\n", RenderLabel("Latest run"), RenderStatus(status), DimStyle.Render(run.HTMLURL))
	fmt.Printf("%s %s\n", RenderLabel("Updated"), run.UpdatedAt.Format(time.RFC3339))
	return nil
}

// deployRun drives one full deployment: dispatch, run tracking, health.
func deployRun(client *github.Client, cfg *config.Config, workflow, ref string, args Args) error {
	ctx, cancel := signalContext()
	defer cancel()

	m := deploy.NewMachine(cfg.GitHub.Repo)
	progress := func(format string, a ...interface{}) {
		if !args.Quiet && !args.JSON {
			fmt.Printf(format+"\n", a...)
		}
	}

	// Remember the last run so we can tell the dispatched one apart.
	var lastRunID int64
	if prev, err := client.LatestRun(ctx, workflow); err == nil {
		lastRunID = prev.ID
	}

	if _, err := m.Apply(deploy.Trigger(workflow)); err != nil {
		return err
	}
	progress("%s dispatching %s@%s", InfoStyle.Render("[deploy]"), workflow, ref)

	if err := client.DispatchRun(ctx, workflow, ref); err != nil {
		m.Apply(deploy.Failure(err.Error()))
		return finishDeploy(m, args, WrapError(err, "workflow dispatch failed"))
	}

	run, err := waitForRun(ctx, client, workflow, lastRunID)
	if err != nil {
		m.Apply(deploy.Failure(err.Error()))
		return finishDeploy(m, args, err)
	}
	if _, err := m.Apply(deploy.RunStarted(strconv.FormatInt(run.ID, 10))); err != nil {
		return err
	}
	progress("%s run started: %s", InfoStyle.Render("[deploy]"), run.HTMLURL)

	run, err = waitForCompletion(ctx, client, workflow, run.ID, cfg.Deploy.PollIntervalSecs)
	if err != nil {
		m.Apply(deploy.Failure(err.Error()))
		return finishDeploy(m, args, err)
	}
	if !run.Succeeded() {
		m.Apply(deploy.Failure("workflow concluded: " + run.Conclusion))
		return finishDeploy(m, args, fmt.Errorf("workflow failed: %s", run.Conclusion))
	}
	if _, err := m.Apply(deploy.Event{Kind: deploy.EventSuccess}); err != nil {
		return err
	}

	// Post-deploy health checking with the machine's retry budget.
	if cfg.Deploy.HealthURL != "" {
		progress("%s checking health at %s", InfoStyle.Render("[deploy]"), cfg.Deploy.HealthURL)
		interval := time.Duration(cfg.Deploy.PollIntervalSecs) * time.Second
		poller := ops.NewHealthPoller(ops.HTTPProbe(cfg.Deploy.HealthURL, 5*time.Second), interval)
		poller.Run(ctx, m)
	} else {
		// Nothing to probe; treat the workflow success as final.
		m.Apply(deploy.Event{Kind: deploy.EventHealthOK})
	}

	if m.State() != deploy.StateSuccess {
		return finishDeploy(m, args, fmt.Errorf("deployment failed: %s", m.Context().Err))
	}
	progress("%s deployment healthy", SuccessStyle.Render("[deploy]"))
	return finishDeploy(m, args, nil)
}

// finishDeploy emits the final machine state and returns err unchanged.
func finishDeploy(m *deploy.Machine, args Args, err error) error {
	if args.JSON {
		ctx := m.Context()
		data := DeployData{
			State:      string(m.State()),
			WorkflowID: ctx.WorkflowID,
			RunID:      ctx.RunID,
			Error:      ctx.Err,
		}
		if err != nil {
			NewJSONErrorResponse("deploy", err).Print()
		} else {
			NewJSONResponse("deploy", data).Print()
		}
	}
	return err
}

// waitForRun polls until a run newer than lastRunID appears.
func waitForRun(ctx context.Context, client *github.Client, workflow string, lastRunID int64) (github.WorkflowRun, error) {
	deadline := time.Now().Add(runAppearTimeout)
	for {
		run, err := client.LatestRun(ctx, workflow)
		if err == nil && run.ID != 0 && run.ID != lastRunID {
			return run, nil
		}
		if time.Now().After(deadline) {
			return github.WorkflowRun{}, fmt.Errorf("timed out waiting for workflow run to appear")
		}
		select {
		case <-ctx.Done():
			return github.WorkflowRun{}, ctx.Err()
		case <-time.After(3 * time.Second):
		}
	}
}

// waitForCompletion polls the run until it completes.
func waitForCompletion(ctx context.Context, client *github.Client, workflow string, runID int64, pollSecs int) (github.WorkflowRun, error) {
	if pollSecs <= 0 {
		pollSecs = 2
	}
	deadline := time.Now().Add(runCompleteTimeout)
	for {
		run, err := client.LatestRun(ctx, workflow)
		if err == nil && run.ID == runID && run.Completed() {
			return run, nil
		}
		if time.Now().After(deadline) {
			return github.WorkflowRun{}, fmt.Errorf("timed out waiting for workflow run %d", runID)
		}
		select {
		case <-ctx.Done():
			return github.WorkflowRun{}, ctx.Err()
		case <-time.After(time.Duration(pollSecs) * time.Second):
		}
	}
}
