// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// status.go - System status command handler for the shipctl CLI.
//
// Reports backend reachability, the managed backend process, and the
// configured session defaults.
package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jeranaias/shipctl-tui/internal/backend"
	"github.com/jeranaias/shipctl-tui/internal/config"
	"github.com/jeranaias/shipctl-tui/internal/ops"
)

// HandleStatus handles the "status" command.
func HandleStatus(args Args) error {
	cfg := config.Global()
	baseURL := args.Backend
	if baseURL == "" {
		baseURL = cfg.Backend.BaseURL
	}

	data := StatusData{
		Backend: probeBackend(baseURL, cfg.Backend.MaxRetries),
		Panel:   probePanel(cfg.Panel.RepoPath),
		Session: SessionStatusInfo{
			DefaultMode:  cfg.Session.DefaultMode,
			Participants: cfg.Session.Participants,
			MaxTokens:    cfg.Session.MaxTokens,
		},
	}

	if args.JSON {
		return NewJSONResponse("status", data).Print()
	}

	fmt.Println(TitleStyle.Render("shipctl status"))

	fmt.Println(SectionStyle.Render("Backend"))
	if data.Backend.Healthy {
		fmt.Printf("%s %s %s\n", RenderLabel("Health"), RenderStatus("ok"), DimStyle.Render(data.Backend.URL))
		fmt.Printf("%s %d\n", RenderLabel("Models"), data.Backend.Models)
	} else {
		fmt.Printf("%s %s %s\n", RenderLabel("Health"), RenderStatus("fail"), DimStyle.Render(data.Backend.URL))
		if data.Backend.Error != "" {
			fmt.Printf("%s %s\n", RenderLabel("Error"), data.Backend.Error)
		}
	}

	fmt.Println(SectionStyle.Render("Managed Process"))
	if data.Panel.Running {
		fmt.Printf("%s %s pid=%d mode=%s\n", RenderLabel("Backend"), RenderStatus("running"), data.Panel.PID, data.Panel.Mode)
		if data.Panel.StartedAt != "" {
			fmt.Printf("%s %s\n", RenderLabel("Started"), data.Panel.StartedAt)
		}
	} else {
		fmt.Printf("%s %s\n", RenderLabel("Backend"), DimStyle.Render("not running"))
	}

	fmt.Println(SectionStyle.Render("Session Defaults"))
	fmt.Printf("%s %s\n", RenderLabel("Mode"), data.Session.DefaultMode)
	participants := strings.Join(data.Session.Participants, ", ")
	if participants == "" {
		participants = DimStyle.Render("(auto, ranked)")
	}
	fmt.Printf("%s %s\n", RenderLabel("Participants"), participants)
	fmt.Printf("%s %d\n", RenderLabel("Max tokens"), data.Session.MaxTokens)

	return nil
}

// probeBackend checks backend health and counts catalog models.
func probeBackend(baseURL string, maxRetries int) BackendStatusInfo {
	info := BackendStatusInfo{URL: baseURL}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client := backend.NewClient(baseURL).WithMaxRetries(maxRetries)
	if err := client.Health(ctx); err != nil {
		info.Error = err.Error()
		return info
	}
	info.Healthy = true

	if models, err := client.ListModels(ctx); err == nil {
		info.Models = len(models)
	}
	return info
}

// probePanel reads the managed process state, if a repo root can be
// resolved.
func probePanel(repoPath string) PanelStatusInfo {
	root, err := ops.FindRepoRoot(repoPath)
	if err != nil {
		return PanelStatusInfo{}
	}

	st, err := ops.NewController(root).Status("")
	if err != nil || !st.Running {
		return PanelStatusInfo{}
	}
	info := PanelStatusInfo{
		Running: true,
		PID:     st.PID,
		Mode:    st.Mode,
	}
	if st.StartedAt > 0 {
		info.StartedAt = time.Unix(st.StartedAt, 0).Format(time.RFC3339)
	}
	return info
}
