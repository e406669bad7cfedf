// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// models.go - Model catalog listing for the shipctl CLI.
package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/jeranaias/shipctl-tui/internal/backend"
	"github.com/jeranaias/shipctl-tui/internal/config"
	"github.com/jeranaias/shipctl-tui/internal/selection"
)

// HandleModels lists the backend's model catalog in fallback-ranking
// order.
func HandleModels(args Args) error {
	cfg := config.Global()
	baseURL := args.Backend
	if baseURL == "" {
		baseURL = cfg.Backend.BaseURL
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client := backend.NewClient(baseURL).WithMaxRetries(cfg.Backend.MaxRetries)
	models, err := client.ListModels(ctx)
	if err != nil {
		return WrapError(err, "backend unreachable at "+baseURL)
	}

	ranker := selection.NewRanker()
	ranked := ranker.SortModels(models)

	if args.JSON {
		infos := make([]ModelInfo, 0, len(ranked))
		for _, m := range ranked {
			infos = append(infos, ModelInfo{
				ID:            m.ID,
				Name:          m.Name,
				Type:          string(m.Type),
				Priority:      m.Priority,
				ContextLength: m.ContextLength,
				RateLimited:   ranker.IsRateLimited(m.ID),
			})
		}
		return NewJSONResponse("models", ModelsData{Models: infos, Count: len(infos)}).Print()
	}

	fmt.Println(TitleStyle.Render("Available Models"))
	fmt.Printf("%s  %-28s %-12s %s\n",
		DimStyle.Render("  #"), "ID", "TYPE", "NAME")
	for i, m := range ranked {
		marker := "  "
		if len(cfg.Session.Participants) > 0 && containsString(cfg.Session.Participants, m.ID) {
			marker = HighlightStyle.Render("* ")
		}
		fmt.Printf("%s%3d  %-28s %-12s %s\n", marker, i+1, m.ID, m.Type, m.Name)
	}
	fmt.Println()
	fmt.Println(DimStyle.Render(fmt.Sprintf("%d models, ranked by fallback priority (* = configured participant)", len(ranked))))
	return nil
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
