// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// setup.go - Shared session bootstrap for ask and chat commands.
package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/jeranaias/shipctl-tui/internal/backend"
	"github.com/jeranaias/shipctl-tui/internal/config"
	"github.com/jeranaias/shipctl-tui/internal/history"
	"github.com/jeranaias/shipctl-tui/internal/model"
	"github.com/jeranaias/shipctl-tui/internal/selection"
	"github.com/jeranaias/shipctl-tui/internal/session"
	"github.com/jeranaias/shipctl-tui/internal/storage"
)

// defaultParticipantCount caps how many models an unconfigured session
// fans out to.
const defaultParticipantCount = 3

// Playground bundles the wired session stack for CLI commands.
type Playground struct {
	Config     *config.Config
	Client     *backend.Client
	Store      *model.Store
	Ledger     *history.Ledger
	Timings    *model.TimingBoard
	Ranker     *selection.Ranker
	Controller *session.Controller
}

// NewPlayground connects to the backend, loads the model catalog and
// assembles a session controller from config plus CLI overrides.
func NewPlayground(ctx context.Context, args Args) (*Playground, error) {
	cfg := config.Global()

	baseURL := args.Backend
	if baseURL == "" {
		baseURL = cfg.Backend.BaseURL
	}
	client := backend.NewClient(baseURL).WithMaxRetries(cfg.Backend.MaxRetries)

	listCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	models, err := client.ListModels(listCtx)
	if err != nil {
		return nil, WrapError(err, "backend unreachable at "+baseURL)
	}
	if len(models) == 0 {
		return nil, fmt.Errorf("backend at %s reports no models", baseURL)
	}

	store := model.NewStore()
	store.Load(models)

	ledger := history.NewLedger()
	timings := model.NewTimingBoard()
	ranker := selection.NewRanker()

	ctl := session.NewController(client, store, ledger).
		WithTimingBoard(timings).
		WithRanker(ranker)

	modeName := args.Mode
	if modeName == "" {
		modeName = cfg.Session.DefaultMode
	}
	m, err := model.ParseMode(modeName)
	if err != nil {
		return nil, NewValidationError("mode", modeName,
			"must be one of chat, compare, council, roundtable, personality")
	}
	ctl.SetMode(m)

	participants := args.ParticipantList()
	if len(participants) == 0 {
		participants = cfg.Session.Participants
	}
	if len(participants) == 0 {
		participants = pickDefaultParticipants(ranker, models)
	}
	for _, id := range participants {
		if _, ok := store.Get(id); !ok {
			return nil, ErrNotFound("model", id)
		}
	}
	if len(participants) < m.MinParticipants() {
		return nil, NewValidationError("models", args.Models,
			fmt.Sprintf("%s mode needs at least %d participants", m, m.MinParticipants()))
	}
	ctl.SetParticipants(participants)
	ctl.SetGitHubToken(cfg.GitHub.Token)

	return &Playground{
		Config:     cfg,
		Client:     client,
		Store:      store,
		Ledger:     ledger,
		Timings:    timings,
		Ranker:     ranker,
		Controller: ctl,
	}, nil
}

// pickDefaultParticipants takes the top ranked models from the catalog.
func pickDefaultParticipants(ranker *selection.Ranker, models []model.Model) []string {
	ranked := ranker.SortModels(models)
	n := defaultParticipantCount
	if n > len(ranked) {
		n = len(ranked)
	}
	ids := make([]string, 0, n)
	for _, m := range ranked[:n] {
		ids = append(ids, m.ID)
	}
	return ids
}

// SendOptions builds per-round options from config plus CLI overrides.
func (p *Playground) SendOptions(args Args) session.SendOptions {
	return session.SendOptions{
		MaxTokens:   args.IntOption("max-tokens", p.Config.Session.MaxTokens),
		Temperature: p.Config.Session.Temperature,
		Turns:       args.IntOption("turns", p.Config.Session.Turns),
	}
}

// SaveTranscript persists the current ledger as a transcript and
// returns its id.
func (p *Playground) SaveTranscript() (string, error) {
	entries := p.Ledger.Entries()
	if len(entries) == 0 {
		return "", fmt.Errorf("nothing to save: transcript is empty")
	}

	store, err := storage.NewTranscriptStore()
	if err != nil {
		return "", err
	}

	timings := make(map[string]int64)
	for _, id := range p.Controller.Participants() {
		if t, ok := p.Controller.Timing(id); ok && t.Ended() {
			timings[id] = t.EndMs - t.StartMs
		}
	}

	return store.Save(&storage.Transcript{
		Mode:         p.Controller.Mode().String(),
		Participants: p.Controller.Participants(),
		Entries:      entries,
		Timings:      timings,
	})
}
