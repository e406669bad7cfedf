// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/jeranaias/shipctl-tui/internal/backend"
	"github.com/jeranaias/shipctl-tui/internal/history"
	"github.com/jeranaias/shipctl-tui/internal/stream"
)

// Roundtable phase labels.
const (
	phaseRoundtableAnalysis  = "Analyzing Topic"
	phaseRoundtableSynthesis = "Synthesis"
)

// runRoundtable drives the moderator-led sequential discussion: one
// analysis, a planned number of single-speaker rounds, one synthesis.
func (c *Controller) runRoundtable(ctx context.Context, gen uint64, text string, participants []string, contextText string, opts SendOptions) error {
	orchestrator := c.pickOrchestrator(participants)

	req := backend.RoundtableRequest{
		Query:             buildQuery(contextText, text),
		OrchestratorModel: orchestrator,
		Participants:      participants,
		Turns:             opts.Turns,
		MaxTokens:         opts.MaxTokens,
		Temperature:       opts.Temperature,
		GitHubToken:       c.githubToken,
	}

	err := c.streamer.StreamRoundtable(ctx, req, func(ev stream.RoundtableEvent) {
		c.applyRoundtable(gen, ev)
	})
	if err != nil {
		return err
	}

	c.guard(gen, func() {
		c.acc.Flush()
	})
	return nil
}

func (c *Controller) applyRoundtable(gen uint64, ev stream.RoundtableEvent) {
	c.guard(gen, func() {
		if c.halted {
			return
		}
		switch e := ev.(type) {
		case stream.RoundtableAnalysisStart:
			c.speaking = map[string]bool{ModeratorID: true}
			c.phase = phaseRoundtableAnalysis

		case stream.RoundtableAnalysisComplete:
			summary := c.formatAnalysis(e.Analysis)
			c.store.SetResponse(ModeratorID, summary)
			delete(c.speaking, ModeratorID)
			c.phase = ""
			c.ledger.Push(history.AssistantEntry(history.KindRoundtableAnalysis, summary))

		case stream.RoundtableTurnStart:
			// Sequential by protocol: exactly one speaker at a time.
			c.speaking = map[string]bool{e.ModelID: true}
			if e.TurnNumber > 0 {
				c.phase = fmt.Sprintf("Round %d", e.TurnNumber)
			}

		case stream.RoundtableTurnChunk:
			c.feedDelta(e.ModelID, e.Content)

		case stream.RoundtableTurnComplete:
			t := e.Turn
			c.acc.ClearPendingForModel(t.ModelID)
			c.store.SetResponse(t.ModelID, t.Response)
			delete(c.speaking, t.ModelID)
			c.ranker.RecordSuccess(t.ModelID)
			c.discussionTurns[t.ModelID] = append(c.discussionTurns[t.ModelID], Turn{
				Number:   t.TurnNumber,
				Response: t.Response,
			})
			c.ledger.Push(history.AssistantEntry(history.KindRoundtableTurn,
				fmt.Sprintf("%s · Round %d\n%s", c.store.Name(t.ModelID), t.TurnNumber, t.Response)))

		case stream.RoundtableTurnError:
			c.acc.ClearPendingForModel(e.ModelID)
			c.store.SetError(e.ModelID, e.Message)
			delete(c.speaking, e.ModelID)
			// The transcript still records the failed turn so the
			// discussion reads coherently.
			c.ledger.Push(history.AssistantEntry(history.KindRoundtableTurn,
				fmt.Sprintf("%s · Round %d\n%s", c.store.Name(e.ModelID), e.TurnNumber, e.Message)))

		case stream.RoundtableSynthesisStart:
			c.isSynthesizing = true
			c.speaking = map[string]bool{ModeratorID: true}
			c.phase = phaseRoundtableSynthesis

		case stream.RoundtableDiscussionComplete:
			c.acc.ClearPendingForModel(ModeratorID)
			c.store.SetResponse(ModeratorID, e.Synthesis)
			c.isSynthesizing = false
			delete(c.speaking, ModeratorID)
			c.phase = ""
			c.ledger.Push(history.AssistantEntry(history.KindRoundtableSynthesis, e.Synthesis))

		case stream.RoundtableFailure:
			c.haltSession(e.Message)
		}
	})
}

// formatAnalysis renders the moderator's pre-discussion plan: domains by
// weight, participant expertise in original order, the lead, and the
// planned round count.
func (c *Controller) formatAnalysis(a stream.RoundtableAnalysis) string {
	var lines []string

	if len(a.DomainWeights) > 0 {
		type weighted struct {
			name   string
			weight float64
		}
		domains := make([]weighted, 0, len(a.DomainWeights))
		for name, w := range a.DomainWeights {
			domains = append(domains, weighted{name, w})
		}
		sort.Slice(domains, func(i, j int) bool {
			if domains[i].weight != domains[j].weight {
				return domains[i].weight > domains[j].weight
			}
			return domains[i].name < domains[j].name
		})
		parts := make([]string, 0, len(domains))
		for _, d := range domains {
			parts = append(parts, fmt.Sprintf("%s %d%%", d.name, toPercent(d.weight)))
		}
		lines = append(lines, "Domains: "+strings.Join(parts, ", "))
	}

	if len(a.ModelExpertiseScores) > 0 {
		parts := make([]string, 0, len(a.ModelExpertiseScores))
		for _, id := range c.activeParticipants {
			score, ok := a.ModelExpertiseScores[id]
			if !ok {
				continue
			}
			parts = append(parts, fmt.Sprintf("%s %d%%", c.store.Name(id), toPercent(score)))
		}
		if len(parts) > 0 {
			lines = append(lines, "Expertise: "+strings.Join(parts, ", "))
		}
	}

	lines = append(lines, "Lead: "+c.store.Name(a.DiscussionLead))
	lines = append(lines, fmt.Sprintf("Rounds: %d", a.ExpectedTurns))

	if a.Reasoning != "" {
		lines = append(lines, "", a.Reasoning)
	}
	return strings.Join(lines, "\n")
}

// toPercent renders a 0..1 fraction (or an already-scaled percentage)
// as a whole percent.
func toPercent(v float64) int {
	if v <= 1 {
		v *= 100
	}
	return int(v + 0.5)
}
