// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"fmt"
	"strings"

	"github.com/jeranaias/shipctl-tui/internal/backend"
	"github.com/jeranaias/shipctl-tui/internal/history"
	"github.com/jeranaias/shipctl-tui/internal/stream"
)

// Council phase labels. Stage 2 carries a live received/expected count.
const (
	phaseCouncilStage1 = "Stage 1 · Independent Answers"
	phaseCouncilStage3 = "Stage 3 · Synthesis"
)

func councilStage2Phase(received, expected int) string {
	return fmt.Sprintf("Stage 2 · Anonymous Review (%d/%d)", received, expected)
}

// runCouncil drives the three-stage council protocol: parallel answers,
// anonymous peer review, chairman synthesis — all on one stream.
func (c *Controller) runCouncil(ctx context.Context, gen uint64, text string, participants []string, contextText string, opts SendOptions) error {
	chairman := c.pickOrchestrator(participants)

	c.guard(gen, func() {
		c.phase = phaseCouncilStage1
	})

	req := backend.CouncilRequest{
		Query:              buildQuery(contextText, text),
		Participants:       participants,
		ChairmanModel:      chairman,
		MaxTokens:          opts.MaxTokens,
		GitHubToken:        c.githubToken,
		CompletedResponses: opts.PreviousResponses,
	}

	err := c.streamer.StreamCouncil(ctx, req, func(ev stream.CouncilEvent) {
		c.applyCouncil(gen, ev)
	})
	if err != nil {
		return err
	}

	c.guard(gen, func() {
		c.acc.Flush()
	})
	return nil
}

func (c *Controller) applyCouncil(gen uint64, ev stream.CouncilEvent) {
	c.guard(gen, func() {
		if c.halted {
			return
		}
		switch e := ev.(type) {
		case stream.CouncilModelStart:
			c.speaking[e.ModelID] = true

		case stream.CouncilModelChunk:
			c.feedDelta(e.ModelID, e.Content)

		case stream.CouncilModelResponse:
			c.acc.ClearPendingForModel(e.ModelID)
			c.store.SetResponse(e.ModelID, e.Response)
			c.timing.RecordEnd(e.ModelID)
			delete(c.speaking, e.ModelID)
			c.ranker.RecordSuccess(e.ModelID)
			// A seeded response was already in the transcript before the
			// restart; recording it again would duplicate the turn.
			if _, seeded := c.cached[e.ModelID]; !seeded {
				c.ledger.Push(history.AssistantEntry(history.KindCouncilTurn,
					c.store.Name(e.ModelID)+":\n"+e.Response))
			}

		case stream.CouncilModelError:
			c.failModel(e.ModelID, e.Message)

		case stream.CouncilStage2Start:
			failed := 0
			for _, id := range c.activeParticipants {
				st := c.store.State(id)
				if st.Failed() {
					failed++
				}
			}
			c.expectedReviews = len(c.activeParticipants) - failed
			c.receivedReviews = 0
			c.phase = councilStage2Phase(0, c.expectedReviews)

		case stream.CouncilRankingResponse:
			c.receivedReviews++
			c.reviews = append(c.reviews, Review{
				ReviewerID:   e.ReviewerID,
				ReviewerName: e.ReviewerName,
				Text:         e.Text,
			})
			c.phase = councilStage2Phase(c.receivedReviews, c.expectedReviews)

		case stream.CouncilRankingError:
			c.receivedReviews++
			c.reviews = append(c.reviews, Review{
				ReviewerID:   e.ReviewerID,
				ReviewerName: e.ReviewerName,
				Err:          e.Message,
			})
			c.phase = councilStage2Phase(c.receivedReviews, c.expectedReviews)

		case stream.CouncilStage2Complete:
			c.rankings = append([]stream.AggregateRanking(nil), e.Rankings...)
			c.ledger.Push(history.AssistantEntry(history.KindCouncilRanking,
				formatRankings(e.Rankings)))

		case stream.CouncilChairmanQuip:
			c.store.SetStatusMessage(ModeratorID, e.Text)
			c.ledger.Push(history.AssistantEntry(history.KindCouncilChairman, e.Text))

		case stream.CouncilStage3Start:
			c.isSynthesizing = true
			c.speaking = map[string]bool{ModeratorID: true}
			c.phase = phaseCouncilStage3

		case stream.CouncilStage3Complete:
			// Overwrite, never append: a queued partial delta must not
			// survive into the synthesis text.
			c.acc.ClearPendingForModel(ModeratorID)
			c.store.SetResponse(ModeratorID, e.Response)
			c.isSynthesizing = false
			delete(c.speaking, ModeratorID)
			c.phase = ""
			c.ledger.Push(history.AssistantEntry(history.KindCouncilSynthesis, e.Response))

		case stream.CouncilStage3Error:
			c.acc.ClearPendingForModel(ModeratorID)
			c.store.SetError(ModeratorID, e.Message)
			c.isSynthesizing = false
			delete(c.speaking, ModeratorID)
			c.phase = phaseError

		case stream.CouncilFailure:
			c.haltSession(e.Message)
		}
	})
}

// formatRankings renders the stage-2 aggregate as numbered lines.
func formatRankings(rankings []stream.AggregateRanking) string {
	lines := make([]string, 0, len(rankings))
	for i, r := range rankings {
		lines = append(lines, fmt.Sprintf("%d. %s (avg: %.1f, votes: %d)",
			i+1, r.ModelName, r.AverageRank, r.VotesCount))
	}
	return strings.Join(lines, "\n")
}
