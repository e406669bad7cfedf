// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"strings"

	"github.com/jeranaias/shipctl-tui/internal/backend"
	"github.com/jeranaias/shipctl-tui/internal/history"
	"github.com/jeranaias/shipctl-tui/internal/model"
	"github.com/jeranaias/shipctl-tui/internal/stream"
)

// runCompare drives chat and compare sessions: every participant runs in
// parallel against the chat stream endpoint.
func (c *Controller) runCompare(ctx context.Context, gen uint64, text string, participants []string, contextEntries []history.Entry, opts SendOptions) error {
	req := backend.CompareRequest{
		Models:      participants,
		Messages:    entriesToMessages(contextEntries, text),
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.Temperature,
		GitHubToken: c.githubToken,
	}

	err := c.streamer.StreamCompare(ctx, req, func(ev stream.CompareEvent) {
		c.applyCompare(gen, ev)
	})
	if err != nil {
		return err
	}

	c.guard(gen, func() {
		c.acc.Flush()
		if !c.halted {
			c.finishCompareRound(participants)
		}
	})
	return nil
}

func (c *Controller) applyCompare(gen uint64, ev stream.CompareEvent) {
	c.guard(gen, func() {
		if c.halted {
			return
		}
		switch e := ev.(type) {
		case stream.CompareInfo:
			c.noteStatus(e.ModelID, e.Message)
		case stream.CompareToken:
			c.feedDelta(e.ModelID, e.Content)
		case stream.CompareDone:
			c.timing.RecordEnd(e.ModelID)
			delete(c.speaking, e.ModelID)
			c.ranker.RecordSuccess(e.ModelID)
		case stream.CompareFailure:
			if e.ModelID == "" {
				c.haltSession(e.Message)
				return
			}
			c.failModel(e.ModelID, e.Message)
		}
	})
}

// finishCompareRound appends the round's transcript entry. Chat mode
// records the single model's answer plainly; compare mode synthesizes a
// summary of every distinct successful response, participant order
// first, anything else after.
func (c *Controller) finishCompareRound(participants []string) {
	if c.mode == model.ModeChat {
		if len(participants) == 0 {
			return
		}
		st := c.store.State(participants[0])
		if st.HasContent() && !st.Failed() {
			c.ledger.Push(history.AssistantEntry("", st.Response))
		}
		return
	}

	var blocks []string
	seenModel := make(map[string]bool)
	seenText := make(map[string]bool)
	add := func(id string) {
		if seenModel[id] {
			return
		}
		seenModel[id] = true
		st := c.store.State(id)
		if st.Failed() || !st.HasContent() {
			return
		}
		if seenText[st.Response] {
			return
		}
		seenText[st.Response] = true
		blocks = append(blocks, c.store.Name(id)+":\n"+st.Response)
	}

	for _, id := range participants {
		add(id)
	}
	// Seeded responses from a restart may belong to models no longer in
	// the participant set; they still count.
	for id := range c.cached {
		add(id)
	}

	if len(blocks) > 0 {
		c.ledger.Push(history.AssistantEntry(history.KindCompareSummary, strings.Join(blocks, "\n\n")))
	}
}
