// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/jeranaias/shipctl-tui/internal/backend"
	"github.com/jeranaias/shipctl-tui/internal/history"
	"github.com/jeranaias/shipctl-tui/internal/stream"
)

// runPersonality drives the persona generation protocol: parallel like
// compare, but each chunk may carry persona metadata merged into model
// state as it arrives.
func (c *Controller) runPersonality(ctx context.Context, gen uint64, text string, participants []string, contextText string, opts SendOptions) error {
	req := backend.PersonalityRequest{
		Query:        buildQuery(contextText, text),
		Participants: participants,
		MaxTokens:    opts.MaxTokens,
		GitHubToken:  c.githubToken,
	}

	err := c.streamer.StreamPersonality(ctx, req, func(ev stream.PersonalityEvent) {
		c.applyPersonality(gen, ev)
	})
	if err != nil {
		return err
	}

	c.guard(gen, func() {
		c.acc.Flush()
	})
	return nil
}

func (c *Controller) applyPersonality(gen uint64, ev stream.PersonalityEvent) {
	c.guard(gen, func() {
		if c.halted {
			return
		}
		switch e := ev.(type) {
		case stream.PersonalityInfo:
			c.noteStatus(e.ModelID, e.Message)

		case stream.PersonalityChunk:
			c.store.MergePersona(e.ModelID, e.PersonaEmoji, e.PersonaName, e.PersonaTrait)
			c.feedDelta(e.ModelID, e.Content)

		case stream.PersonalityResponse:
			c.acc.ClearPendingForModel(e.ModelID)
			c.store.SetResponse(e.ModelID, e.Response)
			c.timing.RecordEnd(e.ModelID)
			delete(c.speaking, e.ModelID)
			c.ranker.RecordSuccess(e.ModelID)
			c.ledger.Push(history.AssistantEntry(history.KindPersonalityResponse,
				c.personaEntry(e.ModelID, e.Response)))

		case stream.PersonalityModelError:
			c.failModel(e.ModelID, e.Message)

		case stream.PersonalityDone:
			c.timing.RecordEnd(e.ModelID)
			delete(c.speaking, e.ModelID)

		case stream.PersonalityFailure:
			c.haltSession(e.Message)
		}
	})
}

// personaEntry renders the transcript line for one persona response:
// persona banner, model name, optional trait, then the response with any
// duplicate persona header stripped.
func (c *Controller) personaEntry(id, response string) string {
	st := c.store.State(id)
	header := fmt.Sprintf("%s **%s** (%s)", st.PersonaEmoji, st.PersonaName, c.store.Name(id))
	if st.PersonaTrait != "" {
		header += " - " + st.PersonaTrait
	}
	return header + "\n\n" + stripPersonaHeader(response)
}

// stripPersonaHeader drops a leading persona banner line from the raw
// response so it does not show twice in the transcript. Heuristic: the
// first line contains a hyphen and either bold markup or starts with a
// non-word character (usually an emoji).
func stripPersonaHeader(text string) string {
	first, rest, found := strings.Cut(text, "\n")
	if !found || !strings.Contains(first, "-") {
		return text
	}
	if !strings.Contains(first, "**") {
		r, _ := utf8.DecodeRuneInString(first)
		if r == utf8.RuneError || unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || unicode.IsSpace(r) {
			return text
		}
	}
	return strings.TrimLeft(rest, "\n")
}
