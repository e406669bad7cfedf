// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package backend

import (
	"context"
	"errors"
	"io"

	"github.com/jeranaias/shipctl-tui/internal/stream"
)

// Endpoint paths for the four per-mode streaming POSTs.
const (
	compareStreamPath     = "/api/chat/stream"
	councilStreamPath     = "/api/council/stream"
	roundtableStreamPath  = "/api/discussion/stream"
	personalityStreamPath = "/api/personality/stream"
)

// decodeFunc turns one raw SSE data payload into a typed event for its
// mode, or ErrUnknownEvent for discriminators this client does not know.
type decodeFunc[E any] func(data []byte) (E, error)

// runStream reads SSE events from body until EOF or context
// cancellation, decoding each and handing it to apply. Unknown event
// types are skipped: the backend is free to add events this client has
// not learned yet.
func runStream[E any](ctx context.Context, body io.ReadCloser, decode decodeFunc[E], apply func(E)) error {
	defer body.Close()

	reader := stream.NewSSEReader(body)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		data, err := reader.ReadEvent()
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}

		ev, err := decode(data)
		if err != nil {
			if errors.Is(err, stream.ErrUnknownEvent) {
				continue
			}
			// Malformed JSON mid-stream is skipped too; one bad line
			// must not kill four models' worth of progress.
			continue
		}

		apply(ev)
	}
}

// StreamCompare opens the parallel chat stream and calls apply for each
// decoded event until the stream ends or ctx is cancelled.
func (c *Client) StreamCompare(ctx context.Context, req CompareRequest, apply func(stream.CompareEvent)) error {
	body, err := c.openStream(ctx, compareStreamPath, req)
	if err != nil {
		return err
	}
	return runStream(ctx, body, stream.DecodeCompare, apply)
}

// StreamCouncil opens the three-stage council stream.
func (c *Client) StreamCouncil(ctx context.Context, req CouncilRequest, apply func(stream.CouncilEvent)) error {
	body, err := c.openStream(ctx, councilStreamPath, req)
	if err != nil {
		return err
	}
	return runStream(ctx, body, stream.DecodeCouncil, apply)
}

// StreamRoundtable opens the moderator-led discussion stream.
func (c *Client) StreamRoundtable(ctx context.Context, req RoundtableRequest, apply func(stream.RoundtableEvent)) error {
	body, err := c.openStream(ctx, roundtableStreamPath, req)
	if err != nil {
		return err
	}
	return runStream(ctx, body, stream.DecodeRoundtable, apply)
}

// StreamPersonality opens the persona generation stream.
func (c *Client) StreamPersonality(ctx context.Context, req PersonalityRequest, apply func(stream.PersonalityEvent)) error {
	body, err := c.openStream(ctx, personalityStreamPath, req)
	if err != nil {
		return err
	}
	return runStream(ctx, body, stream.DecodePersonality, apply)
}
