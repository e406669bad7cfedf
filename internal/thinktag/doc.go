// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package thinktag separates <think>...</think> reasoning markup from
// visible answer text in streamed model output.
//
// Reasoning models interleave internal deliberation with the final answer
// using think tags, and streaming delivers the text in arbitrarily sized
// chunks, so a tag can be split across two chunks. The Splitter keeps
// carry-over state per model stream and defers a trailing partial tag to
// the next chunk instead of leaking it into the answer.
//
// # Usage
//
//	var s thinktag.Splitter
//	for chunk := range tokens {
//		answer, thinking := s.Feed(chunk)
//		// append answer / thinking to the model's buffers
//	}
package thinktag
