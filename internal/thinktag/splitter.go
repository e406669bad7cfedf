// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package thinktag

import "strings"

// Tag markers emitted by reasoning-capable models.
const (
	openTag  = "<think>"
	closeTag = "</think>"
)

// maxTagCarry is the longest tag prefix worth deferring across a chunk
// boundary. len("</think>") == 8, so a trailing "<" within the final 8
// bytes may still grow into a complete tag on the next chunk.
const maxTagCarry = 8

// Splitter incrementally separates <think>...</think> markup from visible
// answer text. Chunks may split a tag at any byte boundary; the splitter
// defers a trailing partial tag to the next Feed call rather than emitting
// it as answer text.
//
// A Splitter is stateful and belongs to exactly one model's stream. The
// zero value is ready to use.
type Splitter struct {
	inThink bool
	carry   string
}

// Feed consumes the next raw chunk and returns the text to append to the
// answer and thinking buffers respectively. Either return value may be
// empty.
func (s *Splitter) Feed(chunk string) (answerAdd, thinkingAdd string) {
	buf := s.carry + chunk
	s.carry = ""

	var answer, thinking strings.Builder

	// Consume complete tags, emitting the text between them to the bucket
	// matching the state the scanner was in when it saw that text.
	for {
		if s.inThink {
			i := strings.Index(buf, closeTag)
			if i < 0 {
				break
			}
			thinking.WriteString(buf[:i])
			buf = buf[i+len(closeTag):]
			s.inThink = false
		} else {
			i := strings.Index(buf, openTag)
			if i < 0 {
				break
			}
			answer.WriteString(buf[:i])
			buf = buf[i+len(openTag):]
			s.inThink = true
		}
	}

	// The tail may end in a partial tag. Defer it when the text from the
	// last "<" (within the final maxTagCarry bytes) is a prefix of either
	// tag; otherwise the tail is ordinary text.
	keep := len(buf)
	start := len(buf) - maxTagCarry
	if start < 0 {
		start = 0
	}
	if j := strings.LastIndex(buf[start:], "<"); j >= 0 {
		idx := start + j
		tail := buf[idx:]
		if strings.HasPrefix(openTag, tail) || strings.HasPrefix(closeTag, tail) {
			s.carry = tail
			keep = idx
		}
	}

	if s.inThink {
		thinking.WriteString(buf[:keep])
	} else {
		answer.WriteString(buf[:keep])
	}
	return answer.String(), thinking.String()
}

// InThink reports whether the scanner is currently inside a think block.
func (s *Splitter) InThink() bool {
	return s.inThink
}

// Reset returns the splitter to its initial state. Called at the start of
// every new session round for every participating model.
func (s *Splitter) Reset() {
	s.inThink = false
	s.carry = ""
}
