// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package thinktag

import (
	"strings"
	"testing"
)

// feedAll runs chunks through a fresh splitter and returns the combined
// answer and thinking output.
func feedAll(t *testing.T, chunks []string) (string, string) {
	t.Helper()
	var s Splitter
	var answer, thinking strings.Builder
	for _, c := range chunks {
		a, th := s.Feed(c)
		answer.WriteString(a)
		thinking.WriteString(th)
	}
	return answer.String(), thinking.String()
}

func TestFeedPlainText(t *testing.T) {
	answer, thinking := feedAll(t, []string{"hello ", "world"})
	if answer != "hello world" {
		t.Errorf("answer = %q, want %q", answer, "hello world")
	}
	if thinking != "" {
		t.Errorf("thinking = %q, want empty", thinking)
	}
}

func TestFeedCompleteTagsInOneChunk(t *testing.T) {
	answer, thinking := feedAll(t, []string{"a<think>b</think>c"})
	if answer != "ac" {
		t.Errorf("answer = %q, want %q", answer, "ac")
	}
	if thinking != "b" {
		t.Errorf("thinking = %q, want %q", thinking, "b")
	}
}

func TestFeedTagSplitAcrossChunks(t *testing.T) {
	// The documented worst case: both the opening and closing tag are
	// split across chunk boundaries.
	answer, thinking := feedAll(t, []string{"<thi", "nk>hello</thi", "nk>world"})
	if thinking != "hello" {
		t.Errorf("thinking = %q, want %q", thinking, "hello")
	}
	if answer != "world" {
		t.Errorf("answer = %q, want %q", answer, "world")
	}
}

func TestFeedSingleByteChunks(t *testing.T) {
	input := "pre<think>reasoning here</think>post<think>more</think>end"
	var chunks []string
	for _, r := range input {
		chunks = append(chunks, string(r))
	}
	answer, thinking := feedAll(t, chunks)
	if answer != "prepostend" {
		t.Errorf("answer = %q, want %q", answer, "prepostend")
	}
	if thinking != "reasoning heremore" {
		t.Errorf("thinking = %q, want %q", thinking, "reasoning heremore")
	}
}

// TestFeedChunkingInvariance verifies the round-trip property: any chunking
// of the same input yields the same partition as feeding it whole.
func TestFeedChunkingInvariance(t *testing.T) {
	input := "start<think>alpha</think>middle<think>beta</think>"
	wantAnswer, wantThinking := feedAll(t, []string{input})

	for size := 1; size <= len(input); size++ {
		var chunks []string
		for i := 0; i < len(input); i += size {
			end := i + size
			if end > len(input) {
				end = len(input)
			}
			chunks = append(chunks, input[i:end])
		}
		answer, thinking := feedAll(t, chunks)
		if answer != wantAnswer || thinking != wantThinking {
			t.Errorf("chunk size %d: got (%q, %q), want (%q, %q)",
				size, answer, thinking, wantAnswer, wantThinking)
		}
	}
}

func TestFeedUnterminatedThinkBlock(t *testing.T) {
	answer, thinking := feedAll(t, []string{"a<think>never closed"})
	if answer != "a" {
		t.Errorf("answer = %q, want %q", answer, "a")
	}
	if thinking != "never closed" {
		t.Errorf("thinking = %q, want %q", thinking, "never closed")
	}
}

func TestFeedLoneAngleBracketNotATag(t *testing.T) {
	// "<x" can never grow into a tag, so it must be emitted, not carried.
	answer, thinking := feedAll(t, []string{"1 <x 2", " 3"})
	if answer != "1 <x 2 3" {
		t.Errorf("answer = %q, want %q", answer, "1 <x 2 3")
	}
	if thinking != "" {
		t.Errorf("thinking = %q, want empty", thinking)
	}
}

func TestFeedTrailingPartialTagDeferred(t *testing.T) {
	var s Splitter
	answer, thinking := s.Feed("text<thin")
	if answer != "text" {
		t.Errorf("answer = %q, want %q (partial tag must be deferred)", answer, "text")
	}
	if thinking != "" {
		t.Errorf("thinking = %q, want empty", thinking)
	}

	// A chunk that disproves the tag releases the carried bytes.
	answer, _ = s.Feed("g done")
	if answer != "<thing done" {
		t.Errorf("answer = %q, want %q", answer, "<thing done")
	}
}

func TestReset(t *testing.T) {
	var s Splitter
	s.Feed("<think>open")
	if !s.InThink() {
		t.Fatal("expected splitter to be inside a think block")
	}
	s.Reset()
	if s.InThink() {
		t.Error("Reset should clear the in-think state")
	}
	answer, thinking := s.Feed("plain")
	if answer != "plain" || thinking != "" {
		t.Errorf("after Reset: got (%q, %q), want (%q, %q)", answer, thinking, "plain", "")
	}
}
