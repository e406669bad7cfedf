// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// ask.go - Single query command handler for the shipctl CLI.
//
// Handles "shipctl ask" which runs one round of the selected session
// mode and prints the results.
//
// Examples:
//   shipctl ask "What is a goroutine?"
//   shipctl ask --mode compare --models qwen3-coder,gpt-4o "Sort in place"
//   shipctl ask "Review this:" --file main.go
//   shipctl ask --mode council --save "Best caching strategy?"
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/glamour"

	"github.com/jeranaias/shipctl-tui/internal/model"
)

// MaxFileSize is the maximum file size to include with a question (50KB).
const MaxFileSize = 50 * 1024

// =============================================================================
// MARKDOWN RENDERING
// =============================================================================

// markdownRenderer is the global glamour renderer for markdown output.
var markdownRenderer *glamour.TermRenderer

func init() {
	var err error
	markdownRenderer, err = glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)
	if err != nil {
		// Fall back to plain text if renderer initialization fails
		markdownRenderer = nil
	}
}

// renderMarkdown renders markdown content for terminal display. Returns
// the content unchanged if rendering fails.
func renderMarkdown(content string) string {
	if markdownRenderer == nil {
		return content
	}
	rendered, err := markdownRenderer.Render(content)
	if err != nil {
		return content
	}
	return rendered
}

// displayResponse prints a response with markdown rendering when stdout
// is a TTY, plain otherwise so piped output stays clean.
func displayResponse(response string) {
	if IsStdoutTTY() {
		fmt.Print(renderMarkdown(response))
	} else {
		fmt.Println(response)
	}
}

// =============================================================================
// FILE CONTEXT
// =============================================================================

// readFileForContext reads a file and formats it for inclusion in a
// prompt. Files larger than MaxFileSize are rejected.
func readFileForContext(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("file not found: %s", path)
		}
		return "", fmt.Errorf("cannot access file: %w", err)
	}

	if info.Size() > MaxFileSize {
		return "", fmt.Errorf("file too large: %d bytes (max %d bytes)", info.Size(), MaxFileSize)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}

	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("\n--- File: %s ---\n", path))
	builder.WriteString(string(content))
	builder.WriteString("\n--- End of file ---\n")
	return builder.String(), nil
}

// =============================================================================
// ASK COMMAND
// =============================================================================

// HandleAskCommand runs one session round for a single question.
func HandleAskCommand(args Args) error {
	if args.Query == "" {
		return ErrMissingArgument("question", `shipctl ask "What is a goroutine?"`)
	}

	ctx, cancel := signalContext()
	defer cancel()

	pg, err := NewPlayground(ctx, args)
	if err != nil {
		return err
	}

	query := args.Query
	if args.File != "" {
		fileContext, err := readFileForContext(args.File)
		if err != nil {
			return err
		}
		query += "\n" + fileContext
	}

	if !args.Quiet && !args.JSON {
		fmt.Printf("%s %s | %s\n\n",
			DimStyle.Render("mode:"),
			HighlightStyle.Render(pg.Controller.Mode().String()),
			DimStyle.Render(strings.Join(pg.Controller.Participants(), ", ")))
	}

	start := time.Now()
	if err := pg.Controller.SendMessage(ctx, query, pg.SendOptions(args)); err != nil {
		return err
	}
	elapsed := time.Since(start)

	if args.JSON {
		return printAskJSON(pg, elapsed, args)
	}

	printRoundResults(pg, args.Verbose)

	if args.Options["save"] == "true" {
		id, err := pg.SaveTranscript()
		if err != nil {
			return WrapError(err, "failed to save transcript")
		}
		fmt.Printf("\n%s %s\n", DimStyle.Render("saved transcript:"), id)
	}

	if !args.Quiet {
		fmt.Printf("\n%s\n", DimStyle.Render(fmt.Sprintf("completed in %.1fs", elapsed.Seconds())))
	}
	return nil
}

// printAskJSON emits the round's responses in the JSON envelope.
func printAskJSON(pg *Playground, elapsed time.Duration, args Args) error {
	responses := make(map[string]string)
	for _, card := range pg.Controller.Cards() {
		if card.State.Failed() {
			responses[card.Model.ID] = "ERROR: " + card.State.Err
		} else {
			responses[card.Model.ID] = card.State.Response
		}
	}

	data := AskData{
		Mode:       pg.Controller.Mode().String(),
		Responses:  responses,
		DurationMs: elapsed.Milliseconds(),
	}
	if args.Options["save"] == "true" {
		if id, err := pg.SaveTranscript(); err == nil {
			data.Saved = id
		}
	}
	return NewJSONResponse("ask", data).Print()
}

// printRoundResults prints the finished round, per mode.
func printRoundResults(pg *Playground, verbose bool) {
	mode := pg.Controller.Mode()
	cards := pg.Controller.Cards()

	// Chat mode: one stream, no header needed.
	if mode == model.ModeChat && len(cards) == 1 {
		printCard(cards[0], false, verbose, pg)
		return
	}

	for i, card := range cards {
		if i > 0 {
			fmt.Println(RenderSeparator())
		}
		printCard(card, true, verbose, pg)
	}

	// Council publishes rankings after stage 2.
	if rankings := pg.Controller.Rankings(); len(rankings) > 0 {
		fmt.Println(SectionStyle.Render("Peer Rankings"))
		for i, r := range rankings {
			fmt.Printf("  %d. %s (avg rank %.2f, %d votes)\n",
				i+1, r.ModelName, r.AverageRank, r.VotesCount)
		}
	}
}

// printCard prints one model's result.
func printCard(card model.Card, withHeader, verbose bool, pg *Playground) {
	if withHeader {
		header := ModelNameStyle.Render(card.Model.Name)
		if card.State.PersonaName != "" {
			header += " " + DimStyle.Render(
				fmt.Sprintf("%s %s (%s)", card.State.PersonaEmoji, card.State.PersonaName, card.State.PersonaTrait))
		}
		if t, ok := pg.Controller.Timing(card.Model.ID); ok && t.Ended() {
			header += " " + DimStyle.Render(fmt.Sprintf("%.1fs", float64(t.EndMs-t.StartMs)/1000))
		}
		fmt.Println(header)
	}

	if card.State.Failed() {
		fmt.Printf("%s %s\n", ErrorStyle.Render("[ERROR]"), card.State.Err)
		return
	}

	if verbose && card.State.Thinking != "" {
		fmt.Println(ThinkingStyle.Render(WrapText(card.State.Thinking, 0)))
		fmt.Println()
	}

	displayResponse(card.State.Response)
}

// signalContext returns a context cancelled on SIGINT/SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
