// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// chat.go - Interactive chat command handler for the shipctl CLI.
//
// Handles "shipctl chat", a REPL over the session controller. Mode can
// be switched mid-conversation; the ledger's carryover rules decide what
// history the new mode sees.
//
// Interactive Commands:
//   /help, /h           Show available commands
//   /mode [name]        Show or switch session mode
//   /models [a,b,c]     Show or set participants
//   /clear, /c          Clear conversation history
//   /save               Save transcript
//   /history            Show conversation history
//   /status, /s         Show session statistics
//   /quit, /q           Exit chat
//   Ctrl+C              Cancel current generation
//   Ctrl+D              Exit chat
package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/peterh/liner"

	"github.com/jeranaias/shipctl-tui/internal/config"
	"github.com/jeranaias/shipctl-tui/internal/history"
	"github.com/jeranaias/shipctl-tui/internal/model"
)

// =============================================================================
// INPUT HISTORY
// =============================================================================

// ChatInput provides line editing and input history for the REPL.
type ChatInput struct {
	line        *liner.State
	historyFile string
}

// NewChatInput creates a ChatInput with persistent history.
func NewChatInput() *ChatInput {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	configDir, err := config.ConfigDir()
	if err != nil {
		configDir = os.TempDir()
	}

	in := &ChatInput{
		line:        line,
		historyFile: filepath.Join(configDir, "chat_history"),
	}
	in.loadHistory()
	return in
}

func (c *ChatInput) loadHistory() {
	if f, err := os.Open(c.historyFile); err == nil {
		c.line.ReadHistory(f)
		f.Close()
	}
}

// ReadInput reads a line with the given prompt; arrow keys navigate
// history.
func (c *ChatInput) ReadInput(prompt string) (string, error) {
	input, err := c.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		c.line.AppendHistory(input)
	}
	return input, nil
}

func (c *ChatInput) saveHistory() {
	if err := config.EnsureConfigDir(); err != nil {
		return
	}
	f, err := os.OpenFile(c.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return
	}
	defer f.Close()
	c.line.WriteHistory(f)
}

// Close saves history and restores the terminal.
func (c *ChatInput) Close() {
	c.saveHistory()
	c.line.Close()
}

// =============================================================================
// CHAT COMMAND
// =============================================================================

// HandleChatCommand runs the interactive chat REPL.
func HandleChatCommand(args Args) error {
	if err := RequiresTTY("chat"); err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	pg, err := NewPlayground(ctx, args)
	if err != nil {
		return err
	}

	input := NewChatInput()
	defer input.Close()

	startTime := time.Now()
	rounds := 0

	if !args.Quiet {
		printWelcome(pg)
	}

	for {
		text, err := input.ReadInput(PromptStyle.Render("> "))
		if err == liner.ErrPromptAborted {
			continue // Ctrl+C at the prompt: just redraw
		}
		if err != nil {
			fmt.Println()
			break // Ctrl+D or read failure
		}

		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}

		if strings.HasPrefix(text, "/") {
			if quit := handleChatSlashCommand(pg, text, startTime, rounds); quit {
				break
			}
			continue
		}

		// One round. A Ctrl+C during generation cancels the round but
		// keeps the REPL alive.
		roundCtx, roundCancel := signalContext()
		err = pg.Controller.SendMessage(roundCtx, text, pg.SendOptions(args))
		roundCancel()
		if err != nil {
			DisplayError(err, false)
			continue
		}

		rounds++
		fmt.Println()
		printRoundResults(pg, args.Verbose)
		fmt.Println()
	}

	if !args.Quiet {
		fmt.Printf("%s %d rounds in %.0fs\n",
			DimStyle.Render("session:"), rounds, time.Since(startTime).Seconds())
	}
	return nil
}

func printWelcome(pg *Playground) {
	fmt.Println(TitleStyle.Render("shipctl chat"))
	fmt.Printf("%s %s | %s\n",
		DimStyle.Render("mode:"),
		HighlightStyle.Render(pg.Controller.Mode().String()),
		DimStyle.Render(strings.Join(pg.Controller.Participants(), ", ")))
	fmt.Println(DimStyle.Render("Type /help for commands, Ctrl+D to exit."))
	fmt.Println()
}

// handleChatSlashCommand dispatches a slash command; returns true to
// exit the REPL.
func handleChatSlashCommand(pg *Playground, text string, startTime time.Time, rounds int) bool {
	fields := strings.Fields(text)
	cmd := strings.ToLower(fields[0])
	rest := fields[1:]

	switch cmd {
	case "/quit", "/q", "/exit":
		return true

	case "/help", "/h":
		fmt.Println(`Commands:
  /mode [name]     Show or switch mode (chat/compare/council/roundtable/personality)
  /models [a,b,c]  Show or set participants
  /clear, /c       Clear conversation history
  /save            Save transcript
  /history         Show conversation history
  /status, /s      Session statistics
  /quit, /q        Exit`)

	case "/mode":
		if len(rest) == 0 {
			fmt.Printf("mode: %s\n", pg.Controller.Mode())
			break
		}
		m, err := model.ParseMode(rest[0])
		if err != nil {
			DisplayError(err, false)
			break
		}
		if len(pg.Controller.Participants()) < m.MinParticipants() {
			fmt.Println(WarningStyle.Render(
				fmt.Sprintf("%s mode needs at least %d participants; use /models first", m, m.MinParticipants())))
			break
		}
		pg.Controller.SetMode(m)
		fmt.Printf("switched to %s mode\n", HighlightStyle.Render(m.String()))

	case "/models", "/model":
		if len(rest) == 0 {
			fmt.Printf("participants: %s\n", strings.Join(pg.Controller.Participants(), ", "))
			break
		}
		var ids []string
		for _, id := range strings.Split(strings.Join(rest, ","), ",") {
			if id = strings.TrimSpace(id); id != "" {
				ids = append(ids, id)
			}
		}
		for _, id := range ids {
			if _, ok := pg.Store.Get(id); !ok {
				DisplayError(ErrNotFound("model", id), false)
				return false
			}
		}
		if len(ids) < pg.Controller.Mode().MinParticipants() {
			fmt.Println(WarningStyle.Render(fmt.Sprintf(
				"%s mode needs at least %d participants", pg.Controller.Mode(), pg.Controller.Mode().MinParticipants())))
			break
		}
		pg.Controller.SetParticipants(ids)
		fmt.Printf("participants: %s\n", strings.Join(ids, ", "))

	case "/clear", "/c":
		pg.Controller.ClearHistory()
		fmt.Println("history cleared")

	case "/save":
		id, err := pg.SaveTranscript()
		if err != nil {
			DisplayError(err, false)
			break
		}
		fmt.Printf("saved transcript %s\n", id)

	case "/history":
		entries := pg.Ledger.Entries()
		if len(entries) == 0 {
			fmt.Println(DimStyle.Render("(empty)"))
			break
		}
		fmt.Print(history.ToText(entries))
		fmt.Println()

	case "/status", "/s":
		fmt.Printf("%s %s\n", RenderLabel("Mode"), pg.Controller.Mode())
		fmt.Printf("%s %s\n", RenderLabel("Participants"), strings.Join(pg.Controller.Participants(), ", "))
		fmt.Printf("%s %d\n", RenderLabel("Rounds"), rounds)
		fmt.Printf("%s %d\n", RenderLabel("Ledger entries"), pg.Ledger.Len())
		fmt.Printf("%s %.0fs\n", RenderLabel("Elapsed"), time.Since(startTime).Seconds())

	default:
		fmt.Println(WarningStyle.Render("unknown command " + cmd + " (try /help)"))
	}
	return false
}
