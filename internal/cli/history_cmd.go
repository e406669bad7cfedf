// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// history_cmd.go - Saved transcript management for the shipctl CLI.
//
// Subcommands:
//   shipctl history list              List saved transcripts
//   shipctl history show <id>         Show a transcript
//   shipctl history search <query>    Full-text search via the archive
//   shipctl history export <id>       Export (--format json|md)
//   shipctl history delete <id>       Delete a transcript
package cli

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/jeranaias/shipctl-tui/internal/archive"
	"github.com/jeranaias/shipctl-tui/internal/storage"
)

// HandleHistory handles the "history" command.
func HandleHistory(args Args) error {
	store, err := storage.NewTranscriptStore()
	if err != nil {
		return WrapError(err, "failed to open transcript store")
	}

	switch args.Subcommand {
	case "", "list", "ls":
		return historyList(store, args)
	case "show":
		return historyShow(store, args)
	case "search":
		return historySearch(store, args)
	case "export":
		return historyExport(store, args)
	case "delete", "rm":
		return historyDelete(store, args)
	default:
		return NewValidationError("subcommand", args.Subcommand,
			"expected one of: list, show, search, export, delete")
	}
}

func historyList(store *storage.TranscriptStore, args Args) error {
	metas, err := store.List()
	if err != nil {
		return err
	}

	if args.JSON {
		return NewJSONResponse("history list", metas).Print()
	}

	if len(metas) == 0 {
		fmt.Println(DimStyle.Render("no saved transcripts"))
		return nil
	}
	fmt.Print(storage.FormatTranscriptList(metas))
	return nil
}

// resolveTranscript loads by id, or by 1-based list index when the
// argument is a small number.
func resolveTranscript(store *storage.TranscriptStore, ref string) (*storage.Transcript, error) {
	if ref == "" {
		return nil, ErrMissingArgument("id", "shipctl history show <id>")
	}

	if n, err := strconv.Atoi(ref); err == nil {
		tr, err := store.LoadByIndex(n)
		if err == nil {
			return tr, nil
		}
	}

	tr, err := store.Load(ref)
	if errors.Is(err, storage.ErrTranscriptNotFound) {
		return nil, ErrNotFound("transcript", ref)
	}
	return tr, err
}

func historyShow(store *storage.TranscriptStore, args Args) error {
	tr, err := resolveTranscript(store, args.Query)
	if err != nil {
		return err
	}

	if args.JSON {
		return NewJSONResponse("history show", tr).Print()
	}

	displayResponse(tr.ExportMarkdown())
	return nil
}

func historySearch(store *storage.TranscriptStore, args Args) error {
	if args.Query == "" {
		return ErrMissingArgument("query", `shipctl history search "rate limiter"`)
	}

	dbPath, err := archive.DefaultPath()
	if err != nil {
		return err
	}
	arc, err := archive.Open(dbPath)
	if err != nil {
		return WrapError(err, "failed to open archive")
	}
	defer arc.Close()

	// Mirror any transcripts saved since the last search.
	if _, err := arc.Sync(store); err != nil {
		return WrapError(err, "failed to sync archive")
	}

	results, err := arc.Search(args.Query, args.IntOption("limit", 20))
	if err != nil {
		return err
	}

	if args.JSON {
		return NewJSONResponse("history search", results).Print()
	}

	if len(results) == 0 {
		fmt.Println(DimStyle.Render("no matches"))
		return nil
	}
	for _, r := range results {
		fmt.Printf("%s %s %s\n",
			HighlightStyle.Render(shortID(r.TranscriptID)),
			ModelNameStyle.Render(r.Title),
			DimStyle.Render(fmt.Sprintf("(%s, entry %d, %s)", r.Mode, r.Seq, r.Role)))
		fmt.Printf("  %s\n", r.Snippet)
	}
	return nil
}

func historyExport(store *storage.TranscriptStore, args Args) error {
	tr, err := resolveTranscript(store, args.Query)
	if err != nil {
		return err
	}

	format := args.Options["format"]
	switch format {
	case "json":
		out, err := tr.ExportJSON()
		if err != nil {
			return err
		}
		fmt.Println(string(out))
	case "", "md", "markdown":
		fmt.Print(tr.ExportMarkdown())
	default:
		return NewValidationError("format", format, "supported formats: json, md")
	}
	return nil
}

func historyDelete(store *storage.TranscriptStore, args Args) error {
	tr, err := resolveTranscript(store, args.Query)
	if err != nil {
		return err
	}

	if err := store.Delete(tr.ID); err != nil {
		return err
	}

	// Best-effort removal from the search archive.
	if dbPath, err := archive.DefaultPath(); err == nil {
		if arc, err := archive.Open(dbPath); err == nil {
			arc.Remove(tr.ID)
			arc.Close()
		}
	}

	fmt.Printf("deleted transcript %s\n", tr.ID)
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
