// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - CLI parsing and command dispatch for shipctl.
package cli

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.3.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdTUI Command = iota
	CmdAsk
	CmdChat
	CmdModels
	CmdStatus
	CmdDeploy
	CmdServe
	CmdHistory
	CmdConfig
	CmdVersion
	CmdHelp
)

// Args holds parsed CLI arguments.
type Args struct {
	// Global flags
	Quiet   bool
	Verbose bool
	JSON    bool
	Mode    string // Session mode (chat/compare/council/roundtable/personality)
	Models  string // Comma-separated participant model ids
	Backend string // Backend base URL override

	// Command-specific
	Query      string
	File       string
	ConfigKey  string
	ConfigVal  string
	Subcommand string

	// Raw args (remaining after flag parsing)
	Raw []string

	// Options holds command-specific named options (e.g., --lines, --format)
	Options map[string]string
}

const usageText = `shipctl - multi-model AI playground for the terminal

Shipctl drives a model playground backend from the command line:
parallel comparisons, council deliberation, moderated roundtables,
and personality sessions across multiple models at once.

Usage:
  shipctl                      Start TUI (default)
  shipctl ask "question"       Ask a single question
  shipctl chat                 Interactive chat REPL
  shipctl models               List available models
  shipctl status, s            Show backend and panel status
  shipctl deploy [subcommand]  Trigger and track a deployment
  shipctl serve [subcommand]   Run the panel control server
  shipctl history [subcommand] Saved transcript management
  shipctl config [show|get|set] Configuration
  shipctl version              Show version
  shipctl help                 Show this help

Ask Command:
  shipctl ask "prompt"              Single question (chat mode)
  shipctl ask --mode compare "p"    Run all participants in parallel
  shipctl ask --mode council "p"    Three-stage deliberation
  shipctl ask --models a,b,c "p"    Choose participants
  shipctl ask "Review:" --file x.go Include a file with the question
    --max-tokens N                  Token budget per model
    --save                          Save the transcript

Chat Commands (inside the REPL):
  /mode [name]        Show or switch session mode
  /models [a,b,c]     Show or set participants
  /clear              Clear conversation history
  /save               Save transcript
  /status             Session statistics
  /quit, /q           Exit

Deploy Commands:
  shipctl deploy                    Dispatch workflow and track to health
  shipctl deploy status             Show latest workflow run
  shipctl deploy workflows          List repository workflows
    --workflow FILE                 Workflow file (default from config)
    --ref REF                       Git ref to deploy (default from config)

Serve Commands:
  shipctl serve                     Run the panel control server
    --port N                        Listen port (default 8765)
  shipctl serve start [mode]        Start the backend process
  shipctl serve stop                Stop the backend process
  shipctl serve logs [--lines N]    Tail the backend log
  shipctl serve make TARGET         Run an allowed make target

History Commands:
  shipctl history list              List saved transcripts
  shipctl history show <id>         Show a transcript
  shipctl history search <query>    Full-text search over transcripts
  shipctl history export <id>       Export a transcript
    --format json|md                Export format (default: md)
  shipctl history delete <id>       Delete a transcript

Global Flags:
  -q, --quiet     Minimal output
  -v, --verbose   Debug output
  --json          Output in JSON format
  --mode NAME     Session mode override
  --models LIST   Comma-separated participant ids
  --backend URL   Backend base URL override

Examples:
  shipctl                                   Start TUI interface
  shipctl ask "What is a goroutine?"        Ask a single question
  shipctl ask --mode compare --models qwen3-coder,gpt-4o "Sort in place"
  shipctl chat --mode roundtable            Moderated roundtable REPL
  shipctl status                            Check backend health
  shipctl deploy --workflow deploy.yml      Trigger a deployment
  shipctl serve --port 8765                 Run the panel server
  shipctl history search "rate limiter"     Search saved transcripts
  shipctl config set session.default_mode council

Version: %s
`

// PrintUsage prints the usage/help text.
func PrintUsage() {
	fmt.Printf(usageText, Version)
}

// PrintVersion prints version information.
func PrintVersion() {
	fmt.Printf("shipctl version %s\n", Version)
	fmt.Printf("  Git commit: %s\n", GitCommit)
	fmt.Printf("  Build date: %s\n", BuildDate)
}

// Parse parses command-line arguments and returns the command and args.
func Parse() (Command, Args) {
	return parseArgs(os.Args[1:])
}

// parseArgs is the testable core of Parse.
func parseArgs(args []string) (Command, Args) {
	remaining, parsedArgs := parseGlobalFlags(args)

	if len(remaining) == 0 {
		return CmdTUI, parsedArgs
	}

	cmd := strings.ToLower(remaining[0])
	remaining = remaining[1:]
	parsedArgs.Raw = remaining

	switch cmd {
	case "tui":
		return CmdTUI, parsedArgs

	case "ask":
		parseAskArgs(&parsedArgs, remaining)
		return CmdAsk, parsedArgs

	case "chat":
		return CmdChat, parsedArgs

	case "models", "model":
		return CmdModels, parsedArgs

	case "status", "s":
		return CmdStatus, parsedArgs

	case "deploy":
		parseSubcommandArgs(&parsedArgs, remaining)
		return CmdDeploy, parsedArgs

	case "serve", "server", "panel":
		parseSubcommandArgs(&parsedArgs, remaining)
		return CmdServe, parsedArgs

	case "history", "transcripts":
		parseHistoryArgs(&parsedArgs, remaining)
		return CmdHistory, parsedArgs

	case "config":
		parseConfigArgs(&parsedArgs, remaining)
		return CmdConfig, parsedArgs

	case "version", "-v", "--version":
		return CmdVersion, parsedArgs

	case "help", "-h", "--help":
		return CmdHelp, parsedArgs

	default:
		// Unknown command - could be a direct prompt, treat it as ask.
		parseAskArgs(&parsedArgs, append([]string{cmd}, remaining...))
		return CmdAsk, parsedArgs
	}
}

// parseGlobalFlags extracts global flags from args and returns remaining args.
func parseGlobalFlags(args []string) ([]string, Args) {
	var remaining []string
	parsedArgs := Args{
		Options: make(map[string]string),
	}

	i := 0
	for i < len(args) {
		arg := args[i]

		switch arg {
		case "-q", "--quiet":
			parsedArgs.Quiet = true
		case "-v", "--verbose":
			parsedArgs.Verbose = true
		case "--json":
			parsedArgs.JSON = true
		case "--mode":
			if i+1 < len(args) {
				i++
				parsedArgs.Mode = args[i]
			}
		case "--models":
			if i+1 < len(args) {
				i++
				parsedArgs.Models = args[i]
			}
		case "--backend":
			if i+1 < len(args) {
				i++
				parsedArgs.Backend = args[i]
			}
		default:
			switch {
			case strings.HasPrefix(arg, "--mode="):
				parsedArgs.Mode = strings.TrimPrefix(arg, "--mode=")
			case strings.HasPrefix(arg, "--models="):
				parsedArgs.Models = strings.TrimPrefix(arg, "--models=")
			case strings.HasPrefix(arg, "--backend="):
				parsedArgs.Backend = strings.TrimPrefix(arg, "--backend=")
			default:
				remaining = append(remaining, arg)
			}
		}
		i++
	}

	return remaining, parsedArgs
}

// parseAskArgs parses ask command specific arguments.
func parseAskArgs(args *Args, remaining []string) {
	var query []string

	i := 0
	for i < len(remaining) {
		arg := remaining[i]

		switch arg {
		case "-f", "--file":
			if i+1 < len(remaining) {
				i++
				args.File = remaining[i]
			}
		case "--max-tokens":
			if i+1 < len(remaining) {
				i++
				args.Options["max-tokens"] = remaining[i]
			}
		case "--turns":
			if i+1 < len(remaining) {
				i++
				args.Options["turns"] = remaining[i]
			}
		case "--save":
			args.Options["save"] = "true"
		default:
			switch {
			case strings.HasPrefix(arg, "--file="):
				args.File = strings.TrimPrefix(arg, "--file=")
			case strings.HasPrefix(arg, "--max-tokens="):
				args.Options["max-tokens"] = strings.TrimPrefix(arg, "--max-tokens=")
			case strings.HasPrefix(arg, "--turns="):
				args.Options["turns"] = strings.TrimPrefix(arg, "--turns=")
			case !strings.HasPrefix(arg, "-"):
				query = append(query, arg)
			}
		}
		i++
	}

	args.Query = strings.Join(query, " ")
}

// parseSubcommandArgs captures the first positional arg as a subcommand
// plus any --key value / --key=value options.
func parseSubcommandArgs(args *Args, remaining []string) {
	for i := 0; i < len(remaining); i++ {
		arg := remaining[i]
		switch {
		case strings.HasPrefix(arg, "--"):
			name := strings.TrimPrefix(arg, "--")
			if eq := strings.Index(name, "="); eq >= 0 {
				args.Options[name[:eq]] = name[eq+1:]
			} else if i+1 < len(remaining) && !strings.HasPrefix(remaining[i+1], "-") {
				args.Options[name] = remaining[i+1]
				i++
			} else {
				args.Options[name] = "true"
			}
		case args.Subcommand == "":
			args.Subcommand = arg
		default:
			args.Raw = append(args.Raw[:0], remaining[i:]...)
			return
		}
	}
}

// parseHistoryArgs parses history command arguments: subcommand, then a
// query/id captured into Query, then named options.
func parseHistoryArgs(args *Args, remaining []string) {
	var positional []string
	for i := 0; i < len(remaining); i++ {
		arg := remaining[i]
		switch {
		case strings.HasPrefix(arg, "--"):
			name := strings.TrimPrefix(arg, "--")
			if eq := strings.Index(name, "="); eq >= 0 {
				args.Options[name[:eq]] = name[eq+1:]
			} else if i+1 < len(remaining) && !strings.HasPrefix(remaining[i+1], "-") {
				args.Options[name] = remaining[i+1]
				i++
			} else {
				args.Options[name] = "true"
			}
		default:
			positional = append(positional, arg)
		}
	}
	if len(positional) > 0 {
		args.Subcommand = positional[0]
		args.Query = strings.Join(positional[1:], " ")
	}
}

// parseConfigArgs parses config command specific arguments.
func parseConfigArgs(args *Args, remaining []string) {
	if len(remaining) > 0 {
		args.Subcommand = remaining[0]
		if len(remaining) > 1 {
			args.ConfigKey = remaining[1]
		}
		if len(remaining) > 2 {
			args.ConfigVal = remaining[2]
		}
	}
}

// IntOption returns a named option parsed as int, or def when absent or
// malformed.
func (a Args) IntOption(name string, def int) int {
	if v, ok := a.Options[name]; ok {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

// ParticipantList splits the --models flag into ids.
func (a Args) ParticipantList() []string {
	if a.Models == "" {
		return nil
	}
	var ids []string
	for _, id := range strings.Split(a.Models, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

// =============================================================================
// COMMAND HANDLERS
// =============================================================================

// HandleAsk handles the "ask" command.
func HandleAsk(args Args) {
	if err := HandleAskCommand(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(GetExitCode(err))
	}
}

// HandleChat handles the "chat" command.
func HandleChat(args Args) {
	if err := HandleChatCommand(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(GetExitCode(err))
	}
}

// HandleVersion handles the "version" command.
func HandleVersion(args Args) {
	if args.JSON {
		data := VersionData{
			Version:   Version,
			GitCommit: GitCommit,
			BuildDate: BuildDate,
			GoVersion: runtime.Version(),
		}
		resp := NewJSONResponse("version", data)
		resp.Print()
		return
	}
	PrintVersion()
}

// HandleHelp handles the "help" command.
func HandleHelp() {
	PrintUsage()
}
