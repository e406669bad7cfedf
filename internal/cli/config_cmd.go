// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// config_cmd.go - Configuration command handlers for the shipctl CLI.
//
// Subcommands:
//   shipctl config show            Show current configuration
//   shipctl config get <key>       Get one value (dot notation)
//   shipctl config set <key> <val> Set one value and save
//   shipctl config path            Show the config file path
//   shipctl config keys            List settable keys
package cli

import (
	"fmt"

	"github.com/jeranaias/shipctl-tui/internal/config"
)

// HandleConfig handles the "config" command.
func HandleConfig(args Args) error {
	switch args.Subcommand {
	case "", "show":
		return configShow(args)

	case "get":
		if args.ConfigKey == "" {
			return ErrMissingArgument("key", "shipctl config get session.default_mode")
		}
		cfg := config.Global()
		value, err := cfg.Get(args.ConfigKey)
		if err != nil {
			return err
		}
		if args.JSON {
			return NewJSONResponse("config get", map[string]interface{}{args.ConfigKey: value}).Print()
		}
		fmt.Printf("%v\n", value)
		return nil

	case "set":
		if args.ConfigKey == "" || args.ConfigVal == "" {
			return ErrMissingArgument("key value", "shipctl config set session.default_mode council")
		}
		cfg := config.Global()
		if err := cfg.Set(args.ConfigKey, args.ConfigVal); err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		if err := config.Save(cfg); err != nil {
			return WrapError(err, "failed to save config")
		}
		fmt.Printf("%s %s = %s\n", SuccessStyle.Render("[OK]"), args.ConfigKey, args.ConfigVal)
		return nil

	case "path":
		path, err := config.ConfigPathTOML()
		if err != nil {
			return err
		}
		fmt.Println(path)
		return nil

	case "keys":
		for _, key := range config.GetAllKeys() {
			fmt.Println(key)
		}
		return nil

	default:
		return NewValidationError("subcommand", args.Subcommand,
			"expected one of: show, get, set, path, keys")
	}
}

func configShow(args Args) error {
	cfg := config.Global()

	if args.JSON {
		// String() redacts secrets.
		fmt.Println(cfg.String())
		return nil
	}

	path, _ := config.ConfigPathTOML()

	fmt.Println(TitleStyle.Render("shipctl configuration"))
	fmt.Printf("%s %s\n", RenderLabel("Config file"), DimStyle.Render(path))

	fmt.Println(SectionStyle.Render("Backend"))
	fmt.Printf("%s %s\n", RenderLabel("Base URL"), cfg.Backend.BaseURL)
	fmt.Printf("%s %d\n", RenderLabel("Max retries"), cfg.Backend.MaxRetries)

	fmt.Println(SectionStyle.Render("Session"))
	fmt.Printf("%s %s\n", RenderLabel("Default mode"), cfg.Session.DefaultMode)
	fmt.Printf("%s %v\n", RenderLabel("Participants"), cfg.Session.Participants)
	fmt.Printf("%s %d\n", RenderLabel("Max tokens"), cfg.Session.MaxTokens)
	fmt.Printf("%s %.1f\n", RenderLabel("Temperature"), cfg.Session.Temperature)
	fmt.Printf("%s %d\n", RenderLabel("Turns"), cfg.Session.Turns)

	fmt.Println(SectionStyle.Render("GitHub"))
	fmt.Printf("%s %v\n", RenderLabel("Token set"), cfg.GitHub.Token != "")
	fmt.Printf("%s %s/%s\n", RenderLabel("Repository"), cfg.GitHub.Owner, cfg.GitHub.Repo)
	fmt.Printf("%s %s @ %s\n", RenderLabel("Workflow"), cfg.GitHub.WorkflowFile, cfg.GitHub.Ref)

	fmt.Println(SectionStyle.Render("Panel"))
	fmt.Printf("%s %d\n", RenderLabel("Port"), cfg.Panel.Port)
	fmt.Printf("%s %v\n", RenderLabel("Auth token set"), cfg.Panel.AuthToken != "")

	fmt.Println(SectionStyle.Render("UI"))
	fmt.Printf("%s %s\n", RenderLabel("Theme"), cfg.UI.Theme)
	fmt.Printf("%s %v\n", RenderLabel("Show thinking"), cfg.UI.ShowThinking)

	return nil
}
