// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides unified configuration loading and management
// for shipctl.
//
// Supports both TOML and JSON configuration formats, with sensible
// defaults, environment variable overrides, and validation.
//
// # Key Types
//
//   - Config: Main configuration structure with all settings
//   - SessionConfig: Multi-model session defaults
//   - GitHubConfig: Actions deployment settings
//   - Watcher: Debounced live reload on config file changes
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (SHIPCTL_*)
//   - ~/.shipctl/config.toml
//   - ~/.shipctl/config.json
//   - Built-in defaults
//
// # Usage
//
// Load configuration:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Access settings:
//
//	mode := cfg.Session.DefaultMode
//	baseURL := cfg.Backend.BaseURL
package config
