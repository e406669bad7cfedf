// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/BurntSushi/toml"
)

// TestConfig_ConcurrentAccess tests that Global(), SetGlobal(), and
// ReloadGlobal() can be safely called concurrently.
// Run with: go test -race -v ./internal/config/
func TestConfig_ConcurrentAccess(t *testing.T) {
	ResetGlobalForTesting()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)

		go func() {
			defer wg.Done()
			c := Default()
			c.Session.DefaultMode = "compare"
			SetGlobal(c)
		}()

		go func() {
			defer wg.Done()
			if Global() == nil {
				t.Error("Global() returned nil")
			}
		}()
	}
	wg.Wait()
}

func TestConfig_GlobalInitialization(t *testing.T) {
	ResetGlobalForTesting()

	cfg := Global()
	if cfg == nil {
		t.Fatal("Global() returned nil")
	}
	if cfg.Version == "" {
		t.Error("Config version should not be empty")
	}
	if cfg.Session.DefaultMode == "" {
		t.Error("Session default mode should not be empty")
	}
}

func TestDefaultValidates(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name  string
		edit  func(*Config)
		field string
	}{
		{"bad mode", func(c *Config) { c.Session.DefaultMode = "battle" }, "session.default_mode"},
		{"bad temperature", func(c *Config) { c.Session.Temperature = 3.5 }, "session.temperature"},
		{"bad backend url", func(c *Config) { c.Backend.BaseURL = "not a url" }, "backend.base_url"},
		{"bad port", func(c *Config) { c.Panel.Port = 99999 }, "panel.port"},
		{"bad theme", func(c *Config) { c.UI.Theme = "neon" }, "ui.theme"},
		{"too many turns", func(c *Config) { c.Session.Turns = 50 }, "session.turns"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.edit(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.field) {
				t.Fatalf("error %q should name field %s", err, tt.field)
			}
		})
	}
}

func TestTOMLRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	cfg := Default()
	cfg.Session.DefaultMode = "council"
	cfg.Session.Participants = []string{"qwen", "gpt-4o"}
	cfg.GitHub.Owner = "jeranaias"
	cfg.GitHub.Repo = "playground"

	// SaveTOML writes through the home config dir helper, so encode
	// directly for a path-local round trip.
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE, 0600)
	if err != nil {
		t.Fatal(err)
	}
	if err := toml.NewEncoder(file).Encode(cfg); err != nil {
		t.Fatal(err)
	}
	file.Close()

	loaded := &Config{}
	if err := LoadTOML(loaded, path); err != nil {
		t.Fatal(err)
	}
	if loaded.Session.DefaultMode != "council" {
		t.Errorf("DefaultMode = %q", loaded.Session.DefaultMode)
	}
	if len(loaded.Session.Participants) != 2 || loaded.Session.Participants[0] != "qwen" {
		t.Errorf("Participants = %v", loaded.Session.Participants)
	}
	if loaded.GitHub.Owner != "jeranaias" || loaded.GitHub.Repo != "playground" {
		t.Errorf("GitHub = %+v", loaded.GitHub)
	}
	// fillDefaults should have backfilled untouched sections.
	if loaded.Backend.BaseURL == "" {
		t.Error("backend base URL should be defaulted")
	}
}

func TestJSONRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")

	cfg := Default()
	cfg.Deploy.HealthURL = "http://localhost:8000/health"
	if err := SaveJSON(cfg, path); err != nil {
		t.Fatal(err)
	}

	loaded := &Config{}
	if err := LoadJSON(loaded, path); err != nil {
		t.Fatal(err)
	}
	if loaded.Deploy.HealthURL != "http://localhost:8000/health" {
		t.Errorf("HealthURL = %q", loaded.Deploy.HealthURL)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("SHIPCTL_BACKEND_URL", "http://10.0.0.5:9000")
	t.Setenv("SHIPCTL_MODE", "roundtable")
	t.Setenv("GITHUB_TOKEN", "ghp_conventional")
	t.Setenv("SHIPCTL_GITHUB_TOKEN", "ghp_specific")
	t.Setenv("SHIPCTL_PANEL_PORT", "9100")

	cfg := Default()
	cfg.ApplyEnvOverrides()

	if cfg.Backend.BaseURL != "http://10.0.0.5:9000" {
		t.Errorf("BaseURL = %q", cfg.Backend.BaseURL)
	}
	if cfg.Session.DefaultMode != "roundtable" {
		t.Errorf("DefaultMode = %q", cfg.Session.DefaultMode)
	}
	if cfg.GitHub.Token != "ghp_specific" {
		t.Errorf("shipctl-specific token should win, got %q", cfg.GitHub.Token)
	}
	if cfg.Panel.Port != 9100 {
		t.Errorf("Port = %d", cfg.Panel.Port)
	}
}

func TestGetSetDotNotation(t *testing.T) {
	cfg := Default()

	if err := cfg.Set("session.max_tokens", "4096"); err != nil {
		t.Fatal(err)
	}
	if cfg.Session.MaxTokens != 4096 {
		t.Errorf("MaxTokens = %d", cfg.Session.MaxTokens)
	}

	v, err := cfg.Get("session.max_tokens")
	if err != nil {
		t.Fatal(err)
	}
	if v.(int) != 4096 {
		t.Errorf("Get = %v", v)
	}

	if err := cfg.Set("ui.compact_mode", "true"); err != nil {
		t.Fatal(err)
	}
	if !cfg.UI.CompactMode {
		t.Error("CompactMode should be true")
	}

	if _, err := cfg.Get("nope.nothing"); err == nil {
		t.Error("unknown key should error")
	}
}

func TestCloneIsDeep(t *testing.T) {
	cfg := Default()
	cfg.Session.Participants = []string{"qwen"}

	clone := cfg.Clone()
	clone.Session.Participants[0] = "mutated"
	if cfg.Session.Participants[0] != "qwen" {
		t.Error("clone shares participant backing array")
	}
}

func TestStringRedactsSecrets(t *testing.T) {
	cfg := Default()
	cfg.GitHub.Token = "ghp_supersecret"
	cfg.Panel.AuthToken = "panel-secret"

	out := cfg.String()
	if strings.Contains(out, "ghp_supersecret") || strings.Contains(out, "panel-secret") {
		t.Fatal("String() leaked a secret")
	}
	if !strings.Contains(out, "[REDACTED]") {
		t.Fatal("String() should mark redacted fields")
	}
}

func TestWatcherReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte("version = \"1.0.0\"\n"), 0600); err != nil {
		t.Fatal(err)
	}

	reloaded := make(chan *Config, 1)
	w, err := NewWatcherForPath(path, func(cfg *Config) {
		select {
		case reloaded <- cfg:
		default:
		}
	})
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()
	if err := w.Watch(); err != nil {
		t.Fatal(err)
	}

	time.Sleep(50 * time.Millisecond)
	content := "version = \"1.0.0\"\n\n[session]\ndefault_mode = \"compare\"\n"
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	select {
	case cfg := <-reloaded:
		if cfg.Session.DefaultMode != "compare" {
			t.Errorf("DefaultMode = %q", cfg.Session.DefaultMode)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("watcher never fired")
	}
}
