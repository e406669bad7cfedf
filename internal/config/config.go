// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides unified configuration loading and management
// for shipctl.
//
// Supports both TOML and JSON configuration formats, with sensible
// defaults, environment variable overrides, and validation.
//
// Configuration file locations (in order of precedence):
//   - ~/.shipctl/config.toml
//   - ~/.shipctl/config.json
//   - Built-in defaults
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/jeranaias/shipctl-tui/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete shipctl configuration.
type Config struct {
	Version string `toml:"version" json:"version"`

	// Backend is the inference API connection.
	Backend BackendConfig `toml:"backend" json:"backend"`

	// Session controls multi-model session defaults.
	Session SessionConfig `toml:"session" json:"session"`

	// GitHub holds the Actions deployment settings.
	GitHub GitHubConfig `toml:"github" json:"github"`

	// Deploy controls post-deployment health checking.
	Deploy DeployConfig `toml:"deploy" json:"deploy"`

	// Panel configures the local control API server.
	Panel PanelConfig `toml:"panel" json:"panel"`

	// Storage configures transcript persistence and archiving.
	Storage StorageConfig `toml:"storage" json:"storage"`

	// UI configures the terminal interface.
	UI UIConfig `toml:"ui" json:"ui"`
}

// BackendConfig contains inference API settings.
type BackendConfig struct {
	// BaseURL is the inference API base URL.
	BaseURL string `toml:"base_url" json:"base_url"`
	// MaxRetries caps retry attempts for transient failures.
	MaxRetries int `toml:"max_retries" json:"max_retries"`
}

// SessionConfig contains multi-model session defaults.
type SessionConfig struct {
	// DefaultMode is the starting mode: "chat", "compare", "council",
	// "roundtable", or "personality".
	DefaultMode string `toml:"default_mode" json:"default_mode"`
	// Participants are the default model ids for a session.
	Participants []string `toml:"participants" json:"participants"`
	// MaxTokens is the default completion budget per model.
	MaxTokens int `toml:"max_tokens" json:"max_tokens"`
	// Temperature is the default sampling temperature.
	Temperature float64 `toml:"temperature" json:"temperature"`
	// Turns is the default number of roundtable discussion rounds.
	Turns int `toml:"turns" json:"turns"`
}

// GitHubConfig contains GitHub Actions deployment settings.
type GitHubConfig struct {
	// Token is the GitHub API token. Prefer SHIPCTL_GITHUB_TOKEN or
	// GITHUB_TOKEN over storing it here.
	Token string `toml:"token" json:"token"`
	// Owner is the repository owner.
	Owner string `toml:"owner" json:"owner"`
	// Repo is the repository name.
	Repo string `toml:"repo" json:"repo"`
	// WorkflowFile is the deploy workflow file name.
	WorkflowFile string `toml:"workflow_file" json:"workflow_file"`
	// Ref is the git ref to dispatch against.
	Ref string `toml:"ref" json:"ref"`
}

// DeployConfig contains post-deployment health check settings.
type DeployConfig struct {
	// HealthURL is probed after a workflow run completes.
	HealthURL string `toml:"health_url" json:"health_url"`
	// Retries is the health check retry budget.
	Retries int `toml:"retries" json:"retries"`
	// PollIntervalSecs is the delay between health probes.
	PollIntervalSecs int `toml:"poll_interval_secs" json:"poll_interval_secs"`
}

// PanelConfig contains the control API server settings.
type PanelConfig struct {
	// Port for the localhost panel API.
	Port int `toml:"port" json:"port"`
	// AuthToken enables bearer auth when non-empty.
	AuthToken string `toml:"auth_token" json:"auth_token"`
	// AllowedIPs restricts panel access when non-empty.
	AllowedIPs []string `toml:"allowed_ips" json:"allowed_ips"`
	// RepoPath overrides repo root discovery for process management.
	RepoPath string `toml:"repo_path" json:"repo_path"`
}

// StorageConfig contains transcript persistence settings.
type StorageConfig struct {
	// Enabled controls whether session transcripts are saved.
	Enabled bool `toml:"enabled" json:"enabled"`
	// MaxTranscripts caps retained transcript files (0 = unlimited).
	MaxTranscripts int `toml:"max_transcripts" json:"max_transcripts"`
	// ArchiveEnabled mirrors transcripts into the searchable archive.
	ArchiveEnabled bool `toml:"archive_enabled" json:"archive_enabled"`
}

// UIConfig contains terminal interface settings.
type UIConfig struct {
	// Theme is the UI theme: "dark", "light", "auto"
	Theme string `toml:"theme" json:"theme"`
	// ShowThinking reveals model reasoning segments in cards.
	ShowThinking bool `toml:"show_thinking" json:"show_thinking"`
	// ShowTimings displays per-model generation timings.
	ShowTimings bool `toml:"show_timings" json:"show_timings"`
	// CompactMode uses a more compact layout.
	CompactMode bool `toml:"compact_mode" json:"compact_mode"`
}

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Version: "1.0.0",

		Backend: BackendConfig{
			BaseURL:    "http://localhost:8000",
			MaxRetries: 3,
		},

		Session: SessionConfig{
			DefaultMode: "chat",
			MaxTokens:   2048,
			Temperature: 0.7,
			Turns:       2,
		},

		GitHub: GitHubConfig{
			WorkflowFile: "deploy.yml",
			Ref:          "main",
		},

		Deploy: DeployConfig{
			Retries:          3,
			PollIntervalSecs: 2,
		},

		Panel: PanelConfig{
			Port: 8765,
		},

		Storage: StorageConfig{
			Enabled:        true,
			MaxTranscripts: 200,
			ArchiveEnabled: true,
		},

		UI: UIConfig{
			Theme:        "dark",
			ShowThinking: true,
			ShowTimings:  true,
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the shipctl configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".shipctl"), nil
}

// ConfigPathTOML returns the path to the TOML config file.
func ConfigPathTOML() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// ConfigPathJSON returns the path to the JSON config file.
func ConfigPathJSON() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// EnsureConfigDir ensures the config directory exists.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0755)
}

// ensureSecurePermissions fixes config file permissions. Config may
// contain a GitHub token, so 0600 only.
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if mode := info.Mode().Perm(); mode != 0600 {
		if err := os.Chmod(path, 0600); err != nil {
			return fmt.Errorf("failed to fix insecure permissions (was %o): %w", mode, err)
		}
	}
	return nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads configuration from the config file(s).
// Tries TOML first, then JSON, and falls back to defaults.
// Environment overrides are applied last.
func Load() (*Config, error) {
	cfg := Default()
	var loadErr error

	tomlPath, err := ConfigPathTOML()
	if err == nil {
		if _, statErr := os.Stat(tomlPath); statErr == nil {
			if err := LoadTOML(cfg, tomlPath); err != nil {
				loadErr = fmt.Errorf("failed to load TOML config: %w", err)
			} else {
				return finishLoad(cfg)
			}
		}
	}

	jsonPath, err := ConfigPathJSON()
	if err == nil {
		if _, statErr := os.Stat(jsonPath); statErr == nil {
			if err := LoadJSON(cfg, jsonPath); err != nil {
				loadErr = fmt.Errorf("failed to load JSON config: %w", err)
			} else {
				return finishLoad(cfg)
			}
		}
	}

	cfg, err = finishLoad(cfg)
	if err != nil {
		return nil, err
	}
	return cfg, loadErr
}

// finishLoad applies env overrides and validation after decoding.
func finishLoad(cfg *Config) (*Config, error) {
	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadTOML loads configuration from a TOML file.
func LoadTOML(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	return fillDefaults(cfg)
}

// LoadJSON loads configuration from a JSON file.
func LoadJSON(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read JSON file: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to decode JSON file: %w", err)
	}
	return fillDefaults(cfg)
}

// LoadFromPath loads configuration from a specific file path with full
// validation.
func LoadFromPath(path string) (*Config, error) {
	cfg := &Config{}

	if strings.HasSuffix(path, ".json") {
		if err := LoadJSON(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load JSON config from %s: %w", path, err)
		}
	} else {
		if err := LoadTOML(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load TOML config from %s: %w", path, err)
		}
	}
	return finishLoad(cfg)
}

// fillDefaults fills in any missing values with defaults.
func fillDefaults(cfg *Config) error {
	defaults := Default()

	if cfg.Version == "" {
		cfg.Version = defaults.Version
	}

	if cfg.Backend.BaseURL == "" {
		cfg.Backend.BaseURL = defaults.Backend.BaseURL
	}
	if cfg.Backend.MaxRetries == 0 {
		cfg.Backend.MaxRetries = defaults.Backend.MaxRetries
	}

	if cfg.Session.DefaultMode == "" {
		cfg.Session.DefaultMode = defaults.Session.DefaultMode
	}
	if cfg.Session.MaxTokens == 0 {
		cfg.Session.MaxTokens = defaults.Session.MaxTokens
	}
	if cfg.Session.Temperature == 0 {
		cfg.Session.Temperature = defaults.Session.Temperature
	}
	if cfg.Session.Turns == 0 {
		cfg.Session.Turns = defaults.Session.Turns
	}

	if cfg.GitHub.WorkflowFile == "" {
		cfg.GitHub.WorkflowFile = defaults.GitHub.WorkflowFile
	}
	if cfg.GitHub.Ref == "" {
		cfg.GitHub.Ref = defaults.GitHub.Ref
	}

	if cfg.Deploy.Retries == 0 {
		cfg.Deploy.Retries = defaults.Deploy.Retries
	}
	if cfg.Deploy.PollIntervalSecs == 0 {
		cfg.Deploy.PollIntervalSecs = defaults.Deploy.PollIntervalSecs
	}

	if cfg.Panel.Port == 0 {
		cfg.Panel.Port = defaults.Panel.Port
	}

	if cfg.Storage.MaxTranscripts == 0 {
		cfg.Storage.MaxTranscripts = defaults.Storage.MaxTranscripts
	}

	if cfg.UI.Theme == "" {
		cfg.UI.Theme = defaults.UI.Theme
	}

	return nil
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save saves the configuration to the default TOML file.
func Save(cfg *Config) error {
	path, err := ConfigPathTOML()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML saves the configuration to a TOML file with 0600 permissions.
func SaveTOML(cfg *Config, path string) error {
	if err := EnsureConfigDir(); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	if err := os.Chmod(path, 0600); err != nil {
		return fmt.Errorf("failed to set config file permissions: %w", err)
	}

	fmt.Fprintln(file, "# shipctl configuration file")
	fmt.Fprintln(file, "# Generated by shipctl - edit with care")
	fmt.Fprintln(file, "")

	encoder := toml.NewEncoder(file)
	if err := encoder.Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// SaveJSON saves the configuration to a JSON file atomically with 0600
// permissions.
func SaveJSON(cfg *Config, path string) error {
	if err := EnsureConfigDir(); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

var validModes = map[string]bool{
	"chat":        true,
	"compare":     true,
	"council":     true,
	"roundtable":  true,
	"personality": true,
}

// validThemes defines acceptable UI themes.
var validThemes = map[string]bool{"dark": true, "light": true, "auto": true}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	var errs ValidateErrors

	if c.Backend.BaseURL != "" {
		if u, err := url.Parse(c.Backend.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, ValidationError{
				Field:   "backend.base_url",
				Message: fmt.Sprintf("invalid URL: %q", c.Backend.BaseURL),
			})
		}
	}
	if c.Backend.MaxRetries < 0 || c.Backend.MaxRetries > 10 {
		errs = append(errs, ValidationError{
			Field:   "backend.max_retries",
			Message: fmt.Sprintf("must be between 0 and 10, got %d", c.Backend.MaxRetries),
		})
	}

	if c.Session.DefaultMode != "" && !validModes[strings.ToLower(c.Session.DefaultMode)] {
		errs = append(errs, ValidationError{
			Field:   "session.default_mode",
			Message: fmt.Sprintf("must be one of: chat, compare, council, roundtable, personality (got %q)", c.Session.DefaultMode),
		})
	}
	if c.Session.MaxTokens < 0 || c.Session.MaxTokens > 128000 {
		errs = append(errs, ValidationError{
			Field:   "session.max_tokens",
			Message: fmt.Sprintf("must be between 0 and 128000, got %d", c.Session.MaxTokens),
		})
	}
	if c.Session.Temperature < 0 || c.Session.Temperature > 2 {
		errs = append(errs, ValidationError{
			Field:   "session.temperature",
			Message: fmt.Sprintf("must be between 0.0 and 2.0, got %.2f", c.Session.Temperature),
		})
	}
	if c.Session.Turns < 0 || c.Session.Turns > 10 {
		errs = append(errs, ValidationError{
			Field:   "session.turns",
			Message: fmt.Sprintf("must be between 0 and 10, got %d", c.Session.Turns),
		})
	}

	if c.Deploy.HealthURL != "" {
		if u, err := url.Parse(c.Deploy.HealthURL); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, ValidationError{
				Field:   "deploy.health_url",
				Message: fmt.Sprintf("invalid URL: %q", c.Deploy.HealthURL),
			})
		}
	}
	if c.Deploy.Retries < 0 || c.Deploy.Retries > 20 {
		errs = append(errs, ValidationError{
			Field:   "deploy.retries",
			Message: fmt.Sprintf("must be between 0 and 20, got %d", c.Deploy.Retries),
		})
	}

	if c.Panel.Port < 0 || c.Panel.Port > 65535 {
		errs = append(errs, ValidationError{
			Field:   "panel.port",
			Message: fmt.Sprintf("must be a valid port, got %d", c.Panel.Port),
		})
	}

	if c.UI.Theme != "" && !validThemes[strings.ToLower(c.UI.Theme)] {
		errs = append(errs, ValidationError{
			Field:   "ui.theme",
			Message: fmt.Sprintf("must be one of: dark, light, auto (got %q)", c.UI.Theme),
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides to the config.
//
// Supported environment variables:
//   - SHIPCTL_BACKEND_URL: overrides backend.base_url
//   - SHIPCTL_MODE: overrides session.default_mode
//   - SHIPCTL_GITHUB_TOKEN / GITHUB_TOKEN: overrides github.token
//   - SHIPCTL_GITHUB_OWNER: overrides github.owner
//   - SHIPCTL_GITHUB_REPO: overrides github.repo
//   - SHIPCTL_PANEL_PORT: overrides panel.port
//   - SHIPCTL_PANEL_TOKEN: overrides panel.auth_token
//   - SHIPCTL_REPO_PATH: overrides panel.repo_path
//   - SHIPCTL_THEME: overrides ui.theme
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("SHIPCTL_BACKEND_URL"); v != "" {
		c.Backend.BaseURL = v
	}
	if v := os.Getenv("SHIPCTL_MODE"); v != "" {
		c.Session.DefaultMode = v
	}

	// SHIPCTL_GITHUB_TOKEN wins over the conventional GITHUB_TOKEN.
	if v := os.Getenv("GITHUB_TOKEN"); v != "" {
		c.GitHub.Token = v
	}
	if v := os.Getenv("SHIPCTL_GITHUB_TOKEN"); v != "" {
		c.GitHub.Token = v
	}
	if v := os.Getenv("SHIPCTL_GITHUB_OWNER"); v != "" {
		c.GitHub.Owner = v
	}
	if v := os.Getenv("SHIPCTL_GITHUB_REPO"); v != "" {
		c.GitHub.Repo = v
	}

	if v := os.Getenv("SHIPCTL_PANEL_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Panel.Port = port
		}
	}
	if v := os.Getenv("SHIPCTL_PANEL_TOKEN"); v != "" {
		c.Panel.AuthToken = v
	}
	if v := os.Getenv("SHIPCTL_REPO_PATH"); v != "" {
		c.Panel.RepoPath = v
	}

	if v := os.Getenv("SHIPCTL_THEME"); v != "" {
		c.UI.Theme = v
	}
}

// =============================================================================
// GET/SET HELPERS (DOT NOTATION)
// =============================================================================

// Get retrieves a configuration value using dot notation
// (e.g., "session.max_tokens").
func (c *Config) Get(key string) (interface{}, error) {
	parts := strings.Split(key, ".")
	if len(parts) == 0 {
		return nil, errors.New("empty key")
	}

	v := reflect.ValueOf(c).Elem()
	for i, part := range parts {
		fieldName := normalizeFieldName(part)
		field := v.FieldByNameFunc(func(name string) bool {
			return strings.EqualFold(name, fieldName)
		})
		if !field.IsValid() {
			return nil, fmt.Errorf("unknown field: %s", strings.Join(parts[:i+1], "."))
		}

		if i == len(parts)-1 {
			return field.Interface(), nil
		}
		if field.Kind() != reflect.Struct {
			return nil, fmt.Errorf("field '%s' is not a struct", strings.Join(parts[:i+1], "."))
		}
		v = field
	}
	return nil, fmt.Errorf("invalid key: %s", key)
}

// Set sets a configuration value using dot notation
// (e.g., "session.max_tokens").
func (c *Config) Set(key string, value interface{}) error {
	parts := strings.Split(key, ".")
	if len(parts) == 0 {
		return errors.New("empty key")
	}

	v := reflect.ValueOf(c).Elem()
	for i, part := range parts {
		fieldName := normalizeFieldName(part)
		field := v.FieldByNameFunc(func(name string) bool {
			return strings.EqualFold(name, fieldName)
		})
		if !field.IsValid() {
			return fmt.Errorf("unknown field: %s", strings.Join(parts[:i+1], "."))
		}

		if i == len(parts)-1 {
			if !field.CanSet() {
				return fmt.Errorf("cannot set field: %s", key)
			}
			return setFieldValue(field, value)
		}
		if field.Kind() != reflect.Struct {
			return fmt.Errorf("field '%s' is not a struct", strings.Join(parts[:i+1], "."))
		}
		v = field
	}
	return fmt.Errorf("invalid key: %s", key)
}

// normalizeFieldName converts a snake_case or kebab-case name to its Go
// field equivalent.
func normalizeFieldName(name string) string {
	parts := strings.FieldsFunc(name, func(r rune) bool {
		return r == '_' || r == '-'
	})

	var result strings.Builder
	for _, part := range parts {
		if len(part) > 0 {
			result.WriteString(strings.ToUpper(string(part[0])))
			result.WriteString(strings.ToLower(part[1:]))
		}
	}
	return result.String()
}

// setFieldValue sets a reflect.Value from an interface{} value with
// type conversion.
func setFieldValue(field reflect.Value, value interface{}) error {
	if strVal, ok := value.(string); ok {
		switch field.Kind() {
		case reflect.String:
			field.SetString(strVal)
			return nil
		case reflect.Int, reflect.Int64:
			intVal, err := strconv.ParseInt(strVal, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid integer value: %v", err)
			}
			field.SetInt(intVal)
			return nil
		case reflect.Float64:
			floatVal, err := strconv.ParseFloat(strVal, 64)
			if err != nil {
				return fmt.Errorf("invalid float value: %v", err)
			}
			field.SetFloat(floatVal)
			return nil
		case reflect.Bool:
			lower := strings.ToLower(strVal)
			field.SetBool(strVal == "1" || lower == "true" || lower == "yes")
			return nil
		}
	}

	val := reflect.ValueOf(value)
	if val.Type().AssignableTo(field.Type()) {
		field.Set(val)
		return nil
	}
	if val.Type().ConvertibleTo(field.Type()) {
		field.Set(val.Convert(field.Type()))
		return nil
	}
	return fmt.Errorf("cannot assign %T to %s", value, field.Type())
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// GetAllKeys returns all configuration keys in dot notation.
func GetAllKeys() []string {
	return []string{
		"version",
		"backend.base_url",
		"backend.max_retries",
		"session.default_mode",
		"session.participants",
		"session.max_tokens",
		"session.temperature",
		"session.turns",
		"github.token",
		"github.owner",
		"github.repo",
		"github.workflow_file",
		"github.ref",
		"deploy.health_url",
		"deploy.retries",
		"deploy.poll_interval_secs",
		"panel.port",
		"panel.auth_token",
		"panel.allowed_ips",
		"panel.repo_path",
		"storage.enabled",
		"storage.max_transcripts",
		"storage.archive_enabled",
		"ui.theme",
		"ui.show_thinking",
		"ui.show_timings",
		"ui.compact_mode",
	}
}

// Clone creates a deep copy of the configuration. Slice fields are
// copied so callers cannot mutate the original through shared backing
// arrays.
func (c *Config) Clone() *Config {
	clone := *c

	if c.Session.Participants != nil {
		clone.Session.Participants = append([]string(nil), c.Session.Participants...)
	}
	if c.Panel.AllowedIPs != nil {
		clone.Panel.AllowedIPs = append([]string(nil), c.Panel.AllowedIPs...)
	}
	return &clone
}

// String returns a string representation of the config for debugging.
// Secrets are redacted so the output is safe to log.
func (c *Config) String() string {
	safe := c.Clone()

	if safe.GitHub.Token != "" {
		safe.GitHub.Token = "[REDACTED]"
	}
	if safe.Panel.AuthToken != "" {
		safe.Panel.AuthToken = "[REDACTED]"
	}

	data, _ := json.MarshalIndent(safe, "", "  ")
	return string(data)
}

// =============================================================================
// SINGLETON PATTERN (THREAD-SAFE)
// =============================================================================

var (
	globalConfig     *Config
	globalConfigOnce sync.Once
	globalConfigMu   sync.RWMutex
)

// Global returns the global configuration instance.
// Loads configuration on first access. Thread-safe.
func Global() *Config {
	globalConfigOnce.Do(func() {
		cfg, err := Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v (using defaults)\n", err)
			cfg = Default()
		}
		globalConfig = cfg
	})

	globalConfigMu.RLock()
	defer globalConfigMu.RUnlock()
	return globalConfig
}

// ReloadGlobal reloads the global configuration from disk. Thread-safe.
func ReloadGlobal() error {
	cfg, err := Load()
	if err != nil {
		return err
	}
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = cfg
	return nil
}

// SetGlobal sets the global configuration instance. Thread-safe.
func SetGlobal(cfg *Config) {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = cfg
}

// ResetGlobalForTesting resets the global config state between tests.
func ResetGlobalForTesting() {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = nil
	globalConfigOnce = sync.Once{}
}
