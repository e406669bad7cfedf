// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// json_output.go - JSON output support for scripting and automation.
package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// JSONResponse is the standardized response format for all CLI commands.
type JSONResponse struct {
	// Success indicates whether the command completed successfully
	Success bool `json:"success"`

	// Data contains the command-specific response data
	Data interface{} `json:"data"`

	// Error contains the error message if Success is false, null otherwise
	Error *string `json:"error"`

	// Timestamp is the ISO8601 timestamp when the response was generated
	Timestamp string `json:"timestamp"`

	// Command is the command that was executed
	Command string `json:"command,omitempty"`
}

// NewJSONResponse creates a new successful JSON response.
func NewJSONResponse(command string, data interface{}) *JSONResponse {
	return &JSONResponse{
		Success:   true,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Command:   command,
	}
}

// NewJSONErrorResponse creates a new error JSON response.
func NewJSONErrorResponse(command string, err error) *JSONResponse {
	errStr := err.Error()
	return &JSONResponse{
		Success:   false,
		Error:     &errStr,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Command:   command,
	}
}

// Print outputs the JSON response to stdout. Human-readable messages
// should go to stderr when JSON mode is enabled.
func (r *JSONResponse) Print() error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(r)
}

// String returns the JSON response as a string.
func (r *JSONResponse) String() string {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Sprintf(`{"success":false,"error":"failed to marshal response: %s"}`, err.Error())
	}
	return string(data)
}

// OutputJSON runs a handler and, in JSON mode, wraps its result in the
// standard envelope.
func OutputJSON(jsonMode bool, command string, handler func() (interface{}, error)) error {
	if !jsonMode {
		_, err := handler()
		return err
	}

	data, err := handler()
	if err != nil {
		NewJSONErrorResponse(command, err).Print()
		return err
	}
	return NewJSONResponse(command, data).Print()
}

// =============================================================================
// COMMAND-SPECIFIC DATA STRUCTURES
// =============================================================================

// StatusData represents the data returned by the status command.
type StatusData struct {
	Backend BackendStatusInfo `json:"backend"`
	Panel   PanelStatusInfo   `json:"panel"`
	Session SessionStatusInfo `json:"session"`
}

// BackendStatusInfo describes backend reachability.
type BackendStatusInfo struct {
	URL     string `json:"url"`
	Healthy bool   `json:"healthy"`
	Models  int    `json:"models"`
	Error   string `json:"error,omitempty"`
}

// PanelStatusInfo describes the managed backend process.
type PanelStatusInfo struct {
	Running   bool   `json:"running"`
	PID       int    `json:"pid,omitempty"`
	Mode      string `json:"mode,omitempty"`
	StartedAt string `json:"started_at,omitempty"`
}

// SessionStatusInfo describes the configured session defaults.
type SessionStatusInfo struct {
	DefaultMode  string   `json:"default_mode"`
	Participants []string `json:"participants"`
	MaxTokens    int      `json:"max_tokens"`
}

// ModelsData represents the data returned by the models command.
type ModelsData struct {
	Models []ModelInfo `json:"models"`
	Count  int         `json:"count"`
}

// ModelInfo is one catalog model row.
type ModelInfo struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Type          string `json:"type"`
	Priority      int    `json:"priority,omitempty"`
	ContextLength int    `json:"context_length,omitempty"`
	RateLimited   bool   `json:"rate_limited,omitempty"`
}

// AskData represents the data returned by the ask command.
type AskData struct {
	Mode       string            `json:"mode"`
	Responses  map[string]string `json:"responses"`
	DurationMs int64             `json:"duration_ms"`
	Saved      string            `json:"saved_transcript,omitempty"`
}

// DeployData represents the data returned by the deploy command.
type DeployData struct {
	State      string `json:"state"`
	WorkflowID string `json:"workflow_id,omitempty"`
	RunID      string `json:"run_id,omitempty"`
	RunURL     string `json:"run_url,omitempty"`
	Error      string `json:"error,omitempty"`
}

// VersionData represents the data returned by the version command.
type VersionData struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version,omitempty"`
}
