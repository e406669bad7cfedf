// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package github

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// Configuration constants for the GitHub REST API.
const (
	// DefaultAPIURL is the GitHub REST API base.
	DefaultAPIURL = "https://api.github.com"

	// DefaultTimeout bounds each REST call.
	DefaultTimeout = 30 * time.Second

	// apiVersion pins the REST API version header.
	apiVersion = "2022-11-28"

	// maxResponseSize limits REST response bodies.
	maxResponseSize = 4 * 1024 * 1024
)

// GitHub's secondary rate limits punish bursts. One request every
// 500ms with a burst of 5 stays comfortably inside them for a
// deployment panel's polling cadence.
var apiLimiter = rate.NewLimiter(rate.Every(500*time.Millisecond), 5)

var (
	// ErrNoToken indicates no GitHub token was configured.
	ErrNoToken = errors.New("github token not configured")

	// ErrNoRuns indicates a workflow has no recorded runs yet.
	ErrNoRuns = errors.New("workflow has no runs")
)

// APIError represents a non-2xx response from the GitHub API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("github API error (HTTP %d): %s", e.Status, e.Message)
}

// =============================================================================
// WIRE TYPES
// =============================================================================

// Workflow is one Actions workflow definition in a repository.
type Workflow struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Path  string `json:"path"`
	State string `json:"state"`
}

// WorkflowRun is one execution of a workflow. Status is "queued",
// "in_progress", or "completed"; Conclusion is set only once completed.
type WorkflowRun struct {
	ID         int64     `json:"id"`
	Status     string    `json:"status"`
	Conclusion string    `json:"conclusion"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
	HTMLURL    string    `json:"html_url"`
}

// Completed reports whether the run has finished.
func (r WorkflowRun) Completed() bool { return r.Status == "completed" }

// Succeeded reports whether the run finished with a success conclusion.
func (r WorkflowRun) Succeeded() bool {
	return r.Completed() && r.Conclusion == "success"
}

type workflowsResponse struct {
	Workflows []Workflow `json:"workflows"`
}

type runsResponse struct {
	WorkflowRuns []WorkflowRun `json:"workflow_runs"`
}

// =============================================================================
// CLIENT
// =============================================================================

// Client is a minimal GitHub Actions REST client scoped to one
// repository: list workflows, inspect runs, dispatch deployments.
type Client struct {
	baseURL string
	owner   string
	repo    string
	token   string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates a client for owner/repo authenticated with token.
func NewClient(owner, repo, token string) *Client {
	return &Client{
		baseURL: DefaultAPIURL,
		owner:   owner,
		repo:    repo,
		token:   strings.TrimSpace(token),
		http:    &http.Client{Timeout: DefaultTimeout},
		limiter: apiLimiter,
	}
}

// WithBaseURL points the client at a different API base, for GitHub
// Enterprise or tests.
func (c *Client) WithBaseURL(url string) *Client {
	c.baseURL = strings.TrimSuffix(url, "/")
	return c
}

// IsConfigured reports whether a token is present.
func (c *Client) IsConfigured() bool { return c.token != "" }

func (c *Client) do(ctx context.Context, method, path string, payload any, out any) error {
	if !c.IsConfigured() {
		return ErrNoToken
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", apiVersion)
	req.Header.Set("User-Agent", "shipctl/0.1.0")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := strings.TrimSpace(string(raw))
		var ghErr struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(raw, &ghErr) == nil && ghErr.Message != "" {
			msg = ghErr.Message
		}
		return &APIError{Status: resp.StatusCode, Message: msg}
	}

	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
	}
	return nil
}

// ListWorkflows returns the repository's workflow definitions.
func (c *Client) ListWorkflows(ctx context.Context) ([]Workflow, error) {
	var out workflowsResponse
	path := fmt.Sprintf("/repos/%s/%s/actions/workflows", c.owner, c.repo)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Workflows, nil
}

// LatestRun returns the most recent run of workflowID, or ErrNoRuns.
func (c *Client) LatestRun(ctx context.Context, workflowID string) (WorkflowRun, error) {
	var out runsResponse
	path := fmt.Sprintf("/repos/%s/%s/actions/workflows/%s/runs?per_page=1", c.owner, c.repo, workflowID)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return WorkflowRun{}, err
	}
	if len(out.WorkflowRuns) == 0 {
		return WorkflowRun{}, ErrNoRuns
	}
	return out.WorkflowRuns[0], nil
}

// DispatchRun triggers a workflow_dispatch event for workflowID against
// ref. GitHub returns no body for a successful dispatch; callers poll
// LatestRun to discover the new run id.
func (c *Client) DispatchRun(ctx context.Context, workflowID, ref string) error {
	if ref == "" {
		ref = "main"
	}
	path := fmt.Sprintf("/repos/%s/%s/actions/workflows/%s/dispatches", c.owner, c.repo, workflowID)
	payload := map[string]string{"ref": ref}
	return c.do(ctx, http.MethodPost, path, payload, nil)
}
