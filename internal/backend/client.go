// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package backend

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/jeranaias/shipctl-tui/internal/model"
)

// Configuration constants for the playground backend API.
const (
	// DefaultBaseURL is where the inference backend listens locally.
	DefaultBaseURL = "http://localhost:8000"

	// DefaultTimeout is the default timeout for non-streaming requests.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxRetries is the default number of retry attempts for
	// transient errors on non-streaming requests.
	DefaultMaxRetries = 3

	// retryBaseDelay is the base delay for exponential backoff.
	retryBaseDelay = 500 * time.Millisecond

	// retryMaxDelay is the maximum delay for exponential backoff.
	retryMaxDelay = 10 * time.Second

	// MaxResponseSize is the maximum allowed non-streaming response body.
	MaxResponseSize = 10 * 1024 * 1024 // 10MB limit
)

var (
	// Shared HTTP client with connection pooling for all short requests.
	sharedHTTPClient = &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
		},
		Timeout: DefaultTimeout,
	}

	// sharedStreamingClient is used for streaming requests. No client
	// timeout: a session lives until the stream ends or its context is
	// cancelled.
	sharedStreamingClient = &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
		},
	}
)

// Error variables for common backend errors.
var (
	// ErrNotConfigured indicates the backend base URL is not set.
	ErrNotConfigured = errors.New("backend URL not configured")

	// ErrRateLimited indicates too many requests were made.
	ErrRateLimited = errors.New("rate limited")

	// ErrUnavailable indicates the backend is unreachable or unhealthy.
	ErrUnavailable = errors.New("backend unavailable")
)

// APIError represents a non-200 response from the backend.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("backend error (HTTP %d): %s", e.Status, e.Message)
}

// RateLimitError carries an optional Retry-After hint alongside the
// ErrRateLimited sentinel.
type RateLimitError struct {
	RetryAfter time.Duration
	Message    string
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limited (retry after %s): %s", e.RetryAfter, e.Message)
	}
	return fmt.Sprintf("rate limited: %s", e.Message)
}

// Unwrap lets errors.Is(err, ErrRateLimited) match.
func (e *RateLimitError) Unwrap() error { return ErrRateLimited }

// =============================================================================
// REQUEST PAYLOADS
// =============================================================================

// ChatMessage is one turn in the textual context sent to the backend.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompareRequest is the payload for the parallel chat stream endpoint.
type CompareRequest struct {
	Models      []string      `json:"models"`
	Messages    []ChatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature,omitempty"`
	GitHubToken string        `json:"github_token"`
}

// CouncilRequest is the payload for the council stream endpoint.
// CompletedResponses seeds stage 1 with already-finished answers on a
// restart so the backend does not regenerate them.
type CouncilRequest struct {
	Query              string            `json:"query"`
	Participants       []string          `json:"participants"`
	ChairmanModel      string            `json:"chairman_model"`
	MaxTokens          int               `json:"max_tokens,omitempty"`
	GitHubToken        string            `json:"github_token"`
	CompletedResponses map[string]string `json:"completed_responses,omitempty"`
}

// RoundtableRequest is the payload for the discussion stream endpoint.
type RoundtableRequest struct {
	Query             string   `json:"query"`
	OrchestratorModel string   `json:"orchestrator_model"`
	Participants      []string `json:"participants"`
	Turns             int      `json:"turns,omitempty"`
	MaxTokens         int      `json:"max_tokens,omitempty"`
	Temperature       float64  `json:"temperature,omitempty"`
	GitHubToken       string   `json:"github_token"`
}

// PersonalityRequest is the payload for the personality stream endpoint.
type PersonalityRequest struct {
	Query        string   `json:"query"`
	Participants []string `json:"participants"`
	MaxTokens    int      `json:"max_tokens,omitempty"`
	GitHubToken  string   `json:"github_token"`
}

// =============================================================================
// CLIENT
// =============================================================================

// Client talks to the playground inference backend: the models catalog
// plus the four per-mode streaming endpoints.
type Client struct {
	baseURL    string
	maxRetries int
	logf       func(format string, args ...any)
}

// NewClient creates a client for the given base URL. An empty baseURL
// falls back to DefaultBaseURL.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		maxRetries: DefaultMaxRetries,
		logf: func(format string, args ...any) {
			log.Printf("[BACKEND] "+format, args...)
		},
	}
}

// WithMaxRetries sets the maximum number of retry attempts for
// non-streaming requests.
func (c *Client) WithMaxRetries(n int) *Client {
	c.maxRetries = n
	return c
}

// BaseURL returns the configured base URL.
func (c *Client) BaseURL() string { return c.baseURL }

// calculateBackoff returns the delay to wait before the next retry.
func calculateBackoff(attempt int) time.Duration {
	delay := retryBaseDelay * time.Duration(1<<uint(attempt))
	if delay > retryMaxDelay {
		delay = retryMaxDelay
	}
	return delay
}

// readResponse reads the response body with a size limit.
func readResponse(resp *http.Response) ([]byte, error) {
	limitedReader := io.LimitReader(resp.Body, MaxResponseSize)
	body, err := io.ReadAll(limitedReader)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if int64(len(body)) == MaxResponseSize {
		return nil, fmt.Errorf("response exceeded maximum size of %d bytes", MaxResponseSize)
	}
	return body, nil
}

// handleErrorResponse converts HTTP error responses to Go errors.
func handleErrorResponse(resp *http.Response, body []byte) error {
	msg := strings.TrimSpace(string(body))

	var apiErr struct {
		Detail string `json:"detail"`
		Error  string `json:"error"`
	}
	if err := json.Unmarshal(body, &apiErr); err == nil {
		if apiErr.Detail != "" {
			msg = apiErr.Detail
		} else if apiErr.Error != "" {
			msg = apiErr.Error
		}
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		retryAfter := time.Duration(0)
		if v := resp.Header.Get("Retry-After"); v != "" {
			if secs, err := strconv.Atoi(v); err == nil {
				retryAfter = time.Duration(secs) * time.Second
			}
		}
		return &RateLimitError{RetryAfter: retryAfter, Message: msg}
	}

	return &APIError{Status: resp.StatusCode, Message: msg}
}

// isRetryable determines if an error should trigger a retry.
func isRetryable(err error) bool {
	if errors.Is(err, ErrRateLimited) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status >= 500 && apiErr.Status < 600
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return false
}

// getJSON performs a GET with retries and decodes the JSON body into out.
func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	if c.baseURL == "" {
		return ErrNotConfigured
	}
	url := c.baseURL + path

	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(calculateBackoff(attempt)):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", "shipctl/0.1.0")

		start := time.Now()
		resp, err := sharedHTTPClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("%w: %v", ErrUnavailable, err)
			continue
		}
		c.logf("GET %s -> %d (%v)", path, resp.StatusCode, time.Since(start).Round(time.Millisecond))

		body, err := readResponse(resp)
		resp.Body.Close()
		if err != nil {
			lastErr = err
			continue
		}

		if resp.StatusCode != http.StatusOK {
			err := handleErrorResponse(resp, body)
			if isRetryable(err) {
				lastErr = err
				continue
			}
			return err
		}

		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
		return nil
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

// modelsResponse is the catalog fetch wire shape.
type modelsResponse struct {
	Models []model.Model `json:"models"`
}

// ListModels retrieves the models catalog from the backend.
func (c *Client) ListModels(ctx context.Context) ([]model.Model, error) {
	var out modelsResponse
	if err := c.getJSON(ctx, "/api/models", &out); err != nil {
		return nil, err
	}
	return out.Models, nil
}

// healthResponse is the health probe wire shape.
type healthResponse struct {
	Status string `json:"status"`
}

// Health probes the backend's health endpoint. A nil error means the
// backend answered with an ok status.
func (c *Client) Health(ctx context.Context) error {
	var out healthResponse
	if err := c.getJSON(ctx, "/health", &out); err != nil {
		return err
	}
	if out.Status != "ok" && out.Status != "healthy" {
		return fmt.Errorf("%w: status %q", ErrUnavailable, out.Status)
	}
	return nil
}

// openStream POSTs body to path and returns the streaming response body.
// The caller owns closing it.
func (c *Client) openStream(ctx context.Context, path string, payload any) (io.ReadCloser, error) {
	if c.baseURL == "" {
		return nil, ErrNotConfigured
	}

	bodyBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("User-Agent", "shipctl/0.1.0")

	resp, err := sharedStreamingClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize))
		resp.Body.Close()
		return nil, handleErrorResponse(resp, body)
	}

	c.logf("stream open: POST %s", path)
	return resp.Body, nil
}
