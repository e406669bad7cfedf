// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestListWorkflows(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/repos/acme/ship/actions/workflows" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("auth = %q", got)
		}
		fmt.Fprint(w, `{"workflows":[{"id":1,"name":"Deploy","path":".github/workflows/deploy.yml","state":"active"}]}`)
	}))
	defer srv.Close()

	c := NewClient("acme", "ship", "tok").WithBaseURL(srv.URL)
	wfs, err := c.ListWorkflows(context.Background())
	if err != nil {
		t.Fatalf("ListWorkflows: %v", err)
	}
	if len(wfs) != 1 || wfs[0].Name != "Deploy" {
		t.Fatalf("workflows = %+v", wfs)
	}
}

func TestLatestRun(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"workflow_runs":[{"id":42,"status":"completed","conclusion":"success","html_url":"https://example.test/run/42","created_at":"2025-06-01T12:00:00Z","updated_at":"2025-06-01T12:05:00Z"}]}`)
	}))
	defer srv.Close()

	c := NewClient("acme", "ship", "tok").WithBaseURL(srv.URL)
	run, err := c.LatestRun(context.Background(), "deploy.yml")
	if err != nil {
		t.Fatalf("LatestRun: %v", err)
	}
	if run.ID != 42 || !run.Succeeded() {
		t.Fatalf("run = %+v", run)
	}
}

func TestLatestRunEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"workflow_runs":[]}`)
	}))
	defer srv.Close()

	c := NewClient("acme", "ship", "tok").WithBaseURL(srv.URL)
	if _, err := c.LatestRun(context.Background(), "deploy.yml"); !errors.Is(err, ErrNoRuns) {
		t.Fatalf("want ErrNoRuns, got %v", err)
	}
}

func TestDispatchRun(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s", r.Method)
		}
		var payload map[string]string
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode: %v", err)
		}
		if payload["ref"] != "main" {
			t.Errorf("ref = %q", payload["ref"])
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := NewClient("acme", "ship", "tok").WithBaseURL(srv.URL)
	if err := c.DispatchRun(context.Background(), "deploy.yml", ""); err != nil {
		t.Fatalf("DispatchRun: %v", err)
	}
}

func TestAPIErrorMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"message":"Not Found"}`)
	}))
	defer srv.Close()

	c := NewClient("acme", "ship", "tok").WithBaseURL(srv.URL)
	_, err := c.ListWorkflows(context.Background())
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("want *APIError, got %v", err)
	}
	if apiErr.Status != http.StatusNotFound || apiErr.Message != "Not Found" {
		t.Fatalf("apiErr = %+v", apiErr)
	}
}

func TestNoToken(t *testing.T) {
	c := NewClient("acme", "ship", "")
	if _, err := c.ListWorkflows(context.Background()); !errors.Is(err, ErrNoToken) {
		t.Fatalf("want ErrNoToken, got %v", err)
	}
}
