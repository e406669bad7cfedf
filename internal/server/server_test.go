// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jeranaias/shipctl-tui/internal/ops"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "Makefile"), []byte("all:\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	return NewServer(0, ops.NewController(dir), "")
}

func doRequest(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	rec := doRequest(t, newTestServer(t), http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp HealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Status != "ok" || resp.Version == "" {
		t.Fatalf("health = %+v", resp)
	}
}

func TestStatusEndpointNotRunning(t *testing.T) {
	rec := doRequest(t, newTestServer(t), http.MethodGet, "/api/status", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}

	var st ops.Status
	if err := json.Unmarshal(rec.Body.Bytes(), &st); err != nil {
		t.Fatal(err)
	}
	if st.Running {
		t.Fatal("nothing started, should not report running")
	}
}

func TestStartRejectsUnknownMode(t *testing.T) {
	rec := doRequest(t, newTestServer(t), http.MethodPost, "/api/start", `{"mode":"prod"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "unknown start mode") {
		t.Fatalf("body = %s", rec.Body.String())
	}
}

func TestStartRejectsMalformedBody(t *testing.T) {
	rec := doRequest(t, newTestServer(t), http.MethodPost, "/api/start", `{not json`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestMakeRejectsUnlistedTarget(t *testing.T) {
	rec := doRequest(t, newTestServer(t), http.MethodPost, "/api/make", `{"target":"deploy"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "not allowed") {
		t.Fatalf("body = %s", rec.Body.String())
	}
}

func TestStopWithoutProcess(t *testing.T) {
	rec := doRequest(t, newTestServer(t), http.MethodPost, "/api/stop", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
}

func TestConfigRoundTrip(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(t, s, http.MethodPost, "/api/config",
		`{"pythonPath":"/usr/bin/python3","repoPath":"/srv/playground"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("save status = %d body=%s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"saved"`) {
		t.Fatalf("save body = %s", rec.Body.String())
	}

	rec = doRequest(t, s, http.MethodGet, "/api/config", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}
	var payload ConfigPayload
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatal(err)
	}
	if payload.PythonPath != "/usr/bin/python3" || payload.RepoPath != "/srv/playground" {
		t.Fatalf("config = %+v", payload)
	}
}

func TestLogsEndpointEmpty(t *testing.T) {
	rec := doRequest(t, newTestServer(t), http.MethodGet, "/api/logs?lines=10", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp LogsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Logs != "" {
		t.Fatalf("logs = %q, want empty", resp.Logs)
	}
}

// =============================================================================
// MIDDLEWARE TESTS
// =============================================================================

func TestValidateBearerToken(t *testing.T) {
	if !ValidateBearerToken("secret", "secret") {
		t.Error("matching tokens should validate")
	}
	if ValidateBearerToken("wrong", "secret") {
		t.Error("mismatched tokens should fail")
	}
	if ValidateBearerToken("", "") {
		t.Error("empty tokens should fail")
	}
}

func TestAuthMiddleware(t *testing.T) {
	config := &AuthConfig{Enabled: true, BearerToken: "panel-token"}
	handler := AuthMiddleware(config)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("no token: status = %d, want 401", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/status", nil)
	req.Header.Set("Authorization", "Bearer panel-token")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("valid token: status = %d, want 200", rec.Code)
	}
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)

	if !rl.Allow("1.2.3.4") || !rl.Allow("1.2.3.4") {
		t.Fatal("first two requests should pass")
	}
	if rl.Allow("1.2.3.4") {
		t.Fatal("third request should be limited")
	}
	if !rl.Allow("5.6.7.8") {
		t.Fatal("limits are per IP")
	}
}

func TestCORSPreflightAllowedOrigin(t *testing.T) {
	handler := CORSMiddleware(DefaultCORSConfig())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("preflight should not reach the handler")
	}))

	req := httptest.NewRequest(http.MethodOptions, "/api/status", nil)
	req.Header.Set("Origin", "chrome-extension://abcdef")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "chrome-extension://abcdef" {
		t.Fatalf("allow-origin = %q", got)
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	handler := RecoveryMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
}

func TestGetClientIPUntrustedSourceIgnoresHeaders(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "203.0.113.9:4411"
	req.Header.Set("X-Forwarded-For", "10.1.1.1")

	if got := GetClientIP(req); got != "203.0.113.9" {
		t.Fatalf("client ip = %q", got)
	}
}
