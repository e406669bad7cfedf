// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/jeranaias/shipctl-tui/internal/backend"
	"github.com/jeranaias/shipctl-tui/internal/ops"
)

// ============================================================================
// CONSTANTS
// ============================================================================

const (
	// DefaultPort is the default port for the panel API server.
	DefaultPort = 8765

	// MaxRequestBodySize caps request bodies (64KB is plenty for the
	// small control payloads this API accepts).
	MaxRequestBodySize = 64 * 1024

	// DefaultLogLines is the tail size for /api/logs without a hint.
	DefaultLogLines = 120

	// Version is the panel API version.
	Version = "0.3.0"
)

// ============================================================================
// SERVER
// ============================================================================

// Server is the panel control API: it manages the playground backend
// process through an ops.Controller and proxies a health view of the
// inference API.
type Server struct {
	port   int
	router *http.ServeMux
	server *http.Server

	ctl         *ops.Controller
	chatBaseURL string
	auth        *AuthConfig

	mu sync.RWMutex
}

// NewServer creates a panel API server. If port is 0, DefaultPort is
// used. chatBaseURL points at the inference API for health reporting.
func NewServer(port int, ctl *ops.Controller, chatBaseURL string) *Server {
	if port == 0 {
		port = DefaultPort
	}
	if chatBaseURL == "" {
		chatBaseURL = backend.DefaultBaseURL
	}

	s := &Server{
		port:        port,
		router:      http.NewServeMux(),
		ctl:         ctl,
		chatBaseURL: chatBaseURL,
		auth:        DefaultAuthConfig(),
	}
	s.setupRoutes()
	return s
}

// WithAuth sets the authentication configuration.
func (s *Server) WithAuth(config *AuthConfig) *Server {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.auth = config
	return s
}

// Port returns the server port.
func (s *Server) Port() int {
	return s.port
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("GET /health", s.handleHealth)
	s.router.HandleFunc("GET /api/status", s.handleStatus)
	s.router.HandleFunc("POST /api/start", s.handleStart)
	s.router.HandleFunc("POST /api/stop", s.handleStop)
	s.router.HandleFunc("GET /api/logs", s.handleLogs)
	s.router.HandleFunc("POST /api/make", s.handleMake)
	s.router.HandleFunc("GET /api/config", s.handleConfigGet)
	s.router.HandleFunc("POST /api/config", s.handleConfigSave)
}

// ============================================================================
// HANDLERS
// ============================================================================

// HealthResponse is the panel's own liveness answer.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", Version: Version})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.ctl.Status(s.chatBaseURL)
	if err != nil {
		log.Printf("STATUS_ERROR | error=%v", err)
		s.writeError(w, http.StatusInternalServerError, "could not read backend status")
		return
	}
	s.writeJSON(w, http.StatusOK, status)
}

// StartRequest selects the backend mode to launch.
type StartRequest struct {
	Mode string `json:"mode"`
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	var req StartRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	if req.Mode == "" {
		req.Mode = ops.ModeDevChat
	}

	st, err := s.ctl.Start(req.Mode)
	if err != nil {
		log.Printf("START_ERROR | mode=%s error=%v", req.Mode, err)
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	if err := s.ctl.Stop(); err != nil {
		log.Printf("STOP_ERROR | error=%v", err)
		s.writeError(w, http.StatusInternalServerError, "could not stop backend")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "stopped"})
}

// LogsResponse carries the backend log tail.
type LogsResponse struct {
	Logs string `json:"logs"`
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	lines := DefaultLogLines
	if v := r.URL.Query().Get("lines"); v != "" {
		if _, err := fmt.Sscanf(v, "%d", &lines); err != nil || lines <= 0 {
			lines = DefaultLogLines
		}
	}

	tail, err := s.ctl.Logs(lines)
	if err != nil {
		log.Printf("LOGS_ERROR | error=%v", err)
		s.writeError(w, http.StatusInternalServerError, "could not read backend log")
		return
	}
	s.writeJSON(w, http.StatusOK, LogsResponse{Logs: tail})
}

// MakeRequest names an allowlisted build target.
type MakeRequest struct {
	Target string `json:"target"`
}

func (s *Server) handleMake(w http.ResponseWriter, r *http.Request) {
	var req MakeRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	res, err := s.ctl.RunMake(req.Target)
	if err != nil {
		log.Printf("MAKE_ERROR | target=%s error=%v", req.Target, err)
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, res)
}

// ConfigPayload is the two-path config the panel edits.
type ConfigPayload struct {
	PythonPath string `json:"pythonPath"`
	RepoPath   string `json:"repoPath"`
}

func (s *Server) handleConfigGet(w http.ResponseWriter, r *http.Request) {
	pythonPath, repoPath, err := s.ctl.ReadConfig()
	if err != nil {
		log.Printf("CONFIG_ERROR | error=%v", err)
		s.writeError(w, http.StatusInternalServerError, "could not read config")
		return
	}
	s.writeJSON(w, http.StatusOK, ConfigPayload{PythonPath: pythonPath, RepoPath: repoPath})
}

func (s *Server) handleConfigSave(w http.ResponseWriter, r *http.Request) {
	var req ConfigPayload
	if !s.decodeBody(w, r, &req) {
		return
	}

	path, err := s.ctl.SaveConfig(req.PythonPath, req.RepoPath)
	if err != nil {
		log.Printf("CONFIG_ERROR | error=%v", err)
		s.writeError(w, http.StatusInternalServerError, "could not save config")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "saved", "path": path})
}

// ============================================================================
// SERVER LIFECYCLE
// ============================================================================

// Start starts the HTTP server on localhost.
func (s *Server) Start() error {
	addr := fmt.Sprintf("127.0.0.1:%d", s.port)

	handler := Chain(
		RecoveryMiddleware(),
		SecurityHeadersMiddleware(),
		CORSMiddleware(DefaultCORSConfig()),
		LoggingMiddleware(log.Default()),
		RateLimitMiddleware(DefaultRateLimiter()),
	)(s.router)

	if s.auth != nil && s.auth.Enabled {
		handler = AuthMiddleware(s.auth)(handler)
	}

	s.server = &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	log.Printf("SERVER_START | addr=%s version=%s", addr, Version)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	log.Printf("SERVER_SHUTDOWN | starting graceful shutdown")
	return s.server.Shutdown(ctx)
}

// Handler exposes the routed mux for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ============================================================================
// HELPERS
// ============================================================================

// decodeBody parses a JSON body with a size cap, writing the error
// response itself. Returns false if the caller should stop.
func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBodySize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		log.Printf("BAD_REQUEST | path=%s error=%v", r.URL.Path, err)
		s.writeError(w, http.StatusBadRequest, "invalid request format")
		return false
	}
	return true
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]any{
		"error": map[string]any{
			"message": message,
			"code":    status,
		},
	})
}
