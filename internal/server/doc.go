// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package server provides the panel control API: a small localhost
// HTTP server the playground panel talks to for managing the backend
// process, reading its logs, running builds, and editing config.
//
// # Endpoints
//
//   - GET  /health      - Panel API liveness
//   - GET  /api/status  - Backend process status plus inference health
//   - POST /api/start   - Start the backend in a supported mode
//   - POST /api/stop    - Stop the backend process tree
//   - GET  /api/logs    - Tail of the backend log
//   - POST /api/make    - Run an allowlisted build target
//   - GET  /api/config  - Read the two-path env config
//   - POST /api/config  - Save the two-path env config
//
// # Security Features
//
//   - Bearer token authentication with constant-time comparison
//   - IP allowlist for access control
//   - CORS headers for the panel extension origins
//   - Rate limiting to prevent abuse
//   - Security headers (X-Content-Type-Options, X-Frame-Options, etc.)
//
// # Key Types
//
//   - Server: HTTP server with router and middleware
//   - AuthConfig: Bearer token and IP allowlist settings
//
// # Usage
//
//	ctl := ops.NewController("")
//	srv := server.NewServer(0, ctl, "http://localhost:8000")
//	if err := srv.Start(); err != nil {
//		log.Fatal(err)
//	}
package server
