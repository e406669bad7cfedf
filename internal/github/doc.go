// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package github is a minimal GitHub Actions REST client scoped to one
// repository: listing workflows, fetching the latest run, and
// dispatching deployment runs. Requests share a token-bucket limiter to
// stay inside GitHub's secondary rate limits while the deployment panel
// polls run status.
package github
