// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ops

import (
	"context"
	"time"

	"github.com/jeranaias/shipctl-tui/internal/deploy"
)

// ProbeFunc reports whether the service answered healthy.
type ProbeFunc func(ctx context.Context) bool

// HTTPProbe builds a ProbeFunc against url with a per-attempt timeout.
func HTTPProbe(url string, timeout time.Duration) ProbeFunc {
	return func(ctx context.Context) bool {
		return probeHealth(url, timeout)
	}
}

// HealthPoller drives a deployment machine's checking phase: each
// failed probe consumes one retry via a RETRY event, a passing probe
// emits HEALTH_OK, and an exhausted budget emits HEALTH_FAIL.
type HealthPoller struct {
	probe    ProbeFunc
	interval time.Duration
}

// NewHealthPoller creates a poller probing at interval (default 2s).
func NewHealthPoller(probe ProbeFunc, interval time.Duration) *HealthPoller {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &HealthPoller{probe: probe, interval: interval}
}

// Run polls until the machine leaves the checking state or ctx ends.
// Returns the machine's final state.
func (p *HealthPoller) Run(ctx context.Context, m *deploy.Machine) deploy.State {
	for m.State() == deploy.StateChecking {
		if ctx.Err() != nil {
			return m.State()
		}

		if p.probe(ctx) {
			m.Apply(deploy.Event{Kind: deploy.EventHealthOK})
			return m.State()
		}

		if m.Context().RetriesLeft == 0 {
			m.Apply(deploy.Event{Kind: deploy.EventHealthFail})
			return m.State()
		}
		m.Apply(deploy.Event{Kind: deploy.EventRetry})

		select {
		case <-ctx.Done():
			return m.State()
		case <-time.After(p.interval):
		}
	}
	return m.State()
}
