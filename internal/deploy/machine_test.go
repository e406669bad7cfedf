// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package deploy

import (
	"errors"
	"testing"
)

func apply(t *testing.T, m *Machine, ev Event, want State) {
	t.Helper()
	got, err := m.Apply(ev)
	if err != nil {
		t.Fatalf("Apply(%s) in %s: %v", ev.Kind, m.State(), err)
	}
	if got != want {
		t.Fatalf("Apply(%s): state = %s, want %s", ev.Kind, got, want)
	}
}

func TestHappyPath(t *testing.T) {
	m := NewMachine("playground")

	apply(t, m, Trigger("deploy.yml"), StateTriggering)
	apply(t, m, RunStarted("12345"), StateDeploying)
	apply(t, m, Event{Kind: EventSuccess}, StateChecking)
	apply(t, m, Event{Kind: EventHealthOK}, StateSuccess)

	ctx := m.Context()
	if ctx.WorkflowID != "deploy.yml" || ctx.RunID != "12345" {
		t.Fatalf("context not recorded: %+v", ctx)
	}
	if !m.Terminal() {
		t.Fatal("expected terminal state")
	}
}

func TestRetryGuard(t *testing.T) {
	m := NewMachine("playground")
	apply(t, m, Trigger("deploy.yml"), StateTriggering)
	apply(t, m, RunStarted("1"), StateDeploying)
	apply(t, m, Event{Kind: EventSuccess}, StateChecking)

	for i := 0; i < 3; i++ {
		apply(t, m, Event{Kind: EventRetry}, StateChecking)
	}
	if left := m.Context().RetriesLeft; left != 0 {
		t.Fatalf("retries left = %d, want 0", left)
	}

	apply(t, m, Event{Kind: EventRetry}, StateFailed)
	if got := m.Context().Err; got != "max retries exceeded" {
		t.Fatalf("error = %q", got)
	}
}

func TestRetriggerResetsRetriesAndError(t *testing.T) {
	m := NewMachine("playground")
	apply(t, m, Trigger("deploy.yml"), StateTriggering)
	apply(t, m, Failure("boom"), StateFailed)

	if m.Context().Err != "boom" {
		t.Fatalf("error = %q", m.Context().Err)
	}

	apply(t, m, Trigger("deploy.yml"), StateTriggering)
	ctx := m.Context()
	if ctx.Err != "" {
		t.Fatalf("error not cleared: %q", ctx.Err)
	}
	if ctx.RetriesLeft != 3 {
		t.Fatalf("retries = %d, want 3", ctx.RetriesLeft)
	}
	if ctx.RunID != "" {
		t.Fatalf("run id not cleared: %q", ctx.RunID)
	}
}

func TestRetriggerFromSuccess(t *testing.T) {
	m := NewMachine("playground")
	apply(t, m, Trigger("a.yml"), StateTriggering)
	apply(t, m, RunStarted("1"), StateDeploying)
	apply(t, m, Event{Kind: EventSuccess}, StateChecking)
	apply(t, m, Event{Kind: EventHealthOK}, StateSuccess)

	apply(t, m, Trigger("b.yml"), StateTriggering)
	if m.Context().WorkflowID != "b.yml" {
		t.Fatalf("workflow = %q", m.Context().WorkflowID)
	}
}

func TestCancelReturnsToIdle(t *testing.T) {
	m := NewMachine("playground")
	apply(t, m, Trigger("deploy.yml"), StateTriggering)
	apply(t, m, Event{Kind: EventCancel}, StateIdle)

	apply(t, m, Trigger("deploy.yml"), StateTriggering)
	apply(t, m, RunStarted("1"), StateDeploying)
	apply(t, m, Event{Kind: EventCancel}, StateIdle)
}

func TestHealthFailRecordsError(t *testing.T) {
	m := NewMachine("playground")
	apply(t, m, Trigger("deploy.yml"), StateTriggering)
	apply(t, m, RunStarted("1"), StateDeploying)
	apply(t, m, Event{Kind: EventSuccess}, StateChecking)
	apply(t, m, Event{Kind: EventHealthFail}, StateFailed)

	if m.Context().Err == "" {
		t.Fatal("expected an error message")
	}
}

func TestInvalidTransitionsRejected(t *testing.T) {
	cases := []struct {
		name  string
		setup []Event
		ev    Event
	}{
		{"health ok from idle", nil, Event{Kind: EventHealthOK}},
		{"run started from idle", nil, RunStarted("1")},
		{"cancel from checking", []Event{Trigger("w"), RunStarted("1"), {Kind: EventSuccess}}, Event{Kind: EventCancel}},
		{"retry from deploying", []Event{Trigger("w"), RunStarted("1")}, Event{Kind: EventRetry}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := NewMachine("svc")
			for _, ev := range tc.setup {
				if _, err := m.Apply(ev); err != nil {
					t.Fatalf("setup %s: %v", ev.Kind, err)
				}
			}
			before := m.State()
			_, err := m.Apply(tc.ev)
			var inv *ErrInvalidTransition
			if !errors.As(err, &inv) {
				t.Fatalf("expected invalid transition error, got %v", err)
			}
			if m.State() != before {
				t.Fatalf("state changed on rejected event: %s -> %s", before, m.State())
			}
		})
	}
}
