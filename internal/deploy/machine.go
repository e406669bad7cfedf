// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package deploy

import "fmt"

// =============================================================================
// STATES & EVENTS
// =============================================================================

// State is a deployment lifecycle phase for one service.
type State string

const (
	StateIdle       State = "idle"
	StateTriggering State = "triggering"
	StateDeploying  State = "deploying"
	StateChecking   State = "checking"
	StateSuccess    State = "success"
	StateFailed     State = "failed"
)

// EventKind discriminates machine inputs.
type EventKind string

const (
	EventTrigger    EventKind = "TRIGGER"
	EventRunStarted EventKind = "RUN_STARTED"
	EventSuccess    EventKind = "SUCCESS"
	EventFailure    EventKind = "FAILURE"
	EventHealthOK   EventKind = "HEALTH_OK"
	EventHealthFail EventKind = "HEALTH_FAIL"
	EventRetry      EventKind = "RETRY"
	EventCancel     EventKind = "CANCEL"
)

// Event is one machine input with its optional payload.
type Event struct {
	Kind       EventKind
	WorkflowID string // TRIGGER
	RunID      string // RUN_STARTED
	Err        string // FAILURE
}

// Trigger builds a TRIGGER event for workflowID.
func Trigger(workflowID string) Event {
	return Event{Kind: EventTrigger, WorkflowID: workflowID}
}

// RunStarted builds a RUN_STARTED event for runID.
func RunStarted(runID string) Event {
	return Event{Kind: EventRunStarted, RunID: runID}
}

// Failure builds a FAILURE event carrying the error text.
func Failure(err string) Event {
	return Event{Kind: EventFailure, Err: err}
}

// defaultRetries is how many post-deploy health retries a fresh trigger
// is granted.
const defaultRetries = 3

// maxRetriesMessage is the fixed error recorded when health checking
// exhausts its retries.
const maxRetriesMessage = "max retries exceeded"

// =============================================================================
// MACHINE
// =============================================================================

// Context is the mutable deployment record for one service. Transitions
// on the Machine rewrite it; callers read it for status badges.
type Context struct {
	ServiceName string `json:"service_name"`
	WorkflowID  string `json:"workflow_id,omitempty"`
	RunID       string `json:"run_id,omitempty"`
	Err         string `json:"error,omitempty"`
	RetriesLeft int    `json:"retries_left"`
}

// Machine is a pure per-service deployment state machine. It performs no
// I/O: dispatching the workflow run and polling service health are the
// caller's job, fed back in as events.
type Machine struct {
	state State
	ctx   Context
}

// NewMachine creates an idle machine for serviceName.
func NewMachine(serviceName string) *Machine {
	return &Machine{
		state: StateIdle,
		ctx:   Context{ServiceName: serviceName, RetriesLeft: defaultRetries},
	}
}

// State returns the current state.
func (m *Machine) State() State { return m.state }

// Context returns a copy of the deployment record.
func (m *Machine) Context() Context { return m.ctx }

// ErrInvalidTransition reports an event the current state does not accept.
type ErrInvalidTransition struct {
	State State
	Event EventKind
}

func (e *ErrInvalidTransition) Error() string {
	return fmt.Sprintf("deploy: event %s not valid in state %s", e.Event, e.State)
}

// Apply feeds one event into the machine and returns the resulting state.
// Unaccepted events leave the machine untouched and return
// *ErrInvalidTransition.
func (m *Machine) Apply(ev Event) (State, error) {
	switch m.state {
	case StateIdle:
		if ev.Kind == EventTrigger {
			m.startTrigger(ev.WorkflowID)
			return m.state, nil
		}

	case StateTriggering:
		switch ev.Kind {
		case EventRunStarted:
			m.ctx.RunID = ev.RunID
			m.state = StateDeploying
			return m.state, nil
		case EventFailure:
			m.fail(ev.Err)
			return m.state, nil
		case EventCancel:
			m.state = StateIdle
			return m.state, nil
		}

	case StateDeploying:
		switch ev.Kind {
		case EventSuccess:
			m.state = StateChecking
			return m.state, nil
		case EventFailure:
			m.fail(ev.Err)
			return m.state, nil
		case EventCancel:
			m.state = StateIdle
			return m.state, nil
		}

	case StateChecking:
		switch ev.Kind {
		case EventHealthOK:
			m.state = StateSuccess
			return m.state, nil
		case EventHealthFail:
			msg := ev.Err
			if msg == "" {
				msg = "health check failed"
			}
			m.fail(msg)
			return m.state, nil
		case EventRetry:
			if m.ctx.RetriesLeft > 0 {
				m.ctx.RetriesLeft--
				return m.state, nil
			}
			m.fail(maxRetriesMessage)
			return m.state, nil
		}

	case StateSuccess, StateFailed:
		if ev.Kind == EventTrigger {
			m.startTrigger(ev.WorkflowID)
			return m.state, nil
		}
	}

	return m.state, &ErrInvalidTransition{State: m.state, Event: ev.Kind}
}

// startTrigger enters triggering with a fresh retry budget and no
// residual error or run id.
func (m *Machine) startTrigger(workflowID string) {
	m.ctx.WorkflowID = workflowID
	m.ctx.RunID = ""
	m.ctx.Err = ""
	m.ctx.RetriesLeft = defaultRetries
	m.state = StateTriggering
}

func (m *Machine) fail(err string) {
	m.ctx.Err = err
	m.state = StateFailed
}

// Terminal reports whether the machine reached success or failed.
func (m *Machine) Terminal() bool {
	return m.state == StateSuccess || m.state == StateFailed
}
