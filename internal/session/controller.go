// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/jeranaias/shipctl-tui/internal/accum"
	"github.com/jeranaias/shipctl-tui/internal/backend"
	"github.com/jeranaias/shipctl-tui/internal/history"
	"github.com/jeranaias/shipctl-tui/internal/model"
	"github.com/jeranaias/shipctl-tui/internal/selection"
	"github.com/jeranaias/shipctl-tui/internal/stream"
	"github.com/jeranaias/shipctl-tui/internal/thinktag"
)

// ModeratorID is the synthetic card id for the orchestrator/chairman
// surface: phase labels, syntheses, and session-level errors land here.
const ModeratorID = "moderator"

// phaseError is the terminal phase label. finish() never clobbers it.
const phaseError = "Error"

// genericFailure marks participants that ended a failed session without
// producing anything.
const genericFailure = "Generation failed"

// Sentinel errors for sendMessage preconditions. Protocol and transport
// failures are never returned to the caller; they render into model
// state instead.
var (
	ErrEmptyMessage   = errors.New("message text is empty")
	ErrBusy           = errors.New("a session is already in flight")
	ErrNoParticipants = errors.New("no participant models selected")
)

// Streamer is the slice of the backend client the controller drives.
type Streamer interface {
	StreamCompare(ctx context.Context, req backend.CompareRequest, apply func(stream.CompareEvent)) error
	StreamCouncil(ctx context.Context, req backend.CouncilRequest, apply func(stream.CouncilEvent)) error
	StreamRoundtable(ctx context.Context, req backend.RoundtableRequest, apply func(stream.RoundtableEvent)) error
	StreamPersonality(ctx context.Context, req backend.PersonalityRequest, apply func(stream.PersonalityEvent)) error
}

// SendOptions tunes one SendMessage invocation. Participants, when
// non-nil, overrides the default participant set and bypasses the
// busy-refusal so an in-flight session can be restarted with a subset.
// PreviousResponses seeds already-finished answers so a restart does not
// regenerate them.
type SendOptions struct {
	PreviousResponses map[string]string
	Participants      []string
	MaxTokens         int
	Temperature       float64
	Turns             int
}

// Turn is one recorded roundtable contribution.
type Turn struct {
	Number   int
	Response string
}

// Review is one collected council stage-2 peer review.
type Review struct {
	ReviewerID   string
	ReviewerName string
	Text         string
	Err          string
}

// Controller drives one multi-model session at a time: it builds the
// request for the active mode, consumes the event stream, updates
// per-model state through the thinking-tag splitter and the delta
// accumulator, and appends transcript entries at protocol checkpoints.
type Controller struct {
	mu sync.Mutex

	streamer Streamer
	store    *model.Store
	ledger   *history.Ledger
	timing   *model.TimingBoard
	ranker   *selection.Ranker
	acc      *accum.Accumulator

	mode         model.Mode
	participants []string
	githubToken  string

	splitters map[string]*thinktag.Splitter

	// generation identifies the active session. Every event application
	// and the teardown path check it, so a superseded session can never
	// write over its successor's state.
	generation uint64
	cancel     context.CancelFunc

	isGenerating   bool
	isSynthesizing bool
	halted         bool
	phase          string
	speaking       map[string]bool

	activeParticipants []string
	cached             map[string]string
	lastQuery          string
	lastContext        string
	lastEntries        []history.Entry

	rankings        []stream.AggregateRanking
	reviews         []Review
	expectedReviews int
	receivedReviews int
	discussionTurns map[string][]Turn

	logf func(format string, args ...any)
}

// NewController wires a controller over its collaborators. The delta
// accumulator flushes straight into the store.
func NewController(streamer Streamer, store *model.Store, ledger *history.Ledger) *Controller {
	c := &Controller{
		streamer:        streamer,
		store:           store,
		ledger:          ledger,
		timing:          model.NewTimingBoard(),
		ranker:          selection.NewRanker(),
		mode:            model.ModeChat,
		splitters:       make(map[string]*thinktag.Splitter),
		speaking:        make(map[string]bool),
		discussionTurns: make(map[string][]Turn),
		logf: func(format string, args ...any) {
			log.Printf("[SESSION] "+format, args...)
		},
	}
	c.acc = accum.New(accum.SinkFunc(store.AppendDelta))
	return c
}

// WithTimingBoard swaps in a timing board, for tests with a fake clock.
func (c *Controller) WithTimingBoard(b *model.TimingBoard) *Controller {
	c.timing = b
	return c
}

// WithRanker swaps in a selection ranker.
func (c *Controller) WithRanker(r *selection.Ranker) *Controller {
	c.ranker = r
	return c
}

// =============================================================================
// CONFIGURATION & SNAPSHOTS
// =============================================================================

// Mode returns the active interaction mode.
func (c *Controller) Mode() model.Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

// SetMode switches the interaction mode and rewrites the transcript with
// the carryover rule for the target mode: compare keeps everything,
// every other mode keeps user turns plus the latest synthesis.
func (c *Controller) SetMode(m model.Mode) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if m == c.mode {
		return
	}
	c.ledger.Replace(history.BuildCarryover(c.ledger.Entries(), m))
	c.mode = m
}

// SetParticipants replaces the default participant set.
func (c *Controller) SetParticipants(ids []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.participants = append([]string(nil), ids...)
}

// Participants returns the default participant set.
func (c *Controller) Participants() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.participants...)
}

// SetGitHubToken stores the token passed through to stream requests.
// No validation happens here; the backend owns that.
func (c *Controller) SetGitHubToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.githubToken = token
}

// IsGenerating reports whether a session is in flight.
func (c *Controller) IsGenerating() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.isGenerating
}

// Phase returns the current phase label, empty when idle.
func (c *Controller) Phase() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// Speaking returns the ids currently streaming tokens.
func (c *Controller) Speaking() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.speaking))
	for id := range c.speaking {
		out = append(out, id)
	}
	return out
}

// Rankings returns the council's aggregate rankings, if stage 2 ran.
func (c *Controller) Rankings() []stream.AggregateRanking {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]stream.AggregateRanking(nil), c.rankings...)
}

// Reviews returns the collected council stage-2 reviews.
func (c *Controller) Reviews() []Review {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Review(nil), c.reviews...)
}

// DiscussionTurns returns the recorded roundtable turns per model.
func (c *Controller) DiscussionTurns() map[string][]Turn {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string][]Turn, len(c.discussionTurns))
	for id, turns := range c.discussionTurns {
		out[id] = append([]Turn(nil), turns...)
	}
	return out
}

// Cards returns display snapshots for the active (or default)
// participants plus the moderator card.
func (c *Controller) Cards() []model.Card {
	c.mu.Lock()
	ids := c.activeParticipants
	if len(ids) == 0 {
		ids = c.participants
	}
	ids = append(append([]string(nil), ids...), ModeratorID)
	c.mu.Unlock()
	return c.store.Snapshot(ids)
}

// Timing returns the timing record for one id.
func (c *Controller) Timing(id string) (model.ExecutionTime, bool) {
	return c.timing.Get(id)
}

// ClearHistory drops the transcript for a fresh round.
func (c *Controller) ClearHistory() {
	c.ledger.Clear()
}

// =============================================================================
// SEND / STOP / TOGGLE
// =============================================================================

// SendMessage runs one full session: precondition checks, per-round
// reset, the mode's protocol, and teardown. It blocks until the stream
// ends or ctx is cancelled; callers run it in a goroutine when they need
// a live UI. Protocol and transport failures are rendered into model
// state, never returned; only precondition refusals come back as errors.
func (c *Controller) SendMessage(ctx context.Context, text string, opts SendOptions) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyMessage
	}
	restart := opts.Participants != nil

	c.mu.Lock()
	if c.isGenerating && !restart {
		c.mu.Unlock()
		return ErrBusy
	}

	participants := opts.Participants
	if len(participants) == 0 {
		participants = append([]string(nil), c.participants...)
	}
	if len(participants) == 0 {
		c.mu.Unlock()
		return ErrNoParticipants
	}

	mode := c.mode
	if len(participants) < mode.MinParticipants() {
		// Guard failure: render the refusal, make no request.
		c.phase = phaseError
		c.store.SetError(ModeratorID, guardMessage(mode))
		c.mu.Unlock()
		return nil
	}

	if restart && c.cancel != nil {
		c.cancel()
	}

	c.generation++
	gen := c.generation
	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	c.isGenerating = true
	c.isSynthesizing = false
	c.halted = false
	c.phase = ""
	c.speaking = make(map[string]bool)
	c.rankings = nil
	c.reviews = nil
	c.expectedReviews = 0
	c.receivedReviews = 0
	c.discussionTurns = make(map[string][]Turn)
	c.activeParticipants = append([]string(nil), participants...)
	c.cached = make(map[string]string, len(opts.PreviousResponses))
	for id, resp := range opts.PreviousResponses {
		c.cached[id] = resp
	}
	c.lastQuery = text

	all := append(append([]string(nil), participants...), ModeratorID)
	c.store.ResetForRound(all, opts.PreviousResponses)
	c.timing.Reset(all)
	c.splitters = make(map[string]*thinktag.Splitter, len(all))
	for _, id := range all {
		c.splitters[id] = new(thinktag.Splitter)
	}
	c.acc.Reset()

	if !restart {
		// Context is captured before this query's user turn lands, and
		// reused verbatim on restarts so a restarted session sees the
		// same context as the original.
		entries := c.ledger.Entries()
		c.lastEntries = entries
		c.lastContext = history.ToText(entries)
		c.ledger.Push(history.UserEntry(text))
	}
	contextEntries := c.lastEntries
	contextText := c.lastContext
	c.mu.Unlock()

	c.logf("session start: mode=%s participants=%d restart=%v", mode, len(participants), restart)
	defer cancel()

	var err error
	switch mode {
	case model.ModeChat, model.ModeCompare:
		err = c.runCompare(runCtx, gen, text, participants, contextEntries, opts)
	case model.ModeCouncil:
		err = c.runCouncil(runCtx, gen, text, participants, contextText, opts)
	case model.ModeRoundtable:
		err = c.runRoundtable(runCtx, gen, text, participants, contextText, opts)
	case model.ModePersonality:
		err = c.runPersonality(runCtx, gen, text, participants, contextText, opts)
	default:
		err = fmt.Errorf("unsupported mode %q", mode)
	}

	c.finish(gen, participants, err)
	return nil
}

// Stop aborts the in-flight session, if any. The frozen per-model text
// stays on screen; no error state is written.
func (c *Controller) Stop() {
	c.mu.Lock()
	cancel := c.cancel
	c.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// ToggleModel removes a model from the session. If the model is part of
// an in-flight participant set, the session restarts with the remaining
// participants, seeded with every remaining model's finished text so
// completed work is not regenerated. Dropping below the mode's minimum
// abandons the session instead.
func (c *Controller) ToggleModel(ctx context.Context, removedID string) error {
	c.mu.Lock()
	c.participants = removeID(c.participants, removedID)

	if !c.isGenerating || !containsID(c.activeParticipants, removedID) {
		c.mu.Unlock()
		return nil
	}

	remaining := removeID(c.activeParticipants, removedID)
	mode := c.mode
	if len(remaining) < mode.MinParticipants() {
		cancel := c.cancel
		c.phase = phaseError
		c.store.SetError(ModeratorID, guardMessage(mode))
		c.generation++ // invalidate the doomed session's teardown
		c.isGenerating = false
		c.cancel = nil
		c.mu.Unlock()
		if cancel != nil {
			cancel()
		}
		return nil
	}

	seed := make(map[string]string, len(remaining))
	for _, id := range remaining {
		st := c.store.State(id)
		if st.HasContent() && !st.Failed() {
			seed[id] = st.Response
		}
	}
	query := c.lastQuery
	c.mu.Unlock()

	return c.SendMessage(ctx, query, SendOptions{
		Participants:      remaining,
		PreviousResponses: seed,
	})
}

// =============================================================================
// TEARDOWN
// =============================================================================

// finish is the always-runs teardown. Both halves are generation
// guarded: a superseded session must not touch its successor's state.
func (c *Controller) finish(gen uint64, participants []string, err error) {
	if err != nil && !errors.Is(err, context.Canceled) {
		c.guard(gen, func() {
			c.acc.Reset()
			c.store.SetResponse(ModeratorID, "Session Error: "+err.Error())
			for _, id := range participants {
				st := c.store.State(id)
				if !st.HasContent() && !st.Failed() {
					c.store.SetError(id, genericFailure)
				}
			}
			c.phase = phaseError
		})
		c.logf("session failed: %v", err)
	}

	c.guard(gen, func() {
		c.acc.Flush()
		c.timing.EnsureEnded()
		c.isGenerating = false
		c.isSynthesizing = false
		c.speaking = make(map[string]bool)
		if c.phase != phaseError {
			c.phase = ""
		}
		c.cancel = nil
	})
}

// guard runs fn under the lock only while gen is still the active
// session. Reports whether fn ran.
func (c *Controller) guard(gen uint64, fn func()) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation {
		return false
	}
	fn()
	return true
}

// =============================================================================
// SHARED EVENT PLUMBING
// =============================================================================

// feedDelta routes one raw text delta for id through its splitter into
// the accumulator. First token clears any transient status note.
func (c *Controller) feedDelta(id, content string) {
	if content == "" {
		return
	}
	c.timing.RecordFirstToken(id)
	c.store.ClearStatusMessage(id)
	c.speaking[id] = true
	sp := c.splitters[id]
	if sp == nil {
		sp = new(thinktag.Splitter)
		c.splitters[id] = sp
	}
	answer, thinking := sp.Feed(content)
	if answer != "" || thinking != "" {
		c.acc.Enqueue(id, answer, thinking)
	}
}

// failModel marks one model failed without touching the others.
func (c *Controller) failModel(id, msg string) {
	c.acc.ClearPendingForModel(id)
	c.store.SetError(id, msg)
	c.timing.RecordEnd(id)
	delete(c.speaking, id)
}

// haltSession applies a stream-wide error: the moderator shows the
// message and all further events from this stream are ignored.
func (c *Controller) haltSession(msg string) {
	c.halted = true
	c.acc.ClearPendingForModel(ModeratorID)
	c.store.SetResponse(ModeratorID, msg)
	c.phase = phaseError
}

// noteStatus records a transient status message for id, decorated with
// an icon when the text reads like a backoff or a failure. Rate-limit
// notes also feed the selection ranker's cooldown.
func (c *Controller) noteStatus(id, msg string) {
	lower := strings.ToLower(msg)
	if strings.Contains(lower, "rate limit") {
		c.ranker.RecordRateLimit(id)
	}
	c.store.SetStatusMessage(id, decorateStatus(msg))
}

// decorateStatus prefixes a status message with a clock icon for
// backoff-ish text and a warning icon for failure-ish text.
func decorateStatus(msg string) string {
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "rate limit") || strings.Contains(lower, "waiting"):
		return "⏳ " + msg
	case strings.Contains(lower, "error") || strings.Contains(lower, "failed"):
		return "⚠️ " + msg
	}
	return msg
}

// guardMessage is the refusal text for modes that need two models.
func guardMessage(m model.Mode) string {
	name := m.String()
	if name != "" {
		name = strings.ToUpper(name[:1]) + name[1:]
	}
	return fmt.Sprintf("%s requires at least 2 participants.", name)
}

// pickOrchestrator resolves the real model carrying the moderator role
// for council/roundtable requests.
func (c *Controller) pickOrchestrator(participants []string) string {
	candidates := make([]model.Model, 0, len(participants))
	for _, id := range participants {
		if m, ok := c.store.Get(id); ok {
			candidates = append(candidates, m)
		}
	}
	if m, ok := c.ranker.PickOrchestrator(candidates); ok {
		return m.ID
	}
	if len(participants) > 0 {
		return participants[0]
	}
	return ""
}

// buildQuery prefixes the rendered transcript context onto the new
// query for the modes that take a single query string.
func buildQuery(contextText, text string) string {
	if contextText == "" {
		return text
	}
	return contextText + "\n\nUser: " + text
}

// entriesToMessages renders transcript entries plus the new query as
// chat messages for the compare endpoint.
func entriesToMessages(entries []history.Entry, text string) []backend.ChatMessage {
	msgs := make([]backend.ChatMessage, 0, len(entries)+1)
	for _, e := range entries {
		msgs = append(msgs, backend.ChatMessage{Role: string(e.Role), Content: e.Content})
	}
	return append(msgs, backend.ChatMessage{Role: "user", Content: text})
}

func removeID(ids []string, id string) []string {
	out := make([]string, 0, len(ids))
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

func containsID(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
