// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/jeranaias/lumen-tui/internal/credits"
	"github.com/jeranaias/lumen-tui/internal/model"
	"github.com/jeranaias/lumen-tui/internal/prompt"
	"github.com/jeranaias/lumen-tui/internal/store"
	"github.com/jeranaias/lumen-tui/internal/transport"
)

// =============================================================================
// SESSION STATE
// =============================================================================

// State is the controller's position in the submission lifecycle.
type State int

const (
	// StateIdle: no submission in flight, input accepted.
	StateIdle State = iota

	// StateSubmitted: request sent, no content received yet.
	StateSubmitted

	// StateStreaming: content arriving incrementally.
	StateStreaming

	// StateReady: last submission completed (or was stopped), input accepted.
	StateReady

	// StateErrored: last submission failed terminally, retry available.
	StateErrored
)

// String returns the state name for display and logging.
func (s State) String() string {
	switch s {
	case StateSubmitted:
		return "submitted"
	case StateStreaming:
		return "streaming"
	case StateReady:
		return "ready"
	case StateErrored:
		return "errored"
	default:
		return "idle"
	}
}

// Busy reports whether a submission is in flight.
func (s State) Busy() bool {
	return s == StateSubmitted || s == StateStreaming
}

// =============================================================================
// EVENTS
// =============================================================================

// Event is delivered to the UI loop as the session progresses. Events for
// one submission arrive in order on a single channel.
type Event any

// StateEvent reports a lifecycle transition.
type StateEvent struct {
	State State
}

// ChunkEvent carries one increment of assistant text.
type ChunkEvent struct {
	Content string
}

// DoneEvent reports normal completion of a submission.
type DoneEvent struct {
	Stopped bool // true when the user stopped the stream early
}

// ErrorEvent reports a terminal submission failure.
type ErrorEvent struct {
	Err error
}

// EndpointEvent reports a switch to the fallback route.
type EndpointEvent struct {
	Endpoint transport.Endpoint
}

// =============================================================================
// ERRORS
// =============================================================================

// Sentinel errors for submission guards.
// Use errors.Is to check for these errors.
var (
	ErrBusy         = &SessionError{Message: "a submission is already in flight"}
	ErrEmptyInput   = &SessionError{Message: "message is empty"}
	ErrRateLimited  = &SessionError{Message: "sending too fast, slow down"}
	ErrNotRetryable = &SessionError{Message: "nothing to retry"}
)

// SessionError represents a session guard failure.
type SessionError struct {
	Message string
}

func (e *SessionError) Error() string {
	return e.Message
}

// Is implements errors.Is support for comparing session errors.
func (e *SessionError) Is(target error) bool {
	t, ok := target.(*SessionError)
	if !ok {
		return false
	}
	return e.Message == t.Message
}

// =============================================================================
// CANCEL MANAGEMENT (THREAD-SAFE)
// =============================================================================

// cancelManager guards the in-flight cancel function. The Update loop and
// the stream goroutine both touch it, so access is mutex-protected.
type cancelManager struct {
	mu         sync.Mutex
	cancelFunc context.CancelFunc
}

func (cm *cancelManager) set(fn context.CancelFunc) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.cancelFunc = fn
}

// cancel invokes and clears the stored cancel function.
// Safe to call multiple times or with no cancel function set.
func (cm *cancelManager) cancel() {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	if cm.cancelFunc != nil {
		cm.cancelFunc()
		cm.cancelFunc = nil
	}
}

// =============================================================================
// CONTROLLER
// =============================================================================

// Config holds the controller's tunable delays and rate limit. The zero
// value is replaced by DefaultConfig.
type Config struct {
	// FallbackDelay is the pause before switching to the fallback route.
	FallbackDelay time.Duration

	// RetryDelay is the pause before replaying an explicit retry.
	RetryDelay time.Duration

	// SubmitRate bounds how fast messages can be submitted.
	SubmitRate rate.Limit

	// SubmitBurst is the rate limiter burst size.
	SubmitBurst int
}

// DefaultConfig returns the default controller configuration.
func DefaultConfig() Config {
	return Config{
		FallbackDelay: 500 * time.Millisecond,
		RetryDelay:    300 * time.Millisecond,
		SubmitRate:    rate.Every(time.Second),
		SubmitBurst:   3,
	}
}

// Controller owns one conversation's submission lifecycle: debiting
// credits, streaming responses, switching to the fallback route, retrying,
// and persisting the result. All exported methods are safe to call from
// the UI loop; streaming happens on an internal goroutine and is reported
// through the Events channel.
type Controller struct {
	client *transport.Client
	ledger *credits.Ledger
	store  *store.Store
	log    zerolog.Logger

	config  Config
	limiter *rate.Limiter
	cancel  *cancelManager
	events  chan Event

	mu           sync.Mutex
	conv         *model.Conversation
	mode         prompt.Mode
	state        State
	endpoint     transport.Endpoint
	fallbackUsed bool
	lastErr      error
}

// NewController creates a session controller over a fresh conversation.
func NewController(client *transport.Client, ledger *credits.Ledger, s *store.Store, cfg Config, log zerolog.Logger) *Controller {
	if cfg.FallbackDelay == 0 && cfg.RetryDelay == 0 && cfg.SubmitRate == 0 {
		cfg = DefaultConfig()
	}
	if cfg.SubmitBurst == 0 {
		cfg.SubmitBurst = 1
	}

	return &Controller{
		client:  client,
		ledger:  ledger,
		store:   s,
		log:     log.With().Str("component", "session").Logger(),
		config:  cfg,
		limiter: rate.NewLimiter(cfg.SubmitRate, cfg.SubmitBurst),
		cancel:  &cancelManager{},
		events:  make(chan Event, 64),
		conv:    model.NewConversation(),
		mode:    prompt.ModeAssistant,
		state:   StateIdle,
	}
}

// Events returns the channel session events are delivered on.
func (c *Controller) Events() <-chan Event {
	return c.events
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Conversation returns a deep copy of the controller's conversation taken
// under the lock. The stream goroutine keeps appending to the live
// conversation, so callers get an isolated snapshot rather than shared
// message pointers.
func (c *Controller) Conversation() *model.Conversation {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conv.Snapshot()
}

// Mode returns the active persona mode.
func (c *Controller) Mode() prompt.Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

// SetMode switches the persona for subsequent submissions. Rejected while
// a submission is in flight.
func (c *Controller) SetMode(mode prompt.Mode) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Busy() {
		return ErrBusy
	}
	c.mode = mode
	return nil
}

// Endpoint returns the route the next attempt will use.
func (c *Controller) Endpoint() transport.Endpoint {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.endpoint
}

// LastError returns the error that put the controller in StateErrored.
func (c *Controller) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// =============================================================================
// CONVERSATION SWITCHING
// =============================================================================

// NewChat replaces the conversation with a fresh one. The fallback switch
// is scoped per conversation, so a new chat starts back on primary.
func (c *Controller) NewChat() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Busy() {
		return ErrBusy
	}

	c.conv = model.NewConversation()
	c.endpoint = transport.EndpointPrimary
	c.fallbackUsed = false
	c.lastErr = nil
	c.state = StateIdle
	return nil
}

// OpenChat loads a persisted conversation and makes it active.
func (c *Controller) OpenChat(id string) error {
	c.mu.Lock()
	if c.state.Busy() {
		c.mu.Unlock()
		return ErrBusy
	}
	c.mu.Unlock()

	conv, err := c.store.LoadConversation(id)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.conv = conv
	c.endpoint = transport.EndpointPrimary
	c.fallbackUsed = false
	c.lastErr = nil
	c.state = StateReady
	return nil
}

// DeleteChat removes a persisted chat. Deleting the active chat resets the
// controller to a fresh conversation.
func (c *Controller) DeleteChat(id string) error {
	c.mu.Lock()
	if c.state.Busy() {
		c.mu.Unlock()
		return ErrBusy
	}
	active := c.conv.ID == id
	c.mu.Unlock()

	if err := c.store.RemoveChat(id); err != nil {
		return err
	}
	if active {
		return c.NewChat()
	}
	return nil
}

// =============================================================================
// SUBMISSION
// =============================================================================

// Submit sends a user message. It debits one message cost up front; the
// debit stands even if the submission later fails or is stopped. Guards are
// checked in order: input, in-flight state, rate limit, then balance.
func (c *Controller) Submit(content string) error {
	if content == "" {
		return ErrEmptyInput
	}

	c.mu.Lock()
	if c.state.Busy() {
		c.mu.Unlock()
		return ErrBusy
	}
	if !c.limiter.Allow() {
		c.mu.Unlock()
		return ErrRateLimited
	}

	if _, err := c.ledger.Debit(); err != nil {
		c.mu.Unlock()
		return err
	}

	// Identity is minted on first submission, not on creation, so empty
	// conversations never appear in the chat list.
	if c.conv.ID == "" {
		c.conv.ID = uuid.NewString()
	}

	c.conv.AddUserMessage(content)
	c.conv.AddAssistantMessage()
	c.setStateLocked(StateSubmitted)
	c.lastErr = nil

	req := c.buildRequestLocked()
	c.mu.Unlock()

	// The cancel function is registered before any event goes out so a Stop
	// racing the launch still lands on this attempt.
	ctx, cancelFn := context.WithCancel(context.Background())
	c.cancel.set(cancelFn)

	c.emit(StateEvent{State: StateSubmitted})
	go c.stream(ctx, cancelFn, req)
	return nil
}

// Stop cancels an in-flight submission. Partial content already received
// is kept and finalized; the session lands in StateReady.
func (c *Controller) Stop() {
	c.mu.Lock()
	if !c.state.Busy() {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	c.cancel.cancel()
}

// Retry replays the last failed submission against the primary route after
// a short delay. The original debit already paid for this exchange, so no
// further credits are charged.
func (c *Controller) Retry() error {
	c.mu.Lock()
	if c.state != StateErrored {
		c.mu.Unlock()
		return ErrNotRetryable
	}

	// Retry is an explicit vote of confidence in the primary route: the
	// endpoint resets even if the fallback was already burned.
	c.endpoint = transport.EndpointPrimary
	c.conv.DropLastIfStreaming()
	c.conv.AddAssistantMessage()
	c.setStateLocked(StateSubmitted)
	c.lastErr = nil

	req := c.buildRequestLocked()
	delay := c.config.RetryDelay
	c.mu.Unlock()

	ctx, cancelFn := context.WithCancel(context.Background())
	c.cancel.set(cancelFn)

	c.emit(StateEvent{State: StateSubmitted})
	go c.runAfter(ctx, cancelFn, delay, req)
	return nil
}

// buildRequestLocked assembles the transport request from current state.
// Caller holds c.mu.
func (c *Controller) buildRequestLocked() transport.Request {
	var prefsJSON json.RawMessage
	prefs := c.store.LoadPreferences()
	if prefs != nil {
		if data, err := json.Marshal(prefs); err == nil {
			prefsJSON = data
		}
	}

	return transport.Request{
		Endpoint:     c.endpoint,
		SystemPrompt: prompt.System(c.mode, prefs),
		Messages:     c.conv.ToWireMessages(),
		Mode:         c.mode.String(),
		ChatID:       c.conv.ID,
		Preferences:  prefsJSON,
	}
}

// =============================================================================
// STREAM EXECUTION
// =============================================================================

// runAfter waits out a replay delay before streaming. A Stop during the
// delay cancels the context; the attempt is abandoned without ever hitting
// the wire and the exchange is finalized as a user stop.
func (c *Controller) runAfter(ctx context.Context, cancelFn context.CancelFunc, delay time.Duration, req transport.Request) {
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		c.stream(ctx, cancelFn, req)
	case <-ctx.Done():
		cancelFn()
		c.finish(true)
	}
}

// stream executes one attempt and handles its outcome. Runs on its own
// goroutine; exactly one stream is active at a time because Submit, Retry,
// and the fallback replay all pass through the Busy guard.
func (c *Controller) stream(ctx context.Context, cancelFn context.CancelFunc, req transport.Request) {
	defer cancelFn()

	c.log.Debug().
		Str("endpoint", req.Endpoint.String()).
		Str("chat_id", req.ChatID).
		Int("messages", len(req.Messages)).
		Msg("starting stream")

	var streamErr error
	for chunk := range c.client.StreamChan(ctx, req) {
		if chunk.Error != nil {
			streamErr = chunk.Error
			continue
		}
		if chunk.Done || chunk.Content == "" {
			continue
		}

		c.mu.Lock()
		started := c.state == StateSubmitted
		if started {
			c.setStateLocked(StateStreaming)
		}
		c.conv.AppendToLast(chunk.Content)
		c.mu.Unlock()

		if started {
			c.emit(StateEvent{State: StateStreaming})
		}
		c.emit(ChunkEvent{Content: chunk.Content})
	}

	switch {
	case streamErr == nil:
		c.finish(false)

	case transport.IsCanceled(streamErr):
		// User-initiated stop: keep the partial content.
		c.finish(true)

	default:
		c.fail(req, streamErr)
	}
}

// finish completes a submission, persisting the conversation and its
// summary. stopped marks a user-initiated early stop.
func (c *Controller) finish(stopped bool) {
	c.mu.Lock()
	c.conv.FinalizeLast()

	// An empty assistant message (stopped before any content) is noise;
	// drop it rather than render a blank bubble.
	if last := c.conv.LastMessage(); last != nil && last.Role == model.RoleAssistant && last.IsEmpty() {
		c.conv.Messages = c.conv.Messages[:len(c.conv.Messages)-1]
	}

	c.setStateLocked(StateReady)
	conv := c.conv.Snapshot()
	sum := conv.Summary()
	c.mu.Unlock()

	c.emit(StateEvent{State: StateReady})

	if err := c.store.SaveConversation(conv); err != nil {
		c.log.Warn().Err(err).Msg("failed to persist conversation")
	}
	if err := c.store.UpsertChat(sum); err != nil {
		c.log.Warn().Err(err).Msg("failed to persist chat summary")
	}

	c.emit(DoneEvent{Stopped: stopped})
}

// fail handles a terminal attempt error: switch to the fallback route once
// per conversation, otherwise land in StateErrored.
func (c *Controller) fail(req transport.Request, err error) {
	c.mu.Lock()

	if c.endpoint == transport.EndpointPrimary && !c.fallbackUsed {
		// One automatic fallback per conversation. Discard whatever the
		// broken primary attempt produced and replay cleanly.
		c.endpoint = transport.EndpointFallback
		c.fallbackUsed = true
		c.conv.DropLastIfStreaming()
		c.conv.AddAssistantMessage()
		changed := c.setStateLocked(StateSubmitted)

		req.Endpoint = transport.EndpointFallback
		req.Messages = c.conv.ToWireMessages()
		delay := c.config.FallbackDelay
		c.mu.Unlock()

		c.log.Warn().Err(err).Msg("primary endpoint failed, switching to fallback")

		// Registered before the switch is announced: a Stop issued on
		// seeing the endpoint event must cancel the pending replay, not
		// the spent attempt.
		ctx, cancelFn := context.WithCancel(context.Background())
		c.cancel.set(cancelFn)

		if changed {
			c.emit(StateEvent{State: StateSubmitted})
		}
		c.emit(EndpointEvent{Endpoint: transport.EndpointFallback})
		go c.runAfter(ctx, cancelFn, delay, req)
		return
	}

	c.conv.DropLastIfStreaming()
	c.lastErr = err
	c.setStateLocked(StateErrored)
	c.mu.Unlock()

	c.log.Error().Err(err).Str("endpoint", req.Endpoint.String()).Msg("submission failed")
	c.emit(StateEvent{State: StateErrored})
	c.emit(ErrorEvent{Err: err})
}

// setStateLocked records a transition, reporting whether the state actually
// changed. Caller holds c.mu and emits the matching StateEvent after
// releasing it; events are never sent under the lock.
func (c *Controller) setStateLocked(s State) bool {
	if c.state == s {
		return false
	}
	c.state = s
	return true
}

// emit delivers an event to the UI loop.
//
// RELIABILITY: chunk events are best-effort and may be dropped under
// backpressure; the full text is retained in the conversation, which the
// renderer reads. Lifecycle events (state, done, error, endpoint) block
// until delivered, because the UI mirrors session state from them and
// losing one wedges the interface. Callers must not hold c.mu here.
func (c *Controller) emit(ev Event) {
	if _, ok := ev.(ChunkEvent); ok {
		select {
		case c.events <- ev:
		default:
			c.log.Debug().Msg("event channel full, dropping chunk event")
		}
		return
	}
	c.events <- ev
}
