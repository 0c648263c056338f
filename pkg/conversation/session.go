// Copyright (C) 2026 SkySage AI (dev@skysage.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package conversation implements the client-side research chat
// session: an ordered message list, a single-flight send gate, and a
// bounded retry policy over the gateway.
//
// # State Machine
//
// A session is an explicit finite-state machine:
//
//	Idle ──Send──▶ Awaiting ──failure──▶ Retrying ──outcome──▶ Idle
//	                  │
//	                success──▶ Idle
//
// At most one gateway call is in flight per session, enforced by the
// state gate: Send while not Idle is a no-op. Every accepted user
// message is eventually followed by exactly one terminal assistant
// message (a real answer, a degraded in-band error text, or the
// request-failed text) on every path, so Awaiting can never stick.
//
// # Retry Policy
//
// A failed gateway call (transport error or in-band error) is retried
// at most once, after a fixed delay on a cancellable timer. During the
// retry an interim "Retrying…" assistant message is shown; the eventual
// outcome replaces it in place rather than appending a second message.
package conversation

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/skysage-ai/skysage/pkg/logging"
	"github.com/skysage-ai/skysage/pkg/recent"
	"github.com/skysage-ai/skysage/services/gateway/datatypes"
)

// =============================================================================
// Constants
// =============================================================================

// maxRetries bounds how many times a failed send is resubmitted.
const maxRetries = 1

// DefaultRetryDelay is the pause before the single retry attempt.
const DefaultRetryDelay = 1500 * time.Millisecond

// retryingText is the interim assistant message shown while the retry
// is pending; it is replaced by the eventual outcome.
const retryingText = "Retrying…"

// failedText is the terminal message for a transport-level failure.
const failedText = "Sorry, the request failed. Check your connection and that the gateway is running."

// emptyAnswerText stands in when the gateway returns a success with no
// answer text at all.
const emptyAnswerText = "I couldn't get a response. Please try again."

// WelcomeMessage is the assistant greeting seeded into every session.
const WelcomeMessage = `Hello! I'm your AI research consultant powered by SkySage's data. I can help you with:

• Aircraft model research and specifications
• Market value comparisons and trends
• Price estimations and valuations
• Resale potential analysis`

// =============================================================================
// Types
// =============================================================================

// Role identifies who authored a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry of the conversation transcript. Messages are
// immutable once terminal; the single exception is the interim retrying
// message, which the retry outcome overwrites in place (same ID).
type Message struct {
	ID        string
	Role      Role
	Content   string
	Sources   []datatypes.SourceRef
	DataUsed  map[string]int
	Timestamp time.Time
}

// State is the session's position in its send state machine.
type State int

const (
	// StateIdle accepts new sends.
	StateIdle State = iota

	// StateAwaiting has one gateway call in flight.
	StateAwaiting

	// StateRetrying is between a failed call and its single retry.
	StateRetrying
)

// String returns "idle", "awaiting", or "retrying".
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaiting:
		return "awaiting"
	case StateRetrying:
		return "retrying"
	default:
		return "unknown"
	}
}

// Gateway is the session's view of the query gateway.
type Gateway interface {
	// Answer submits a query with bounded history. The error covers
	// transport-level failure reaching the gateway; in-band failures
	// arrive as a ChatResponse with Error set.
	Answer(ctx context.Context, query string, history []datatypes.HistoryTurn) (datatypes.ChatResponse, error)
}

// =============================================================================
// Session
// =============================================================================

// Config holds session construction options.
type Config struct {
	// Gateway handles submitted queries. Required.
	Gateway Gateway

	// Tracker, when set, is notified of every accepted user query.
	Tracker *recent.Tracker

	// RetryDelay is the pause before the single retry.
	// Default: DefaultRetryDelay.
	RetryDelay time.Duration

	// OnUpdate, when set, is called (without the session lock held)
	// after every observable state or transcript change. UIs use it to
	// re-render.
	OnUpdate func()

	// Logger receives structured session logs. Default: logging.Default().
	Logger *logging.Logger
}

// Session owns one conversation. All exported methods are safe for
// concurrent use; the transcript is only ever mutated by the session's
// own send flow.
type Session struct {
	mu           sync.Mutex
	state        State
	messages     []Message
	pendingInput string
	hasPending   bool
	closed       bool
	interimID    string
	retryTimer   *time.Timer
	flightDone   chan struct{}

	gateway    Gateway
	tracker    *recent.Tracker
	retryDelay time.Duration
	onUpdate   func()
	logger     *logging.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

// NewSession creates a session seeded with the welcome message.
func NewSession(cfg Config) *Session {
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = DefaultRetryDelay
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		state:      StateIdle,
		gateway:    cfg.Gateway,
		tracker:    cfg.Tracker,
		retryDelay: cfg.RetryDelay,
		onUpdate:   cfg.OnUpdate,
		logger:     cfg.Logger,
		ctx:        ctx,
		cancel:     cancel,
	}
	s.messages = []Message{{
		ID:        uuid.NewString(),
		Role:      RoleAssistant,
		Content:   WelcomeMessage,
		Timestamp: time.Now(),
	}}
	return s
}

// =============================================================================
// Accessors
// =============================================================================

// State returns the current send state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Messages returns a copy of the transcript in order.
func (s *Session) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// =============================================================================
// Pending Input (suggested-query injection)
// =============================================================================

// SetPendingInput stages a suggested query for the input box. Each
// assignment is consumed at most once; staging replaces any previous
// unconsumed suggestion.
func (s *Session) SetPendingInput(query string) {
	trimmed := strings.TrimSpace(query)
	s.mu.Lock()
	s.pendingInput = trimmed
	s.hasPending = trimmed != ""
	s.mu.Unlock()
	s.notify()
}

// ConsumePendingInput returns the staged suggestion and clears it. The
// second return is false when nothing was staged or the suggestion was
// already consumed, so a stale suggestion is never re-applied.
func (s *Session) ConsumePendingInput() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.hasPending {
		return "", false
	}
	query := s.pendingInput
	s.pendingInput = ""
	s.hasPending = false
	return query, true
}

// =============================================================================
// Send Flow
// =============================================================================

// Send submits a user query. It is a no-op returning false unless the
// trimmed text is non-empty and the session is Idle. On acceptance the
// user message is appended immediately, pending input is cleared, the
// tracker is notified, and the gateway is invoked asynchronously.
func (s *Session) Send(text string) bool {
	text = strings.TrimSpace(text)

	s.mu.Lock()
	if text == "" || s.state != StateIdle || s.closed {
		s.mu.Unlock()
		return false
	}

	// History is the last turns prior to this message, role and content
	// only; citations are stripped.
	history := s.historyLocked()

	s.messages = append(s.messages, Message{
		ID:        uuid.NewString(),
		Role:      RoleUser,
		Content:   text,
		Timestamp: time.Now(),
	})
	s.pendingInput = ""
	s.hasPending = false
	s.state = StateAwaiting
	s.flightDone = make(chan struct{})
	s.mu.Unlock()

	if s.tracker != nil {
		s.tracker.Record(text)
	}
	s.notify()

	go s.attempt(text, history, 0)
	return true
}

// historyLocked builds the outbound history slice from the transcript.
// Caller holds s.mu.
func (s *Session) historyLocked() []datatypes.HistoryTurn {
	start := 0
	if len(s.messages) > datatypes.MaxHistoryTurns {
		start = len(s.messages) - datatypes.MaxHistoryTurns
	}
	history := make([]datatypes.HistoryTurn, 0, len(s.messages)-start)
	for _, m := range s.messages[start:] {
		history = append(history, datatypes.HistoryTurn{
			Role:    string(m.Role),
			Content: m.Content,
		})
	}
	return history
}

// attempt performs one gateway call and resolves its outcome. attemptNo
// is 0 for the original submission and 1 for the retry.
func (s *Session) attempt(text string, history []datatypes.HistoryTurn, attemptNo int) {
	resp, err := s.gateway.Answer(s.ctx, text, history)

	s.mu.Lock()
	if s.closed {
		// The session was torn down mid-flight; a late response must
		// not mutate a discarded transcript.
		s.mu.Unlock()
		return
	}

	failed := err != nil || resp.Error != nil
	if failed && attemptNo < maxRetries {
		s.logger.Warn("send failed, retrying once",
			"attempt", attemptNo,
			"transport_error", err != nil)
		s.state = StateRetrying
		s.interimID = s.appendOrReplaceLocked(Message{
			ID:        uuid.NewString(),
			Role:      RoleAssistant,
			Content:   retryingText,
			Timestamp: time.Now(),
		})
		s.retryTimer = time.AfterFunc(s.retryDelay, func() {
			s.attempt(text, history, attemptNo+1)
		})
		s.mu.Unlock()
		s.notify()
		return
	}

	// Terminal outcome: success, degraded answer, or final failure.
	msg := Message{
		ID:        uuid.NewString(),
		Role:      RoleAssistant,
		Timestamp: time.Now(),
	}
	switch {
	case err != nil:
		msg.Content = failedText
	case resp.Error != nil:
		// The gateway's normalized answer text is the user-actionable
		// failure description.
		msg.Content = resp.Answer
		if msg.Content == "" {
			msg.Content = failedText
		}
	default:
		msg.Content = resp.Answer
		if msg.Content == "" {
			msg.Content = emptyAnswerText
		}
		if len(resp.Sources) > 0 {
			msg.Sources = resp.Sources
		}
		if len(resp.DataUsed) > 0 {
			msg.DataUsed = resp.DataUsed
		}
	}
	s.appendOrReplaceLocked(msg)
	s.interimID = ""
	s.retryTimer = nil
	s.state = StateIdle
	if s.flightDone != nil {
		close(s.flightDone)
		s.flightDone = nil
	}
	s.mu.Unlock()
	s.notify()
}

// appendOrReplaceLocked appends the message, or overwrites the interim
// retrying message in place when one is pending. Returns the ID of the
// message now holding the content. Caller holds s.mu.
func (s *Session) appendOrReplaceLocked(msg Message) string {
	if s.interimID != "" {
		for i := range s.messages {
			if s.messages[i].ID == s.interimID {
				msg.ID = s.interimID
				s.messages[i] = msg
				return msg.ID
			}
		}
	}
	s.messages = append(s.messages, msg)
	return msg.ID
}

// notify fires the update callback outside the lock.
func (s *Session) notify() {
	if s.onUpdate != nil {
		s.onUpdate()
	}
}

// =============================================================================
// Lifecycle
// =============================================================================

// WaitIdle blocks until any in-flight send (including a pending retry)
// resolves, or the context is done.
func (s *Session) WaitIdle(ctx context.Context) error {
	s.mu.Lock()
	ch := s.flightDone
	s.mu.Unlock()
	if ch == nil {
		return nil
	}
	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close tears the session down: the in-flight gateway call is
// cancelled, any pending retry timer is stopped, and late responses are
// discarded. Close is idempotent.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	if s.retryTimer != nil {
		s.retryTimer.Stop()
		s.retryTimer = nil
	}
	if s.flightDone != nil {
		close(s.flightDone)
		s.flightDone = nil
	}
	s.state = StateIdle
	s.mu.Unlock()

	s.cancel()
}
