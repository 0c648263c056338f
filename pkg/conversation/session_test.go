// Copyright (C) 2026 SkySage AI (dev@skysage.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package conversation

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/skysage-ai/skysage/pkg/logging"
	"github.com/skysage-ai/skysage/pkg/recent"
	"github.com/skysage-ai/skysage/services/gateway/datatypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Fake Gateway
// =============================================================================

type gatewayCall struct {
	query   string
	history []datatypes.HistoryTurn
}

type outcome struct {
	resp datatypes.ChatResponse
	err  error
}

// fakeGateway returns scripted outcomes in order; the last one repeats.
// When block is set, calls wait on it (or the context) before
// resolving.
type fakeGateway struct {
	mu       sync.Mutex
	calls    []gatewayCall
	outcomes []outcome
	block    chan struct{}
}

func (g *fakeGateway) Answer(ctx context.Context, query string, history []datatypes.HistoryTurn) (datatypes.ChatResponse, error) {
	g.mu.Lock()
	g.calls = append(g.calls, gatewayCall{query: query, history: history})
	n := len(g.calls)
	block := g.block
	g.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return datatypes.ChatResponse{}, ctx.Err()
		}
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	idx := n - 1
	if idx >= len(g.outcomes) {
		idx = len(g.outcomes) - 1
	}
	out := g.outcomes[idx]
	return out.resp, out.err
}

func (g *fakeGateway) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.calls)
}

func (g *fakeGateway) call(i int) gatewayCall {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls[i]
}

func success(answer string) outcome {
	return outcome{resp: datatypes.ChatResponse{Answer: answer, Sources: []datatypes.SourceRef{}}}
}

func inBandFailure(message string) outcome {
	return outcome{resp: datatypes.ChatResponse{
		Answer:  message,
		Sources: []datatypes.SourceRef{},
		Error:   &message,
	}}
}

func transportFailure() outcome {
	return outcome{err: fmt.Errorf("connection refused")}
}

// =============================================================================
// Helpers
// =============================================================================

func newTestSession(t *testing.T, gw Gateway, opts ...func(*Config)) *Session {
	t.Helper()
	cfg := Config{
		Gateway:    gw,
		RetryDelay: 5 * time.Millisecond,
		Logger:     logging.New(logging.Config{Level: logging.LevelError, Output: &bytes.Buffer{}}),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	s := NewSession(cfg)
	t.Cleanup(s.Close)
	return s
}

func waitIdle(t *testing.T, s *Session) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, s.WaitIdle(ctx))
}

// =============================================================================
// Basic Send Flow
// =============================================================================

func TestNewSessionSeedsWelcomeMessage(t *testing.T) {
	s := newTestSession(t, &fakeGateway{outcomes: []outcome{success("ok")}})

	msgs := s.Messages()

	require.Len(t, msgs, 1)
	assert.Equal(t, RoleAssistant, msgs[0].Role)
	assert.Contains(t, msgs[0].Content, "research consultant")
	assert.Equal(t, StateIdle, s.State())
}

func TestSendRejectsEmptyText(t *testing.T) {
	gw := &fakeGateway{outcomes: []outcome{success("ok")}}
	s := newTestSession(t, gw)

	assert.False(t, s.Send(""))
	assert.False(t, s.Send("   \t\n"))
	assert.Equal(t, 0, gw.callCount())
	assert.Len(t, s.Messages(), 1, "only the welcome message")
}

func TestSendAppendsUserMessageImmediately(t *testing.T) {
	gw := &fakeGateway{outcomes: []outcome{success("answer")}, block: make(chan struct{})}
	s := newTestSession(t, gw)

	require.True(t, s.Send("  What is a CJ3 worth?  "))

	// The user message is visible before the gateway resolves.
	msgs := s.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, RoleUser, msgs[1].Role)
	assert.Equal(t, "What is a CJ3 worth?", msgs[1].Content)
	assert.Equal(t, StateAwaiting, s.State())

	close(gw.block)
	waitIdle(t, s)
}

func TestSendSuccessAppendsTerminalAssistantMessage(t *testing.T) {
	entityID := "listing-7"
	gw := &fakeGateway{outcomes: []outcome{{resp: datatypes.ChatResponse{
		Answer:   "Around $8.5M for low-hour airframes.",
		Sources:  []datatypes.SourceRef{{EntityType: "aircraft_listing", EntityID: &entityID}},
		DataUsed: map[string]int{"aircraft listing": 4},
	}}}}
	s := newTestSession(t, gw)

	require.True(t, s.Send("G280 pricing?"))
	waitIdle(t, s)

	msgs := s.Messages()
	require.Len(t, msgs, 3)
	last := msgs[2]
	assert.Equal(t, RoleAssistant, last.Role)
	assert.Equal(t, "Around $8.5M for low-hour airframes.", last.Content)
	require.Len(t, last.Sources, 1)
	assert.Equal(t, map[string]int{"aircraft listing": 4}, last.DataUsed)
	assert.Equal(t, StateIdle, s.State())
}

func TestSendSuccessOmitsEmptySourcesAndData(t *testing.T) {
	gw := &fakeGateway{outcomes: []outcome{success("plain answer")}}
	s := newTestSession(t, gw)

	require.True(t, s.Send("q"))
	waitIdle(t, s)

	last := s.Messages()[2]
	assert.Nil(t, last.Sources)
	assert.Nil(t, last.DataUsed)
}

func TestMessageIDsUnique(t *testing.T) {
	gw := &fakeGateway{outcomes: []outcome{success("a")}}
	s := newTestSession(t, gw)

	for i := 0; i < 5; i++ {
		require.True(t, s.Send(fmt.Sprintf("question %d", i)))
		waitIdle(t, s)
	}

	seen := make(map[string]bool)
	for _, m := range s.Messages() {
		assert.False(t, seen[m.ID], "duplicate message ID %s", m.ID)
		seen[m.ID] = true
	}
}

// =============================================================================
// Single-Flight Gate
// =============================================================================

func TestSendIsNoopWhileAwaiting(t *testing.T) {
	gw := &fakeGateway{outcomes: []outcome{success("ok")}, block: make(chan struct{})}
	s := newTestSession(t, gw)

	require.True(t, s.Send("first"))
	assert.False(t, s.Send("second"), "second send while awaiting is a no-op")

	msgs := s.Messages()
	require.Len(t, msgs, 2, "no second user message appended")
	assert.Equal(t, 1, gw.callCount(), "no second upstream call made")

	close(gw.block)
	waitIdle(t, s)
	assert.True(t, s.Send("third"), "idle again after resolution")
	waitIdle(t, s)
}

// =============================================================================
// Retry Policy
// =============================================================================

func TestRetrySucceedsOnSecondAttempt(t *testing.T) {
	var mu sync.Mutex
	var sawRetrying bool
	var observed *Session
	gw := &fakeGateway{outcomes: []outcome{
		transportFailure(),
		success("recovered answer"),
	}}
	// Snapshot the transcript on every update to catch the interim state.
	s := newTestSession(t, gw, func(cfg *Config) {
		cfg.OnUpdate = func() {
			mu.Lock()
			defer mu.Unlock()
			if observed == nil {
				return
			}
			for _, m := range observed.Messages() {
				if m.Content == retryingText {
					sawRetrying = true
				}
			}
		}
	})
	mu.Lock()
	observed = s
	mu.Unlock()

	require.True(t, s.Send("flaky question"))
	waitIdle(t, s)

	assert.Equal(t, 2, gw.callCount())
	msgs := s.Messages()
	require.Len(t, msgs, 3, "interim message was replaced, not appended")
	assert.Equal(t, "recovered answer", msgs[2].Content)
	mu.Lock()
	assert.True(t, sawRetrying, "interim retrying message was shown")
	mu.Unlock()
}

func TestRetryBoundExactlyOneRetry(t *testing.T) {
	message := "The research service is temporarily unavailable."
	gw := &fakeGateway{outcomes: []outcome{
		inBandFailure(message),
		inBandFailure(message),
	}}
	s := newTestSession(t, gw)

	require.True(t, s.Send("doomed question"))
	waitIdle(t, s)

	assert.Equal(t, 2, gw.callCount(), "original attempt plus exactly one retry")
	msgs := s.Messages()
	require.Len(t, msgs, 3, "exactly one terminal assistant message")
	assert.Equal(t, RoleAssistant, msgs[2].Role)
	assert.Equal(t, message, msgs[2].Content, "gateway's normalized text is the terminal description")
	assert.Equal(t, StateIdle, s.State(), "awaiting never sticks")
}

func TestRetryTransportFailureTerminalText(t *testing.T) {
	gw := &fakeGateway{outcomes: []outcome{transportFailure(), transportFailure()}}
	s := newTestSession(t, gw)

	require.True(t, s.Send("q"))
	waitIdle(t, s)

	msgs := s.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, failedText, msgs[2].Content)
}

func TestRetryUsesSameQuery(t *testing.T) {
	gw := &fakeGateway{outcomes: []outcome{transportFailure(), success("ok")}}
	s := newTestSession(t, gw)

	require.True(t, s.Send("the exact question"))
	waitIdle(t, s)

	require.Equal(t, 2, gw.callCount())
	assert.Equal(t, gw.call(0).query, gw.call(1).query)
	assert.Equal(t, "the exact question", gw.call(1).query)
}

func TestStateIsRetryingBetweenAttempts(t *testing.T) {
	gw := &fakeGateway{outcomes: []outcome{transportFailure(), success("ok")}}
	s := newTestSession(t, gw, func(cfg *Config) {
		cfg.RetryDelay = 200 * time.Millisecond
	})

	require.True(t, s.Send("q"))

	// The first attempt fails almost immediately; sample the state
	// inside the retry window.
	deadline := time.Now().Add(time.Second)
	for s.State() != StateRetrying && time.Now().Before(deadline) {
		time.Sleep(2 * time.Millisecond)
	}
	assert.Equal(t, StateRetrying, s.State())
	waitIdle(t, s)
	assert.Equal(t, StateIdle, s.State())
}

// =============================================================================
// History
// =============================================================================

func TestHistoryExcludesTheNewUserMessage(t *testing.T) {
	gw := &fakeGateway{outcomes: []outcome{success("a1"), success("a2")}}
	s := newTestSession(t, gw)

	require.True(t, s.Send("first question"))
	waitIdle(t, s)
	require.True(t, s.Send("second question"))
	waitIdle(t, s)

	second := gw.call(1)
	// welcome, first question, a1; never "second question" itself.
	require.Len(t, second.history, 3)
	assert.Equal(t, "first question", second.history[1].Content)
	assert.Equal(t, "a1", second.history[2].Content)
	for _, turn := range second.history {
		assert.NotEqual(t, "second question", turn.Content)
	}
}

func TestHistoryBoundedToTwelveTurns(t *testing.T) {
	gw := &fakeGateway{outcomes: []outcome{success("a")}}
	s := newTestSession(t, gw)

	for i := 0; i < 10; i++ {
		require.True(t, s.Send(fmt.Sprintf("question %d", i)))
		waitIdle(t, s)
	}

	last := gw.call(gw.callCount() - 1)
	assert.Len(t, last.history, datatypes.MaxHistoryTurns)
}

// =============================================================================
// Pending Input
// =============================================================================

func TestPendingInputConsumedExactlyOnce(t *testing.T) {
	s := newTestSession(t, &fakeGateway{outcomes: []outcome{success("ok")}})

	s.SetPendingInput("  Try the Phenom 300 comparison  ")

	query, ok := s.ConsumePendingInput()
	require.True(t, ok)
	assert.Equal(t, "Try the Phenom 300 comparison", query)

	_, ok = s.ConsumePendingInput()
	assert.False(t, ok, "a consumed suggestion is never re-applied")
}

func TestSetPendingInputEmptyClearsSuggestion(t *testing.T) {
	s := newTestSession(t, &fakeGateway{outcomes: []outcome{success("ok")}})

	s.SetPendingInput("something")
	s.SetPendingInput("")

	_, ok := s.ConsumePendingInput()
	assert.False(t, ok)
}

func TestSendClearsPendingInput(t *testing.T) {
	s := newTestSession(t, &fakeGateway{outcomes: []outcome{success("ok")}})

	s.SetPendingInput("stale suggestion")
	require.True(t, s.Send("the user's own question"))
	waitIdle(t, s)

	_, ok := s.ConsumePendingInput()
	assert.False(t, ok, "accepted send clears any staged suggestion")
}

// =============================================================================
// Tracker Integration
// =============================================================================

func TestSendNotifiesRecentTracker(t *testing.T) {
	tracker := recent.NewTracker(recent.DefaultCapacity)
	s := newTestSession(t, &fakeGateway{outcomes: []outcome{success("ok")}}, func(cfg *Config) {
		cfg.Tracker = tracker
	})

	require.True(t, s.Send("Phenom 300"))
	waitIdle(t, s)
	require.True(t, s.Send("G650"))
	waitIdle(t, s)
	require.True(t, s.Send("Phenom 300"))
	waitIdle(t, s)

	assert.Equal(t, []string{"Phenom 300", "G650"}, tracker.List())
}

// =============================================================================
// Teardown
// =============================================================================

func TestCloseCancelsInFlightCall(t *testing.T) {
	gw := &fakeGateway{outcomes: []outcome{success("late answer")}, block: make(chan struct{})}
	s := newTestSession(t, gw)

	require.True(t, s.Send("q"))
	before := len(s.Messages())

	s.Close()

	// The blocked call resolves via context cancellation; give the
	// goroutine a moment, then confirm no late mutation happened.
	time.Sleep(20 * time.Millisecond)
	assert.Len(t, s.Messages(), before, "late response must not mutate a closed session")
	assert.False(t, s.Send("after close"))
}

func TestCloseStopsPendingRetry(t *testing.T) {
	gw := &fakeGateway{outcomes: []outcome{transportFailure(), success("ok")}}
	s := newTestSession(t, gw, func(cfg *Config) {
		cfg.RetryDelay = 50 * time.Millisecond
	})

	require.True(t, s.Send("q"))
	deadline := time.Now().Add(time.Second)
	for s.State() != StateRetrying && time.Now().Before(deadline) {
		time.Sleep(2 * time.Millisecond)
	}
	require.Equal(t, StateRetrying, s.State())

	s.Close()
	time.Sleep(100 * time.Millisecond)

	assert.Equal(t, 1, gw.callCount(), "retry timer was cancelled")
}

func TestCloseIsIdempotent(t *testing.T) {
	s := newTestSession(t, &fakeGateway{outcomes: []outcome{success("ok")}})
	s.Close()
	s.Close()
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "awaiting", StateAwaiting.String())
	assert.Equal(t, "retrying", StateRetrying.String())
}
