// Copyright (C) 2026 SkySage AI (dev@skysage.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package services

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/skysage-ai/skysage/pkg/logging"
	"github.com/skysage-ai/skysage/services/gateway/datatypes"
	"github.com/skysage-ai/skysage/services/gateway/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// initGaugeMetrics registers the metric set once for the package; a
// second InitMetrics call would panic on duplicate registration.
func initGaugeMetrics(t *testing.T) {
	t.Helper()
	if observability.DefaultMetrics == nil {
		observability.InitMetrics()
	}
}

func quietLogger() *logging.Logger {
	return logging.New(logging.Config{Level: logging.LevelError, Output: &bytes.Buffer{}})
}

func newTestService(t *testing.T, handler http.HandlerFunc) *AnswerService {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewAnswerService(Config{
		BaseURL: server.URL,
		Timeout: 2 * time.Second,
		Logger:  quietLogger(),
	})
}

// assertNormalizedFailure checks the invariant shared by every absorbed
// failure class: non-nil error, empty sources, nil data_used, and a
// renderable answer equal to the error text.
func assertNormalizedFailure(t *testing.T, resp datatypes.ChatResponse, wantMessage string) {
	t.Helper()
	require.NotNil(t, resp.Error)
	assert.Equal(t, wantMessage, *resp.Error)
	assert.Equal(t, wantMessage, resp.Answer)
	assert.NotNil(t, resp.Sources)
	assert.Empty(t, resp.Sources)
	assert.Nil(t, resp.DataUsed)
}

func TestAnswerSuccessPassthrough(t *testing.T) {
	entityID := "listing-42"
	score := 0.91
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/rag/answer", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		json.NewEncoder(w).Encode(datatypes.UpstreamAnswerResponse{
			Answer:   "The Phenom 300 holds value well.",
			Sources:  []datatypes.SourceRef{{EntityType: "aircraft_listing", EntityID: &entityID, Score: &score}},
			DataUsed: map[string]int{"aircraft listing": 7},
		})
	})

	resp := svc.Answer(context.Background(), "Phenom 300 resale?", nil)

	assert.Nil(t, resp.Error)
	assert.Equal(t, "The Phenom 300 holds value well.", resp.Answer)
	require.Len(t, resp.Sources, 1)
	assert.Equal(t, "aircraft_listing", resp.Sources[0].EntityType)
	assert.Equal(t, map[string]int{"aircraft listing": 7}, resp.DataUsed)
}

func TestAnswerSuccessDefaultsMissingFields(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"answer":"bare"}`))
	})

	resp := svc.Answer(context.Background(), "q", nil)

	assert.Nil(t, resp.Error)
	assert.NotNil(t, resp.Sources, "sources default to empty, not null")
	assert.Empty(t, resp.Sources)
	assert.Nil(t, resp.DataUsed)
}

func TestAnswerForwardsTrimmedQueryAndHistory(t *testing.T) {
	var got datatypes.UpstreamAnswerRequest
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"answer":"ok"}`))
	})
	history := []datatypes.HistoryTurn{
		{Role: "user", Content: "earlier question"},
		{Role: "assistant", Content: "earlier answer"},
	}

	svc.Answer(context.Background(), "  what about the CJ3?  ", history)

	assert.Equal(t, "what about the CJ3?", got.Query)
	assert.Equal(t, history, got.History)
}

func TestAnswerOmitsEmptyHistory(t *testing.T) {
	var raw map[string]json.RawMessage
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
		w.Write([]byte(`{"answer":"ok"}`))
	})

	svc.Answer(context.Background(), "q", nil)

	_, present := raw["history"]
	assert.False(t, present, "empty history must not be sent upstream")
}

func TestAnswerUpstreamDetailSurfacedVerbatim(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte(`{"detail":"vector index rebuilding, try again shortly"}`))
	})

	resp := svc.Answer(context.Background(), "q", nil)

	assertNormalizedFailure(t, resp, "vector index rebuilding, try again shortly")
}

func TestAnswerServiceUnavailableMessage(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("plain text, not json"))
	})

	resp := svc.Answer(context.Background(), "q", nil)

	assertNormalizedFailure(t, resp, msgStarting)
}

func TestAnswerDetailOverridesStartingMessage(t *testing.T) {
	// A 503 with a parseable detail surfaces the detail, not the
	// generic starting message.
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"detail":"model warmup in progress"}`))
	})

	resp := svc.Answer(context.Background(), "q", nil)

	assertNormalizedFailure(t, resp, "model warmup in progress")
}

func TestAnswerGenericUnavailableMessage(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	resp := svc.Answer(context.Background(), "q", nil)

	assertNormalizedFailure(t, resp, msgUnavailable)
}

func TestAnswerTimeoutAbortsCall(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
			// Deadline propagation cancels the upstream request.
		}
	}))
	t.Cleanup(server.Close)
	// Cleanups run LIFO: release the handler before Close waits on it.
	t.Cleanup(func() { close(release) })
	svc := NewAnswerService(Config{
		BaseURL: server.URL,
		Timeout: 50 * time.Millisecond,
		Logger:  quietLogger(),
	})

	start := time.Now()
	resp := svc.Answer(context.Background(), "q", nil)

	assert.Less(t, time.Since(start), time.Second, "call aborted at the deadline")
	assertNormalizedFailure(t, resp, msgTimeout)
}

func TestAnswerNetworkFailureMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // nothing is listening anymore
	svc := NewAnswerService(Config{
		BaseURL: server.URL,
		Timeout: time.Second,
		Logger:  quietLogger(),
	})

	resp := svc.Answer(context.Background(), "q", nil)

	assertNormalizedFailure(t, resp, msgNetwork)
}

func TestAnswerUnsetBaseURLIsConfigError(t *testing.T) {
	svc := NewAnswerService(Config{Logger: quietLogger()})

	resp := svc.Answer(context.Background(), "q", nil)

	assertNormalizedFailure(t, resp, msgNotConfigured)
}

func TestAnswerDemoModeServesCannedAnswer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()
	svc := NewAnswerService(Config{
		BaseURL:  server.URL,
		Timeout:  time.Second,
		DemoMode: true,
		Logger:   quietLogger(),
	})

	resp := svc.Answer(context.Background(), "q", nil)

	assertNormalizedFailure(t, resp, demoAnswer)
}

func TestAnswerTracksInFlightGauge(t *testing.T) {
	initGaugeMetrics(t)
	gauge := observability.DefaultMetrics.InFlight.WithLabelValues("chat")
	during := make(chan float64, 1)
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		during <- testutil.ToFloat64(gauge)
		w.Write([]byte(`{"answer":"ok"}`))
	})

	svc.Answer(context.Background(), "q", nil)

	assert.Equal(t, 1.0, <-during, "gauge counts the request while upstream is serving it")
	assert.Equal(t, 0.0, testutil.ToFloat64(gauge), "gauge drops back once mediation finishes")
}

func TestAnswerDemoModeDoesNotMaskUpstreamErrors(t *testing.T) {
	// Demo mode only covers transport failures; a reachable upstream
	// returning an error still surfaces that error.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	t.Cleanup(server.Close)
	svc := NewAnswerService(Config{
		BaseURL:  server.URL,
		Timeout:  time.Second,
		DemoMode: true,
		Logger:   quietLogger(),
	})

	resp := svc.Answer(context.Background(), "q", nil)

	assertNormalizedFailure(t, resp, msgUnavailable)
}
