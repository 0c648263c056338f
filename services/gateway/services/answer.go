// Copyright (C) 2026 SkySage AI (dev@skysage.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package services implements the gateway's mediation logic between
// chat clients and the upstream answer service.
//
// The central contract is absorption: every upstream outcome (success,
// degraded, unavailable, timeout, transport failure, or missing
// configuration) is translated into one normalized response shape so
// callers never need to distinguish failure modes structurally.
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/skysage-ai/skysage/pkg/logging"
	"github.com/skysage-ai/skysage/services/gateway/datatypes"
	"github.com/skysage-ai/skysage/services/gateway/observability"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// =============================================================================
// Constants
// =============================================================================

// DefaultTimeout is the hard wall-clock deadline for one upstream
// answer call. Research queries can legitimately take a while; past
// this point the call is aborted, not merely abandoned.
const DefaultTimeout = 65 * time.Second

// answerPath is the upstream answer endpoint.
const answerPath = "/api/rag/answer"

// maxErrorBodyBytes caps how much of an upstream error body is read
// when looking for a detail message.
const maxErrorBodyBytes = 1 << 20

// User-facing messages for each absorbed failure class. These are the
// texts clients render verbatim, so changes here are product changes.
const (
	msgNotConfigured = "Answer service URL is not configured. Set ANSWER_SERVICE_URL."
	msgStarting      = "Service is starting or not configured. Check backend logs."
	msgUnavailable   = "The research service is temporarily unavailable."
	msgTimeout       = "The request took too long. Try a shorter or simpler question."
	msgNetwork       = "Unable to reach the research service. Start the answer service and set ANSWER_SERVICE_URL."
)

// demoAnswer is served for transport-level failures when demo mode is
// enabled, letting the UI be exercised without a live answer service.
const demoAnswer = "Based on real-time market data, this is a placeholder response. " +
	"Connect the answer service for live responses from SkySage's data."

// =============================================================================
// Answer Service
// =============================================================================

// Config holds AnswerService configuration.
type Config struct {
	// BaseURL is the answer service base URL, e.g. "http://localhost:8000".
	// An empty value is tolerated: requests resolve to a configuration
	// error message rather than a crash.
	BaseURL string

	// Timeout is the hard per-call deadline. Default: DefaultTimeout.
	Timeout time.Duration

	// DemoMode substitutes a canned answer for transport failures.
	DemoMode bool

	// HTTPClient overrides the transport, mainly for tests. The client
	// must not carry its own Timeout; deadlines are context-driven.
	HTTPClient *http.Client

	// Logger receives structured request logs. Default: logging.Default().
	Logger *logging.Logger
}

// AnswerService mediates chat queries to the upstream answer service.
//
// # Thread Safety
//
// Safe for concurrent use; the service holds no per-request state.
type AnswerService struct {
	baseURL  string
	timeout  time.Duration
	demoMode bool
	client   *http.Client
	logger   *logging.Logger
}

// NewAnswerService creates an AnswerService with defaults applied.
func NewAnswerService(cfg Config) *AnswerService {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{}
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	return &AnswerService{
		baseURL:  strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		timeout:  cfg.Timeout,
		demoMode: cfg.DemoMode,
		client:   cfg.HTTPClient,
		logger:   cfg.Logger,
	}
}

// Answer forwards a query plus sanitized history upstream and returns a
// normalized response. It never returns an error: every failure class
// resolves to a renderable ChatResponse with Error set, Sources empty,
// and DataUsed nil.
func (s *AnswerService) Answer(ctx context.Context, query string, history []datatypes.HistoryTurn) datatypes.ChatResponse {
	tracer := otel.Tracer("skysage/gateway/services")
	ctx, span := tracer.Start(ctx, "answer_service.answer")
	defer span.End()
	span.SetAttributes(attribute.Int("history_turns", len(history)))

	observability.RequestStarted("chat")
	defer observability.RequestEnded("chat")

	if s.baseURL == "" {
		s.logger.Warn("answer request with unset base URL")
		return s.fail(span, observability.OutcomeNotConfigured, msgNotConfigured)
	}

	payload, err := json.Marshal(datatypes.UpstreamAnswerRequest{
		Query:   strings.TrimSpace(query),
		History: history,
	})
	if err != nil {
		// Marshal of plain strings cannot realistically fail; absorb
		// anyway to honor the no-exceptions contract.
		return s.fail(span, observability.OutcomeNetwork, msgNetwork)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+answerPath, bytes.NewReader(payload))
	if err != nil {
		return s.fail(span, observability.OutcomeNetwork, msgNetwork)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := s.client.Do(req)
	observability.RecordUpstreamDuration("chat", time.Since(start).Seconds())

	if err != nil {
		return s.transportFailure(span, err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			s.logger.Warn("failed to close upstream response body", "error", cerr)
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return s.upstreamFailure(span, resp)
	}

	var answer datatypes.UpstreamAnswerResponse
	if err := json.NewDecoder(resp.Body).Decode(&answer); err != nil {
		s.logger.Warn("failed to decode upstream answer body", "error", err)
		return s.transportFailure(span, err)
	}

	if answer.Sources == nil {
		answer.Sources = []datatypes.SourceRef{}
	}

	span.SetAttributes(attribute.Bool("upstream_error", answer.Error != nil))
	observability.RecordRequest("chat", observability.OutcomeSuccess)
	return datatypes.ChatResponse{
		Answer:   answer.Answer,
		Sources:  answer.Sources,
		DataUsed: answer.DataUsed,
		Error:    answer.Error,
	}
}

// upstreamFailure normalizes a non-2xx upstream status. A parseable
// {detail} in the body wins over the per-status defaults.
func (s *AnswerService) upstreamFailure(span traceSpan, resp *http.Response) datatypes.ChatResponse {
	message := msgUnavailable
	outcome := observability.OutcomeUnavailable
	if resp.StatusCode == http.StatusServiceUnavailable {
		message = msgStarting
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
	if err == nil {
		var errBody datatypes.UpstreamErrorBody
		if json.Unmarshal(body, &errBody) == nil && errBody.Detail != "" {
			message = errBody.Detail
			outcome = observability.OutcomeUpstreamError
		}
	}

	s.logger.Warn("answer service returned error status",
		"status", resp.StatusCode,
		"message", message)
	return s.fail(span, outcome, message)
}

// transportFailure normalizes a failure to reach upstream at all:
// deadline expiry, connection failure, or an unreadable body. Demo mode
// substitutes a canned answer so the conversation UI stays usable
// without a backend.
func (s *AnswerService) transportFailure(span traceSpan, err error) datatypes.ChatResponse {
	if s.demoMode {
		s.logger.Info("serving demo answer for transport failure", "error", err)
		return s.fail(span, observability.OutcomeDemo, demoAnswer)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		s.logger.Warn("answer service call timed out", "timeout", s.timeout.String())
		return s.fail(span, observability.OutcomeTimeout, msgTimeout)
	}
	s.logger.Warn("answer service unreachable", "error", err)
	return s.fail(span, observability.OutcomeNetwork, msgNetwork)
}

// fail builds the normalized failure payload: the message doubles as
// the renderable answer and the in-band error marker.
func (s *AnswerService) fail(span traceSpan, outcome observability.OutcomeClass, message string) datatypes.ChatResponse {
	span.SetAttributes(attribute.String("outcome", string(outcome)))
	observability.RecordRequest("chat", outcome)
	return datatypes.ChatResponse{
		Answer:   message,
		Sources:  []datatypes.SourceRef{},
		DataUsed: nil,
		Error:    &message,
	}
}

// traceSpan is the narrow span surface the failure helpers need.
type traceSpan interface {
	SetAttributes(...attribute.KeyValue)
}
