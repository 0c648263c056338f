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
// Market Proxy Service
// =============================================================================

// MarketService proxies the market analysis endpoints (aircraft models,
// comparison, price estimate, resale advisory) to the upstream answer
// service. It shares the chat contract's philosophy: upstream failures
// surface as in-band Error strings on an HTTP 200, never as exceptions.
type MarketService struct {
	baseURL string
	timeout time.Duration
	client  *http.Client
	logger  *logging.Logger
}

// NewMarketService creates a MarketService with defaults applied.
// It shares Config with the answer service; DemoMode is ignored here.
func NewMarketService(cfg Config) *MarketService {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{}
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	return &MarketService{
		baseURL: strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		timeout: cfg.Timeout,
		client:  cfg.HTTPClient,
		logger:  cfg.Logger,
	}
}

// AircraftModels fetches the list of known aircraft models.
func (s *MarketService) AircraftModels(ctx context.Context) datatypes.AircraftModelsResponse {
	var out datatypes.AircraftModelsResponse
	if msg := s.proxy(ctx, "aircraft_models", http.MethodGet, "/api/aircraft-models", nil, &out); msg != "" {
		return datatypes.AircraftModelsResponse{Models: []string{}, Error: &msg}
	}
	if out.Models == nil {
		out.Models = []string{}
	}
	return out
}

// MarketComparison runs a listing comparison across the selected models.
func (s *MarketService) MarketComparison(ctx context.Context, req datatypes.MarketComparisonRequest) datatypes.MarketComparisonResponse {
	var out datatypes.MarketComparisonResponse
	if msg := s.proxy(ctx, "market_comparison", http.MethodPost, "/api/market-comparison", req, &out); msg != "" {
		return datatypes.MarketComparisonResponse{Rows: []datatypes.MarketComparisonRow{}, Error: &msg}
	}
	if out.Rows == nil {
		out.Rows = []datatypes.MarketComparisonRow{}
	}
	return out
}

// PriceEstimate requests a valuation for one aircraft configuration.
func (s *MarketService) PriceEstimate(ctx context.Context, req datatypes.PriceEstimateRequest) datatypes.PriceEstimateResponse {
	var out datatypes.PriceEstimateResponse
	if msg := s.proxy(ctx, "price_estimate", http.MethodPost, "/api/price-estimate", req, &out); msg != "" {
		return datatypes.PriceEstimateResponse{Breakdown: []datatypes.PriceBreakdownItem{}, Error: &msg}
	}
	if out.Breakdown == nil {
		out.Breakdown = []datatypes.PriceBreakdownItem{}
	}
	return out
}

// ResaleAdvisory requests a resale-potential insight.
func (s *MarketService) ResaleAdvisory(ctx context.Context, req datatypes.ResaleAdvisoryRequest) datatypes.ResaleAdvisoryResponse {
	var out datatypes.ResaleAdvisoryResponse
	if msg := s.proxy(ctx, "resale_advisory", http.MethodPost, "/api/resale-advisory", req, &out); msg != "" {
		return datatypes.ResaleAdvisoryResponse{Error: &msg}
	}
	return out
}

// =============================================================================
// Internal Plumbing
// =============================================================================

// proxy performs one upstream round trip and decodes the response into
// out. The return value is a user-facing failure message, empty on
// success, built with the same taxonomy the chat path uses.
func (s *MarketService) proxy(ctx context.Context, endpoint, method, path string, body, out any) string {
	tracer := otel.Tracer("skysage/gateway/services")
	ctx, span := tracer.Start(ctx, "market_service."+endpoint)
	defer span.End()

	observability.RequestStarted(endpoint)
	defer observability.RequestEnded(endpoint)

	fail := func(outcome observability.OutcomeClass, message string) string {
		span.SetAttributes(attribute.String("outcome", string(outcome)))
		observability.RecordRequest(endpoint, outcome)
		return message
	}

	if s.baseURL == "" {
		s.logger.Warn("market request with unset base URL", "endpoint", endpoint)
		return fail(observability.OutcomeNotConfigured, msgNotConfigured)
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fail(observability.OutcomeNetwork, msgNetwork)
		}
		reader = bytes.NewReader(payload)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, reader)
	if err != nil {
		return fail(observability.OutcomeNetwork, msgNetwork)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := s.client.Do(req)
	observability.RecordUpstreamDuration(endpoint, time.Since(start).Seconds())

	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			s.logger.Warn("market call timed out", "endpoint", endpoint)
			return fail(observability.OutcomeTimeout, msgTimeout)
		}
		s.logger.Warn("market upstream unreachable", "endpoint", endpoint, "error", err)
		return fail(observability.OutcomeNetwork, msgNetwork)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			s.logger.Warn("failed to close upstream response body", "error", cerr)
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		message := msgUnavailable
		outcome := observability.OutcomeUnavailable
		if resp.StatusCode == http.StatusServiceUnavailable {
			message = msgStarting
		}
		raw, rerr := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		if rerr == nil {
			var errBody datatypes.UpstreamErrorBody
			if json.Unmarshal(raw, &errBody) == nil && errBody.Detail != "" {
				message = errBody.Detail
				outcome = observability.OutcomeUpstreamError
			}
		}
		s.logger.Warn("market upstream returned error status",
			"endpoint", endpoint,
			"status", resp.StatusCode,
			"message", message)
		return fail(outcome, message)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		s.logger.Warn("failed to decode market response", "endpoint", endpoint, "error", err)
		return fail(observability.OutcomeNetwork, msgNetwork)
	}

	observability.RecordRequest(endpoint, observability.OutcomeSuccess)
	return ""
}
