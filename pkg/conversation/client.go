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
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/skysage-ai/skysage/services/gateway/datatypes"
)

// maxResponseBytes caps how much of a gateway response body is read.
const maxResponseBytes = 4 << 20

// Client is the HTTP Gateway implementation used by real sessions.
// The gateway enforces the upstream deadline itself, so the client
// carries no timeout of its own beyond the caller's context.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a gateway client for the given base URL, e.g.
// "http://localhost:8080". httpClient may be nil for the default.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{baseURL: baseURL, http: httpClient}
}

// chatRequest is the wire shape of POST /api/chat as sent by clients.
type chatRequest struct {
	Query   string                  `json:"query"`
	History []datatypes.HistoryTurn `json:"history,omitempty"`
}

// Answer submits a query to the gateway. Transport-level failures and
// unexpected statuses return an error; everything else, including
// in-band gateway failures, returns the decoded ChatResponse.
func (c *Client) Answer(ctx context.Context, query string, history []datatypes.HistoryTurn) (datatypes.ChatResponse, error) {
	var out datatypes.ChatResponse

	payload, err := json.Marshal(chatRequest{Query: query, History: history})
	if err != nil {
		return out, fmt.Errorf("marshal chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(payload))
	if err != nil {
		return out, fmt.Errorf("build chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return out, fmt.Errorf("call gateway: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return out, fmt.Errorf("read gateway response: %w", err)
	}

	// The gateway only uses a non-200 status for a malformed request,
	// which indicates a client bug rather than a runtime failure.
	if resp.StatusCode != http.StatusOK {
		return out, fmt.Errorf("gateway returned status %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}

	if err := json.Unmarshal(body, &out); err != nil {
		return out, fmt.Errorf("decode gateway response: %w", err)
	}
	return out, nil
}

// MarketClient proxies the market analysis endpoints for CLI commands.
type MarketClient struct {
	baseURL string
	http    *http.Client
}

// NewMarketClient creates a market client for the given gateway base URL.
func NewMarketClient(baseURL string, httpClient *http.Client) *MarketClient {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &MarketClient{baseURL: baseURL, http: httpClient}
}

// AircraftModels fetches the known aircraft models from the gateway.
func (c *MarketClient) AircraftModels(ctx context.Context) (datatypes.AircraftModelsResponse, error) {
	var out datatypes.AircraftModelsResponse
	err := c.call(ctx, http.MethodGet, "/api/aircraft-models", nil, &out)
	return out, err
}

// MarketComparison runs a market comparison through the gateway.
func (c *MarketClient) MarketComparison(ctx context.Context, req datatypes.MarketComparisonRequest) (datatypes.MarketComparisonResponse, error) {
	var out datatypes.MarketComparisonResponse
	err := c.call(ctx, http.MethodPost, "/api/market-comparison", req, &out)
	return out, err
}

func (c *MarketClient) call(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("call gateway: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("read gateway response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("gateway returned status %d: %s", resp.StatusCode, bytes.TrimSpace(raw))
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode gateway response: %w", err)
	}
	return nil
}
