// Copyright (C) 2026 SkySage AI (dev@skysage.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package datatypes defines the request and response shapes exchanged
// between chat clients, the gateway, and the upstream answer service.
package datatypes

import (
	"encoding/json"

	"github.com/go-playground/validator/v10"
)

// validate is the shared validator instance for request types.
var validate = validator.New()

// MaxHistoryTurns bounds how much conversation history is forwarded to
// the answer service per request.
const MaxHistoryTurns = 12

// =============================================================================
// Chat Request
// =============================================================================

// RawHistoryTurn is one conversation turn as received from a client.
// Content stays raw JSON so a single malformed turn (for example an
// object or array where text is expected) is dropped during
// sanitization instead of failing the whole request bind.
type RawHistoryTurn struct {
	Role    string          `json:"role"`
	Content json.RawMessage `json:"content"`
}

// HistoryTurn is a sanitized conversation turn forwarded upstream.
type HistoryTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the body of POST /api/chat.
type ChatRequest struct {
	// Query is the user's question. Required; the only request the
	// gateway rejects outright is one without a usable query.
	Query string `json:"query" validate:"required"`

	// History is the client's view of the conversation so far. Optional
	// and fully untrusted; see SanitizeHistory.
	History []RawHistoryTurn `json:"history"`
}

// Validate checks structural requirements on the request.
func (r *ChatRequest) Validate() error {
	return validate.Struct(r)
}

// SanitizeHistory filters the raw history down to the turns the answer
// service accepts: role must be exactly "user" or "assistant" and
// content must be a JSON string. At most the most recent MaxHistoryTurns
// surviving turns are kept, order preserved.
func (r *ChatRequest) SanitizeHistory() []HistoryTurn {
	turns := make([]HistoryTurn, 0, len(r.History))
	for _, raw := range r.History {
		if raw.Role != "user" && raw.Role != "assistant" {
			continue
		}
		var content string
		if err := json.Unmarshal(raw.Content, &content); err != nil {
			continue
		}
		turns = append(turns, HistoryTurn{Role: raw.Role, Content: content})
	}
	if len(turns) > MaxHistoryTurns {
		turns = turns[len(turns)-MaxHistoryTurns:]
	}
	return turns
}

// =============================================================================
// Chat Response
// =============================================================================

// SourceRef is opaque citation metadata passed through unmodified from
// the answer service.
type SourceRef struct {
	EntityType string   `json:"entity_type,omitempty"`
	EntityID   *string  `json:"entity_id,omitempty"`
	Score      *float64 `json:"score,omitempty"`
}

// ChatResponse is the normalized body every POST /api/chat returns.
// Failures are communicated in band: Error is non-nil and Answer holds
// a human-readable message, so clients render every outcome the same
// way. Sources is never null on the wire.
type ChatResponse struct {
	Answer   string         `json:"answer"`
	Sources  []SourceRef    `json:"sources"`
	DataUsed map[string]int `json:"data_used"`
	Error    *string        `json:"error"`
}

// =============================================================================
// Upstream Wire Types
// =============================================================================

// UpstreamAnswerRequest is the body sent to POST /api/rag/answer.
// History is omitted entirely when empty, matching what the answer
// service expects.
type UpstreamAnswerRequest struct {
	Query   string        `json:"query"`
	History []HistoryTurn `json:"history,omitempty"`
}

// UpstreamAnswerResponse is the success body returned by the answer
// service. All fields are optional; the gateway fills defaults.
type UpstreamAnswerResponse struct {
	Answer   string         `json:"answer"`
	Sources  []SourceRef    `json:"sources"`
	DataUsed map[string]int `json:"data_used"`
	Error    *string        `json:"error"`
}

// UpstreamErrorBody is the error body the answer service may return on
// a non-2xx status.
type UpstreamErrorBody struct {
	Detail string `json:"detail"`
}
