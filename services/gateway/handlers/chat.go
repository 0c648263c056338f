// Copyright (C) 2026 SkySage AI (dev@skysage.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package handlers contains the gin HTTP handlers for the gateway.
package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/skysage-ai/skysage/services/gateway/datatypes"
	"github.com/skysage-ai/skysage/services/gateway/services"
)

// HandleChat mediates POST /api/chat.
//
// The only structural rejection is a missing or unusable query (HTTP
// 400): that indicates a malformed caller, not a runtime failure. Every
// other outcome, including all upstream failure classes, returns HTTP
// 200 with the normalized ChatResponse shape, errors in band.
func HandleChat(svc *services.AnswerService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req datatypes.ChatRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Missing query"})
			return
		}
		if err := req.Validate(); err != nil || strings.TrimSpace(req.Query) == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Missing query"})
			return
		}

		history := req.SanitizeHistory()
		resp := svc.Answer(c.Request.Context(), req.Query, history)
		c.JSON(http.StatusOK, resp)
	}
}
