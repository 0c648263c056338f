// Copyright (C) 2026 SkySage AI (dev@skysage.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/skysage-ai/skysage/services/gateway/datatypes"
	"github.com/skysage-ai/skysage/services/gateway/services"
)

// HandleAircraftModels mediates GET /api/aircraft-models.
func HandleAircraftModels(svc *services.MarketService) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, svc.AircraftModels(c.Request.Context()))
	}
}

// HandleMarketComparison mediates POST /api/market-comparison.
// Structural problems with the request body are a 400; upstream
// failures come back as HTTP 200 with Error set.
func HandleMarketComparison(svc *services.MarketService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req datatypes.MarketComparisonRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
		if err := req.Validate(); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, svc.MarketComparison(c.Request.Context(), req))
	}
}

// HandlePriceEstimate mediates POST /api/price-estimate.
func HandlePriceEstimate(svc *services.MarketService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req datatypes.PriceEstimateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
		if err := req.Validate(); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, svc.PriceEstimate(c.Request.Context(), req))
	}
}

// HandleResaleAdvisory mediates POST /api/resale-advisory.
func HandleResaleAdvisory(svc *services.MarketService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req datatypes.ResaleAdvisoryRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
		c.JSON(http.StatusOK, svc.ResaleAdvisory(c.Request.Context(), req))
	}
}
