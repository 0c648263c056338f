// Copyright (C) 2026 SkySage AI (dev@skysage.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/skysage-ai/skysage/services/gateway/handlers"
	"github.com/skysage-ai/skysage/services/gateway/services"
)

// SetupRoutes registers all gateway routes on the router.
func SetupRoutes(router *gin.Engine, answerSvc *services.AnswerService,
	marketSvc *services.MarketService, enableMetrics bool) {

	router.GET("/health", handlers.HealthCheck)
	if enableMetrics {
		router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	api := router.Group("/api")
	{
		api.POST("/chat", handlers.HandleChat(answerSvc))
		api.GET("/aircraft-models", handlers.HandleAircraftModels(marketSvc))
		api.POST("/market-comparison", handlers.HandleMarketComparison(marketSvc))
		api.POST("/price-estimate", handlers.HandlePriceEstimate(marketSvc))
		api.POST("/resale-advisory", handlers.HandleResaleAdvisory(marketSvc))
	}
}
