// Copyright (C) 2026 SkySage AI (dev@skysage.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Command gateway starts the SkySage query gateway HTTP server.
//
// The gateway mediates between chat/dashboard clients and the upstream
// answer service, normalizing every upstream failure into a uniform
// in-band error response.
//
// # Environment Variables
//
//   - GATEWAY_PORT: HTTP server port (default: 8080)
//   - ANSWER_SERVICE_URL: answer service base URL, e.g. http://localhost:8000
//     (unset: requests resolve to a configuration-error message)
//   - ANSWER_TIMEOUT_SECONDS: hard upstream deadline (default: 65)
//   - SKYSAGE_DEMO_CHAT: "true" serves canned answers on transport failures
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OTLP collector; tracing disabled when unset
//   - GIN_MODE: gin framework mode (debug, release, test)
//
// A .env file in the working directory is loaded first, if present.
//
// # Usage
//
//	go build -o gateway ./cmd/gateway
//	ANSWER_SERVICE_URL=http://localhost:8000 ./gateway
package main

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/skysage-ai/skysage/pkg/logging"
	"github.com/skysage-ai/skysage/services/gateway"
)

func main() {
	// Optional .env for local development; absence is not an error.
	_ = godotenv.Load()

	logger := logging.New(logging.Config{
		Level:   logging.LevelInfo,
		Service: "gateway",
		JSON:    true,
	})

	cfg := gateway.Config{
		Port:             getEnvInt("GATEWAY_PORT", 8080),
		AnswerServiceURL: os.Getenv("ANSWER_SERVICE_URL"),
		AnswerTimeout:    time.Duration(getEnvInt("ANSWER_TIMEOUT_SECONDS", 65)) * time.Second,
		DemoMode:         os.Getenv("SKYSAGE_DEMO_CHAT") == "true",
		OTelEndpoint:     os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		GinMode:          os.Getenv("GIN_MODE"),
		Logger:           logger,
	}

	svc, err := gateway.New(cfg)
	if err != nil {
		log.Fatalf("Failed to create gateway: %v", err)
	}

	if err := svc.Run(); err != nil {
		log.Fatalf("Gateway error: %v", err)
	}
}

// getEnvInt returns the environment variable as int or a default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}
