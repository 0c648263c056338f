// Copyright (C) 2026 SkySage AI (dev@skysage.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package main is the SkySage command line client.
//
// The CLI talks to the query gateway only; it never reaches the answer
// or market services directly. All research answers, comparisons, and
// estimates flow through the gateway's normalized surface.
package main

import (
	"log"

	"github.com/joho/godotenv"
)

func main() {
	// Missing .env is fine; environment variables still apply.
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Error executing command: %v", err)
	}
}
