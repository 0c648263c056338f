// Copyright (C) 2026 SkySage AI (dev@skysage.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"os"

	"github.com/spf13/cobra"
)

// defaultGatewayURL is used when neither the flag nor
// SKYSAGE_GATEWAY_URL is set.
const defaultGatewayURL = "http://localhost:8080"

// --- Global Command Variables ---
var (
	gatewayURL string

	// compare flags
	compareModels []string
	compareRegion string
	compareHours  float64
	compareMin    int
	compareMax    int
	compareLimit  int
	compareOut    string

	rootCmd = &cobra.Command{
		Use:   "skysage",
		Short: "A cli for the SkySage aircraft market advisory platform",
		Long: `SkySage is a research assistant for the business aviation market.
				It answers market questions, compares listings across platforms,
				and exports shareable PDF reports.`,
	}

	// --- Chat ---
	chatCmd = &cobra.Command{
		Use:   "chat",
		Short: "Starts an interactive research chat session",
		Run:   runChatCommand, // Defined in cmd_chat.go
	}

	askCmd = &cobra.Command{
		Use:   "ask [question]",
		Short: "Asks a single question and prints the answer",
		Args:  cobra.MinimumNArgs(1),
		Run:   runAskCommand, // Defined in cmd_chat.go
	}

	// --- Market ---
	modelsCmd = &cobra.Command{
		Use:   "models",
		Short: "Lists the aircraft models known to the platform",
		Run:   runModelsCommand, // Defined in cmd_market.go
	}

	compareCmd = &cobra.Command{
		Use:   "compare",
		Short: "Runs a market comparison and exports it as a PDF report",
		Run:   runCompareCommand, // Defined in cmd_market.go
	}
)

// init runs when the Go program starts
func init() {
	rootCmd.PersistentFlags().StringVar(&gatewayURL, "gateway", "",
		"Gateway base URL (default: SKYSAGE_GATEWAY_URL or "+defaultGatewayURL+")")

	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(askCmd)

	rootCmd.AddCommand(modelsCmd)

	rootCmd.AddCommand(compareCmd)
	compareCmd.Flags().StringSliceVarP(&compareModels, "model", "m", nil,
		"Aircraft model to include (repeatable, required)")
	compareCmd.Flags().StringVar(&compareRegion, "region", "", "Region filter (e.g., 'North America')")
	compareCmd.Flags().Float64Var(&compareHours, "max-hours", 0, "Maximum airframe hours")
	compareCmd.Flags().IntVar(&compareMin, "min-year", 0, "Minimum manufacture year")
	compareCmd.Flags().IntVar(&compareMax, "max-year", 0, "Maximum manufacture year")
	compareCmd.Flags().IntVar(&compareLimit, "limit", 0, "Maximum listings to fetch (1-200)")
	compareCmd.Flags().StringVarP(&compareOut, "output", "o", "",
		"Output PDF path (default: skysage-market-comparison-<date>.pdf)")
	_ = compareCmd.MarkFlagRequired("model")
}

// getGatewayBaseURL resolves the gateway URL from the flag, the
// environment, or the default, in that order.
func getGatewayBaseURL() string {
	if gatewayURL != "" {
		return gatewayURL
	}
	if env := os.Getenv("SKYSAGE_GATEWAY_URL"); env != "" {
		return env
	}
	return defaultGatewayURL
}
