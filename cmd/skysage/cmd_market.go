// Copyright (C) 2026 SkySage AI (dev@skysage.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/skysage-ai/skysage/pkg/conversation"
	"github.com/skysage-ai/skysage/pkg/report"
	"github.com/skysage-ai/skysage/pkg/ux"
	"github.com/skysage-ai/skysage/services/gateway/datatypes"
	"github.com/spf13/cobra"
)

func runModelsCommand(cmd *cobra.Command, args []string) {
	client := conversation.NewMarketClient(getGatewayBaseURL(), nil)

	resp, err := client.AircraftModels(context.Background())
	if err != nil {
		log.Fatalf("Error: %v", err)
	}
	if resp.Error != nil {
		log.Fatalf("Error: %s", *resp.Error)
	}

	if len(resp.Models) == 0 {
		fmt.Println(ux.Styles.Muted.Render("No aircraft models available."))
		return
	}
	fmt.Printf("%s\n", ux.Styles.Subtitle.Render("Known aircraft models:"))
	for _, model := range resp.Models {
		fmt.Printf("  %s %s\n", ux.IconBullet.Render(), model)
	}
}

func runCompareCommand(cmd *cobra.Command, args []string) {
	req := buildComparisonRequest()
	client := conversation.NewMarketClient(getGatewayBaseURL(), nil)

	fmt.Printf("Comparing listings for: %v\n", compareModels)

	resp, err := client.MarketComparison(context.Background(), req)
	if err != nil {
		log.Fatalf("Error: %v", err)
	}
	if resp.Error != nil {
		log.Fatalf("Error: %s", *resp.Error)
	}

	if resp.Summary != "" {
		fmt.Printf("\n%s\n", resp.Summary)
	}
	if len(resp.Rows) == 0 {
		fmt.Println(ux.Styles.Muted.Render("No listings matched the filters; no report written."))
		return
	}

	generatedAt := time.Now()
	table := report.BuildComparisonTable(toComparisonRows(resp.Rows), compareModels, compareRegion, resp.Summary)
	data, err := report.ExportTablePDF(table, generatedAt)
	if err != nil {
		log.Fatalf("Error building report: %v", err)
	}

	path := compareOut
	if path == "" {
		path = report.ComparisonFileName(generatedAt)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		log.Fatalf("Error writing report: %v", err)
	}

	fmt.Printf("%s Report written to %s (%d listings)\n", ux.IconSuccess.Render(), path, len(resp.Rows))
}

// buildComparisonRequest maps the compare flags onto the gateway
// request, omitting unset numeric filters.
func buildComparisonRequest() datatypes.MarketComparisonRequest {
	req := datatypes.MarketComparisonRequest{
		Models: compareModels,
		Region: compareRegion,
		Limit:  compareLimit,
	}
	if compareHours > 0 {
		req.MaxHours = &compareHours
	}
	if compareMin > 0 {
		req.MinYear = &compareMin
	}
	if compareMax > 0 {
		req.MaxYear = &compareMax
	}
	return req
}

// toComparisonRows maps gateway listing rows onto report rows.
func toComparisonRows(rows []datatypes.MarketComparisonRow) []report.ComparisonRow {
	out := make([]report.ComparisonRow, 0, len(rows))
	for _, row := range rows {
		out = append(out, report.ComparisonRow{
			Manufacturer:     row.Manufacturer,
			Model:            row.Model,
			ManufacturerYear: row.ManufacturerYear,
			AskPrice:         row.AskPrice,
			SoldPrice:        row.SoldPrice,
			AirframeHours:    row.AirframeHours,
			Location:         row.Location,
			BasedAt:          row.BasedAt,
			ListingStatus:    row.ListingStatus,
			DaysOnMarket:     row.DaysOnMarket,
			SourcePlatform:   row.SourcePlatform,
		})
	}
	return out
}
