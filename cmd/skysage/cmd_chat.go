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
	"os/signal"
	"strings"
	"syscall"

	"github.com/skysage-ai/skysage/pkg/conversation"
	"github.com/skysage-ai/skysage/pkg/ux"
	"github.com/spf13/cobra"
)

func runChatCommand(cmd *cobra.Command, args []string) {
	runner := NewSessionChatRunner(SessionChatRunnerConfig{
		BaseURL: getGatewayBaseURL(),
	})
	defer runner.Close()

	// Set up graceful shutdown with signal handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	if err := runner.Run(ctx); err != nil && err != context.Canceled {
		log.Fatalf("Chat error: %v", err)
	}
}

func runAskCommand(cmd *cobra.Command, args []string) {
	question := strings.Join(args, " ")
	client := conversation.NewClient(getGatewayBaseURL(), nil)

	resp, err := client.Answer(context.Background(), question, nil)
	if err != nil {
		log.Fatalf("Error: %v", err)
	}

	// In-band failures carry a user-facing answer too; print it either
	// way and flag the failure on stderr.
	fmt.Printf("\n%s\n%s\n", ux.Styles.Subtitle.Render("Answer:"), resp.Answer)
	if resp.Error != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ux.Styles.Warning.Render("Request did not complete normally."))
	}

	if len(resp.Sources) > 0 {
		fmt.Printf("\n%s\n", ux.Styles.Muted.Render("Sources:"))
		for i, src := range resp.Sources {
			label := src.EntityType
			if src.EntityID != nil && *src.EntityID != "" {
				label += ":" + *src.EntityID
			}
			if src.Score != nil {
				fmt.Printf("  %d. %s (score: %.2f)\n", i+1, label, *src.Score)
			} else {
				fmt.Printf("  %d. %s\n", i+1, label)
			}
		}
	}
}
