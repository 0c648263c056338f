// Copyright (C) 2026 SkySage AI (dev@skysage.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package main contains the SessionChatRunner implementation.
//
// This file implements the ChatRunner interface on top of the
// conversation session. It coordinates between the session (state
// machine, retry, history), the ChatUI (display), and the InputReader
// (user input) to provide an interactive chat experience.
package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/skysage-ai/skysage/pkg/conversation"
	"github.com/skysage-ai/skysage/pkg/logging"
	"github.com/skysage-ai/skysage/pkg/recent"
	"github.com/skysage-ai/skysage/pkg/report"
	"github.com/skysage-ai/skysage/pkg/ux"
	"github.com/skysage-ai/skysage/services/gateway/datatypes"
)

// suggestedQueries are the canned research questions offered via
// /suggest. Picking one with /try stages it as pending input; the chat
// loop consumes and sends it on the next pass.
var suggestedQueries = []string{
	"What's the current market like for a Gulfstream G650?",
	"Compare ask prices for the Phenom 300 and the Citation CJ4",
	"Which light jets have the shortest time on market right now?",
	"Is now a good time to sell a 2018 Challenger 350?",
}

// =============================================================================
// SessionChatRunner Implementation
// =============================================================================

// SessionChatRunner implements ChatRunner on a conversation session.
//
// # Description
//
// SessionChatRunner manages the interactive chat loop. It follows a
// single-responsibility pattern:
//   - Input reading is delegated to InputReader
//   - Send/retry/history semantics are delegated to conversation.Session
//   - Display formatting is delegated to ux.ChatUI
//   - Runner only handles coordination and control flow
//
// The runner waits for each send to reach a terminal outcome before
// prompting again; the session's single-flight gate makes overlapping
// sends impossible regardless.
//
// # Thread Safety
//
// The runner itself is not designed for concurrent Run() calls.
// However, Close() is thread-safe and can be called from any goroutine.
//
// # Limitations
//
//   - Single use: cannot restart after Run() completes
//   - Stdin reads cannot be interrupted mid-line (OS limitation)
type SessionChatRunner struct {
	session    *conversation.Session
	tracker    *recent.Tracker
	ui         ux.ChatUI
	input      InputReader
	gatewayURL string
	exportDir  string
	now        func() time.Time
	logger     *logging.Logger

	sessionStartTime time.Time
	messageCount     int
	rendered         int // transcript entries already displayed

	closed bool
	mu     sync.Mutex
}

// SessionChatRunnerConfig holds configuration for creating a
// SessionChatRunner with production dependencies.
type SessionChatRunnerConfig struct {
	BaseURL    string       // Gateway URL (required)
	HTTPClient *http.Client // Optional; nil uses the default client
	Logger     *logging.Logger
}

// NewSessionChatRunner creates a chat runner with production
// dependencies: the HTTP gateway client, a recent-query tracker, the
// terminal UI, and an interactive stdin reader.
func NewSessionChatRunner(config SessionChatRunnerConfig) ChatRunner {
	logger := config.Logger
	if logger == nil {
		logger = logging.Default()
	}

	tracker := recent.NewTracker(0)
	session := conversation.NewSession(conversation.Config{
		Gateway: conversation.NewClient(config.BaseURL, config.HTTPClient),
		Tracker: tracker,
		Logger:  logger,
	})

	return &SessionChatRunner{
		session:    session,
		tracker:    tracker,
		ui:         ux.NewChatUI(),
		input:      NewInteractiveInputReader(50), // Keep last 50 prompts in history
		gatewayURL: config.BaseURL,
		now:        time.Now,
		logger:     logger,
	}
}

// SessionChatRunnerTestConfig holds injected dependencies for tests.
type SessionChatRunnerTestConfig struct {
	Session   *conversation.Session
	Tracker   *recent.Tracker
	UI        ux.ChatUI
	Input     InputReader
	ExportDir string
	Now       func() time.Time
}

// NewSessionChatRunnerWithDeps creates a chat runner with injected
// dependencies for testing.
func NewSessionChatRunnerWithDeps(config SessionChatRunnerTestConfig) *SessionChatRunner {
	now := config.Now
	if now == nil {
		now = time.Now
	}
	return &SessionChatRunner{
		session:   config.Session,
		tracker:   config.Tracker,
		ui:        config.UI,
		input:     config.Input,
		exportDir: config.ExportDir,
		now:       now,
		logger:    logging.Default(),
	}
}

// Run executes the interactive chat loop.
//
// # Description
//
// Runs the main chat loop:
//  1. Displays the session header and the seeded welcome message
//  2. Sends any staged suggested query, otherwise prompts for input
//  3. Checks for exit and slash commands
//  4. Sends the message and waits for the terminal outcome
//  5. Displays the consultant answer, sources, and data counts
//  6. Repeats until exit, EOF, or context cancellation
//
// # Outputs
//
//   - error: nil on normal exit ("exit"/"quit" or EOF),
//     context.Canceled on shutdown, or error if a fatal failure occurs
func (r *SessionChatRunner) Run(ctx context.Context) error {
	r.sessionStartTime = r.now()

	r.ui.Header(ux.HeaderConfig{GatewayURL: r.gatewayURL})
	r.renderNewMessages() // welcome message seeded by the session

	for {
		// Check for context cancellation before blocking on input
		select {
		case <-ctx.Done():
			return r.handleShutdown(ctx)
		default:
		}

		// A staged suggested query takes the place of typed input.
		if query, ok := r.session.ConsumePendingInput(); ok {
			r.ui.UserEcho(query)
			if err := r.submit(ctx, query); err != nil {
				if ctx.Err() != nil {
					return r.handleShutdown(ctx)
				}
				r.ui.Error(err)
			}
			continue
		}

		// Display prompt and read input. If the reader handles prompts
		// (interactive mode), set it; otherwise print manually.
		if p, ok := r.input.(PromptingInputReader); ok {
			p.SetPrompt(r.ui.Prompt())
		} else {
			fmt.Print(r.ui.Prompt())
		}
		input, err := r.input.ReadLine()
		if err != nil {
			if err == io.EOF {
				// Input exhausted (e.g., piped input ended)
				r.displaySessionEnd()
				return nil
			}
			r.logger.Error("failed to read input", "error", err)
			return fmt.Errorf("read input: %w", err)
		}

		if input == "" {
			continue
		}

		// Echo the user's input for interactive readers. Bubbletea
		// clears its rendering area on exit, so we restore the line.
		if _, isInteractive := r.input.(*InteractiveInputReader); isInteractive {
			fmt.Printf("%s%s\n", r.ui.Prompt(), input)
		}

		if isExitCommand(input) {
			r.displaySessionEnd()
			return nil
		}

		if strings.HasPrefix(input, "/") {
			r.handleCommand(input)
			continue
		}

		if err := r.submit(ctx, input); err != nil {
			if ctx.Err() != nil {
				return r.handleShutdown(ctx)
			}
			// Non-fatal error: display and continue
			r.ui.Error(err)
		}
	}
}

// submit sends one user message and blocks until the session reaches a
// terminal outcome, then renders the new transcript entries.
func (r *SessionChatRunner) submit(ctx context.Context, text string) error {
	if !r.session.Send(text) {
		return fmt.Errorf("message was not accepted; a request may still be in flight")
	}
	r.messageCount++

	if err := r.session.WaitIdle(ctx); err != nil {
		return err
	}
	r.renderNewMessages()
	return nil
}

// renderNewMessages displays transcript entries added since the last
// render. User messages are skipped; they are already on screen as
// typed or echoed input.
func (r *SessionChatRunner) renderNewMessages() {
	messages := r.session.Messages()
	for _, msg := range messages[r.rendered:] {
		if msg.Role != conversation.RoleAssistant {
			continue
		}
		r.ui.Response(msg.Content)
		r.ui.Sources(toSourceInfos(msg.Sources))
		r.ui.DataUsed(msg.DataUsed)
	}
	r.rendered = len(messages)
}

// toSourceInfos maps gateway citations onto display rows.
func toSourceInfos(refs []datatypes.SourceRef) []ux.SourceInfo {
	out := make([]ux.SourceInfo, 0, len(refs))
	for _, ref := range refs {
		label := ref.EntityType
		if ref.EntityID != nil && *ref.EntityID != "" {
			label += ":" + *ref.EntityID
		}
		info := ux.SourceInfo{Label: label}
		if ref.Score != nil {
			info.Score = *ref.Score
			info.HasScore = true
		}
		out = append(out, info)
	}
	return out
}

// handleCommand dispatches a slash command.
func (r *SessionChatRunner) handleCommand(input string) {
	fields := strings.Fields(input)
	switch fields[0] {
	case "/suggest":
		r.ui.Suggestions(suggestedQueries)

	case "/try":
		if len(fields) < 2 {
			r.ui.Notice("Usage: /try N (see /suggest for the list)")
			return
		}
		n, err := strconv.Atoi(fields[1])
		if err != nil || n < 1 || n > len(suggestedQueries) {
			r.ui.Notice(fmt.Sprintf("Pick a suggestion between 1 and %d.", len(suggestedQueries)))
			return
		}
		r.session.SetPendingInput(suggestedQueries[n-1])

	case "/recent":
		var queries []string
		if r.tracker != nil {
			queries = r.tracker.List()
		}
		r.ui.RecentQueries(queries)

	case "/export":
		path := ""
		if len(fields) > 1 {
			path = fields[1]
		}
		if err := r.exportTranscript(path); err != nil {
			r.ui.Error(err)
		}

	default:
		r.ui.Notice("Unknown command. Available: /suggest, /try N, /recent, /export [file]")
	}
}

// exportTranscript writes the conversation so far as a PDF report. An
// empty path uses the dated default filename in the export directory.
func (r *SessionChatRunner) exportTranscript(path string) error {
	messages := r.session.Messages()
	entries := make([]report.TranscriptEntry, 0, len(messages))
	for _, msg := range messages {
		entries = append(entries, report.TranscriptEntry{
			Role:    string(msg.Role),
			Content: msg.Content,
		})
	}

	generatedAt := r.now()
	data, err := report.ExportTranscriptPDF(entries, generatedAt)
	if err != nil {
		return fmt.Errorf("build transcript report: %w", err)
	}

	if path == "" {
		path = filepath.Join(r.exportDir, report.TranscriptFileName(generatedAt))
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write transcript report: %w", err)
	}

	r.ui.Success("Report written to " + path)
	return nil
}

// displaySessionEnd shows the end-of-session summary.
func (r *SessionChatRunner) displaySessionEnd() {
	r.ui.SessionEnd(ux.SessionStats{
		MessageCount: r.messageCount,
		Duration:     r.now().Sub(r.sessionStartTime),
	})
}

// handleShutdown performs graceful shutdown after context cancellation.
func (r *SessionChatRunner) handleShutdown(ctx context.Context) error {
	r.logger.Info("graceful shutdown initiated")
	fmt.Println() // New line after interrupted input
	r.displaySessionEnd()
	return ctx.Err()
}

// Close releases the underlying session. Safe to call multiple times.
func (r *SessionChatRunner) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	if r.session != nil {
		r.session.Close()
	}
	return nil
}
