// Copyright (C) 2026 SkySage AI (dev@skysage.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package ux

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"
)

// =============================================================================
// Types
// =============================================================================

// HeaderConfig carries the fields displayed in the chat session header.
type HeaderConfig struct {
	GatewayURL string // Gateway base URL the session talks to
	DemoNotice bool   // Whether the gateway is running in demo mode
}

// SessionStats holds the figures shown in the session end summary.
type SessionStats struct {
	MessageCount int           // User messages sent this session
	Duration     time.Duration // Wall-clock session duration
}

// SourceInfo is one citation attached to a consultant answer.
//
// Score is a relevance score in [0,1]; HasScore distinguishes a real
// zero from an absent score.
type SourceInfo struct {
	Label    string
	Score    float64
	HasScore bool
}

// =============================================================================
// ChatUI Interface
// =============================================================================

// ChatUI defines the display surface for interactive chat sessions.
//
// # Description
//
// ChatUI isolates all terminal formatting from the chat loop so the
// runner only coordinates control flow. The production implementation
// writes styled output to stdout; tests inject a buffer via
// NewChatUIWithWriter and assert on plain content.
//
// # Thread Safety
//
// Implementations are not safe for concurrent use. The chat loop is
// single-threaded by construction.
type ChatUI interface {
	// Header displays the session banner with gateway info and the
	// available commands.
	Header(config HeaderConfig)

	// Prompt returns the styled input prompt string.
	Prompt() string

	// UserEcho displays a user query as if it had been typed at the
	// prompt. Used when a suggested query is injected.
	UserEcho(text string)

	// Response displays a consultant answer.
	Response(answer string)

	// Sources displays the citations attached to an answer.
	Sources(sources []SourceInfo)

	// DataUsed displays the per-table record counts consulted for an
	// answer, sorted by table name.
	DataUsed(counts map[string]int)

	// Suggestions displays the numbered suggested-query list.
	Suggestions(queries []string)

	// RecentQueries displays the recent query history, most recent first.
	RecentQueries(queries []string)

	// Notice displays a muted informational line.
	Notice(text string)

	// Success displays a confirmation line.
	Success(text string)

	// Error displays an error to the user.
	Error(err error)

	// SessionEnd displays the end-of-session summary.
	SessionEnd(stats SessionStats)
}

// =============================================================================
// Terminal Implementation
// =============================================================================

type terminalChatUI struct {
	out io.Writer
}

// NewChatUI creates the production chat UI writing to stdout.
func NewChatUI() ChatUI {
	return &terminalChatUI{out: os.Stdout}
}

// NewChatUIWithWriter creates a chat UI writing to w. Used by tests.
func NewChatUIWithWriter(w io.Writer) ChatUI {
	return &terminalChatUI{out: w}
}

func (u *terminalChatUI) write(format string, args ...interface{}) {
	fmt.Fprintf(u.out, format, args...)
}

func (u *terminalChatUI) Header(config HeaderConfig) {
	u.write("\n%s\n", Styles.Title.Render("SkySage Research Chat"))
	u.write("%s\n", Styles.Muted.Render("Gateway: "+config.GatewayURL))
	if config.DemoNotice {
		u.write("%s\n", Styles.Warning.Render("Demo mode: answers are canned samples."))
	}
	u.write("%s\n", Styles.Muted.Render("Commands: /suggest, /try N, /recent, /export [file], exit"))
	u.write("\n")
}

func (u *terminalChatUI) Prompt() string {
	return Styles.Highlight.Render("You") + Styles.Muted.Render(" › ")
}

func (u *terminalChatUI) UserEcho(text string) {
	u.write("%s%s\n", u.Prompt(), text)
}

func (u *terminalChatUI) Response(answer string) {
	u.write("\n%s\n%s\n", Styles.Subtitle.Render("Consultant"), answer)
}

func (u *terminalChatUI) Sources(sources []SourceInfo) {
	if len(sources) == 0 {
		return
	}
	u.write("\n%s\n", Styles.Muted.Render("Sources:"))
	for i, src := range sources {
		line := fmt.Sprintf("  %d. %s", i+1, src.Label)
		if src.HasScore {
			line += fmt.Sprintf(" (score: %.2f)", src.Score)
		}
		u.write("%s\n", Styles.Muted.Render(line))
	}
}

func (u *terminalChatUI) DataUsed(counts map[string]int) {
	if len(counts) == 0 {
		return
	}
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s (%d)", name, counts[name]))
	}
	u.write("%s\n", Styles.Muted.Render("Data consulted: "+strings.Join(parts, ", ")))
}

func (u *terminalChatUI) Suggestions(queries []string) {
	u.write("\n%s\n", Styles.Subtitle.Render("Try asking:"))
	for i, q := range queries {
		u.write("  %s %s\n", Styles.Highlight.Render(fmt.Sprintf("%d.", i+1)), q)
	}
	u.write("%s\n", Styles.Muted.Render("Use /try N to send one."))
}

func (u *terminalChatUI) RecentQueries(queries []string) {
	if len(queries) == 0 {
		u.write("%s\n", Styles.Muted.Render("No recent queries yet."))
		return
	}
	u.write("\n%s\n", Styles.Subtitle.Render("Recent queries:"))
	for i, q := range queries {
		u.write("  %d. %s\n", i+1, q)
	}
}

func (u *terminalChatUI) Notice(text string) {
	u.write("%s\n", Styles.Muted.Render(text))
}

func (u *terminalChatUI) Success(text string) {
	u.write("%s %s\n", IconSuccess.Render(), text)
}

func (u *terminalChatUI) Error(err error) {
	u.write("%s %s\n", IconError.Render(), Styles.Error.Render(err.Error()))
}

func (u *terminalChatUI) SessionEnd(stats SessionStats) {
	u.write("\n%s\n", Styles.Subtitle.Render("Session ended."))
	u.write("%s\n", Styles.Muted.Render(fmt.Sprintf("  Messages: %d  Duration: %s",
		stats.MessageCount, formatDuration(stats.Duration))))
}

// formatDuration renders a duration as a compact human figure.
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
}
