// Copyright (C) 2026 SkySage AI (dev@skysage.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package recent tracks the queries a user has recently submitted.
//
// The tracker backs the "Recent Queries" suggestion surface in the chat
// client: a bounded, order-preserving, deduplicating list where
// re-recording an existing query moves it to the front instead of
// duplicating it.
package recent

import (
	"strings"
	"sync"
)

// DefaultCapacity is the number of recent queries kept when no explicit
// capacity is configured.
const DefaultCapacity = 10

// Tracker is a bounded most-recent-first list of distinct query strings.
//
// Invariants:
//   - No duplicate entries.
//   - Recording an existing entry moves it to the front.
//   - Length never exceeds the configured capacity; the oldest entry is
//     evicted first.
//
// Tracker is safe for concurrent use, though a chat session normally
// owns its tracker exclusively.
type Tracker struct {
	mu       sync.Mutex
	capacity int
	queries  []string
}

// NewTracker creates a Tracker holding at most capacity entries.
// A capacity <= 0 falls back to DefaultCapacity.
func NewTracker(capacity int) *Tracker {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Tracker{
		capacity: capacity,
		queries:  make([]string, 0, capacity),
	}
}

// Record adds a query to the front of the list. The query is trimmed
// first; empty input is ignored. If the trimmed query already exists
// anywhere in the list, the existing occurrence is removed so the query
// appears exactly once, at the front. The list is then truncated to the
// tracker's capacity.
func (t *Tracker) Record(query string) {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	next := make([]string, 0, len(t.queries)+1)
	next = append(next, trimmed)
	for _, q := range t.queries {
		if q != trimmed {
			next = append(next, q)
		}
	}
	if len(next) > t.capacity {
		next = next[:t.capacity]
	}
	t.queries = next
}

// List returns a copy of the tracked queries, most recent first.
func (t *Tracker) List() []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]string, len(t.queries))
	copy(out, t.queries)
	return out
}

// Len returns the number of tracked queries.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.queries)
}
