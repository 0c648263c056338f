// Copyright (C) 2026 SkySage AI (dev@skysage.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package recent

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecordPrependsMostRecentFirst(t *testing.T) {
	tracker := NewTracker(DefaultCapacity)

	tracker.Record("first")
	tracker.Record("second")
	tracker.Record("third")

	assert.Equal(t, []string{"third", "second", "first"}, tracker.List())
}

func TestRecordTrimsWhitespace(t *testing.T) {
	tracker := NewTracker(DefaultCapacity)

	tracker.Record("  Cessna 172 resale outlook  ")

	assert.Equal(t, []string{"Cessna 172 resale outlook"}, tracker.List())
}

func TestRecordIgnoresEmptyInput(t *testing.T) {
	tracker := NewTracker(DefaultCapacity)

	tracker.Record("")
	tracker.Record("   ")
	tracker.Record("\t\n")

	assert.Equal(t, 0, tracker.Len())
}

func TestRecordMovesDuplicateToFront(t *testing.T) {
	tracker := NewTracker(DefaultCapacity)

	tracker.Record("alpha")
	tracker.Record("beta")
	tracker.Record("gamma")
	tracker.Record("alpha")

	assert.Equal(t, []string{"alpha", "gamma", "beta"}, tracker.List())
	assert.Equal(t, 3, tracker.Len())
}

func TestRecordDeduplicatesAfterTrim(t *testing.T) {
	tracker := NewTracker(DefaultCapacity)

	tracker.Record("alpha")
	tracker.Record("  alpha ")

	assert.Equal(t, []string{"alpha"}, tracker.List())
}

func TestRecordEvictsOldestAtCapacity(t *testing.T) {
	tracker := NewTracker(3)

	tracker.Record("one")
	tracker.Record("two")
	tracker.Record("three")
	tracker.Record("four")

	assert.Equal(t, []string{"four", "three", "two"}, tracker.List())
}

func TestRecordingExistingEntryAtCapacityDoesNotEvict(t *testing.T) {
	tracker := NewTracker(3)

	tracker.Record("one")
	tracker.Record("two")
	tracker.Record("three")
	tracker.Record("one")

	assert.Equal(t, []string{"one", "three", "two"}, tracker.List())
}

func TestNewTrackerDefaultsCapacity(t *testing.T) {
	tracker := NewTracker(0)

	for i := 0; i < DefaultCapacity+5; i++ {
		tracker.Record(fmt.Sprintf("query %d", i))
	}

	assert.Equal(t, DefaultCapacity, tracker.Len())
}

func TestListReturnsCopy(t *testing.T) {
	tracker := NewTracker(DefaultCapacity)
	tracker.Record("original")

	list := tracker.List()
	list[0] = "mutated"

	assert.Equal(t, []string{"original"}, tracker.List())
}

func TestConcurrentRecord(t *testing.T) {
	tracker := NewTracker(DefaultCapacity)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			tracker.Record(fmt.Sprintf("query %d", n%5))
		}(i)
	}
	wg.Wait()

	list := tracker.List()
	assert.Len(t, list, 5)
	seen := make(map[string]bool, len(list))
	for _, q := range list {
		assert.False(t, seen[q], "duplicate entry %q", q)
		seen[q] = true
	}
}
