package main

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"ghosthub/internal/history"
)

// TestPrintUsage tests that printUsage doesn't panic
func TestPrintUsage(t *testing.T) {
	defer func() {
		if r := recover(); r != nil {
			t.Errorf("printUsage panicked: %v", r)
		}
	}()

	printUsage()
}

func TestSanitizeCommand(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain command", "stats", "stats"},
		{"hyphen and underscore kept", "dry-run_2", "dry-run_2"},
		{"shell metacharacters replaced", "stats; rm -rf /", "stats__rm_-rf__"},
		{"newline replaced", "stats\nextra", "stats_extra"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sanitizeCommand(tt.input); got != tt.want {
				t.Errorf("sanitizeCommand(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

// setupTestStore creates a history store in a temp directory
func setupTestStore(t *testing.T) *history.Store {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "history.db")
	store, err := history.New(context.Background(), dbPath)
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Logf("failed to close store: %v", err)
		}
	})

	return store
}

func TestShowStatsEmptyStore(t *testing.T) {
	store := setupTestStore(t)

	if !showStats(context.Background(), store) {
		t.Error("Expected showStats to succeed on an empty store")
	}
}

func TestShowRecentEmptyStore(t *testing.T) {
	store := setupTestStore(t)

	if !showRecent(context.Background(), store, defaultRecentLimit) {
		t.Error("Expected showRecent to succeed on an empty store")
	}
}

func TestShowRecentWithEvents(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	store.RecordEvent(ctx, "job-1", "cat-1", "movie.mkv", "stream", "started", "")
	store.RecordEvent(ctx, "job-1", "cat-1", "movie.mkv", "stream", "ready", "")

	if !showRecent(ctx, store, 10) {
		t.Error("Expected showRecent to succeed")
	}
}

func TestRunPruneEmptyStore(t *testing.T) {
	store := setupTestStore(t)

	if !runPrune(context.Background(), store, defaultPruneAge) {
		t.Error("Expected runPrune to succeed on an empty store")
	}
}

func TestRunPruneRemovesOldEvents(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	store.RecordEvent(ctx, "job-1", "cat-1", "movie.mkv", "stream", "started", "")

	// A negative age puts the cutoff in the future, so every event
	// qualifies as old.
	if !runPrune(ctx, store, -time.Hour) {
		t.Error("Expected runPrune to succeed")
	}

	events, err := store.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(events) != 0 {
		t.Errorf("Expected all events pruned, got %d", len(events))
	}
}
