package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"ghosthub/internal/history"
)

const (
	// Default timeout for database operations
	defaultTimeout = 30 * time.Second
	// Default data directory path
	defaultDataDir = "/data"
	// Default age past which prune removes events
	defaultPruneAge = 30 * 24 * time.Hour
	// Default number of events shown by recent
	defaultRecentLimit = 20
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]

	// Create a context that cancels on interrupt signals
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Fprintln(os.Stderr, "\nInterrupted, shutting down...")
		cancel()
	}()

	// Get data directory from env or default
	dataDir := os.Getenv("DATA_DIR")
	if dataDir == "" {
		dataDir = defaultDataDir
	}
	dbPath := filepath.Join(dataDir, "history.db")

	store, err := history.New(ctx, dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to open history database: %v\n", err)
		fmt.Fprintf(os.Stderr, "Make sure DATA_DIR is set correctly (current: %s)\n", dataDir)
		os.Exit(1)
	}
	defer func() {
		if err := store.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to close history database: %v\n", err)
		}
	}()

	switch command {
	case "stats":
		if !showStats(ctx, store) {
			os.Exit(1)
		}
	case "recent":
		limit := defaultRecentLimit
		if len(os.Args) > 2 {
			n, err := strconv.Atoi(os.Args[2])
			if err != nil || n <= 0 {
				fmt.Fprintf(os.Stderr, "Error: invalid limit %q\n", os.Args[2])
				os.Exit(1)
			}
			limit = n
		}
		if !showRecent(ctx, store, limit) {
			os.Exit(1)
		}
	case "prune":
		maxAge := defaultPruneAge
		if len(os.Args) > 2 {
			d, err := time.ParseDuration(os.Args[2])
			if err != nil || d <= 0 {
				fmt.Fprintf(os.Stderr, "Error: invalid age %q (use Go duration syntax, e.g. 720h)\n", os.Args[2])
				os.Exit(1)
			}
			maxAge = d
		}
		if !runPrune(ctx, store, maxAge) {
			os.Exit(1)
		}
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", sanitizeCommand(command))
		printUsage()
		os.Exit(1)
	}
}

// sanitizeCommand returns a safe representation of a command string for
// display. Any character that is not alphanumeric, a hyphen, or an
// underscore is replaced with '_'.
func sanitizeCommand(cmd string) string {
	var b strings.Builder
	b.Grow(len(cmd))
	for _, r := range cmd {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	return b.String()
}

func printUsage() {
	fmt.Println("GhostHub Job History Management")
	fmt.Println("")
	fmt.Println("Usage: histctl <command> [args]")
	fmt.Println("")
	fmt.Println("Commands:")
	fmt.Println("  stats           - Show event counts grouped by status")
	fmt.Println("  recent [n]      - Show the n most recent events (default 20)")
	fmt.Println("  prune [age]     - Delete events older than age (default 720h)")
	fmt.Println("")
	fmt.Println("Environment:")
	fmt.Printf("  DATA_DIR - Path to data directory (default: %s)\n", defaultDataDir)
}

func showStats(ctx context.Context, store *history.Store) bool {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	stats, err := store.Stats(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to read stats: %v\n", err)
		return false
	}

	fmt.Printf("Total events: %d\n", stats.TotalEvents)
	if stats.TotalEvents == 0 {
		return true
	}
	for status, count := range stats.ByStatus {
		fmt.Printf("  %-12s %d\n", status, count)
	}
	fmt.Printf("Oldest event: %s\n", stats.OldestEventAt.Format(time.RFC3339))
	fmt.Printf("Newest event: %s\n", stats.NewestEventAt.Format(time.RFC3339))
	return true
}

func showRecent(ctx context.Context, store *history.Store, limit int) bool {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	events, err := store.Recent(ctx, limit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to read events: %v\n", err)
		return false
	}

	if len(events) == 0 {
		fmt.Println("No events recorded.")
		return true
	}

	for _, e := range events {
		line := fmt.Sprintf("%s  %-10s %-6s %s/%s",
			e.CreatedAt.Format(time.RFC3339), e.Status, e.Mode, e.CategoryID, e.Filename)
		if e.Detail != "" {
			line += "  (" + e.Detail + ")"
		}
		fmt.Println(line)
	}
	return true
}

func runPrune(ctx context.Context, store *history.Store, maxAge time.Duration) bool {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	removed, err := store.Prune(ctx, maxAge)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to prune events: %v\n", err)
		return false
	}

	fmt.Printf("Removed %d events older than %s.\n", removed, maxAge)
	return true
}
