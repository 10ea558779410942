package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3" // SQLite3 driver

	"ghosthub/internal/logging"
	"ghosthub/internal/metrics"
)

// Default timeout for database operations
const defaultTimeout = 5 * time.Second

// Event is one recorded job lifecycle transition.
type Event struct {
	ID         string    `json:"id"`
	JobID      string    `json:"job_id"`
	CategoryID string    `json:"category_id"`
	Filename   string    `json:"filename"`
	Mode       string    `json:"mode"`
	Status     string    `json:"status"`
	Detail     string    `json:"detail,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Stats summarizes the event log for the history endpoint.
type Stats struct {
	TotalEvents   int            `json:"total_events"`
	ByStatus      map[string]int `json:"by_status"`
	OldestEventAt time.Time      `json:"oldest_event_at,omitzero"`
	NewestEventAt time.Time      `json:"newest_event_at,omitzero"`
}

// Store is the SQLite-backed event log.
type Store struct {
	db     *sql.DB
	dbPath string
}

// New opens (or creates) the history database at dbPath. The parent
// directory must already exist and be writable; startup.LoadConfig
// validates that before this is called.
func New(ctx context.Context, dbPath string) (*Store, error) {
	logging.Info("Job history database path: %s", dbPath)

	// WAL mode with a busy timeout avoids "database is locked" errors
	// when the sweep and the API read concurrently.
	connStr := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000", dbPath)

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logging.Error("failed to close history database after ping failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to connect to history database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	s := &Store{db: db, dbPath: dbPath}
	if err := s.initialize(ctx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logging.Error("failed to close history database after init failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to initialize history schema: %w", err)
	}

	logging.Info("Job history database initialized at %s", dbPath)
	return s, nil
}

func (s *Store) initialize(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS job_events (
		id TEXT PRIMARY KEY,
		job_id TEXT NOT NULL,
		category_id TEXT NOT NULL,
		filename TEXT NOT NULL,
		mode TEXT NOT NULL,
		status TEXT NOT NULL,
		detail TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now'))
	);

	CREATE INDEX IF NOT EXISTS idx_job_events_job_id ON job_events(job_id);
	CREATE INDEX IF NOT EXISTS idx_job_events_status ON job_events(status);
	CREATE INDEX IF NOT EXISTS idx_job_events_created_at ON job_events(created_at);
	`

	initCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := s.db.ExecContext(initCtx, schema)
	return err
}

// RecordEvent appends one lifecycle event. Failures are logged, never
// returned: the orchestrator must not care whether history is healthy.
func (s *Store) RecordEvent(ctx context.Context, jobID, categoryID, filename, mode, status, detail string) {
	start := time.Now()

	opCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := s.db.ExecContext(opCtx,
		`INSERT INTO job_events (id, job_id, category_id, filename, mode, status, detail, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), jobID, categoryID, filename, mode, status, detail, time.Now().Unix())

	metrics.DBQueryDuration.WithLabelValues("record_event").Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.DBQueryTotal.WithLabelValues("record_event", "error").Inc()
		logging.Warn("failed to record history event for job %s: %v", jobID, err)
		return
	}
	metrics.DBQueryTotal.WithLabelValues("record_event", "success").Inc()
}

// Recent returns up to limit events, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 50
	}
	start := time.Now()

	opCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := s.db.QueryContext(opCtx,
		`SELECT id, job_id, category_id, filename, mode, status, detail, created_at
		 FROM job_events ORDER BY created_at DESC, id DESC LIMIT ?`, limit)

	metrics.DBQueryDuration.WithLabelValues("recent").Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.DBQueryTotal.WithLabelValues("recent", "error").Inc()
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			logging.Error("failed to close history rows: %v", err)
		}
	}()

	var events []Event
	for rows.Next() {
		var e Event
		var createdAt int64
		if err := rows.Scan(&e.ID, &e.JobID, &e.CategoryID, &e.Filename, &e.Mode, &e.Status, &e.Detail, &createdAt); err != nil {
			metrics.DBQueryTotal.WithLabelValues("recent", "error").Inc()
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		e.CreatedAt = time.Unix(createdAt, 0)
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		metrics.DBQueryTotal.WithLabelValues("recent", "error").Inc()
		return nil, fmt.Errorf("failed to iterate history rows: %w", err)
	}

	metrics.DBQueryTotal.WithLabelValues("recent", "success").Inc()
	return events, nil
}

// JobEvents returns every event recorded for jobID, oldest first.
func (s *Store) JobEvents(ctx context.Context, jobID string) ([]Event, error) {
	opCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := s.db.QueryContext(opCtx,
		`SELECT id, job_id, category_id, filename, mode, status, detail, created_at
		 FROM job_events WHERE job_id = ? ORDER BY created_at ASC, id ASC`, jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to query job events: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			logging.Error("failed to close job event rows: %v", err)
		}
	}()

	var events []Event
	for rows.Next() {
		var e Event
		var createdAt int64
		if err := rows.Scan(&e.ID, &e.JobID, &e.CategoryID, &e.Filename, &e.Mode, &e.Status, &e.Detail, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan job event row: %w", err)
		}
		e.CreatedAt = time.Unix(createdAt, 0)
		events = append(events, e)
	}
	return events, rows.Err()
}

// Stats summarizes the event log.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	opCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	stats := Stats{ByStatus: make(map[string]int)}

	rows, err := s.db.QueryContext(opCtx,
		`SELECT status, COUNT(*) FROM job_events GROUP BY status`)
	if err != nil {
		return stats, fmt.Errorf("failed to query history stats: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			logging.Error("failed to close stats rows: %v", err)
		}
	}()

	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return stats, fmt.Errorf("failed to scan stats row: %w", err)
		}
		stats.ByStatus[status] = count
		stats.TotalEvents += count
	}
	if err := rows.Err(); err != nil {
		return stats, fmt.Errorf("failed to iterate stats rows: %w", err)
	}

	var oldest, newest sql.NullInt64
	err = s.db.QueryRowContext(opCtx,
		`SELECT MIN(created_at), MAX(created_at) FROM job_events`).Scan(&oldest, &newest)
	if err != nil {
		return stats, fmt.Errorf("failed to query event time range: %w", err)
	}
	if oldest.Valid {
		stats.OldestEventAt = time.Unix(oldest.Int64, 0)
	}
	if newest.Valid {
		stats.NewestEventAt = time.Unix(newest.Int64, 0)
	}

	return stats, nil
}

// Prune deletes events older than maxAge and returns how many were
// removed.
func (s *Store) Prune(ctx context.Context, maxAge time.Duration) (int64, error) {
	start := time.Now()

	opCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cutoff := time.Now().Add(-maxAge).Unix()
	res, err := s.db.ExecContext(opCtx,
		`DELETE FROM job_events WHERE created_at < ?`, cutoff)

	metrics.DBQueryDuration.WithLabelValues("prune").Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.DBQueryTotal.WithLabelValues("prune", "error").Inc()
		return 0, fmt.Errorf("failed to prune history: %w", err)
	}
	metrics.DBQueryTotal.WithLabelValues("prune", "success").Inc()

	removed, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count pruned events: %w", err)
	}
	if removed > 0 {
		logging.Info("Pruned %d history events older than %s", removed, maxAge)
	}
	return removed, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	logging.Info("Closing job history database")
	return s.db.Close()
}
