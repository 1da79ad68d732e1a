// Package persistence keeps the run history in an SQLite database under the
// working directory's .weft folder. Each build records one run row plus one
// row per executed or skipped job.
package persistence

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/weftsh/weft/internal/util"
	"github.com/weftsh/weft/progress"
)

const (
	// WeftDir is the bookkeeping directory weft keeps in the workdir.
	WeftDir = ".weft"

	historyDBFile = "history.db"
	schemaVersion = 1
)

// Run statuses as stored in the runs table.
const (
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
)

// Run is one recorded build invocation.
type Run struct {
	ID          string    `json:"id"`
	Target      string    `json:"target"`
	Status      string    `json:"status"`
	JobsTotal   int       `json:"jobs_total"`
	JobsRun     int       `json:"jobs_run"`
	JobsSkipped int       `json:"jobs_skipped"`
	Error       string    `json:"error,omitempty"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
}

// JobRow is one job outcome within a run.
type JobRow struct {
	Rule     string        `json:"rule"`
	Outputs  string        `json:"outputs"`
	Status   string        `json:"status"`
	Duration time.Duration `json:"duration"`
}

// Store is the run history database. A single connection serialises access;
// SQLite with WAL handles the rest.
type Store struct {
	db   *sql.DB
	path string
	mu   sync.Mutex
}

// Open opens (or creates) the history database under dir/.weft.
func Open(dir string) (*Store, error) {
	weftDir := filepath.Join(dir, WeftDir)
	// #nosec G301 - 0700 is intentionally restrictive
	if err := os.MkdirAll(weftDir, 0o700); err != nil {
		return nil, fmt.Errorf("creating %s directory: %w", WeftDir, err)
	}

	dbPath := filepath.Join(weftDir, historyDBFile)
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening history database: %w", err)
	}

	// Single connection for SQLite
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("executing %s: %w", pragma, err)
		}
	}

	s := &Store{db: db, path: dbPath}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initializing history schema: %w", err)
	}
	return s, nil
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		target TEXT NOT NULL,
		status TEXT NOT NULL,
		jobs_total INTEGER NOT NULL,
		jobs_run INTEGER NOT NULL,
		jobs_skipped INTEGER NOT NULL,
		error TEXT,
		started_at INTEGER NOT NULL,
		finished_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS run_jobs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL REFERENCES runs(id),
		rule TEXT NOT NULL,
		outputs TEXT,
		status TEXT NOT NULL,
		duration_ms INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
	CREATE INDEX IF NOT EXISTS idx_run_jobs_run_id ON run_jobs(run_id);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("creating history schema: %w", err)
	}

	var version int
	if err := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&version); err != nil {
		return fmt.Errorf("querying schema version: %w", err)
	}
	if version < schemaVersion {
		if _, err := s.db.Exec("INSERT INTO schema_version (version, applied_at) VALUES (?, ?)",
			schemaVersion, time.Now().Unix()); err != nil {
			return fmt.Errorf("recording schema version: %w", err)
		}
	}
	return nil
}

// SaveRun persists one run summary and its job rows in a single transaction.
func (s *Store) SaveRun(summary progress.Summary, status string) (string, error) {
	id, err := util.GenerateUUID()
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return "", fmt.Errorf("starting transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	errText := ""
	if summary.Err != nil {
		errText = summary.Err.Error()
	}

	if _, err := tx.Exec(
		`INSERT INTO runs (id, target, status, jobs_total, jobs_run, jobs_skipped, error, started_at, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, summary.Target, status, summary.Planned, summary.Ran, summary.Skipped,
		errText, summary.Started.Unix(), summary.Finished.Unix(),
	); err != nil {
		return "", fmt.Errorf("inserting run: %w", err)
	}

	for _, rec := range summary.Records {
		if _, err := tx.Exec(
			`INSERT INTO run_jobs (run_id, rule, outputs, status, duration_ms) VALUES (?, ?, ?, ?, ?)`,
			id, rec.Rule, strings.Join(rec.Outputs, ", "), string(rec.Status), rec.Duration.Milliseconds(),
		); err != nil {
			return "", fmt.Errorf("inserting job row: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("committing run: %w", err)
	}
	return id, nil
}

// RecentRuns returns up to limit runs, newest first.
func (s *Store) RecentRuns(limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = 20
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(
		`SELECT id, target, status, jobs_total, jobs_run, jobs_skipped, COALESCE(error, ''), started_at, finished_at
		 FROM runs ORDER BY started_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []*Run
	for rows.Next() {
		var (
			r                     Run
			startedAt, finishedAt int64
		)
		if err := rows.Scan(&r.ID, &r.Target, &r.Status, &r.JobsTotal, &r.JobsRun,
			&r.JobsSkipped, &r.Error, &startedAt, &finishedAt); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		r.StartedAt = time.Unix(startedAt, 0)
		r.FinishedAt = time.Unix(finishedAt, 0)
		runs = append(runs, &r)
	}
	return runs, rows.Err()
}

// RunJobs returns the job rows of one run in insertion order.
func (s *Store) RunJobs(runID string) ([]*JobRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(
		`SELECT rule, COALESCE(outputs, ''), status, duration_ms FROM run_jobs WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying run jobs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var jobs []*JobRow
	for rows.Next() {
		var (
			j  JobRow
			ms int64
		)
		if err := rows.Scan(&j.Rule, &j.Outputs, &j.Status, &ms); err != nil {
			return nil, fmt.Errorf("scanning job row: %w", err)
		}
		j.Duration = time.Duration(ms) * time.Millisecond
		jobs = append(jobs, &j)
	}
	return jobs, rows.Err()
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
