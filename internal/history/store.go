// Package history keeps a SQLite ledger of ingestion runs, so the provenance of the
// files under data/raw can be traced back to a source, a split fraction and a seed.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"dataingest/internal/logging"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// timeLayout is fixed width so that timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Run statuses.
const (
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// Run is one invocation of the pipeline.
type Run struct {
	ID          string
	StartedAt   time.Time
	FinishedAt  time.Time
	ParamsPath  string
	Source      string
	TestSize    float64
	Seed        int64
	Rows        int
	TrainRows   int
	TestRows    int
	TrainSHA256 string
	TestSHA256  string
	Status      string
	ErrorKind   string
	Error       string
}

// NewRunID returns a fresh run identifier.
func NewRunID() string {
	return uuid.NewString()
}

// Store is the run ledger.
type Store struct {
	db     *sql.DB
	dbPath string
	log    *logging.Logger
}

// Open creates or opens the ledger at path.
func Open(ctx context.Context, path string, log *logging.Logger) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One writer per process is enough for a sequential pipeline.
	db.SetMaxOpenConns(1)

	s := &Store{db: db, dbPath: path, log: log}
	if err := s.initSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	log.Debug("Run history opened at %s", path)
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.dbPath
}

func (s *Store) initSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		started_at TEXT NOT NULL,
		finished_at TEXT NOT NULL,
		params_path TEXT NOT NULL,
		source TEXT NOT NULL,
		test_size REAL NOT NULL,
		seed INTEGER NOT NULL,
		total_rows INTEGER NOT NULL,
		train_rows INTEGER NOT NULL,
		test_rows INTEGER NOT NULL,
		train_sha256 TEXT NOT NULL,
		test_sha256 TEXT NOT NULL,
		status TEXT NOT NULL,
		error_kind TEXT NOT NULL,
		error TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
	`)
	return err
}

// Record stores a run. Recording the same ID twice replaces the earlier row.
func (s *Store) Record(ctx context.Context, r Run) error {
	if r.ID == "" {
		r.ID = NewRunID()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO runs (
			id, started_at, finished_at, params_path, source, test_size, seed,
			total_rows, train_rows, test_rows, train_sha256, test_sha256, status, error_kind, error
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID,
		r.StartedAt.UTC().Format(timeLayout),
		r.FinishedAt.UTC().Format(timeLayout),
		r.ParamsPath, r.Source, r.TestSize, r.Seed,
		r.Rows, r.TrainRows, r.TestRows, r.TrainSHA256, r.TestSHA256,
		r.Status, r.ErrorKind, r.Error,
	)
	if err != nil {
		s.log.Error("Failed to record run %s: %v", r.ID, err)
		return fmt.Errorf("failed to record run: %w", err)
	}
	s.log.Debug("Recorded run %s (%s)", r.ID, r.Status)
	return nil
}

// Recent returns up to limit runs, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, started_at, finished_at, params_path, source, test_size, seed,
			total_rows, train_rows, test_rows, train_sha256, test_sha256, status, error_kind, error
		FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var r Run
		var started, finished string
		if err := rows.Scan(
			&r.ID, &started, &finished, &r.ParamsPath, &r.Source, &r.TestSize, &r.Seed,
			&r.Rows, &r.TrainRows, &r.TestRows, &r.TrainSHA256, &r.TestSHA256,
			&r.Status, &r.ErrorKind, &r.Error,
		); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		if r.StartedAt, err = time.Parse(timeLayout, started); err != nil {
			return nil, fmt.Errorf("run %s: bad started_at: %w", r.ID, err)
		}
		if r.FinishedAt, err = time.Parse(timeLayout, finished); err != nil {
			return nil, fmt.Errorf("run %s: bad finished_at: %w", r.ID, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
