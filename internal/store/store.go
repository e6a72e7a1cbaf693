// SPDX-License-Identifier: MIT

// Package store persists grab run summaries in SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // pure Go driver
)

// Run status values.
const (
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// DefaultBusyTimeout applies to every pooled connection.
const DefaultBusyTimeout = 5 * time.Second

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Run is one persisted grab summary.
type Run struct {
	ID         string    `json:"id"`
	Started    time.Time `json:"started"`
	Finished   time.Time `json:"finished"`
	Status     string    `json:"status"`
	Region     string    `json:"region"`
	Channels   int       `json:"channels"`
	Listings   int       `json:"listings"`
	Programmes int       `json:"programmes"`
	Enriched   int       `json:"enriched"`
	Failed     int       `json:"failed"`
	Aborted    bool      `json:"aborted"`
	Error      string    `json:"error,omitempty"`
}

// Duration reports how long the run took.
func (r Run) Duration() time.Duration {
	if r.Finished.Before(r.Started) {
		return 0
	}
	return r.Finished.Sub(r.Started)
}

// Store records runs in a single SQLite file.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the history database at path and applies the schema.
func Open(path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(%d)&_pragma=synchronous(NORMAL)",
		path, DefaultBusyTimeout.Milliseconds())

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: migrate: %w", err)
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		started_at TEXT NOT NULL,
		finished_at TEXT NOT NULL,
		status TEXT NOT NULL CHECK(status IN ('succeeded', 'failed')),
		region TEXT NOT NULL DEFAULT '',
		channels INTEGER NOT NULL DEFAULT 0,
		listings INTEGER NOT NULL DEFAULT 0,
		programmes INTEGER NOT NULL DEFAULT 0,
		enriched INTEGER NOT NULL DEFAULT 0,
		failed INTEGER NOT NULL DEFAULT 0,
		aborted INTEGER NOT NULL DEFAULT 0,
		error TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// NewRunID returns a fresh run identifier.
func NewRunID() string {
	return uuid.NewString()
}

// Record inserts r, assigning an ID when it has none. The stored run is returned.
func (s *Store) Record(ctx context.Context, r Run) (Run, error) {
	if r.ID == "" {
		r.ID = NewRunID()
	}
	if r.Status != StatusSucceeded && r.Status != StatusFailed {
		return r, fmt.Errorf("store: invalid status %q", r.Status)
	}

	query := `
	INSERT INTO runs (id, started_at, finished_at, status, region, channels, listings, programmes, enriched, failed, aborted, error)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		r.ID,
		r.Started.UTC().Format(timeLayout),
		r.Finished.UTC().Format(timeLayout),
		r.Status,
		r.Region,
		r.Channels,
		r.Listings,
		r.Programmes,
		r.Enriched,
		r.Failed,
		boolToInt(r.Aborted),
		r.Error,
	)
	if err != nil {
		return r, fmt.Errorf("store: insert run: %w", err)
	}
	return r, nil
}

// Recent returns up to limit runs, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `
	SELECT id, started_at, finished_at, status, region, channels, listings, programmes, enriched, failed, aborted, error
	FROM runs
	ORDER BY started_at DESC
	LIMIT ?
	`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("store: query runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	runs := make([]Run, 0, limit)
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// ErrNotFound is returned by Get for an unknown id.
var ErrNotFound = errors.New("store: run not found")

// Get returns a single run by id.
func (s *Store) Get(ctx context.Context, id string) (Run, error) {
	query := `
	SELECT id, started_at, finished_at, status, region, channels, listings, programmes, enriched, failed, aborted, error
	FROM runs WHERE id = ?
	`
	r, err := scanRun(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, ErrNotFound
	}
	return r, err
}

// Prune keeps the newest keep runs and deletes the rest.
func (s *Store) Prune(ctx context.Context, keep int) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
	DELETE FROM runs WHERE id NOT IN (
		SELECT id FROM runs ORDER BY started_at DESC LIMIT ?
	)`, keep)
	if err != nil {
		return 0, fmt.Errorf("store: prune: %w", err)
	}
	return res.RowsAffected()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (Run, error) {
	var (
		r                 Run
		started, finished string
		aborted           int
	)
	if err := sc.Scan(&r.ID, &started, &finished, &r.Status, &r.Region,
		&r.Channels, &r.Listings, &r.Programmes, &r.Enriched, &r.Failed, &aborted, &r.Error); err != nil {
		return Run{}, err
	}
	var err error
	if r.Started, err = time.Parse(timeLayout, started); err != nil {
		return Run{}, fmt.Errorf("store: parse started_at: %w", err)
	}
	if r.Finished, err = time.Parse(timeLayout, finished); err != nil {
		return Run{}, fmt.Errorf("store: parse finished_at: %w", err)
	}
	r.Aborted = aborted != 0
	return r, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
