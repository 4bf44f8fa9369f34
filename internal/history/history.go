// Package history keeps a local record of executed query runs so recent
// activity can be inspected through the MCP resource surface. Storage is
// a single sqlite file; history is advisory and callers treat write
// failures as non-fatal.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Run is one executed query, live or mock-backed.
type Run struct {
	ID         string    `json:"id"`
	Tool       string    `json:"tool"`
	Query      string    `json:"query"`
	WindowDays int       `json:"window_days"`
	RowCount   int       `json:"row_count"`
	DurationMS int64     `json:"duration_ms"`
	OK         bool      `json:"ok"`
	Error      string    `json:"error,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	tool        TEXT NOT NULL,
	query       TEXT NOT NULL,
	window_days INTEGER NOT NULL,
	row_count   INTEGER NOT NULL,
	duration_ms INTEGER NOT NULL,
	ok          INTEGER NOT NULL,
	error       TEXT NOT NULL DEFAULT '',
	created_at  TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs (created_at);
`

// Store persists runs in a local sqlite database.
type Store struct {
	db *sql.DB
}

// Open opens the store at path, creating the schema if needed.
// ":memory:" is a valid path for tests.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("history: open %s: %w", path, err)
	}
	// A single writer keeps sqlite simple; contention is not a concern
	// at tool-call rates.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("history: create schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Record inserts a run. A missing ID or CreatedAt is assigned here.
func (s *Store) Record(ctx context.Context, run Run) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, tool, query, window_days, row_count, duration_ms, ok, error, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Tool, run.Query, run.WindowDays, run.RowCount, run.DurationMS,
		boolInt(run.OK), run.Error, run.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("history: record run: %w", err)
	}
	return nil
}

// Recent returns the most recent runs, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, tool, query, window_days, row_count, duration_ms, ok, error, created_at
		 FROM runs ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("history: query recent: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		var ok int
		var createdAt string
		if err := rows.Scan(&run.ID, &run.Tool, &run.Query, &run.WindowDays,
			&run.RowCount, &run.DurationMS, &ok, &run.Error, &createdAt); err != nil {
			return nil, fmt.Errorf("history: scan run: %w", err)
		}
		run.OK = ok != 0
		if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
			run.CreatedAt = t
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history: iterate runs: %w", err)
	}
	return runs, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
