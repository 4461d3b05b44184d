// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package history records guide refresh runs in SQLite.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ManuGH/tvsched/internal/persistence/sqlite"
)

const schemaVersion = 1

// Outcomes of a run.
const (
	OutcomeSuccess = "success"
	OutcomeFailed  = "failed"
)

// Run is one refresh attempt.
type Run struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	Outcome    string
	// Stage names the failing pipeline stage; empty on success.
	Stage    string
	Error    string
	Strategy string
	Points   int
	// Channels counts programmes per channel id.
	Channels map[string]int
}

// Programmes is the total over all channels.
func (r Run) Programmes() int {
	n := 0
	for _, c := range r.Channels {
		n += c
	}
	return n
}

// Duration is FinishedAt - StartedAt.
func (r Run) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Store persists runs. Only the newest keep runs are retained.
type Store struct {
	db   *sql.DB
	keep int
}

// Open opens (creating if needed) the history database at path.
func Open(ctx context.Context, path string, keep int) (*Store, error) {
	db, err := sqlite.Open(ctx, path, sqlite.DefaultConfig())
	if err != nil {
		return nil, err
	}
	s := &Store{db: db, keep: keep}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("history: migrate: %w", err)
	}
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	current, err := sqlite.UserVersion(ctx, s.db)
	if err != nil {
		return err
	}
	if current >= schemaVersion {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		started_at_ms INTEGER NOT NULL,
		finished_at_ms INTEGER NOT NULL,
		outcome TEXT NOT NULL,
		stage TEXT NOT NULL DEFAULT '',
		error TEXT NOT NULL DEFAULT '',
		strategy TEXT NOT NULL DEFAULT '',
		points INTEGER NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at_ms);

	CREATE TABLE IF NOT EXISTS run_channels (
		run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		channel TEXT NOT NULL,
		programmes INTEGER NOT NULL,
		PRIMARY KEY (run_id, channel)
	);
	`
	if _, err := tx.ExecContext(ctx, schema); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", schemaVersion)); err != nil {
		return err
	}
	return tx.Commit()
}

// Record stores run and prunes runs beyond the retention limit.
func (s *Store) Record(ctx context.Context, run Run) error {
	if run.ID == "" {
		return errors.New("history: run id is empty")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("history: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
	INSERT INTO runs (id, started_at_ms, finished_at_ms, outcome, stage, error, strategy, points)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.StartedAt.UnixMilli(), run.FinishedAt.UnixMilli(),
		run.Outcome, run.Stage, run.Error, run.Strategy, run.Points)
	if err != nil {
		return fmt.Errorf("history: insert run %s: %w", run.ID, err)
	}

	for ch, n := range run.Channels {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO run_channels (run_id, channel, programmes) VALUES (?, ?, ?)`,
			run.ID, ch, n); err != nil {
			return fmt.Errorf("history: insert channel %s: %w", ch, err)
		}
	}

	if s.keep > 0 {
		if _, err := tx.ExecContext(ctx, `
		DELETE FROM runs WHERE id NOT IN (
			SELECT id FROM runs ORDER BY started_at_ms DESC, id DESC LIMIT ?
		)`, s.keep); err != nil {
			return fmt.Errorf("history: prune: %w", err)
		}
	}
	return tx.Commit()
}

// Recent returns up to limit runs, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
	SELECT id, started_at_ms, finished_at_ms, outcome, stage, error, strategy, points
	FROM runs ORDER BY started_at_ms DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("history: query runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []Run
	index := make(map[string]int)
	for rows.Next() {
		var r Run
		var started, finished int64
		if err := rows.Scan(&r.ID, &started, &finished, &r.Outcome, &r.Stage, &r.Error, &r.Strategy, &r.Points); err != nil {
			return nil, fmt.Errorf("history: scan run: %w", err)
		}
		r.StartedAt = time.UnixMilli(started).UTC()
		r.FinishedAt = time.UnixMilli(finished).UTC()
		r.Channels = map[string]int{}
		index[r.ID] = len(runs)
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history: iterate runs: %w", err)
	}
	if len(runs) == 0 {
		return nil, nil
	}

	if err := s.loadChannels(ctx, runs, index); err != nil {
		return nil, err
	}
	return runs, nil
}

func (s *Store) loadChannels(ctx context.Context, runs []Run, index map[string]int) error {
	oldest := runs[len(runs)-1].StartedAt.UnixMilli()
	rows, err := s.db.QueryContext(ctx, `
	SELECT c.run_id, c.channel, c.programmes
	FROM run_channels c JOIN runs r ON r.id = c.run_id
	WHERE r.started_at_ms >= ?`, oldest)
	if err != nil {
		return fmt.Errorf("history: query channels: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var id, ch string
		var n int
		if err := rows.Scan(&id, &ch, &n); err != nil {
			return fmt.Errorf("history: scan channel: %w", err)
		}
		if i, ok := index[id]; ok {
			runs[i].Channels[ch] = n
		}
	}
	return rows.Err()
}

// Last returns the newest run with the given outcome, or any outcome when
// outcome is empty.
func (s *Store) Last(ctx context.Context, outcome string) (Run, bool, error) {
	query := `SELECT id, started_at_ms, finished_at_ms, outcome, stage, error, strategy, points
	FROM runs WHERE (? = '' OR outcome = ?) ORDER BY started_at_ms DESC, id DESC LIMIT 1`

	var r Run
	var started, finished int64
	err := s.db.QueryRowContext(ctx, query, outcome, outcome).
		Scan(&r.ID, &started, &finished, &r.Outcome, &r.Stage, &r.Error, &r.Strategy, &r.Points)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, false, nil
	}
	if err != nil {
		return Run{}, false, fmt.Errorf("history: last run: %w", err)
	}
	r.StartedAt = time.UnixMilli(started).UTC()
	r.FinishedAt = time.UnixMilli(finished).UTC()
	r.Channels = map[string]int{}

	runs := []Run{r}
	if err := s.loadChannels(ctx, runs, map[string]int{r.ID: 0}); err != nil {
		return Run{}, false, err
	}
	return runs[0], true, nil
}

// Ping checks that the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}
