// Package diagnostics persists a history of dashboard fetch runs.
package diagnostics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/novus-dashboard/novus/internal/bookeo"
)

// Run summarises one fetch-and-aggregate pass.
type Run struct {
	ID           uuid.UUID             `json:"id"`
	StartedAt    time.Time             `json:"startedAt"`
	Duration     time.Duration         `json:"duration"`
	From         time.Time             `json:"from"`
	To           time.Time             `json:"to"`
	Fetched      int                   `json:"fetched"`
	Bookings     int                   `json:"bookings"`
	Duplicates   int                   `json:"duplicates"`
	MissingID    int                   `json:"missingId"`
	Anomalies    int                   `json:"anomalies"`
	FailedChunks int                   `json:"failedChunks"`
	Complete     bool                  `json:"complete"`
	ExpenseError string                `json:"expenseError,omitempty"`
	Chunks       []bookeo.ChunkOutcome `json:"chunks"`
}

// Querier is the subset of pgxpool.Pool the store needs.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Store records runs in Postgres.
type Store struct {
	db     Querier
	logger *slog.Logger
}

// NewStore constructs Store.
func NewStore(db Querier, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{db: db, logger: logger}
}

const schema = `CREATE TABLE IF NOT EXISTS fetch_runs (
	id UUID PRIMARY KEY,
	started_at TIMESTAMPTZ NOT NULL,
	duration_ms BIGINT NOT NULL,
	range_from DATE NOT NULL,
	range_to DATE NOT NULL,
	fetched INT NOT NULL,
	bookings INT NOT NULL,
	duplicates INT NOT NULL,
	missing_id INT NOT NULL,
	anomalies INT NOT NULL,
	failed_chunks INT NOT NULL,
	complete BOOLEAN NOT NULL,
	expense_error TEXT NOT NULL DEFAULT '',
	chunks JSONB NOT NULL DEFAULT '[]'
);
CREATE INDEX IF NOT EXISTS fetch_runs_started_at_idx ON fetch_runs (started_at DESC)`

// EnsureSchema creates the runs table when missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if s == nil || s.db == nil {
		return errors.New("diagnostics store not initialised")
	}
	if _, err := s.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("diagnostics: ensure schema: %w", err)
	}
	return nil
}

// RecordRun inserts a run, assigning an id when absent.
func (s *Store) RecordRun(ctx context.Context, run Run) (uuid.UUID, error) {
	if s == nil || s.db == nil {
		return uuid.Nil, errors.New("diagnostics store not initialised")
	}
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}
	chunks := run.Chunks
	if chunks == nil {
		chunks = []bookeo.ChunkOutcome{}
	}
	payload, err := json.Marshal(chunks)
	if err != nil {
		return uuid.Nil, fmt.Errorf("diagnostics: encode chunks: %w", err)
	}
	_, err = s.db.Exec(ctx, `INSERT INTO fetch_runs (id, started_at, duration_ms, range_from, range_to, fetched, bookings,
duplicates, missing_id, anomalies, failed_chunks, complete, expense_error, chunks)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14::jsonb)`,
		run.ID, run.StartedAt, run.Duration.Milliseconds(), run.From, run.To, run.Fetched, run.Bookings,
		run.Duplicates, run.MissingID, run.Anomalies, run.FailedChunks, run.Complete, run.ExpenseError, string(payload))
	if err != nil {
		s.logger.Error("record fetch run", slog.Any("error", err))
		return uuid.Nil, fmt.Errorf("diagnostics: insert run: %w", err)
	}
	return run.ID, nil
}

// RecentRuns returns the newest runs first.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]Run, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("diagnostics store not initialised")
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	rows, err := s.db.Query(ctx, `SELECT id, started_at, duration_ms, range_from, range_to, fetched, bookings,
duplicates, missing_id, anomalies, failed_chunks, complete, expense_error, chunks
FROM fetch_runs ORDER BY started_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("diagnostics: query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			run        Run
			durationMS int64
			chunks     []byte
		)
		if err := rows.Scan(&run.ID, &run.StartedAt, &durationMS, &run.From, &run.To, &run.Fetched, &run.Bookings,
			&run.Duplicates, &run.MissingID, &run.Anomalies, &run.FailedChunks, &run.Complete, &run.ExpenseError, &chunks); err != nil {
			return nil, fmt.Errorf("diagnostics: scan run: %w", err)
		}
		run.Duration = time.Duration(durationMS) * time.Millisecond
		if len(chunks) > 0 {
			if err := json.Unmarshal(chunks, &run.Chunks); err != nil {
				return nil, fmt.Errorf("diagnostics: decode chunks: %w", err)
			}
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("diagnostics: iterate runs: %w", err)
	}
	return runs, nil
}
