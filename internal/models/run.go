// Package models holds the Postgres-backed records of the snapshot archive.
package models

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Run is the archived summary of one pipeline run.
type Run struct {
	ID            uuid.UUID `json:"id"`
	StartedAt     time.Time `json:"started_at"`
	DurationMS    int64     `json:"duration_ms"`
	Data          string    `json:"data"`
	Translation   string    `json:"translation"`
	RawItems      int       `json:"raw_items"`
	Items         int       `json:"items"`
	Clusters      int       `json:"clusters"`
	Stories       int       `json:"stories"`
	Translated    int       `json:"translated"`
	FailedSources []string  `json:"failed_sources"`
	SnapshotKey   string    `json:"snapshot_key,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// RunFilter narrows a run listing. Zero values mean "any".
type RunFilter struct {
	Data  string
	Since time.Time
	Limit int
}

// RunStore provides data access methods for archived runs.
type RunStore struct {
	pool *pgxpool.Pool
}

// NewRunStore creates a new RunStore.
func NewRunStore(pool *pgxpool.Pool) *RunStore {
	return &RunStore{pool: pool}
}

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

const runColumns = `id, started_at, duration_ms, data, translation, raw_items, items,
	clusters, stories, translated, failed_sources, snapshot_key, created_at`

// Create inserts a run summary.
func (s *RunStore) Create(ctx context.Context, run *Run) error {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}

	failedJSON, err := json.Marshal(nonNil(run.FailedSources))
	if err != nil {
		return fmt.Errorf("run create: marshal failed sources: %w", err)
	}

	err = s.pool.QueryRow(ctx, `
		INSERT INTO pipeline_runs (id, started_at, duration_ms, data, translation,
			raw_items, items, clusters, stories, translated, failed_sources, snapshot_key)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NULLIF($12, ''))
		RETURNING created_at
	`, run.ID, run.StartedAt, run.DurationMS, run.Data, run.Translation,
		run.RawItems, run.Items, run.Clusters, run.Stories, run.Translated,
		failedJSON, run.SnapshotKey,
	).Scan(&run.CreatedAt)
	if err != nil {
		return fmt.Errorf("run create: %w", err)
	}
	return nil
}

// GetByID returns one run.
func (s *RunStore) GetByID(ctx context.Context, id uuid.UUID) (*Run, error) {
	query, args, err := psql.Select(runColumns).From("pipeline_runs").
		Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("run get: build query: %w", err)
	}

	run, err := scanRun(s.pool.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, fmt.Errorf("run get: %w", err)
	}
	return run, nil
}

// List returns runs matching f, newest first.
func (s *RunStore) List(ctx context.Context, f RunFilter) ([]Run, error) {
	query, args, err := listRunsQuery(f).ToSql()
	if err != nil {
		return nil, fmt.Errorf("run list: build query: %w", err)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("run list: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("run scan: %w", err)
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

func listRunsQuery(f RunFilter) sq.SelectBuilder {
	limit := f.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	q := psql.Select(runColumns).From("pipeline_runs")
	if f.Data != "" {
		q = q.Where(sq.Eq{"data": f.Data})
	}
	if !f.Since.IsZero() {
		q = q.Where(sq.GtOrEq{"started_at": f.Since})
	}
	return q.OrderBy("started_at DESC").Limit(uint64(limit))
}

// scannable is an interface for pgx Row and Rows.
type scannable interface {
	Scan(dest ...any) error
}

func scanRun(row scannable) (*Run, error) {
	var (
		r           Run
		failedRaw   []byte
		snapshotKey *string
	)
	if err := row.Scan(
		&r.ID, &r.StartedAt, &r.DurationMS, &r.Data, &r.Translation, &r.RawItems,
		&r.Items, &r.Clusters, &r.Stories, &r.Translated, &failedRaw, &snapshotKey,
		&r.CreatedAt,
	); err != nil {
		return nil, err
	}
	if snapshotKey != nil {
		r.SnapshotKey = *snapshotKey
	}
	if len(failedRaw) > 0 {
		_ = json.Unmarshal(failedRaw, &r.FailedSources)
	}
	return &r, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
