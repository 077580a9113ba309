// Package audit mirrors job run metadata into Postgres for later inspection.
// The mirror is write-only; the job registry never reads it back.
package audit

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	"runner/internal/domain"
	"runner/internal/infra"
)

// SQLExecutor is the subset of *pgxpool.Pool the recorder needs.
type SQLExecutor interface {
	Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error)
}

// PGRecorder upserts run.json payloads keyed by job id.
type PGRecorder struct {
	sql    SQLExecutor
	table  string
	logger infra.Logger
}

// NewPGRecorder builds a recorder writing into table.
func NewPGRecorder(sql SQLExecutor, table string, logger infra.Logger) (*PGRecorder, error) {
	if sql == nil {
		return nil, errors.New("audit: sql executor is required")
	}
	table = strings.TrimSpace(table)
	if table == "" {
		return nil, errors.New("audit: table name is required")
	}
	return &PGRecorder{sql: sql, table: pq.QuoteIdentifier(table), logger: logger}, nil
}

// EnsureSchema creates the audit table when it does not exist.
func (r *PGRecorder) EnsureSchema(ctx context.Context) error {
	_, err := r.sql.Exec(ctx, fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	job_id       TEXT PRIMARY KEY,
	project_path TEXT NOT NULL,
	state        TEXT NOT NULL,
	plan_id      TEXT NOT NULL DEFAULT '',
	payload      JSONB NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL,
	updated_at   TIMESTAMPTZ NOT NULL
)`, r.table))
	if err != nil {
		return fmt.Errorf("audit: ensure schema: %w", err)
	}
	return nil
}

// RecordRun upserts the latest metadata for job.
func (r *PGRecorder) RecordRun(ctx context.Context, job *domain.Job, payload []byte) error {
	if job == nil {
		return errors.New("audit: job is required")
	}
	_, err := r.sql.Exec(ctx, fmt.Sprintf(`
INSERT INTO %s (job_id, project_path, state, plan_id, payload, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (job_id) DO UPDATE
SET state = EXCLUDED.state,
    plan_id = EXCLUDED.plan_id,
    payload = EXCLUDED.payload,
    updated_at = EXCLUDED.updated_at`, r.table),
		job.ID, job.ProjectPath, string(job.State), job.PlanID, payload, job.CreatedAt, job.UpdatedAt)
	if err != nil {
		return fmt.Errorf("audit: record run %s: %w", job.ID, err)
	}
	r.logger.Debug().Str("job_id", job.ID).Str("state", string(job.State)).Msg("audit: run recorded")
	return nil
}
