package audit

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"

	"runner/internal/domain"
)

type stubExec struct {
	queries []string
	args    [][]any
	err     error
}

func (s *stubExec) Exec(_ context.Context, query string, args ...any) (pgconn.CommandTag, error) {
	s.queries = append(s.queries, query)
	s.args = append(s.args, args)
	return pgconn.CommandTag{}, s.err
}

func TestRecordRunUpsertsIntoQuotedTable(t *testing.T) {
	exec := &stubExec{}
	rec, err := NewPGRecorder(exec, `job"runs`, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewPGRecorder: %v", err)
	}
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	job := &domain.Job{ID: "abc", ProjectPath: "/p", State: domain.JobStateComplete, PlanID: "plan", CreatedAt: now, UpdatedAt: now}

	if err := rec.RecordRun(context.Background(), job, []byte(`{"job_id":"abc"}`)); err != nil {
		t.Fatalf("RecordRun: %v", err)
	}
	if len(exec.queries) != 1 {
		t.Fatalf("expected 1 query, got %d", len(exec.queries))
	}
	if !strings.Contains(exec.queries[0], `INSERT INTO "job""runs"`) {
		t.Fatalf("table not quoted: %s", exec.queries[0])
	}
	args := exec.args[0]
	if args[0] != "abc" || args[2] != "complete" || args[3] != "plan" {
		t.Fatalf("unexpected args: %#v", args)
	}
}

func TestRecordRunWrapsExecError(t *testing.T) {
	exec := &stubExec{err: errors.New("connection refused")}
	rec, _ := NewPGRecorder(exec, "job_runs", zerolog.Nop())
	err := rec.RecordRun(context.Background(), &domain.Job{ID: "x"}, []byte("{}"))
	if err == nil || !strings.Contains(err.Error(), "connection refused") {
		t.Fatalf("RecordRun error = %v", err)
	}
}

func TestNewPGRecorderValidates(t *testing.T) {
	if _, err := NewPGRecorder(nil, "t", zerolog.Nop()); err == nil {
		t.Fatalf("expected error for nil executor")
	}
	if _, err := NewPGRecorder(&stubExec{}, " ", zerolog.Nop()); err == nil {
		t.Fatalf("expected error for empty table")
	}
}

func TestEnsureSchemaCreatesTable(t *testing.T) {
	exec := &stubExec{}
	rec, _ := NewPGRecorder(exec, "job_runs", zerolog.Nop())
	if err := rec.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}
	if !strings.Contains(exec.queries[0], `CREATE TABLE IF NOT EXISTS "job_runs"`) {
		t.Fatalf("unexpected DDL: %s", exec.queries[0])
	}
}
