package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Run summarises one ingestion pass over a single module.
type Run struct {
	ID               string
	Module           ModuleType
	FinalState       string
	FilesSeen        int
	FilesFailed      int
	TopicsCreated    int
	TopicsSkipped    int
	QuestionsCreated int
	QuestionsSkipped int
	QuestionsFailed  int
	StartedAt        time.Time
	FinishedAt       time.Time
}

// RunRecorder persists ingestion run summaries.
type RunRecorder interface {
	RecordRun(ctx context.Context, run Run) error
}

// NopRunRecorder ignores all runs.
type NopRunRecorder struct{}

func (NopRunRecorder) RecordRun(context.Context, Run) error {
	return nil
}

// MemoryRunRecorder keeps runs in memory for tests.
type MemoryRunRecorder struct {
	mu   sync.Mutex
	runs []Run
}

func NewMemoryRunRecorder() *MemoryRunRecorder {
	return &MemoryRunRecorder{
		runs: []Run{},
	}
}

func (r *MemoryRunRecorder) RecordRun(_ context.Context, run Run) error {
	if run.ID == "" {
		return fmt.Errorf("run id is required")
	}
	if run.FinishedAt.IsZero() {
		run.FinishedAt = time.Now()
	}

	r.mu.Lock()
	r.runs = append(r.runs, run)
	r.mu.Unlock()

	return nil
}

func (r *MemoryRunRecorder) Runs() []Run {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Run{}, r.runs...)
}

// PostgresRunRecorder inserts runs into the ingestion_runs table.
type PostgresRunRecorder struct {
	pool *pgxpool.Pool
}

func NewPostgresRunRecorder(pool *pgxpool.Pool) *PostgresRunRecorder {
	return &PostgresRunRecorder{pool: pool}
}

func (r *PostgresRunRecorder) RecordRun(ctx context.Context, run Run) error {
	if r == nil || r.pool == nil {
		return fmt.Errorf("run recorder pool is nil")
	}
	if run.ID == "" {
		return fmt.Errorf("run id is required")
	}

	finishedAt := run.FinishedAt
	if finishedAt.IsZero() {
		finishedAt = time.Now()
	}

	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	_, err := r.pool.Exec(ctx,
		`INSERT INTO ingestion_runs (id, module, final_state, files_seen, files_failed,
		   topics_created, topics_skipped, questions_created, questions_skipped, questions_failed,
		   started_at, finished_at)
		 VALUES ($1::uuid, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		run.ID,
		string(run.Module),
		run.FinalState,
		run.FilesSeen,
		run.FilesFailed,
		run.TopicsCreated,
		run.TopicsSkipped,
		run.QuestionsCreated,
		run.QuestionsSkipped,
		run.QuestionsFailed,
		run.StartedAt,
		finishedAt,
	)
	if err != nil {
		return fmt.Errorf("insert ingestion run: %w", err)
	}

	slog.Debug("ingestion run recorded",
		"run_id", run.ID,
		"module", run.Module,
		"state", run.FinalState,
	)
	return nil
}
