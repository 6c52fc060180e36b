package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/glebarez/go-sqlite"
	"github.com/rahul/crewplan/internal/agent"
)

// RunLog is a sqlite ledger of pipeline runs. It records timing, status and
// token usage only; plan content and project inputs are never written.
type RunLog struct {
	DB *sql.DB
}

// RunSummary is one row of the ledger with its finished stages.
type RunSummary struct {
	ID          string
	Status      string
	StageCount  int
	StartedAt   time.Time
	FinishedAt  *time.Time
	FailedStage string
	Error       string
	Tasks       int
	Milestones  int
	Elapsed     time.Duration
	Stages      []agent.StageRecord
}

var _ agent.RunRecorder = (*RunLog)(nil)

func NewRunLog(dbPath string) (*RunLog, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	// sqlite allows one writer; runs from several gateways share this handle.
	db.SetMaxOpenConns(1)

	queries := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			status TEXT NOT NULL,
			stage_count INTEGER NOT NULL,
			started_at INTEGER NOT NULL,
			finished_at INTEGER,
			failed_stage TEXT,
			error TEXT,
			tasks INTEGER DEFAULT 0,
			milestones INTEGER DEFAULT 0,
			elapsed_ms INTEGER DEFAULT 0
		);`,
		`CREATE TABLE IF NOT EXISTS run_stages (
			run_id TEXT NOT NULL,
			stage_index INTEGER NOT NULL,
			name TEXT NOT NULL,
			elapsed_ms INTEGER NOT NULL,
			prompt_tokens INTEGER DEFAULT 0,
			completion_tokens INTEGER DEFAULT 0,
			PRIMARY KEY (run_id, stage_index)
		);`,
	}
	for _, q := range queries {
		if _, err := db.Exec(q); err != nil {
			db.Close()
			return nil, err
		}
	}

	return &RunLog{DB: db}, nil
}

func (r *RunLog) Close() error {
	return r.DB.Close()
}

func (r *RunLog) StartRun(ctx context.Context, runID string, stages []string) error {
	query := `INSERT INTO runs (id, status, stage_count, started_at) VALUES (?, ?, ?, ?)`
	_, err := r.DB.ExecContext(ctx, query, runID, agent.RunStatusRunning, len(stages), time.Now().UnixMilli())
	return err
}

func (r *RunLog) RecordStage(ctx context.Context, runID string, rec agent.StageRecord) error {
	query := `INSERT OR REPLACE INTO run_stages (run_id, stage_index, name, elapsed_ms, prompt_tokens, completion_tokens) VALUES (?, ?, ?, ?, ?, ?)`
	_, err := r.DB.ExecContext(ctx, query, runID, rec.Index, rec.Name, rec.Elapsed.Milliseconds(), rec.PromptTokens, rec.CompletionTokens)
	return err
}

func (r *RunLog) FinishRun(ctx context.Context, runID string, outcome agent.RunOutcome) error {
	query := `UPDATE runs SET status = ?, finished_at = ?, failed_stage = ?, error = ?, tasks = ?, milestones = ?, elapsed_ms = ? WHERE id = ?`
	res, err := r.DB.ExecContext(ctx, query,
		outcome.Status, time.Now().UnixMilli(), outcome.FailedStage, outcome.Error,
		outcome.Tasks, outcome.Milestones, outcome.Elapsed.Milliseconds(), runID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("run %s was never started", runID)
	}
	return nil
}

// Recent returns the latest runs, newest first.
func (r *RunLog) Recent(ctx context.Context, limit int) ([]RunSummary, error) {
	query := `
		SELECT id, status, stage_count, started_at, finished_at, COALESCE(failed_stage, ''), COALESCE(error, ''), tasks, milestones, elapsed_ms
		FROM runs
		ORDER BY started_at DESC, rowid DESC
		LIMIT ?`
	rows, err := r.DB.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []RunSummary
	for rows.Next() {
		var s RunSummary
		var started, elapsedMS int64
		var finished sql.NullInt64
		if err := rows.Scan(&s.ID, &s.Status, &s.StageCount, &started, &finished, &s.FailedStage, &s.Error, &s.Tasks, &s.Milestones, &elapsedMS); err != nil {
			return nil, err
		}
		s.StartedAt = time.UnixMilli(started)
		if finished.Valid {
			t := time.UnixMilli(finished.Int64)
			s.FinishedAt = &t
		}
		s.Elapsed = time.Duration(elapsedMS) * time.Millisecond
		runs = append(runs, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range runs {
		stages, err := r.stages(ctx, runs[i].ID)
		if err != nil {
			return nil, err
		}
		runs[i].Stages = stages
	}
	return runs, nil
}

func (r *RunLog) stages(ctx context.Context, runID string) ([]agent.StageRecord, error) {
	query := `SELECT stage_index, name, elapsed_ms, prompt_tokens, completion_tokens FROM run_stages WHERE run_id = ? ORDER BY stage_index`
	rows, err := r.DB.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []agent.StageRecord
	for rows.Next() {
		var rec agent.StageRecord
		var elapsedMS int64
		if err := rows.Scan(&rec.Index, &rec.Name, &elapsedMS, &rec.PromptTokens, &rec.CompletionTokens); err != nil {
			return nil, err
		}
		rec.Elapsed = time.Duration(elapsedMS) * time.Millisecond
		out = append(out, rec)
	}
	return out, rows.Err()
}
