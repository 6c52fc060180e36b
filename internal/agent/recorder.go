package agent

import (
	"context"
	"time"
)

// Run statuses reported to a RunRecorder.
const (
	RunStatusRunning   = "running"
	RunStatusSucceeded = "succeeded"
	RunStatusFailed    = "failed"
)

// StageRecord is the metadata kept for one finished stage.
type StageRecord struct {
	Name             string
	Index            int
	Elapsed          time.Duration
	PromptTokens     int
	CompletionTokens int
}

// RunOutcome is the metadata kept for a finished run. It carries counts,
// never plan content.
type RunOutcome struct {
	Status      string
	FailedStage string
	Error       string
	Tasks       int
	Milestones  int
	Elapsed     time.Duration
}

// RunRecorder keeps a ledger of runs. Recording failures are logged and
// never fail a run.
type RunRecorder interface {
	StartRun(ctx context.Context, runID string, stages []string) error
	RecordStage(ctx context.Context, runID string, rec StageRecord) error
	FinishRun(ctx context.Context, runID string, outcome RunOutcome) error
}
