package agent

import "fmt"

// PipelineExecutionError reports the stage a run failed in. Err is the
// backend error, context error or *plan.SchemaValidationError behind it.
type PipelineExecutionError struct {
	Stage string
	Index int
	Err   error
}

func (e *PipelineExecutionError) Error() string {
	return fmt.Sprintf("pipeline failed at stage %d (%s): %v", e.Index+1, e.Stage, e.Err)
}

func (e *PipelineExecutionError) Unwrap() error {
	return e.Err
}
