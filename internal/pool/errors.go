package pool

import (
	"fmt"
	"time"

	"gridsight/internal/faults"
)

// TimeoutError reports a task whose worker failed to respond within the
// task's budget. The worker involved has been discarded.
type TimeoutError struct {
	TaskID  string
	Kind    string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("task %s (%s) timed out after %s", e.TaskID, e.Kind, e.Timeout)
}

func (e *TimeoutError) Unwrap() error { return faults.ErrTimeout }

// ExecutionError reports a task whose func returned an error or panicked.
type ExecutionError struct {
	TaskID string
	Kind   string
	Err    error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("task %s (%s) failed: %v", e.TaskID, e.Kind, e.Err)
}

func (e *ExecutionError) Unwrap() []error {
	return []error{faults.ErrExecution, e.Err}
}
