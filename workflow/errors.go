package workflow

import (
	"fmt"
	"strings"
)

// CycleError is returned when a workflow's connection graph is not a DAG.
// Event propagation tolerates cycles (propagate.Propagator guards with a
// visited set); scheduled execution does not, since node inputs are derived
// from upstream outputs and a cycle has no well-defined execution order.
type CycleError struct {
	WorkflowID string
	Cycle      []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("workflow %s: cycle detected among nodes [%s]", e.WorkflowID, strings.Join(e.Cycle, " -> "))
}

// TimeoutError is returned when a run does not settle before its configured
// deadline.
type TimeoutError struct {
	WorkflowID string
	RunID      string
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("workflow %s run %s: exceeded timeout", e.WorkflowID, e.RunID)
}

// CancelledError is returned when a run is stopped via Handle.Stop before
// settling on its own.
type CancelledError struct {
	WorkflowID string
	RunID      string
}

func (e *CancelledError) Error() string {
	return fmt.Sprintf("workflow %s run %s: cancelled", e.WorkflowID, e.RunID)
}

// ValidationError wraps a structural problem with the workflow definition
// found before execution begins.
type ValidationError struct {
	WorkflowID string
	Reason     string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("workflow %s: %s", e.WorkflowID, e.Reason)
}

// ErrRunNotFound is returned by Engine.Handle for an unknown or already
// settled workflow id.
type ErrRunNotFound struct {
	WorkflowID string
}

func (e *ErrRunNotFound) Error() string {
	return fmt.Sprintf("workflow: no active run for workflow %q", e.WorkflowID)
}
