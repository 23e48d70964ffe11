package workflow

import (
	"time"

	"github.com/nodeforge/nodeforge/runstate"
)

// Mode selects how independent nodes within a run are scheduled.
type Mode string

const (
	// ModeSequential executes nodes one at a time in topological order.
	ModeSequential Mode = "sequential"

	// ModeParallel executes nodes level by level: all nodes whose inputs
	// are already satisfied run concurrently, partitioned by longest-path
	// depth from the nodes with no incoming connections.
	ModeParallel Mode = "parallel"
)

// RunOptions configures a single ExecuteWorkflow call.
type RunOptions struct {
	Mode Mode

	// InitialInputs seeds entry-node inputs: nodeID -> portID -> value.
	InitialInputs map[string]map[string]any

	// Variables seeds run-scoped variables visible via runstate.Context.
	Variables map[string]any

	// Timeout bounds the entire run. Zero means no timeout.
	Timeout time.Duration
}

// Stats is the timing envelope of a settled run.
type Stats struct {
	StartTime     time.Time
	EndTime       time.Time
	ExecutionTime time.Duration

	// NodesExecuted counts nodes that ran to completion. Failed and
	// never-started nodes are not counted.
	NodesExecuted int
}

// Result is the outcome of a completed, failed, or cancelled run.
type Result struct {
	WorkflowID string
	RunID      string
	Status     runstate.Status
	Stats      Stats

	// Outputs is the settlement result: the recorded outputs of each of the
	// workflow's exit nodes, and nothing else.
	Outputs map[string]map[string]any

	// NodeOutputs is a snapshot of every node's recorded outputs at the
	// moment the run settled: complete on success, partial on failure or
	// cancellation.
	NodeOutputs map[string]map[string]any

	Err error
}
