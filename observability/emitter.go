// Package observability implements the ambient logging/tracing/metrics
// stack: a pluggable Emitter interface for structured events plus a
// Prometheus metrics collector, wired into the executor and workflow
// packages via functional options.
package observability

import "context"

// Event is a single observability event describing workflow or node
// lifecycle progress.
type Event struct {
	WorkflowID string
	NodeID     string
	Msg        string
	Meta       map[string]any
}

// Emitter receives observability events. Implementations must not block
// workflow execution and must not panic.
type Emitter interface {
	Emit(event Event)
	EmitBatch(ctx context.Context, events []Event) error
	Flush(ctx context.Context) error
}
