package workflow

import (
	"go.opentelemetry.io/otel/trace"

	"github.com/nodeforge/nodeforge/observability"
	"github.com/nodeforge/nodeforge/propagate"
	"github.com/nodeforge/nodeforge/wfnode"
)

// Option configures an Engine, following the functional options pattern
// used throughout this module.
type Option func(*Engine)

// WithEmitter attaches an observability.Emitter used for both workflow- and
// node-level events. Defaults to a NullEmitter.
func WithEmitter(e observability.Emitter) Option {
	return func(eng *Engine) { eng.emitter = e }
}

// WithMetrics attaches a Prometheus metrics collector.
func WithMetrics(m *observability.Metrics) Option {
	return func(eng *Engine) { eng.metrics = m }
}

// WithTracer attaches an OpenTelemetry tracer, propagated to the node
// executor for per-node spans.
func WithTracer(t trace.Tracer) Option {
	return func(eng *Engine) { eng.tracer = t }
}

// WithPropagator attaches a propagate.Propagator. Workflows run through
// this Engine are registered with the propagator for the run's duration and
// unregistered on settlement, so node executors (or subscribers acting on
// their behalf) can call PropagateEvent against the running workflow
// without managing registration themselves.
func WithPropagator(p *propagate.Propagator) Option {
	return func(eng *Engine) { eng.propagator = p }
}

// WithMaxConcurrent caps how many nodes within a single parallel-mode level
// execute at once. 0 (the default) means unbounded: every node in a level
// is dispatched immediately.
func WithMaxConcurrent(n int) Option {
	return func(eng *Engine) { eng.maxConcurrent = n }
}

// WithValidator overrides the structural validator ExecuteWorkflow runs
// before scheduling a workflow. Defaults to wfnode.NewValidator().
func WithValidator(v *wfnode.Validator) Option {
	return func(eng *Engine) { eng.validator = v }
}
