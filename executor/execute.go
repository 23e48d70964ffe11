package executor

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/nodeforge/nodeforge/bus"
	"github.com/nodeforge/nodeforge/observability"
	"github.com/nodeforge/nodeforge/wfnode"
)

// ExecuteOption configures an Executor.
type ExecuteOption func(*Executor)

// WithEmitter attaches an observability.Emitter. Defaults to a NullEmitter.
func WithEmitter(e observability.Emitter) ExecuteOption {
	return func(ex *Executor) { ex.emitter = e }
}

// WithMetrics attaches a Prometheus metrics collector. Metrics are skipped
// entirely when none is configured.
func WithMetrics(m *observability.Metrics) ExecuteOption {
	return func(ex *Executor) { ex.metrics = m }
}

// WithTracer attaches an OpenTelemetry tracer used to span each node
// execution. Defaults to a no-op tracer.
func WithTracer(t trace.Tracer) ExecuteOption {
	return func(ex *Executor) { ex.tracer = t }
}

// Executor runs nodes through their registered interceptor chain, publishing
// lifecycle events to the bus and recording observability data.
type Executor struct {
	registry *Registry
	bus      *bus.EventBus
	emitter  observability.Emitter
	metrics  *observability.Metrics
	tracer   trace.Tracer
}

// New returns an Executor backed by registry, publishing lifecycle events
// onto b.
func New(registry *Registry, b *bus.EventBus, opts ...ExecuteOption) *Executor {
	ex := &Executor{
		registry: registry,
		bus:      b,
		emitter:  observability.NewNullEmitter(),
		tracer:   trace.NewNoopTracerProvider().Tracer("nodeforge/executor"),
	}
	for _, o := range opts {
		o(ex)
	}
	return ex
}

// Execute runs n's registered executor function through its interceptor
// chain: input transform, input validate, execute, output validate, output
// transform. It publishes node:execution:started on entry and
// node:execution:completed or node:execution:failed on exit. A node whose
// Type has no registration fails before any of that: only
// node:execution:failed is published for it.
func (ex *Executor) Execute(ctx context.Context, workflowID string, n *wfnode.Node, inputs map[string]any) (map[string]any, error) {
	reg, ok := ex.registry.lookup(n.Type)
	if !ok {
		err := &ErrUnknownNodeType{Type: n.Type}
		ex.fail(ctx, workflowID, n, "lookup", err)
		return nil, err
	}

	ctx, span := ex.tracer.Start(ctx, "node.execute")
	defer span.End()

	start := time.Now()
	if ex.metrics != nil {
		ex.metrics.NodeStarted(workflowID)
	}
	ex.bus.Publish(ctx, bus.EventNodeExecutionStarted, map[string]any{
		"workflowId": workflowID,
		"nodeId":     n.ID,
		"nodeType":   n.Type,
	})

	outputs, err := ex.run(ctx, reg, n, inputs)

	status := "success"
	if err != nil {
		status = "error"
	}
	if ex.metrics != nil {
		ex.metrics.NodeFinished(workflowID, n.Type, status, time.Since(start))
	}

	if err != nil {
		ex.fail(ctx, workflowID, n, phaseOf(err), err)
		return nil, err
	}

	ex.emitter.Emit(observability.Event{
		WorkflowID: workflowID,
		NodeID:     n.ID,
		Msg:        bus.EventNodeExecutionCompleted,
		Meta:       map[string]any{"nodeType": n.Type, "latencyMs": time.Since(start).Milliseconds()},
	})
	ex.bus.Publish(ctx, bus.EventNodeExecutionCompleted, map[string]any{
		"workflowId": workflowID,
		"nodeId":     n.ID,
		"nodeType":   n.Type,
		"outputs":    outputs,
	})
	return outputs, nil
}

func (ex *Executor) run(ctx context.Context, reg *registration, n *wfnode.Node, inputs map[string]any) (map[string]any, error) {
	for _, t := range reg.inputTransforms {
		transformed, err := t(ctx, n, inputs)
		if err != nil {
			return nil, &NodeError{NodeID: n.ID, Type: n.Type, Phase: "input_transform", Cause: err}
		}
		inputs = transformed
	}

	for _, v := range reg.inputValidators {
		if err := v(ctx, n, inputs); err != nil {
			return nil, &NodeError{NodeID: n.ID, Type: n.Type, Phase: "input_validate", Cause: err}
		}
	}

	outputs, err := reg.fn(ctx, n, inputs)
	if err != nil {
		return nil, &NodeError{NodeID: n.ID, Type: n.Type, Phase: "execute", Cause: err}
	}

	for _, v := range reg.outputValidators {
		if err := v(ctx, n, outputs); err != nil {
			return nil, &NodeError{NodeID: n.ID, Type: n.Type, Phase: "output_validate", Cause: err}
		}
	}

	for _, t := range reg.outputTransforms {
		transformed, err := t(ctx, n, outputs)
		if err != nil {
			return nil, &NodeError{NodeID: n.ID, Type: n.Type, Phase: "output_transform", Cause: err}
		}
		outputs = transformed
	}

	return outputs, nil
}

func (ex *Executor) fail(ctx context.Context, workflowID string, n *wfnode.Node, phase string, err error) {
	if ex.metrics != nil {
		ex.metrics.NodeFailure(workflowID, n.Type, phase)
	}
	ex.emitter.Emit(observability.Event{
		WorkflowID: workflowID,
		NodeID:     n.ID,
		Msg:        bus.EventNodeExecutionFailed,
		Meta:       map[string]any{"nodeType": n.Type, "phase": phase, "error": err.Error()},
	})
	ex.bus.Publish(ctx, bus.EventNodeExecutionFailed, map[string]any{
		"workflowId": workflowID,
		"nodeId":     n.ID,
		"nodeType":   n.Type,
		"phase":      phase,
		"error":      err.Error(),
	})
}

func phaseOf(err error) string {
	if ne, ok := err.(*NodeError); ok {
		return ne.Phase
	}
	return "execute"
}
