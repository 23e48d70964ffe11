// Package workflow implements the workflow engine: topological scheduling
// of a node graph in sequential or level-partitioned parallel mode, with
// pause/resume/stop controls and run-level timeouts. Data flows along typed
// connections: each node's inputs are gathered from upstream outputs
// recorded in the run's execution context.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/nodeforge/nodeforge/bus"
	"github.com/nodeforge/nodeforge/executor"
	"github.com/nodeforge/nodeforge/observability"
	"github.com/nodeforge/nodeforge/propagate"
	"github.com/nodeforge/nodeforge/runstate"
	"github.com/nodeforge/nodeforge/wfnode"
)

// Engine runs wfnode.Workflow graphs through a shared executor.Registry,
// publishing lifecycle events to a bus.EventBus and, optionally, recording
// observability data.
type Engine struct {
	exec          *executor.Executor
	bus           *bus.EventBus
	emitter       observability.Emitter
	metrics       *observability.Metrics
	tracer        trace.Tracer
	propagator    *propagate.Propagator
	maxConcurrent int
	validator     *wfnode.Validator

	mu      sync.Mutex
	handles map[string]*Handle
}

// New returns an Engine executing nodes through registry and publishing on
// b.
func New(registry *executor.Registry, b *bus.EventBus, opts ...Option) *Engine {
	eng := &Engine{
		bus:       b,
		emitter:   observability.NewNullEmitter(),
		tracer:    trace.NewNoopTracerProvider().Tracer("nodeforge/workflow"),
		validator: wfnode.NewValidator(),
		handles:   make(map[string]*Handle),
	}
	for _, o := range opts {
		o(eng)
	}

	execOpts := []executor.ExecuteOption{
		executor.WithEmitter(eng.emitter),
		executor.WithTracer(eng.tracer),
	}
	if eng.metrics != nil {
		execOpts = append(execOpts, executor.WithMetrics(eng.metrics))
	}
	eng.exec = executor.New(registry, b, execOpts...)
	return eng
}

// Handle returns the control handle for workflowID's in-flight run, or
// ErrRunNotFound once the run has settled (or if it was never started). Run
// handles are kept in a mapping keyed by workflow id, so a caller can
// obtain one as soon as it knows the workflow it started, without waiting
// for the blocking ExecuteWorkflow call to return.
func (eng *Engine) Handle(workflowID string) (*Handle, error) {
	eng.mu.Lock()
	defer eng.mu.Unlock()
	h, ok := eng.handles[workflowID]
	if !ok {
		return nil, &ErrRunNotFound{WorkflowID: workflowID}
	}
	return h, nil
}

// Wait is a convenience that looks up workflowID's handle and waits on it.
func (eng *Engine) Wait(ctx context.Context, workflowID string) (*Result, error) {
	h, err := eng.Handle(workflowID)
	if err != nil {
		return nil, err
	}
	return h.Wait(ctx)
}

// PauseWorkflow arrests dispatch of not-yet-started nodes in workflowID's
// in-flight run.
func (eng *Engine) PauseWorkflow(workflowID string) error {
	h, err := eng.Handle(workflowID)
	if err != nil {
		return err
	}
	return h.Pause()
}

// ResumeWorkflow releases a pause started with PauseWorkflow.
func (eng *Engine) ResumeWorkflow(workflowID string) error {
	h, err := eng.Handle(workflowID)
	if err != nil {
		return err
	}
	return h.Resume()
}

// StopWorkflow cancels workflowID's in-flight run.
func (eng *Engine) StopWorkflow(workflowID string) error {
	h, err := eng.Handle(workflowID)
	if err != nil {
		return err
	}
	h.Stop()
	return nil
}

// WorkflowStatus returns workflowID's current run status. A workflow with
// no in-flight run (either never started or already settled) reports
// StatusCompleted, since absence from the run-handle mapping means the run
// has already settled.
func (eng *Engine) WorkflowStatus(workflowID string) runstate.Status {
	h, err := eng.Handle(workflowID)
	if err != nil {
		return runstate.StatusCompleted
	}
	return h.Status()
}

// ExecuteWorkflow runs wf to completion (or failure, cancellation, or
// timeout) and returns the settled Result. The returned error is non-nil
// whenever Result.Status is not StatusCompleted.
func (eng *Engine) ExecuteWorkflow(ctx context.Context, wf *wfnode.Workflow, opts RunOptions) (*Result, error) {
	if eng.validator != nil {
		if vr := eng.validator.ValidateWorkflow(wf); !vr.OK {
			return nil, &ValidationError{WorkflowID: wf.ID, Reason: validationReason(vr)}
		}
	}

	order, err := topoSort(wf)
	if err != nil {
		return nil, err
	}

	runID := uuid.New().String()
	var runCtx context.Context
	var cancel context.CancelFunc
	if opts.Timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, opts.Timeout)
	} else {
		runCtx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	rs := runstate.NewContext(wf.ID, opts.Variables)
	for nodeID, inputs := range opts.InitialInputs {
		if !wf.IsEntryPoint(nodeID) {
			continue
		}
		rs.SetInitialInputs(nodeID, inputs)
	}

	h := &Handle{
		RunID:      runID,
		WorkflowID: wf.ID,
		rs:         rs,
		gate:       newPauseGate(),
		cancel:     cancel,
		done:       make(chan struct{}),
		bus:        eng.bus,
	}
	eng.mu.Lock()
	eng.handles[wf.ID] = h
	eng.mu.Unlock()

	if eng.propagator != nil {
		eng.propagator.RegisterWorkflow(wf)
		defer eng.propagator.UnregisterWorkflow(wf.ID)
	}

	start := time.Now()
	if eng.metrics != nil {
		eng.metrics.WorkflowStarted()
	}
	eng.publishWorkflow(runCtx, bus.EventWorkflowStarted, wf.ID, runID, nil)

	var runErr error
	switch opts.Mode {
	case ModeParallel:
		runErr = eng.runParallel(runCtx, cancel, wf, rs, order, h.gate)
	default:
		runErr = eng.runSequential(runCtx, cancel, wf, rs, order, h.gate)
	}

	status := runstate.StatusCompleted
	switch {
	case runErr == nil:
		status = runstate.StatusCompleted
	case errors.Is(runErr, context.DeadlineExceeded):
		status = runstate.StatusFailed
		runErr = &TimeoutError{WorkflowID: wf.ID, RunID: runID}
	case errors.Is(runErr, context.Canceled):
		status = runstate.StatusCancelled
		runErr = &CancelledError{WorkflowID: wf.ID, RunID: runID}
	default:
		status = runstate.StatusFailed
	}
	rs.SetStatus(status)

	snapshot := rs.Snapshot()
	end := time.Now()
	result := &Result{
		WorkflowID: wf.ID,
		RunID:      runID,
		Status:     status,
		Stats: Stats{
			StartTime:     start,
			EndTime:       end,
			ExecutionTime: end.Sub(start),
			// Every node that ran to completion recorded its outputs.
			NodesExecuted: len(snapshot),
		},
		Outputs:     exitOutputs(wf, snapshot),
		NodeOutputs: snapshot,
		Err:         runErr,
	}

	finishEvent := bus.EventWorkflowCompleted
	meta := map[string]any{}
	if runErr != nil {
		finishEvent = bus.EventWorkflowFailed
		meta["error"] = runErr.Error()
	}
	eng.publishWorkflow(runCtx, finishEvent, wf.ID, runID, meta)
	if eng.metrics != nil {
		eng.metrics.WorkflowFinished(wf.ID, string(status), time.Since(start))
	}

	eng.mu.Lock()
	delete(eng.handles, wf.ID)
	eng.mu.Unlock()

	h.result = result
	close(h.done)

	return result, runErr
}

// exitOutputs filters a full node-output snapshot down to the workflow's
// declared exit points: the settlement value of a run, as opposed to
// Result.NodeOutputs' unfiltered debug snapshot.
func exitOutputs(wf *wfnode.Workflow, snapshot map[string]map[string]any) map[string]map[string]any {
	out := make(map[string]map[string]any, len(wf.ExitPoints))
	for _, id := range wf.ExitPoints {
		if v, ok := snapshot[id]; ok {
			out[id] = v
		}
	}
	return out
}

// validationReason flattens a wfnode.WorkflowResult into a single message
// for ValidationError.
func validationReason(vr wfnode.WorkflowResult) string {
	var parts []string
	for nodeID, errs := range vr.NodeErrors {
		for _, e := range errs {
			parts = append(parts, fmt.Sprintf("node %s: %s", nodeID, e.Message))
		}
	}
	for _, e := range vr.ConnectionErrors {
		parts = append(parts, fmt.Sprintf("connection: %s", e.Message))
	}
	return strings.Join(parts, "; ")
}

func (eng *Engine) publishWorkflow(ctx context.Context, eventType, workflowID, runID string, meta map[string]any) {
	payload := map[string]any{"workflowId": workflowID, "runId": runID}
	for k, v := range meta {
		payload[k] = v
	}
	eng.bus.Publish(ctx, eventType, payload)
	eng.emitter.Emit(observability.Event{WorkflowID: workflowID, Msg: eventType, Meta: payload})
}

func (eng *Engine) runSequential(ctx context.Context, cancel context.CancelFunc, wf *wfnode.Workflow, rs *runstate.Context, order []string, gate *pauseGate) error {
	for _, nodeID := range order {
		if err := gate.wait(ctx); err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		node := wf.Nodes[nodeID]
		inputs := eng.gatherNodeInputs(ctx, wf, rs, node)
		node.Status = wfnode.StatusProcessing
		outputs, err := eng.exec.Execute(ctx, wf.ID, node, inputs)
		if err != nil {
			node.Status = wfnode.StatusFailed
			cancel()
			return err
		}
		node.Status = wfnode.StatusCompleted
		rs.SetNodeOutputs(nodeID, outputs)
	}
	return nil
}

func (eng *Engine) runParallel(ctx context.Context, cancel context.CancelFunc, wf *wfnode.Workflow, rs *runstate.Context, order []string, gate *pauseGate) error {
	for _, level := range levels(wf, order) {
		if err := gate.wait(ctx); err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		var sem chan struct{}
		if eng.maxConcurrent > 0 {
			sem = make(chan struct{}, eng.maxConcurrent)
		}

		var wg sync.WaitGroup
		errCh := make(chan error, len(level))
		for _, nodeID := range level {
			wg.Add(1)
			go func(nodeID string) {
				defer wg.Done()
				if sem != nil {
					sem <- struct{}{}
					defer func() { <-sem }()
				}
				node := wf.Nodes[nodeID]
				inputs := eng.gatherNodeInputs(ctx, wf, rs, node)
				node.Status = wfnode.StatusProcessing
				outputs, err := eng.exec.Execute(ctx, wf.ID, node, inputs)
				if err != nil {
					node.Status = wfnode.StatusFailed
					// Signal siblings still running in this level; no
					// further levels start.
					cancel()
					errCh <- err
					return
				}
				node.Status = wfnode.StatusCompleted
				rs.SetNodeOutputs(nodeID, outputs)
			}(nodeID)
		}
		wg.Wait()
		close(errCh)
		// Prefer the root-cause failure over a sibling's cancellation
		// error, which is only fallout from the cancel above.
		var levelErr error
		for err := range errCh {
			if levelErr == nil || (errors.Is(levelErr, context.Canceled) && !errors.Is(err, context.Canceled)) {
				levelErr = err
			}
		}
		if levelErr != nil {
			return levelErr
		}
	}
	return nil
}

// gatherNodeInputs wraps gatherInputs with the data:flow:* lifecycle
// events for nodes that have incoming connections: started before upstream
// values are read, completed once every declared input port has a value,
// failed (observability only; execution proceeds) when a port ends up
// with no value and no default.
func (eng *Engine) gatherNodeInputs(ctx context.Context, wf *wfnode.Workflow, rs *runstate.Context, node *wfnode.Node) map[string]any {
	if len(wf.IncomingConnections(node.ID)) == 0 {
		return gatherInputs(wf, rs, node)
	}

	payload := map[string]any{"workflowId": wf.ID, "nodeId": node.ID}
	eng.bus.Publish(ctx, bus.EventDataFlowStarted, payload)

	inputs := gatherInputs(wf, rs, node)

	var missing []string
	for _, p := range node.Inputs {
		if _, ok := inputs[p.ID]; !ok {
			missing = append(missing, p.ID)
		}
	}
	if len(missing) > 0 {
		failPayload := map[string]any{"workflowId": wf.ID, "nodeId": node.ID, "missingPorts": missing}
		eng.bus.Publish(ctx, bus.EventDataFlowFailed, failPayload)
	} else {
		eng.bus.Publish(ctx, bus.EventDataFlowCompleted, payload)
	}
	return inputs
}

// gatherInputs composes a node's execution inputs from seeded initial
// inputs (entry nodes) merged with upstream node outputs routed along
// incoming connections (connection-sourced values win on conflict), and
// falls back to a port's declared default when nothing supplied a value.
func gatherInputs(wf *wfnode.Workflow, rs *runstate.Context, node *wfnode.Node) map[string]any {
	inputs := make(map[string]any)
	if seed, ok := rs.InitialInputs(node.ID); ok {
		for k, v := range seed {
			inputs[k] = v
		}
	}
	for _, c := range wf.IncomingConnections(node.ID) {
		if v, ok := rs.NodeOutput(c.SourceNodeID, c.SourcePortID); ok {
			inputs[c.TargetPortID] = v
		}
	}
	for _, p := range node.Inputs {
		if _, ok := inputs[p.ID]; !ok && p.HasDefault {
			inputs[p.ID] = p.Default
		}
	}
	return inputs
}
