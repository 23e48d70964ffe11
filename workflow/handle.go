package workflow

import (
	"context"
	"fmt"

	"github.com/nodeforge/nodeforge/bus"
	"github.com/nodeforge/nodeforge/runstate"
)

// Handle is the control-plane capability returned for an in-flight run: it
// can pause, resume, stop, or observe the run, but (like bus.Subscription)
// cannot reach into the Engine's internals beyond that.
type Handle struct {
	RunID      string
	WorkflowID string

	rs     *runstate.Context
	gate   *pauseGate
	cancel context.CancelFunc
	done   chan struct{}
	result *Result
	bus    *bus.EventBus
}

// Status returns the run's current lifecycle status.
func (h *Handle) Status() runstate.Status {
	return h.rs.Status()
}

// Pause arrests dispatch of not-yet-started nodes. Nodes already executing
// run to completion; the next node (or, in parallel mode, the next level)
// is held until Resume.
func (h *Handle) Pause() error {
	if h.rs.Status() != runstate.StatusRunning {
		return fmt.Errorf("workflow: cannot pause run %s in status %s", h.RunID, h.rs.Status())
	}
	h.gate.Pause()
	h.rs.SetStatus(runstate.StatusPaused)
	h.publish(bus.EventWorkflowPaused)
	return nil
}

// Resume releases a pause started with Pause.
func (h *Handle) Resume() error {
	if h.rs.Status() != runstate.StatusPaused {
		return fmt.Errorf("workflow: cannot resume run %s in status %s", h.RunID, h.rs.Status())
	}
	h.gate.Resume()
	h.rs.SetStatus(runstate.StatusRunning)
	h.publish(bus.EventWorkflowResumed)
	return nil
}

func (h *Handle) publish(eventType string) {
	if h.bus == nil {
		return
	}
	h.bus.Publish(context.Background(), eventType, map[string]any{
		"workflowId": h.WorkflowID,
		"runId":      h.RunID,
	})
}

// Stop cancels the run. Already-executing nodes are given their context's
// cancellation signal; the run settles with status cancelled once its
// current node (or level) finishes observing it.
func (h *Handle) Stop() {
	h.gate.Resume() // unblock a paused gate so cancellation is observed promptly
	h.cancel()
}

// Wait blocks until the run settles or ctx is done.
func (h *Handle) Wait(ctx context.Context) (*Result, error) {
	select {
	case <-h.done:
		return h.result, h.result.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
