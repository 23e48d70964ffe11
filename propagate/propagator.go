// Package propagate implements the event propagator: routing an event from
// a source node along a workflow's outgoing connections to target nodes,
// with filters, per-edge transforms, and cycle-safe chaining. Propagation
// is distinct from data flow along connections: it is a message channel a
// node opts into, addressed per target node on the event bus.
package propagate

import (
	"context"
	"fmt"
	"sync"

	"github.com/nodeforge/nodeforge/bus"
	"github.com/nodeforge/nodeforge/wfnode"
)

// Filter is a predicate over (eventType, payload). All registered filters
// must pass (AND semantics) for propagation along an edge to continue.
type Filter func(eventType string, payload map[string]any) bool

// TransformFunc rewrites a per-edge payload given the source and target
// node ids.
type TransformFunc func(payload map[string]any, sourceNodeID, targetNodeID string) map[string]any

// Options configures a single PropagateEvent call.
type Options struct {
	Transform      TransformFunc
	PropagateChain bool
}

// Propagator holds the set of workflows it knows how to route events
// through, plus the ordered list of filters applied to every propagation.
type Propagator struct {
	bus *bus.EventBus

	mu        sync.RWMutex
	workflows map[string]*wfnode.Workflow
	filters   []namedFilter
	filterSeq int
}

type namedFilter struct {
	id     int
	filter Filter
}

// New returns a Propagator that publishes through b.
func New(b *bus.EventBus) *Propagator {
	return &Propagator{
		bus:       b,
		workflows: make(map[string]*wfnode.Workflow),
	}
}

// RegisterWorkflow makes w's connections available to PropagateEvent.
func (p *Propagator) RegisterWorkflow(w *wfnode.Workflow) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.workflows[w.ID] = w
}

// UnregisterWorkflow removes a previously registered workflow.
func (p *Propagator) UnregisterWorkflow(workflowID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.workflows, workflowID)
}

// HasWorkflow reports whether workflowID is currently registered.
func (p *Propagator) HasWorkflow(workflowID string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.workflows[workflowID]
	return ok
}

// AddEventFilter appends a filter to the AND-chain applied to every
// propagation and returns an id usable with RemoveEventFilter.
func (p *Propagator) AddEventFilter(f Filter) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.filterSeq++
	id := p.filterSeq
	p.filters = append(p.filters, namedFilter{id: id, filter: f})
	return id
}

// RemoveEventFilter removes the filter previously returned by
// AddEventFilter, if still present.
func (p *Propagator) RemoveEventFilter(id int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, nf := range p.filters {
		if nf.id == id {
			p.filters = append(p.filters[:i], p.filters[i+1:]...)
			return
		}
	}
}

// ClearEventFilters removes every registered filter.
func (p *Propagator) ClearEventFilters() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.filters = nil
}

// TargetEventType derives the addressable, per-node event type:
// "node:<targetNodeId>:<originalEventType>".
func TargetEventType(targetNodeID, eventType string) string {
	return fmt.Sprintf("node:%s:%s", targetNodeID, eventType)
}

// PropagateEvent routes eventType/payload from sourceNodeID along every
// outgoing connection of workflowID. For each connection it composes a
// per-edge payload, applies every registered filter (skipping the edge on
// any rejection), and publishes on the derived "node:<targetId>:<type>"
// event. If opts.PropagateChain is true, it recurses from each target node
// using the (possibly transformed) payload, guarding against cycles with a
// per-top-level-call visited set: a node already visited during this call
// is skipped, guaranteeing termination on cyclic graphs: each node
// receives the event at most once per top-level call when chaining.
func (p *Propagator) PropagateEvent(ctx context.Context, workflowID, sourceNodeID, eventType string, payload map[string]any, opts Options) error {
	p.mu.RLock()
	w, ok := p.workflows[workflowID]
	p.mu.RUnlock()
	if !ok {
		return fmt.Errorf("propagate: unknown workflow %q", workflowID)
	}

	// The source node is pre-marked visited: it originated the event, so it
	// can never become a target later in the chain even if the graph loops
	// back to it.
	visited := map[string]bool{sourceNodeID: true}
	p.propagate(ctx, w, sourceNodeID, eventType, payload, opts, visited)
	return nil
}

func (p *Propagator) propagate(ctx context.Context, w *wfnode.Workflow, sourceNodeID, eventType string, payload map[string]any, opts Options, visited map[string]bool) {
	for _, c := range w.OutgoingConnections(sourceNodeID) {
		if visited[c.TargetNodeID] {
			continue
		}

		edgePayload := mergeSource(payload, sourceNodeID)
		if opts.Transform != nil {
			edgePayload = opts.Transform(edgePayload, sourceNodeID, c.TargetNodeID)
		}

		if !p.passesFilters(eventType, edgePayload) {
			continue
		}

		visited[c.TargetNodeID] = true
		p.bus.Publish(ctx, TargetEventType(c.TargetNodeID, eventType), edgePayload)

		if opts.PropagateChain {
			p.propagate(ctx, w, c.TargetNodeID, eventType, edgePayload, opts, visited)
		}
	}
}

func (p *Propagator) passesFilters(eventType string, payload map[string]any) bool {
	p.mu.RLock()
	filters := make([]namedFilter, len(p.filters))
	copy(filters, p.filters)
	p.mu.RUnlock()

	for _, nf := range filters {
		if !nf.filter(eventType, payload) {
			return false
		}
	}
	return true
}

func mergeSource(payload map[string]any, sourceNodeID string) map[string]any {
	out := make(map[string]any, len(payload)+1)
	for k, v := range payload {
		out[k] = v
	}
	out["sourceNodeId"] = sourceNodeID
	return out
}
