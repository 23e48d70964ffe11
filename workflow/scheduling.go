package workflow

import (
	"sort"

	"github.com/nodeforge/nodeforge/wfnode"
)

// topoSort returns wf's nodes in a valid topological order using Kahn's
// algorithm. It returns a *CycleError (wrapped as error) if the connection
// graph is not a DAG.
func topoSort(wf *wfnode.Workflow) ([]string, error) {
	indegree := make(map[string]int, len(wf.Nodes))
	for id := range wf.Nodes {
		indegree[id] = 0
	}
	for _, c := range wf.Connections {
		indegree[c.TargetNodeID]++
	}

	queue := make([]string, 0, len(wf.Nodes))
	for id, deg := range indegree {
		if deg == 0 {
			queue = append(queue, id)
		}
	}
	sort.Strings(queue)

	order := make([]string, 0, len(wf.Nodes))
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		order = append(order, id)

		next := make([]string, 0)
		for _, c := range wf.OutgoingConnections(id) {
			indegree[c.TargetNodeID]--
			if indegree[c.TargetNodeID] == 0 {
				next = append(next, c.TargetNodeID)
			}
		}
		sort.Strings(next)
		queue = append(queue, next...)
	}

	if len(order) != len(wf.Nodes) {
		remaining := make([]string, 0)
		for id, deg := range indegree {
			if deg > 0 {
				remaining = append(remaining, id)
			}
		}
		sort.Strings(remaining)
		return nil, &CycleError{WorkflowID: wf.ID, Cycle: remaining}
	}
	return order, nil
}

// levels partitions order into levels by longest-path depth from the nodes
// with no incoming connections (wf.EntryPoints is not consulted):
// level(n) = 0 if n has no incoming connections, else
// 1 + max(level(source)) over n's incoming connections. Nodes in the same
// level have no dependency on one another and may execute concurrently in
// parallel mode.
func levels(wf *wfnode.Workflow, order []string) [][]string {
	depth := make(map[string]int, len(order))
	for _, id := range order {
		max := -1
		for _, c := range wf.IncomingConnections(id) {
			if d := depth[c.SourceNodeID]; d > max {
				max = d
			}
		}
		depth[id] = max + 1
	}

	var maxDepth int
	for _, d := range depth {
		if d > maxDepth {
			maxDepth = d
		}
	}

	out := make([][]string, maxDepth+1)
	for _, id := range order {
		d := depth[id]
		out[d] = append(out[d], id)
	}
	return out
}
