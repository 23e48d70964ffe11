package wfnode

import "fmt"

// Workflow is a directed graph of Nodes and Connections with named entry
// and exit points. Workflow values are treated as value-like inputs to a
// run; the engine must not mutate the Nodes/Connections maps of a
// Workflow it is running.
type Workflow struct {
	ID          string
	Name        string
	Nodes       map[string]*Node
	Connections map[string]*Connection
	EntryPoints []string
	ExitPoints  []string
	Metadata    map[string]any
}

// NewWorkflow returns an empty Workflow ready for AddNode/AddConnection.
func NewWorkflow(id, name string) *Workflow {
	return &Workflow{
		ID:          id,
		Name:        name,
		Nodes:       make(map[string]*Node),
		Connections: make(map[string]*Connection),
		Metadata:    make(map[string]any),
	}
}

// AddNode registers a node, rejecting a duplicate id.
func (w *Workflow) AddNode(n *Node) error {
	if n.ID == "" {
		return fmt.Errorf("wfnode: node id must not be empty")
	}
	if _, exists := w.Nodes[n.ID]; exists {
		return fmt.Errorf("wfnode: duplicate node id %q", n.ID)
	}
	w.Nodes[n.ID] = n
	return nil
}

// AddConnection validates and registers a connection. It enforces every
// connection invariant:
//   - source/target nodes exist in this workflow
//   - source port is direction=out, target port is direction=in
//   - sourcePort.DataType == targetPort.DataType
//   - fan-in of 1: a target input port admits at most one connection
//   - no duplicate (source node, source port, target node, target port) tuple
func (w *Workflow) AddConnection(c *Connection) error {
	if _, exists := w.Connections[c.ID]; exists {
		return fmt.Errorf("wfnode: duplicate connection id %q", c.ID)
	}

	src, ok := w.Nodes[c.SourceNodeID]
	if !ok {
		return fmt.Errorf("wfnode: unknown source node %q", c.SourceNodeID)
	}
	tgt, ok := w.Nodes[c.TargetNodeID]
	if !ok {
		return fmt.Errorf("wfnode: unknown target node %q", c.TargetNodeID)
	}

	srcPort := src.OutputPort(c.SourcePortID)
	if srcPort == nil {
		return fmt.Errorf("wfnode: node %q has no output port %q", c.SourceNodeID, c.SourcePortID)
	}
	if srcPort.Direction != DirectionOut {
		return fmt.Errorf("wfnode: port %q on node %q is not an output port", c.SourcePortID, c.SourceNodeID)
	}

	tgtPort := tgt.InputPort(c.TargetPortID)
	if tgtPort == nil {
		return fmt.Errorf("wfnode: node %q has no input port %q", c.TargetNodeID, c.TargetPortID)
	}
	if tgtPort.Direction != DirectionIn {
		return fmt.Errorf("wfnode: port %q on node %q is not an input port", c.TargetPortID, c.TargetNodeID)
	}

	if srcPort.DataType != tgtPort.DataType {
		return fmt.Errorf("wfnode: type mismatch %s.%s (%s) -> %s.%s (%s)",
			c.SourceNodeID, c.SourcePortID, srcPort.DataType,
			c.TargetNodeID, c.TargetPortID, tgtPort.DataType)
	}

	newKey := c.key()
	for _, existing := range w.Connections {
		if existing.key() == newKey {
			return fmt.Errorf("wfnode: duplicate connection %s.%s -> %s.%s",
				c.SourceNodeID, c.SourcePortID, c.TargetNodeID, c.TargetPortID)
		}
		if existing.TargetNodeID == c.TargetNodeID && existing.TargetPortID == c.TargetPortID {
			return fmt.Errorf("wfnode: input port %s.%s already has an incoming connection",
				c.TargetNodeID, c.TargetPortID)
		}
	}

	w.Connections[c.ID] = c
	return nil
}

// IncomingConnections returns every connection whose target is nodeID.
func (w *Workflow) IncomingConnections(nodeID string) []*Connection {
	var out []*Connection
	for _, c := range w.Connections {
		if c.TargetNodeID == nodeID {
			out = append(out, c)
		}
	}
	return out
}

// OutgoingConnections returns every connection whose source is nodeID.
func (w *Workflow) OutgoingConnections(nodeID string) []*Connection {
	var out []*Connection
	for _, c := range w.Connections {
		if c.SourceNodeID == nodeID {
			out = append(out, c)
		}
	}
	return out
}

// IsEntryPoint reports whether nodeID is listed in EntryPoints.
func (w *Workflow) IsEntryPoint(nodeID string) bool {
	for _, id := range w.EntryPoints {
		if id == nodeID {
			return true
		}
	}
	return false
}
