package wfnode

import "fmt"

// Rule is a named, user-extensible node validation check.
type Rule struct {
	ID        string
	Name      string
	Predicate func(n *Node) bool
	Message   string
}

// FieldError is one failed rule against a node or connection.
type FieldError struct {
	RuleID  string
	Message string
}

// NodeResult is the outcome of validating a single node.
type NodeResult struct {
	OK     bool
	Errors []FieldError
}

// WorkflowResult is the outcome of validating an entire workflow.
type WorkflowResult struct {
	OK               bool
	NodeErrors       map[string][]FieldError
	ConnectionErrors []FieldError
}

// Validator holds the registry of node-validation Rules. The zero value is
// not usable; construct with NewValidator, which installs the built-in
// non-empty-id / non-empty-name rules.
type Validator struct {
	rules []Rule
	byID  map[string]int
}

// NewValidator returns a Validator seeded with the built-in rules: every
// node must have a non-empty id and a non-empty name.
func NewValidator() *Validator {
	v := &Validator{byID: make(map[string]int)}
	v.AddRule(Rule{
		ID:        "non-empty-id",
		Name:      "Node ID must not be empty",
		Predicate: func(n *Node) bool { return n.ID != "" },
		Message:   "node id must not be empty",
	})
	v.AddRule(Rule{
		ID:        "non-empty-name",
		Name:      "Node name must not be empty",
		Predicate: func(n *Node) bool { return n.Name != "" },
		Message:   "node name must not be empty",
	})
	return v
}

// AddRule registers a rule, replacing any existing rule with the same ID.
func (v *Validator) AddRule(r Rule) {
	if idx, exists := v.byID[r.ID]; exists {
		v.rules[idx] = r
		return
	}
	v.byID[r.ID] = len(v.rules)
	v.rules = append(v.rules, r)
}

// GetRule returns the rule with the given id, if registered.
func (v *Validator) GetRule(id string) (Rule, bool) {
	idx, ok := v.byID[id]
	if !ok {
		return Rule{}, false
	}
	return v.rules[idx], true
}

// RemoveRule deletes a rule by id. It is a no-op if the rule is not present.
func (v *Validator) RemoveRule(id string) {
	idx, ok := v.byID[id]
	if !ok {
		return
	}
	v.rules = append(v.rules[:idx], v.rules[idx+1:]...)
	delete(v.byID, id)
	for id2, i := range v.byID {
		if i > idx {
			v.byID[id2] = i - 1
		}
	}
}

// RuleIDs lists every registered rule id, in registration order.
func (v *Validator) RuleIDs() []string {
	ids := make([]string, len(v.rules))
	for i, r := range v.rules {
		ids[i] = r.ID
	}
	return ids
}

// ValidateNode runs every rule (or, if ruleIDs is non-empty, only the named
// subset) against n.
func (v *Validator) ValidateNode(n *Node, ruleIDs ...string) NodeResult {
	selected := v.rules
	if len(ruleIDs) > 0 {
		selected = nil
		for _, id := range ruleIDs {
			if idx, ok := v.byID[id]; ok {
				selected = append(selected, v.rules[idx])
			}
		}
	}

	res := NodeResult{OK: true}
	for _, r := range selected {
		if !r.Predicate(n) {
			res.OK = false
			res.Errors = append(res.Errors, FieldError{RuleID: r.ID, Message: r.Message})
		}
	}
	return res
}

// ValidateConnection checks that c's source and target ports exist on their
// respective nodes and that their DataType tags match exactly.
func (v *Validator) ValidateConnection(w *Workflow, c *Connection) *FieldError {
	src, ok := w.Nodes[c.SourceNodeID]
	if !ok {
		return &FieldError{RuleID: "unknown-node", Message: fmt.Sprintf("unknown source node %q", c.SourceNodeID)}
	}
	tgt, ok := w.Nodes[c.TargetNodeID]
	if !ok {
		return &FieldError{RuleID: "unknown-node", Message: fmt.Sprintf("unknown target node %q", c.TargetNodeID)}
	}
	srcPort := src.OutputPort(c.SourcePortID)
	if srcPort == nil {
		return &FieldError{RuleID: "unknown-port", Message: fmt.Sprintf("node %q has no output port %q", c.SourceNodeID, c.SourcePortID)}
	}
	tgtPort := tgt.InputPort(c.TargetPortID)
	if tgtPort == nil {
		return &FieldError{RuleID: "unknown-port", Message: fmt.Sprintf("node %q has no input port %q", c.TargetNodeID, c.TargetPortID)}
	}
	if srcPort.DataType != tgtPort.DataType {
		return &FieldError{RuleID: "type-mismatch", Message: fmt.Sprintf("type mismatch: %s != %s", srcPort.DataType, tgtPort.DataType)}
	}
	return nil
}

// ValidateWorkflow aggregates node and connection validation across an
// entire workflow.
func (v *Validator) ValidateWorkflow(w *Workflow) WorkflowResult {
	res := WorkflowResult{
		OK:         true,
		NodeErrors: make(map[string][]FieldError),
	}

	for id, n := range w.Nodes {
		nr := v.ValidateNode(n)
		if !nr.OK {
			res.OK = false
			res.NodeErrors[id] = nr.Errors
		}
	}

	for _, c := range w.Connections {
		if fe := v.ValidateConnection(w, c); fe != nil {
			res.OK = false
			res.ConnectionErrors = append(res.ConnectionErrors, *fe)
		}
	}

	return res
}
