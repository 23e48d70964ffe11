package wfnode

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func portIn(id, dataType string) Port  { return Port{ID: id, DataType: dataType, Direction: DirectionIn} }
func portOut(id, dataType string) Port { return Port{ID: id, DataType: dataType, Direction: DirectionOut} }

func TestAddConnection_TypeMismatchRejected(t *testing.T) {
	w := NewWorkflow("wf1", "test")
	a := NewNode("a", "const", "A")
	a.Outputs = []Port{portOut("v", "int")}
	b := NewNode("b", "sink", "B")
	b.Inputs = []Port{portIn("v", "string")}
	require.NoError(t, w.AddNode(a))
	require.NoError(t, w.AddNode(b))

	err := w.AddConnection(&Connection{ID: "c1", SourceNodeID: "a", SourcePortID: "v", TargetNodeID: "b", TargetPortID: "v"})
	assert.Error(t, err)
}

func TestAddConnection_FanInOfOneEnforced(t *testing.T) {
	w := NewWorkflow("wf1", "test")
	a := NewNode("a", "const", "A")
	a.Outputs = []Port{portOut("v", "int")}
	a2 := NewNode("a2", "const", "A2")
	a2.Outputs = []Port{portOut("v", "int")}
	b := NewNode("b", "sink", "B")
	b.Inputs = []Port{portIn("v", "int")}
	require.NoError(t, w.AddNode(a))
	require.NoError(t, w.AddNode(a2))
	require.NoError(t, w.AddNode(b))

	require.NoError(t, w.AddConnection(&Connection{ID: "c1", SourceNodeID: "a", SourcePortID: "v", TargetNodeID: "b", TargetPortID: "v"}))
	err := w.AddConnection(&Connection{ID: "c2", SourceNodeID: "a2", SourcePortID: "v", TargetNodeID: "b", TargetPortID: "v"})
	assert.Error(t, err)
}

func TestAddConnection_DuplicateRejected(t *testing.T) {
	w := NewWorkflow("wf1", "test")
	a := NewNode("a", "const", "A")
	a.Outputs = []Port{portOut("v", "int")}
	b := NewNode("b", "sink", "B")
	b.Inputs = []Port{portIn("v", "int")}
	require.NoError(t, w.AddNode(a))
	require.NoError(t, w.AddNode(b))

	require.NoError(t, w.AddConnection(&Connection{ID: "c1", SourceNodeID: "a", SourcePortID: "v", TargetNodeID: "b", TargetPortID: "v"}))
	err := w.AddConnection(&Connection{ID: "c1-dup", SourceNodeID: "a", SourcePortID: "v", TargetNodeID: "b", TargetPortID: "v"})
	assert.Error(t, err)
}

func TestAddConnection_UnknownNodeRejected(t *testing.T) {
	w := NewWorkflow("wf1", "test")
	a := NewNode("a", "const", "A")
	a.Outputs = []Port{portOut("v", "int")}
	require.NoError(t, w.AddNode(a))

	err := w.AddConnection(&Connection{ID: "c1", SourceNodeID: "a", SourcePortID: "v", TargetNodeID: "missing", TargetPortID: "v"})
	assert.Error(t, err)
}

func TestValidator_BuiltinRules(t *testing.T) {
	v := NewValidator()
	n := NewNode("", "const", "")
	res := v.ValidateNode(n)
	assert.False(t, res.OK)
	assert.Len(t, res.Errors, 2)
}

func TestValidator_ValidateWorkflow(t *testing.T) {
	v := NewValidator()
	w := NewWorkflow("wf1", "test")
	a := NewNode("a", "const", "A")
	a.Outputs = []Port{portOut("v", "int")}
	require.NoError(t, w.AddNode(a))

	res := v.ValidateWorkflow(w)
	assert.True(t, res.OK)
	assert.Empty(t, res.NodeErrors)
	assert.Empty(t, res.ConnectionErrors)
}

func TestValidator_RemoveRule(t *testing.T) {
	v := NewValidator()
	v.RemoveRule("non-empty-name")
	n := NewNode("a", "const", "")
	res := v.ValidateNode(n)
	assert.True(t, res.OK)
}
