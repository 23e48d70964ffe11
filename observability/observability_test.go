package observability

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogEmitter_JSONMode(t *testing.T) {
	var buf strings.Builder
	e := NewLogEmitter(&buf, true)
	e.Emit(Event{WorkflowID: "wf1", NodeID: "n1", Msg: "node:execution:started", Meta: map[string]any{"k": "v"}})

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(buf.String())), &decoded))
	assert.Equal(t, "wf1", decoded["workflowId"])
	assert.Equal(t, "n1", decoded["nodeId"])
}

func TestLogEmitter_TextMode(t *testing.T) {
	var buf strings.Builder
	e := NewLogEmitter(&buf, false)
	e.Emit(Event{WorkflowID: "wf1", Msg: "workflow:started"})
	assert.Contains(t, buf.String(), "[workflow:started] workflowId=wf1")
}

func TestLogEmitter_EmitBatch(t *testing.T) {
	var buf strings.Builder
	e := NewLogEmitter(&buf, false)
	require.NoError(t, e.EmitBatch(context.Background(), []Event{
		{WorkflowID: "wf1", Msg: "a"},
		{WorkflowID: "wf1", Msg: "b"},
	}))
	assert.Equal(t, 2, strings.Count(buf.String(), "\n"))
}

func TestNullEmitter_Discards(t *testing.T) {
	e := NewNullEmitter()
	e.Emit(Event{Msg: "ignored"})
	assert.NoError(t, e.EmitBatch(context.Background(), []Event{{Msg: "ignored"}}))
	assert.NoError(t, e.Flush(context.Background()))
}
