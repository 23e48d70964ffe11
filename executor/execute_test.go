package executor

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nodeforge/nodeforge/bus"
	"github.com/nodeforge/nodeforge/wfnode"
)

func TestExecute_FullChainAppliesInOrder(t *testing.T) {
	reg := NewRegistry()
	var seen []string

	err := reg.Register("double", func(ctx context.Context, n *wfnode.Node, inputs map[string]any) (map[string]any, error) {
		seen = append(seen, "execute")
		v := inputs["value"].(int)
		return map[string]any{"result": v * 2}, nil
	},
		WithInputTransform(func(ctx context.Context, n *wfnode.Node, inputs map[string]any) (map[string]any, error) {
			seen = append(seen, "input_transform")
			return inputs, nil
		}),
		WithInputValidator(func(ctx context.Context, n *wfnode.Node, inputs map[string]any) error {
			seen = append(seen, "input_validate")
			if _, ok := inputs["value"]; !ok {
				return errors.New("missing value")
			}
			return nil
		}),
		WithOutputValidator(func(ctx context.Context, n *wfnode.Node, outputs map[string]any) error {
			seen = append(seen, "output_validate")
			return nil
		}),
		WithOutputTransform(func(ctx context.Context, n *wfnode.Node, outputs map[string]any) (map[string]any, error) {
			seen = append(seen, "output_transform")
			outputs["doubled"] = true
			return outputs, nil
		}),
	)
	require.NoError(t, err)

	b := bus.New()
	ex := New(reg, b)
	n := wfnode.NewNode("n1", "double", "Double")

	outputs, err := ex.Execute(context.Background(), "wf1", n, map[string]any{"value": 21})
	require.NoError(t, err)
	assert.Equal(t, 42, outputs["result"])
	assert.Equal(t, true, outputs["doubled"])
	assert.Equal(t, []string{"input_transform", "input_validate", "execute", "output_validate", "output_transform"}, seen)
}

func TestExecute_InputValidationFailureStopsChain(t *testing.T) {
	reg := NewRegistry()
	executed := false
	require.NoError(t, reg.Register("guarded", func(ctx context.Context, n *wfnode.Node, inputs map[string]any) (map[string]any, error) {
		executed = true
		return nil, nil
	}, WithInputValidator(func(ctx context.Context, n *wfnode.Node, inputs map[string]any) error {
		return errors.New("rejected")
	})))

	b := bus.New()
	ex := New(reg, b)
	n := wfnode.NewNode("n1", "guarded", "Guarded")

	_, err := ex.Execute(context.Background(), "wf1", n, map[string]any{})
	require.Error(t, err)
	assert.False(t, executed)

	var nodeErr *NodeError
	require.ErrorAs(t, err, &nodeErr)
	assert.Equal(t, "input_validate", nodeErr.Phase)
}

func TestRegistry_AddInterceptorsAfterRegistration(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register("echo", func(ctx context.Context, n *wfnode.Node, inputs map[string]any) (map[string]any, error) {
		return map[string]any{"v": inputs["v"]}, nil
	}))

	require.NoError(t, reg.AddInputTransform("echo", func(ctx context.Context, n *wfnode.Node, inputs map[string]any) (map[string]any, error) {
		inputs["v"] = inputs["v"].(int) + 1
		return inputs, nil
	}))
	require.NoError(t, reg.AddOutputTransform("echo", func(ctx context.Context, n *wfnode.Node, outputs map[string]any) (map[string]any, error) {
		outputs["v"] = outputs["v"].(int) * 10
		return outputs, nil
	}))
	require.NoError(t, reg.AddOutputValidator("echo", func(ctx context.Context, n *wfnode.Node, outputs map[string]any) error {
		return nil
	}))

	ex := New(reg, bus.New())
	n := wfnode.NewNode("n1", "echo", "Echo")
	outputs, err := ex.Execute(context.Background(), "wf1", n, map[string]any{"v": 1})
	require.NoError(t, err)
	assert.Equal(t, 20, outputs["v"])

	err = reg.AddInputValidator("missing", func(ctx context.Context, n *wfnode.Node, inputs map[string]any) error { return nil })
	var unk *ErrUnknownNodeType
	assert.ErrorAs(t, err, &unk)
}

func TestExecute_UnknownNodeType(t *testing.T) {
	reg := NewRegistry()
	ex := New(reg, bus.New())
	n := wfnode.NewNode("n1", "missing", "Missing")

	_, err := ex.Execute(context.Background(), "wf1", n, nil)
	require.Error(t, err)
	var unk *ErrUnknownNodeType
	assert.ErrorAs(t, err, &unk)
}

func TestExecute_PublishesLifecycleEvents(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register("noop", func(ctx context.Context, n *wfnode.Node, inputs map[string]any) (map[string]any, error) {
		return map[string]any{}, nil
	}))

	b := bus.New()
	var started, completed bool
	b.Subscribe(bus.EventNodeExecutionStarted, func(payload any) error { started = true; return nil }, bus.WithAsync(false))
	b.Subscribe(bus.EventNodeExecutionCompleted, func(payload any) error { completed = true; return nil }, bus.WithAsync(false))

	ex := New(reg, b)
	n := wfnode.NewNode("n1", "noop", "Noop")
	_, err := ex.Execute(context.Background(), "wf1", n, nil)
	require.NoError(t, err)
	assert.True(t, started)
	assert.True(t, completed)
}
