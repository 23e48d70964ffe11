package nodetypes

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nodeforge/nodeforge/bus"
	"github.com/nodeforge/nodeforge/executor"
	"github.com/nodeforge/nodeforge/wfnode"
)

func TestPromptOf(t *testing.T) {
	t.Run("missing key", func(t *testing.T) {
		_, err := promptOf(map[string]any{})
		assert.ErrorIs(t, err, ErrEmptyPrompt)
	})

	t.Run("wrong type", func(t *testing.T) {
		_, err := promptOf(map[string]any{"prompt": 42})
		assert.ErrorIs(t, err, ErrEmptyPrompt)
	})

	t.Run("empty string", func(t *testing.T) {
		_, err := promptOf(map[string]any{"prompt": ""})
		assert.ErrorIs(t, err, ErrEmptyPrompt)
	})

	t.Run("ok", func(t *testing.T) {
		got, err := promptOf(map[string]any{"prompt": "hello"})
		require.NoError(t, err)
		assert.Equal(t, "hello", got)
	})
}

func TestConfigString(t *testing.T) {
	assert.Equal(t, "fallback", configString(nil, "model", "fallback"))
	assert.Equal(t, "fallback", configString(map[string]any{}, "model", "fallback"))
	assert.Equal(t, "fallback", configString(map[string]any{"model": 1}, "model", "fallback"))
	assert.Equal(t, "gpt-4o", configString(map[string]any{"model": "gpt-4o"}, "model", "fallback"))
}

func TestConfigInt(t *testing.T) {
	assert.EqualValues(t, 7, configInt(nil, "maxTokens", 7))
	assert.EqualValues(t, 10, configInt(map[string]any{"maxTokens": 10}, "maxTokens", 7))
	assert.EqualValues(t, 10, configInt(map[string]any{"maxTokens": int64(10)}, "maxTokens", 7))
}

// Every registered node type rejects a missing prompt before attempting a
// network call, so this is exercised without any SDK mocking.
func TestRegisteredNodeTypesRejectEmptyPrompt(t *testing.T) {
	reg := executor.NewRegistry()
	require.NoError(t, RegisterAnthropicNode(reg, "test-key"))
	require.NoError(t, RegisterOpenAINode(reg, "test-key"))
	require.NoError(t, RegisterGoogleGenAINode(reg, "test-key"))

	assert.True(t, reg.Registered(TypeAnthropic))
	assert.True(t, reg.Registered(TypeOpenAI))
	assert.True(t, reg.Registered(TypeGoogleGenAI))

	for _, fn := range []executor.ExecutorFunc{
		anthropicExecutor("test-key"),
		openaiExecutor("test-key"),
		googleExecutor("test-key"),
	} {
		n := wfnode.NewNode("n1", "llm", "node")
		_, err := fn(context.Background(), n, map[string]any{})
		var target = ErrEmptyPrompt
		if !errors.Is(err, target) {
			t.Fatalf("expected ErrEmptyPrompt, got %v", err)
		}
	}
}

func TestRegisterTwiceReplacesPriorRegistration(t *testing.T) {
	reg := executor.NewRegistry()
	require.NoError(t, RegisterAnthropicNode(reg, "k1"))
	errSecond := errors.New("second registration")
	require.NoError(t, RegisterAnthropicNode(reg, "k2", executor.WithInputValidator(func(ctx context.Context, n *wfnode.Node, inputs map[string]any) error {
		return errSecond
	})))
	assert.True(t, reg.Registered(TypeAnthropic))

	// Only the second registration carries the rejecting validator, so the
	// rejection shows it replaced the first one.
	ex := executor.New(reg, bus.New())
	_, err := ex.Execute(context.Background(), "wf1", wfnode.NewNode("n1", TypeAnthropic, "node"), map[string]any{"prompt": "hi"})
	assert.ErrorIs(t, err, errSecond)
}
