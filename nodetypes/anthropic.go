package nodetypes

import (
	"context"
	"fmt"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	anthropicoption "github.com/anthropics/anthropic-sdk-go/option"

	"github.com/nodeforge/nodeforge/executor"
	"github.com/nodeforge/nodeforge/wfnode"
)

// TypeAnthropic is the node type key registered by RegisterAnthropicNode.
const TypeAnthropic = "llm:anthropic"

const defaultAnthropicModel = "claude-sonnet-4-5-20250929"

// RegisterAnthropicNode installs an executor.ExecutorFunc under TypeAnthropic
// that calls Anthropic's Messages API. apiKey is used for every node of this
// type; a per-node model name and system prompt may be set via
// Node.Config["model"] and Node.Config["systemPrompt"].
func RegisterAnthropicNode(reg *executor.Registry, apiKey string, opts ...executor.RegisterOption) error {
	return reg.Register(TypeAnthropic, anthropicExecutor(apiKey), opts...)
}

func anthropicExecutor(apiKey string) executor.ExecutorFunc {
	return func(ctx context.Context, n *wfnode.Node, inputs map[string]any) (map[string]any, error) {
		prompt, err := promptOf(inputs)
		if err != nil {
			return nil, err
		}

		client := anthropicsdk.NewClient(anthropicoption.WithAPIKey(apiKey))
		params := anthropicsdk.MessageNewParams{
			Model:     anthropicsdk.Model(configString(n.Config, "model", defaultAnthropicModel)),
			MaxTokens: configInt(n.Config, "maxTokens", 4096),
			Messages: []anthropicsdk.MessageParam{
				anthropicsdk.NewUserMessage(anthropicsdk.NewTextBlock(prompt)),
			},
		}
		if sp := configString(n.Config, "systemPrompt", ""); sp != "" {
			params.System = []anthropicsdk.TextBlockParam{{Text: sp}}
		}

		resp, err := client.Messages.New(ctx, params)
		if err != nil {
			return nil, fmt.Errorf("nodetypes: anthropic request failed: %w", err)
		}

		var completion string
		for _, block := range resp.Content {
			if tb, ok := block.AsAny().(anthropicsdk.TextBlock); ok {
				if completion != "" {
					completion += "\n"
				}
				completion += tb.Text
			}
		}
		return map[string]any{"completion": completion}, nil
	}
}
