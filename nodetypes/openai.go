package nodetypes

import (
	"context"
	"fmt"

	openaisdk "github.com/openai/openai-go"
	openaioption "github.com/openai/openai-go/option"

	"github.com/nodeforge/nodeforge/executor"
	"github.com/nodeforge/nodeforge/wfnode"
)

// TypeOpenAI is the node type key registered by RegisterOpenAINode.
const TypeOpenAI = "llm:openai"

const defaultOpenAIModel = "gpt-4o"

// RegisterOpenAINode installs an executor.ExecutorFunc under TypeOpenAI that
// calls OpenAI's chat completions API. apiKey is shared across every node of
// this type; per-node overrides come from Node.Config["model"] and
// Node.Config["systemPrompt"].
func RegisterOpenAINode(reg *executor.Registry, apiKey string, opts ...executor.RegisterOption) error {
	return reg.Register(TypeOpenAI, openaiExecutor(apiKey), opts...)
}

func openaiExecutor(apiKey string) executor.ExecutorFunc {
	return func(ctx context.Context, n *wfnode.Node, inputs map[string]any) (map[string]any, error) {
		prompt, err := promptOf(inputs)
		if err != nil {
			return nil, err
		}

		client := openaisdk.NewClient(openaioption.WithAPIKey(apiKey))

		var messages []openaisdk.ChatCompletionMessageParamUnion
		if sp := configString(n.Config, "systemPrompt", ""); sp != "" {
			messages = append(messages, openaisdk.SystemMessage(sp))
		}
		messages = append(messages, openaisdk.UserMessage(prompt))

		params := openaisdk.ChatCompletionNewParams{
			Model:    openaisdk.ChatModel(configString(n.Config, "model", defaultOpenAIModel)),
			Messages: messages,
		}

		resp, err := client.Chat.Completions.New(ctx, params)
		if err != nil {
			return nil, fmt.Errorf("nodetypes: openai request failed: %w", err)
		}
		if len(resp.Choices) == 0 {
			return map[string]any{"completion": ""}, nil
		}
		return map[string]any{"completion": resp.Choices[0].Message.Content}, nil
	}
}
