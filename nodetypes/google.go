package nodetypes

import (
	"context"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/nodeforge/nodeforge/executor"
	"github.com/nodeforge/nodeforge/wfnode"
)

// TypeGoogleGenAI is the node type key registered by RegisterGoogleGenAINode.
const TypeGoogleGenAI = "llm:google"

const defaultGoogleModel = "gemini-2.5-flash"

// RegisterGoogleGenAINode installs an executor.ExecutorFunc under
// TypeGoogleGenAI that calls Google's Gemini API. apiKey is shared across
// every node of this type; a per-node model name comes from
// Node.Config["model"].
func RegisterGoogleGenAINode(reg *executor.Registry, apiKey string, opts ...executor.RegisterOption) error {
	return reg.Register(TypeGoogleGenAI, googleExecutor(apiKey), opts...)
}

func googleExecutor(apiKey string) executor.ExecutorFunc {
	return func(ctx context.Context, n *wfnode.Node, inputs map[string]any) (map[string]any, error) {
		prompt, err := promptOf(inputs)
		if err != nil {
			return nil, err
		}

		client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
		if err != nil {
			return nil, fmt.Errorf("nodetypes: google client init failed: %w", err)
		}
		defer client.Close()

		genModel := client.GenerativeModel(configString(n.Config, "model", defaultGoogleModel))
		if sp := configString(n.Config, "systemPrompt", ""); sp != "" {
			genModel.SystemInstruction = genai.NewUserContent(genai.Text(sp))
		}

		resp, err := genModel.GenerateContent(ctx, genai.Text(prompt))
		if err != nil {
			return nil, fmt.Errorf("nodetypes: google request failed: %w", err)
		}

		var completion string
		if len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil {
			for _, part := range resp.Candidates[0].Content.Parts {
				if t, ok := part.(genai.Text); ok {
					if completion != "" {
						completion += "\n"
					}
					completion += string(t)
				}
			}
		}
		return map[string]any{"completion": completion}, nil
	}
}
