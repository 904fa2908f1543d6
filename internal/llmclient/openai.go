package llmclient

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	sdk "github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
)

// openaiClient talks to any OpenAI-compatible chat completions endpoint:
// OpenAI itself, Azure OpenAI, or Ollama's /v1 shim.
type openaiClient struct {
	sdk   sdk.Client
	model string
}

func newOpenAIClient(cfg Config) *openaiClient {
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(strings.TrimSuffix(cfg.BaseURL, "/")))
	}
	opts = append(opts, option.WithHTTPClient(http.DefaultClient))
	return &openaiClient{sdk: sdk.NewClient(opts...), model: cfg.Model}
}

func (c *openaiClient) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	params := sdk.ChatCompletionNewParams{
		Model: sdk.ChatModel(c.model),
		Messages: []sdk.ChatCompletionMessageParamUnion{
			sdk.SystemMessage(systemPrompt),
			sdk.UserMessage(userPrompt),
		},
	}
	comp, err := c.sdk.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("openai chat completion: %w", err)
	}
	if len(comp.Choices) == 0 {
		return "", fmt.Errorf("openai chat completion: no choices returned")
	}
	return comp.Choices[0].Message.Content, nil
}
