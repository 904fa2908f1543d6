package llmclient

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	genai "google.golang.org/genai"
)

// geminiClient wraps the Gemini generate-content API for single-turn
// completions, with no tool calling, streaming, or thought-signature
// handling.
type geminiClient struct {
	client *genai.Client
	model  string
}

func newGeminiClient(cfg Config) (*geminiClient, error) {
	model := cfg.Model
	if model == "" {
		model = "gemini-1.5-flash"
	}
	httpOpts := genai.HTTPOptions{}
	if cfg.BaseURL != "" {
		httpOpts.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/") + "/"
	}
	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:      cfg.APIKey,
		HTTPClient:  http.DefaultClient,
		HTTPOptions: httpOpts,
	})
	if err != nil {
		return nil, fmt.Errorf("init gemini client: %w", err)
	}
	return &geminiClient{client: client, model: model}, nil
}

// Complete folds the system prompt into the leading user-role content
// block rather than a dedicated system-instruction field, mirroring how
// internal/llm/google/client.go's toContents maps both "system" and "user"
// roles onto genai.RoleUser.
func (c *geminiClient) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	text := userPrompt
	if systemPrompt != "" {
		text = systemPrompt + "\n\n" + userPrompt
	}
	contents := []*genai.Content{
		{Role: genai.RoleUser, Parts: []*genai.Part{{Text: text}}},
	}
	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, &genai.GenerateContentConfig{})
	if err != nil {
		return "", fmt.Errorf("gemini generate content: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("gemini generate content: no candidates returned")
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil && part.Text != "" {
			sb.WriteString(part.Text)
		}
	}
	return sb.String(), nil
}
