// Package llmclient wraps the three model providers the engine collaborates
// with, OpenAI-compatible chat completions, Anthropic messages, and Gemini, behind
// one narrow Client interface. Tool-calling, streaming, and multi-provider
// routing are left out: neither chunk summarization nor graph extraction
// needs them.
package llmclient

import "context"

// Client produces a single completion from a system prompt and a user
// prompt. Both the rolling chunk summarizer and the graph triple
// extractor use this shape: one instruction, one payload, one text
// response.
type Client interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Config is the subset of the configured llm_* keys a Client needs to
// construct itself.
type Config struct {
	Provider string // "openai" | "anthropic" | "ollama" | "azure_openai" | "gemini"
	Model    string
	BaseURL  string
	APIKey   string
}

// New constructs the Client matching cfg.Provider. Ollama and Azure OpenAI
// speak the OpenAI-compatible chat completions API (the former natively,
// the latter via the same request shape against a different base URL), so
// both route through openaiClient with BaseURL pointed accordingly.
func New(cfg Config) Client {
	switch cfg.Provider {
	case "anthropic":
		return newAnthropicClient(cfg)
	case "gemini":
		if c, err := newGeminiClient(cfg); err == nil {
			return c
		}
		return newOpenAIClient(cfg)
	default:
		return newOpenAIClient(cfg)
	}
}
