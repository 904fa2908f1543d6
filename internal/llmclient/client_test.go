package llmclient

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNew_DispatchesByProvider(t *testing.T) {
	c := New(Config{Provider: "anthropic", Model: "claude-3-7-sonnet-latest", APIKey: "test"})
	_, ok := c.(*anthropicClient)
	require.True(t, ok)

	c = New(Config{Provider: "openai", Model: "gpt-4o-mini", APIKey: "test"})
	_, ok = c.(*openaiClient)
	require.True(t, ok)

	c = New(Config{Provider: "ollama", Model: "llama3", BaseURL: "http://localhost:11434/v1"})
	_, ok = c.(*openaiClient)
	require.True(t, ok)

	c = New(Config{Provider: "gemini", Model: "gemini-1.5-flash", APIKey: "test"})
	_, ok = c.(*geminiClient)
	require.True(t, ok)
}
