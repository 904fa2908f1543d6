package retrieve

import (
	"context"
	"fmt"
	"strings"

	"hybridrag/internal/engine/errs"
)

// queryTopK is the context size fed to the answer-generating LLM.
const queryTopK = 5

const querySystemPrompt = `You are a helpful assistant answering questions using only the provided context. If the context does not contain the answer, say you don't know. Be concise.`

// Query answers a free-form question by composing Search's top results
// into context and routing them through an LLM answer generator that
// uses the same composed retrieval as its context.
func (c *Composer) Query(ctx context.Context, query string) (string, error) {
	results, err := c.Search(ctx, query, queryTopK)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	if len(results) == 0 {
		b.WriteString("(no relevant passages found)\n")
	}
	for _, r := range results {
		fmt.Fprintf(&b, "[%d] (%s) %s\n\n", r.Rank, r.Source, r.Content)
	}

	userPrompt := fmt.Sprintf("Context:\n%s\nQuestion: %s\nAnswer:", b.String(), query)
	answer, err := c.llm.Complete(ctx, querySystemPrompt, userPrompt)
	if err != nil {
		return "", errs.ModelIO("generate answer", err)
	}
	return answer, nil
}
