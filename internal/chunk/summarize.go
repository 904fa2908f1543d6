package chunk

import (
	"context"
	"fmt"
	"strings"

	"hybridrag/internal/llmclient"
)

// Summarizer computes a rolling three-chunk summary: previous, current,
// and next chunk text provide local context for summarizing the current
// chunk.
type Summarizer interface {
	Summarize(prev, current, next string) string
}

// ExtractiveSummarizer is a deterministic fallback requiring no model
// call: it takes the first sentence of the current chunk plus, when
// present, a one-sentence bridge drawn from the next chunk (or from the
// previous chunk when there is no next one), keeping enrichment
// reproducible when no LLM is configured.
type ExtractiveSummarizer struct{}

func (ExtractiveSummarizer) Summarize(prev, current, next string) string {
	cur := firstSentence(current)
	if cur == "" {
		return ""
	}
	bridge := firstSentence(next)
	if bridge == "" {
		bridge = firstSentence(prev)
	}
	if bridge == "" {
		return cur
	}
	return cur + " " + bridge
}

func firstSentence(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}
	if loc := sentenceEnd.FindStringIndex(text); loc != nil {
		return strings.TrimSpace(text[:loc[0]+1])
	}
	if len(text) > 200 {
		return text[:200] + "..."
	}
	return text
}

// LLMSummarizer calls out to a configured model for the rolling summary,
// falling back to ExtractiveSummarizer on any failure so enrichment never
// blocks a job on a transient model error.
type LLMSummarizer struct {
	Client   llmclient.Client
	fallback ExtractiveSummarizer
}

func NewLLMSummarizer(c llmclient.Client) LLMSummarizer {
	return LLMSummarizer{Client: c}
}

const summarizeSystemPrompt = "Summarize the CURRENT passage in one concise sentence, using the PREVIOUS and NEXT passages only for context. Respond with the sentence only."

func (s LLMSummarizer) Summarize(prev, current, next string) string {
	if s.Client == nil {
		return s.fallback.Summarize(prev, current, next)
	}
	prompt := fmt.Sprintf("PREVIOUS:\n%s\n\nCURRENT:\n%s\n\nNEXT:\n%s", prev, current, next)
	out, err := s.Client.Complete(context.Background(), summarizeSystemPrompt, prompt)
	if err != nil || strings.TrimSpace(out) == "" {
		return s.fallback.Summarize(prev, current, next)
	}
	return strings.TrimSpace(out)
}
