// Package graphextract is the LLM-backed path extractor: it turns chunk
// text into (subject, relation, object) triples, in schema-guided
// (strict or non-strict) or schema-free mode, by prompting the model for
// a JSON array of triples and parsing its plain-text reply.
package graphextract

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"hybridrag/internal/llmclient"
	"hybridrag/internal/model"
)

// Options controls extraction mode: SchemaGuided enables a non-empty
// Schema, and Schema.Strict=false keeps off-schema triples rather than
// dropping them.
type Options struct {
	Schema              model.Schema
	SchemaGuided        bool
	MaxTripletsPerChunk int // default 10
}

// Extractor mines triples from chunk text via a configured LLM.
type Extractor struct {
	client llmclient.Client
}

func New(client llmclient.Client) *Extractor {
	return &Extractor{client: client}
}

// Extract returns the triples found in chunk.Text, schema-filtered per
// Options.Schema.Strict when SchemaGuided is set. A chunk yielding no valid
// JSON is treated as producing zero triples rather than failing the job,
// since a single malformed extraction should not abort ingestion.
func (e *Extractor) Extract(ctx context.Context, chunk model.Chunk, opt Options) ([]model.Triple, error) {
	limit := opt.MaxTripletsPerChunk
	if limit <= 0 {
		limit = 10
	}

	system := buildSystemPrompt(opt, limit)
	raw, err := e.client.Complete(ctx, system, chunk.Text)
	if err != nil {
		return nil, fmt.Errorf("path extraction: %w", err)
	}

	candidates, err := parseTriples(raw)
	if err != nil {
		return nil, nil
	}
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}

	out := make([]model.Triple, 0, len(candidates))
	for _, c := range candidates {
		if opt.SchemaGuided && opt.Schema.Strict && !opt.Schema.Allows(c.SubjectLabel, c.Relation, c.ObjectLabel) {
			continue
		}
		c.ChunkIDs = []string{chunk.ID}
		out = append(out, c)
	}
	return out, nil
}

func buildSystemPrompt(opt Options, limit int) string {
	var b strings.Builder
	b.WriteString("Extract factual relationship triples from the passage the user provides. ")
	fmt.Fprintf(&b, "Return at most %d triples. ", limit)
	b.WriteString(`Respond with a JSON array only, each element shaped as {"subject":"","subject_label":"","relation":"","object":"","object_label":""}.`)

	if opt.SchemaGuided {
		if len(opt.Schema.EntityLabels) > 0 {
			fmt.Fprintf(&b, " Entity labels must be one of: %s.", strings.Join(opt.Schema.EntityLabels, ", "))
		}
		if len(opt.Schema.RelationLabels) > 0 {
			fmt.Fprintf(&b, " Relations must be one of: %s.", strings.Join(opt.Schema.RelationLabels, ", "))
		}
		if opt.Schema.Strict {
			b.WriteString(" Only propose triples that fit the given labels.")
		}
	} else {
		b.WriteString(" Entity and relation labels are free-form; choose labels that best describe each entity and relation.")
	}
	return b.String()
}

type rawTriple struct {
	Subject      string `json:"subject"`
	SubjectLabel string `json:"subject_label"`
	Relation     string `json:"relation"`
	Object       string `json:"object"`
	ObjectLabel  string `json:"object_label"`
}

// parseTriples extracts the first top-level JSON array found in raw,
// tolerating an LLM that wraps its answer in prose or a markdown fence.
func parseTriples(raw string) ([]model.Triple, error) {
	start := strings.Index(raw, "[")
	end := strings.LastIndex(raw, "]")
	if start == -1 || end == -1 || end < start {
		return nil, fmt.Errorf("no JSON array found in model output")
	}
	var parsed []rawTriple
	if err := json.Unmarshal([]byte(raw[start:end+1]), &parsed); err != nil {
		return nil, fmt.Errorf("parse triples json: %w", err)
	}
	out := make([]model.Triple, 0, len(parsed))
	for _, p := range parsed {
		if strings.TrimSpace(p.Subject) == "" || strings.TrimSpace(p.Object) == "" || strings.TrimSpace(p.Relation) == "" {
			continue
		}
		out = append(out, model.Triple{
			Subject:      p.Subject,
			SubjectLabel: p.SubjectLabel,
			Relation:     p.Relation,
			Object:       p.Object,
			ObjectLabel:  p.ObjectLabel,
		})
	}
	return out, nil
}
