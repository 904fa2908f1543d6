package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"hybridrag/internal/model"
)

// memoryGraph is an in-process GraphStore for tests and local
// development, storing model.Triple records directly rather than
// generic node/edge pairs.
type memoryGraph struct {
	mu      sync.RWMutex
	triples []model.Triple
	schema  model.Schema
}

func NewMemoryGraph() GraphStore {
	return &memoryGraph{}
}

func (g *memoryGraph) EnsureSchema(_ context.Context, schema model.Schema) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.schema = schema
	return nil
}

func (g *memoryGraph) UpsertTriple(_ context.Context, t model.Triple) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.triples = append(g.triples, t)
	return nil
}

func (g *memoryGraph) Search(_ context.Context, query string, k int) ([]GraphResult, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if k <= 0 {
		k = 5
	}
	q := strings.ToLower(query)
	terms := strings.Fields(q)

	out := make([]GraphResult, 0, len(g.triples))
	for _, t := range g.triples {
		text := fmt.Sprintf("%s -> %s -> %s", t.Subject, t.Relation, t.Object)
		lower := strings.ToLower(text)
		var score float64
		for _, term := range terms {
			if term == "" {
				continue
			}
			if strings.Contains(lower, term) {
				score++
			}
		}
		if score == 0 {
			continue
		}
		out = append(out, GraphResult{ChunkIDs: t.ChunkIDs, Text: text, Score: score})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if len(out) > k {
		out = out[:k]
	}
	return out, nil
}

func (g *memoryGraph) Close() error { return nil }
