package store

import (
	"context"
	"sort"
	"strings"
	"sync"

	"hybridrag/internal/model"
)

type memorySearchEntry struct {
	text     string
	metadata map[string]string
}

// memorySearch is a naive term-count in-process FullTextStore for tests
// and local development.
type memorySearch struct {
	mu   sync.RWMutex
	docs map[string]memorySearchEntry
}

func NewMemorySearch() FullTextStore {
	return &memorySearch{docs: make(map[string]memorySearchEntry)}
}

func (m *memorySearch) Index(_ context.Context, chunk model.Chunk) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[chunk.ID] = memorySearchEntry{text: chunk.Text, metadata: chunkMetadata(chunk)}
	return nil
}

func (m *memorySearch) Remove(_ context.Context, chunkID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.docs, chunkID)
	return nil
}

func (m *memorySearch) Search(_ context.Context, query string, k int) ([]SearchResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if k <= 0 {
		k = 10
	}
	terms := strings.Fields(strings.ToLower(query))
	out := make([]SearchResult, 0, len(m.docs))
	for id, d := range m.docs {
		lower := strings.ToLower(d.text)
		var score float64
		for _, t := range terms {
			if t == "" {
				continue
			}
			if c := strings.Count(lower, t); c > 0 {
				score += float64(c)
			}
		}
		if score == 0 {
			continue
		}
		out = append(out, SearchResult{ChunkID: id, Score: score, Text: d.text, Metadata: d.metadata})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if len(out) > k {
		out = out[:k]
	}
	return out, nil
}

func (m *memorySearch) Close() error { return nil }
