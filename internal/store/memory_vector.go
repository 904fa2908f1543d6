package store

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"hybridrag/internal/model"
)

type memoryVectorEntry struct {
	vec      []float32
	text     string
	metadata map[string]string
}

// memoryVector is an in-process VectorStore for tests and local
// development, indexing model.Chunk directly rather than a bare
// id/vector/metadata tuple.
type memoryVector struct {
	mu      sync.RWMutex
	dim     int
	entries map[string]memoryVectorEntry
}

func NewMemoryVector() VectorStore {
	return &memoryVector{entries: make(map[string]memoryVectorEntry)}
}

func (m *memoryVector) EnsureDimension(_ context.Context, dim int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.dim == 0 {
		m.dim = dim
		return nil
	}
	if m.dim != dim {
		return fmt.Errorf("vector store dimension mismatch: store uses %d, got %d", m.dim, dim)
	}
	return nil
}

func (m *memoryVector) Upsert(_ context.Context, chunk model.Chunk) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]float32, len(chunk.Embedding))
	copy(cp, chunk.Embedding)
	m.entries[chunk.ID] = memoryVectorEntry{vec: cp, text: chunk.Text, metadata: chunkMetadata(chunk)}
	return nil
}

func (m *memoryVector) Delete(_ context.Context, chunkID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, chunkID)
	return nil
}

func (m *memoryVector) Search(_ context.Context, embedding []float32, k int) ([]VectorResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if k <= 0 {
		k = 10
	}
	qnorm := l2norm(embedding)
	out := make([]VectorResult, 0, len(m.entries))
	for id, e := range m.entries {
		out = append(out, VectorResult{
			ChunkID:  id,
			Score:    cosineSimilarity(embedding, e.vec, qnorm),
			Text:     e.text,
			Metadata: e.metadata,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if len(out) > k {
		out = out[:k]
	}
	return out, nil
}

func (m *memoryVector) Close() error { return nil }

func chunkMetadata(c model.Chunk) map[string]string {
	md := map[string]string{
		"doc_id":    c.DocID,
		"source":    c.Source,
		"file_name": c.FileName,
		"file_type": c.FileType,
	}
	for k, v := range c.Metadata {
		md[k] = v
	}
	return md
}

func l2norm(a []float32) float64 {
	var s float64
	for _, x := range a {
		s += float64(x) * float64(x)
	}
	return math.Sqrt(s)
}

func cosineSimilarity(a, b []float32, anorm float64) float64 {
	if anorm == 0 {
		anorm = l2norm(a)
	}
	bnorm := l2norm(b)
	if anorm == 0 || bnorm == 0 {
		return 0
	}
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot / (anorm * bnorm)
}
