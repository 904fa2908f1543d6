// Package store holds the vector, graph, and full-text index backends
// behind capability interfaces, plus memory, Postgres, Qdrant, SQLite,
// and REST implementations.
package store

import (
	"context"

	"hybridrag/internal/model"
)

// VectorResult is a single nearest-neighbor hit.
type VectorResult struct {
	ChunkID  string
	Score    float64
	Text     string
	Metadata map[string]string
}

// VectorStore is the dense embedding index backend.
type VectorStore interface {
	// EnsureDimension validates (or, for a freshly created store,
	// establishes) that the store uses dim.
	EnsureDimension(ctx context.Context, dim int) error
	Upsert(ctx context.Context, chunk model.Chunk) error
	Delete(ctx context.Context, chunkID string) error
	Search(ctx context.Context, embedding []float32, k int) ([]VectorResult, error)
	Close() error
}

// GraphResult is a graph-derived passage returned to the retrieval composer,
// already rendered as prose text describing the matched triples.
type GraphResult struct {
	ChunkIDs []string
	Text     string
	Score    float64
}

// GraphStore is the property-graph index backend.
type GraphStore interface {
	// EnsureSchema materializes the node/relation tables a typed backend
	// (kuzu) needs before first write; a no-op for schemaless backends.
	EnsureSchema(ctx context.Context, schema model.Schema) error
	UpsertTriple(ctx context.Context, t model.Triple) error
	// Search returns graph-derived passages relevant to query, matched by
	// substring/keyword overlap against subject/object/relation text.
	Search(ctx context.Context, query string, k int) ([]GraphResult, error)
	Close() error
}

// SearchResult is a single full-text hit.
type SearchResult struct {
	ChunkID  string
	Score    float64
	Text     string
	Metadata map[string]string
}

// FullTextStore is the sparse/full-text index backend.
type FullTextStore interface {
	Index(ctx context.Context, chunk model.Chunk) error
	Remove(ctx context.Context, chunkID string) error
	Search(ctx context.Context, query string, k int) ([]SearchResult, error)
	Close() error
}

// Manager holds the concrete backends resolved from configuration,
// grouping Search/Vector/Graph behind one value the rest of the engine
// depends on.
type Manager struct {
	Vector VectorStore
	Graph  GraphStore
	Search FullTextStore
}

// Close releases any pooled connections/handles. Safe to call on a Manager
// with nil fields (disabled backends).
func (m Manager) Close() {
	if m.Vector != nil {
		_ = m.Vector.Close()
	}
	if m.Graph != nil {
		_ = m.Graph.Close()
	}
	if m.Search != nil {
		_ = m.Search.Close()
	}
}
