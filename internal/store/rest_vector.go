package store

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"hybridrag/internal/model"
)

// restVector is the Elasticsearch/OpenSearch vector backend, storing the
// embedding in a field mapped as OpenSearch's knn_vector type and querying
// with OpenSearch's knn query clause, for either engine. Both
// accept the same document-indexing REST calls restSearch already issues,
// so this type reuses restSearch's do() helper against the same index.
type restVector struct {
	rs  *restSearch
	dim int
}

// NewRESTVector constructs a vector store against an Elasticsearch or
// OpenSearch index; the vector is always stored in the field named
// "embedding".
func NewRESTVector(baseURL, index string) VectorStore {
	return &restVector{rs: &restSearch{baseURL: strings.TrimRight(baseURL, "/"), index: index, client: http.DefaultClient}}
}

func (r *restVector) EnsureDimension(ctx context.Context, dim int) error {
	mapping := map[string]any{
		"mappings": map[string]any{
			"properties": map[string]any{
				"embedding": map[string]any{
					"type":      "knn_vector",
					"dimension": dim,
				},
				"text":     map[string]any{"type": "text"},
				"metadata": map[string]any{"type": "object"},
			},
		},
	}
	// PUT is idempotent against an already-created index on most clusters'
	// "ignore index already exists" behavior; a genuine mismatch surfaces
	// on the first Upsert instead of here.
	_ = r.rs.do(ctx, http.MethodPut, "/"+r.rs.index, mapping, nil)
	r.dim = dim
	return nil
}

func (r *restVector) Upsert(ctx context.Context, chunk model.Chunk) error {
	doc := map[string]any{
		"text":      chunk.Text,
		"embedding": chunk.Embedding,
		"metadata":  chunkMetadata(chunk),
	}
	return r.rs.do(ctx, http.MethodPut, fmt.Sprintf("/%s/_doc/%s", r.rs.index, chunk.ID), doc, nil)
}

func (r *restVector) Delete(ctx context.Context, chunkID string) error {
	return r.rs.do(ctx, http.MethodDelete, fmt.Sprintf("/%s/_doc/%s", r.rs.index, chunkID), nil, nil)
}

func (r *restVector) Search(ctx context.Context, embedding []float32, k int) ([]VectorResult, error) {
	if k <= 0 {
		k = 10
	}
	body := map[string]any{
		"size": k,
		"query": map[string]any{
			"knn": map[string]any{
				"embedding": map[string]any{
					"vector": embedding,
					"k":      k,
				},
			},
		},
	}
	var resp restSearchResponse
	if err := r.rs.do(ctx, http.MethodPost, fmt.Sprintf("/%s/_search", r.rs.index), body, &resp); err != nil {
		return nil, err
	}
	out := make([]VectorResult, 0, len(resp.Hits.Hits))
	for _, h := range resp.Hits.Hits {
		out = append(out, VectorResult{ChunkID: h.ID, Score: h.Score, Text: h.Source.Text, Metadata: h.Source.Metadata})
	}
	return out, nil
}

func (r *restVector) Close() error { return nil }
