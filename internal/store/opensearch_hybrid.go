package store

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

// OpenSearchHybrid issues a single query against an OpenSearch search
// pipeline that normalizes and combines vector and text scores: the
// pipeline (named hybrid-search-pipeline by default) normalizes vector
// and text scores with min_max and combines them with harmonic_mean
// using configurable weights summing to 1.0. This is a distinct
// retrieval path from restVector/restSearch because the two scores are
// combined server-side rather than fused by the retrieval composer.
type OpenSearchHybrid struct {
	rs             *restSearch
	PipelineName   string
	VectorWeight   float64
	TextWeight     float64
}

func NewOpenSearchHybrid(baseURL, index, pipelineName string, vectorWeight, textWeight float64) *OpenSearchHybrid {
	return &OpenSearchHybrid{
		rs:           &restSearch{baseURL: strings.TrimRight(baseURL, "/"), index: index, client: http.DefaultClient},
		PipelineName: pipelineName,
		VectorWeight: vectorWeight,
		TextWeight:   textWeight,
	}
}

// EnsurePipeline PUTs the named search pipeline, creating it or replacing
// an existing definition, configured with normalization-processor min_max
// + harmonic_mean combination using the configured weights.
func (h *OpenSearchHybrid) EnsurePipeline(ctx context.Context) error {
	body := map[string]any{
		"description": "hybrid vector+text score combination",
		"phase_results_processors": []any{
			map[string]any{
				"normalization-processor": map[string]any{
					"normalization": map[string]any{"technique": "min_max"},
					"combination": map[string]any{
						"technique": "harmonic_mean",
						"parameters": map[string]any{
							"weights": []float64{h.VectorWeight, h.TextWeight},
						},
					},
				},
			},
		},
	}
	return h.rs.do(ctx, http.MethodPut, "/_search/pipeline/"+h.PipelineName, body, nil)
}

// Search runs the combined knn+match query through the configured pipeline.
func (h *OpenSearchHybrid) Search(ctx context.Context, queryText string, embedding []float32, k int) ([]VectorResult, error) {
	if k <= 0 {
		k = 10
	}
	body := map[string]any{
		"size": k,
		"query": map[string]any{
			"hybrid": map[string]any{
				"queries": []any{
					map[string]any{"match": map[string]any{"text": queryText}},
					map[string]any{"knn": map[string]any{"embedding": map[string]any{"vector": embedding, "k": k}}},
				},
			},
		},
	}
	var resp restSearchResponse
	path := fmt.Sprintf("/%s/_search?search_pipeline=%s", h.rs.index, h.PipelineName)
	if err := h.rs.do(ctx, http.MethodPost, path, body, &resp); err != nil {
		return nil, err
	}
	out := make([]VectorResult, 0, len(resp.Hits.Hits))
	for _, hit := range resp.Hits.Hits {
		out = append(out, VectorResult{ChunkID: hit.ID, Score: hit.Score, Text: hit.Source.Text, Metadata: hit.Source.Metadata})
	}
	return out, nil
}
