package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"hybridrag/internal/model"
)

// restSearch is the Elasticsearch/OpenSearch full-text backend: it writes
// chunk text to a named index using the store's native indexing. Both
// clusters speak the same documented REST API, so this talks to the
// cluster's document and _search endpoints directly over net/http rather
// than depending on a dedicated client library.
type restSearch struct {
	baseURL string
	index   string
	client  *http.Client
}

func NewRESTSearch(baseURL, index string) FullTextStore {
	return &restSearch{baseURL: strings.TrimRight(baseURL, "/"), index: index, client: http.DefaultClient}
}

func (r *restSearch) Index(ctx context.Context, chunk model.Chunk) error {
	doc := map[string]any{
		"text":     chunk.Text,
		"metadata": chunkMetadata(chunk),
	}
	return r.do(ctx, http.MethodPut, fmt.Sprintf("/%s/_doc/%s", r.index, chunk.ID), doc, nil)
}

func (r *restSearch) Remove(ctx context.Context, chunkID string) error {
	err := r.do(ctx, http.MethodDelete, fmt.Sprintf("/%s/_doc/%s", r.index, chunkID), nil, nil)
	return err
}

type restSearchResponse struct {
	Hits struct {
		Hits []struct {
			ID     string  `json:"_id"`
			Score  float64 `json:"_score"`
			Source struct {
				Text     string            `json:"text"`
				Metadata map[string]string `json:"metadata"`
			} `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

func (r *restSearch) Search(ctx context.Context, query string, k int) ([]SearchResult, error) {
	if k <= 0 {
		k = 10
	}
	body := map[string]any{
		"size": k,
		"query": map[string]any{
			"match": map[string]any{"text": query},
		},
	}
	var resp restSearchResponse
	if err := r.do(ctx, http.MethodPost, fmt.Sprintf("/%s/_search", r.index), body, &resp); err != nil {
		return nil, err
	}
	out := make([]SearchResult, 0, len(resp.Hits.Hits))
	for _, h := range resp.Hits.Hits {
		out = append(out, SearchResult{ChunkID: h.ID, Score: h.Score, Text: h.Source.Text, Metadata: h.Source.Metadata})
	}
	return out, nil
}

func (r *restSearch) Close() error { return nil }

func (r *restSearch) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, r.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := r.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("%s %s: %s: %s", method, path, resp.Status, string(respBody))
	}
	if out != nil {
		return json.Unmarshal(respBody, out)
	}
	return nil
}
