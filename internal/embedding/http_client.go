package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// httpEmbedder calls a configured OpenAI-compatible embeddings endpoint
// one chunk at a time, avoiding batch-inference issues some local
// embedding servers have.
type httpEmbedder struct {
	cfg Config
	dim int
	mu  sync.Mutex
}

// NewHTTPEmbedder constructs an Embedder backed by cfg's endpoint. Its
// Dimension is 0 until the first successful EmbedBatch, which records the
// length of the returned vectors.
func NewHTTPEmbedder(cfg Config) Embedder {
	if cfg.Path == "" {
		cfg.Path = "/v1/embeddings"
	}
	if cfg.APIHeader == "" {
		cfg.APIHeader = "Authorization"
	}
	return &httpEmbedder{cfg: cfg}
}

func (e *httpEmbedder) Name() string   { return e.cfg.Model }
func (e *httpEmbedder) Dimension() int { return e.dim }

func (e *httpEmbedder) Ping(ctx context.Context) error {
	_, err := e.embed(ctx, []string{"ping"})
	if err != nil {
		return fmt.Errorf("embedding endpoint reachability check: %w", err)
	}
	return nil
}

func (e *httpEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	out := make([][]float32, 0, len(texts))
	for _, t := range texts {
		vecs, err := e.embed(ctx, []string{t})
		if err != nil {
			return out, err
		}
		out = append(out, vecs...)
	}
	if len(out) > 0 {
		e.mu.Lock()
		e.dim = len(out[0])
		e.mu.Unlock()
	}
	return out, nil
}

func (e *httpEmbedder) embed(ctx context.Context, inputs []string) ([][]float32, error) {
	body, err := json.Marshal(embedRequest{Model: e.cfg.Model, Input: inputs})
	if err != nil {
		return nil, err
	}

	timeout := time.Duration(e.cfg.Timeout) * time.Second
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(cctx, http.MethodPost, e.cfg.BaseURL+e.cfg.Path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	if e.cfg.APIHeader == "Authorization" {
		req.Header.Set("Authorization", "Bearer "+e.cfg.APIKey)
	} else if e.cfg.APIHeader != "" {
		req.Header.Set(e.cfg.APIHeader, e.cfg.APIKey)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("embeddings error: %s: %s", resp.Status, string(bodyBytes))
	}

	var er embedResponse
	if err := json.Unmarshal(bodyBytes, &er); err != nil {
		return nil, fmt.Errorf("parse embedding response: %w", err)
	}
	if len(er.Data) != len(inputs) {
		return nil, fmt.Errorf("unexpected embedding count: got %d, want %d", len(er.Data), len(inputs))
	}
	out := make([][]float32, len(er.Data))
	for i := range er.Data {
		out[i] = er.Data[i].Embedding
	}
	return out, nil
}
