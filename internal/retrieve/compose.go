package retrieve

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"hybridrag/internal/config"
	"hybridrag/internal/embedding"
	"hybridrag/internal/engine/errs"
	"hybridrag/internal/llmclient"
	"hybridrag/internal/store"
)

// Per-retriever candidate counts before fusion.
const (
	vectorTopK = 10
	graphTopK  = 5
)

const notInitializedMsg = "System not initialized. Please ingest documents first."

// Result is one ranked, deduplicated hit returned from Search.
type Result struct {
	Rank     int
	Content  string
	Score    float64
	Source   string
	FileType string
	FileName string
}

type composerState int

const (
	stateUninitialized composerState = iota
	stateReady
)

// Composer owns zero-to-three retriever backends plus the embedder and
// LLM needed to query them, fuses their candidates, deduplicates
// graph-decorated passages, and answers free-form queries over the same
// composed retrieval.
type Composer struct {
	mu    sync.RWMutex
	state composerState

	cfg      config.Config
	mgr      store.Manager
	hybrid   *store.OpenSearchHybrid // set only when cfg.UsesOpenSearchNativeHybrid()
	embedder embedding.Embedder
	llm      llmclient.Client
}

// New constructs a Composer in the UNINITIALIZED state. cfg must satisfy
// config.Validate (at least one backend enabled); hybrid is non-nil only
// when cfg.UsesOpenSearchNativeHybrid(). Call MarkReady once the backends
// named by cfg have been populated by a successful ingestion.
func New(cfg config.Config, mgr store.Manager, hybrid *store.OpenSearchHybrid, embedder embedding.Embedder, llm llmclient.Client) (*Composer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errs.ConfigInvalid(err.Error())
	}
	return &Composer{cfg: cfg, mgr: mgr, hybrid: hybrid, embedder: embedder, llm: llm}, nil
}

// consistentLocked reports whether every backend cfg enables is actually
// present on the Composer. Called with mu held.
func (c *Composer) consistentLocked() bool {
	native := c.cfg.UsesOpenSearchNativeHybrid()
	if native {
		return c.hybrid != nil
	}
	if c.cfg.VectorDB != config.VectorNone && c.mgr.Vector == nil {
		return false
	}
	if c.cfg.SearchDB != config.SearchNone && c.mgr.Search == nil {
		return false
	}
	if c.cfg.GraphDB != config.GraphNone && c.mgr.Graph == nil {
		return false
	}
	return true
}

// MarkReady transitions the Composer to READY if its backends are
// consistent with cfg, or returns an error (leaving it UNINITIALIZED)
// otherwise.
func (c *Composer) MarkReady() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.consistentLocked() {
		c.state = stateUninitialized
		return errs.ConfigInvalid("cannot mark composer ready: configured backend missing")
	}
	c.state = stateReady
	return nil
}

// Reset clears the Composer back to UNINITIALIZED, discarding nothing of
// the underlying stores; external-store residue is left for an
// out-of-band reset.
func (c *Composer) Reset() {
	c.mu.Lock()
	c.state = stateUninitialized
	c.mu.Unlock()
}

// checkReady re-validates backend consistency on every call, detecting an
// inconsistent partial state and transitioning back to UNINITIALIZED at
// query time rather than only at construction, and reports whether the
// composer may serve a query.
func (c *Composer) checkReady() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != stateReady {
		return false
	}
	if !c.consistentLocked() {
		c.state = stateUninitialized
		return false
	}
	return true
}

// Search returns the top topK fused, deduplicated results for query.
func (c *Composer) Search(ctx context.Context, query string, topK int) ([]Result, error) {
	if !c.checkReady() {
		return nil, errs.ConfigInvalid(notInitializedMsg)
	}
	if topK <= 0 {
		topK = 10
	}

	vectorHits, bm25Hits, graphHits, activeCount, err := c.gatherAll(ctx, query)
	if err != nil {
		return nil, err
	}

	var fused []candidate
	if activeCount <= 1 {
		switch {
		case len(vectorHits) > 0:
			fused = singleSource(vectorHits)
		case len(bm25Hits) > 0:
			fused = singleSource(bm25Hits)
		case len(graphHits) > 0:
			fused = singleSource(graphHits)
		}
	} else {
		fused = fuseRRF(vectorHits, bm25Hits, graphHits, defaultRRFK)
	}

	if len(fused) > fusedTopK {
		fused = fused[:fusedTopK]
	}
	fused = filterRelevant(fused)
	fused = dedup(fused)

	if len(fused) > topK {
		fused = fused[:topK]
	}

	out := make([]Result, 0, len(fused))
	for i, c := range fused {
		source, fileType, fileName := c.Source, c.FileType, c.FileName
		if source == "" {
			source = valueOr(c.Metadata, "source", "Unknown")
		}
		if fileType == "" {
			fileType = valueOr(c.Metadata, "file_type", "Unknown")
		}
		if fileName == "" {
			fileName = valueOr(c.Metadata, "file_name", "Unknown")
		}
		out = append(out, Result{
			Rank:     i + 1,
			Content:  c.Text,
			Score:    c.Fused,
			Source:   source,
			FileType: fileType,
			FileName: fileName,
		})
	}
	return out, nil
}

func valueOr(m map[string]string, key, fallback string) string {
	if m == nil {
		return fallback
	}
	if v, ok := m[key]; ok && v != "" {
		return v
	}
	return fallback
}

// gatherAll fetches each enabled retriever's candidates at its
// per-retriever top-k and reports how many distinct retrievers are
// active, honoring the OpenSearch native hybrid collapse where vector
// and search become one retriever.
func (c *Composer) gatherAll(ctx context.Context, query string) (vector, bm25, graph []sourceHits, active int, err error) {
	c.mu.RLock()
	cfg := c.cfg
	mgr := c.mgr
	hybrid := c.hybrid
	embedder := c.embedder
	c.mu.RUnlock()

	native := cfg.UsesOpenSearchNativeHybrid()

	if native {
		if hybrid != nil {
			vector, err = c.searchHybrid(ctx, hybrid, embedder, query, vectorTopK)
			if err != nil {
				return nil, nil, nil, 0, err
			}
			active++
		}
	} else {
		if cfg.VectorDB != config.VectorNone && mgr.Vector != nil {
			vector, err = c.searchVector(ctx, mgr.Vector, embedder, query, vectorTopK)
			if err != nil {
				return nil, nil, nil, 0, err
			}
			active++
		}
		if cfg.SearchDB != config.SearchNone && mgr.Search != nil {
			k := cfg.BM25SimilarityTopK
			if k <= 0 {
				k = 10
			}
			bm25, err = c.searchText(ctx, mgr.Search, query, k)
			if err != nil {
				return nil, nil, nil, 0, err
			}
			active++
		}
	}

	if cfg.GraphDB != config.GraphNone && mgr.Graph != nil {
		graph, err = c.searchGraph(ctx, mgr.Graph, query, graphTopK)
		if err != nil {
			return nil, nil, nil, 0, err
		}
		active++
	}

	return vector, bm25, graph, active, nil
}

func (c *Composer) searchVector(ctx context.Context, vs store.VectorStore, embedder embedding.Embedder, query string, k int) ([]sourceHits, error) {
	vecs, err := embedder.EmbedBatch(ctx, []string{query})
	if err != nil {
		return nil, errs.ModelIO("embed query", err)
	}
	if len(vecs) == 0 {
		return nil, nil
	}
	results, err := vs.Search(ctx, vecs[0], k)
	if err != nil {
		return nil, errs.BackendIO("vector search", err)
	}
	hits := make([]sourceHits, 0, len(results))
	for _, r := range results {
		hits = append(hits, sourceHits{
			chunkID: r.ChunkID, text: r.Text, metadata: r.Metadata,
			source: valueOr(r.Metadata, "source", ""), fileType: valueOr(r.Metadata, "file_type", ""),
			fileName: valueOr(r.Metadata, "file_name", ""), score: r.Score,
		})
	}
	return hits, nil
}

func (c *Composer) searchText(ctx context.Context, fs store.FullTextStore, query string, k int) ([]sourceHits, error) {
	results, err := fs.Search(ctx, query, k)
	if err != nil {
		return nil, errs.BackendIO("text search", err)
	}
	hits := make([]sourceHits, 0, len(results))
	for _, r := range results {
		hits = append(hits, sourceHits{
			chunkID: r.ChunkID, text: r.Text, metadata: r.Metadata,
			source: valueOr(r.Metadata, "source", ""), fileType: valueOr(r.Metadata, "file_type", ""),
			fileName: valueOr(r.Metadata, "file_name", ""), score: r.Score,
		})
	}
	return hits, nil
}

func (c *Composer) searchGraph(ctx context.Context, gs store.GraphStore, query string, k int) ([]sourceHits, error) {
	results, err := gs.Search(ctx, query, k)
	if err != nil {
		return nil, errs.BackendIO("graph search", err)
	}
	hits := make([]sourceHits, 0, len(results))
	for i, r := range results {
		id := fmt.Sprintf("graph:%d", i)
		if len(r.ChunkIDs) > 0 {
			id = "graph:" + strings.Join(r.ChunkIDs, "+")
		}
		hits = append(hits, sourceHits{chunkID: id, text: r.Text, score: r.Score})
	}
	return hits, nil
}

func (c *Composer) searchHybrid(ctx context.Context, h *store.OpenSearchHybrid, embedder embedding.Embedder, query string, k int) ([]sourceHits, error) {
	vecs, err := embedder.EmbedBatch(ctx, []string{query})
	if err != nil {
		return nil, errs.ModelIO("embed query", err)
	}
	var emb []float32
	if len(vecs) > 0 {
		emb = vecs[0]
	}
	results, err := h.Search(ctx, query, emb, k)
	if err != nil {
		return nil, errs.BackendIO("opensearch hybrid search", err)
	}
	hits := make([]sourceHits, 0, len(results))
	for _, r := range results {
		hits = append(hits, sourceHits{
			chunkID: r.ChunkID, text: r.Text, metadata: r.Metadata,
			source: valueOr(r.Metadata, "source", ""), fileType: valueOr(r.Metadata, "file_type", ""),
			fileName: valueOr(r.Metadata, "file_name", ""), score: r.Score,
		})
	}
	return hits, nil
}
