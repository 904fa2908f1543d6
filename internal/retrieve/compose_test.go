package retrieve

import (
	"context"
	"testing"

	"hybridrag/internal/config"
	"hybridrag/internal/embedding"
	"hybridrag/internal/engine/errs"
	"hybridrag/internal/model"
	"hybridrag/internal/store"
)

type fakeLLM struct{ answer string }

func (f *fakeLLM) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return f.answer, nil
}

func newTestComposer(t *testing.T, cfg config.Config, mgr store.Manager) *Composer {
	t.Helper()
	c, err := New(cfg, mgr, nil, embedding.NewDeterministic(32, true, 1), &fakeLLM{answer: "the answer"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestComposer_SearchBeforeReadyFails(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.VectorDB = config.VectorNone
	cfg.SearchDB = config.SearchBM25
	mgr := store.Manager{Search: store.NewMemorySearch()}
	c := newTestComposer(t, cfg, mgr)

	_, err := c.Search(context.Background(), "hello", 5)
	if !errs.Is(err, errs.KindConfigInvalid) {
		t.Fatalf("expected config-invalid error, got %v", err)
	}
}

func TestComposer_MarkReadyFailsWhenBackendMissing(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.VectorDB = config.VectorQdrant
	cfg.SearchDB = config.SearchNone
	cfg.GraphDB = config.GraphNone
	mgr := store.Manager{} // VectorDB enabled but mgr.Vector is nil
	c := newTestComposer(t, cfg, mgr)

	if err := c.MarkReady(); err == nil {
		t.Fatalf("expected MarkReady to fail on missing vector backend")
	}
}

func TestComposer_SearchSingleRetrieverSkipsFusion(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.VectorDB = config.VectorNone
	cfg.GraphDB = config.GraphNone
	cfg.SearchDB = config.SearchBM25

	fts := store.NewMemorySearch()
	ctx := context.Background()
	_ = fts.Index(ctx, model.Chunk{ID: "1", Text: "the quick brown fox jumps", Source: "a.txt", FileType: "txt", FileName: "a.txt"})
	_ = fts.Index(ctx, model.Chunk{ID: "2", Text: "completely unrelated content about oceans", Source: "b.txt", FileType: "txt", FileName: "b.txt"})

	mgr := store.Manager{Search: fts}
	c := newTestComposer(t, cfg, mgr)
	if err := c.MarkReady(); err != nil {
		t.Fatalf("MarkReady: %v", err)
	}

	results, err := c.Search(ctx, "fox", 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].Rank != 1 {
		t.Fatalf("unexpected results: %+v", results)
	}
}

func TestComposer_SearchFusesVectorAndGraph(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.VectorDB = config.VectorPostgres
	cfg.GraphDB = config.GraphKuzu
	cfg.SearchDB = config.SearchNone

	ctx := context.Background()
	embedder := embedding.NewDeterministic(32, true, 1)
	vec := store.NewMemoryVector()
	_ = vec.EnsureDimension(ctx, 32)
	emb, _ := embedder.EmbedBatch(ctx, []string{"alpha beta"})
	_ = vec.Upsert(ctx, model.Chunk{ID: "v1", Text: "alpha beta content", Embedding: emb[0], Source: "a.txt"})

	graph := store.NewMemoryGraph()
	_ = graph.UpsertTriple(ctx, model.Triple{Subject: "Alpha", Relation: "RELATES_TO", Object: "Beta", ChunkIDs: []string{"v1"}})

	mgr := store.Manager{Vector: vec, Graph: graph}
	c, err := New(cfg, mgr, nil, embedder, &fakeLLM{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := c.MarkReady(); err != nil {
		t.Fatalf("MarkReady: %v", err)
	}

	results, err := c.Search(ctx, "alpha beta", 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) == 0 {
		t.Fatalf("expected at least one fused result")
	}
}

func TestComposer_ResetReturnsToUninitialized(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.VectorDB = config.VectorNone
	cfg.GraphDB = config.GraphNone
	cfg.SearchDB = config.SearchBM25
	mgr := store.Manager{Search: store.NewMemorySearch()}
	c := newTestComposer(t, cfg, mgr)
	if err := c.MarkReady(); err != nil {
		t.Fatalf("MarkReady: %v", err)
	}
	c.Reset()

	_, err := c.Search(context.Background(), "q", 5)
	if !errs.Is(err, errs.KindConfigInvalid) {
		t.Fatalf("expected config-invalid error after reset, got %v", err)
	}
}

func TestComposer_QueryGeneratesAnswerFromContext(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.VectorDB = config.VectorNone
	cfg.GraphDB = config.GraphNone
	cfg.SearchDB = config.SearchBM25

	fts := store.NewMemorySearch()
	ctx := context.Background()
	_ = fts.Index(ctx, model.Chunk{ID: "1", Text: "the quick brown fox jumps", Source: "a.txt"})

	mgr := store.Manager{Search: fts}
	c, err := New(cfg, mgr, nil, embedding.NewDeterministic(32, true, 1), &fakeLLM{answer: "it is a fox"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := c.MarkReady(); err != nil {
		t.Fatalf("MarkReady: %v", err)
	}

	answer, err := c.Query(ctx, "what jumps?")
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if answer != "it is a fox" {
		t.Fatalf("unexpected answer: %q", answer)
	}
}

func TestNew_RejectsAllBackendsDisabled(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.VectorDB = config.VectorNone
	cfg.GraphDB = config.GraphNone
	cfg.SearchDB = config.SearchNone

	_, err := New(cfg, store.Manager{}, nil, embedding.NewDeterministic(32, true, 1), &fakeLLM{})
	if err == nil {
		t.Fatalf("expected error when all backends disabled")
	}
}
