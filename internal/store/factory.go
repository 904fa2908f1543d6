package store

import (
	"context"
	"fmt"

	"hybridrag/internal/config"
)

// NewManager constructs the Vector/Graph/Search backends named by cfg,
// opening one pgxpool per Postgres-backed concern. A backend set to none
// (or served by the OpenSearch native hybrid path) is left nil.
func NewManager(ctx context.Context, cfg config.Config) (Manager, error) {
	var m Manager

	vector, err := newVectorStore(ctx, cfg)
	if err != nil {
		return Manager{}, fmt.Errorf("construct vector store: %w", err)
	}
	m.Vector = vector

	graph, err := newGraphStore(ctx, cfg)
	if err != nil {
		return Manager{}, fmt.Errorf("construct graph store: %w", err)
	}
	m.Graph = graph

	search, err := newSearchStore(ctx, cfg)
	if err != nil {
		return Manager{}, fmt.Errorf("construct search store: %w", err)
	}
	m.Search = search

	return m, nil
}

func newVectorStore(ctx context.Context, cfg config.Config) (VectorStore, error) {
	switch cfg.VectorDB {
	case config.VectorNone:
		return nil, nil
	case config.VectorQdrant:
		return NewQdrantVector(cfg.Vector.URL, cfg.Vector.CollectionName, cfg.Vector.Metric)
	case config.VectorPostgres, config.VectorNeo4j:
		pool, err := newPgPool(ctx, cfg.Vector.DSN)
		if err != nil {
			return nil, err
		}
		return NewPostgresVector(pool, cfg.Vector.Metric), nil
	case config.VectorElasticsearch, config.VectorOpenSearch:
		if cfg.UsesOpenSearchNativeHybrid() {
			// The composer talks to OpenSearchHybrid directly in this
			// case rather than through the VectorStore interface; no
			// separate vector store is constructed.
			return nil, nil
		}
		return NewRESTVector(cfg.Vector.URL, cfg.Vector.IndexName), nil
	default:
		return nil, fmt.Errorf("unsupported vector backend: %s", cfg.VectorDB)
	}
}

func newGraphStore(ctx context.Context, cfg config.Config) (GraphStore, error) {
	switch cfg.GraphDB {
	case config.GraphNone:
		return nil, nil
	case config.GraphKuzu:
		path := cfg.GraphPersistDir
		if path == "" {
			path = "graph.db"
		} else {
			path = path + "/graph.db"
		}
		return NewSQLiteGraph(path)
	case config.GraphNeo4j:
		pool, err := newPgPool(ctx, cfg.Graph.DSN)
		if err != nil {
			return nil, err
		}
		return NewPostgresGraph(pool), nil
	default:
		return nil, fmt.Errorf("unsupported graph backend: %s", cfg.GraphDB)
	}
}

func newSearchStore(ctx context.Context, cfg config.Config) (FullTextStore, error) {
	switch cfg.SearchDB {
	case config.SearchNone:
		return nil, nil
	case config.SearchBM25:
		path := ""
		if cfg.BM25PersistDir != "" {
			path = cfg.BM25PersistDir + "/bm25.db"
		}
		return NewSQLiteBM25(path)
	case config.SearchElasticsearch, config.SearchOpenSearch:
		if cfg.UsesOpenSearchNativeHybrid() {
			return nil, nil
		}
		return NewRESTSearch(cfg.Search.URL, cfg.Search.IndexName), nil
	default:
		return nil, fmt.Errorf("unsupported search backend: %s", cfg.SearchDB)
	}
}
