//go:build cgo

package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"hybridrag/internal/model"
)

func TestSQLiteGraph_EnsureSchemaAndUpsert(t *testing.T) {
	g, err := NewSQLiteGraph(filepath.Join(t.TempDir(), "graph.db"))
	require.NoError(t, err)
	defer g.Close()

	ctx := context.Background()
	require.NoError(t, g.EnsureSchema(ctx, model.Schema{RelationLabels: []string{"WORKS_FOR"}}))
	require.NoError(t, g.UpsertTriple(ctx, model.Triple{
		Subject: "Alice", SubjectLabel: "Person", Relation: "WORKS_FOR", Object: "Acme", ObjectLabel: "Org",
		ChunkIDs: []string{"c1"},
	}))

	res, err := g.Search(ctx, "Acme", 5)
	require.NoError(t, err)
	require.Len(t, res, 1)
	require.Equal(t, []string{"c1"}, res[0].ChunkIDs)
}

func TestSQLiteGraph_EnsureSchemaResetsPriorData(t *testing.T) {
	g, err := NewSQLiteGraph(filepath.Join(t.TempDir(), "graph.db"))
	require.NoError(t, err)
	defer g.Close()

	ctx := context.Background()
	require.NoError(t, g.EnsureSchema(ctx, model.Schema{RelationLabels: []string{"WORKS_FOR"}}))
	require.NoError(t, g.UpsertTriple(ctx, model.Triple{Subject: "Alice", Relation: "WORKS_FOR", Object: "Acme"}))

	require.NoError(t, g.EnsureSchema(ctx, model.Schema{RelationLabels: []string{"WORKS_FOR"}}))
	res, err := g.Search(ctx, "Acme", 5)
	require.NoError(t, err)
	require.Empty(t, res)
}

func TestSQLiteGraph_UpsertCreatesRelationTableOnDemand(t *testing.T) {
	g, err := NewSQLiteGraph(filepath.Join(t.TempDir(), "graph.db"))
	require.NoError(t, err)
	defer g.Close()

	ctx := context.Background()
	require.NoError(t, g.EnsureSchema(ctx, model.Schema{}))
	require.NoError(t, g.UpsertTriple(ctx, model.Triple{Subject: "A", Relation: "LIKES", Object: "B"}))

	res, err := g.Search(ctx, "LIKES", 5)
	require.NoError(t, err)
	require.Len(t, res, 1)
}

func TestSQLiteGraph_SearchMatchesOnIndividualTerms(t *testing.T) {
	g, err := NewSQLiteGraph(filepath.Join(t.TempDir(), "graph.db"))
	require.NoError(t, err)
	defer g.Close()

	ctx := context.Background()
	require.NoError(t, g.EnsureSchema(ctx, model.Schema{RelationLabels: []string{"LOCATED_IN"}}))
	require.NoError(t, g.UpsertTriple(ctx, model.Triple{
		Subject: "Acme", SubjectLabel: "Org", Relation: "LOCATED_IN", Object: "London", ObjectLabel: "City",
		ChunkIDs: []string{"c1"},
	}))

	// A whole-query LIKE on "Acme headquarters London" would miss this
	// triple entirely since no single column contains that full string.
	res, err := g.Search(ctx, "Acme headquarters London", 5)
	require.NoError(t, err)
	require.Len(t, res, 1)
	require.Equal(t, []string{"c1"}, res[0].ChunkIDs)
}

func TestSQLiteGraph_SearchRanksMoreMatchingTermsFirst(t *testing.T) {
	g, err := NewSQLiteGraph(filepath.Join(t.TempDir(), "graph.db"))
	require.NoError(t, err)
	defer g.Close()

	ctx := context.Background()
	require.NoError(t, g.EnsureSchema(ctx, model.Schema{RelationLabels: []string{"LOCATED_IN", "FOUNDED_BY"}}))
	require.NoError(t, g.UpsertTriple(ctx, model.Triple{
		Subject: "Acme", Relation: "LOCATED_IN", Object: "London", ChunkIDs: []string{"c1"},
	}))
	require.NoError(t, g.UpsertTriple(ctx, model.Triple{
		Subject: "Acme", Relation: "FOUNDED_BY", Object: "Alice", ChunkIDs: []string{"c2"},
	}))

	res, err := g.Search(ctx, "Acme London", 5)
	require.NoError(t, err)
	require.Len(t, res, 2)
	require.Equal(t, []string{"c1"}, res[0].ChunkIDs)
}

func TestSQLiteBM25_IndexAndSearch(t *testing.T) {
	s, err := NewSQLiteBM25(filepath.Join(t.TempDir(), "bm25.db"))
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	require.NoError(t, s.Index(ctx, model.Chunk{ID: "1", Text: "the quick brown fox jumps over the lazy dog"}))
	require.NoError(t, s.Index(ctx, model.Chunk{ID: "2", Text: "completely unrelated passage about oceans"}))

	hits, err := s.Search(ctx, "fox", 5)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	require.Equal(t, "1", hits[0].ChunkID)
}

func TestSQLiteBM25_RemoveDropsFromIndex(t *testing.T) {
	s, err := NewSQLiteBM25(filepath.Join(t.TempDir(), "bm25.db"))
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	require.NoError(t, s.Index(ctx, model.Chunk{ID: "1", Text: "hello world"}))
	require.NoError(t, s.Remove(ctx, "1"))

	hits, err := s.Search(ctx, "hello", 5)
	require.NoError(t, err)
	require.Empty(t, hits)
}

func TestSQLiteBM25_InMemoryWhenPathEmpty(t *testing.T) {
	s, err := NewSQLiteBM25("")
	require.NoError(t, err)
	defer s.Close()
	require.NoError(t, s.Index(context.Background(), model.Chunk{ID: "1", Text: "in memory docstore"}))
}
