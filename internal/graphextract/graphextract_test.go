package graphextract

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"hybridrag/internal/model"
)

type fakeClient struct {
	response string
	err      error
	gotSys   string
}

func (f *fakeClient) Complete(_ context.Context, system, _ string) (string, error) {
	f.gotSys = system
	return f.response, f.err
}

func TestExtract_SchemaFreeParsesTriples(t *testing.T) {
	client := &fakeClient{response: `Here are the triples:
[{"subject":"Alice","subject_label":"Person","relation":"WORKS_FOR","object":"Acme","object_label":"Org"}]`}
	e := New(client)

	chunk := model.Chunk{ID: "c1", Text: "Alice works for Acme."}
	triples, err := e.Extract(context.Background(), chunk, Options{MaxTripletsPerChunk: 10})
	require.NoError(t, err)
	require.Len(t, triples, 1)
	require.Equal(t, "Alice", triples[0].Subject)
	require.Equal(t, "WORKS_FOR", triples[0].Relation)
	require.Equal(t, []string{"c1"}, triples[0].ChunkIDs)
	require.Contains(t, client.gotSys, "free-form")
}

func TestExtract_SchemaGuidedStrictDropsOffSchemaTriples(t *testing.T) {
	client := &fakeClient{response: `[
		{"subject":"Alice","subject_label":"Entity","relation":"WORKS_FOR","object":"Acme","object_label":"Entity"},
		{"subject":"Alice","subject_label":"Entity","relation":"LIKES","object":"Pizza","object_label":"Entity"}
	]`}
	e := New(client)

	chunk := model.Chunk{ID: "c2", Text: "..."}
	triples, err := e.Extract(context.Background(), chunk, Options{
		Schema:       KuzuDefaultSchema,
		SchemaGuided: true,
	})
	require.NoError(t, err)
	require.Len(t, triples, 1)
	require.Equal(t, "WORKS_FOR", triples[0].Relation)
}

func TestExtract_SchemaGuidedNonStrictKeepsOffSchemaTriples(t *testing.T) {
	client := &fakeClient{response: `[
		{"subject":"Alice","subject_label":"Entity","relation":"LIKES","object":"Pizza","object_label":"Entity"}
	]`}
	e := New(client)
	schema := KuzuDefaultSchema
	schema.Strict = false

	chunk := model.Chunk{ID: "c3", Text: "..."}
	triples, err := e.Extract(context.Background(), chunk, Options{Schema: schema, SchemaGuided: true})
	require.NoError(t, err)
	require.Len(t, triples, 1)
}

func TestExtract_MalformedResponseYieldsNoTriplesNoError(t *testing.T) {
	client := &fakeClient{response: "I could not find any relationships."}
	e := New(client)

	triples, err := e.Extract(context.Background(), model.Chunk{ID: "c4", Text: "..."}, Options{})
	require.NoError(t, err)
	require.Empty(t, triples)
}

func TestExtract_RespectsMaxTripletsPerChunk(t *testing.T) {
	client := &fakeClient{response: `[
		{"subject":"A","subject_label":"X","relation":"R","object":"B","object_label":"X"},
		{"subject":"B","subject_label":"X","relation":"R","object":"C","object_label":"X"},
		{"subject":"C","subject_label":"X","relation":"R","object":"D","object_label":"X"}
	]`}
	e := New(client)

	triples, err := e.Extract(context.Background(), model.Chunk{ID: "c5", Text: "..."}, Options{MaxTripletsPerChunk: 2})
	require.NoError(t, err)
	require.Len(t, triples, 2)
}

func TestResolveOptions_ExplicitSchemaWins(t *testing.T) {
	s := model.Schema{Name: "custom"}
	opt := ResolveOptions(&s, true, 0)
	require.True(t, opt.SchemaGuided)
	require.Equal(t, "custom", opt.Schema.Name)
	require.Equal(t, 10, opt.MaxTripletsPerChunk)
}

func TestResolveOptions_KuzuForcesDefaultSchema(t *testing.T) {
	opt := ResolveOptions(nil, true, 0)
	require.True(t, opt.SchemaGuided)
	require.Equal(t, "kuzu-default", opt.Schema.Name)
	require.Equal(t, kuzuDefaultMaxTriplets, opt.MaxTripletsPerChunk)
}

func TestResolveOptions_NoSchemaNoKuzuIsSchemaFree(t *testing.T) {
	opt := ResolveOptions(nil, false, 0)
	require.False(t, opt.SchemaGuided)
	require.Equal(t, 10, opt.MaxTripletsPerChunk)
}
