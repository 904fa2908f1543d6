package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidate_AllDisabled(t *testing.T) {
	c := DefaultConfig()
	c.VectorDB, c.GraphDB, c.SearchDB = VectorNone, GraphNone, SearchNone
	require.Error(t, c.Validate())
}

func TestValidate_OneEnabled(t *testing.T) {
	c := DefaultConfig()
	require.NoError(t, c.Validate()) // default has SearchDB=bm25
}

func TestActiveSchema(t *testing.T) {
	c := DefaultConfig()
	c.SchemaName = "none"
	_, ok := c.ActiveSchema()
	require.False(t, ok)

	c.SchemaName = "custom"
	c.Schemas = []NamedSchema{{Name: "custom", EntityLabels: []string{"Person"}}}
	s, ok := c.ActiveSchema()
	require.True(t, ok)
	require.Equal(t, []string{"Person"}, s.EntityLabels)
}

func TestUsesOpenSearchNativeHybrid(t *testing.T) {
	c := DefaultConfig()
	c.VectorDB, c.SearchDB = VectorOpenSearch, SearchOpenSearch
	c.Vector.URL, c.Search.URL = "http://os:9200", "http://os:9200"
	require.True(t, c.UsesOpenSearchNativeHybrid())

	c.Search.URL = "http://other:9200"
	require.False(t, c.UsesOpenSearchNativeHybrid())
}
