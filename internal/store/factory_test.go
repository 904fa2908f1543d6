package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"hybridrag/internal/config"
)

func TestNewManager_AllNoneYieldsNilBackends(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.VectorDB = config.VectorNone
	cfg.GraphDB = config.GraphNone
	cfg.SearchDB = config.SearchNone

	mgr, err := NewManager(context.Background(), cfg)
	require.NoError(t, err)
	require.Nil(t, mgr.Vector)
	require.Nil(t, mgr.Graph)
	require.Nil(t, mgr.Search)
	mgr.Close() // must not panic on nil backends
}

func TestNewManager_UnsupportedVectorBackend(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.VectorDB = config.VectorBackend("made-up")
	cfg.GraphDB = config.GraphNone
	cfg.SearchDB = config.SearchNone

	_, err := NewManager(context.Background(), cfg)
	require.Error(t, err)
}

func TestNewManager_OpenSearchNativeHybridSkipsSeparateStores(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.VectorDB = config.VectorOpenSearch
	cfg.SearchDB = config.SearchOpenSearch
	cfg.GraphDB = config.GraphNone
	cfg.Vector.URL = "http://localhost:9200"
	cfg.Search.URL = "http://localhost:9200"

	mgr, err := NewManager(context.Background(), cfg)
	require.NoError(t, err)
	require.Nil(t, mgr.Vector)
	require.Nil(t, mgr.Search)
}
