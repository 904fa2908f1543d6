package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"hybridrag/internal/engine/errs"
)

var errConfigAllDisabled = errs.ConfigInvalid("at least one of vector_db, graph_db, search_db must be enabled")

// Load reads a YAML config file (if path is non-empty and exists), loads
// a local .env file for secrets (best-effort, for local development),
// then applies environment-variable overrides for the keys listed in
// applyEnvOverrides, and finally validates the result. Keys not listed
// there (schemas, the per-backend vector/graph/search blocks, the
// embedding dimension, and the OpenSearch hybrid settings) come from the
// file or the defaults only.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	_ = godotenv.Load() // best-effort; absence of .env is not an error

	if path != "" {
		if data, err := os.ReadFile(path); err == nil {
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse config %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	applyEnvOverrides(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnvOverrides(c *Config) {
	str := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok {
			*dst = v
		}
	}
	num := func(key string, dst *int) {
		if v, ok := os.LookupEnv(key); ok {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}
	dur := func(key string, dst *time.Duration, unit time.Duration) {
		if v, ok := os.LookupEnv(key); ok {
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				*dst = time.Duration(f * float64(unit))
			}
		}
	}

	if v, ok := os.LookupEnv("DATA_SOURCE"); ok {
		c.DataSource = DataSourceKind(strings.ToLower(v))
	}
	if v, ok := os.LookupEnv("VECTOR_DB"); ok {
		c.VectorDB = VectorBackend(strings.ToLower(v))
	}
	if v, ok := os.LookupEnv("GRAPH_DB"); ok {
		c.GraphDB = GraphBackend(strings.ToLower(v))
	}
	if v, ok := os.LookupEnv("SEARCH_DB"); ok {
		c.SearchDB = SearchBackend(strings.ToLower(v))
	}
	if v, ok := os.LookupEnv("LLM_PROVIDER"); ok {
		c.LLMProvider = LLMProvider(strings.ToLower(v))
	}
	num("CHUNK_SIZE", &c.ChunkSize)
	num("CHUNK_OVERLAP", &c.ChunkOverlap)
	num("MAX_TRIPLETS_PER_CHUNK", &c.MaxTripletsPerChunk)
	num("BM25_SIMILARITY_TOP_K", &c.BM25SimilarityTopK)
	str("BM25_PERSIST_DIR", &c.BM25PersistDir)
	str("VECTOR_PERSIST_DIR", &c.VectorPersistDir)
	str("GRAPH_PERSIST_DIR", &c.GraphPersistDir)
	dur("DOCLING_TIMEOUT", &c.DoclingTimeout, time.Second)
	dur("DOCLING_CANCEL_CHECK_INTERVAL", &c.DoclingCancelCheckInterval, time.Second)
	dur("KG_EXTRACTION_TIMEOUT", &c.KGExtractionTimeout, time.Second)
	dur("KG_CANCEL_CHECK_INTERVAL", &c.KGCancelCheckInterval, time.Second)
	str("SCHEMA_NAME", &c.SchemaName)
	str("EMBEDDING_MODEL", &c.EmbeddingModel)
	str("EMBEDDING_BASE_URL", &c.EmbeddingBaseURL)
	str("EMBEDDING_API_KEY", &c.EmbeddingAPIKey)
	str("LLM_MODEL", &c.LLMModel)
	str("LLM_BASE_URL", &c.LLMBaseURL)
	str("LLM_API_KEY", &c.LLMAPIKey)
}
