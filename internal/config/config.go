// Package config defines the recognized configuration surface of the
// engine and loads it from YAML plus environment overrides.
package config

import "time"

// DataSourceKind selects where documents are enumerated from.
type DataSourceKind string

const (
	DataSourceFilesystem DataSourceKind = "filesystem"
	DataSourceCMIS       DataSourceKind = "cmis"
	DataSourceAlfresco   DataSourceKind = "alfresco"
	DataSourceUpload     DataSourceKind = "upload"
	DataSourceS3         DataSourceKind = "s3"
)

// VectorBackend selects the dense-vector store.
type VectorBackend string

const (
	VectorNone          VectorBackend = "none"
	VectorNeo4j         VectorBackend = "neo4j"
	VectorQdrant        VectorBackend = "qdrant"
	VectorElasticsearch VectorBackend = "elasticsearch"
	VectorOpenSearch    VectorBackend = "opensearch"
	VectorPostgres      VectorBackend = "postgres"
)

// GraphBackend selects the property-graph store.
type GraphBackend string

const (
	GraphNone  GraphBackend = "none"
	GraphNeo4j GraphBackend = "neo4j"
	GraphKuzu  GraphBackend = "kuzu"
)

// SearchBackend selects the sparse full-text store.
type SearchBackend string

const (
	SearchNone          SearchBackend = "none"
	SearchBM25          SearchBackend = "bm25"
	SearchElasticsearch SearchBackend = "elasticsearch"
	SearchOpenSearch    SearchBackend = "opensearch"
)

// LLMProvider selects the language-model collaborator.
type LLMProvider string

const (
	LLMOllama      LLMProvider = "ollama"
	LLMOpenAI      LLMProvider = "openai"
	LLMGemini      LLMProvider = "gemini"
	LLMAzureOpenAI LLMProvider = "azure_openai"
	LLMAnthropic   LLMProvider = "anthropic"
)

// BackendConfig is the per-backend connection surface (§3, §6):
// {url, username, password, index_name, collection_name, embed_dim, ...}.
type BackendConfig struct {
	URL            string `yaml:"url"`
	Username       string `yaml:"username"`
	Password       string `yaml:"password"`
	APIKey         string `yaml:"api_key"`
	IndexName      string `yaml:"index_name"`
	CollectionName string `yaml:"collection_name"`
	EmbedDim       int    `yaml:"embed_dim"`
	DSN            string `yaml:"dsn"`
	PersistDir     string `yaml:"persist_dir"`
	Metric         string `yaml:"metric"`
}

// ConnectorConfig is the field set shared by the CMIS and Alfresco
// remote document connectors.
type ConnectorConfig struct {
	URL        string `yaml:"url"`
	Username   string `yaml:"username"`
	Password   string `yaml:"password"`
	FolderPath string `yaml:"folder_path"` // CMIS
	Path       string `yaml:"path"`        // Alfresco
}

// S3ConnectorConfig addresses an S3 (or S3-compatible) bucket for the
// s3 data source kind.
type S3ConnectorConfig struct {
	Bucket    string `yaml:"bucket"`
	Prefix    string `yaml:"prefix"`
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
}

// NamedSchema is one entry of SCHEMAS.
type NamedSchema struct {
	Name              string   `yaml:"name"`
	EntityLabels      []string `yaml:"entity_labels"`
	RelationLabels    []string `yaml:"relation_labels"`
	ValidationTriples []struct {
		SubjectLabel string `yaml:"subject_label"`
		Relation     string `yaml:"relation"`
		ObjectLabel  string `yaml:"object_label"`
	} `yaml:"validation_triples"`
	Strict bool `yaml:"strict"`
}

// Config enumerates every recognized configuration key.
type Config struct {
	DataSource DataSourceKind `yaml:"data_source"`

	VectorDB VectorBackend `yaml:"vector_db"`
	GraphDB  GraphBackend  `yaml:"graph_db"`
	SearchDB SearchBackend `yaml:"search_db"`

	LLMProvider LLMProvider `yaml:"llm_provider"`

	ChunkSize           int `yaml:"chunk_size"`
	ChunkOverlap        int `yaml:"chunk_overlap"`
	MaxTripletsPerChunk int `yaml:"max_triplets_per_chunk"`

	BM25SimilarityTopK int    `yaml:"bm25_similarity_top_k"`
	BM25PersistDir     string `yaml:"bm25_persist_dir"`

	VectorPersistDir string `yaml:"vector_persist_dir"`
	GraphPersistDir  string `yaml:"graph_persist_dir"`

	DoclingTimeout               time.Duration `yaml:"docling_timeout"`
	DoclingCancelCheckInterval   time.Duration `yaml:"docling_cancel_check_interval"`
	KGExtractionTimeout          time.Duration `yaml:"kg_extraction_timeout"`
	KGCancelCheckInterval        time.Duration `yaml:"kg_cancel_check_interval"`

	SchemaName string        `yaml:"schema_name"`
	Schemas    []NamedSchema `yaml:"schemas"`

	Vector BackendConfig `yaml:"vector"`
	Graph  BackendConfig `yaml:"graph"`
	Search BackendConfig `yaml:"search"`

	OpenSearchHybridPipeline string  `yaml:"opensearch_hybrid_pipeline"`
	OpenSearchVectorWeight   float64 `yaml:"opensearch_vector_weight"`
	OpenSearchTextWeight     float64 `yaml:"opensearch_text_weight"`

	EmbeddingModel     string `yaml:"embedding_model"`
	EmbeddingDimension int    `yaml:"embedding_dimension"`
	EmbeddingBaseURL   string `yaml:"embedding_base_url"`
	EmbeddingAPIKey    string `yaml:"embedding_api_key"`

	LLMModel   string `yaml:"llm_model"`
	LLMBaseURL string `yaml:"llm_base_url"`
	LLMAPIKey  string `yaml:"llm_api_key"`
}

// DefaultConfig returns a Config with every spec-mandated default applied
// (chunk_size=1024, chunk_overlap=128, max_triplets_per_chunk=10, ...).
func DefaultConfig() Config {
	return Config{
		DataSource:                   DataSourceFilesystem,
		VectorDB:                     VectorNone,
		GraphDB:                      GraphNone,
		SearchDB:                     SearchBM25,
		LLMProvider:                  LLMOpenAI,
		ChunkSize:                    1024,
		ChunkOverlap:                 128,
		MaxTripletsPerChunk:          10,
		BM25SimilarityTopK:           10,
		DoclingTimeout:               300 * time.Second,
		DoclingCancelCheckInterval:   500 * time.Millisecond,
		KGExtractionTimeout:          3600 * time.Second,
		KGCancelCheckInterval:        2 * time.Second,
		SchemaName:                   "none",
		OpenSearchHybridPipeline:     "hybrid-search-pipeline",
		OpenSearchVectorWeight:       0.5,
		OpenSearchTextWeight:         0.5,
	}
}

// Validate enforces invariant P1: at least one of {vector, graph, search} is
// not none.
func (c Config) Validate() error {
	if c.VectorDB == VectorNone && c.GraphDB == GraphNone && c.SearchDB == SearchNone {
		return errConfigAllDisabled
	}
	return nil
}

// ActiveSchema resolves SchemaName against Schemas, returning ok=false when
// SchemaName is "none" or unset.
func (c Config) ActiveSchema() (NamedSchema, bool) {
	if c.SchemaName == "" || c.SchemaName == "none" {
		return NamedSchema{}, false
	}
	for _, s := range c.Schemas {
		if s.Name == c.SchemaName {
			return s, true
		}
	}
	return NamedSchema{}, false
}

// UsesOpenSearchNativeHybrid reports whether vector and search both point
// at the same OpenSearch instance, enabling its native hybrid pipeline
// instead of client-side fusion.
func (c Config) UsesOpenSearchNativeHybrid() bool {
	return c.VectorDB == VectorOpenSearch && c.SearchDB == SearchOpenSearch && c.Vector.URL == c.Search.URL
}
