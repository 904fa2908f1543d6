// Package engine assembles the collaborators into one explicit value:
// an Engine owns the composer, the job registry, the resolved backends,
// and the configuration they were built from. Callers construct one
// Engine per running configuration and wire it through their own
// request handlers, rather than reaching into a package-level
// singleton from anywhere.
package engine

import (
	"context"
	"fmt"

	"hybridrag/internal/chunk"
	"hybridrag/internal/config"
	"hybridrag/internal/convert"
	"hybridrag/internal/embedding"
	"hybridrag/internal/engine/errs"
	"hybridrag/internal/graphextract"
	"hybridrag/internal/ingest"
	"hybridrag/internal/jobs"
	"hybridrag/internal/llmclient"
	"hybridrag/internal/logging"
	"hybridrag/internal/model"
	"hybridrag/internal/retrieve"
	"hybridrag/internal/source"
	"hybridrag/internal/store"
)

// IngestRequest carries a data source kind plus the fields relevant to it.
type IngestRequest struct {
	DataSource        config.DataSourceKind
	Paths             []string                 // filesystem
	ConnectorConfig   config.ConnectorConfig   // cmis/alfresco
	S3ConnectorConfig config.S3ConnectorConfig // s3
}

// IngestResult is the ingest/ingest_text response shape.
type IngestResult struct {
	JobID         string
	Status        model.JobStatus
	Message       string
	EstimatedTime string
}

// StatusResult is the status operation response.
type StatusResult struct {
	HasVector    bool
	HasGraph     bool
	HasRetriever bool
	Config       config.Config
}

// Engine is the process-wide context: one value per running
// configuration, constructed once and passed to whatever transport
// wraps it (cmd/ragctl here).
type Engine struct {
	cfg      config.Config
	mgr      store.Manager
	registry *jobs.Registry
	composer *retrieve.Composer
	orch     *ingest.Orchestrator
	log      logging.Logger
}

// ExternalTool is re-exported so callers assembling an Engine don't need
// to import internal/convert just to pick a DOCX/PPTX converter.
type ExternalTool = convert.ExternalTool

// New constructs an Engine from cfg: resolves the configured vector/
// graph/search backends, embedder, LLM client, converter, and graph
// extractor, and wires them into a Composer and an ingestion Orchestrator.
// external may be nil when DOCX/PPTX/image conversion is not needed.
func New(ctx context.Context, cfg config.Config, external ExternalTool) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	mgr, err := store.NewManager(ctx, cfg)
	if err != nil {
		return nil, errs.BackendIO("construct backends", err)
	}

	embedder := newEmbedder(cfg)
	llm := llmclient.New(llmclient.Config{
		Provider: string(cfg.LLMProvider),
		Model:    cfg.LLMModel,
		BaseURL:  cfg.LLMBaseURL,
		APIKey:   cfg.LLMAPIKey,
	})

	var hybrid *store.OpenSearchHybrid
	if cfg.UsesOpenSearchNativeHybrid() {
		hybrid = store.NewOpenSearchHybrid(cfg.Vector.URL, cfg.Vector.IndexName, cfg.OpenSearchHybridPipeline, cfg.OpenSearchVectorWeight, cfg.OpenSearchTextWeight)
	}

	composer, err := retrieve.New(cfg, mgr, hybrid, embedder, llm)
	if err != nil {
		mgr.Close()
		return nil, err
	}

	log := logging.Named("engine")
	registry := jobs.NewRegistry()
	orch := ingest.New(ingest.Deps{
		Cfg:        cfg,
		Registry:   registry,
		Converter:  convert.New(external),
		Summarizer: chunkSummarizer(cfg, llm),
		Embedder:   embedder,
		Extractor:  graphextract.New(llm),
		Manager:    mgr,
		Composer:   composer,
		Log:        log,
	})

	return &Engine{cfg: cfg, mgr: mgr, registry: registry, composer: composer, orch: orch, log: log}, nil
}

func newEmbedder(cfg config.Config) embedding.Embedder {
	if cfg.EmbeddingBaseURL == "" {
		return embedding.NewDeterministic(cfg.EmbeddingDimension, true, 1)
	}
	return embedding.NewHTTPEmbedder(embedding.Config{
		BaseURL: cfg.EmbeddingBaseURL,
		Model:   cfg.EmbeddingModel,
		APIKey:  cfg.EmbeddingAPIKey,
	})
}

func chunkSummarizer(cfg config.Config, llm llmclient.Client) chunk.Summarizer {
	if cfg.LLMProvider == "" {
		return chunk.ExtractiveSummarizer{}
	}
	return chunk.NewLLMSummarizer(llm)
}

// Close releases pooled backend connections. Safe to call once.
func (e *Engine) Close() {
	e.mgr.Close()
}

// Health reports whether the engine is reachable and ready to serve.
func (e *Engine) Health() string { return "ok" }

// Status reports which backends are configured. It reads the configuration
// only; HasRetriever is true before any ingestion has armed the composer.
func (e *Engine) Status() StatusResult {
	return StatusResult{
		HasVector:    e.cfg.VectorDB != config.VectorNone,
		HasGraph:     e.cfg.GraphDB != config.GraphNone,
		HasRetriever: e.cfg.VectorDB != config.VectorNone || e.cfg.GraphDB != config.GraphNone || e.cfg.SearchDB != config.SearchNone,
		Config:       e.cfg,
	}
}

// Ingest enumerates and indexes documents from the source named by
// req.DataSource, returning the job ID tracking the run.
func (e *Engine) Ingest(ctx context.Context, req IngestRequest) (IngestResult, error) {
	src, err := e.resolveSource(ctx, req)
	if err != nil {
		return IngestResult{}, err
	}
	return e.startIngest(ctx, src)
}

// IngestText indexes a single piece of pasted text as a synthetic
// in-memory document with no backing file.
func (e *Engine) IngestText(ctx context.Context, content, sourceName string) (IngestResult, error) {
	return e.startIngest(ctx, source.NewTextSource(content, sourceName))
}

func (e *Engine) startIngest(ctx context.Context, src source.Source) (IngestResult, error) {
	jobID, err := e.orch.Ingest(ctx, src)
	if err != nil {
		return IngestResult{}, err
	}
	job, _ := e.registry.Get(jobID)
	return IngestResult{JobID: jobID, Status: job.Status, Message: job.Message, EstimatedTime: job.EstimatedTimeRemaining}, nil
}

func (e *Engine) resolveSource(ctx context.Context, req IngestRequest) (source.Source, error) {
	switch req.DataSource {
	case config.DataSourceFilesystem, "":
		if len(req.Paths) == 0 {
			return nil, errs.ConfigInvalid("No file paths provided")
		}
		return source.NewFilesystemSource(req.Paths), nil
	case config.DataSourceCMIS:
		return source.NewRemoteSource(source.RemoteConfig{
			Kind:       source.RemoteCMIS,
			BaseURL:    req.ConnectorConfig.URL,
			Username:   req.ConnectorConfig.Username,
			Password:   req.ConnectorConfig.Password,
			FolderPath: req.ConnectorConfig.FolderPath,
		}), nil
	case config.DataSourceAlfresco:
		return source.NewRemoteSource(source.RemoteConfig{
			Kind:     source.RemoteAlfresco,
			BaseURL:  req.ConnectorConfig.URL,
			Username: req.ConnectorConfig.Username,
			Password: req.ConnectorConfig.Password,
			Path:     req.ConnectorConfig.Path,
		}), nil
	case config.DataSourceS3:
		s3cfg := req.S3ConnectorConfig
		src, err := source.NewS3Source(ctx, source.S3Config{
			Bucket:    s3cfg.Bucket,
			Prefix:    s3cfg.Prefix,
			Region:    s3cfg.Region,
			Endpoint:  s3cfg.Endpoint,
			AccessKey: s3cfg.AccessKey,
			SecretKey: s3cfg.SecretKey,
		})
		if err != nil {
			return nil, errs.ConfigInvalid(err.Error())
		}
		return src, nil
	default:
		return nil, errs.ConfigInvalid(fmt.Sprintf("unsupported data source: %s", req.DataSource))
	}
}

// Search runs a hybrid dense/lexical/graph search and returns fused results.
func (e *Engine) Search(ctx context.Context, query string, topK int) ([]retrieve.Result, error) {
	return e.composer.Search(ctx, query, topK)
}

// Query answers a natural-language question against indexed content.
func (e *Engine) Query(ctx context.Context, query string) (string, error) {
	return e.composer.Query(ctx, query)
}

// ProcessingStatus returns the current snapshot of a tracked ingestion job.
func (e *Engine) ProcessingStatus(jobID string) (model.Job, bool) {
	return e.registry.Get(jobID)
}

// CancelProcessing requests cancellation of a running ingestion job.
func (e *Engine) CancelProcessing(jobID string) (ok bool, message string) {
	ok, err := e.registry.Cancel(jobID)
	if err != nil {
		return false, err.Error()
	}
	if !ok {
		return false, "job already in a terminal state"
	}
	return true, "Processing cancelled by user"
}

// ProcessingEvents streams job snapshots until it reaches a terminal status.
func (e *Engine) ProcessingEvents(ctx context.Context, jobID string) <-chan model.Job {
	return e.registry.Stream(ctx, jobID, 0)
}
