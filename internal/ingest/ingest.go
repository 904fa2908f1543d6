// Package ingest implements the ingestion orchestrator that sequences
// fetch -> convert -> chunk/enrich -> index-write for every document a
// Source enumerates, reporting progress through a Job Registry and
// arming a retrieval composer once indexing completes. Each stage is
// reported as it runs; the three index backends write in parallel via
// errgroup once chunking finishes.
package ingest

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"hybridrag/internal/chunk"
	"hybridrag/internal/config"
	"hybridrag/internal/convert"
	"hybridrag/internal/engine/errs"
	"hybridrag/internal/graphextract"
	"hybridrag/internal/jobs"
	"hybridrag/internal/logging"
	"hybridrag/internal/model"
	"hybridrag/internal/retrieve"
	"hybridrag/internal/source"
	"hybridrag/internal/store"
)

// EmbedderLike is the narrow embedding.Embedder slice the orchestrator
// needs, kept local so this package doesn't have to import embedding just
// for its interface type.
type EmbedderLike interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
}

// Deps are the collaborators one Orchestrator wires together. Embedder and
// Extractor may be nil when the corresponding backend (vector, graph) is
// disabled in Cfg.
type Deps struct {
	Cfg        config.Config
	Registry   *jobs.Registry
	Converter  *convert.Converter
	Summarizer chunk.Summarizer
	Embedder   EmbedderLike
	Extractor  *graphextract.Extractor
	Manager    store.Manager
	Composer   *retrieve.Composer
	Log        logging.Logger
}

// Orchestrator runs ingestion jobs against one set of Deps.
type Orchestrator struct {
	d Deps
}

// New constructs an Orchestrator. Log defaults to a no-op logger when nil.
func New(d Deps) *Orchestrator {
	if d.Log == nil {
		d.Log = logging.Noop{}
	}
	return &Orchestrator{d: d}
}

// Ingest enumerates src, creates a job, and processes every document in a
// background goroutine, returning the job id immediately; the run
// continues asynchronously and reports progress through the registry.
func (o *Orchestrator) Ingest(ctx context.Context, src source.Source) (string, error) {
	refs, err := collectRefs(ctx, src)
	if err != nil {
		return "", errs.BackendIO("enumerate documents", err)
	}

	hasComplex := false
	for _, r := range refs {
		switch extOf(r.DisplayName) {
		case ".pdf", ".docx", ".pptx", ".xlsx":
			hasComplex = true
		}
	}

	jobID := o.d.Registry.Create(jobs.CreateOptions{TotalFiles: len(refs), HasComplexDocs: hasComplex})
	go o.run(jobID, src, refs)
	return jobID, nil
}

func collectRefs(ctx context.Context, src source.Source) ([]source.DocumentRef, error) {
	out := make(chan source.DocumentRef)
	errCh := make(chan error, 1)
	go func() { errCh <- src.Enumerate(ctx, out) }()

	var refs []source.DocumentRef
	for r := range out {
		refs = append(refs, r)
	}
	if err := <-errCh; err != nil {
		return nil, err
	}
	return refs, nil
}

func extOf(name string) string {
	return strings.ToLower(filepath.Ext(name))
}

// run processes every ref in order (progress reporting preserves
// per-file order, though writers may batch internally), then arms the
// composer once all files are processed.
func (o *Orchestrator) run(jobID string, src source.Source, refs []source.DocumentRef) {
	registry := o.d.Registry
	ctx := context.Background()

	started := model.JobProcessing
	registry.Update(jobID, jobs.Patch{Status: &started, Message: strPtr("Processing started")})

	if o.d.Manager.Graph != nil {
		if err := o.d.Manager.Graph.EnsureSchema(ctx, o.resolveGraphSchema()); err != nil {
			registry.Update(jobID, jobs.Patch{
				Status:  jobStatusPtr(model.JobFailed),
				Message: strPtr("graph schema setup failed: " + err.Error()),
			})
			return
		}
	}

	var userSchema *model.Schema
	if ns, ok := o.d.Cfg.ActiveSchema(); ok {
		s := graphextract.FromNamedSchema(ns)
		userSchema = &s
	}

	perFile := make([]model.PerFile, len(refs))
	for i, r := range refs {
		perFile[i] = model.PerFile{Index: i, Filename: r.DisplayName, Status: model.JobStarted, Phase: model.PhaseWaiting}
	}
	registry.Update(jobID, jobs.Patch{PerFile: snapshot(perFile)})

	completed := 0
	for i, ref := range refs {
		if registry.IsCancelled(jobID) {
			o.handleCancellation(jobID)
			return
		}

		perFile[i].Status = model.JobProcessing
		perFile[i].Phase = model.PhaseFetching
		now := time.Now()
		perFile[i].StartedAt = &now
		displayName := ref.DisplayName
		registry.Update(jobID, jobs.Patch{CurrentFile: &displayName, PerFile: snapshot(perFile)})

		err := o.processOne(ctx, jobID, src, ref, userSchema, perFile, i)
		if err != nil {
			if errs.Is(err, errs.KindCancelled) {
				o.handleCancellation(jobID)
				return
			}
			perFile[i].Status = model.JobFailed
			perFile[i].Phase = model.PhaseError
			perFile[i].Error = err.Error()
			o.d.Log.Error("file ingestion failed", map[string]any{"file": ref.DisplayName, "error": err.Error()})

			if errs.Is(err, errs.KindModelIO) || errs.Is(err, errs.KindBackendIO) || errs.Is(err, errs.KindTimeout) {
				// Model and backend errors abort the whole job; they signal a
				// systemic problem rather than a bad document.
				registry.Update(jobID, jobs.Patch{
					Status:  jobStatusPtr(model.JobFailed),
					Message: strPtr(userMessageFor(err)),
					PerFile: snapshot(perFile),
				})
				return
			}
			// Fetch and conversion errors are per-document; other files continue.
			registry.Update(jobID, jobs.Patch{PerFile: snapshot(perFile)})
			continue
		}

		perFile[i].Status = model.JobCompleted
		perFile[i].Phase = model.PhaseCompleted
		doneAt := time.Now()
		perFile[i].CompletedAt = &doneAt
		completed++
		registry.Update(jobID, jobs.Patch{FilesCompleted: &completed, PerFile: snapshot(perFile)})
	}

	if err := o.d.Composer.MarkReady(); err != nil {
		registry.Update(jobID, jobs.Patch{
			Status:  jobStatusPtr(model.JobFailed),
			Message: strPtr("indexing completed but the retrieval composer could not be armed: " + err.Error()),
		})
		return
	}

	hundred := 100.0
	registry.Update(jobID, jobs.Patch{
		Status:          jobStatusPtr(model.JobCompleted),
		Message:         strPtr("Ingestion complete"),
		ProgressPercent: &hundred,
	})
}

func snapshot(pf []model.PerFile) []model.PerFile {
	out := make([]model.PerFile, len(pf))
	copy(out, pf)
	return out
}

// handleCancellation marks the job cancelled. Whether the composer's
// prior state survives depends entirely on whether MarkReady was ever
// reached before cancellation: a composer already ready from an earlier
// successful ingestion is untouched here (this orchestrator never
// resets it on cancellation), while one that never became ready during
// this run simply stays uninitialized.
func (o *Orchestrator) handleCancellation(jobID string) {
	o.d.Registry.Cancel(jobID)
	msg := "Processing cancelled by user"
	o.d.Registry.Update(jobID, jobs.Patch{Message: &msg})
}

// resolveGraphSchema picks the schema EnsureSchema materializes before any
// document is processed: an explicit user schema, else the kuzu default
// when the graph backend is kuzu, else an empty (schema-free) schema.
func (o *Orchestrator) resolveGraphSchema() model.Schema {
	if ns, ok := o.d.Cfg.ActiveSchema(); ok {
		return graphextract.FromNamedSchema(ns)
	}
	if o.d.Cfg.GraphDB == config.GraphKuzu {
		return graphextract.KuzuDefaultSchema
	}
	return model.Schema{}
}

// processOne converts, chunks, optionally extracts graph triples from, and
// indexes a single document, advancing perFile[idx].Phase through docling,
// chunking, kg_extraction, and indexing as each stage starts so a Stream
// subscriber sees per-file progress beyond the fetching/completed bookends.
func (o *Orchestrator) processOne(ctx context.Context, jobID string, src source.Source, ref source.DocumentRef, userSchema *model.Schema, perFile []model.PerFile, idx int) error {
	setPhase := func(p model.FilePhase) {
		perFile[idx].Phase = p
		o.d.Registry.Update(jobID, jobs.Patch{PerFile: snapshot(perFile)})
	}

	fetched, err := src.Fetch(ctx, ref)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", ref.DisplayName, err)
	}
	if fetched.Cleanup != nil {
		defer fetched.Cleanup()
	}

	setPhase(model.PhaseDocling)
	doc, err := o.d.Converter.Convert(ctx, convert.Input{
		Bytes:    fetched.Bytes,
		Mime:     fetched.Mime,
		FileName: fetched.DisplayName,
		Source:   ref.DisplayName,
	}, convert.Options{
		CancelCheckInterval: o.d.Cfg.DoclingCancelCheckInterval,
		Timeout:             o.d.Cfg.DoclingTimeout,
		IsCancelled:         func() bool { return o.d.Registry.IsCancelled(jobID) },
	})
	if err != nil {
		return err
	}
	doc.ID = uuid.NewString()

	setPhase(model.PhaseChunking)
	chunks := chunk.Pipeline(doc, chunk.Options{
		ChunkSize:    o.d.Cfg.ChunkSize,
		ChunkOverlap: o.d.Cfg.ChunkOverlap,
		TopKeywords:  5,
	}, o.d.Summarizer)
	for i := range chunks {
		chunks[i].ID = uuid.NewString()
	}
	if len(chunks) == 0 {
		return nil
	}

	var triples []model.Triple
	if o.d.Manager.Graph != nil && o.d.Extractor != nil {
		setPhase(model.PhaseKGExtract)
		opt := graphextract.ResolveOptions(userSchema, o.d.Cfg.GraphDB == config.GraphKuzu, o.d.Cfg.MaxTripletsPerChunk)
		triples, err = o.extractTriples(ctx, jobID, chunks, opt)
		if err != nil {
			return err
		}
	}

	setPhase(model.PhaseIndexing)
	return o.writeAll(ctx, chunks, triples)
}

// extractTriples runs the path extractor over every chunk of one document
// under a single kg_extraction_timeout wall clock, polling the registry
// for cancellation every kg_cancel_check_interval, mirroring
// convert.Converter.Convert's timeout/cancel-ticker structure.
func (o *Orchestrator) extractTriples(ctx context.Context, jobID string, chunks []model.Chunk, opt graphextract.Options) ([]model.Triple, error) {
	timeout := o.d.Cfg.KGExtractionTimeout
	if timeout <= 0 {
		timeout = 3600 * time.Second
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		triples []model.Triple
		err     error
	}
	resCh := make(chan result, 1)
	go func() {
		var all []model.Triple
		for _, c := range chunks {
			ts, err := o.d.Extractor.Extract(runCtx, c, opt)
			if err != nil {
				resCh <- result{nil, err}
				return
			}
			all = append(all, ts...)
		}
		resCh <- result{all, nil}
	}()

	interval := o.d.Cfg.KGCancelCheckInterval
	if interval <= 0 {
		interval = 2 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var cancelledByUser bool
	for {
		select {
		case r := <-resCh:
			if r.err != nil {
				return nil, errs.ModelIO("graph extraction", r.err)
			}
			return r.triples, nil
		case <-runCtx.Done():
			if cancelledByUser || ctx.Err() != nil {
				return nil, errs.Cancelled("processing cancelled by user")
			}
			return nil, errs.Timeout("graph extraction exceeded timeout", runCtx.Err())
		case <-ticker.C:
			if o.d.Registry.IsCancelled(jobID) {
				cancelledByUser = true
				cancel()
			}
		}
	}
}

// writeAll fans out chunk/triple writes to every enabled backend
// concurrently; vector, graph, and search writes may overlap freely
// since each touches a distinct backend.
func (o *Orchestrator) writeAll(ctx context.Context, chunks []model.Chunk, triples []model.Triple) error {
	g, gctx := errgroup.WithContext(ctx)

	if o.d.Manager.Vector != nil {
		g.Go(func() error { return o.writeVector(gctx, chunks) })
	}
	if o.d.Manager.Graph != nil {
		g.Go(func() error { return o.writeGraph(gctx, triples) })
	}
	if o.d.Manager.Search != nil {
		g.Go(func() error { return o.writeSearch(gctx, chunks) })
	}

	return g.Wait()
}

func (o *Orchestrator) writeVector(ctx context.Context, chunks []model.Chunk) error {
	if o.d.Embedder == nil {
		return errs.Bug("vector backend enabled without an embedder")
	}
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	embs, err := o.d.Embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return errs.ModelIO("embed chunks", err)
	}
	// Checked after embedding so an embedder that learns its dimension
	// from its first response reports the real value.
	if err := o.d.Manager.Vector.EnsureDimension(ctx, o.d.Embedder.Dimension()); err != nil {
		return errs.BackendIO("ensure vector dimension", err)
	}
	for i, c := range chunks {
		c.Embedding = embs[i]
		if err := o.d.Manager.Vector.Upsert(ctx, c); err != nil {
			return errs.BackendIO("vector upsert", err)
		}
	}
	return nil
}

func (o *Orchestrator) writeGraph(ctx context.Context, triples []model.Triple) error {
	for _, t := range triples {
		if err := o.d.Manager.Graph.UpsertTriple(ctx, t); err != nil {
			return errs.BackendIO("graph upsert", err)
		}
	}
	return nil
}

func (o *Orchestrator) writeSearch(ctx context.Context, chunks []model.Chunk) error {
	for _, c := range chunks {
		if err := o.d.Manager.Search.Index(ctx, c); err != nil {
			return errs.BackendIO("search index", err)
		}
	}
	return nil
}

func jobStatusPtr(s model.JobStatus) *model.JobStatus { return &s }
func strPtr(s string) *string                         { return &s }

// userMessageFor renders distinct messages for timeout and model-I/O
// failures so operators can tell the two apart.
func userMessageFor(err error) string {
	if errs.Is(err, errs.KindTimeout) {
		return "Processing timeout – provider took too long; try increasing timeout or using smaller documents."
	}
	if errs.Is(err, errs.KindModelIO) {
		return "LLM processing was interrupted; this can happen with complex documents."
	}
	return fmt.Sprintf("Ingestion failed: %v", err)
}
