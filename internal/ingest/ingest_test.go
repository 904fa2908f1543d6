package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"hybridrag/internal/chunk"
	"hybridrag/internal/config"
	"hybridrag/internal/convert"
	"hybridrag/internal/embedding"
	"hybridrag/internal/graphextract"
	"hybridrag/internal/jobs"
	"hybridrag/internal/llmclient"
	"hybridrag/internal/model"
	"hybridrag/internal/retrieve"
	"hybridrag/internal/source"
	"hybridrag/internal/store"
)

type fakeLLM struct{ response string }

func (f *fakeLLM) Complete(_ context.Context, _, _ string) (string, error) {
	return f.response, nil
}

func waitTerminal(t *testing.T, reg *jobs.Registry, jobID string) model.Job {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		job, ok := reg.Get(jobID)
		require.True(t, ok)
		switch job.Status {
		case model.JobCompleted, model.JobFailed, model.JobCancelled:
			return job
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("job %s never reached a terminal status", jobID)
	return model.Job{}
}

func newTestOrchestrator(t *testing.T, cfg config.Config, mgr store.Manager, llm llmclient.Client) (*Orchestrator, *jobs.Registry) {
	t.Helper()
	reg := jobs.NewRegistry()
	composer, err := retrieve.New(cfg, mgr, nil, embedding.NewDeterministic(32, true, 1), llm)
	require.NoError(t, err)

	o := New(Deps{
		Cfg:        cfg,
		Registry:   reg,
		Converter:  convert.New(convert.DevFakeTool{}),
		Summarizer: chunk.ExtractiveSummarizer{},
		Embedder:   embedding.NewDeterministic(32, true, 1),
		Extractor:  graphextract.New(llm),
		Manager:    mgr,
		Composer:   composer,
	})
	return o, reg
}

func TestIngest_TextSourceCompletesAndArmsComposer(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.VectorDB = config.VectorNone
	cfg.GraphDB = config.GraphNone
	cfg.SearchDB = config.SearchBM25

	mgr := store.Manager{Search: store.NewMemorySearch()}
	o, reg := newTestOrchestrator(t, cfg, mgr, &fakeLLM{response: "ignored"})

	src := source.NewTextSource("Acme Corporation was founded in nineteen ninety in London by a small group of engineers.", "")
	jobID, err := o.Ingest(context.Background(), src)
	require.NoError(t, err)

	job := waitTerminal(t, reg, jobID)
	require.Equal(t, model.JobCompleted, job.Status)
	require.Equal(t, 1, job.FilesCompleted)

	results, err := o.d.Composer.Search(context.Background(), "Acme", 5)
	require.NoError(t, err)
	require.NotEmpty(t, results)
}

func TestIngest_VectorAndGraphWritesBothOccur(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.VectorDB = config.VectorPostgres
	cfg.GraphDB = config.GraphKuzu
	cfg.SearchDB = config.SearchNone
	cfg.EmbeddingDimension = 32

	mgr := store.Manager{Vector: store.NewMemoryVector(), Graph: store.NewMemoryGraph()}
	llm := &fakeLLM{response: `[{"subject":"Acme","subject_label":"Entity","relation":"LOCATED_IN","object":"London","object_label":"Entity"}]`}
	o, reg := newTestOrchestrator(t, cfg, mgr, llm)

	src := source.NewTextSource("Acme is located in London and develops software for clients worldwide.", "acme.txt")
	jobID, err := o.Ingest(context.Background(), src)
	require.NoError(t, err)

	job := waitTerminal(t, reg, jobID)
	require.Equal(t, model.JobCompleted, job.Status)

	graphResults, err := mgr.Graph.Search(context.Background(), "Acme", 5)
	require.NoError(t, err)
	require.NotEmpty(t, graphResults)

	qvec, err := embedding.NewDeterministic(32, true, 1).EmbedBatch(context.Background(), []string{"Acme"})
	require.NoError(t, err)
	vectorResults, err := mgr.Vector.Search(context.Background(), qvec[0], 5)
	require.NoError(t, err)
	require.NotEmpty(t, vectorResults)
}

func TestOrchestrator_HandleCancellationSetsCancelledStatus(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.VectorDB = config.VectorNone
	cfg.GraphDB = config.GraphNone
	cfg.SearchDB = config.SearchBM25

	mgr := store.Manager{Search: store.NewMemorySearch()}
	o, reg := newTestOrchestrator(t, cfg, mgr, &fakeLLM{})

	jobID := reg.Create(jobs.CreateOptions{TotalFiles: 1})
	_, _ = reg.Cancel(jobID)
	o.handleCancellation(jobID)

	job, ok := reg.Get(jobID)
	require.True(t, ok)
	require.Equal(t, model.JobCancelled, job.Status)
	require.Equal(t, "Processing cancelled by user", job.Message)

	_, err := o.d.Composer.Search(context.Background(), "anything", 5)
	require.Error(t, err)
}

// slowLLM delays every completion by a fixed duration, long enough for a
// Stream poll to observe an intermediate per-file phase.
type slowLLM struct {
	response string
	delay    time.Duration
}

func (f *slowLLM) Complete(ctx context.Context, _, _ string) (string, error) {
	select {
	case <-time.After(f.delay):
		return f.response, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// blockingLLM never completes until ctx is cancelled, so a registry cancel
// issued while extraction is in flight reliably lands mid-call instead of
// racing a fast response (mirroring convert_test.go's blockingTool).
type blockingLLM struct{}

func (blockingLLM) Complete(ctx context.Context, _, _ string) (string, error) {
	<-ctx.Done()
	time.Sleep(20 * time.Millisecond)
	return "", ctx.Err()
}

func TestIngest_PerFilePhaseAdvancesThroughKGExtraction(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.VectorDB = config.VectorNone
	cfg.GraphDB = config.GraphKuzu
	cfg.SearchDB = config.SearchNone
	cfg.EmbeddingDimension = 32

	mgr := store.Manager{Graph: store.NewMemoryGraph()}
	llm := &slowLLM{response: `[]`, delay: 20 * time.Millisecond}
	o, reg := newTestOrchestrator(t, cfg, mgr, llm)

	src := source.NewTextSource("Acme is located in London.", "acme.txt")
	jobID, err := o.Ingest(context.Background(), src)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	seen := map[model.FilePhase]bool{}
	for job := range reg.Stream(ctx, jobID, time.Millisecond) {
		for _, pf := range job.PerFile {
			seen[pf.Phase] = true
		}
	}

	require.True(t, seen[model.PhaseKGExtract], "expected to observe kg_extraction phase, saw %v", seen)
	require.True(t, seen[model.PhaseCompleted], "expected to observe completed phase, saw %v", seen)
}

func TestIngest_CancellationDuringKGExtractionEndsJobCancelledNotFailed(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.VectorDB = config.VectorNone
	cfg.GraphDB = config.GraphKuzu
	cfg.SearchDB = config.SearchNone
	cfg.EmbeddingDimension = 32
	cfg.KGCancelCheckInterval = time.Millisecond

	mgr := store.Manager{Graph: store.NewMemoryGraph()}
	o, reg := newTestOrchestrator(t, cfg, mgr, blockingLLM{})

	src := source.NewTextSource("Acme is located in London.", "acme.txt")
	jobID, err := o.Ingest(context.Background(), src)
	require.NoError(t, err)

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		job, ok := reg.Get(jobID)
		require.True(t, ok)
		if len(job.PerFile) > 0 && job.PerFile[0].Phase == model.PhaseKGExtract {
			break
		}
		time.Sleep(time.Millisecond)
	}

	ok, err := reg.Cancel(jobID)
	require.NoError(t, err)
	require.True(t, ok)

	job := waitTerminal(t, reg, jobID)
	require.Equal(t, model.JobCancelled, job.Status)
}

func TestIngest_FilesystemSourceProcessesEveryFile(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.VectorDB = config.VectorNone
	cfg.GraphDB = config.GraphNone
	cfg.SearchDB = config.SearchBM25

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("Alpha document about widgets and gadgets."), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.txt"), []byte("Beta document about rockets and satellites."), 0o644))

	mgr := store.Manager{Search: store.NewMemorySearch()}
	o, reg := newTestOrchestrator(t, cfg, mgr, &fakeLLM{})

	src := source.NewFilesystemSource([]string{dir})
	jobID, err := o.Ingest(context.Background(), src)
	require.NoError(t, err)

	job := waitTerminal(t, reg, jobID)
	require.Equal(t, model.JobCompleted, job.Status)
	require.Equal(t, 2, job.FilesCompleted)
}
