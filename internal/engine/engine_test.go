package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"hybridrag/internal/config"
	"hybridrag/internal/engine/errs"
	"hybridrag/internal/model"
)

func newTestConfig() config.Config {
	cfg := config.DefaultConfig()
	cfg.VectorDB = config.VectorNone
	cfg.GraphDB = config.GraphNone
	cfg.SearchDB = config.SearchBM25
	cfg.LLMProvider = ""
	return cfg
}

func waitTerminal(t *testing.T, e *Engine, jobID string) model.Job {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		job, ok := e.ProcessingStatus(jobID)
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

func TestNew_RejectsAllBackendsDisabled(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.VectorDB = config.VectorNone
	cfg.GraphDB = config.GraphNone
	cfg.SearchDB = config.SearchNone

	_, err := New(context.Background(), cfg, nil)
	require.Error(t, err)
}

func TestEngine_StatusReflectsConfiguredBackends(t *testing.T) {
	e, err := New(context.Background(), newTestConfig(), nil)
	require.NoError(t, err)
	defer e.Close()

	status := e.Status()
	require.False(t, status.HasVector)
	require.False(t, status.HasGraph)
	require.True(t, status.HasRetriever)
}

func TestEngine_IngestRejectsEmptyPathList(t *testing.T) {
	e, err := New(context.Background(), newTestConfig(), nil)
	require.NoError(t, err)
	defer e.Close()

	_, err = e.Ingest(context.Background(), IngestRequest{DataSource: config.DataSourceFilesystem})
	require.Error(t, err)
	require.True(t, errs.Is(err, errs.KindConfigInvalid))
}

func TestEngine_IngestTextThenSearchAndQuery(t *testing.T) {
	e, err := New(context.Background(), newTestConfig(), nil)
	require.NoError(t, err)
	defer e.Close()

	result, err := e.IngestText(context.Background(), "Paul is the heir of House Atreides, which rules the planet Caladan.", "sample-test")
	require.NoError(t, err)
	require.NotEmpty(t, result.JobID)

	job := waitTerminal(t, e, result.JobID)
	require.Equal(t, model.JobCompleted, job.Status)

	results, err := e.Search(context.Background(), "Who is Paul?", 3)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	require.Equal(t, "sample-test", results[0].Source)

	_, err = e.Query(context.Background(), "Who is Paul?")
	require.NoError(t, err)
}

func TestEngine_CancelProcessingIsNoOpWhenAlreadyTerminal(t *testing.T) {
	e, err := New(context.Background(), newTestConfig(), nil)
	require.NoError(t, err)
	defer e.Close()

	result, err := e.IngestText(context.Background(), "short document", "s")
	require.NoError(t, err)
	waitTerminal(t, e, result.JobID)

	ok, _ := e.CancelProcessing(result.JobID)
	require.False(t, ok)
}

func TestEngine_IngestFromFilesystem(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "doc.txt"), []byte("A document about widgets."), 0o644))

	e, err := New(context.Background(), newTestConfig(), nil)
	require.NoError(t, err)
	defer e.Close()

	result, err := e.Ingest(context.Background(), IngestRequest{DataSource: config.DataSourceFilesystem, Paths: []string{dir}})
	require.NoError(t, err)

	job := waitTerminal(t, e, result.JobID)
	require.Equal(t, model.JobCompleted, job.Status)
	require.Equal(t, 1, job.FilesCompleted)
}
