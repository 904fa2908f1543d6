package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"hybridrag/internal/model"
)

func TestCreateGet(t *testing.T) {
	r := NewRegistry()
	id := r.Create(CreateOptions{TotalFiles: 3})
	require.NotEmpty(t, id)

	job, ok := r.Get(id)
	require.True(t, ok)
	require.Equal(t, model.JobStarted, job.Status)
	require.Equal(t, 3, job.TotalFiles)
	require.NotEqual(t, "unknown", job.EstimatedTimeRemaining)
}

func TestCreate_UnknownEstimateWhenNoFiles(t *testing.T) {
	r := NewRegistry()
	id := r.Create(CreateOptions{})
	job, _ := r.Get(id)
	require.Equal(t, "unknown", job.EstimatedTimeRemaining)
}

func TestUpdate_ProgressIsMonotonic(t *testing.T) {
	r := NewRegistry()
	id := r.Create(CreateOptions{TotalFiles: 2})

	p50 := 50.0
	require.NoError(t, r.Update(id, Patch{ProgressPercent: &p50}))
	p10 := 10.0
	require.NoError(t, r.Update(id, Patch{ProgressPercent: &p10}))

	job, _ := r.Get(id)
	require.Equal(t, 50.0, job.ProgressPercent)
}

func TestUpdate_RecomputesEstimateAfterFirstFileCompletes(t *testing.T) {
	r := NewRegistry()
	id := r.Create(CreateOptions{TotalFiles: 4})
	initial, _ := r.Get(id)

	time.Sleep(5 * time.Millisecond)
	one := 1
	require.NoError(t, r.Update(id, Patch{FilesCompleted: &one}))

	job, _ := r.Get(id)
	require.NotEqual(t, "unknown", job.EstimatedTimeRemaining)
	require.NotEqual(t, initial.EstimatedTimeRemaining, job.EstimatedTimeRemaining)
}

func TestUpdate_UnknownJob(t *testing.T) {
	r := NewRegistry()
	err := r.Update("missing", Patch{})
	require.Error(t, err)
}

func TestCancel_OnlyWhileActive(t *testing.T) {
	r := NewRegistry()
	id := r.Create(CreateOptions{TotalFiles: 1})

	ok, err := r.Cancel(id)
	require.NoError(t, err)
	require.True(t, ok)

	job, _ := r.Get(id)
	require.Equal(t, model.JobCancelled, job.Status)
	require.True(t, r.IsCancelled(id))

	ok, err = r.Cancel(id)
	require.NoError(t, err)
	require.False(t, ok) // already terminal
}

func TestCancel_UnknownJob(t *testing.T) {
	r := NewRegistry()
	_, err := r.Cancel("missing")
	require.Error(t, err)
}

func TestUpdate_TerminalStatusIsMonotonic(t *testing.T) {
	r := NewRegistry()
	id := r.Create(CreateOptions{TotalFiles: 1})

	cancelled := model.JobCancelled
	require.NoError(t, r.Update(id, Patch{Status: &cancelled}))

	// A conversion/extraction timeout racing a user cancel must not
	// clobber the cancellation already recorded for this job.
	failed := model.JobFailed
	require.NoError(t, r.Update(id, Patch{Status: &failed}))

	job, _ := r.Get(id)
	require.Equal(t, model.JobCancelled, job.Status)
}

func TestStream_StopsAtTerminalStatus(t *testing.T) {
	r := NewRegistry()
	id := r.Create(CreateOptions{TotalFiles: 1})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	ch := r.Stream(ctx, id, 5*time.Millisecond)

	go func() {
		time.Sleep(10 * time.Millisecond)
		completed := model.JobCompleted
		_ = r.Update(id, Patch{Status: &completed})
	}()

	var last model.Job
	for snap := range ch {
		last = snap
	}
	require.Equal(t, model.JobCompleted, last.Status)
}

func TestSnapshot_IsIndependentOfFurtherMutation(t *testing.T) {
	r := NewRegistry()
	id := r.Create(CreateOptions{TotalFiles: 1})

	perFile := []model.PerFile{{Index: 0, Filename: "a.txt", Status: model.JobProcessing}}
	require.NoError(t, r.Update(id, Patch{PerFile: perFile}))

	snap, _ := r.Get(id)
	snap.PerFile[0].Filename = "mutated"

	again, _ := r.Get(id)
	require.Equal(t, "a.txt", again.PerFile[0].Filename)
}
