// Package jobs implements an in-memory job-status registry: job
// creation, progress updates, cooperative cancellation, and event
// streaming for long-running ingestion runs.
package jobs

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"hybridrag/internal/model"
)

// Registry is a process-wide map of job ids to job records, safe for
// concurrent reads and writes from many callers.
type Registry struct {
	mu   sync.RWMutex
	jobs map[string]*model.Job
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{jobs: make(map[string]*model.Job)}
}

// CreateOptions seeds the initial time estimate from input shape.
type CreateOptions struct {
	TotalFiles     int
	TotalBytes     int64
	HasComplexDocs bool // PDF/DOCX/PPTX/XLSX present
}

// Create allocates a new job and returns its id.
func (r *Registry) Create(opt CreateOptions) string {
	id := newJobID()
	now := time.Now()
	job := &model.Job{
		ID:                     id,
		Status:                 model.JobStarted,
		Message:                "Job created",
		StartedAt:              now,
		UpdatedAt:              now,
		TotalFiles:             opt.TotalFiles,
		EstimatedTimeRemaining: estimateFromShape(opt),
	}
	r.mu.Lock()
	r.jobs[id] = job
	r.mu.Unlock()
	return id
}

// Patch is a monotonic partial update to a job, applied by Update.
type Patch struct {
	Status                 *model.JobStatus
	Message                *string
	ProgressPercent        *float64
	CurrentFile            *string
	CurrentPhase           *model.FilePhase
	FilesCompleted         *int
	PerFile                []model.PerFile // replaces the whole slice when non-nil
	EstimatedTimeRemaining *string
}

// Update applies a patch to the job identified by id. It recomputes the
// time estimate from elapsed/completed progress once at least one file has
// completed, unless the patch supplies its own estimate.
func (r *Registry) Update(id string, p Patch) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return fmt.Errorf("job %s not found", id)
	}
	if p.Status != nil {
		// A terminal status is monotonic: once cancelled/failed/completed, a
		// later patch cannot flip the job to a different terminal status
		// (a convert/extract timeout racing a user cancel must not clobber
		// the cancellation the registry already recorded).
		if !isTerminal(job.Status) || *p.Status == job.Status {
			job.Status = *p.Status
		}
	}
	if p.Message != nil {
		job.Message = *p.Message
	}
	if p.ProgressPercent != nil && *p.ProgressPercent >= job.ProgressPercent {
		job.ProgressPercent = *p.ProgressPercent
	}
	if p.CurrentFile != nil {
		job.CurrentFile = *p.CurrentFile
	}
	if p.CurrentPhase != nil {
		job.CurrentPhase = *p.CurrentPhase
	}
	if p.FilesCompleted != nil {
		job.FilesCompleted = *p.FilesCompleted
	}
	if p.PerFile != nil {
		job.PerFile = p.PerFile
	}
	job.UpdatedAt = time.Now()

	if p.EstimatedTimeRemaining != nil {
		job.EstimatedTimeRemaining = *p.EstimatedTimeRemaining
	} else if job.FilesCompleted >= 1 && job.FilesCompleted < job.TotalFiles {
		elapsed := job.UpdatedAt.Sub(job.StartedAt)
		remaining := job.TotalFiles - job.FilesCompleted
		perFile := elapsed / time.Duration(job.FilesCompleted)
		job.EstimatedTimeRemaining = humanDuration(perFile * time.Duration(remaining))
	} else if job.FilesCompleted >= job.TotalFiles && job.TotalFiles > 0 {
		job.EstimatedTimeRemaining = "0s"
	}
	return nil
}

// Get returns a snapshot copy of a job's current state.
func (r *Registry) Get(id string) (model.Job, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	job, ok := r.jobs[id]
	if !ok {
		return model.Job{}, false
	}
	return job.Snapshot(), true
}

// Cancel transitions a job to cancelled, preserving progress so far.
// It is only permitted when the job is started or processing; a cancel
// on an already-terminal job is a no-op returning ok=false.
func (r *Registry) Cancel(id string) (ok bool, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, found := r.jobs[id]
	if !found {
		return false, fmt.Errorf("job %s not found", id)
	}
	if job.Status != model.JobStarted && job.Status != model.JobProcessing {
		return false, nil
	}
	job.Status = model.JobCancelled
	job.Message = "Processing cancelled by user"
	job.UpdatedAt = time.Now()
	return true, nil
}

// IsCancelled is the cooperative-cancellation checkpoint producers poll
// at regular intervals while processing a job.
func (r *Registry) IsCancelled(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	job, ok := r.jobs[id]
	return ok && job.Status == model.JobCancelled
}

// Stream emits a job snapshot roughly every interval (defaulting to 2s)
// until the job reaches a terminal status or ctx is cancelled.
func (r *Registry) Stream(ctx context.Context, id string, interval time.Duration) <-chan model.Job {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	out := make(chan model.Job)
	go func() {
		defer close(out)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			snap, ok := r.Get(id)
			if ok {
				select {
				case out <- snap:
				case <-ctx.Done():
					return
				}
				if isTerminal(snap.Status) {
					return
				}
			} else {
				return
			}
			select {
			case <-ticker.C:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

func isTerminal(s model.JobStatus) bool {
	return s == model.JobCompleted || s == model.JobFailed || s == model.JobCancelled
}

func newJobID() string {
	b := make([]byte, 6)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// estimateFromShape computes the initial estimate from input size, file
// count, and presence of "complex" formats.
func estimateFromShape(opt CreateOptions) string {
	if opt.TotalFiles == 0 {
		return "unknown"
	}
	perFile := 3 * time.Second
	if opt.HasComplexDocs {
		perFile = 15 * time.Second
	}
	// Larger corpora dominated by bytes get a modest per-MB allowance.
	sizeFactor := time.Duration(opt.TotalBytes/(1<<20)) * time.Second
	return humanDuration(perFile*time.Duration(opt.TotalFiles) + sizeFactor)
}

func humanDuration(d time.Duration) string {
	if d <= 0 {
		return "0s"
	}
	if d < time.Minute {
		return d.Round(time.Second).String()
	}
	if d < time.Hour {
		return d.Round(time.Second).String()
	}
	return d.Round(time.Minute).String()
}
