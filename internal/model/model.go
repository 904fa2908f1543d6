// Package model holds the shared data types that flow through ingestion and
// retrieval: documents, chunks, graph triples, and job records.
package model

import "time"

// Document is canonical text plus metadata produced by the converter (C2).
// It is immutable once created and is discarded after ingestion except for
// the ids retained in the stores it was written to.
type Document struct {
	ID               string
	Source           string
	FileName         string
	FileType         string
	ConversionMethod string
	Text             string
}

// Chunk is a contiguous sub-span of a Document's canonical text, the atomic
// unit of indexing and retrieval.
type Chunk struct {
	ID         string
	DocID      string
	Text       string
	Embedding  []float32
	Position   int
	Keywords   []string
	Summary    string
	Source     string
	FileName   string
	FileType   string
	Metadata   map[string]string
}

// Triple is a single (subject, relation, object) fact extracted from a
// chunk by the LLM path-extractor.
type Triple struct {
	Subject      string
	SubjectLabel string
	Relation     string
	Object       string
	ObjectLabel  string
	ChunkIDs     []string
}

// Schema constrains graph extraction to a closed vocabulary when active.
type Schema struct {
	Name             string
	EntityLabels     []string
	RelationLabels   []string
	ValidationTriples []SchemaTriple
	Strict           bool
}

// SchemaTriple is one allowed (subject_label, relation_label, object_label)
// combination in a Schema's validation list.
type SchemaTriple struct {
	SubjectLabel string
	Relation     string
	ObjectLabel  string
}

// Allows reports whether t is permitted by the schema's validation list.
// An empty validation list permits everything.
func (s Schema) Allows(subjectLabel, relation, objectLabel string) bool {
	if len(s.ValidationTriples) == 0 {
		return true
	}
	for _, v := range s.ValidationTriples {
		if v.SubjectLabel == subjectLabel && v.Relation == relation && v.ObjectLabel == objectLabel {
			return true
		}
	}
	return false
}

// JobStatus is the lifecycle state of an ingestion Job.
type JobStatus string

const (
	JobStarted    JobStatus = "started"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobCancelled  JobStatus = "cancelled"
	JobFailed     JobStatus = "failed"
)

// FilePhase is the processing phase of a single file within a job.
type FilePhase string

const (
	PhaseWaiting     FilePhase = "waiting"
	PhaseFetching    FilePhase = "fetching"
	PhaseDocling     FilePhase = "docling"
	PhaseChunking    FilePhase = "chunking"
	PhaseKGExtract   FilePhase = "kg_extraction"
	PhaseIndexing    FilePhase = "indexing"
	PhaseCompleted   FilePhase = "completed"
	PhaseError       FilePhase = "error"
)

// PerFile is the progress record for one file within a Job.
type PerFile struct {
	Index       int
	Filename    string
	Filepath    string
	Status      JobStatus
	Progress    float64
	Phase       FilePhase
	Message     string
	StartedAt   *time.Time
	CompletedAt *time.Time
	Error       string
}

// Job is a running or terminated ingestion task tracked by the registry (C6).
type Job struct {
	ID                     string
	Status                 JobStatus
	Message                string
	ProgressPercent        float64
	StartedAt              time.Time
	UpdatedAt              time.Time
	TotalFiles             int
	FilesCompleted         int
	CurrentFile            string
	CurrentPhase           FilePhase
	EstimatedTimeRemaining string
	PerFile                []PerFile
}

// Snapshot returns a deep-enough copy of the Job safe to hand to a caller
// without races against later registry mutations.
func (j Job) Snapshot() Job {
	out := j
	out.PerFile = make([]PerFile, len(j.PerFile))
	copy(out.PerFile, j.PerFile)
	return out
}
