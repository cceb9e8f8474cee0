package domain

import (
	"sync"
	"time"
)

// JobStatus is the lifecycle state of an ingestion job.
type JobStatus string

// Job statuses. Transitions are monotonic through the pipeline stages;
// cancellation can interrupt any non-terminal state.
const (
	JobQueued    JobStatus = "queued"
	JobParsing   JobStatus = "parsing"
	JobTagging   JobStatus = "tagging"
	JobEmbedding JobStatus = "embedding"
	JobIndexing  JobStatus = "indexing"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
	JobCancelled JobStatus = "cancelled"
)

// Terminal reports whether the status is a terminal state.
func (s JobStatus) Terminal() bool {
	return s == JobCompleted || s == JobFailed || s == JobCancelled
}

// Job tracks a background ingestion task. Fields are guarded by an
// internal mutex because the ingest goroutine and the cancel path touch
// the job concurrently; read access goes through Snapshot.
type Job struct {
	mu sync.Mutex

	// ID is the unique job identifier.
	ID string

	// Filename is the document being ingested.
	Filename string

	// SourceType is "text", "web" or "pdf".
	SourceType string

	// Status is the current lifecycle state.
	Status JobStatus

	// CurrentStage mirrors Status while the job is active.
	CurrentStage string

	// Progress counters.
	TotalChunks    int
	EmbeddedChunks int

	// Result fields, set on completion.
	DocumentID string
	ChunkCount int
	Tags       []string
	Error      string

	CreatedAt   time.Time
	StartedAt   time.Time
	CompletedAt time.Time

	cancelled chan struct{}
}

// NewJob creates a queued job.
func NewJob(id, filename, sourceType string) *Job {
	return &Job{
		ID:         id,
		Filename:   filename,
		SourceType: sourceType,
		Status:     JobQueued,
		CreatedAt:  time.Now().UTC(),
		cancelled:  make(chan struct{}),
	}
}

// SetStage advances the job to a pipeline stage. A job already in a
// terminal state stays there; the return value reports whether the
// transition happened.
func (j *Job) SetStage(status JobStatus) bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.Status.Terminal() {
		return false
	}
	j.Status = status
	j.CurrentStage = string(status)
	if j.StartedAt.IsZero() {
		j.StartedAt = time.Now().UTC()
	}
	return true
}

// SetProgress updates the embedding progress counters.
func (j *Job) SetProgress(total, embedded int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if total > 0 {
		j.TotalChunks = total
	}
	j.EmbeddedChunks = embedded
}

// Complete marks the job as successfully finished. A cancellation that
// already landed wins; the return value reports whether the job
// actually completed.
func (j *Job) Complete(documentID string, chunkCount int, tags []string) bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.Status.Terminal() {
		return false
	}
	j.Status = JobCompleted
	j.CurrentStage = ""
	j.CompletedAt = time.Now().UTC()
	j.DocumentID = documentID
	j.ChunkCount = chunkCount
	j.Tags = tags
	return true
}

// Fail marks the job as failed with the given error message.
func (j *Job) Fail(errMsg string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.Status.Terminal() {
		return
	}
	j.Status = JobFailed
	j.CurrentStage = ""
	j.CompletedAt = time.Now().UTC()
	j.Error = errMsg
}

// Cancel requests cooperative cancellation and marks the job cancelled.
// Safe to call multiple times.
func (j *Job) Cancel() {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.Status.Terminal() {
		return
	}
	j.Status = JobCancelled
	j.CurrentStage = ""
	j.CompletedAt = time.Now().UTC()
	select {
	case <-j.cancelled:
	default:
		close(j.cancelled)
	}
}

// CheckCancelled returns ErrJobCancelled if cancellation was requested.
// The ingest pipeline calls this between stages.
func (j *Job) CheckCancelled() error {
	select {
	case <-j.cancelled:
		return ErrJobCancelled
	default:
		return nil
	}
}

// Snapshot returns a copy of the job's observable state for listing
// and persistence.
func (j *Job) Snapshot() JobView {
	j.mu.Lock()
	defer j.mu.Unlock()
	return JobView{
		ID:             j.ID,
		Filename:       j.Filename,
		SourceType:     j.SourceType,
		Status:         j.Status,
		CurrentStage:   j.CurrentStage,
		TotalChunks:    j.TotalChunks,
		EmbeddedChunks: j.EmbeddedChunks,
		DocumentID:     j.DocumentID,
		ChunkCount:     j.ChunkCount,
		Tags:           append([]string(nil), j.Tags...),
		Error:          j.Error,
		CreatedAt:      j.CreatedAt,
		StartedAt:      j.StartedAt,
		CompletedAt:    j.CompletedAt,
	}
}

// JobView is an immutable snapshot of a job, safe to serialise.
type JobView struct {
	ID             string    `json:"job_id"`
	Filename       string    `json:"filename"`
	SourceType     string    `json:"source_type"`
	Status         JobStatus `json:"status"`
	CurrentStage   string    `json:"current_stage,omitempty"`
	TotalChunks    int       `json:"total_chunks"`
	EmbeddedChunks int       `json:"embedded_chunks"`
	DocumentID     string    `json:"document_id,omitempty"`
	ChunkCount     int       `json:"chunk_count,omitempty"`
	Tags           []string  `json:"tags,omitempty"`
	Error          string    `json:"error,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	StartedAt      time.Time `json:"started_at,omitempty"`
	CompletedAt    time.Time `json:"completed_at,omitempty"`
}
