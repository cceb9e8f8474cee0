package driving

import (
	"context"

	"github.com/custodia-labs/ragdex/internal/core/domain"
)

// IngestService starts background document ingestion.
type IngestService interface {
	// IngestContent ingests already-parsed text content. Returns the
	// queued job; the pipeline runs in the background.
	IngestContent(ctx context.Context, filename, sourceType, content string, metadata map[string]any, tags []string) (*domain.Job, error)

	// IngestURL fetches a web page and ingests its extracted text.
	// Parsing happens inside the job so fetch failures surface there.
	IngestURL(ctx context.Context, url string, tags []string) (*domain.Job, error)
}

// JobService exposes ingestion job tracking.
type JobService interface {
	// GetJob returns a job by id, checking active jobs first, then the
	// persistent store.
	GetJob(ctx context.Context, id string) (*domain.JobView, error)

	// ListJobs merges active and historical jobs, newest first.
	ListJobs(ctx context.Context) ([]domain.JobView, error)

	// CancelJob requests cooperative cancellation of an active job.
	// Returns false if the job is unknown or already terminal.
	CancelJob(ctx context.Context, id string) (bool, error)
}
