package driven

import (
	"context"

	"github.com/custodia-labs/ragdex/internal/core/domain"
)

// JobStore persists terminal ingestion jobs. Active jobs live in memory
// inside the job tracker; only completed/failed/cancelled jobs reach
// the store.
type JobStore interface {
	// SaveJob stores or replaces a job record.
	SaveJob(ctx context.Context, job domain.JobView) error

	// GetJob retrieves a job by id, or domain.ErrNotFound.
	GetJob(ctx context.Context, id string) (*domain.JobView, error)

	// ListJobs returns jobs sorted by creation time, newest first.
	ListJobs(ctx context.Context, limit int) ([]domain.JobView, error)
}
