package services

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/ragdex/internal/core/domain"
	"github.com/custodia-labs/ragdex/internal/core/ports/driven"
	"github.com/custodia-labs/ragdex/internal/core/ports/driving"
	"github.com/custodia-labs/ragdex/internal/logger"
)

// Ensure JobTracker implements the interface.
var _ driving.JobService = (*JobTracker)(nil)

// historyLimit caps how many terminal jobs the tracker lists from the
// persistent store.
const historyLimit = 50

// JobTracker keeps active ingestion jobs in memory and moves them to
// the persistent store once they reach a terminal state.
type JobTracker struct {
	mu     sync.Mutex
	active map[string]*domain.Job
	store  driven.JobStore
}

// NewJobTracker creates a tracker. The store is optional; without it,
// terminal jobs are simply dropped from tracking.
func NewJobTracker(store driven.JobStore) *JobTracker {
	return &JobTracker{
		active: make(map[string]*domain.Job),
		store:  store,
	}
}

// Register adds an active job to the tracker.
func (t *JobTracker) Register(job *domain.Job) {
	t.mu.Lock()
	t.active[job.ID] = job
	t.mu.Unlock()
}

// Finish persists a terminal job and removes it from the active set.
func (t *JobTracker) Finish(ctx context.Context, job *domain.Job) {
	if t.store != nil {
		if err := t.store.SaveJob(ctx, job.Snapshot()); err != nil {
			logger.Warn("Failed to persist job %s: %v", job.ID, err)
		}
	}
	t.mu.Lock()
	delete(t.active, job.ID)
	t.mu.Unlock()
}

// GetJob returns a job by id, checking active jobs before history.
func (t *JobTracker) GetJob(ctx context.Context, id string) (*domain.JobView, error) {
	t.mu.Lock()
	job, ok := t.active[id]
	t.mu.Unlock()
	if ok {
		view := job.Snapshot()
		return &view, nil
	}

	if t.store == nil {
		return nil, domain.ErrNotFound
	}
	return t.store.GetJob(ctx, id)
}

// ListJobs merges active and historical jobs, newest first. An active
// job shadows its stored record.
func (t *JobTracker) ListJobs(ctx context.Context) ([]domain.JobView, error) {
	t.mu.Lock()
	views := make([]domain.JobView, 0, len(t.active))
	seen := make(map[string]bool, len(t.active))
	for _, job := range t.active {
		view := job.Snapshot()
		views = append(views, view)
		seen[view.ID] = true
	}
	t.mu.Unlock()

	if t.store != nil {
		stored, err := t.store.ListJobs(ctx, historyLimit)
		if err != nil {
			return nil, err
		}
		for _, view := range stored {
			if !seen[view.ID] {
				views = append(views, view)
			}
		}
	}

	sort.Slice(views, func(i, j int) bool {
		return views[i].CreatedAt.After(views[j].CreatedAt)
	})
	return views, nil
}

// CancelJob requests cooperative cancellation of an active job.
// Returns false for unknown or already terminal jobs.
func (t *JobTracker) CancelJob(_ context.Context, id string) (bool, error) {
	t.mu.Lock()
	job, ok := t.active[id]
	t.mu.Unlock()
	if !ok {
		return false, nil
	}

	if job.Snapshot().Status.Terminal() {
		return false, nil
	}
	job.Cancel()
	logger.Info("Job %s cancelled", id)
	return true, nil
}
