package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	// Validation failures never reach the pipeline.
	ErrInvalidInput = errors.New("invalid input")

	// ErrJobCancelled indicates an ingestion job was cancelled by the user.
	// Cancellation is a distinct terminal state, not a failure.
	ErrJobCancelled = errors.New("job cancelled")

	// ErrSchedulerStopped indicates the inference scheduler is no longer
	// accepting work.
	ErrSchedulerStopped = errors.New("inference scheduler stopped")

	// ErrInferenceUnavailable indicates the inference backend is not
	// configured or unreachable.
	ErrInferenceUnavailable = errors.New("inference backend unavailable")

	// ErrStoreUnavailable indicates the document store is not configured.
	ErrStoreUnavailable = errors.New("document store unavailable")
)
