package driven

import (
	"context"
	"time"
)

// MetricsEvent is one recorded pipeline event.
type MetricsEvent struct {
	// Type is the event kind ("query", "query_stream", "ingest",
	// "tag_generation").
	Type string

	// Model is the model involved, when applicable.
	Model string

	// DocumentID is set for ingest events.
	DocumentID string

	// Duration is the wall-clock time of the operation.
	Duration time.Duration

	// Token counters from the inference backend, zero when unknown.
	PromptTokens     int
	CompletionTokens int

	// Metadata holds free-form labels (chunk counts, lengths).
	Metadata map[string]any
}

// MetricsSink records pipeline events fire-and-forget.
// Implementations must never propagate failures to the caller.
type MetricsSink interface {
	Record(ctx context.Context, ev MetricsEvent)
}
