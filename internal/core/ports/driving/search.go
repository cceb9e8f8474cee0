package driving

import (
	"context"

	"github.com/custodia-labs/ragdex/internal/core/domain"
)

// SearchOptions configures a retrieval request.
type SearchOptions struct {
	// TopK caps the number of results. Zero uses the configured default.
	TopK int

	// Tags narrows retrieval to documents carrying any of these tags.
	Tags []string

	// Rerank overrides the process-wide rerank default when non-nil.
	Rerank *bool

	// ExpandContext overrides neighbour expansion when non-nil.
	ExpandContext *bool
}

// SearchService retrieves relevant chunks for a query.
type SearchService interface {
	// Search runs the full retrieval pipeline: hybrid search, optional
	// reranking, optional neighbour expansion.
	Search(ctx context.Context, query string, opts SearchOptions) ([]domain.RetrievalResult, error)
}
