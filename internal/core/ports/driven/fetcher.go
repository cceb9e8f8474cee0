package driven

import (
	"context"

	"github.com/custodia-labs/ragdex/internal/core/domain"
)

// Fetcher retrieves raw documents from remote locations.
type Fetcher interface {
	// Fetch downloads the resource at the given URL.
	Fetch(ctx context.Context, url string) (*domain.RawDocument, error)
}
