package driven

import "context"

// RerankScore is one scored passage from the cross-encoder.
type RerankScore struct {
	// Index is the position of the passage in the input slice.
	Index int

	// Score is the query-passage relevance score.
	Score float64
}

// Reranker scores (query, passage) pairs jointly with a cross-encoder
// model. More precise than embedding similarity, more expensive.
//
// This is an optional service - when nil or failing, the rerank stage
// degrades to passthrough ordering.
type Reranker interface {
	// Rerank scores every passage against the query and returns the
	// scores sorted descending.
	Rerank(ctx context.Context, query string, passages []string) ([]RerankScore, error)

	// ModelName returns the cross-encoder model name.
	ModelName() string

	// Ping validates the service is reachable.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}
