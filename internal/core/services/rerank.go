package services

import (
	"context"

	"github.com/custodia-labs/ragdex/internal/core/domain"
	"github.com/custodia-labs/ragdex/internal/core/ports/driven"
	"github.com/custodia-labs/ragdex/internal/logger"
)

// RerankStage reorders retrieval candidates with a cross-encoder.
// The stage is best-effort: any reranker failure degrades to the
// incoming fused order, truncated to topK. Retrieval never fails
// because a sidecar is down.
type RerankStage struct {
	reranker driven.Reranker
}

// NewRerankStage creates a rerank stage around the given reranker.
func NewRerankStage(reranker driven.Reranker) *RerankStage {
	return &RerankStage{reranker: reranker}
}

// Apply reranks the candidates against the query and returns the top
// topK in cross-encoder order, with rerank scores attached. Fused
// retrieval scores are preserved on each result.
func (r *RerankStage) Apply(
	ctx context.Context, query string, candidates []domain.RetrievalResult, topK int,
) []domain.RetrievalResult {
	if len(candidates) == 0 {
		return candidates
	}

	passages := make([]string, len(candidates))
	for i, c := range candidates {
		passages[i] = c.Content
	}

	scores, err := r.reranker.Rerank(ctx, query, passages)
	if err != nil {
		logger.Warn("Rerank failed, keeping fused order: %v", err)
		return truncate(candidates, topK)
	}

	reranked := make([]domain.RetrievalResult, 0, len(scores))
	for _, sc := range scores {
		if sc.Index < 0 || sc.Index >= len(candidates) {
			logger.Warn("Rerank returned out-of-range index %d, keeping fused order", sc.Index)
			return truncate(candidates, topK)
		}
		result := candidates[sc.Index]
		score := sc.Score
		result.RerankScore = &score
		reranked = append(reranked, result)
	}

	logger.Debug("Reranked %d candidates with %s", len(reranked), r.reranker.ModelName())
	return truncate(reranked, topK)
}

func truncate(results []domain.RetrievalResult, topK int) []domain.RetrievalResult {
	if topK > 0 && len(results) > topK {
		return results[:topK]
	}
	return results
}
