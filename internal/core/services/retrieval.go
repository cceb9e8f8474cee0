package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/ragdex/internal/core/domain"
	"github.com/custodia-labs/ragdex/internal/core/ports/driven"
	"github.com/custodia-labs/ragdex/internal/core/ports/driving"
	"github.com/custodia-labs/ragdex/internal/logger"
)

// Ensure SearchService implements the interface.
var _ driving.SearchService = (*SearchService)(nil)

// chunkKey identifies a chunk across both retrieval legs.
type chunkKey struct {
	documentID string
	index      int
}

// SearchService runs the retrieval pipeline: hybrid lexical and vector
// search fused with reciprocal rank fusion, an optional cross-encoder
// rerank stage, and optional neighbour expansion.
type SearchService struct {
	store     driven.DocumentStore
	inference driven.InferenceService
	scheduler *Scheduler
	rerank    *RerankStage
	expander  *ContextExpander
	metrics   driven.MetricsSink

	retrieval domain.RetrievalSettings
	rerankCfg domain.RerankSettings
}

// NewSearchService creates a search service. The rerank stage, expander,
// and metrics sink are optional (can be nil).
func NewSearchService(
	store driven.DocumentStore,
	inference driven.InferenceService,
	scheduler *Scheduler,
	rerank *RerankStage,
	expander *ContextExpander,
	metrics driven.MetricsSink,
	settings domain.Settings,
) *SearchService {
	return &SearchService{
		store:     store,
		inference: inference,
		scheduler: scheduler,
		rerank:    rerank,
		expander:  expander,
		metrics:   metrics,
		retrieval: settings.Retrieval,
		rerankCfg: settings.Rerank,
	}
}

// Search runs the full retrieval pipeline for a query.
func (s *SearchService) Search(
	ctx context.Context, query string, opts driving.SearchOptions,
) ([]domain.RetrievalResult, error) {
	logger.Section("Retrieval")
	logger.Debug("Query: %q", query)

	query = strings.TrimSpace(query)
	if query == "" {
		return []domain.RetrievalResult{}, nil
	}

	topK := opts.TopK
	if topK <= 0 {
		topK = s.retrieval.TopK
	}

	useRerank := s.rerankCfg.Enabled
	if opts.Rerank != nil {
		useRerank = *opts.Rerank
	}
	useRerank = useRerank && s.rerank != nil

	// Over-retrieve when reranking so the cross-encoder has candidates
	// beyond the final cut to promote.
	fetchLimit := topK
	if useRerank {
		multiplier := s.rerankCfg.Multiplier
		if multiplier <= 0 {
			multiplier = 3
		}
		fetchLimit = topK * multiplier
	}
	logger.Debug("TopK: %d, fetch limit: %d, rerank: %t", topK, fetchLimit, useRerank)

	started := time.Now()
	results, err := s.HybridSearch(ctx, query, fetchLimit, opts.Tags)
	if err != nil {
		return nil, err
	}
	logger.Debug("Fused results: %d", len(results))

	if useRerank {
		results = s.rerank.Apply(ctx, query, results, topK)
	} else if len(results) > topK {
		results = results[:topK]
	}

	// Neighbour expansion only makes sense over a reranked pool; the
	// wider fused candidate set would pull in too much low-grade text.
	expand := s.rerankCfg.ExpandContext
	if opts.ExpandContext != nil {
		expand = *opts.ExpandContext
	}
	if useRerank && expand && s.expander != nil {
		results = s.expander.Expand(ctx, results)
	}

	if s.metrics != nil {
		s.metrics.Record(ctx, driven.MetricsEvent{
			Type:     "search",
			Duration: time.Since(started),
			Metadata: map[string]any{"results": len(results)},
		})
	}

	logger.Info("Final results: %d", len(results))
	return results, nil
}

// HybridSearch runs keyword and vector search in parallel and fuses the
// two ranked lists with reciprocal rank fusion. If one leg fails the
// other's results are returned alone; only a double failure is an error.
func (s *SearchService) HybridSearch(
	ctx context.Context, query string, limit int, tags []string,
) ([]domain.RetrievalResult, error) {
	var keywordHits, vectorHits []driven.SearchHit
	var keywordErr, vectorErr error

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		keywordHits, keywordErr = s.store.KeywordSearch(ctx, query, limit, tags)
		if keywordErr != nil {
			logger.Warn("Keyword search failed: %v", keywordErr)
		}
	}()

	go func() {
		defer wg.Done()
		var vector []float32
		vector, vectorErr = s.embedQuery(ctx, query)
		if vectorErr != nil {
			logger.Warn("Query embedding failed: %v", vectorErr)
			return
		}
		vectorHits, vectorErr = s.store.VectorSearch(ctx, vector, limit, tags)
		if vectorErr != nil {
			logger.Warn("Vector search failed: %v", vectorErr)
		}
	}()

	wg.Wait()

	if keywordErr != nil && vectorErr != nil {
		return nil, fmt.Errorf("hybrid search: keyword=%w, vector=%w", keywordErr, vectorErr)
	}
	if keywordErr != nil {
		logger.Warn("Degrading to vector-only results")
		return s.fuse(nil, vectorHits, limit), nil
	}
	if vectorErr != nil {
		logger.Warn("Degrading to keyword-only results")
		return s.fuse(keywordHits, nil, limit), nil
	}

	logger.Debug("Fusing %d keyword + %d vector hits", len(keywordHits), len(vectorHits))
	return s.fuse(keywordHits, vectorHits, limit), nil
}

// embedQuery generates the query embedding through the scheduler so it
// takes precedence over queued background work.
func (s *SearchService) embedQuery(ctx context.Context, query string) ([]float32, error) {
	var vector []float32
	err := s.scheduler.Execute(ctx, domain.PriorityQuery, func(ctx context.Context) error {
		vectors, embedErr := s.inference.Embed(ctx, []string{query}, driven.PrefixQuery)
		if embedErr != nil {
			return fmt.Errorf("embed query: %w", embedErr)
		}
		if len(vectors) == 0 {
			return fmt.Errorf("embed query: empty response")
		}
		vector = vectors[0]
		return nil
	})
	return vector, err
}

// fuse merges two ranked hit lists using reciprocal rank fusion.
// Each item contributes 1/(k+rank) per list it appears in, ranks
// starting at 1. Engine-native scores are discarded; only rank
// positions matter, which makes incomparable score scales fusable.
func (s *SearchService) fuse(keywordHits, vectorHits []driven.SearchHit, limit int) []domain.RetrievalResult {
	k := s.retrieval.RRFK
	if k <= 0 {
		k = 60
	}

	scores := make(map[chunkKey]float64)
	hits := make(map[chunkKey]driven.SearchHit)

	accumulate := func(list []driven.SearchHit) {
		for rank, hit := range list {
			key := chunkKey{documentID: hit.Chunk.DocumentID, index: hit.Chunk.Index}
			scores[key] += 1.0 / float64(k+rank+1)
			if _, ok := hits[key]; !ok {
				hits[key] = hit
			}
		}
	}
	accumulate(keywordHits)
	accumulate(vectorHits)

	results := make([]domain.RetrievalResult, 0, len(scores))
	for key, score := range scores {
		hit := hits[key]
		results = append(results, domain.RetrievalResult{
			Content:    hit.Chunk.Text,
			Score:      score,
			Metadata:   hit.Chunk.Metadata,
			DocumentID: hit.Chunk.DocumentID,
			ChunkIndex: hit.Chunk.Index,
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		if results[i].DocumentID != results[j].DocumentID {
			return results[i].DocumentID < results[j].DocumentID
		}
		return results[i].ChunkIndex < results[j].ChunkIndex
	})

	if len(results) > limit {
		results = results[:limit]
	}
	return results
}
