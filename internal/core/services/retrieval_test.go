package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragdex/internal/core/domain"
	"github.com/custodia-labs/ragdex/internal/core/ports/driven"
	"github.com/custodia-labs/ragdex/internal/core/ports/driving"
)

func newSearchService(store *mockDocumentStore, inference *mockInference, t *testing.T) *SearchService {
	return NewSearchService(store, inference, startedScheduler(t), nil, nil, nil, domain.DefaultSettings())
}

func TestSearchService_EmptyQuery(t *testing.T) {
	svc := newSearchService(newMockDocumentStore(), &mockInference{embedding: []float32{0.1}}, t)

	results, err := svc.Search(context.Background(), "   ", driving.SearchOptions{})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearchService_QueryEmbeddingPrefix(t *testing.T) {
	store := newMockDocumentStore()
	inference := &mockInference{embedding: []float32{0.1, 0.2}}
	svc := newSearchService(store, inference, t)

	_, err := svc.Search(context.Background(), "how do I reset the filter", driving.SearchOptions{})
	require.NoError(t, err)

	require.Len(t, inference.prefixes, 1)
	assert.Equal(t, driven.PrefixQuery, inference.prefixes[0])
}

func TestSearchService_FusionPrefersBothLists(t *testing.T) {
	store := newMockDocumentStore()
	// "doc-a" chunk 0 appears in both lists; it must outrank items that
	// appear in only one, regardless of engine-native scores.
	store.keywordHits = []driven.SearchHit{
		hit("doc-a", 0, "both lists", 12.5),
		hit("doc-b", 3, "keyword only", 11.0),
	}
	store.vectorHits = []driven.SearchHit{
		hit("doc-c", 1, "vector only", 0.99),
		hit("doc-a", 0, "both lists", 0.80),
	}
	inference := &mockInference{embedding: []float32{0.1}}
	svc := newSearchService(store, inference, t)

	results, err := svc.Search(context.Background(), "query", driving.SearchOptions{})
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, "doc-a", results[0].DocumentID)
	assert.Equal(t, 0, results[0].ChunkIndex)

	// 1/61 + 1/62 for the double hit.
	assert.InDelta(t, 1.0/61.0+1.0/62.0, results[0].Score, 1e-9)
}

func TestSearchService_FusionSameHitLeadsBothLists(t *testing.T) {
	store := newMockDocumentStore()
	// The same chunk at rank 1 in both lists accumulates both rank
	// contributions, so its fused score is exactly 2/61.
	store.keywordHits = []driven.SearchHit{
		hit("doc-a", 0, "top of both", 12.5),
		hit("doc-b", 1, "keyword runner-up", 11.0),
	}
	store.vectorHits = []driven.SearchHit{
		hit("doc-a", 0, "top of both", 0.95),
		hit("doc-c", 2, "vector runner-up", 0.80),
	}
	inference := &mockInference{embedding: []float32{0.1}}
	svc := newSearchService(store, inference, t)

	results, err := svc.Search(context.Background(), "query", driving.SearchOptions{TopK: 1})
	require.NoError(t, err)
	require.Len(t, results, 1)

	assert.Equal(t, "doc-a", results[0].DocumentID)
	assert.Equal(t, 0, results[0].ChunkIndex)
	assert.InDelta(t, 2.0/61.0, results[0].Score, 1e-9)
}

func TestSearchService_FusionRankNotScore(t *testing.T) {
	store := newMockDocumentStore()
	// Huge BM25 score must not dominate: only rank position counts.
	store.keywordHits = []driven.SearchHit{
		hit("doc-a", 0, "rank 1 keyword", 9999.0),
	}
	store.vectorHits = []driven.SearchHit{
		hit("doc-b", 0, "rank 1 vector", 0.5),
	}
	inference := &mockInference{embedding: []float32{0.1}}
	svc := newSearchService(store, inference, t)

	results, err := svc.Search(context.Background(), "query", driving.SearchOptions{})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.InDelta(t, results[0].Score, results[1].Score, 1e-9)
}

func TestSearchService_TopKLimit(t *testing.T) {
	store := newMockDocumentStore()
	for i := 0; i < 20; i++ {
		store.keywordHits = append(store.keywordHits, hit("doc-a", i, "text", 1.0))
	}
	inference := &mockInference{embedding: []float32{0.1}}
	svc := newSearchService(store, inference, t)

	results, err := svc.Search(context.Background(), "query", driving.SearchOptions{TopK: 5})
	require.NoError(t, err)
	assert.Len(t, results, 5)
}

func TestSearchService_KeywordLegFails(t *testing.T) {
	store := newMockDocumentStore()
	store.keywordErr = errors.New("fts index corrupt")
	store.vectorHits = []driven.SearchHit{hit("doc-a", 0, "vector result", 0.9)}
	inference := &mockInference{embedding: []float32{0.1}}
	svc := newSearchService(store, inference, t)

	results, err := svc.Search(context.Background(), "query", driving.SearchOptions{})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "vector result", results[0].Content)
}

func TestSearchService_EmbeddingFails(t *testing.T) {
	store := newMockDocumentStore()
	store.keywordHits = []driven.SearchHit{hit("doc-a", 0, "keyword result", 2.0)}
	inference := &mockInference{embedErr: errors.New("ollama down")}
	svc := newSearchService(store, inference, t)

	results, err := svc.Search(context.Background(), "query", driving.SearchOptions{})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "keyword result", results[0].Content)
}

func TestSearchService_BothLegsFail(t *testing.T) {
	store := newMockDocumentStore()
	store.keywordErr = errors.New("fts down")
	inference := &mockInference{embedErr: errors.New("ollama down")}
	svc := newSearchService(store, inference, t)

	_, err := svc.Search(context.Background(), "query", driving.SearchOptions{})
	require.Error(t, err)
}

func TestSearchService_RerankOverRetrieves(t *testing.T) {
	store := newMockDocumentStore()
	for i := 0; i < 30; i++ {
		store.keywordHits = append(store.keywordHits, hit("doc-a", i, "text", 1.0))
	}
	inference := &mockInference{embedding: []float32{0.1}}

	reranker := &mockReranker{}
	// Promote the last candidate of the widened pool to first place.
	for i := 14; i >= 0; i-- {
		reranker.scores = append(reranker.scores, driven.RerankScore{Index: i, Score: float64(i)})
	}

	settings := domain.DefaultSettings()
	settings.Rerank.Enabled = true
	svc := NewSearchService(store, inference, startedScheduler(t), NewRerankStage(reranker), nil, nil, settings)

	results, err := svc.Search(context.Background(), "query", driving.SearchOptions{TopK: 5})
	require.NoError(t, err)
	require.Len(t, results, 5)

	// TopK 5 with multiplier 3 pools 15 candidates; index 14 was
	// outside the plain top 5 but wins after reranking.
	assert.Equal(t, 14, results[0].ChunkIndex)
	require.NotNil(t, results[0].RerankScore)
	assert.Equal(t, 1, reranker.calls)
}

func TestSearchService_RerankFailurePassthrough(t *testing.T) {
	store := newMockDocumentStore()
	for i := 0; i < 10; i++ {
		store.keywordHits = append(store.keywordHits, hit("doc-a", i, "text", 1.0))
	}
	inference := &mockInference{embedding: []float32{0.1}}
	reranker := &mockReranker{rerankErr: errors.New("sidecar unreachable")}

	settings := domain.DefaultSettings()
	settings.Rerank.Enabled = true
	svc := NewSearchService(store, inference, startedScheduler(t), NewRerankStage(reranker), nil, nil, settings)

	results, err := svc.Search(context.Background(), "query", driving.SearchOptions{TopK: 3})
	require.NoError(t, err)
	require.Len(t, results, 3)

	// Fused order survives, no rerank scores attached.
	for i, r := range results {
		assert.Equal(t, i, r.ChunkIndex)
		assert.Nil(t, r.RerankScore)
	}
}

func TestSearchService_RerankRequestOverride(t *testing.T) {
	store := newMockDocumentStore()
	store.keywordHits = []driven.SearchHit{hit("doc-a", 0, "text", 1.0)}
	inference := &mockInference{embedding: []float32{0.1}}
	reranker := &mockReranker{scores: []driven.RerankScore{{Index: 0, Score: 1.0}}}

	settings := domain.DefaultSettings()
	settings.Rerank.Enabled = true
	svc := NewSearchService(store, inference, startedScheduler(t), NewRerankStage(reranker), nil, nil, settings)

	off := false
	_, err := svc.Search(context.Background(), "query", driving.SearchOptions{Rerank: &off})
	require.NoError(t, err)
	assert.Equal(t, 0, reranker.calls, "per-request override must disable reranking")
}

func TestSearchService_MetricsRecorded(t *testing.T) {
	store := newMockDocumentStore()
	store.keywordHits = []driven.SearchHit{hit("doc-a", 0, "text", 1.0)}
	inference := &mockInference{embedding: []float32{0.1}}
	metrics := &mockMetrics{}

	svc := NewSearchService(store, inference, startedScheduler(t), nil, nil, metrics, domain.DefaultSettings())

	_, err := svc.Search(context.Background(), "query", driving.SearchOptions{})
	require.NoError(t, err)
	require.Len(t, metrics.events, 1)
	assert.Equal(t, "search", metrics.events[0].Type)
}
