package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragdex/internal/core/domain"
)

func TestSimilarityAnalyser_EmptyCorpus(t *testing.T) {
	a := NewSimilarityAnalyser(newMockDocumentStore())

	graph, err := a.Graph(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, graph.Nodes)
	assert.Empty(t, graph.Edges)
	assert.Equal(t, defaultSimilarityThreshold, graph.Threshold)
}

func TestSimilarityAnalyser_Graph(t *testing.T) {
	store := newMockDocumentStore()
	store.docs["doc-a"] = &domain.Document{ID: "doc-a", Filename: "a.txt", SourceType: "text"}
	store.docs["doc-b"] = &domain.Document{ID: "doc-b", Filename: "b.txt", SourceType: "text"}
	store.docs["doc-c"] = &domain.Document{ID: "doc-c", Filename: "c.txt", SourceType: "text"}
	store.embeddings = map[string][][]float32{
		// a and b point the same way; c is orthogonal.
		"doc-a": {{1, 0}, {1, 0}},
		"doc-b": {{0.9, 0.1}},
		"doc-c": {{0, 1}},
	}

	graph, err := newAnalyser(store).Graph(context.Background(), 0.5)
	require.NoError(t, err)

	require.Len(t, graph.Nodes, 3)
	assert.Equal(t, "doc-a", graph.Nodes[0].DocumentID)
	assert.Equal(t, 2, graph.Nodes[0].ChunkCount)

	require.Len(t, graph.Edges, 1)
	edge := graph.Edges[0]
	assert.Equal(t, "doc-a", edge.Source)
	assert.Equal(t, "doc-b", edge.Target)
	assert.Greater(t, edge.Similarity, 0.9)
}

func TestSimilarityAnalyser_ThresholdFilters(t *testing.T) {
	store := newMockDocumentStore()
	store.embeddings = map[string][][]float32{
		"doc-a": {{1, 0}},
		"doc-b": {{0.7, 0.7}}, // ~0.707 similarity to doc-a
	}

	graph, err := newAnalyser(store).Graph(context.Background(), 0.9)
	require.NoError(t, err)
	assert.Empty(t, graph.Edges)

	graph, err = newAnalyser(store).Graph(context.Background(), 0.5)
	require.NoError(t, err)
	assert.Len(t, graph.Edges, 1)
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, cosineSimilarity([]float64{1, 2, 3}, []float64{2, 4, 6}), 1e-9)
	assert.InDelta(t, 0.0, cosineSimilarity([]float64{1, 0}, []float64{0, 1}), 1e-9)
	assert.Equal(t, 0.0, cosineSimilarity([]float64{0, 0}, []float64{1, 1}))
}

func newAnalyser(store *mockDocumentStore) *SimilarityAnalyser {
	return NewSimilarityAnalyser(store)
}
