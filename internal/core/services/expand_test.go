package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragdex/internal/core/domain"
)

func embeddedChunk(docID string, index int, text string) domain.EmbeddedChunk {
	return domain.EmbeddedChunk{
		Chunk: domain.Chunk{Text: text, DocumentID: docID, Index: index},
	}
}

func TestContextExpander_MergesNeighbours(t *testing.T) {
	store := newMockDocumentStore()
	store.neighbours["doc-a"] = []domain.EmbeddedChunk{
		embeddedChunk("doc-a", 0, "before"),
		embeddedChunk("doc-a", 1, "centre"),
		embeddedChunk("doc-a", 2, "after"),
	}
	e := NewContextExpander(store, 1)

	results := e.Expand(context.Background(), []domain.RetrievalResult{
		{Content: "centre", DocumentID: "doc-a", ChunkIndex: 1, Score: 0.5},
	})

	require.Len(t, results, 1)
	assert.Equal(t, "before\ncentre\nafter", results[0].Content)
	assert.Equal(t, 0.5, results[0].Score, "score must not change")
	assert.Equal(t, 1, results[0].ChunkIndex, "index must not change")
}

func TestContextExpander_EdgeChunk(t *testing.T) {
	store := newMockDocumentStore()
	store.neighbours["doc-a"] = []domain.EmbeddedChunk{
		embeddedChunk("doc-a", 0, "first"),
		embeddedChunk("doc-a", 1, "second"),
	}
	e := NewContextExpander(store, 1)

	results := e.Expand(context.Background(), []domain.RetrievalResult{
		{Content: "first", DocumentID: "doc-a", ChunkIndex: 0},
	})

	require.Len(t, results, 1)
	assert.Equal(t, "first\nsecond", results[0].Content)
}

func TestContextExpander_DeduplicatesAcrossResults(t *testing.T) {
	store := newMockDocumentStore()
	store.neighbours["doc-a"] = []domain.EmbeddedChunk{
		embeddedChunk("doc-a", 0, "c0"),
		embeddedChunk("doc-a", 1, "c1"),
		embeddedChunk("doc-a", 2, "c2"),
		embeddedChunk("doc-a", 3, "c3"),
	}
	e := NewContextExpander(store, 1)

	results := e.Expand(context.Background(), []domain.RetrievalResult{
		{Content: "c1", DocumentID: "doc-a", ChunkIndex: 1},
		{Content: "c2", DocumentID: "doc-a", ChunkIndex: 2},
	})

	require.Len(t, results, 2)
	assert.Equal(t, "c0\nc1\nc2", results[0].Content)
	// Chunks 1-3 overlap the first window; only chunk 3 is new.
	assert.Equal(t, "c3", results[1].Content)
}

func TestContextExpander_FetchFailureKeepsOriginal(t *testing.T) {
	store := newMockDocumentStore()
	store.neighbourErr = errors.New("db locked")
	e := NewContextExpander(store, 1)

	results := e.Expand(context.Background(), []domain.RetrievalResult{
		{Content: "original", DocumentID: "doc-a", ChunkIndex: 5},
	})

	require.Len(t, results, 1)
	assert.Equal(t, "original", results[0].Content)
}

func TestContextExpander_Empty(t *testing.T) {
	e := NewContextExpander(newMockDocumentStore(), 1)
	assert.Empty(t, e.Expand(context.Background(), nil))
}
