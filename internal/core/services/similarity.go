package services

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/custodia-labs/ragdex/internal/core/domain"
	"github.com/custodia-labs/ragdex/internal/core/ports/driven"
)

// defaultSimilarityThreshold is the minimum centroid cosine similarity
// for an edge to appear in the graph.
const defaultSimilarityThreshold = 0.3

// SimilarityAnalyser computes pairwise document similarity from stored
// chunk embeddings. Each document is reduced to the centroid of its
// chunk vectors; documents whose centroids are close enough in cosine
// similarity get an edge.
type SimilarityAnalyser struct {
	store driven.DocumentStore
}

// NewSimilarityAnalyser creates an analyser over the given store.
func NewSimilarityAnalyser(store driven.DocumentStore) *SimilarityAnalyser {
	return &SimilarityAnalyser{store: store}
}

// Graph computes the similarity graph. A threshold of zero or below
// uses the default.
func (a *SimilarityAnalyser) Graph(ctx context.Context, threshold float64) (*domain.SimilarityGraph, error) {
	if threshold <= 0 {
		threshold = defaultSimilarityThreshold
	}

	embeddings, err := a.store.AllEmbeddingsByDocument(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch embeddings: %w", err)
	}

	graph := &domain.SimilarityGraph{
		Nodes:     []domain.SimilarityNode{},
		Edges:     []domain.SimilarityEdge{},
		Threshold: threshold,
	}
	if len(embeddings) == 0 {
		return graph, nil
	}

	docs, err := a.store.ListDocuments(ctx)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	lookup := make(map[string]domain.Document, len(docs))
	for _, d := range docs {
		lookup[d.ID] = d
	}

	docIDs := make([]string, 0, len(embeddings))
	centroids := make(map[string][]float64, len(embeddings))
	for id, vectors := range embeddings {
		docIDs = append(docIDs, id)
		centroids[id] = centroid(vectors)
	}
	sort.Strings(docIDs)

	for _, id := range docIDs {
		node := domain.SimilarityNode{
			DocumentID: id,
			Filename:   "unknown",
			SourceType: "unknown",
			ChunkCount: len(embeddings[id]),
		}
		if doc, ok := lookup[id]; ok {
			node.Filename = doc.Filename
			node.SourceType = doc.SourceType
		}
		graph.Nodes = append(graph.Nodes, node)
	}

	for i := 0; i < len(docIDs); i++ {
		for j := i + 1; j < len(docIDs); j++ {
			sim := cosineSimilarity(centroids[docIDs[i]], centroids[docIDs[j]])
			if sim >= threshold {
				graph.Edges = append(graph.Edges, domain.SimilarityEdge{
					Source:     docIDs[i],
					Target:     docIDs[j],
					Similarity: math.Round(sim*1e4) / 1e4,
				})
			}
		}
	}

	return graph, nil
}

// centroid averages vectors element-wise.
func centroid(vectors [][]float32) []float64 {
	if len(vectors) == 0 {
		return nil
	}
	dim := len(vectors[0])
	out := make([]float64, dim)
	for _, vec := range vectors {
		for i := 0; i < dim && i < len(vec); i++ {
			out[i] += float64(vec[i])
		}
	}
	n := float64(len(vectors))
	for i := range out {
		out[i] /= n
	}
	return out
}

// cosineSimilarity returns the cosine of the angle between two vectors,
// or 0 for zero vectors.
func cosineSimilarity(a, b []float64) float64 {
	var dot, normA, normB float64
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	denom := math.Sqrt(normA) * math.Sqrt(normB)
	if denom == 0 {
		return 0
	}
	return dot / denom
}
