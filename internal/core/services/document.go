package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/ragdex/internal/core/domain"
	"github.com/custodia-labs/ragdex/internal/core/ports/driven"
	"github.com/custodia-labs/ragdex/internal/core/ports/driving"
	"github.com/custodia-labs/ragdex/internal/logger"
)

// Ensure DocumentService implements the interface.
var _ driving.DocumentService = (*DocumentService)(nil)

// DocumentService manages the indexed corpus.
type DocumentService struct {
	store      driven.DocumentStore
	similarity *SimilarityAnalyser
}

// NewDocumentService creates a document service.
func NewDocumentService(store driven.DocumentStore) *DocumentService {
	return &DocumentService{
		store:      store,
		similarity: NewSimilarityAnalyser(store),
	}
}

// ListDocuments returns all indexed documents.
func (s *DocumentService) ListDocuments(ctx context.Context) ([]domain.Document, error) {
	docs, err := s.store.ListDocuments(ctx)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return docs, nil
}

// GetDocument returns one document by id.
func (s *DocumentService) GetDocument(ctx context.Context, id string) (*domain.Document, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: document id is empty", domain.ErrInvalidInput)
	}
	return s.store.GetDocument(ctx, id)
}

// GetDocumentChunks returns a document's chunks ordered by index.
func (s *DocumentService) GetDocumentChunks(ctx context.Context, id string) ([]domain.EmbeddedChunk, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: document id is empty", domain.ErrInvalidInput)
	}
	if _, err := s.store.GetDocument(ctx, id); err != nil {
		return nil, err
	}
	return s.store.GetDocumentChunks(ctx, id)
}

// DeleteDocument removes a document and its chunks.
func (s *DocumentService) DeleteDocument(ctx context.Context, id string) (int, error) {
	if strings.TrimSpace(id) == "" {
		return 0, fmt.Errorf("%w: document id is empty", domain.ErrInvalidInput)
	}
	deleted, err := s.store.DeleteDocument(ctx, id)
	if err != nil {
		return 0, err
	}
	logger.Info("Deleted document %s (%d chunks)", id, deleted)
	return deleted, nil
}

// UpdateTags replaces a document's tags. Tags are lowercased and
// deduplicated; the document and every chunk are updated together.
func (s *DocumentService) UpdateTags(ctx context.Context, id string, tags []string) (int, error) {
	if strings.TrimSpace(id) == "" {
		return 0, fmt.Errorf("%w: document id is empty", domain.ErrInvalidInput)
	}
	return s.store.UpdateDocumentTags(ctx, id, unionTags(tags, nil))
}

// SimilarityGraph computes the pairwise document similarity graph.
func (s *DocumentService) SimilarityGraph(ctx context.Context, threshold float64) (*domain.SimilarityGraph, error) {
	return s.similarity.Graph(ctx, threshold)
}
