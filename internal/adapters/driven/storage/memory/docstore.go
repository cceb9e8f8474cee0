// Package memory provides in-memory store implementations. They back
// tests and ephemeral runs where no index should touch disk; semantics
// mirror the SQLite store.
package memory

import (
	"context"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/custodia-labs/ragdex/internal/core/domain"
	"github.com/custodia-labs/ragdex/internal/core/ports/driven"
)

// Ensure DocumentStore implements the interface.
var _ driven.DocumentStore = (*DocumentStore)(nil)

// DocumentStore is an in-memory implementation of driven.DocumentStore.
// Keyword search is a term-frequency scan; vector search is cosine
// similarity over stored embeddings.
type DocumentStore struct {
	mu        sync.RWMutex
	documents map[string]domain.Document
	chunks    map[string][]domain.EmbeddedChunk
}

// NewDocumentStore creates a new in-memory document store.
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{
		documents: make(map[string]domain.Document),
		chunks:    make(map[string][]domain.EmbeddedChunk),
	}
}

// IndexChunks bulk-inserts embedded chunks, deriving document rows from
// the chunk metadata.
func (s *DocumentStore) IndexChunks(_ context.Context, chunks []domain.EmbeddedChunk) (int, error) {
	if len(chunks) == 0 {
		return 0, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, ch := range chunks {
		if _, ok := s.documents[ch.DocumentID]; !ok {
			filename, _ := ch.Metadata["filename"].(string)
			sourceType, _ := ch.Metadata["source_type"].(string)
			s.documents[ch.DocumentID] = domain.Document{
				ID:         ch.DocumentID,
				Filename:   filename,
				SourceType: sourceType,
				Tags:       append([]string(nil), ch.Tags...),
				Metadata:   ch.Metadata,
				CreatedAt:  ch.CreatedAt,
			}
		}
		s.chunks[ch.DocumentID] = append(s.chunks[ch.DocumentID], ch)
	}
	return len(chunks), nil
}

// KeywordSearch scores chunks by the number of query term occurrences.
func (s *DocumentStore) KeywordSearch(_ context.Context, query string, limit int, tags []string) ([]driven.SearchHit, error) {
	terms := strings.Fields(strings.ToLower(query))
	if len(terms) == 0 || limit <= 0 {
		return nil, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var hits []driven.SearchHit
	s.eachChunk(tags, func(ch domain.EmbeddedChunk) {
		text := strings.ToLower(ch.Text)
		score := 0.0
		for _, term := range terms {
			score += float64(strings.Count(text, term))
		}
		if score > 0 {
			hits = append(hits, driven.SearchHit{Chunk: ch, Score: score})
		}
	})

	sortHits(hits)
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

// VectorSearch ranks chunks by cosine similarity to the query vector.
func (s *DocumentStore) VectorSearch(_ context.Context, vector []float32, limit int, tags []string) ([]driven.SearchHit, error) {
	if len(vector) == 0 || limit <= 0 {
		return nil, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var hits []driven.SearchHit
	s.eachChunk(tags, func(ch domain.EmbeddedChunk) {
		if len(ch.Embedding) == 0 {
			return
		}
		hits = append(hits, driven.SearchHit{Chunk: ch, Score: cosineSimilarity(vector, ch.Embedding)})
	})

	sortHits(hits)
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

// GetDocument retrieves a document aggregate by id.
func (s *DocumentStore) GetDocument(_ context.Context, id string) (*domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.documents[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	doc.ChunkCount = len(s.chunks[id])
	return &doc, nil
}

// ListDocuments returns all documents with chunk counts.
func (s *DocumentStore) ListDocuments(_ context.Context) ([]domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Document, 0, len(s.documents))
	for id, doc := range s.documents {
		doc.ChunkCount = len(s.chunks[id])
		result = append(result, doc)
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

// GetDocumentChunks returns a document's chunks ordered by index.
func (s *DocumentStore) GetDocumentChunks(_ context.Context, documentID string) ([]domain.EmbeddedChunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	chunks := append([]domain.EmbeddedChunk(nil), s.chunks[documentID]...)
	sort.Slice(chunks, func(i, j int) bool { return chunks[i].Index < chunks[j].Index })
	return chunks, nil
}

// GetNeighbours returns the chunks within +-window of the given index.
func (s *DocumentStore) GetNeighbours(_ context.Context, documentID string, index, window int) ([]domain.EmbeddedChunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []domain.EmbeddedChunk
	for _, ch := range s.chunks[documentID] {
		if ch.Index >= index-window && ch.Index <= index+window {
			result = append(result, ch)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Index < result[j].Index })
	return result, nil
}

// DeleteDocument removes a document and its chunks.
func (s *DocumentStore) DeleteDocument(_ context.Context, id string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.documents[id]; !ok {
		return 0, domain.ErrNotFound
	}
	n := len(s.chunks[id])
	delete(s.documents, id)
	delete(s.chunks, id)
	return n, nil
}

// FindDocumentBySource returns the id of a document with the same
// filename and source type.
func (s *DocumentStore) FindDocumentBySource(_ context.Context, filename, sourceType string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for id, doc := range s.documents {
		if doc.Filename == filename && doc.SourceType == sourceType {
			return id, nil
		}
	}
	return "", domain.ErrNotFound
}

// UpdateDocumentTags replaces the tags on a document and its chunks.
func (s *DocumentStore) UpdateDocumentTags(_ context.Context, documentID string, tags []string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.documents[documentID]
	if !ok {
		return 0, domain.ErrNotFound
	}
	doc.Tags = append([]string(nil), tags...)
	s.documents[documentID] = doc

	chunks := s.chunks[documentID]
	for i := range chunks {
		chunks[i].Tags = append([]string(nil), tags...)
	}
	return len(chunks), nil
}

// AllEmbeddingsByDocument returns every stored embedding grouped by
// document id.
func (s *DocumentStore) AllEmbeddingsByDocument(_ context.Context) (map[string][][]float32, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[string][][]float32)
	for id, chunks := range s.chunks {
		for _, ch := range chunks {
			if len(ch.Embedding) > 0 {
				result[id] = append(result[id], ch.Embedding)
			}
		}
	}
	return result, nil
}

// Close is a no-op.
func (s *DocumentStore) Close() error {
	return nil
}

// eachChunk visits every chunk passing the inclusive tag filter.
// Caller holds the read lock.
func (s *DocumentStore) eachChunk(tags []string, visit func(domain.EmbeddedChunk)) {
	for _, chunks := range s.chunks {
		for _, ch := range chunks {
			if !matchesTags(ch.Tags, tags) {
				continue
			}
			visit(ch)
		}
	}
}

func matchesTags(chunkTags, filter []string) bool {
	if len(filter) == 0 {
		return true
	}
	for _, want := range filter {
		for _, have := range chunkTags {
			if have == want {
				return true
			}
		}
	}
	return false
}

func sortHits(hits []driven.SearchHit) {
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		if hits[i].Chunk.DocumentID != hits[j].Chunk.DocumentID {
			return hits[i].Chunk.DocumentID < hits[j].Chunk.DocumentID
		}
		return hits[i].Chunk.Index < hits[j].Chunk.Index
	})
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
