package driven

import (
	"context"

	"github.com/custodia-labs/ragdex/internal/core/domain"
)

// SearchHit is a ranked result from one retrieval leg.
type SearchHit struct {
	// Chunk is the matched chunk with its metadata.
	Chunk domain.EmbeddedChunk

	// Score is the engine-native relevance score (BM25-like for keyword,
	// cosine similarity for vector). Scales are not comparable between
	// legs; fusion is rank-based for that reason.
	Score float64
}

// DocumentStore is the hybrid-capable search index the pipeline delegates
// to. Backed by SQLite (FTS5 keyword search + stored embedding vectors).
//
// Writes replace a document's chunks as a unit; concurrent readers see
// either the old or new version. Callers must tolerate brief visibility
// lag after a write.
type DocumentStore interface {
	// IndexChunks bulk-inserts embedded chunks. Returns the number stored.
	IndexChunks(ctx context.Context, chunks []domain.EmbeddedChunk) (int, error)

	// KeywordSearch performs a lexical match query. The optional tags
	// filter is inclusive: a chunk matches if it carries any of the tags.
	KeywordSearch(ctx context.Context, query string, limit int, tags []string) ([]SearchHit, error)

	// VectorSearch performs nearest-neighbour search over the stored
	// embeddings, with the same optional inclusive tag filter.
	VectorSearch(ctx context.Context, vector []float32, limit int, tags []string) ([]SearchHit, error)

	// GetDocument returns the aggregate view of a document.
	GetDocument(ctx context.Context, id string) (*domain.Document, error)

	// ListDocuments returns all documents with chunk counts.
	ListDocuments(ctx context.Context) ([]domain.Document, error)

	// GetDocumentChunks returns a document's chunks ordered by index.
	GetDocumentChunks(ctx context.Context, documentID string) ([]domain.EmbeddedChunk, error)

	// GetNeighbours returns the chunks with index within +-window of the
	// given index in the same document, ordered by index. The centre
	// chunk is included.
	GetNeighbours(ctx context.Context, documentID string, index, window int) ([]domain.EmbeddedChunk, error)

	// DeleteDocument removes a document and all its chunks.
	// Returns the number of chunks deleted.
	DeleteDocument(ctx context.Context, id string) (int, error)

	// FindDocumentBySource returns the id of an existing document with
	// the same filename and source type, or domain.ErrNotFound.
	FindDocumentBySource(ctx context.Context, filename, sourceType string) (string, error)

	// UpdateDocumentTags replaces the tags on a document and all its
	// chunks. Returns the number of chunks updated.
	UpdateDocumentTags(ctx context.Context, documentID string, tags []string) (int, error)

	// AllEmbeddingsByDocument returns every chunk embedding grouped by
	// document id. Used for corpus similarity analysis.
	AllEmbeddingsByDocument(ctx context.Context) (map[string][][]float32, error)

	// Close releases resources.
	Close() error
}
