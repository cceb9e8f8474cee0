package driven

import (
	"context"

	"github.com/custodia-labs/ragdex/internal/core/domain"
)

// NormaliseResult is extracted document content plus parse metadata.
type NormaliseResult struct {
	// Content is the plain text extracted from the raw document.
	Content string

	// Title is the document title when the format carries one.
	Title string

	// Metadata holds format-specific fields (line counts, page counts).
	Metadata map[string]any
}

// Normaliser converts raw bytes of one format into plain text.
type Normaliser interface {
	// SupportedMIMETypes returns the MIME types this normaliser handles.
	SupportedMIMETypes() []string

	// Normalise extracts plain text content from the raw document.
	Normalise(ctx context.Context, raw *domain.RawDocument) (*NormaliseResult, error)
}

// ChunkPipeline turns document content into its final chunk sequence.
type ChunkPipeline interface {
	// Process runs the content through the configured processors.
	Process(ctx context.Context, docID, content string) ([]domain.Chunk, error)
}

// PostProcessor transforms a document's chunks during ingestion.
type PostProcessor interface {
	// Name returns the processor name for error reporting.
	Name() string

	// Process receives the document and the chunks produced so far.
	// The first processor in a pipeline receives nil chunks and should
	// create them.
	Process(ctx context.Context, docID, content string, chunks []domain.Chunk) ([]domain.Chunk, error)
}
