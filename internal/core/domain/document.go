package domain

import "time"

// Document is the aggregate view of an ingested document.
// The full text is not retained after ingestion; chunks are the unit of storage.
type Document struct {
	// ID is the unique identifier for the document.
	ID string

	// Filename is the original file name or source URL.
	Filename string

	// SourceType identifies how the document was ingested ("text", "web", "pdf").
	SourceType string

	// Tags are the union of user-supplied and auto-generated tags.
	Tags []string

	// ChunkCount is the number of chunks indexed for this document.
	ChunkCount int

	// Metadata contains arbitrary key-value pairs captured at parse time.
	Metadata map[string]any

	// CreatedAt is when the document was indexed.
	CreatedAt time.Time
}

// Chunk is one bounded segment of a document's text, produced by the chunker.
// Chunks are immutable once created.
type Chunk struct {
	// Text is the chunk content.
	Text string

	// DocumentID links to the parent document.
	DocumentID string

	// Index is the 0-based sequential position within the document.
	Index int

	// CharStart is the rune offset of the chunk within the original text.
	CharStart int

	// CharEnd is the rune offset one past the end of the chunk.
	// Consecutive chunks may overlap: CharStart of the next chunk can be
	// smaller than CharEnd of this one.
	CharEnd int
}

// EmbeddedChunk is a persisted chunk together with its dense vector
// and indexing metadata. Created at ingest time, deleted when the parent
// document is deleted or re-ingested.
type EmbeddedChunk struct {
	Chunk

	// ID is the unique identifier for the stored chunk.
	ID string

	// Embedding is the dense vector representation.
	Embedding []float32

	// Metadata is the document-level metadata bag (filename, source_type, ...).
	Metadata map[string]any

	// Tags are the document tags at index time.
	Tags []string

	// CreatedAt is when the chunk was indexed.
	CreatedAt time.Time
}

// RawDocument is unparsed content handed to a normaliser.
type RawDocument struct {
	// URI is the original location (file path or URL).
	URI string

	// MIMEType hints which normaliser should handle the content.
	MIMEType string

	// Content is the raw bytes.
	Content []byte
}
