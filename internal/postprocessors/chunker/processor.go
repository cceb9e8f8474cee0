// Package chunker provides a recursive boundary-seeking text chunking
// processor. Text is split on the strongest separator that applies
// (paragraph, line, sentence, word) and reassembled greedily up to the
// chunk size, with a configurable overlap between consecutive chunks.
package chunker

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/ragdex/internal/core/domain"
)

// DefaultChunkSize is the default number of characters per chunk.
const DefaultChunkSize = 2000

// DefaultChunkOverlap is the default number of overlapping characters.
const DefaultChunkOverlap = 200

// separators in order of preference. When a part is still too large
// under one separator, the recursion continues with the weaker ones.
var separators = []string{"\n\n", "\n", ". ", " "}

// Processor splits document content into overlapping chunks.
// It implements the PostProcessor interface.
type Processor struct {
	chunkSize int
	overlap   int
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithChunkSize sets the chunk size in characters.
func WithChunkSize(size int) Option {
	return func(p *Processor) {
		if size > 0 {
			p.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between chunks in characters.
func WithOverlap(overlap int) Option {
	return func(p *Processor) {
		if overlap >= 0 {
			p.overlap = overlap
		}
	}
}

// New creates a new chunker processor with the given options.
func New(opts ...Option) *Processor {
	p := &Processor{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
	}

	for _, opt := range opts {
		opt(p)
	}

	// Ensure overlap doesn't exceed chunk size
	if p.overlap >= p.chunkSize {
		p.overlap = p.chunkSize / 4
	}

	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "chunker"
}

// Process splits the document content into chunks.
// Input chunks are ignored; this processor creates new chunks from content.
func (p *Processor) Process(_ context.Context, docID, content string, _ []domain.Chunk) ([]domain.Chunk, error) {
	return p.Chunk(content, docID), nil
}

// Chunk splits text into an ordered sequence of overlapping chunks.
// Offsets are rune offsets into the original text. Empty or
// whitespace-only input yields no chunks.
func (p *Processor) Chunk(text, documentID string) []domain.Chunk {
	pieces := recursiveSplit(text, separators, p.chunkSize)

	chunks := make([]domain.Chunk, 0, len(pieces))
	offset := 0
	for i, piece := range pieces {
		length := utf8.RuneCountInString(piece)
		chunks = append(chunks, domain.Chunk{
			Text:       piece,
			DocumentID: documentID,
			Index:      i,
			CharStart:  offset,
			CharEnd:    offset + length,
		})

		// Advance by less than the piece length so the next chunk
		// re-covers the tail of this one. Clamped at zero: pieces
		// shorter than the overlap must not move the offset backwards.
		offset += length - p.overlap
		if offset < 0 {
			offset = 0
		}
	}

	return chunks
}

// recursiveSplit splits text trying each separator in order. Parts that
// fit are greedily reassembled up to chunkSize; a part too large for
// the current separator recurses into the remaining, weaker ones.
func recursiveSplit(text string, seps []string, chunkSize int) []string {
	if utf8.RuneCountInString(text) <= chunkSize {
		if strings.TrimSpace(text) == "" {
			return nil
		}
		return []string{text}
	}

	if len(seps) == 0 {
		return hardSplit(text, chunkSize)
	}

	sep := seps[0]
	rest := seps[1:]
	parts := strings.Split(text, sep)

	var chunks []string
	current := ""

	for _, part := range parts {
		candidate := part
		if current != "" {
			candidate = current + sep + part
		}

		if utf8.RuneCountInString(candidate) <= chunkSize {
			current = candidate
			continue
		}

		if strings.TrimSpace(current) != "" {
			chunks = append(chunks, current)
		}

		if utf8.RuneCountInString(part) > chunkSize {
			// This part is too big even alone - split further
			chunks = append(chunks, recursiveSplit(part, rest, chunkSize)...)
			current = ""
		} else {
			current = part
		}
	}

	if strings.TrimSpace(current) != "" {
		chunks = append(chunks, current)
	}

	return chunks
}

// hardSplit cuts text at fixed rune boundaries. Last resort when every
// separator is exhausted; never splits mid-codepoint.
func hardSplit(text string, chunkSize int) []string {
	runes := []rune(text)

	var segments []string
	for start := 0; start < len(runes); start += chunkSize {
		end := start + chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		segment := string(runes[start:end])
		if strings.TrimSpace(segment) != "" {
			segments = append(segments, segment)
		}
	}
	return segments
}
