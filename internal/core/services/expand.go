package services

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/ragdex/internal/core/domain"
	"github.com/custodia-labs/ragdex/internal/core/ports/driven"
	"github.com/custodia-labs/ragdex/internal/logger"
)

// ContextExpander stitches each retrieved chunk together with its
// neighbouring chunks from the same document, giving the LLM the
// surrounding text the chunker cut away. Result order and scores are
// untouched; only Content changes.
type ContextExpander struct {
	store  driven.DocumentStore
	window int
}

// NewContextExpander creates an expander fetching +-window neighbours.
// A window below 1 defaults to 1.
func NewContextExpander(store driven.DocumentStore, window int) *ContextExpander {
	if window < 1 {
		window = 1
	}
	return &ContextExpander{store: store, window: window}
}

// Expand replaces each result's content with the merged text of the
// chunk and its neighbours. A chunk consumed by one result's expansion
// is not repeated by a later result, so overlapping windows do not
// duplicate text in the prompt. Fetch failures leave the original
// content in place.
func (e *ContextExpander) Expand(ctx context.Context, results []domain.RetrievalResult) []domain.RetrievalResult {
	if len(results) == 0 {
		return results
	}

	neighbours := make([][]domain.EmbeddedChunk, len(results))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, r := range results {
		i, r := i, r
		g.Go(func() error {
			chunks, err := e.store.GetNeighbours(gctx, r.DocumentID, r.ChunkIndex, e.window)
			if err != nil {
				logger.Warn("Neighbour fetch failed for %s[%d]: %v", r.DocumentID, r.ChunkIndex, err)
				return nil
			}
			neighbours[i] = chunks
			return nil
		})
	}
	// Errors are swallowed per result; Wait only propagates context
	// cancellation, in which case the originals are good enough.
	if err := g.Wait(); err != nil {
		return results
	}

	// Earlier results claim chunks first: they ranked higher and their
	// windows take precedence.
	seen := make(map[chunkKey]bool, len(results))
	expanded := make([]domain.RetrievalResult, len(results))

	for i, r := range results {
		expanded[i] = r

		chunks := neighbours[i]
		if len(chunks) == 0 {
			seen[chunkKey{documentID: r.DocumentID, index: r.ChunkIndex}] = true
			continue
		}

		var parts []string
		for _, c := range chunks {
			key := chunkKey{documentID: c.DocumentID, index: c.Index}
			if seen[key] {
				continue
			}
			seen[key] = true
			parts = append(parts, c.Text)
		}

		if len(parts) > 0 {
			expanded[i].Content = strings.Join(parts, "\n")
		}
	}

	return expanded
}
