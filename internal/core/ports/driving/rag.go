package driving

import (
	"context"

	"github.com/custodia-labs/ragdex/internal/core/domain"
)

// AnswerRequest is a RAG query.
type AnswerRequest struct {
	// Question is the natural-language question.
	Question string

	// TopK caps the number of retrieved sources. Zero uses the
	// configured default.
	TopK int

	// Model overrides the configured LLM when non-empty.
	Model string

	// History is the optional conversation context.
	History []domain.ChatMessage

	// Tags narrows retrieval to documents carrying any of these tags.
	Tags []string

	// Rerank overrides the process-wide rerank default when non-nil.
	Rerank *bool
}

// RAGService answers questions grounded in the indexed corpus.
type RAGService interface {
	// Answer runs the full pipeline and blocks until generation is done.
	Answer(ctx context.Context, req AnswerRequest) (*domain.Answer, error)

	// AnswerStream runs the same pipeline but emits events as they
	// become available: one sources event after retrieval, token events
	// during generation, then a terminal done or error event. The
	// channel is closed after the terminal event.
	AnswerStream(ctx context.Context, req AnswerRequest) <-chan domain.StreamEvent
}
