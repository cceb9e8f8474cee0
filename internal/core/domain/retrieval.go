package domain

import "time"

// RetrievalResult is a single candidate flowing through the retrieval
// pipeline. The meaning of Score depends on the stage: RRF score after
// fusion, unchanged after reranking (the reranker attaches its own score
// separately). Ephemeral - constructed per query, never persisted.
type RetrievalResult struct {
	// Content is the chunk text, possibly replaced with merged neighbour
	// text by the context expander.
	Content string `json:"content"`

	// Score is the fused retrieval score.
	Score float64 `json:"score"`

	// RerankScore is the cross-encoder relevance score, set only when
	// reranking ran. It does not overwrite Score.
	RerankScore *float64 `json:"rerank_score,omitempty"`

	// Metadata is the document metadata bag.
	Metadata map[string]any `json:"metadata"`

	// DocumentID identifies the parent document.
	DocumentID string `json:"document_id"`

	// ChunkIndex is the chunk's position within the document.
	ChunkIndex int `json:"chunk_index"`
}

// Answer is the result of a synchronous RAG query.
type Answer struct {
	// Answer is the generated text.
	Answer string `json:"answer"`

	// Sources are the retrieved chunks the answer was grounded on.
	Sources []RetrievalResult `json:"sources"`

	// Model is the LLM that produced the answer.
	Model string `json:"model"`

	// Duration is the total wall-clock time including retrieval.
	Duration time.Duration `json:"duration"`
}

// StreamEventType discriminates streaming answer events.
type StreamEventType string

// Streaming event kinds. A stream is a sequence of exactly one sources
// event, zero or more token events, and one terminal done or error event.
const (
	StreamEventSources StreamEventType = "sources"
	StreamEventToken   StreamEventType = "token"
	StreamEventDone    StreamEventType = "done"
	StreamEventError   StreamEventType = "error"
)

// StreamEvent is one event in a streaming RAG answer.
type StreamEvent struct {
	// Type is the event kind.
	Type StreamEventType `json:"type"`

	// Sources is set on sources events.
	Sources []RetrievalResult `json:"sources,omitempty"`

	// Token is set on token events.
	Token string `json:"token,omitempty"`

	// Model is set on done events.
	Model string `json:"model,omitempty"`

	// Duration is set on done events.
	Duration time.Duration `json:"duration,omitempty"`

	// Error is set on error events.
	Error string `json:"error,omitempty"`
}
