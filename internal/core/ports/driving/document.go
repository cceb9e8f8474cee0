package driving

import (
	"context"

	"github.com/custodia-labs/ragdex/internal/core/domain"
)

// DocumentService manages the indexed corpus.
type DocumentService interface {
	// ListDocuments returns all indexed documents.
	ListDocuments(ctx context.Context) ([]domain.Document, error)

	// GetDocument returns one document, or domain.ErrNotFound.
	GetDocument(ctx context.Context, id string) (*domain.Document, error)

	// GetDocumentChunks returns a document's chunks ordered by index.
	GetDocumentChunks(ctx context.Context, id string) ([]domain.EmbeddedChunk, error)

	// DeleteDocument removes a document and its chunks. Returns the
	// number of chunks removed.
	DeleteDocument(ctx context.Context, id string) (int, error)

	// UpdateTags replaces a document's tags.
	UpdateTags(ctx context.Context, id string, tags []string) (int, error)

	// SimilarityGraph computes the corpus similarity graph.
	SimilarityGraph(ctx context.Context, threshold float64) (*domain.SimilarityGraph, error)
}

// ChatService manages stored conversations.
type ChatService interface {
	// CreateChat creates a new conversation.
	CreateChat(ctx context.Context, title string) (*domain.Chat, error)

	// GetChat returns a conversation with messages.
	GetChat(ctx context.Context, id string) (*domain.Chat, error)

	// ListChats returns conversation summaries, newest first.
	ListChats(ctx context.Context) ([]domain.Chat, error)

	// AppendMessages adds messages and auto-titles untitled chats from
	// the first user message.
	AppendMessages(ctx context.Context, id string, messages []domain.ChatMessage) (*domain.Chat, error)

	// RenameChat sets the chat title.
	RenameChat(ctx context.Context, id, title string) (*domain.Chat, error)

	// DeleteChat removes a conversation.
	DeleteChat(ctx context.Context, id string) error
}
