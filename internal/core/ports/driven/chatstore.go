package driven

import (
	"context"

	"github.com/custodia-labs/ragdex/internal/core/domain"
)

// ChatStore persists conversations.
type ChatStore interface {
	// SaveChat stores or replaces a chat.
	SaveChat(ctx context.Context, chat *domain.Chat) error

	// GetChat retrieves a chat by id, or domain.ErrNotFound.
	GetChat(ctx context.Context, id string) (*domain.Chat, error)

	// ListChats returns chat summaries sorted by last update, newest
	// first. Messages are not populated.
	ListChats(ctx context.Context) ([]domain.Chat, error)

	// DeleteChat removes a chat, or domain.ErrNotFound.
	DeleteChat(ctx context.Context, id string) error
}
