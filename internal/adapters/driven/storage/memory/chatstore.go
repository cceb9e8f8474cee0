package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/ragdex/internal/core/domain"
	"github.com/custodia-labs/ragdex/internal/core/ports/driven"
)

// Ensure ChatStore implements the interface.
var _ driven.ChatStore = (*ChatStore)(nil)

// ChatStore is an in-memory implementation of driven.ChatStore.
type ChatStore struct {
	mu    sync.RWMutex
	chats map[string]domain.Chat
}

// NewChatStore creates a new in-memory chat store.
func NewChatStore() *ChatStore {
	return &ChatStore{chats: make(map[string]domain.Chat)}
}

// SaveChat stores or replaces a chat.
func (s *ChatStore) SaveChat(_ context.Context, chat *domain.Chat) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *chat
	copied.Messages = append([]domain.ChatMessage(nil), chat.Messages...)
	copied.MessageCount = len(copied.Messages)
	s.chats[chat.ID] = copied
	return nil
}

// GetChat retrieves a chat by id.
func (s *ChatStore) GetChat(_ context.Context, id string) (*domain.Chat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	chat, ok := s.chats[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	chat.Messages = append([]domain.ChatMessage(nil), chat.Messages...)
	return &chat, nil
}

// ListChats returns chat summaries newest first, without messages.
func (s *ChatStore) ListChats(_ context.Context) ([]domain.Chat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Chat, 0, len(s.chats))
	for _, chat := range s.chats {
		chat.Messages = nil
		result = append(result, chat)
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].UpdatedAt.Equal(result[j].UpdatedAt) {
			return result[i].UpdatedAt.After(result[j].UpdatedAt)
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

// DeleteChat removes a chat.
func (s *ChatStore) DeleteChat(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.chats[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.chats, id)
	return nil
}
