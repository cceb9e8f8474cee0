package services

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/custodia-labs/ragdex/internal/core/domain"
	"github.com/custodia-labs/ragdex/internal/core/ports/driven"
	"github.com/custodia-labs/ragdex/internal/core/ports/driving"
)

// Ensure ChatManager implements the interface.
var _ driving.ChatService = (*ChatManager)(nil)

// defaultChatTitle marks a chat that has not been titled yet.
const defaultChatTitle = "New Chat"

// maxAutoTitleRunes bounds titles derived from the first user message.
const maxAutoTitleRunes = 60

// ChatManager persists conversations for multi-turn RAG sessions.
type ChatManager struct {
	store driven.ChatStore
}

// NewChatManager creates a chat manager.
func NewChatManager(store driven.ChatStore) *ChatManager {
	return &ChatManager{store: store}
}

// CreateChat creates a new conversation. An empty title gets the
// default placeholder, replaced later by auto-titling.
func (m *ChatManager) CreateChat(ctx context.Context, title string) (*domain.Chat, error) {
	if strings.TrimSpace(title) == "" {
		title = defaultChatTitle
	}

	now := time.Now().UTC()
	chat := &domain.Chat{
		ID:        uuid.NewString(),
		Title:     title,
		Messages:  []domain.ChatMessage{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := m.store.SaveChat(ctx, chat); err != nil {
		return nil, fmt.Errorf("create chat: %w", err)
	}
	return chat, nil
}

// GetChat returns a conversation with its messages.
func (m *ChatManager) GetChat(ctx context.Context, id string) (*domain.Chat, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: chat id is empty", domain.ErrInvalidInput)
	}
	return m.store.GetChat(ctx, id)
}

// ListChats returns conversation summaries, newest first.
func (m *ChatManager) ListChats(ctx context.Context) ([]domain.Chat, error) {
	return m.store.ListChats(ctx)
}

// AppendMessages adds messages to a conversation. A chat still carrying
// the placeholder title is auto-titled from its first user message.
func (m *ChatManager) AppendMessages(ctx context.Context, id string, messages []domain.ChatMessage) (*domain.Chat, error) {
	chat, err := m.store.GetChat(ctx, id)
	if err != nil {
		return nil, err
	}

	chat.Messages = append(chat.Messages, messages...)
	chat.MessageCount = len(chat.Messages)
	chat.UpdatedAt = time.Now().UTC()

	if chat.Title == defaultChatTitle {
		for _, msg := range chat.Messages {
			if msg.Role == "user" {
				chat.Title = autoTitle(msg.Content)
				break
			}
		}
	}

	if err := m.store.SaveChat(ctx, chat); err != nil {
		return nil, fmt.Errorf("append messages: %w", err)
	}
	return chat, nil
}

// RenameChat sets the chat title.
func (m *ChatManager) RenameChat(ctx context.Context, id, title string) (*domain.Chat, error) {
	if strings.TrimSpace(title) == "" {
		return nil, fmt.Errorf("%w: title is empty", domain.ErrInvalidInput)
	}

	chat, err := m.store.GetChat(ctx, id)
	if err != nil {
		return nil, err
	}
	chat.Title = title
	chat.UpdatedAt = time.Now().UTC()

	if err := m.store.SaveChat(ctx, chat); err != nil {
		return nil, fmt.Errorf("rename chat: %w", err)
	}
	return chat, nil
}

// DeleteChat removes a conversation.
func (m *ChatManager) DeleteChat(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: chat id is empty", domain.ErrInvalidInput)
	}
	return m.store.DeleteChat(ctx, id)
}

// autoTitle derives a display title from message content.
func autoTitle(content string) string {
	content = strings.TrimSpace(content)
	if utf8.RuneCountInString(content) <= maxAutoTitleRunes {
		return content
	}
	return string([]rune(content)[:maxAutoTitleRunes]) + "..."
}
