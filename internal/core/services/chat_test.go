package services

import (
	"context"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragdex/internal/core/domain"
)

// mockChatStore implements driven.ChatStore for testing.
type mockChatStore struct {
	mu    sync.Mutex
	chats map[string]domain.Chat
}

func newMockChatStore() *mockChatStore {
	return &mockChatStore{chats: make(map[string]domain.Chat)}
}

func (m *mockChatStore) SaveChat(_ context.Context, chat *domain.Chat) error {
	m.mu.Lock()
	m.chats[chat.ID] = *chat
	m.mu.Unlock()
	return nil
}

func (m *mockChatStore) GetChat(_ context.Context, id string) (*domain.Chat, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	chat, ok := m.chats[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &chat, nil
}

func (m *mockChatStore) ListChats(_ context.Context) ([]domain.Chat, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Chat, 0, len(m.chats))
	for _, chat := range m.chats {
		chat.Messages = nil
		out = append(out, chat)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (m *mockChatStore) DeleteChat(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.chats[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.chats, id)
	return nil
}

func TestChatManager_CreateAndGet(t *testing.T) {
	m := NewChatManager(newMockChatStore())

	chat, err := m.CreateChat(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "New Chat", chat.Title)
	assert.NotEmpty(t, chat.ID)

	got, err := m.GetChat(context.Background(), chat.ID)
	require.NoError(t, err)
	assert.Equal(t, chat.ID, got.ID)

	_, err = m.GetChat(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestChatManager_AutoTitle(t *testing.T) {
	m := NewChatManager(newMockChatStore())

	chat, err := m.CreateChat(context.Background(), "")
	require.NoError(t, err)

	updated, err := m.AppendMessages(context.Background(), chat.ID, []domain.ChatMessage{
		{Role: "user", Content: "Where is the oil filter on a 2021 F-150?"},
		{Role: "assistant", Content: "Under the engine cover."},
	})
	require.NoError(t, err)
	assert.Equal(t, "Where is the oil filter on a 2021 F-150?", updated.Title)
	assert.Equal(t, 2, updated.MessageCount)
}

func TestChatManager_AutoTitleTruncates(t *testing.T) {
	m := NewChatManager(newMockChatStore())

	chat, err := m.CreateChat(context.Background(), "")
	require.NoError(t, err)

	long := strings.Repeat("question ", 20)
	updated, err := m.AppendMessages(context.Background(), chat.ID, []domain.ChatMessage{
		{Role: "user", Content: long},
	})
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(updated.Title, "..."))
	assert.LessOrEqual(t, len([]rune(updated.Title)), maxAutoTitleRunes+3)
}

func TestChatManager_ExplicitTitleKept(t *testing.T) {
	m := NewChatManager(newMockChatStore())

	chat, err := m.CreateChat(context.Background(), "Brake service notes")
	require.NoError(t, err)

	updated, err := m.AppendMessages(context.Background(), chat.ID, []domain.ChatMessage{
		{Role: "user", Content: "How do I bleed the brakes?"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Brake service notes", updated.Title)
}

func TestChatManager_RenameAndDelete(t *testing.T) {
	m := NewChatManager(newMockChatStore())

	chat, err := m.CreateChat(context.Background(), "")
	require.NoError(t, err)

	renamed, err := m.RenameChat(context.Background(), chat.ID, "Maintenance")
	require.NoError(t, err)
	assert.Equal(t, "Maintenance", renamed.Title)

	_, err = m.RenameChat(context.Background(), chat.ID, "  ")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	require.NoError(t, m.DeleteChat(context.Background(), chat.ID))
	assert.ErrorIs(t, m.DeleteChat(context.Background(), chat.ID), domain.ErrNotFound)
}
