package store

import (
	"context"
	"sync"

	"github.com/serroba/linkbot/internal/chat"
	"github.com/serroba/linkbot/internal/tokens"
)

// MemoryTokenStore is an in-memory implementation of tokens.Store.
type MemoryTokenStore struct {
	mu     sync.RWMutex
	tokens map[chat.ID]tokens.Token
}

// NewMemoryTokenStore creates a new in-memory token store.
func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{
		tokens: make(map[chat.ID]tokens.Token),
	}
}

func (m *MemoryTokenStore) Get(_ context.Context, chatID chat.ID) (tokens.Token, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	token, ok := m.tokens[chatID]
	if !ok {
		return "", tokens.ErrNotFound
	}

	return token, nil
}

func (m *MemoryTokenStore) Set(_ context.Context, chatID chat.ID, token tokens.Token) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.tokens[chatID] = token

	return nil
}

var _ tokens.Store = (*MemoryTokenStore)(nil)
