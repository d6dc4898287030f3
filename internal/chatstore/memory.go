package chatstore

import (
	"context"
	"sync"

	"github.com/HerbHall/tokenchat/internal/chat"
)

var _ chat.Store = (*MemoryStore)(nil)

// MemoryStore is an in-memory chat.Store for tests and throwaway
// deployments. It keeps the aggregates themselves, so callers share
// state with the store; that matches how it is used in tests.
type MemoryStore struct {
	mu    sync.RWMutex
	chats map[string]*chat.Chat
}

// NewMemory creates an empty in-memory store.
func NewMemory() *MemoryStore {
	return &MemoryStore{chats: make(map[string]*chat.Chat)}
}

func (s *MemoryStore) FindByID(_ context.Context, id string) (*chat.Chat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.chats[id]
	if !ok {
		return nil, chat.ErrChatNotFound
	}
	return c, nil
}

func (s *MemoryStore) Create(_ context.Context, c *chat.Chat) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.chats[c.ID]; ok {
		return chat.ErrChatAlreadyExists
	}
	s.chats[c.ID] = c
	return nil
}

func (s *MemoryStore) Update(_ context.Context, c *chat.Chat) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.chats[c.ID]; !ok {
		return chat.ErrChatNotFound
	}
	s.chats[c.ID] = c
	return nil
}
