package chat

import (
	"context"
	"errors"
)

// Sentinel errors returned by Store implementations.
var (
	// ErrChatNotFound is returned by FindByID when no chat has the
	// given ID (including the empty ID, which callers use to mean
	// "start a new chat").
	ErrChatNotFound = errors.New("chat not found")

	// ErrChatAlreadyExists is returned by Create on a duplicate ID.
	ErrChatAlreadyExists = errors.New("chat already exists")
)

// Store persists chat aggregates. Implementations live outside the
// domain (see internal/chatstore); the store is the single source of
// truth across orchestration invocations, so an aggregate whose Update
// failed must be discarded rather than reused.
type Store interface {
	// FindByID loads a chat with its full message history, active and
	// evicted. Fails with ErrChatNotFound when absent.
	FindByID(ctx context.Context, id string) (*Chat, error)

	// Create persists a new chat. Fails with ErrChatAlreadyExists on a
	// duplicate ID.
	Create(ctx context.Context, c *Chat) error

	// Update persists the current state of an existing chat.
	Update(ctx context.Context, c *Chat) error
}
