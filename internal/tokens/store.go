// Package tokens defines the per-chat API token contract used by the link
// pipeline and the /setapi command.
package tokens

import (
	"context"
	"errors"

	"github.com/serroba/linkbot/internal/chat"
)

var ErrNotFound = errors.New("token not found")

// Token is an opaque credential for the shortening service, owned by one chat.
type Token string

// Store persists at most one token per chat; the last Set wins.
//
// A Set that returns nil must be visible to every later Get for the same chat.
// Implementations must be safe for concurrent use across chats.
type Store interface {
	// Get returns ErrNotFound when the chat has no token.
	Get(ctx context.Context, chatID chat.ID) (Token, error)
	Set(ctx context.Context, chatID chat.ID, token Token) error
}
