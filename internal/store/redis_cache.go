package store

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/serroba/linkbot/internal/chat"
	"github.com/serroba/linkbot/internal/tokens"
)

// RedisCacheTokenStore wraps a tokens.Store with Redis caching for reads.
type RedisCacheTokenStore struct {
	store  tokens.Store
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisCacheTokenStore creates a new Redis-cached token store decorator.
func NewRedisCacheTokenStore(store tokens.Store, client *redis.Client, ttl time.Duration) *RedisCacheTokenStore {
	return &RedisCacheTokenStore{
		store:  store,
		client: client,
		prefix: "chat_token:",
		ttl:    ttl,
	}
}

// Get returns the cached token, falling back to the underlying store.
func (r *RedisCacheTokenStore) Get(ctx context.Context, chatID chat.ID) (tokens.Token, error) {
	if token, err := r.client.Get(ctx, r.key(chatID)).Result(); err == nil {
		return tokens.Token(token), nil
	}

	token, err := r.store.Get(ctx, chatID)
	if err != nil {
		return "", err
	}

	_ = r.client.Set(ctx, r.key(chatID), string(token), r.ttl).Err()

	return token, nil
}

// Set writes through to the underlying store, then refreshes the cache. When
// the cache can neither be refreshed nor cleared an error is returned, since
// the old cached token would otherwise be served until the TTL expires.
func (r *RedisCacheTokenStore) Set(ctx context.Context, chatID chat.ID, token tokens.Token) error {
	if err := r.store.Set(ctx, chatID, token); err != nil {
		return err
	}

	if err := r.client.Set(ctx, r.key(chatID), string(token), r.ttl).Err(); err == nil {
		return nil
	}

	if err := r.client.Del(ctx, r.key(chatID)).Err(); err != nil {
		return fmt.Errorf("refresh token cache for chat %d: %w", chatID, err)
	}

	return nil
}

func (r *RedisCacheTokenStore) key(chatID chat.ID) string {
	return r.prefix + chatID.String()
}

// Compile-time check.
var _ tokens.Store = (*RedisCacheTokenStore)(nil)
