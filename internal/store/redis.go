package store

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
	"github.com/serroba/linkbot/internal/chat"
	"github.com/serroba/linkbot/internal/tokens"
)

// RedisTokenStore is a Redis implementation of tokens.Store. All tokens live
// in one hash keyed by chat id, so each Set is a single atomic HSET.
type RedisTokenStore struct {
	client *redis.Client
	key    string // "chat_tokens" hash: chatID -> token
}

// NewRedisTokenStore creates a new Redis-backed token store.
func NewRedisTokenStore(client *redis.Client) *RedisTokenStore {
	return &RedisTokenStore{
		client: client,
		key:    "chat_tokens",
	}
}

func (r *RedisTokenStore) Get(ctx context.Context, chatID chat.ID) (tokens.Token, error) {
	token, err := r.client.HGet(ctx, r.key, chatID.String()).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", tokens.ErrNotFound
		}

		return "", err
	}

	return tokens.Token(token), nil
}

func (r *RedisTokenStore) Set(ctx context.Context, chatID chat.ID, token tokens.Token) error {
	return r.client.HSet(ctx, r.key, chatID.String(), string(token)).Err()
}

// Ping checks Redis connectivity.
func (r *RedisTokenStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

var _ tokens.Store = (*RedisTokenStore)(nil)
