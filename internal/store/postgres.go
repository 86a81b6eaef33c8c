package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/serroba/linkbot/internal/chat"
	"github.com/serroba/linkbot/internal/tokens"
)

// PostgresTokenStore is a PostgreSQL implementation of tokens.Store.
type PostgresTokenStore struct {
	pool *pgxpool.Pool
}

// NewPostgresTokenStore creates a new PostgreSQL-backed token store.
func NewPostgresTokenStore(pool *pgxpool.Pool) *PostgresTokenStore {
	return &PostgresTokenStore{pool: pool}
}

// Migrate creates the chat_tokens table if it does not exist.
func (p *PostgresTokenStore) Migrate(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS chat_tokens (
			chat_id    BIGINT PRIMARY KEY,
			token      TEXT NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`

	_, err := p.pool.Exec(ctx, query)

	return err
}

func (p *PostgresTokenStore) Get(ctx context.Context, chatID chat.ID) (tokens.Token, error) {
	query := `
		SELECT token
		FROM chat_tokens
		WHERE chat_id = $1
	`

	var token string

	err := p.pool.QueryRow(ctx, query, int64(chatID)).Scan(&token)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", tokens.ErrNotFound
		}

		return "", err
	}

	return tokens.Token(token), nil
}

func (p *PostgresTokenStore) Set(ctx context.Context, chatID chat.ID, token tokens.Token) error {
	query := `
		INSERT INTO chat_tokens (chat_id, token, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (chat_id) DO UPDATE
		SET token = EXCLUDED.token, updated_at = EXCLUDED.updated_at
	`

	_, err := p.pool.Exec(ctx, query, int64(chatID), string(token), time.Now().UTC())

	return err
}

// Ping checks PostgreSQL connectivity.
func (p *PostgresTokenStore) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

var _ tokens.Store = (*PostgresTokenStore)(nil)
