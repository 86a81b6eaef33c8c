package container

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/samber/do"
	"github.com/serroba/linkbot/internal/store"
	"github.com/serroba/linkbot/internal/tokens"
	"go.uber.org/zap"
)

const connectTimeout = 5 * time.Second

// RedisClient wraps redis.Client to implement do.Shutdownable.
type RedisClient struct {
	*redis.Client
}

func (c *RedisClient) Shutdown() error {
	return c.Close()
}

// PostgresPool wraps pgxpool.Pool to implement do.Shutdownable.
type PostgresPool struct {
	*pgxpool.Pool
}

func (p *PostgresPool) Shutdown() error {
	p.Close()

	return nil
}

// RedisPackage provides *RedisClient.
func RedisPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*RedisClient, error) {
		opts := do.MustInvoke[*Options](i)

		client := redis.NewClient(&redis.Options{
			Addr: opts.RedisAddr,
		})

		return &RedisClient{Client: client}, nil
	})
}

// PostgresPackage provides *PostgresPool.
func PostgresPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*PostgresPool, error) {
		opts := do.MustInvoke[*Options](i)

		ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
		defer cancel()

		pool, err := pgxpool.New(ctx, opts.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("connect to postgres: %w", err)
		}

		return &PostgresPool{Pool: pool}, nil
	})
}

// TokenStorePackage provides tokens.Store for the backend named by
// Options.Store.
func TokenStorePackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (tokens.Store, error) {
		opts := do.MustInvoke[*Options](i)
		logger := do.MustInvoke[*zap.Logger](i)

		switch opts.Store {
		case StoreMemory:
			logger.Warn("using memory token store, tokens are lost on restart")

			return store.NewMemoryTokenStore(), nil
		case StoreFile:
			return store.NewFileTokenStore(opts.StorePath, logger), nil
		case StoreRedis:
			client := do.MustInvoke[*RedisClient](i)

			return store.NewRedisTokenStore(client.Client), nil
		case StorePostgres:
			return newPostgresTokenStore(i, opts)
		default:
			return nil, fmt.Errorf("unknown token store %q", opts.Store)
		}
	})
}

func newPostgresTokenStore(i *do.Injector, opts *Options) (tokens.Store, error) {
	ttl, err := parseDuration("cache ttl", opts.CacheTTL)
	if err != nil {
		return nil, err
	}

	pool := do.MustInvoke[*PostgresPool](i)
	pg := store.NewPostgresTokenStore(pool.Pool)

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	if err := pg.Migrate(ctx); err != nil {
		return nil, err
	}

	if ttl == 0 {
		return pg, nil
	}

	client := do.MustInvoke[*RedisClient](i)

	return store.NewRedisCacheTokenStore(pg, client.Client, ttl), nil
}
