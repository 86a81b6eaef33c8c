package container

import (
	"context"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	_ "github.com/danielgtaylor/huma/v2/formats/cbor" // CBOR format support for huma
	"github.com/go-chi/chi/v5"
	"github.com/samber/do"
	"github.com/serroba/linkbot/internal/health"
	"github.com/serroba/linkbot/internal/metrics"
)

// HTTPPackage provides *chi.Mux and huma.API serving liveness, health and
// metrics.
func HTTPPackage(i *do.Injector) {
	do.Provide(i, func(_ *do.Injector) (*chi.Mux, error) {
		return chi.NewMux(), nil
	})

	do.Provide(i, func(i *do.Injector) (huma.API, error) {
		router := do.MustInvoke[*chi.Mux](i)
		api := humachi.New(router, huma.DefaultConfig("Link Shortener Bot", "1.0.0"))

		health.RegisterRoutes(api, health.NewHandler(healthCheckers(i)))
		router.Handle("/metrics", do.MustInvoke[*metrics.Collector](i).Handler())

		return api, nil
	})
}

func healthCheckers(i *do.Injector) map[string]health.Checker {
	opts := do.MustInvoke[*Options](i)
	checkers := map[string]health.Checker{}

	usesRedis := opts.Store == StoreRedis || opts.Bus == BusRedis || opts.redisCacheEnabled()
	if usesRedis {
		client := do.MustInvoke[*RedisClient](i)
		checkers["redis"] = health.CheckerFunc(func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		})
	}

	if opts.Store == StorePostgres {
		checkers["postgres"] = do.MustInvoke[*PostgresPool](i)
	}

	return checkers
}
