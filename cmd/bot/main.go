package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"github.com/samber/do"
	"github.com/serroba/linkbot/internal/container"
	"github.com/serroba/linkbot/internal/messaging"
	"github.com/serroba/linkbot/internal/store"
	"github.com/serroba/linkbot/internal/telegram"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func registerPackages(injector *do.Injector, options *container.Options) {
	do.ProvideValue(injector, options)
	container.LoggerPackage(injector)
	container.RedisPackage(injector)
	container.PostgresPackage(injector)
	container.TokenStorePackage(injector)
	container.ShortenerPackage(injector)
	container.MetricsPackage(injector)
	container.MessagingPackage(injector)
	container.PipelinePackage(injector)
	container.TelegramPackage(injector)
	container.HTTPPackage(injector)
}

func main() {
	_ = godotenv.Load()

	cli := humacli.New(func(hooks humacli.Hooks, options *container.Options) {
		injector := do.New()
		registerPackages(injector, options)

		logger := do.MustInvoke[*zap.Logger](injector)

		var (
			server *http.Server
			poller *telegram.Poller
		)

		hooks.OnStart(func() {
			ctx := context.Background()

			// Replies are queued on the bus; with the memory bus this process
			// also delivers them.
			if options.Bus == container.BusMemory {
				group := do.MustInvoke[*messaging.ConsumerGroup](injector)
				if err := group.Start(ctx); err != nil {
					logger.Fatal("failed to start delivery consumer", zap.Error(err))
				}
			}

			poller = do.MustInvoke[*telegram.Poller](injector)
			if err := poller.Start(ctx); err != nil {
				logger.Fatal("failed to start telegram poller", zap.Error(err))
			}

			router := do.MustInvoke[*chi.Mux](injector)

			// Invoke API to trigger route registration
			_ = do.MustInvoke[huma.API](injector)

			server = &http.Server{
				Addr:              fmt.Sprintf(":%d", options.Port),
				Handler:           router,
				ReadHeaderTimeout: 10 * time.Second,
			}

			logger.Info("server starting",
				zap.Int("port", options.Port),
				zap.String("store", options.Store),
				zap.String("bus", options.Bus),
			)

			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Fatal("server failed", zap.Error(err))
			}
		})

		hooks.OnStop(func() {
			logger.Info("shutting down")

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			if poller != nil {
				_ = poller.Shutdown()
			}

			if server != nil {
				if err := server.Shutdown(ctx); err != nil {
					logger.Error("server shutdown error", zap.Error(err))
				}
			}

			if err := injector.Shutdown(); err != nil {
				logger.Error("service shutdown error", zap.Error(err))
			}

			logger.Info("shutdown complete")
			_ = logger.Sync()
		})
	})

	cli.Root().Use = "bot"
	cli.Root().AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Create the postgres token table",
		Run: humacli.WithOptions(func(_ *cobra.Command, _ []string, options *container.Options) {
			injector := do.New()
			registerPackages(injector, options)

			logger := do.MustInvoke[*zap.Logger](injector)
			pool := do.MustInvoke[*container.PostgresPool](injector)

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			if err := store.NewPostgresTokenStore(pool.Pool).Migrate(ctx); err != nil {
				logger.Fatal("migration failed", zap.Error(err))
			}

			logger.Info("migration complete")

			_ = injector.Shutdown()
		}),
	})

	cli.Run()
}
