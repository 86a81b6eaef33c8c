package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/samber/do"
	"github.com/serroba/linkbot/internal/container"
	"github.com/serroba/linkbot/internal/messaging"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	opts := &container.Options{
		TelegramToken: getEnv("SERVICE_TELEGRAM_TOKEN", ""),
		RedisAddr:     getEnv("SERVICE_REDIS_ADDR", "localhost:6379"),
		LogFormat:     getEnv("SERVICE_LOG_FORMAT", "console"),
		LogLevel:      getEnv("SERVICE_LOG_LEVEL", "info"),
		Bus:           container.BusRedis,
		ConsumerName:  getEnv("SERVICE_CONSUMER_NAME", hostname()),
	}

	injector := do.New()
	do.ProvideValue(injector, opts)
	container.LoggerPackage(injector)
	container.RedisPackage(injector)
	container.MessagingPackage(injector)
	container.TelegramPackage(injector)

	logger := do.MustInvoke[*zap.Logger](injector)
	group := do.MustInvoke[*messaging.ConsumerGroup](injector)

	ctx, cancel := context.WithCancel(context.Background())

	if err := group.Start(ctx); err != nil {
		logger.Fatal("failed to start consumer group", zap.Error(err))
	}

	logger.Info("delivery consumer started", zap.String("consumer", opts.ConsumerName))

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutting down")
	cancel()

	if err := injector.Shutdown(); err != nil {
		logger.Error("shutdown error", zap.Error(err))
	}

	logger.Info("shutdown complete")
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return defaultValue
}

func hostname() string {
	name, err := os.Hostname()
	if err != nil || name == "" {
		return "delivery-1"
	}

	return name
}
