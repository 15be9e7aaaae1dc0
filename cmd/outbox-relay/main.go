package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	notificationlog "github.com/dormshop/go-order-api/internal/domains/notifications/adapters/log"
	notificationpostgres "github.com/dormshop/go-order-api/internal/domains/notifications/adapters/persistence/postgres"
	notificationapp "github.com/dormshop/go-order-api/internal/domains/notifications/application"
	platformobservability "github.com/dormshop/go-order-api/internal/platform/observability"
	platformpostgres "github.com/dormshop/go-order-api/internal/platform/postgres"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	const serviceName = "outbox-relay"
	instruments, shutdown, err := platformobservability.Init(ctx, serviceName)
	if err != nil {
		log.Fatalf("failed to initialize observability: %v", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			instruments.Logger.Error("failed to shutdown observability", slog.String("error", err.Error()))
		}
	}()
	logger := instruments.Logger

	db, cleanup := platformpostgres.ConnectFromEnv(ctx, logger)
	defer cleanup()
	if db == nil {
		log.Fatal("POSTGRES_DSN not set or connection failed; cannot relay notifications")
	}

	relay := notificationapp.NewRelay(
		notificationpostgres.NewStore(db),
		notificationlog.NewNotifier(logger),
	).WithBatchSize(batchSizeFromEnv())

	interval := pollIntervalFromEnv()
	logger.Info("outbox relay started", slog.Duration("interval", interval))
	relay.Run(ctx, interval, func(err error) {
		logger.Warn("outbox drain failed", slog.String("error", err.Error()))
	})
	logger.Info("outbox relay stopped")
}

func pollIntervalFromEnv() time.Duration {
	raw := strings.TrimSpace(os.Getenv("OUTBOX_POLL_INTERVAL_SECONDS"))
	if raw == "" {
		return 5 * time.Second
	}
	seconds, err := strconv.Atoi(raw)
	if err != nil || seconds <= 0 {
		return 5 * time.Second
	}
	return time.Duration(seconds) * time.Second
}

func batchSizeFromEnv() int {
	raw := strings.TrimSpace(os.Getenv("OUTBOX_BATCH_SIZE"))
	if raw == "" {
		return notificationapp.DefaultBatchSize
	}
	size, err := strconv.Atoi(raw)
	if err != nil || size <= 0 {
		return notificationapp.DefaultBatchSize
	}
	return size
}
