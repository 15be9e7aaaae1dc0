package api

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	notificationlog "github.com/dormshop/go-order-api/internal/domains/notifications/adapters/log"
	notificationpostgres "github.com/dormshop/go-order-api/internal/domains/notifications/adapters/persistence/postgres"
	notificationapp "github.com/dormshop/go-order-api/internal/domains/notifications/application"
	notificationports "github.com/dormshop/go-order-api/internal/domains/notifications/ports"
	directoryadapter "github.com/dormshop/go-order-api/internal/domains/orders/adapters/external/directory"
	ordershttp "github.com/dormshop/go-order-api/internal/domains/orders/adapters/http"
	ordersmemory "github.com/dormshop/go-order-api/internal/domains/orders/adapters/memory"
	ordersobs "github.com/dormshop/go-order-api/internal/domains/orders/adapters/observability"
	orderspostgres "github.com/dormshop/go-order-api/internal/domains/orders/adapters/persistence/postgres"
	ordersredis "github.com/dormshop/go-order-api/internal/domains/orders/adapters/persistence/redis"
	ordersapp "github.com/dormshop/go-order-api/internal/domains/orders/application"
	ordersports "github.com/dormshop/go-order-api/internal/domains/orders/ports"

	directoryclient "github.com/dormshop/go-order-api/internal/clients/http/directory"
	"github.com/dormshop/go-order-api/internal/platform/migrations"
	platformobservability "github.com/dormshop/go-order-api/internal/platform/observability"
	platformpostgres "github.com/dormshop/go-order-api/internal/platform/postgres"
)

// Run boots the order fulfillment HTTP API with observability,
// persistence, and collaborator directories wired.
func Run(ctx context.Context) error {
	const serviceName = "order-api"
	cfg, err := LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	instruments, shutdown, err := platformobservability.Init(ctx, serviceName)
	if err != nil {
		return fmt.Errorf("failed to initialize observability: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			instruments.Logger.Error("failed to shutdown observability", slog.String("error", err.Error()))
		}
	}()
	logger := instruments.Logger

	uow, reads, outbox, usingMemory, cleanupDB := buildPersistence(ctx, cfg, logger)
	defer cleanupDB()

	idempotency, cleanupIdem := buildIdempotencyStore(ctx, cfg, logger)
	defer cleanupIdem()

	dirs := buildDirectories(cfg, logger)

	coreService := ordersapp.NewService(uow, reads, dirs, outbox,
		ordersapp.WithIdempotencyStore(idempotency),
	)
	orderService := ordersobs.New(
		coreService,
		ordersobs.WithLogger(logger),
		ordersobs.WithTracer(instruments.Tracer("internal.orders.application")),
		ordersobs.WithMeter(instruments.Meter("internal.orders.application")),
	)

	if usingMemory {
		// Without a shared database the relay binary has nothing to poll,
		// so drain the in-process outbox here.
		relay := notificationapp.NewRelay(outbox, notificationlog.NewNotifier(logger))
		go relay.Run(ctx, time.Duration(cfg.OutboxPollSeconds)*time.Second, func(err error) {
			logger.Warn("outbox drain failed", slog.String("error", err.Error()))
		})
	}

	orderAPI := ordershttp.NewOrderAPI(orderService)
	router := gin.New()
	router.Use(gin.Recovery(), otelgin.Middleware(serviceName))
	orderAPI.Register(router.Group("/v1"))

	addr := ":" + cfg.Port
	logger.Info("order API listening", slog.String("addr", addr))
	if err := router.Run(addr); err != nil {
		logger.Error("order API server exited", slog.String("addr", addr), slog.String("error", err.Error()))
		return err
	}
	return nil
}

func buildPersistence(ctx context.Context, cfg Config, logger *slog.Logger) (ordersports.UnitOfWork, ordersports.Repository, notificationports.OutboxStore, bool, func()) {
	if cfg.PostgresDSN == "" {
		logger.Warn("POSTGRES_DSN not set, falling back to in-memory order store")
		store := ordersmemory.NewStore()
		return store, store, store, true, func() {}
	}
	db, err := platformpostgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		logger.Warn("failed to connect to postgres, falling back to in-memory order store", slog.String("error", err.Error()))
		store := ordersmemory.NewStore()
		return store, store, store, true, func() {}
	}
	if err := migrations.Run(db); err != nil {
		logger.Warn("failed to run migrations, falling back to in-memory order store", slog.String("error", err.Error()))
		store := ordersmemory.NewStore()
		return store, store, store, true, func() {}
	}
	sqlDB, err := db.DB()
	if err != nil {
		logger.Warn("failed to unwrap postgres connection, falling back to in-memory order store", slog.String("error", err.Error()))
		store := ordersmemory.NewStore()
		return store, store, store, true, func() {}
	}
	logger.Info("order store configured with postgres")
	unit := orderspostgres.NewUnitOfWork(db)
	return unit, unit, notificationpostgres.NewStore(db), false, func() { _ = sqlDB.Close() }
}

func buildIdempotencyStore(ctx context.Context, cfg Config, logger *slog.Logger) (ordersports.IdempotencyStore, func()) {
	ttl := ordersredis.DefaultTTL
	if cfg.IdempotencyTTLHours > 0 {
		ttl = time.Duration(cfg.IdempotencyTTLHours) * time.Hour
	}
	if cfg.RedisAddr == "" {
		logger.Warn("REDIS_ADDR not set, falling back to in-memory idempotency store")
		return ordersmemory.NewIdempotencyStore(ttl), func() {}
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn("failed to reach redis, falling back to in-memory idempotency store", slog.String("error", err.Error()))
		_ = client.Close()
		return ordersmemory.NewIdempotencyStore(ttl), func() {}
	}
	logger.Info("idempotency store configured with redis", slog.String("addr", cfg.RedisAddr))
	return ordersredis.NewIdempotencyStore(client, ttl), func() { _ = client.Close() }
}

func buildDirectories(cfg Config, logger *slog.Logger) ordersapp.Directories {
	if cfg.DirectoryBaseURL == "" {
		logger.Warn("DIRECTORY_BASE_URL not set, falling back to in-memory directories")
		dir := ordersmemory.NewDirectory()
		return ordersapp.Directories{Users: dir, Stores: dir, Shippers: dir, Rooms: dir, Carts: dir}
	}
	client, err := directoryclient.NewClient(cfg.DirectoryBaseURL, nil)
	if err != nil {
		logger.Warn("failed to build directory client, falling back to in-memory directories", slog.String("error", err.Error()))
		dir := ordersmemory.NewDirectory()
		return ordersapp.Directories{Users: dir, Stores: dir, Shippers: dir, Rooms: dir, Carts: dir}
	}
	logger.Info("directories configured with HTTP client", slog.String("base_url", cfg.DirectoryBaseURL))
	adapter := directoryadapter.New(client)
	return ordersapp.Directories{Users: adapter, Stores: adapter, Shippers: adapter, Rooms: adapter, Carts: adapter}
}
