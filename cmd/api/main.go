package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/protonrent/telegram-relay/internal/auth"
	"github.com/protonrent/telegram-relay/internal/backend"
	"github.com/protonrent/telegram-relay/internal/bot"
	"github.com/protonrent/telegram-relay/internal/config"
	"github.com/protonrent/telegram-relay/internal/dispatch"
	"github.com/protonrent/telegram-relay/internal/handler"
	infraredis "github.com/protonrent/telegram-relay/internal/infra/redis"
	"github.com/protonrent/telegram-relay/internal/messenger"
	"github.com/protonrent/telegram-relay/internal/observability"
	"github.com/protonrent/telegram-relay/internal/payload"
	"github.com/protonrent/telegram-relay/internal/store"
	"github.com/protonrent/telegram-relay/internal/transport"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load config: ", err)
	}

	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatal("failed to initialize logger: ", err)
	}
	defer logger.Sync() //nolint:errcheck

	db, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		logger.Fatal("sqlite initialization failed", zap.Error(err))
	}
	if err := store.Migrate(db); err != nil {
		logger.Fatal("database migrations failed", zap.Error(err))
	}
	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("sqlite underlying db init failed", zap.Error(err))
	}
	defer sqlDB.Close()

	subscribers, err := store.NewSubscriberStore(db)
	if err != nil {
		logger.Fatal("subscriber store init failed", zap.Error(err))
	}
	if ids, err := subscribers.List(context.Background()); err != nil {
		logger.Warn("failed to count subscribers", zap.Error(err))
	} else {
		logger.Info("subscriber store ready", zap.Int("subscribers", len(ids)))
	}

	telegram, err := messenger.NewClient(cfg.BotToken, cfg.SendTimeout())
	if err != nil {
		logger.Fatal("telegram client init failed", zap.Error(err))
	}

	backendClient, err := backend.NewClient(cfg.APIURL, cfg.LaravelBearerToken)
	if err != nil {
		logger.Fatal("backend client init failed", zap.Error(err))
	}

	metrics := observability.NewMetrics()

	dispatchOpts := []dispatch.Option{
		dispatch.WithMetrics(metrics),
		dispatch.WithSendTimeout(cfg.SendTimeout()),
	}
	if cfg.RedisURL != "" {
		rdb, err := infraredis.NewRedis(cfg.RedisURL)
		if err != nil {
			logger.Fatal("redis initialization failed", zap.Error(err))
		}
		defer rdb.Close()

		limiter, err := infraredis.NewSendLimiter(rdb, cfg.RateLimitPerSec)
		if err != nil {
			logger.Fatal("send limiter init failed", zap.Error(err))
		}
		dispatchOpts = append(dispatchOpts, dispatch.WithLimiter(limiter))
		logger.Info("per-chat send limiter enabled", zap.Int("limitPerSec", cfg.RateLimitPerSec))
	}

	dispatcher, err := dispatch.NewDispatcher(telegram, logger, dispatchOpts...)
	if err != nil {
		logger.Fatal("dispatcher init failed", zap.Error(err))
	}

	normalizer, err := payload.NewNormalizer(cfg.OrderBaseURL)
	if err != nil {
		logger.Fatal("payload normalizer init failed", zap.Error(err))
	}

	schemes, err := buildAuthSchemes(cfg, logger)
	if err != nil {
		logger.Fatal("auth configuration failed", zap.Error(err))
	}

	app := fiber.New(fiber.Config{
		AppName:      "telegram-relay",
		ErrorHandler: transport.ErrorHandler(logger),
	})
	app.Use(transport.RequestID())
	app.Use(metrics.HTTPMiddleware())
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	handler.RegisterHealthRoutes(app, telegram, cfg.APIURL, logger)
	if err := handler.RegisterNotifyRoutes(app, dispatcher, normalizer, schemes, logger); err != nil {
		logger.Fatal("route registration failed", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	poller, err := bot.NewPoller(telegram, backendClient, subscribers, logger, bot.WithMetrics(metrics))
	if err != nil {
		logger.Fatal("bot poller init failed", zap.Error(err))
	}
	go func() {
		if err := poller.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Error("bot poller exited", zap.Error(err))
		}
	}()

	go func() {
		logger.Info("telegram-relay api started", zap.Int("port", cfg.BotPort))
		if err := app.Listen(fmt.Sprintf(":%d", cfg.BotPort)); err != nil {
			logger.Error("server stopped", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		logger.Error("shutdown failed", zap.Error(err))
	}
}

// buildAuthSchemes maps the configured secrets onto the three notify routes.
// The webhook route demands both the bearer token and a valid body signature.
func buildAuthSchemes(cfg *config.Config, logger *zap.Logger) (handler.NotifySchemes, error) {
	bearer, err := auth.NewBearerToken(cfg.LaravelBearerToken)
	if err != nil {
		return handler.NotifySchemes{}, fmt.Errorf("LARAVEL_BEARER_TOKEN: %w", err)
	}

	legacy := auth.NewSharedSecretHeader(cfg.NotifySecret)
	if legacy.Insecure() {
		logger.Warn("NOTIFY_SECRET is empty, legacy route accepts unauthenticated requests")
	}

	signature, err := auth.NewHMACSignature(cfg.WebhookSecret)
	if err != nil {
		return handler.NotifySchemes{}, fmt.Errorf("WEBHOOK_SECRET: %w", err)
	}

	return handler.NotifySchemes{
		Notify:  bearer,
		Legacy:  legacy,
		Webhook: auth.All(bearer, signature),
	}, nil
}
