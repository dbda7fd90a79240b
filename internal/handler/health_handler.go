package handler

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/protonrent/telegram-relay/internal/messenger"
	"go.uber.org/zap"
)

const healthCheckTimeout = 3 * time.Second

// BotIdentity is the liveness probe against the messaging backend.
type BotIdentity interface {
	GetMe(ctx context.Context) (*messenger.BotInfo, error)
}

func RegisterHealthRoutes(router fiber.Router, identity BotIdentity, backendURL string, logger *zap.Logger) {
	router.Get("/", RootHandler())
	router.Get("/health", HealthHandler(identity, backendURL, logger))
}

func RootHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(apiResponse{
			Success: true,
			Message: "Telegram order-notification relay",
			Data: fiber.Map{
				"status":    "active",
				"endpoints": []string{"/notify", "/notify-legacy", "/notify-webhook", "/health"},
			},
		})
	}
}

func HealthHandler(identity BotIdentity, backendURL string, logger *zap.Logger) fiber.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.Context(), healthCheckTimeout)
		defer cancel()

		info, err := identity.GetMe(ctx)
		if err != nil {
			logger.Error("health check failed", zap.Error(err))
			return fiber.NewError(fiber.StatusServiceUnavailable, "Service unhealthy")
		}

		return c.Status(fiber.StatusOK).JSON(apiResponse{
			Success: true,
			Message: "Service is healthy",
			Data: fiber.Map{
				"bot_username": info.Username,
				"bot_id":       info.ID,
				"api_url":      backendURL,
			},
		})
	}
}
