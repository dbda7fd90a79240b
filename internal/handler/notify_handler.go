package handler

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/protonrent/telegram-relay/internal/auth"
	"github.com/protonrent/telegram-relay/internal/domain"
	"github.com/protonrent/telegram-relay/internal/observability"
	"github.com/protonrent/telegram-relay/internal/payload"
	"github.com/protonrent/telegram-relay/internal/transport"
	"go.uber.org/zap"
)

// Route names used for dispatch metrics and logging.
const (
	RouteNotify        = "notify"
	RouteNotifyLegacy  = "notify-legacy"
	RouteNotifyWebhook = "notify-webhook"
)

// Dispatcher renders and sends one delivery.
type Dispatcher interface {
	Dispatch(ctx context.Context, route string, req *domain.DeliveryRequest) (*domain.DeliveryResult, error)
}

// NotifySchemes carries the per-route authentication configuration. Each
// route declares which scheme(s) it requires; the webhook route combines two
// with AND semantics.
type NotifySchemes struct {
	Notify  auth.Scheme
	Legacy  auth.Scheme
	Webhook auth.Scheme
}

type NotifyHandler struct {
	dispatcher Dispatcher
	normalizer *payload.Normalizer
	logger     *zap.Logger
}

func NewNotifyHandler(dispatcher Dispatcher, normalizer *payload.Normalizer, logger *zap.Logger) (*NotifyHandler, error) {
	if dispatcher == nil {
		return nil, fmt.Errorf("dispatcher is required")
	}
	if normalizer == nil {
		return nil, fmt.Errorf("normalizer is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotifyHandler{
		dispatcher: dispatcher,
		normalizer: normalizer,
		logger:     logger,
	}, nil
}

func RegisterNotifyRoutes(
	router fiber.Router,
	dispatcher Dispatcher,
	normalizer *payload.Normalizer,
	schemes NotifySchemes,
	logger *zap.Logger,
) error {
	h, err := NewNotifyHandler(dispatcher, normalizer, logger)
	if err != nil {
		return err
	}
	if schemes.Notify == nil || schemes.Legacy == nil || schemes.Webhook == nil {
		return fmt.Errorf("every notify route requires an authentication scheme")
	}

	router.Post("/notify", auth.Middleware(schemes.Notify, logger), h.Notify)
	router.Post("/notify-legacy", auth.Middleware(schemes.Legacy, logger), h.NotifyLegacy)
	router.Post("/notify-webhook", auth.Middleware(schemes.Webhook, logger), h.NotifyWebhook)

	return nil
}

type apiResponse struct {
	Success bool      `json:"success"`
	Message string    `json:"message"`
	Data    fiber.Map `json:"data,omitempty"`
}

func (h *NotifyHandler) Notify(c *fiber.Ctx) error {
	req, err := h.normalizer.Structured(c.Body())
	if err != nil {
		return toHTTPError(err)
	}

	result, err := h.dispatch(c, RouteNotify, req)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusOK).JSON(apiResponse{
		Success: true,
		Message: "Notification sent successfully",
		Data: fiber.Map{
			"telegram_id": result.ChatID,
			"order_id":    result.OrderID,
		},
	})
}

func (h *NotifyHandler) NotifyLegacy(c *fiber.Ctx) error {
	req, err := h.normalizer.Legacy(c.Body())
	if err != nil {
		return toHTTPError(err)
	}

	result, err := h.dispatch(c, RouteNotifyLegacy, req)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusOK).JSON(apiResponse{
		Success: true,
		Message: "Legacy notification sent successfully",
		Data: fiber.Map{
			"telegram_id": result.ChatID,
		},
	})
}

func (h *NotifyHandler) NotifyWebhook(c *fiber.Ctx) error {
	req, err := h.normalizer.WebhookEvent(c.Body())
	if err != nil {
		return toHTTPError(err)
	}

	result, err := h.dispatch(c, RouteNotifyWebhook, req)
	if err != nil {
		return err
	}

	data := fiber.Map{
		"telegram_id": result.ChatID,
		"order_id":    result.OrderID,
	}
	// The keys are passthrough identifiers: echoed byte-exact when supplied,
	// absent when not.
	if result.CorrelationID != "" {
		data["correlation_id"] = result.CorrelationID
	}
	if result.IdempotencyKey != "" {
		data["idempotency_key"] = result.IdempotencyKey
	}

	return c.Status(fiber.StatusOK).JSON(apiResponse{
		Success: true,
		Message: "Webhook notification sent successfully",
		Data:    data,
	})
}

func (h *NotifyHandler) dispatch(c *fiber.Ctx, route string, req *domain.DeliveryRequest) (*domain.DeliveryResult, error) {
	var ctx context.Context = c.Context()
	if req.CorrelationID != "" {
		ctx = observability.WithCorrelationID(ctx, req.CorrelationID)
	}

	result, err := h.dispatcher.Dispatch(ctx, route, req)
	if err != nil {
		observability.WithContextLogger(h.logger, ctx).Warn("dispatch failed",
			zap.String("route", route),
			zap.String("request_id", transport.RequestIDFromCtx(c)),
			zap.String("chat_id", req.ChatID),
		)
		return nil, toHTTPError(err)
	}
	return result, nil
}

func toHTTPError(err error) error {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		return fiber.NewError(fiber.StatusUnauthorized, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrUpstream):
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	default:
		return err
	}
}
