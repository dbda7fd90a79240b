package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/protonrent/telegram-relay/internal/domain"
	"github.com/protonrent/telegram-relay/internal/messenger"
	"github.com/protonrent/telegram-relay/internal/observability"
	"github.com/protonrent/telegram-relay/internal/ratelimit"
	"go.uber.org/zap"
)

const defaultSendTimeout = 5 * time.Second

// Sender is the outbound message delivery port, implemented by the Telegram
// client.
type Sender interface {
	Send(ctx context.Context, msg messenger.SendMessage) error
}

// Dispatcher renders a DeliveryRequest and performs exactly one synchronous
// send. There is no internal retry: a failed send is returned to the caller,
// who owns retry policy keyed by the idempotency key.
type Dispatcher struct {
	sender      Sender
	limiter     ratelimit.Limiter
	sendTimeout time.Duration
	logger      *zap.Logger
	metrics     *observability.Metrics
}

// Option configures optional dispatcher collaborators.
type Option func(*Dispatcher)

// WithLimiter throttles sends per chat before the outbound call.
func WithLimiter(limiter ratelimit.Limiter) Option {
	return func(d *Dispatcher) { d.limiter = limiter }
}

func WithMetrics(metrics *observability.Metrics) Option {
	return func(d *Dispatcher) { d.metrics = metrics }
}

func WithSendTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) {
		if timeout > 0 {
			d.sendTimeout = timeout
		}
	}
}

func NewDispatcher(sender Sender, logger *zap.Logger, opts ...Option) (*Dispatcher, error) {
	if sender == nil {
		return nil, fmt.Errorf("sender is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	d := &Dispatcher{
		sender:      sender,
		sendTimeout: defaultSendTimeout,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Dispatch validates, renders, and sends one delivery. The returned
// DeliveryResult always echoes the request identifiers; on failure the error
// wraps domain.ErrUpstream and the result carries the failure reason.
func (d *Dispatcher) Dispatch(ctx context.Context, route string, req *domain.DeliveryRequest) (*domain.DeliveryResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	result := &domain.DeliveryResult{
		ChatID:         req.ChatID,
		CorrelationID:  req.CorrelationID,
		IdempotencyKey: req.IdempotencyKey,
	}
	if req.Order != nil {
		result.OrderID = req.Order.OrderID
	}

	log := d.logger.With(
		zap.String("route", route),
		zap.String("chat_id", req.ChatID),
	)
	if req.CorrelationID != "" {
		log = log.With(zap.String("correlation_id", req.CorrelationID))
	}

	if d.limiter != nil {
		if err := d.limiter.Wait(ctx, req.ChatID); err != nil {
			result.FailureReason = "send rate limit wait failed"
			d.metrics.IncDeliveryFailed(route, "rate_limit")
			log.Error("send limiter rejected delivery", zap.Error(err))
			return result, fmt.Errorf("%w: %v", domain.ErrUpstream, err)
		}
	}

	text, button := render(req)

	sendCtx, cancel := context.WithTimeout(ctx, d.sendTimeout)
	defer cancel()

	start := time.Now()
	err := d.sender.Send(sendCtx, messenger.SendMessage{
		ChatID: req.ChatID,
		Text:   text,
		Button: button,
	})
	d.metrics.ObserveSendDuration(time.Since(start))

	if err != nil {
		result.FailureReason = err.Error()
		d.metrics.IncDeliveryFailed(route, failureLabel(err))
		log.Error("delivery failed",
			zap.Bool("transient", messenger.IsTransient(err)),
			zap.Error(err),
		)
		return result, fmt.Errorf("%w: failed to send notification: %v", domain.ErrUpstream, err)
	}

	result.Success = true
	d.metrics.IncDeliverySent(route)
	log.Info("notification delivered", zap.String("order_id", result.OrderID))
	return result, nil
}

func failureLabel(err error) string {
	if messenger.IsTransient(err) {
		return "transient"
	}
	return "permanent"
}
