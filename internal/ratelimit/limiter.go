package ratelimit

import "context"

// Limiter throttles outbound Telegram sends per chat. Telegram enforces its
// own per-chat throughput limits; staying under them keeps delivery failures
// out of the caller's retry budget.
type Limiter interface {
	Allow(ctx context.Context, chatID string) (bool, error)
	Wait(ctx context.Context, chatID string) error
}
