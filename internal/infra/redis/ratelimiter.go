package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/protonrent/telegram-relay/internal/ratelimit"
	goredis "github.com/redis/go-redis/v9"
)

const (
	defaultLimitPerSec int64 = 1
	backoffStep              = 50 * time.Millisecond
	backoffMax               = 250 * time.Millisecond
	windowSeconds            = 1
)

var allowScript = goredis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("EXPIRE", KEYS[1], ARGV[2])
end
if current > tonumber(ARGV[1]) then
  return 0
end
return 1
`)

var _ ratelimit.Limiter = (*SendLimiter)(nil)

// SendLimiter is a per-chat per-second limiter for outbound Telegram sends,
// backed by Redis so concurrent relay instances share the budget.
type SendLimiter struct {
	client      *goredis.Client
	limitPerSec int64
	now         func() time.Time
	sleep       func(ctx context.Context, d time.Duration) error
	script      *goredis.Script
}

func NewSendLimiter(client *goredis.Client, limitPerSec int) (*SendLimiter, error) {
	return newSendLimiter(
		client,
		int64(limitPerSec),
		time.Now,
		sleepWithContext,
	)
}

func newSendLimiter(
	client *goredis.Client,
	limitPerSec int64,
	nowFn func() time.Time,
	sleepFn func(ctx context.Context, d time.Duration) error,
) (*SendLimiter, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if limitPerSec <= 0 {
		limitPerSec = defaultLimitPerSec
	}
	if nowFn == nil {
		nowFn = time.Now
	}
	if sleepFn == nil {
		sleepFn = sleepWithContext
	}

	return &SendLimiter{
		client:      client,
		limitPerSec: limitPerSec,
		now:         nowFn,
		sleep:       sleepFn,
		script:      allowScript,
	}, nil
}

func (l *SendLimiter) Allow(ctx context.Context, chatID string) (bool, error) {
	if l == nil || l.client == nil || l.script == nil {
		return false, fmt.Errorf("send limiter is not initialized")
	}

	trimmedChatID := strings.TrimSpace(chatID)
	if trimmedChatID == "" {
		return false, fmt.Errorf("chat id is required")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	key := fmt.Sprintf("sendlimit:%s:%d", trimmedChatID, l.now().UTC().Unix())
	result, err := l.script.Run(ctx, l.client, []string{key}, l.limitPerSec, windowSeconds).Int()
	if err != nil {
		return false, fmt.Errorf("failed to evaluate send limit: %w", err)
	}

	return result == 1, nil
}

func (l *SendLimiter) Wait(ctx context.Context, chatID string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	backoff := backoffStep
	for {
		allowed, err := l.Allow(ctx, chatID)
		if err != nil {
			return err
		}
		if allowed {
			return nil
		}

		if err := l.sleep(ctx, backoff); err != nil {
			return err
		}

		backoff += backoffStep
		if backoff > backoffMax {
			backoff = backoffMax
		}
	}
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
