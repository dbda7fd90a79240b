package config

import (
	"fmt"
	"time"

	"github.com/Netflix/go-env"
)

type Config struct {
	BotToken           string `env:"BOT_TOKEN,required=true"`
	APIURL             string `env:"API_URL,default=https://app.protonrent.ru/api/v1"`
	LaravelBearerToken string `env:"LARAVEL_BEARER_TOKEN"`
	NotifySecret       string `env:"NOTIFY_SECRET,required=true"`
	WebhookSecret      string `env:"WEBHOOK_SECRET"`
	OrderBaseURL       string `env:"ORDER_BASE_URL,default=https://app.protonrent.ru"`
	DBPath             string `env:"DB_PATH,default=users.db"`
	RedisURL           string `env:"REDIS_URL"`
	RateLimitPerSec    int    `env:"RATE_LIMIT_PER_SEC,default=1"`
	SendTimeoutSec     int    `env:"SEND_TIMEOUT_SEC,default=5"`
	BotPort            int    `env:"BOT_PORT,default=8000"`
	LogLevel           string `env:"LOG_LEVEL,default=info"`
}

func Load() (*Config, error) {
	var cfg Config
	_, err := env.UnmarshalFromEnviron(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// SendTimeout is the per-message Telegram send deadline.
func (c *Config) SendTimeout() time.Duration {
	return time.Duration(c.SendTimeoutSec) * time.Second
}
