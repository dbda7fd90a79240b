package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/protonrent/telegram-relay/internal/domain"
	"github.com/protonrent/telegram-relay/internal/messenger"
	"github.com/protonrent/telegram-relay/internal/observability"
	"go.uber.org/zap"
)

const (
	defaultPollTimeout = 30 * time.Second
	pollRetryDelay     = 3 * time.Second
)

// Messenger is the Telegram surface the poller needs.
type Messenger interface {
	Send(ctx context.Context, msg messenger.SendMessage) error
	GetUpdates(ctx context.Context, offset int64, timeout time.Duration) ([]messenger.Update, error)
	SetMyCommands(ctx context.Context, commands []messenger.Command) error
}

// Backend is the upstream registration API.
type Backend interface {
	Register(ctx context.Context, phone string, chatID string) error
	DisableNotifications(ctx context.Context, chatID string) error
}

// Subscribers is the local subscriber registry.
type Subscribers interface {
	Add(ctx context.Context, chatID string) error
	Remove(ctx context.Context, chatID string) error
	Exists(ctx context.Context, chatID string) (bool, error)
}

// Poller consumes bot updates over long polling and drives the registration
// conversation: /start requests a contact, a shared contact registers the
// user upstream and locally, /stop unsubscribes.
type Poller struct {
	messenger   Messenger
	backend     Backend
	subscribers Subscribers
	logger      *zap.Logger
	metrics     *observability.Metrics
	pollTimeout time.Duration

	// offset is the next update id to request, per the getUpdates protocol.
	offset int64
}

type Option func(*Poller)

func WithPollTimeout(timeout time.Duration) Option {
	return func(p *Poller) {
		if timeout > 0 {
			p.pollTimeout = timeout
		}
	}
}

func WithMetrics(metrics *observability.Metrics) Option {
	return func(p *Poller) { p.metrics = metrics }
}

func NewPoller(m Messenger, backend Backend, subscribers Subscribers, logger *zap.Logger, opts ...Option) (*Poller, error) {
	if m == nil {
		return nil, fmt.Errorf("messenger is required")
	}
	if backend == nil {
		return nil, fmt.Errorf("backend client is required")
	}
	if subscribers == nil {
		return nil, fmt.Errorf("subscriber store is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	p := &Poller{
		messenger:   m,
		backend:     backend,
		subscribers: subscribers,
		logger:      logger,
		pollTimeout: defaultPollTimeout,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Run registers the command menu and polls for updates until the context is
// cancelled. Polling errors are logged and retried after a short delay.
func (p *Poller) Run(ctx context.Context) error {
	if err := p.messenger.SetMyCommands(ctx, botCommands()); err != nil {
		p.logger.Warn("failed to register bot commands", zap.Error(err))
	}
	p.logger.Info("bot poller started", zap.Duration("pollTimeout", p.pollTimeout))

	for {
		updates, err := p.messenger.GetUpdates(ctx, p.offset, p.pollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				p.logger.Info("bot poller stopped")
				return ctx.Err()
			}
			p.logger.Error("failed to fetch updates", zap.Error(err))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(pollRetryDelay):
			}
			continue
		}

		for _, update := range updates {
			if update.UpdateID >= p.offset {
				p.offset = update.UpdateID + 1
			}
			p.handleUpdate(ctx, update)
		}
	}
}

func (p *Poller) handleUpdate(ctx context.Context, update messenger.Update) {
	msg := update.Message
	if msg == nil || msg.From == nil {
		return
	}
	chatID := strconv.FormatInt(msg.Chat.ID, 10)

	switch {
	case msg.Contact != nil:
		p.handleContact(ctx, chatID, msg.Contact)
	case msg.Text == "/start":
		p.handleStart(ctx, chatID)
	case msg.Text == "/id":
		p.handleID(ctx, chatID)
	case msg.Text == "/stop":
		p.handleStop(ctx, chatID)
	}
}

func (p *Poller) handleStart(ctx context.Context, chatID string) {
	subscribed, err := p.subscribers.Exists(ctx, chatID)
	if err != nil {
		p.logger.Error("failed to check subscription", zap.String("chat_id", chatID), zap.Error(err))
	}
	if subscribed {
		p.reply(ctx, messenger.SendMessage{ChatID: chatID, Text: alreadyRegisteredText})
		return
	}

	p.logger.Info("registration started", zap.String("chat_id", chatID))
	p.reply(ctx, messenger.SendMessage{
		ChatID:         chatID,
		Text:           welcomeText,
		RequestContact: contactButtonLabel,
	})
}

func (p *Poller) handleID(ctx context.Context, chatID string) {
	p.reply(ctx, messenger.SendMessage{
		ChatID: chatID,
		Text:   fmt.Sprintf(idTextFormat, chatID),
	})
}

func (p *Poller) handleContact(ctx context.Context, chatID string, contact *messenger.Contact) {
	phone, err := domain.NormalizePhone(contact.PhoneNumber)
	if err != nil {
		p.logger.Warn("rejected contact with invalid phone",
			zap.String("chat_id", chatID),
			zap.Error(err),
		)
		p.metrics.IncRegistration("invalid_phone")
		p.reply(ctx, messenger.SendMessage{ChatID: chatID, Text: registrationErrorText})
		return
	}

	p.logger.Info("received contact", zap.String("chat_id", chatID), zap.String("phone", phone))

	if err := p.backend.Register(ctx, phone, chatID); err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			p.logger.Warn("phone not registered upstream", zap.String("phone", phone))
			p.metrics.IncRegistration("not_found")
			p.reply(ctx, messenger.SendMessage{ChatID: chatID, Text: notFoundText})
		default:
			p.logger.Error("registration failed",
				zap.String("chat_id", chatID),
				zap.Error(err),
			)
			p.metrics.IncRegistration("error")
			p.reply(ctx, messenger.SendMessage{ChatID: chatID, Text: registrationErrorText})
		}
		return
	}

	if err := p.subscribers.Add(ctx, chatID); err != nil {
		p.logger.Error("failed to store subscriber", zap.String("chat_id", chatID), zap.Error(err))
	}

	p.logger.Info("user registered", zap.String("chat_id", chatID), zap.String("phone", phone))
	p.metrics.IncRegistration("success")
	p.reply(ctx, messenger.SendMessage{
		ChatID:         chatID,
		Text:           registeredText,
		RemoveKeyboard: true,
	})
}

func (p *Poller) handleStop(ctx context.Context, chatID string) {
	if err := p.backend.DisableNotifications(ctx, chatID); err != nil {
		p.logger.Error("failed to disable notifications",
			zap.String("chat_id", chatID),
			zap.Error(err),
		)
		p.reply(ctx, messenger.SendMessage{ChatID: chatID, Text: unsubscribeErrorText})
		return
	}

	if err := p.subscribers.Remove(ctx, chatID); err != nil {
		p.logger.Error("failed to remove subscriber", zap.String("chat_id", chatID), zap.Error(err))
	}

	p.logger.Info("user unsubscribed", zap.String("chat_id", chatID))
	p.reply(ctx, messenger.SendMessage{ChatID: chatID, Text: unsubscribedText})
}

func (p *Poller) reply(ctx context.Context, msg messenger.SendMessage) {
	if err := p.messenger.Send(ctx, msg); err != nil {
		p.logger.Error("failed to send reply",
			zap.String("chat_id", msg.ChatID),
			zap.Error(err),
		)
	}
}

func botCommands() []messenger.Command {
	return []messenger.Command{
		{Command: "start", Description: "Регистрация и запуск бота"},
		{Command: "id", Description: "Показать ваш Telegram ID"},
		{Command: "stop", Description: "Отписаться от уведомлений"},
	}
}
