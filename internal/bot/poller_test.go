package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/protonrent/telegram-relay/internal/domain"
	"github.com/protonrent/telegram-relay/internal/messenger"
	"go.uber.org/zap"
)

type fakeMessenger struct {
	mu            sync.Mutex
	sent          []messenger.SendMessage
	commands      []messenger.Command
	getUpdatesFn  func(ctx context.Context, offset int64, timeout time.Duration) ([]messenger.Update, error)
	sendErr       error
	offsetsPolled []int64
}

func (f *fakeMessenger) Send(ctx context.Context, msg messenger.SendMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, msg)
	return f.sendErr
}

func (f *fakeMessenger) GetUpdates(ctx context.Context, offset int64, timeout time.Duration) ([]messenger.Update, error) {
	f.mu.Lock()
	f.offsetsPolled = append(f.offsetsPolled, offset)
	f.mu.Unlock()
	if f.getUpdatesFn != nil {
		return f.getUpdatesFn(ctx, offset, timeout)
	}
	return nil, ctx.Err()
}

func (f *fakeMessenger) SetMyCommands(ctx context.Context, commands []messenger.Command) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commands = commands
	return nil
}

func (f *fakeMessenger) sentMessages() []messenger.SendMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]messenger.SendMessage(nil), f.sent...)
}

type fakeBackend struct {
	registerFn func(ctx context.Context, phone string, chatID string) error
	disableFn  func(ctx context.Context, chatID string) error
}

func (f *fakeBackend) Register(ctx context.Context, phone string, chatID string) error {
	if f.registerFn != nil {
		return f.registerFn(ctx, phone, chatID)
	}
	return nil
}

func (f *fakeBackend) DisableNotifications(ctx context.Context, chatID string) error {
	if f.disableFn != nil {
		return f.disableFn(ctx, chatID)
	}
	return nil
}

type fakeSubscribers struct {
	mu         sync.Mutex
	added      []string
	removed    []string
	subscribed map[string]bool
}

func (f *fakeSubscribers) Add(ctx context.Context, chatID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.added = append(f.added, chatID)
	return nil
}

func (f *fakeSubscribers) Remove(ctx context.Context, chatID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, chatID)
	return nil
}

func (f *fakeSubscribers) Exists(ctx context.Context, chatID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.subscribed[chatID], nil
}

func newTestPoller(t *testing.T, m *fakeMessenger, backend *fakeBackend, subscribers *fakeSubscribers) *Poller {
	t.Helper()
	p, err := NewPoller(m, backend, subscribers, zap.NewNop())
	if err != nil {
		t.Fatalf("NewPoller() error = %v", err)
	}
	return p
}

func textMessage(chatID int64, text string) messenger.Update {
	return messenger.Update{
		UpdateID: 1,
		Message: &messenger.IncomingMessage{
			From: &messenger.User{ID: chatID},
			Chat: messenger.Chat{ID: chatID},
			Text: text,
		},
	}
}

func TestNewPollerValidatesDependencies(t *testing.T) {
	t.Parallel()

	if _, err := NewPoller(nil, &fakeBackend{}, &fakeSubscribers{}, nil); err == nil {
		t.Fatal("NewPoller() with nil messenger should fail")
	}
	if _, err := NewPoller(&fakeMessenger{}, nil, &fakeSubscribers{}, nil); err == nil {
		t.Fatal("NewPoller() with nil backend should fail")
	}
	if _, err := NewPoller(&fakeMessenger{}, &fakeBackend{}, nil, nil); err == nil {
		t.Fatal("NewPoller() with nil subscribers should fail")
	}
}

func TestHandleStartRequestsContact(t *testing.T) {
	t.Parallel()

	m := &fakeMessenger{}
	p := newTestPoller(t, m, &fakeBackend{}, &fakeSubscribers{})

	p.handleUpdate(context.Background(), textMessage(42, "/start"))

	sent := m.sentMessages()
	if len(sent) != 1 {
		t.Fatalf("sent %d messages, want 1", len(sent))
	}
	if sent[0].ChatID != "42" {
		t.Fatalf("ChatID = %q, want 42", sent[0].ChatID)
	}
	if sent[0].RequestContact == "" {
		t.Fatal("reply should request a contact")
	}
}

func TestHandleStartAlreadySubscribed(t *testing.T) {
	t.Parallel()

	m := &fakeMessenger{}
	subscribers := &fakeSubscribers{subscribed: map[string]bool{"42": true}}
	p := newTestPoller(t, m, &fakeBackend{}, subscribers)

	p.handleUpdate(context.Background(), textMessage(42, "/start"))

	sent := m.sentMessages()
	if len(sent) != 1 {
		t.Fatalf("sent %d messages, want 1", len(sent))
	}
	if sent[0].RequestContact != "" {
		t.Fatal("subscribed user should not be asked for a contact again")
	}
	if sent[0].Text != alreadyRegisteredText {
		t.Fatalf("reply = %q, want already-registered text", sent[0].Text)
	}
}

func TestHandleIDEchoesChatID(t *testing.T) {
	t.Parallel()

	m := &fakeMessenger{}
	p := newTestPoller(t, m, &fakeBackend{}, &fakeSubscribers{})

	p.handleUpdate(context.Background(), textMessage(987654321, "/id"))

	sent := m.sentMessages()
	if len(sent) != 1 {
		t.Fatalf("sent %d messages, want 1", len(sent))
	}
	if !strings.Contains(sent[0].Text, "987654321") {
		t.Fatalf("reply %q should contain the chat id", sent[0].Text)
	}
}

func TestHandleContactRegistersUser(t *testing.T) {
	t.Parallel()

	m := &fakeMessenger{}
	subscribers := &fakeSubscribers{}
	var gotPhone, gotChatID string
	backend := &fakeBackend{
		registerFn: func(ctx context.Context, phone string, chatID string) error {
			gotPhone, gotChatID = phone, chatID
			return nil
		},
	}
	p := newTestPoller(t, m, backend, subscribers)

	p.handleUpdate(context.Background(), messenger.Update{
		UpdateID: 1,
		Message: &messenger.IncomingMessage{
			From:    &messenger.User{ID: 42},
			Chat:    messenger.Chat{ID: 42},
			Contact: &messenger.Contact{PhoneNumber: "7 (900) 123-45-67", UserID: 42},
		},
	})

	if gotPhone != "+79001234567" {
		t.Fatalf("registered phone = %q, want +79001234567", gotPhone)
	}
	if gotChatID != "42" {
		t.Fatalf("registered chat id = %q, want 42", gotChatID)
	}
	if len(subscribers.added) != 1 || subscribers.added[0] != "42" {
		t.Fatalf("subscribers added = %v, want [42]", subscribers.added)
	}

	sent := m.sentMessages()
	if len(sent) != 1 {
		t.Fatalf("sent %d messages, want 1", len(sent))
	}
	if !sent[0].RemoveKeyboard {
		t.Fatal("success reply should remove the contact keyboard")
	}
}

func TestHandleContactUnknownPhone(t *testing.T) {
	t.Parallel()

	m := &fakeMessenger{}
	subscribers := &fakeSubscribers{}
	backend := &fakeBackend{
		registerFn: func(ctx context.Context, phone string, chatID string) error {
			return fmt.Errorf("%w: phone is not registered", domain.ErrNotFound)
		},
	}
	p := newTestPoller(t, m, backend, subscribers)

	p.handleUpdate(context.Background(), messenger.Update{
		Message: &messenger.IncomingMessage{
			From:    &messenger.User{ID: 42},
			Chat:    messenger.Chat{ID: 42},
			Contact: &messenger.Contact{PhoneNumber: "+79001234567"},
		},
	})

	if len(subscribers.added) != 0 {
		t.Fatalf("subscribers added = %v, want none", subscribers.added)
	}
	sent := m.sentMessages()
	if len(sent) != 1 || sent[0].Text != notFoundText {
		t.Fatalf("sent = %+v, want single not-found reply", sent)
	}
}

func TestHandleContactBackendFailure(t *testing.T) {
	t.Parallel()

	m := &fakeMessenger{}
	subscribers := &fakeSubscribers{}
	backend := &fakeBackend{
		registerFn: func(ctx context.Context, phone string, chatID string) error {
			return fmt.Errorf("%w: registration request failed", domain.ErrUpstream)
		},
	}
	p := newTestPoller(t, m, backend, subscribers)

	p.handleUpdate(context.Background(), messenger.Update{
		Message: &messenger.IncomingMessage{
			From:    &messenger.User{ID: 42},
			Chat:    messenger.Chat{ID: 42},
			Contact: &messenger.Contact{PhoneNumber: "+79001234567"},
		},
	})

	if len(subscribers.added) != 0 {
		t.Fatalf("subscribers added = %v, want none", subscribers.added)
	}
	sent := m.sentMessages()
	if len(sent) != 1 || sent[0].Text != registrationErrorText {
		t.Fatalf("sent = %+v, want single error reply", sent)
	}
}

func TestHandleContactInvalidPhone(t *testing.T) {
	t.Parallel()

	m := &fakeMessenger{}
	registerCalled := false
	backend := &fakeBackend{
		registerFn: func(ctx context.Context, phone string, chatID string) error {
			registerCalled = true
			return nil
		},
	}
	p := newTestPoller(t, m, backend, &fakeSubscribers{})

	p.handleUpdate(context.Background(), messenger.Update{
		Message: &messenger.IncomingMessage{
			From:    &messenger.User{ID: 42},
			Chat:    messenger.Chat{ID: 42},
			Contact: &messenger.Contact{PhoneNumber: "not-a-phone"},
		},
	})

	if registerCalled {
		t.Fatal("invalid phone must not reach the backend")
	}
	sent := m.sentMessages()
	if len(sent) != 1 || sent[0].Text != registrationErrorText {
		t.Fatalf("sent = %+v, want single error reply", sent)
	}
}

func TestHandleStopUnsubscribes(t *testing.T) {
	t.Parallel()

	m := &fakeMessenger{}
	subscribers := &fakeSubscribers{}
	p := newTestPoller(t, m, &fakeBackend{}, subscribers)

	p.handleUpdate(context.Background(), textMessage(42, "/stop"))

	if len(subscribers.removed) != 1 || subscribers.removed[0] != "42" {
		t.Fatalf("subscribers removed = %v, want [42]", subscribers.removed)
	}
	sent := m.sentMessages()
	if len(sent) != 1 || sent[0].Text != unsubscribedText {
		t.Fatalf("sent = %+v, want single unsubscribe confirmation", sent)
	}
}

func TestHandleStopBackendFailureKeepsSubscriber(t *testing.T) {
	t.Parallel()

	m := &fakeMessenger{}
	subscribers := &fakeSubscribers{}
	backend := &fakeBackend{
		disableFn: func(ctx context.Context, chatID string) error {
			return errors.New("backend unreachable")
		},
	}
	p := newTestPoller(t, m, backend, subscribers)

	p.handleUpdate(context.Background(), textMessage(42, "/stop"))

	if len(subscribers.removed) != 0 {
		t.Fatalf("subscribers removed = %v, want none", subscribers.removed)
	}
	sent := m.sentMessages()
	if len(sent) != 1 || sent[0].Text != unsubscribeErrorText {
		t.Fatalf("sent = %+v, want single error reply", sent)
	}
}

func TestHandleUpdateIgnoresNonCommands(t *testing.T) {
	t.Parallel()

	m := &fakeMessenger{}
	p := newTestPoller(t, m, &fakeBackend{}, &fakeSubscribers{})

	p.handleUpdate(context.Background(), textMessage(42, "hello"))
	p.handleUpdate(context.Background(), messenger.Update{Message: nil})

	if sent := m.sentMessages(); len(sent) != 0 {
		t.Fatalf("sent = %+v, want none", sent)
	}
}

func TestRunAdvancesOffsetAndStopsOnCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	m := &fakeMessenger{}
	m.getUpdatesFn = func(ctx context.Context, offset int64, timeout time.Duration) ([]messenger.Update, error) {
		if offset == 0 {
			return []messenger.Update{textMessage(42, "/id"), {
				UpdateID: 7,
				Message: &messenger.IncomingMessage{
					From: &messenger.User{ID: 42},
					Chat: messenger.Chat{ID: 42},
					Text: "/id",
				},
			}}, nil
		}
		cancel()
		return nil, ctx.Err()
	}
	p := newTestPoller(t, m, &fakeBackend{}, &fakeSubscribers{})

	err := p.Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run() error = %v, want context.Canceled", err)
	}

	m.mu.Lock()
	offsets := append([]int64(nil), m.offsetsPolled...)
	commands := m.commands
	m.mu.Unlock()
	if len(offsets) < 2 || offsets[1] != 8 {
		t.Fatalf("polled offsets = %v, want second poll at 8", offsets)
	}
	if len(commands) != 3 {
		t.Fatalf("registered %d commands, want 3", len(commands))
	}
}
