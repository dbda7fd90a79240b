package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/protonrent/telegram-relay/internal/domain"
)

const defaultRequestTimeout = 10 * time.Second

// Client calls the order backend's Telegram integration endpoints. The relay
// only consumes two of them: subscriber registration and unsubscription.
type Client struct {
	client      *resty.Client
	baseURL     string
	bearerToken string
}

func NewClient(baseURL string, bearerToken string) (*Client, error) {
	client := resty.New()
	client.SetTimeout(defaultRequestTimeout)
	client.SetRetryCount(0)

	return NewClientWithResty(baseURL, bearerToken, client)
}

func NewClientWithResty(baseURL string, bearerToken string, client *resty.Client) (*Client, error) {
	trimmedBase := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmedBase == "" {
		return nil, fmt.Errorf("backend base url is required")
	}
	if strings.TrimSpace(bearerToken) == "" {
		return nil, fmt.Errorf("backend bearer token is required")
	}
	if client == nil {
		return nil, fmt.Errorf("resty client is required")
	}
	if client.GetClient().Timeout == 0 {
		client.SetTimeout(defaultRequestTimeout)
	}
	client.SetRetryCount(0)

	return &Client{
		client:      client,
		baseURL:     trimmedBase,
		bearerToken: bearerToken,
	}, nil
}

type registrationRequest struct {
	Phone      string `json:"phone"`
	TelegramID string `json:"telegram_id"`
}

type unsubscribeRequest struct {
	TelegramID string `json:"telegram_id"`
}

// Register associates a phone number with a chat id in the backend. An
// unknown phone yields domain.ErrNotFound; any other non-200 outcome is
// transient and yields domain.ErrUpstream.
func (c *Client) Register(ctx context.Context, phone string, chatID string) error {
	response, err := c.client.R().
		SetContext(ctx).
		SetAuthToken(c.bearerToken).
		SetHeader("Content-Type", "application/json").
		SetBody(registrationRequest{Phone: phone, TelegramID: chatID}).
		Post(c.baseURL + "/telegram/register")
	if err != nil {
		return wrapTransportError("registration", err)
	}

	switch response.StatusCode() {
	case http.StatusOK:
		return nil
	case http.StatusNotFound:
		return fmt.Errorf("%w: phone number is not registered in the backend", domain.ErrNotFound)
	default:
		return fmt.Errorf("%w: registration returned status %d", domain.ErrUpstream, response.StatusCode())
	}
}

// DisableNotifications unsubscribes the chat id in the backend.
func (c *Client) DisableNotifications(ctx context.Context, chatID string) error {
	response, err := c.client.R().
		SetContext(ctx).
		SetAuthToken(c.bearerToken).
		SetHeader("Content-Type", "application/json").
		SetBody(unsubscribeRequest{TelegramID: chatID}).
		Post(c.baseURL + "/telegram/disable-notifications")
	if err != nil {
		return wrapTransportError("unsubscribe", err)
	}

	if response.StatusCode() != http.StatusOK {
		return fmt.Errorf("%w: unsubscribe returned status %d", domain.ErrUpstream, response.StatusCode())
	}
	return nil
}

func wrapTransportError(operation string, err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	return fmt.Errorf("%w: %s request failed: %v", domain.ErrUpstream, operation, err)
}
