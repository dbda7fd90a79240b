package messenger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	defaultAPIBaseURL  = "https://api.telegram.org"
	defaultSendTimeout = 5 * time.Second

	// pollGrace pads the getUpdates deadline past the requested poll window
	// so an idle long poll is answered by Telegram, not cut off locally.
	pollGrace = 10 * time.Second
)

// Client is the Telegram Bot API client. One synchronous HTTP call per
// operation, explicit timeout, no internal retries: retry policy belongs to
// the caller. Long polls run on a separate connection whose deadline tracks
// the poll window instead of the send timeout.
type Client struct {
	client  *resty.Client
	poll    *resty.Client
	baseURL string
	token   string
}

func NewClient(token string, timeout time.Duration) (*Client, error) {
	client := resty.New()
	if timeout <= 0 {
		timeout = defaultSendTimeout
	}
	client.SetTimeout(timeout)
	client.SetRetryCount(0)

	return NewClientWithBase(token, defaultAPIBaseURL, client)
}

func NewClientWithBase(token string, baseURL string, client *resty.Client) (*Client, error) {
	if strings.TrimSpace(token) == "" {
		return nil, fmt.Errorf("bot token is required")
	}
	trimmedBase := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmedBase == "" {
		return nil, fmt.Errorf("api base url is required")
	}
	if client == nil {
		return nil, fmt.Errorf("resty client is required")
	}
	if client.GetClient().Timeout == 0 {
		client.SetTimeout(defaultSendTimeout)
	}
	client.SetRetryCount(0)

	poll := resty.New()
	poll.SetRetryCount(0)

	return &Client{
		client:  client,
		poll:    poll,
		baseURL: trimmedBase,
		token:   token,
	}, nil
}

type apiResponse struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result"`
	ErrorCode   int             `json:"error_code"`
	Description string          `json:"description"`
}

type inlineKeyboardMarkup struct {
	InlineKeyboard [][]inlineKeyboardButton `json:"inline_keyboard"`
}

type inlineKeyboardButton struct {
	Text string `json:"text"`
	URL  string `json:"url"`
}

type replyKeyboardMarkup struct {
	Keyboard        [][]keyboardButton `json:"keyboard"`
	ResizeKeyboard  bool               `json:"resize_keyboard"`
	OneTimeKeyboard bool               `json:"one_time_keyboard"`
}

type keyboardButton struct {
	Text           string `json:"text"`
	RequestContact bool   `json:"request_contact,omitempty"`
}

type replyKeyboardRemove struct {
	RemoveKeyboard bool `json:"remove_keyboard"`
}

type sendMessageRequest struct {
	ChatID      string `json:"chat_id"`
	Text        string `json:"text"`
	ParseMode   string `json:"parse_mode"`
	ReplyMarkup any    `json:"reply_markup,omitempty"`
}

// Send delivers one message. HTML parse mode throughout; the reply markup is
// derived from the SendMessage options.
func (c *Client) Send(ctx context.Context, msg SendMessage) error {
	if c == nil || c.client == nil {
		return fmt.Errorf("messenger client is not initialized")
	}
	if strings.TrimSpace(msg.ChatID) == "" {
		return fmt.Errorf("chat id is required")
	}
	if strings.TrimSpace(msg.Text) == "" {
		return fmt.Errorf("message text is required")
	}

	req := sendMessageRequest{
		ChatID:    msg.ChatID,
		Text:      msg.Text,
		ParseMode: "HTML",
	}
	switch {
	case msg.Button != nil:
		req.ReplyMarkup = inlineKeyboardMarkup{
			InlineKeyboard: [][]inlineKeyboardButton{{
				{Text: msg.Button.Text, URL: msg.Button.URL},
			}},
		}
	case msg.RequestContact != "":
		req.ReplyMarkup = replyKeyboardMarkup{
			Keyboard: [][]keyboardButton{{
				{Text: msg.RequestContact, RequestContact: true},
			}},
			ResizeKeyboard:  true,
			OneTimeKeyboard: true,
		}
	case msg.RemoveKeyboard:
		req.ReplyMarkup = replyKeyboardRemove{RemoveKeyboard: true}
	}

	_, err := c.call(ctx, "sendMessage", req)
	return err
}

// GetMe returns the bot identity; used by the health check.
func (c *Client) GetMe(ctx context.Context) (*BotInfo, error) {
	result, err := c.call(ctx, "getMe", struct{}{})
	if err != nil {
		return nil, err
	}

	var info BotInfo
	if err := json.Unmarshal(result, &info); err != nil {
		return nil, fmt.Errorf("failed to decode getMe result: %w", err)
	}
	return &info, nil
}

// SetMyCommands registers the bot command menu.
func (c *Client) SetMyCommands(ctx context.Context, commands []Command) error {
	_, err := c.call(ctx, "setMyCommands", map[string]any{"commands": commands})
	return err
}

// GetUpdates long-polls for incoming updates starting after offset. The call
// is bounded by the poll window plus a grace period, independent of the send
// timeout.
func (c *Client) GetUpdates(ctx context.Context, offset int64, timeout time.Duration) ([]Update, error) {
	pollSeconds := int(timeout / time.Second)
	if pollSeconds < 0 {
		pollSeconds = 0
	}

	pollCtx, cancel := context.WithTimeout(ctx, time.Duration(pollSeconds)*time.Second+pollGrace)
	defer cancel()

	result, err := c.callOn(pollCtx, c.poll, "getUpdates", map[string]any{
		"offset":          offset,
		"timeout":         pollSeconds,
		"allowed_updates": []string{"message"},
	})
	if err != nil {
		return nil, err
	}

	var updates []Update
	if err := json.Unmarshal(result, &updates); err != nil {
		return nil, fmt.Errorf("failed to decode updates: %w", err)
	}
	return updates, nil
}

func (c *Client) call(ctx context.Context, method string, body any) (json.RawMessage, error) {
	return c.callOn(ctx, c.client, method, body)
}

func (c *Client) callOn(ctx context.Context, client *resty.Client, method string, body any) (json.RawMessage, error) {
	url := fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.token, method)

	response, err := client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		Post(url)
	if err != nil {
		return nil, &APIError{
			Description: fmt.Sprintf("%s request failed", method),
			Transient:   !errors.Is(err, context.Canceled),
			Cause:       err,
		}
	}
	if response == nil {
		return nil, &APIError{
			Description: fmt.Sprintf("%s returned empty response", method),
			Transient:   true,
		}
	}

	var parsed apiResponse
	if err := json.Unmarshal(response.Body(), &parsed); err != nil {
		return nil, &APIError{
			StatusCode:  response.StatusCode(),
			Description: fmt.Sprintf("%s returned unparseable body", method),
			Transient:   isTransientHTTPStatus(response.StatusCode()),
			Cause:       err,
		}
	}

	if !parsed.OK {
		statusCode := parsed.ErrorCode
		if statusCode == 0 {
			statusCode = response.StatusCode()
		}
		return nil, &APIError{
			StatusCode:  statusCode,
			Description: apiErrorDescription(method, statusCode, parsed.Description),
			Transient:   isTransientHTTPStatus(statusCode),
		}
	}
	if response.StatusCode() != http.StatusOK {
		return nil, &APIError{
			StatusCode:  response.StatusCode(),
			Description: fmt.Sprintf("%s returned status %d", method, response.StatusCode()),
			Transient:   isTransientHTTPStatus(response.StatusCode()),
		}
	}

	return parsed.Result, nil
}

func apiErrorDescription(method string, statusCode int, description string) string {
	base := fmt.Sprintf("%s rejected with code %d", method, statusCode)
	if strings.TrimSpace(description) == "" {
		return base
	}
	return fmt.Sprintf("%s: %s", base, description)
}
