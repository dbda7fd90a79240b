package payload

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/protonrent/telegram-relay/internal/domain"
)

// fieldPlaceholder substitutes missing order fields on the webhook-event
// route, where partial payloads are delivered best-effort instead of being
// rejected.
const fieldPlaceholder = "not specified"

// chatID accepts a JSON string or integer and coerces it to an opaque string.
type chatID string

func (c *chatID) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" {
		return nil
	}
	if strings.HasPrefix(trimmed, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*c = chatID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("telegram_id must be a string or integer")
	}
	if _, err := n.Int64(); err != nil {
		return fmt.Errorf("telegram_id must be a string or integer")
	}
	*c = chatID(n.String())
	return nil
}

type orderData struct {
	OrderID     *string `json:"order_id"`
	VehicleType *string `json:"vehicle_type"`
	Location    *string `json:"location"`
	DateTime    *string `json:"date_time"`
	Price       *string `json:"price"`
	OrderURL    string  `json:"order_url"`
}

type structuredRequest struct {
	TelegramID chatID     `json:"telegram_id"`
	OrderData  *orderData `json:"order_data"`
}

type legacyRequest struct {
	TelegramID chatID `json:"telegram_id"`
	Text       string `json:"text"`
	URL        string `json:"url"`
}

type webhookEnvelope struct {
	EventData      *webhookEventData `json:"event_data"`
	CorrelationID  string            `json:"correlation_id"`
	IdempotencyKey string            `json:"idempotency_key"`
}

type webhookEventData struct {
	TelegramID chatID     `json:"telegram_id"`
	OrderData  *orderData `json:"order_data"`
}

// Normalizer parses the accepted request shapes into the canonical
// domain.DeliveryRequest. Dispatch is keyed on route, never on sniffing the
// body shape.
type Normalizer struct {
	orderBaseURL string
}

func NewNormalizer(orderBaseURL string) (*Normalizer, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(orderBaseURL), "/")
	if trimmed == "" {
		return nil, fmt.Errorf("order base URL is required")
	}
	return &Normalizer{orderBaseURL: trimmed}, nil
}

// Structured parses the current backend payload. All five order fields are
// required; a missing field fails naming it.
func (n *Normalizer) Structured(body []byte) (*domain.DeliveryRequest, error) {
	var req structuredRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, fmt.Errorf("%w: invalid request body", domain.ErrValidation)
	}
	if req.TelegramID == "" {
		return nil, fmt.Errorf("%w: telegram_id is required", domain.ErrValidation)
	}
	if req.OrderData == nil {
		return nil, fmt.Errorf("%w: order_data is required", domain.ErrValidation)
	}

	order, err := requireOrderFields(req.OrderData)
	if err != nil {
		return nil, err
	}

	return &domain.DeliveryRequest{
		ChatID:    string(req.TelegramID),
		Order:     order,
		ActionURL: n.actionURL(req.OrderData.OrderURL, order.OrderID),
	}, nil
}

// Legacy parses the backward-compatible payload: free text plus an optional
// button URL.
func (n *Normalizer) Legacy(body []byte) (*domain.DeliveryRequest, error) {
	var req legacyRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, fmt.Errorf("%w: invalid request body", domain.ErrValidation)
	}
	if req.TelegramID == "" {
		return nil, fmt.Errorf("%w: telegram_id is required", domain.ErrValidation)
	}
	if strings.TrimSpace(req.Text) == "" {
		return nil, fmt.Errorf("%w: text is required", domain.ErrValidation)
	}

	return &domain.DeliveryRequest{
		ChatID:    string(req.TelegramID),
		FreeText:  req.Text,
		ActionURL: strings.TrimSpace(req.URL),
	}, nil
}

// WebhookEvent parses the machine-to-machine event envelope. Missing nested
// order fields are defaulted to a placeholder instead of rejected; the
// correlation and idempotency keys pass through untouched and are never
// synthesized when absent.
func (n *Normalizer) WebhookEvent(body []byte) (*domain.DeliveryRequest, error) {
	var env webhookEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: invalid request body", domain.ErrValidation)
	}
	if env.EventData == nil || env.EventData.TelegramID == "" || env.EventData.OrderData == nil {
		return nil, fmt.Errorf("%w: Invalid event structure", domain.ErrValidation)
	}

	data := env.EventData.OrderData
	order := &domain.OrderInfo{
		OrderID:     valueOrPlaceholder(data.OrderID),
		VehicleType: valueOrPlaceholder(data.VehicleType),
		Location:    valueOrPlaceholder(data.Location),
		DateTime:    valueOrPlaceholder(data.DateTime),
		Price:       valueOrPlaceholder(data.Price),
	}

	// The default URL is only constructed from a real order id. A partial
	// event without one is still delivered, just without an action link.
	var rawOrderID string
	if data.OrderID != nil {
		rawOrderID = strings.TrimSpace(*data.OrderID)
	}

	return &domain.DeliveryRequest{
		ChatID:         string(env.EventData.TelegramID),
		Order:          order,
		ActionURL:      n.actionURL(data.OrderURL, rawOrderID),
		CorrelationID:  env.CorrelationID,
		IdempotencyKey: env.IdempotencyKey,
	}, nil
}

func (n *Normalizer) actionURL(explicit string, orderID string) string {
	if trimmed := strings.TrimSpace(explicit); trimmed != "" {
		return trimmed
	}
	if orderID == "" {
		return ""
	}
	return fmt.Sprintf("%s/orders/%s", n.orderBaseURL, orderID)
}

func requireOrderFields(data *orderData) (*domain.OrderInfo, error) {
	fields := []struct {
		name  string
		value *string
	}{
		{name: "order_id", value: data.OrderID},
		{name: "vehicle_type", value: data.VehicleType},
		{name: "location", value: data.Location},
		{name: "date_time", value: data.DateTime},
		{name: "price", value: data.Price},
	}

	for _, field := range fields {
		if field.value == nil || strings.TrimSpace(*field.value) == "" {
			return nil, fmt.Errorf("%w: order_data.%s is required", domain.ErrValidation, field.name)
		}
	}

	return &domain.OrderInfo{
		OrderID:     *data.OrderID,
		VehicleType: *data.VehicleType,
		Location:    *data.Location,
		DateTime:    *data.DateTime,
		Price:       *data.Price,
	}, nil
}

func valueOrPlaceholder(value *string) string {
	if value == nil || strings.TrimSpace(*value) == "" {
		return fieldPlaceholder
	}
	return *value
}
