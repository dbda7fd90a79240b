package payload

import (
	"errors"
	"strings"
	"testing"

	"github.com/protonrent/telegram-relay/internal/domain"
)

const testBaseURL = "https://app.example.com"

func newTestNormalizer(t *testing.T) *Normalizer {
	t.Helper()
	n, err := NewNormalizer(testBaseURL)
	if err != nil {
		t.Fatalf("NewNormalizer() error = %v", err)
	}
	return n
}

func TestStructuredHappyPath(t *testing.T) {
	t.Parallel()

	n := newTestNormalizer(t)

	body := `{
		"telegram_id": "123456789",
		"order_data": {
			"order_id": "ORD-42",
			"vehicle_type": "Excavator",
			"location": "Moscow",
			"date_time": "01.09.2026 10:00",
			"price": "50 000"
		}
	}`

	req, err := n.Structured([]byte(body))
	if err != nil {
		t.Fatalf("Structured() error = %v", err)
	}

	if req.ChatID != "123456789" {
		t.Fatalf("ChatID = %q, want 123456789", req.ChatID)
	}
	if req.Order == nil {
		t.Fatal("Order should be populated")
	}
	if req.FreeText != "" {
		t.Fatal("FreeText should be empty for structured requests")
	}
	if req.Order.VehicleType != "Excavator" {
		t.Fatalf("VehicleType = %q, want Excavator", req.Order.VehicleType)
	}
	if want := testBaseURL + "/orders/ORD-42"; req.ActionURL != want {
		t.Fatalf("ActionURL = %q, want %q", req.ActionURL, want)
	}
	if err := req.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
}

func TestStructuredIntegerTelegramID(t *testing.T) {
	t.Parallel()

	n := newTestNormalizer(t)

	body := `{
		"telegram_id": 987654321,
		"order_data": {
			"order_id": "ORD-1",
			"vehicle_type": "Crane",
			"location": "Kazan",
			"date_time": "02.09.2026 09:00",
			"price": "70 000",
			"order_url": "https://app.example.com/custom"
		}
	}`

	req, err := n.Structured([]byte(body))
	if err != nil {
		t.Fatalf("Structured() error = %v", err)
	}
	if req.ChatID != "987654321" {
		t.Fatalf("ChatID = %q, want 987654321", req.ChatID)
	}
	if req.ActionURL != "https://app.example.com/custom" {
		t.Fatalf("ActionURL = %q, want explicit order_url", req.ActionURL)
	}
}

func TestStructuredMissingFieldNamesField(t *testing.T) {
	t.Parallel()

	n := newTestNormalizer(t)

	fields := []string{"order_id", "vehicle_type", "location", "date_time", "price"}
	full := map[string]string{
		"order_id":     "ORD-1",
		"vehicle_type": "Crane",
		"location":     "Kazan",
		"date_time":    "02.09.2026 09:00",
		"price":        "70 000",
	}

	for _, missing := range fields {
		missing := missing
		t.Run(missing, func(t *testing.T) {
			t.Parallel()

			var parts []string
			for name, value := range full {
				if name == missing {
					continue
				}
				parts = append(parts, `"`+name+`":"`+value+`"`)
			}
			body := `{"telegram_id":"1","order_data":{` + strings.Join(parts, ",") + `}}`

			_, err := n.Structured([]byte(body))
			if !errors.Is(err, domain.ErrValidation) {
				t.Fatalf("Structured() error = %v, want ErrValidation", err)
			}
			if !strings.Contains(err.Error(), missing) {
				t.Fatalf("Structured() error %q should name missing field %q", err, missing)
			}
		})
	}
}

func TestStructuredMissingTopLevelFields(t *testing.T) {
	t.Parallel()

	n := newTestNormalizer(t)

	testCases := []struct {
		name string
		body string
	}{
		{name: "missing telegram_id", body: `{"order_data":{"order_id":"1","vehicle_type":"x","location":"y","date_time":"z","price":"p"}}`},
		{name: "missing order_data", body: `{"telegram_id":"1"}`},
		{name: "malformed json", body: `{`},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			if _, err := n.Structured([]byte(tc.body)); !errors.Is(err, domain.ErrValidation) {
				t.Fatalf("Structured() error = %v, want ErrValidation", err)
			}
		})
	}
}

func TestLegacy(t *testing.T) {
	t.Parallel()

	n := newTestNormalizer(t)

	req, err := n.Legacy([]byte(`{"telegram_id": 1, "text": "hi", "url": "https://x"}`))
	if err != nil {
		t.Fatalf("Legacy() error = %v", err)
	}
	if req.ChatID != "1" {
		t.Fatalf("ChatID = %q, want 1", req.ChatID)
	}
	if req.FreeText != "hi" {
		t.Fatalf("FreeText = %q, want hi", req.FreeText)
	}
	if req.ActionURL != "https://x" {
		t.Fatalf("ActionURL = %q, want https://x", req.ActionURL)
	}
	if req.Order != nil {
		t.Fatal("Order should be nil for legacy requests")
	}

	if _, err := n.Legacy([]byte(`{"telegram_id": 1}`)); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("Legacy() without text error = %v, want ErrValidation", err)
	}
	if _, err := n.Legacy([]byte(`{"text": "hi"}`)); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("Legacy() without telegram_id error = %v, want ErrValidation", err)
	}
}

func TestLegacyURLOptional(t *testing.T) {
	t.Parallel()

	n := newTestNormalizer(t)

	req, err := n.Legacy([]byte(`{"telegram_id": "5", "text": "plain"}`))
	if err != nil {
		t.Fatalf("Legacy() error = %v", err)
	}
	if req.ActionURL != "" {
		t.Fatalf("ActionURL = %q, want empty", req.ActionURL)
	}
}

func TestWebhookEventPassthrough(t *testing.T) {
	t.Parallel()

	n := newTestNormalizer(t)

	body := `{
		"event_data": {
			"telegram_id": 77,
			"order_data": {
				"order_id": "ORD-9",
				"vehicle_type": "Loader",
				"location": "Sochi",
				"date_time": "03.09.2026 12:00",
				"price": "30 000"
			}
		},
		"correlation_id": "corr-1",
		"idempotency_key": "k1"
	}`

	req, err := n.WebhookEvent([]byte(body))
	if err != nil {
		t.Fatalf("WebhookEvent() error = %v", err)
	}
	if req.CorrelationID != "corr-1" {
		t.Fatalf("CorrelationID = %q, want corr-1", req.CorrelationID)
	}
	if req.IdempotencyKey != "k1" {
		t.Fatalf("IdempotencyKey = %q, want k1", req.IdempotencyKey)
	}
	if req.ChatID != "77" {
		t.Fatalf("ChatID = %q, want 77", req.ChatID)
	}
}

func TestWebhookEventKeysNeverSynthesized(t *testing.T) {
	t.Parallel()

	n := newTestNormalizer(t)

	body := `{"event_data":{"telegram_id":"8","order_data":{"order_id":"ORD-2"}}}`
	req, err := n.WebhookEvent([]byte(body))
	if err != nil {
		t.Fatalf("WebhookEvent() error = %v", err)
	}
	if req.CorrelationID != "" || req.IdempotencyKey != "" {
		t.Fatalf("correlation/idempotency = %q/%q, want empty passthrough", req.CorrelationID, req.IdempotencyKey)
	}
}

func TestWebhookEventPartialFieldsDefaulted(t *testing.T) {
	t.Parallel()

	n := newTestNormalizer(t)

	body := `{"event_data":{"telegram_id":"8","order_data":{"order_id":"ORD-2","location":"Perm"}}}`
	req, err := n.WebhookEvent([]byte(body))
	if err != nil {
		t.Fatalf("WebhookEvent() error = %v", err)
	}

	if req.Order.OrderID != "ORD-2" {
		t.Fatalf("OrderID = %q, want ORD-2", req.Order.OrderID)
	}
	if req.Order.Location != "Perm" {
		t.Fatalf("Location = %q, want Perm", req.Order.Location)
	}
	for name, got := range map[string]string{
		"vehicle_type": req.Order.VehicleType,
		"date_time":    req.Order.DateTime,
		"price":        req.Order.Price,
	} {
		if got != fieldPlaceholder {
			t.Fatalf("%s = %q, want placeholder %q", name, got, fieldPlaceholder)
		}
	}
}

func TestWebhookEventMissingOrderIDHasNoActionURL(t *testing.T) {
	t.Parallel()

	n := newTestNormalizer(t)

	body := `{"event_data":{"telegram_id":"8","order_data":{"location":"Perm"}}}`
	req, err := n.WebhookEvent([]byte(body))
	if err != nil {
		t.Fatalf("WebhookEvent() error = %v", err)
	}

	if req.Order.OrderID != fieldPlaceholder {
		t.Fatalf("OrderID = %q, want placeholder %q", req.Order.OrderID, fieldPlaceholder)
	}
	if req.ActionURL != "" {
		t.Fatalf("ActionURL = %q, want empty when no order id exists", req.ActionURL)
	}
}

func TestWebhookEventMissingOrderIDKeepsExplicitURL(t *testing.T) {
	t.Parallel()

	n := newTestNormalizer(t)

	body := `{"event_data":{"telegram_id":"8","order_data":{"order_url":"https://x/orders/9"}}}`
	req, err := n.WebhookEvent([]byte(body))
	if err != nil {
		t.Fatalf("WebhookEvent() error = %v", err)
	}
	if req.ActionURL != "https://x/orders/9" {
		t.Fatalf("ActionURL = %q, want explicit order_url", req.ActionURL)
	}
}

func TestChatIDRejectsFractionalNumber(t *testing.T) {
	t.Parallel()

	n := newTestNormalizer(t)

	_, err := n.Legacy([]byte(`{"telegram_id": 1.5, "text": "hi"}`))
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("Legacy() error = %v, want ErrValidation for fractional id", err)
	}

	req, err := n.Legacy([]byte(`{"telegram_id": 15, "text": "hi"}`))
	if err != nil {
		t.Fatalf("Legacy() error = %v", err)
	}
	if req.ChatID != "15" {
		t.Fatalf("ChatID = %q, want 15", req.ChatID)
	}
}

func TestWebhookEventInvalidStructure(t *testing.T) {
	t.Parallel()

	n := newTestNormalizer(t)

	testCases := []struct {
		name string
		body string
	}{
		{name: "missing event_data", body: `{"correlation_id":"c"}`},
		{name: "missing telegram_id", body: `{"event_data":{"order_data":{}}}`},
		{name: "missing order_data", body: `{"event_data":{"telegram_id":"1"}}`},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			_, err := n.WebhookEvent([]byte(tc.body))
			if !errors.Is(err, domain.ErrValidation) {
				t.Fatalf("WebhookEvent() error = %v, want ErrValidation", err)
			}
			if !strings.Contains(err.Error(), "Invalid event structure") {
				t.Fatalf("WebhookEvent() error = %q, want invalid event structure message", err)
			}
		})
	}
}
