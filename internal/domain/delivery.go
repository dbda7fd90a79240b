package domain

import (
	"fmt"
	"strings"
)

// OrderInfo carries the structured order fields rendered into a notification.
type OrderInfo struct {
	OrderID     string
	VehicleType string
	Location    string
	DateTime    string
	Price       string
}

// DeliveryRequest is the canonical, post-normalization delivery unit. Exactly
// one of Order or FreeText is populated: Order for the structured and
// webhook-event routes, FreeText for the legacy route.
type DeliveryRequest struct {
	ChatID         string
	Order          *OrderInfo
	FreeText       string
	ActionURL      string
	CorrelationID  string
	IdempotencyKey string
}

func (r *DeliveryRequest) Validate() error {
	if strings.TrimSpace(r.ChatID) == "" {
		return fmt.Errorf("%w: telegram_id is required", ErrValidation)
	}

	hasOrder := r.Order != nil
	hasText := strings.TrimSpace(r.FreeText) != ""
	if hasOrder == hasText {
		return fmt.Errorf("%w: exactly one of order data or text must be set", ErrValidation)
	}
	return nil
}

// DeliveryResult is returned to the caller and logged; it is never persisted.
type DeliveryResult struct {
	Success        bool
	ChatID         string
	OrderID        string
	CorrelationID  string
	IdempotencyKey string
	FailureReason  string
}

// Subscriber is an opaque chat identifier eligible for notifications.
// Membership in the subscriber store implies eligibility; there are no other
// attributes.
type Subscriber struct {
	ChatID string `gorm:"type:text;primaryKey;column:chat_id"`
}

func (Subscriber) TableName() string {
	return "subscribers"
}
