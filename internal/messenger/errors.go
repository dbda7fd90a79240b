package messenger

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// APIError classifies Telegram Bot API call failures as transient/permanent.
// Transient failures (rate limit, Telegram-side 5xx, timeouts) may be retried
// by the caller under an idempotency key; permanent ones (unknown or blocked
// chat, malformed request) must not.
type APIError struct {
	StatusCode  int
	Description string
	Transient   bool
	Cause       error
}

func (e *APIError) Error() string {
	if e == nil {
		return "<nil>"
	}

	parts := make([]string, 0, 4)
	parts = append(parts, "telegram api error")

	if e.StatusCode > 0 {
		parts = append(parts, fmt.Sprintf("status=%d", e.StatusCode))
	}
	if desc := strings.TrimSpace(e.Description); desc != "" {
		parts = append(parts, desc)
	}
	if e.Cause != nil {
		parts = append(parts, e.Cause.Error())
	}

	return strings.Join(parts, ": ")
}

func (e *APIError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// IsTransient reports whether a send failure could succeed on a caller-side
// retry.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, context.Canceled) {
		return false
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Transient
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}

	return false
}

func isTransientHTTPStatus(statusCode int) bool {
	return statusCode == 429 || (statusCode >= 500 && statusCode <= 599)
}
