package transport

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// RequestID ensures every request carries an X-Request-ID for log
// correlation. A caller-supplied id is preserved; a generated one is internal
// only and is never echoed as a delivery correlation id.
func RequestID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := strings.TrimSpace(c.Get(fiber.HeaderXRequestID))
		if id == "" {
			id = uuid.NewString()
		}
		c.Locals("requestid", id)
		c.Set(fiber.HeaderXRequestID, id)
		return c.Next()
	}
}

// RequestIDFromCtx returns the id set by RequestID, or "".
func RequestIDFromCtx(c *fiber.Ctx) string {
	if value, ok := c.Locals("requestid").(string); ok {
		return value
	}
	return ""
}
