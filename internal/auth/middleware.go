package auth

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type fiberHeaders struct {
	c *fiber.Ctx
}

func (h fiberHeaders) Get(key string) string {
	return h.c.Get(key)
}

// Middleware runs scheme against the request before the route handler.
// Rejections are logged without the presented credential and answered with
// 401 so the body is never parsed for unauthenticated callers.
func Middleware(scheme Scheme, logger *zap.Logger) fiber.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(c *fiber.Ctx) error {
		if insecure, ok := scheme.(*SharedSecretHeader); ok && insecure.Insecure() {
			logger.Warn("route accepts unauthenticated requests: no shared secret configured",
				zap.String("path", c.Path()),
			)
		}

		if err := scheme.Verify(fiberHeaders{c: c}, c.Body()); err != nil {
			logger.Warn("authentication rejected",
				zap.String("path", c.Path()),
				zap.String("ip", c.IP()),
			)
			return fiber.NewError(fiber.StatusUnauthorized, err.Error())
		}
		return c.Next()
	}
}
