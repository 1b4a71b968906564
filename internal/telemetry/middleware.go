package telemetry

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jonboulle/clockwork"
)

// Middleware returns a Fiber handler that records every completed request in
// the store. Recording happens after the downstream handler returns and
// before the response is flushed, so a snapshot taken after a response was
// received always reflects that request.
func Middleware(store *Store, clock clockwork.Clock, slowThreshold time.Duration, logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := clock.Now()

		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			// The centralized error handler has not run yet; mirror its
			// status mapping so the recorded code matches the response.
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}

		elapsed := clock.Since(start)
		store.Record(c.Method(), routePath(c), status, elapsed)

		if elapsed > slowThreshold {
			logger.Warn("slow request",
				"method", c.Method(),
				"path", routePath(c),
				"status", status,
				"duration", elapsed,
			)
		}
		return err
	}
}

// routePath prefers the registered route pattern (e.g. /api/v1/tenants/:id)
// so per-endpoint aggregates do not fragment across path parameters.
func routePath(c *fiber.Ctx) string {
	if r := c.Route(); r != nil && r.Path != "/" {
		return r.Path
	}
	return c.Path()
}
