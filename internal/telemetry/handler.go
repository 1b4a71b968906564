package telemetry

import (
	"github.com/gofiber/fiber/v2"
)

// RegisterRoutes wires the metrics endpoints into the Fiber app.
func RegisterRoutes(app *fiber.App, store *Store) {
	app.Get("/metrics", func(c *fiber.Ctx) error {
		return c.JSON(store.Snapshot())
	})

	// Ops/test hook: clears all collected metrics.
	app.Post("/metrics/reset", func(c *fiber.Ctx) error {
		store.Reset()
		return c.SendStatus(fiber.StatusNoContent)
	})
}
