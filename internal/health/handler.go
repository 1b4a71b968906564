package health

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jonboulle/clockwork"
)

// RegisterRoutes wires the health endpoint into the Fiber app. Healthy and
// degraded both answer 200 (the process can serve traffic); only an aggregator
// failure answers 503 so load balancers rotate the instance out.
func RegisterRoutes(app *fiber.App, agg *Aggregator, clock clockwork.Clock) {
	app.Get("/health", func(c *fiber.Ctx) error {
		snap := agg.Check(c.Context())

		body := fiber.Map{
			"status":    snap.Status,
			"timestamp": clock.Now().UTC().Format(time.RFC3339),
			"uptime":    snap.UptimeSeconds,
			"checks": fiber.Map{
				"backend":    snap.BackendUp,
				"database":   snap.DatabaseUp,
				"weatherAPI": snap.WeatherAPIUp,
			},
		}

		if snap.Status == StatusUnhealthy {
			body["error"] = snap.Err.Error()
			return c.Status(fiber.StatusServiceUnavailable).JSON(body)
		}
		return c.JSON(body)
	})
}
