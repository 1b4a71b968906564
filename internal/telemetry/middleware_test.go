package telemetry

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApp(store *Store, clock clockwork.Clock, logger *slog.Logger) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{"error": true, "message": err.Error()})
		},
	})
	app.Use(Middleware(store, clock, time.Second, logger))
	return app
}

func TestMiddlewareRecordsCompletedRequests(t *testing.T) {
	store := NewStore(100, clockwork.NewFakeClock())
	app := newTestApp(store, clockwork.NewFakeClock(), slog.New(slog.NewTextHandler(io.Discard, nil)))

	app.Get("/api/v1/tenants/:id", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"id": c.Params("id")})
	})
	app.Get("/boom", func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusBadGateway, "upstream broke")
	})

	for _, path := range []string{"/api/v1/tenants/a", "/api/v1/tenants/b"} {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, path, nil))
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/boom", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusBadGateway, resp.StatusCode)

	snap := store.Snapshot()
	assert.Equal(t, int64(3), snap.Rate.Total)
	assert.Equal(t, int64(1), snap.Errors.Total)
	assert.Equal(t, map[string]int64{"200": 2, "502": 1}, snap.StatusCodes)

	// Requests aggregate under the route pattern, not the raw path.
	ep, ok := snap.Endpoints["GET /api/v1/tenants/:id"]
	assert.True(t, ok)
	assert.Equal(t, int64(2), ep.Count)
}

func TestMiddlewareWarnsOnSlowRequests(t *testing.T) {
	fc := clockwork.NewFakeClock()
	store := NewStore(100, fc)
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	app := newTestApp(store, fc, logger)
	app.Get("/slow", func(c *fiber.Ctx) error {
		fc.Advance(2 * time.Second)
		return c.SendString("ok")
	})
	app.Get("/fast", func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})

	_, err := app.Test(httptest.NewRequest(http.MethodGet, "/fast", nil))
	require.NoError(t, err)
	assert.NotContains(t, buf.String(), "slow request")

	_, err = app.Test(httptest.NewRequest(http.MethodGet, "/slow", nil))
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "slow request")

	// The slow call is an observability signal, not an error.
	snap := store.Snapshot()
	assert.Equal(t, int64(0), snap.Errors.Total)
	assert.Equal(t, "2000.00ms", snap.Duration.P99)
}

func TestMetricsEndpoint(t *testing.T) {
	store := NewStore(100, clockwork.NewFakeClock())
	app := newTestApp(store, clockwork.NewFakeClock(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	RegisterRoutes(app, store)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodPost, "/metrics/reset", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	// The reset ran inside the handler; the only record left is the reset
	// request itself, finalized by the middleware afterwards.
	snap := store.Snapshot()
	assert.Equal(t, int64(1), snap.Rate.Total)
	assert.Contains(t, snap.Endpoints, "POST /metrics/reset")
}
