package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jonboulle/clockwork"

	"github.com/okutsen/tenant-service/internal/breaker"
	"github.com/okutsen/tenant-service/internal/config"
	"github.com/okutsen/tenant-service/internal/geo"
	"github.com/okutsen/tenant-service/internal/health"
	"github.com/okutsen/tenant-service/internal/monitor"
	"github.com/okutsen/tenant-service/internal/telemetry"
	"github.com/okutsen/tenant-service/internal/tenant"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	clock := clockwork.NewRealClock()

	// Lookup chain: client -> retrier -> circuit breaker.
	client := geo.NewClient(cfg.GeoAPIBaseURL, cfg.GeoAPIKey, cfg.LookupTimeout, logger)
	retrier := geo.NewRetrier(client, cfg.RetryMaxAttempts, cfg.RetryBaseDelay, clock, logger)

	cb := breaker.New(breaker.Config{
		Name:                "geo-lookup",
		WindowSize:          cfg.BreakerWindowSize,
		MinVolume:           cfg.BreakerMinVolume,
		FailureThresholdPct: cfg.BreakerErrorThresholdPct,
		ResetTimeout:        cfg.BreakerResetTimeout,
		Clock:               clock,
	})
	cb.OnStateChange(func(from, to breaker.State) {
		logger.Warn("circuit breaker state change", "name", "geo-lookup", "from", from.String(), "to", to.String())
	})
	lookup := geo.NewBreakerClient(retrier, cb)

	metrics := telemetry.NewStore(cfg.MetricsMaxSamples, clock)
	tenants := tenant.NewMemoryStore()
	aggregator := health.NewAggregator(tenants, cb, clock)

	app := fiber.New(fiber.Config{
		AppName:               "tenant-service",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			// Centralized error response
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	// Global middleware. Telemetry wraps every route, including health and
	// metrics themselves.
	app.Use(recover.New())
	app.Use(telemetry.Middleware(metrics, clock, cfg.SlowRequestThreshold, logger))

	health.RegisterRoutes(app, aggregator, clock)
	telemetry.RegisterRoutes(app, metrics)
	tenant.RegisterRoutes(app, tenants, lookup, clock, logger)

	// Periodic health/metrics summary.
	mon := monitor.New(cfg.MonitorInterval, aggregator, metrics, logger)
	if err := mon.Start(); err != nil {
		logger.Error("failed to start monitor", "error", err)
		os.Exit(1)
	}
	defer mon.Stop()

	go func() {
		logger.Info("listening", "port", cfg.Port)
		if err := app.Listen(":" + cfg.Port); err != nil {
			logger.Error("server stopped", "error", err)
		}
	}()

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Error("error during shutdown", "error", err)
	}
}
