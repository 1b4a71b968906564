// Package monitor runs a periodic job that logs one structured summary line
// of service health and request statistics.
package monitor

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/okutsen/tenant-service/internal/health"
	"github.com/okutsen/tenant-service/internal/telemetry"
)

// Monitor periodically checks health and telemetry and logs a summary.
type Monitor struct {
	scheduler *gocron.Scheduler
	interval  time.Duration
	health    *health.Aggregator
	metrics   *telemetry.Store
	logger    *slog.Logger
}

// New creates a Monitor. An interval of 0 disables it.
func New(interval time.Duration, agg *health.Aggregator, metrics *telemetry.Store, logger *slog.Logger) *Monitor {
	return &Monitor{
		scheduler: gocron.NewScheduler(time.UTC),
		interval:  interval,
		health:    agg,
		metrics:   metrics,
		logger:    logger,
	}
}

// Start schedules the summary job and starts the underlying scheduler.
func (m *Monitor) Start() error {
	if m.interval <= 0 {
		m.logger.Info("monitor disabled")
		return nil
	}

	_, err := m.scheduler.Every(m.interval).Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		snap := m.health.Check(ctx)
		stats := m.metrics.Snapshot()

		m.logger.Info("service summary",
			"status", snap.Status,
			"database_up", snap.DatabaseUp,
			"weather_api_up", snap.WeatherAPIUp,
			"requests", stats.Rate.Total,
			"error_rate", stats.Errors.ErrorRate,
			"p95", stats.Duration.P95,
			"uptime_seconds", snap.UptimeSeconds,
		)
	})
	if err != nil {
		return err
	}

	m.scheduler.StartAsync()
	return nil
}

// Stop stops the scheduler and cancels any future jobs.
func (m *Monitor) Stop() {
	if m.scheduler != nil {
		m.scheduler.Stop()
	}
}
