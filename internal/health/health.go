// Package health fuses circuit breaker state and datastore connectivity into
// a single service status.
package health

import (
	"context"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/okutsen/tenant-service/internal/breaker"
)

// Status is the overall service health level.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// Pinger is the connectivity probe the datastore collaborator exposes.
type Pinger interface {
	IsConnected(ctx context.Context) bool
}

// StateReader reports the current circuit breaker state.
type StateReader interface {
	State() breaker.State
}

// Snapshot is the result of one health check. It is derived fresh on every
// call and never cached.
type Snapshot struct {
	Status        Status
	BackendUp     bool
	DatabaseUp    bool
	WeatherAPIUp  bool
	UptimeSeconds int64
	Err           error
}

// Aggregator performs health checks against the service's dependencies.
type Aggregator struct {
	db        Pinger
	breaker   StateReader
	clock     clockwork.Clock
	startedAt time.Time
}

// NewAggregator creates a health aggregator. Uptime is measured from the
// moment of construction.
func NewAggregator(db Pinger, cb StateReader, clock clockwork.Clock) *Aggregator {
	return &Aggregator{
		db:        db,
		breaker:   cb,
		clock:     clock,
		startedAt: clock.Now(),
	}
}

// Check produces a health snapshot. It never returns an error: a probe that
// blows up is captured as an unhealthy status with the cause attached, so the
// endpoint can surface it as an availability signal instead of a crash.
func (a *Aggregator) Check(ctx context.Context) Snapshot {
	snap := Snapshot{
		// The process is running and answering, so the backend itself is up.
		BackendUp:     true,
		UptimeSeconds: int64(a.clock.Since(a.startedAt).Seconds()),
	}

	if err := a.probe(ctx, &snap); err != nil {
		snap.Status = StatusUnhealthy
		snap.Err = err
		return snap
	}

	snap.WeatherAPIUp = a.breaker.State() != breaker.StateOpen

	switch {
	case snap.DatabaseUp && snap.WeatherAPIUp:
		snap.Status = StatusHealthy
	default:
		snap.Status = StatusDegraded
	}
	return snap
}

// probe runs the datastore connectivity check, converting a panicking probe
// into an error.
func (a *Aggregator) probe(ctx context.Context, snap *Snapshot) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("datastore probe failed: %v", r)
		}
	}()
	snap.DatabaseUp = a.db.IsConnected(ctx)
	return nil
}
