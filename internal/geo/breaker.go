package geo

import (
	"context"
	"errors"

	"github.com/okutsen/tenant-service/internal/breaker"
)

// BreakerClient guards a Lookuper with a circuit breaker. While the circuit
// is open, lookups fail fast with a service-degraded error instead of
// attempting the network.
//
// Input validation happens before the breaker: a malformed ZIP is the
// caller's fault, not a dependency failure, and must not count toward the
// failure window. The breaker otherwise observes only the wrapped Lookuper's
// final, fully-retried outcome.
type BreakerClient struct {
	next    Lookuper
	breaker *breaker.Breaker
}

// NewBreakerClient wraps next with cb.
func NewBreakerClient(next Lookuper, cb *breaker.Breaker) *BreakerClient {
	return &BreakerClient{next: next, breaker: cb}
}

// Lookup resolves zip through the circuit breaker.
func (c *BreakerClient) Lookup(ctx context.Context, zip string) (Result, error) {
	if err := ValidateZip(zip); err != nil {
		return Result{}, err
	}

	var result Result
	err := c.breaker.Execute(func() error {
		var lookupErr error
		result, lookupErr = c.next.Lookup(ctx, zip)
		return lookupErr
	})
	if errors.Is(err, breaker.ErrOpenState) {
		// Fallback: fast, predictable failure carrying the original target.
		return Result{}, newError(CodeServiceDegraded,
			"location service temporarily degraded, cannot verify ZIP code %s", zip)
	}
	if err != nil {
		return Result{}, err
	}
	return result, nil
}
