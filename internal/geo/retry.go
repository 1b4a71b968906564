package geo

import (
	"context"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
)

// Retrier wraps a Lookuper with bounded retry and exponential backoff.
// Only transport-level failures (unreachable) are retried; classified 4xx
// results are deterministic and propagate immediately. After the attempt
// budget is spent, the last classified error propagates unchanged.
type Retrier struct {
	next        Lookuper
	maxAttempts int
	baseDelay   time.Duration
	clock       clockwork.Clock
	logger      *slog.Logger
}

// NewRetrier creates a retrying decorator around next. maxAttempts counts the
// initial call, so 3 means one call plus two retries.
func NewRetrier(next Lookuper, maxAttempts int, baseDelay time.Duration, clock clockwork.Clock, logger *slog.Logger) *Retrier {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Retrier{
		next:        next,
		maxAttempts: maxAttempts,
		baseDelay:   baseDelay,
		clock:       clock,
		logger:      logger,
	}
}

// Lookup calls through to the wrapped Lookuper, retrying transient failures.
func (r *Retrier) Lookup(ctx context.Context, zip string) (Result, error) {
	var lastErr error

	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		result, err := r.next.Lookup(ctx, zip)
		if err == nil {
			return result, nil
		}
		if CodeOf(err) != CodeUnreachable {
			return Result{}, err
		}

		lastErr = err
		if attempt == r.maxAttempts {
			break
		}

		// delay_n = base * 2^(n-1), no jitter.
		delay := r.baseDelay * time.Duration(1<<(attempt-1))
		r.logger.Warn("lookup failed, retrying",
			"zip", zip,
			"attempt", attempt,
			"delay", delay,
			"error", err,
		)
		r.clock.Sleep(delay)
	}

	return Result{}, lastErr
}
