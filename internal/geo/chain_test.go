package geo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okutsen/tenant-service/internal/breaker"
)

// TestLookupChain exercises the full stack the service wires up:
// client -> retrier -> circuit breaker, against a flaky provider.
func TestLookupChain(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// First two attempts drop the connection, then the provider recovers.
		if hits.Add(1) <= 2 {
			hj, ok := w.(http.Hijacker)
			require.True(t, ok)
			conn, _, err := hj.Hijack()
			require.NoError(t, err)
			_ = conn.Close()
			return
		}
		_, _ = w.Write([]byte(`{"coord":{"lat":40.7128,"lon":-74.0060},"timezone":-18000,"name":"New York"}`))
	}))
	defer srv.Close()

	clock := clockwork.NewRealClock()
	client := NewClient(srv.URL, "test-key", time.Second, testLogger())
	retrier := NewRetrier(client, 3, time.Millisecond, clock, testLogger())
	cb := breaker.New(breaker.Config{Name: "geo-lookup", Clock: clock})
	lookup := NewBreakerClient(retrier, cb)

	result, err := lookup.Lookup(context.Background(), "10001")
	require.NoError(t, err)
	assert.Equal(t, Result{
		Latitude:         40.7128,
		Longitude:        -74.0060,
		UTCOffsetSeconds: -18000,
		Name:             "New York",
	}, result)
	assert.Equal(t, int64(3), hits.Load())

	// The retries were absorbed before the breaker saw an outcome: a single
	// success was recorded and the circuit stayed closed.
	assert.Equal(t, breaker.StateClosed, cb.State())
}

func TestLookupChainNotFound(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	clock := clockwork.NewRealClock()
	client := NewClient(srv.URL, "test-key", time.Second, testLogger())
	retrier := NewRetrier(client, 3, time.Millisecond, clock, testLogger())
	lookup := NewBreakerClient(retrier, breaker.New(breaker.Config{Name: "geo-lookup", Clock: clock}))

	_, err := lookup.Lookup(context.Background(), "00000")
	require.Error(t, err)
	assert.Equal(t, CodeNotFound, CodeOf(err))
	assert.Contains(t, err.Error(), "00000")
	assert.Equal(t, int64(1), hits.Load(), "deterministic failures are not retried")
}
