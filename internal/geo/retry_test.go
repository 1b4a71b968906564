package geo

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedLookup fails with the scripted errors in order, then succeeds with
// the given result for any further calls.
type scriptedLookup struct {
	calls  int
	script []error
	result Result
}

func (s *scriptedLookup) Lookup(_ context.Context, _ string) (Result, error) {
	s.calls++
	if s.calls <= len(s.script) {
		if err := s.script[s.calls-1]; err != nil {
			return Result{}, err
		}
	}
	return s.result, nil
}

type lookupOutcome struct {
	result Result
	err    error
}

func runLookup(r *Retrier, zip string) chan lookupOutcome {
	ch := make(chan lookupOutcome, 1)
	go func() {
		result, err := r.Lookup(context.Background(), zip)
		ch <- lookupOutcome{result, err}
	}()
	return ch
}

func TestRetrierSucceedsAfterTransientFailures(t *testing.T) {
	unreachable := newError(CodeUnreachable, "location service unreachable")
	mock := &scriptedLookup{
		script: []error{unreachable, unreachable},
		result: Result{Latitude: 40.7128, Longitude: -74.0060, UTCOffsetSeconds: -18000, Name: "New York"},
	}

	fc := clockwork.NewFakeClock()
	r := NewRetrier(mock, 3, 500*time.Millisecond, fc, testLogger())

	ch := runLookup(r, "10001")

	// First retry waits base, second waits base*2.
	fc.BlockUntil(1)
	fc.Advance(500 * time.Millisecond)
	fc.BlockUntil(1)
	fc.Advance(time.Second)

	out := <-ch
	require.NoError(t, out.err)
	assert.Equal(t, mock.result, out.result)
	assert.Equal(t, 3, mock.calls)
}

func TestRetrierExhaustsBudget(t *testing.T) {
	unreachable := newError(CodeUnreachable, "location service unreachable")
	mock := &scriptedLookup{
		script: []error{unreachable, unreachable, unreachable, unreachable},
	}

	fc := clockwork.NewFakeClock()
	r := NewRetrier(mock, 3, 500*time.Millisecond, fc, testLogger())

	ch := runLookup(r, "10001")
	fc.BlockUntil(1)
	fc.Advance(500 * time.Millisecond)
	fc.BlockUntil(1)
	fc.Advance(time.Second)

	out := <-ch
	require.Error(t, out.err)
	// The last classified error propagates unchanged.
	assert.ErrorIs(t, out.err, unreachable)
	assert.Equal(t, 3, mock.calls)
}

func TestRetrierDoesNotRetryDeterministicFailures(t *testing.T) {
	for _, code := range []Code{CodeInvalidInput, CodeNotFound, CodeUnauthorized, CodeRateLimited, CodeUnknown} {
		mock := &scriptedLookup{script: []error{newError(code, "nope")}}
		r := NewRetrier(mock, 3, 500*time.Millisecond, clockwork.NewFakeClock(), testLogger())

		_, err := r.Lookup(context.Background(), "10001")
		require.Error(t, err, "code %s", code)
		assert.Equal(t, code, CodeOf(err))
		assert.Equal(t, 1, mock.calls, "code %s must not be retried", code)
	}
}

func TestRetrierPassesThroughImmediateSuccess(t *testing.T) {
	mock := &scriptedLookup{result: Result{Name: "Queens"}}
	r := NewRetrier(mock, 3, 500*time.Millisecond, clockwork.NewFakeClock(), testLogger())

	result, err := r.Lookup(context.Background(), "11373")
	require.NoError(t, err)
	assert.Equal(t, "Queens", result.Name)
	assert.Equal(t, 1, mock.calls)
}
