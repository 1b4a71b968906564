// Package breaker implements a circuit breaker guarding the outbound
// geolocation dependency: a rolling failure-rate window trips the circuit
// open, open calls are rejected without a network attempt, and a single
// trial call probes recovery after a cooldown.
package breaker

import (
	"errors"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// State is the circuit breaker state.
type State int

const (
	StateClosed   State = iota // normal operation, calls pass through
	StateOpen                  // calls are rejected immediately
	StateHalfOpen              // one trial call is allowed to probe recovery
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrOpenState is returned by Execute when the circuit rejects the call.
var ErrOpenState = errors.New("circuit breaker is open")

// Config controls trip thresholds and recovery timing. Zero fields fall back
// to the defaults.
type Config struct {
	Name string

	// WindowSize is the number of recent call outcomes tracked while closed.
	WindowSize int
	// MinVolume is the minimum number of observed outcomes before the
	// failure percentage is considered meaningful.
	MinVolume int
	// FailureThresholdPct trips the circuit when the failure percentage in
	// the window reaches it.
	FailureThresholdPct int
	// ResetTimeout is how long the circuit stays open before admitting a
	// trial call.
	ResetTimeout time.Duration

	Clock clockwork.Clock
}

const (
	defaultWindowSize   = 10
	defaultMinVolume    = 5
	defaultThresholdPct = 50
	defaultResetTimeout = 30 * time.Second
)

// Breaker is a circuit breaker. It never retries: it observes one outcome per
// Execute call, whatever retry policy ran inside.
type Breaker struct {
	name         string
	windowSize   int
	minVolume    int
	thresholdPct int
	resetTimeout time.Duration
	clock        clockwork.Clock

	mu       sync.Mutex
	state    State
	window   []bool // recent outcomes while closed, true = failure
	openedAt time.Time
	trial    bool // a half-open trial call is in flight
	onChange []func(from, to State)
}

// New creates a circuit breaker in the closed state.
func New(cfg Config) *Breaker {
	if cfg.WindowSize <= 0 {
		cfg.WindowSize = defaultWindowSize
	}
	if cfg.MinVolume <= 0 {
		cfg.MinVolume = defaultMinVolume
	}
	if cfg.FailureThresholdPct <= 0 {
		cfg.FailureThresholdPct = defaultThresholdPct
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = defaultResetTimeout
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	return &Breaker{
		name:         cfg.Name,
		windowSize:   cfg.WindowSize,
		minVolume:    cfg.MinVolume,
		thresholdPct: cfg.FailureThresholdPct,
		resetTimeout: cfg.ResetTimeout,
		clock:        cfg.Clock,
		state:        StateClosed,
	}
}

// OnStateChange registers a callback fired synchronously on every transition.
// Callbacks run outside the breaker's lock.
func (b *Breaker) OnStateChange(fn func(from, to State)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onChange = append(b.onChange, fn)
}

// State returns the current state. An open circuit whose reset timeout has
// elapsed reports (and becomes) half-open.
func (b *Breaker) State() State {
	b.mu.Lock()
	transition := b.maybeHalfOpen()
	state := b.state
	b.mu.Unlock()

	b.fire(transition)
	return state
}

// Execute runs fn under the breaker's admission policy and records its
// outcome. When the circuit is open, fn is not invoked and ErrOpenState is
// returned.
func (b *Breaker) Execute(fn func() error) error {
	trial, err := b.admit()
	if err != nil {
		return err
	}

	// A panicking call still counts as a failure; otherwise a half-open
	// trial would stay latched forever.
	recorded := false
	defer func() {
		if !recorded {
			b.record(trial, true)
		}
	}()

	callErr := fn()
	recorded = true
	b.record(trial, callErr != nil)
	return callErr
}

// admit decides whether a call may proceed, reporting whether it is the
// half-open trial call.
func (b *Breaker) admit() (trial bool, err error) {
	b.mu.Lock()
	transition := b.maybeHalfOpen()

	switch b.state {
	case StateOpen:
		b.mu.Unlock()
		b.fire(transition)
		return false, ErrOpenState
	case StateHalfOpen:
		if b.trial {
			// Only one trial call probes the dependency at a time.
			b.mu.Unlock()
			b.fire(transition)
			return false, ErrOpenState
		}
		b.trial = true
		b.mu.Unlock()
		b.fire(transition)
		return true, nil
	default:
		b.mu.Unlock()
		b.fire(transition)
		return false, nil
	}
}

func (b *Breaker) record(trial, failed bool) {
	b.mu.Lock()
	var transition []State

	if trial {
		b.trial = false
		if b.state == StateHalfOpen {
			if failed {
				transition = b.transitionTo(StateOpen)
			} else {
				transition = b.transitionTo(StateClosed)
			}
		}
		b.mu.Unlock()
		b.fire(transition)
		return
	}

	if b.state == StateClosed {
		b.window = append(b.window, failed)
		if len(b.window) > b.windowSize {
			b.window = b.window[len(b.window)-b.windowSize:]
		}
		if b.shouldTrip() {
			transition = b.transitionTo(StateOpen)
		}
	}
	b.mu.Unlock()
	b.fire(transition)
}

// shouldTrip reports whether the rolling window has enough volume and a
// failure percentage at or above the threshold. Caller holds the lock.
func (b *Breaker) shouldTrip() bool {
	if len(b.window) < b.minVolume {
		return false
	}
	failures := 0
	for _, failed := range b.window {
		if failed {
			failures++
		}
	}
	return failures*100 >= b.thresholdPct*len(b.window)
}

// maybeHalfOpen moves an open circuit to half-open once the reset timeout has
// elapsed. Caller holds the lock; the returned transition is fired after the
// lock is released.
func (b *Breaker) maybeHalfOpen() []State {
	if b.state == StateOpen && b.clock.Since(b.openedAt) >= b.resetTimeout {
		return b.transitionTo(StateHalfOpen)
	}
	return nil
}

// transitionTo switches state and clears per-state bookkeeping. Caller holds
// the lock. Returns {from, to} for deferred callback dispatch.
func (b *Breaker) transitionTo(to State) []State {
	from := b.state
	if from == to {
		return nil
	}
	b.state = to

	switch to {
	case StateOpen:
		b.openedAt = b.clock.Now()
		b.window = nil
	case StateClosed:
		b.window = nil
	case StateHalfOpen:
		b.trial = false
	}
	return []State{from, to}
}

func (b *Breaker) fire(transition []State) {
	if len(transition) != 2 {
		return
	}
	b.mu.Lock()
	callbacks := make([]func(from, to State), len(b.onChange))
	copy(callbacks, b.onChange)
	b.mu.Unlock()

	for _, fn := range callbacks {
		fn(transition[0], transition[1])
	}
}
