// Package telemetry collects RED metrics (rate, errors, duration) for every
// inbound request, globally and per endpoint, and exposes them as an
// on-demand snapshot with exact percentiles over the retained history.
package telemetry

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Store is the process-wide metrics aggregate. It is constructor-injected
// wherever it is needed; every request mutates the same instance and there is
// deliberately no per-request isolation: metrics are instance-scoped.
type Store struct {
	mu sync.Mutex

	clock      clockwork.Clock
	startedAt  time.Time
	maxSamples int

	requests    int64
	errors      int64
	latencies   []float64 // milliseconds
	statusCodes map[int]int64
	endpoints   map[string]*endpointStats
}

type endpointStats struct {
	count     int64
	errors    int64
	latencies []float64
}

// NewStore creates an empty metrics store. maxSamples bounds each latency
// history; when the bound is reached the oldest sample is dropped.
func NewStore(maxSamples int, clock clockwork.Clock) *Store {
	if maxSamples <= 0 {
		maxSamples = 10000
	}
	return &Store{
		clock:       clock,
		startedAt:   clock.Now(),
		maxSamples:  maxSamples,
		statusCodes: make(map[int]int64),
		endpoints:   make(map[string]*endpointStats),
	}
}

// Record registers one completed request.
func (s *Store) Record(method, path string, status int, elapsed time.Duration) {
	ms := float64(elapsed) / float64(time.Millisecond)
	key := method + " " + path

	s.mu.Lock()
	defer s.mu.Unlock()

	s.requests++
	s.statusCodes[status]++
	if status >= 400 {
		s.errors++
	}
	s.latencies = appendBounded(s.latencies, ms, s.maxSamples)

	ep, ok := s.endpoints[key]
	if !ok {
		ep = &endpointStats{}
		s.endpoints[key] = ep
	}
	ep.count++
	if status >= 400 {
		ep.errors++
	}
	ep.latencies = appendBounded(ep.latencies, ms, s.maxSamples)
}

// Reset clears all counters and latency histories under a single lock, so no
// reader observes a partially-reset store.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.requests = 0
	s.errors = 0
	s.latencies = nil
	s.statusCodes = make(map[int]int64)
	s.endpoints = make(map[string]*endpointStats)
}

// Snapshot computes the aggregated statistics on demand. Nothing is cached.
type Snapshot struct {
	Rate        RateStats                `json:"rate"`
	Errors      ErrorStats               `json:"errors"`
	Duration    DurationStats            `json:"duration"`
	StatusCodes map[string]int64         `json:"statusCodes"`
	Endpoints   map[string]EndpointStats `json:"endpoints"`
	Timestamp   time.Time                `json:"timestamp"`
	Uptime      int64                    `json:"uptime"`
}

type RateStats struct {
	Total int64 `json:"total"`
}

type ErrorStats struct {
	Total     int64  `json:"total"`
	ErrorRate string `json:"errorRate"`
}

type DurationStats struct {
	Avg string `json:"avg"`
	P50 string `json:"p50"`
	P95 string `json:"p95"`
	P99 string `json:"p99"`
}

type EndpointStats struct {
	Count       int64  `json:"count"`
	Errors      int64  `json:"errors"`
	ErrorRate   string `json:"errorRate"`
	AvgDuration string `json:"avgDuration"`
	P95Duration string `json:"p95Duration"`
}

// Snapshot returns the current statistics. Durations are rendered as "Nms"
// strings and rates as "N%" strings.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		Rate: RateStats{Total: s.requests},
		Errors: ErrorStats{
			Total:     s.errors,
			ErrorRate: formatPct(rate(s.errors, s.requests)),
		},
		Duration: DurationStats{
			Avg: formatMs(average(s.latencies)),
			P50: formatMs(percentile(s.latencies, 50)),
			P95: formatMs(percentile(s.latencies, 95)),
			P99: formatMs(percentile(s.latencies, 99)),
		},
		StatusCodes: make(map[string]int64, len(s.statusCodes)),
		Endpoints:   make(map[string]EndpointStats, len(s.endpoints)),
		Timestamp:   s.clock.Now().UTC(),
		Uptime:      int64(s.clock.Since(s.startedAt).Seconds()),
	}

	for code, count := range s.statusCodes {
		snap.StatusCodes[strconv.Itoa(code)] = count
	}
	for key, ep := range s.endpoints {
		snap.Endpoints[key] = EndpointStats{
			Count:       ep.count,
			Errors:      ep.errors,
			ErrorRate:   formatPct(rate(ep.errors, ep.count)),
			AvgDuration: formatMs(average(ep.latencies)),
			P95Duration: formatMs(percentile(ep.latencies, 95)),
		}
	}
	return snap
}

func appendBounded(samples []float64, v float64, max int) []float64 {
	samples = append(samples, v)
	if len(samples) > max {
		samples = samples[len(samples)-max:]
	}
	return samples
}

// percentile returns the exact p-th percentile of samples:
// sort ascending, index = ceil(p/100 * n) - 1, clamped to [0, n-1].
// An empty sample set yields 0.
func percentile(samples []float64, p float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	sorted := make([]float64, len(samples))
	copy(sorted, samples)
	sort.Float64s(sorted)

	idx := int(math.Ceil(p/100*float64(len(sorted)))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx > len(sorted)-1 {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

func average(samples []float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, v := range samples {
		sum += v
	}
	return sum / float64(len(samples))
}

// rate returns part/total as a percentage, 0 when total is 0.
func rate(part, total int64) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}

func formatMs(v float64) string {
	return fmt.Sprintf("%.2fms", v)
}

func formatPct(v float64) string {
	return fmt.Sprintf("%.2f%%", v)
}
