package metrics

import (
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// Collector records per-service call statistics in a thread-safe manner.
type Collector struct {
	mu       sync.Mutex
	services map[string]*serviceCollector
	start    time.Time
	now      func() time.Time
}

type serviceCollector struct {
	hist       *hdrhistogram.Histogram
	calls      int64
	outcomes   map[string]int64
	statuses   map[int]int64
	failures   map[string]int64
	minLatency time.Duration
	maxLatency time.Duration
	sumLatency time.Duration
}

// ServiceStats is the aggregated view of one service.
type ServiceStats struct {
	Service     string           `json:"service" yaml:"service"`
	Calls       int64            `json:"calls" yaml:"calls"`
	Outcomes    map[string]int64 `json:"outcomes" yaml:"outcomes"`
	StatusCodes map[string]int64 `json:"status_codes,omitempty" yaml:"status_codes,omitempty"`
	Failures    map[string]int64 `json:"transport_failures,omitempty" yaml:"transport_failures,omitempty"`

	MinLatency  time.Duration `json:"-" yaml:"-"`
	MaxLatency  time.Duration `json:"-" yaml:"-"`
	MeanLatency time.Duration `json:"-" yaml:"-"`
	P50Latency  time.Duration `json:"-" yaml:"-"`
	P90Latency  time.Duration `json:"-" yaml:"-"`
	P99Latency  time.Duration `json:"-" yaml:"-"`

	// JSON-friendly millisecond fields.
	MinLatencyMs  float64 `json:"min_latency_ms" yaml:"min_latency_ms"`
	MaxLatencyMs  float64 `json:"max_latency_ms" yaml:"max_latency_ms"`
	MeanLatencyMs float64 `json:"mean_latency_ms" yaml:"mean_latency_ms"`
	P50LatencyMs  float64 `json:"p50_latency_ms" yaml:"p50_latency_ms"`
	P90LatencyMs  float64 `json:"p90_latency_ms" yaml:"p90_latency_ms"`
	P99LatencyMs  float64 `json:"p99_latency_ms" yaml:"p99_latency_ms"`
}

// Snapshot is the aggregated view of every service seen so far.
type Snapshot struct {
	Calls      int64          `json:"calls" yaml:"calls"`
	Services   []ServiceStats `json:"services" yaml:"services"`
	Duration   time.Duration  `json:"-" yaml:"-"`
	DurationMs float64        `json:"duration_ms" yaml:"duration_ms"`
}

func NewCollector() *Collector {
	return &Collector{
		services: make(map[string]*serviceCollector),
		start:    time.Now(),
		now:      time.Now,
	}
}

func newServiceCollector() *serviceCollector {
	return &serviceCollector{
		// Track latencies from 1µs up to 60s with 3 significant figures.
		hist:     hdrhistogram.New(1, 60_000_000, 3),
		outcomes: make(map[string]int64),
		statuses: make(map[int]int64),
		failures: make(map[string]int64),
	}
}

// RecordCall records one resolved call. statusCode is 0 when no response was
// received, in which case err explains why.
func (c *Collector) RecordCall(service, outcome string, statusCode int, latency time.Duration, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, ok := c.services[service]
	if !ok {
		s = newServiceCollector()
		c.services[service] = s
	}

	s.calls++
	s.outcomes[outcome]++
	if statusCode > 0 {
		s.statuses[statusCode]++
	} else if err != nil {
		s.failures[FailureReason(err)]++
	}

	if latency > 0 {
		us := latency.Microseconds()
		if us < s.hist.LowestTrackableValue() {
			us = s.hist.LowestTrackableValue()
		}
		if us > s.hist.HighestTrackableValue() {
			us = s.hist.HighestTrackableValue()
		}
		_ = s.hist.RecordValue(us)
	}
	s.sumLatency += latency
	if s.calls == 1 || latency < s.minLatency {
		s.minLatency = latency
	}
	if latency > s.maxLatency {
		s.maxLatency = latency
	}
}

// Snapshot computes the current statistics, services sorted by name.
func (c *Collector) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := Snapshot{Services: make([]ServiceStats, 0, len(c.services))}
	for name, s := range c.services {
		snap.Calls += s.calls
		snap.Services = append(snap.Services, s.stats(name))
	}
	sort.Slice(snap.Services, func(i, j int) bool {
		return snap.Services[i].Service < snap.Services[j].Service
	})
	snap.Duration = c.now().Sub(c.start)
	snap.DurationMs = toMillis(snap.Duration)
	return snap
}

func (s *serviceCollector) stats(name string) ServiceStats {
	stats := ServiceStats{
		Service:    name,
		Calls:      s.calls,
		Outcomes:   make(map[string]int64, len(s.outcomes)),
		MinLatency: s.minLatency,
		MaxLatency: s.maxLatency,
	}
	for k, v := range s.outcomes {
		stats.Outcomes[k] = v
	}
	if len(s.statuses) > 0 {
		stats.StatusCodes = make(map[string]int64, len(s.statuses))
		for code, v := range s.statuses {
			stats.StatusCodes[strconv.Itoa(code)] = v
		}
	}
	if len(s.failures) > 0 {
		stats.Failures = make(map[string]int64, len(s.failures))
		for k, v := range s.failures {
			stats.Failures[k] = v
		}
	}

	if s.calls > 0 {
		stats.MeanLatency = time.Duration(int64(s.sumLatency) / s.calls)
	}
	if s.hist.TotalCount() > 0 {
		stats.P50Latency = time.Duration(s.hist.ValueAtQuantile(50)) * time.Microsecond
		stats.P90Latency = time.Duration(s.hist.ValueAtQuantile(90)) * time.Microsecond
		stats.P99Latency = time.Duration(s.hist.ValueAtQuantile(99)) * time.Microsecond
	}

	stats.MinLatencyMs = toMillis(stats.MinLatency)
	stats.MaxLatencyMs = toMillis(stats.MaxLatency)
	stats.MeanLatencyMs = toMillis(stats.MeanLatency)
	stats.P50LatencyMs = toMillis(stats.P50Latency)
	stats.P90LatencyMs = toMillis(stats.P90Latency)
	stats.P99LatencyMs = toMillis(stats.P99Latency)
	return stats
}

func toMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
