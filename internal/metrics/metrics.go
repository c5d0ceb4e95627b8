package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// breakerStateValues maps breaker states to gauge values.
var breakerStateValues = map[string]float64{
	"closed":    0,
	"open":      1,
	"half_open": 2,
}

// Collector exposes Prometheus metrics for the aggregation layer: upstream
// fetch outcomes and latency, cache effectiveness, and breaker states.
type Collector struct {
	registry      *prometheus.Registry
	fetchTotal    *prometheus.CounterVec
	fetchDuration *prometheus.HistogramVec
	cacheTotal    *prometheus.CounterVec
	breakerState  *prometheus.GaugeVec
}

// NewCollector constructs a collector with default histograms/counters.
func NewCollector() (*Collector, error) {
	registry := prometheus.NewRegistry()

	fetchTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "grantwell",
		Subsystem: "fetch",
		Name:      "requests_total",
		Help:      "Total number of source fetch requests by outcome.",
	}, []string{"source", "outcome"})

	fetchDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "grantwell",
		Subsystem: "fetch",
		Name:      "duration_seconds",
		Help:      "Latency distribution for source fetches.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"source"})

	cacheTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "grantwell",
		Subsystem: "cache",
		Name:      "lookups_total",
		Help:      "Cache lookups by result (hit or miss).",
	}, []string{"source", "result"})

	breakerState := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "grantwell",
		Subsystem: "breaker",
		Name:      "state",
		Help:      "Circuit breaker state per source (0=closed, 1=open, 2=half_open).",
	}, []string{"source"})

	for _, c := range []prometheus.Collector{fetchTotal, fetchDuration, cacheTotal, breakerState} {
		if err := registry.Register(c); err != nil {
			return nil, err
		}
	}

	return &Collector{
		registry:      registry,
		fetchTotal:    fetchTotal,
		fetchDuration: fetchDuration,
		cacheTotal:    cacheTotal,
		breakerState:  breakerState,
	}, nil
}

// Handler returns an HTTP handler for exposing Prometheus metrics.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// ObserveFetch records one fetch attempt with its outcome and duration.
// Safe on a nil collector so callers need no guards.
func (c *Collector) ObserveFetch(source, outcome string, duration time.Duration) {
	if c == nil {
		return
	}
	c.fetchTotal.WithLabelValues(source, outcome).Inc()
	c.fetchDuration.WithLabelValues(source).Observe(duration.Seconds())
}

// ObserveCache records a cache lookup result for a source.
func (c *Collector) ObserveCache(source string, hit bool) {
	if c == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	c.cacheTotal.WithLabelValues(source, result).Inc()
}

// SetBreakerState publishes the current breaker state for a source.
func (c *Collector) SetBreakerState(source, state string) {
	if c == nil {
		return
	}
	c.breakerState.WithLabelValues(source).Set(breakerStateValues[state])
}
