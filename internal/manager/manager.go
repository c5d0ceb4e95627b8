package manager

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/grantwell/grantwell/internal/domain"
	"github.com/grantwell/grantwell/internal/fetch"
	"github.com/grantwell/grantwell/internal/logger"
	"github.com/grantwell/grantwell/internal/metrics"
	"github.com/grantwell/grantwell/internal/resilience"
	"github.com/grantwell/grantwell/internal/sources"
)

// defaultSearchWorkers bounds the fan-out of cross-source searches.
const defaultSearchWorkers = 4

// Manager is the single entry point for fetching grants from one source or
// searching across all enabled sources, composing circuit breaker, cache,
// and rate limiter around the per-source fetchers.
//
// The contract is absolute: no public method returns an error or fabricated
// data. Every failure class degrades to an empty result; callers inspect
// breaker status and source health to tell an outage apart from no data.
type Manager struct {
	registry  *sources.Registry
	fetchers  map[string]fetch.Fetcher
	breakers  map[string]*resilience.CircuitBreaker
	limiter   *resilience.RateLimiter
	cache     *resilience.Cache
	collector *metrics.Collector

	searchWorkers int
}

// Option customizes a Manager.
type Option func(*Manager)

// WithSearchWorkers sets the fan-out bound for SearchOpportunities.
func WithSearchWorkers(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.searchWorkers = n
		}
	}
}

// WithCollector attaches a metrics collector. Nil is acceptable; every
// collector method is nil-safe.
func WithCollector(c *metrics.Collector) Option {
	return func(m *Manager) { m.collector = c }
}

// New creates a Manager over the given source registry and fetchers.
// Breaker policy: credential-gated sources fail faster and cool down
// longer than public ones, since their failures are usually configuration
// problems that do not fix themselves.
func New(registry *sources.Registry, fetchers map[string]fetch.Fetcher, opts ...Option) *Manager {
	m := &Manager{
		registry:      registry,
		fetchers:      fetchers,
		breakers:      make(map[string]*resilience.CircuitBreaker),
		limiter:       resilience.NewRateLimiter(),
		cache:         resilience.NewCache(),
		searchWorkers: defaultSearchWorkers,
	}
	for _, opt := range opts {
		opt(m)
	}

	for _, d := range registry.All() {
		cfg := resilience.BreakerConfig{
			FailureThreshold: 5,
			Cooldown:         15 * time.Minute,
			HalfOpenMaxCalls: 2,
		}
		if d.CredentialRequired {
			cfg.FailureThreshold = 3
			cfg.Cooldown = 30 * time.Minute
		}
		m.breakers[d.ID] = resilience.NewCircuitBreaker(d.ID, cfg)
	}

	return m
}

// GrantsFromSource fetches standardized grants from one named source.
// Disabled or unknown sources, open breakers, local rate limiting, and
// upstream failures all yield an empty slice, never an error.
func (m *Manager) GrantsFromSource(ctx context.Context, source string, params map[string]string) []domain.Grant {
	res := m.fetch(ctx, source, params)
	if res.grants == nil {
		return []domain.Grant{}
	}
	return res.grants
}

// SearchOpportunities queries every enabled source for the given keyword
// and filters, concatenates the results, and deduplicates them by
// (title, funder) with the first occurrence winning. Sources are queried
// in parallel with a bounded worker pool; result ordering follows the
// source table, with no relevance ranking.
func (m *Manager) SearchOpportunities(ctx context.Context, query string, filters map[string]string) []domain.Grant {
	enabled := m.registry.Enabled()

	params := make(map[string]string, len(filters)+1)
	params["query"] = query
	for k, v := range filters {
		params[k] = v
	}

	perSource := make([][]domain.Grant, len(enabled))
	sem := make(chan struct{}, m.searchWorkers)
	var wg sync.WaitGroup

	for i, d := range enabled {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, id string) {
			defer wg.Done()
			defer func() { <-sem }()
			perSource[i] = m.GrantsFromSource(ctx, id, params)
		}(i, d.ID)
	}
	wg.Wait()

	seen := make(map[string]bool)
	results := []domain.Grant{}
	for _, grants := range perSource {
		for _, g := range grants {
			key := g.DedupKey()
			if seen[key] {
				continue
			}
			seen[key] = true
			results = append(results, g)
		}
	}

	logger.With(logger.Fields{
		logger.FieldCount: len(results),
	}).Info(ctx, "Search completed across %d sources: query=%q", len(enabled), query)

	return results
}

// GrantDetails fetches a single grant by its source-specific identifier.
// With a named source it asks only that source; otherwise it probes every
// enabled source in turn and returns the first hit, or nil.
func (m *Manager) GrantDetails(ctx context.Context, grantID, source string) *domain.Grant {
	params := map[string]string{"grant_id": grantID}

	if source != "" {
		grants := m.GrantsFromSource(ctx, source, params)
		if len(grants) > 0 {
			return &grants[0]
		}
		return nil
	}

	for _, d := range m.registry.Enabled() {
		grants := m.GrantsFromSource(ctx, d.ID, params)
		if len(grants) > 0 {
			return &grants[0]
		}
	}
	return nil
}

// BreakerStatus returns the breaker snapshot for one source.
func (m *Manager) BreakerStatus(source string) (resilience.BreakerStatus, bool) {
	b, ok := m.breakers[source]
	if !ok {
		return resilience.BreakerStatus{}, false
	}
	return b.Status(), true
}

// AllBreakerStatuses returns snapshots for every source, sorted by source id.
func (m *Manager) AllBreakerStatuses() []resilience.BreakerStatus {
	out := make([]resilience.BreakerStatus, 0, len(m.breakers))
	for _, b := range m.breakers {
		out = append(out, b.Status())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Source < out[j].Source })
	return out
}

// ResetBreaker forces the named source's breaker closed. Returns false for
// unknown sources.
func (m *Manager) ResetBreaker(source string) bool {
	b, ok := m.breakers[source]
	if !ok {
		return false
	}
	b.Reset()
	m.collector.SetBreakerState(source, string(b.State()))
	logger.GetDefault().WithField(logger.FieldSource, source).Warn("Circuit breaker manually reset")
	return true
}

// Registry exposes the source registry for the health/validation surface.
func (m *Manager) Registry() *sources.Registry {
	return m.registry
}
