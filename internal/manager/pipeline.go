package manager

import (
	"context"
	"strings"
	"time"

	"github.com/grantwell/grantwell/internal/domain"
	"github.com/grantwell/grantwell/internal/logger"
	"github.com/grantwell/grantwell/internal/resilience"
)

// Outcome classifies a single source fetch. Internal only: the public
// surface flattens every non-ok outcome to an empty result.
type Outcome string

const (
	OutcomeOK            Outcome = "ok"
	OutcomeDisabled      Outcome = "disabled"
	OutcomeCircuitOpen   Outcome = "circuit_open"
	OutcomeRateLimited   Outcome = "rate_limited"
	OutcomeUpstreamError Outcome = "upstream_error"
	OutcomeUnknownSource Outcome = "unknown_source"
)

type fetchResult struct {
	grants   []domain.Grant
	outcome  Outcome
	cacheHit bool
}

// fetch runs the full guarded pipeline for one source: enabled check,
// circuit breaker, cache, rate limiter, HTTP fetch, then bookkeeping.
// Cache hits are served before the rate limiter is consulted, so cached
// reads never consume rate limit capacity.
func (m *Manager) fetch(ctx context.Context, source string, params map[string]string) fetchResult {
	log := logger.With(logger.Fields{logger.FieldSource: source})

	d, ok := m.registry.Get(source)
	if !ok {
		log.Warn(ctx, "Unknown source requested")
		m.collector.ObserveFetch(source, string(OutcomeUnknownSource), 0)
		return fetchResult{outcome: OutcomeUnknownSource}
	}
	if !d.Enabled {
		log.Debug(ctx, "Source disabled, skipping")
		m.collector.ObserveFetch(source, string(OutcomeDisabled), 0)
		return fetchResult{outcome: OutcomeDisabled}
	}

	breaker := m.breakers[source]
	if !breaker.CanExecute() {
		log.WithOutcome(string(OutcomeCircuitOpen)).Warn(ctx, "Circuit breaker open, skipping fetch")
		m.collector.ObserveFetch(source, string(OutcomeCircuitOpen), 0)
		m.collector.SetBreakerState(source, string(breaker.State()))
		return fetchResult{outcome: OutcomeCircuitOpen}
	}

	if cached, hit := m.cache.Get(source, params, d.CacheTTL); hit {
		m.collector.ObserveCache(source, true)
		if grants, ok := cached.([]domain.Grant); ok {
			log.WithCount(len(grants)).Debug(ctx, "Cache hit")
			return fetchResult{grants: grants, outcome: OutcomeOK, cacheHit: true}
		}
	}
	m.collector.ObserveCache(source, false)

	if !m.limiter.Allow(source, d.RateLimit.Calls, d.RateLimit.Period) {
		log.WithOutcome(string(OutcomeRateLimited)).Warn(ctx, "Local rate limit exceeded")
		m.collector.ObserveFetch(source, string(OutcomeRateLimited), 0)
		return fetchResult{outcome: OutcomeRateLimited}
	}

	fetcher, ok := m.fetchers[source]
	if !ok {
		log.Error(ctx, "No fetcher registered for source")
		m.collector.ObserveFetch(source, string(OutcomeUnknownSource), 0)
		return fetchResult{outcome: OutcomeUnknownSource}
	}

	start := time.Now()
	grants, err := fetcher.Fetch(ctx, params)
	elapsed := time.Since(start)

	if err != nil {
		errText := err.Error()
		breaker.RecordFailure(errText, isCredentialError(errText))
		outcome := OutcomeUpstreamError
		if isRateLimitError(errText) {
			outcome = OutcomeRateLimited
		}
		m.collector.ObserveFetch(source, string(outcome), elapsed)
		m.collector.SetBreakerState(source, string(breaker.State()))
		log.WithDuration(elapsed.Milliseconds()).
			WithOutcome(string(outcome)).
			Error(ctx, "Fetch failed: %s", resilience.SanitizeCredentials(errText))
		return fetchResult{outcome: outcome}
	}

	breaker.RecordSuccess()
	m.collector.ObserveFetch(source, string(OutcomeOK), elapsed)
	m.collector.SetBreakerState(source, string(breaker.State()))

	if len(grants) > 0 {
		m.cache.Set(source, params, grants)
	}

	log.WithDuration(elapsed.Milliseconds()).WithCount(len(grants)).Info(ctx, "Fetch succeeded")
	return fetchResult{grants: grants, outcome: OutcomeOK}
}

// isCredentialError applies the same substring heuristics upstream APIs
// force on us: auth failures surface as 401/403 or wording about keys.
func isCredentialError(errText string) bool {
	lower := strings.ToLower(errText)
	for _, marker := range []string{"401", "403", "unauthorized", "forbidden", "invalid api key", "invalid key", "invalid_grant", "authentication"} {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// isRateLimitError reports whether an upstream error text indicates the
// remote side throttled us.
func isRateLimitError(errText string) bool {
	lower := strings.ToLower(errText)
	for _, marker := range []string{"429", "rate limit", "too many requests", "quota"} {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
