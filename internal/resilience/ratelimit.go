package resilience

import (
	"sync"
	"time"
)

// RateLimiter caps the call rate to each source independently using a
// sliding window of call timestamps. Pruning happens only on access; a
// source that stops being queried keeps its last window in memory, which
// is bounded by the number of distinct sources rather than call volume.
type RateLimiter struct {
	mu    sync.Mutex
	calls map[string][]time.Time

	now func() time.Time
}

// NewRateLimiter creates an empty rate limiter.
func NewRateLimiter() *RateLimiter {
	return &RateLimiter{
		calls: make(map[string][]time.Time),
		now:   time.Now,
	}
}

// Allow reports whether a call to source is permitted under the limit of
// maxCalls per period. Permitted calls are recorded; denied attempts are
// not, so a denied caller does not consume window capacity.
func (r *RateLimiter) Allow(source string, maxCalls int, period time.Duration) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	cutoff := now.Add(-period)

	kept := r.calls[source][:0]
	for _, t := range r.calls[source] {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	r.calls[source] = kept

	if len(kept) >= maxCalls {
		return false
	}

	r.calls[source] = append(kept, now)
	return true
}

// WindowCount returns the number of recorded calls for source still inside
// the trailing period. Used by status endpoints.
func (r *RateLimiter) WindowCount(source string, period time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-period)
	n := 0
	for _, t := range r.calls[source] {
		if t.After(cutoff) {
			n++
		}
	}
	return n
}
