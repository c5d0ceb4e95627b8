package resilience

import (
	"sync"
	"time"

	"github.com/grantwell/grantwell/internal/logger"
)

// BreakerState represents the circuit breaker state.
// Values include StateClosed, StateOpen, and StateHalfOpen.
type BreakerState string

const (
	StateClosed   BreakerState = "closed"
	StateOpen     BreakerState = "open"
	StateHalfOpen BreakerState = "half_open"
)

// maxStateChanges bounds the audit trail kept per breaker.
const maxStateChanges = 10

// StateChange records one breaker transition for the audit trail.
type StateChange struct {
	Timestamp    time.Time    `json:"timestamp"`
	From         BreakerState `json:"from"`
	To           BreakerState `json:"to"`
	FailureCount int          `json:"failure_count"`
	Reason       string       `json:"reason,omitempty"`
}

// BreakerConfig controls the thresholds for state transitions.
type BreakerConfig struct {
	FailureThreshold int           // consecutive failures before opening
	Cooldown         time.Duration // open duration before probing
	HalfOpenMaxCalls int           // successful probes required to close
}

// DefaultBreakerConfig returns the baseline policy for public sources.
// Credential-gated sources use a stricter policy; see the manager's
// breaker construction.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		FailureThreshold: 5,
		Cooldown:         15 * time.Minute,
		HalfOpenMaxCalls: 3,
	}
}

// BreakerStatus is an immutable snapshot of a breaker's state.
type BreakerStatus struct {
	Source           string        `json:"source"`
	State            BreakerState  `json:"state"`
	FailureCount     int           `json:"failure_count"`
	FailureThreshold int           `json:"failure_threshold"`
	TotalCalls       int64         `json:"total_calls"`
	TotalFailures    int64         `json:"total_failures"`
	SuccessRate      float64       `json:"success_rate"`
	LastFailureTime  *time.Time    `json:"last_failure_time,omitempty"`
	LastError        string        `json:"last_error,omitempty"`
	CooldownMinutes  float64       `json:"cooldown_minutes"`
	IsAvailable      bool          `json:"is_available"`
	RecentChanges    []StateChange `json:"recent_state_changes"`
}

// CircuitBreaker tracks consecutive failures for one source and blocks
// calls while the source is considered down. It cycles closed -> open ->
// half-open indefinitely; there is no terminal state.
//
// Unlike a single-threaded deployment, the breaker is mutex-guarded:
// the surrounding HTTP server runs handlers concurrently.
type CircuitBreaker struct {
	mu sync.Mutex

	source string
	cfg    BreakerConfig

	state           BreakerState
	failureCount    int
	lastFailureTime time.Time
	halfOpenCalls   int

	totalCalls    int64
	totalFailures int64

	lastError    string
	stateChanges []StateChange

	now func() time.Time
}

// NewCircuitBreaker creates a breaker for the given source.
// Parameters:
//   - source: source identifier used in status snapshots and logs.
//   - cfg: transition thresholds; zero values fall back to defaults.
// Returns:
//   - *CircuitBreaker: breaker in the closed state.
func NewCircuitBreaker(source string, cfg BreakerConfig) *CircuitBreaker {
	def := DefaultBreakerConfig()
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = def.FailureThreshold
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = def.Cooldown
	}
	if cfg.HalfOpenMaxCalls <= 0 {
		cfg.HalfOpenMaxCalls = def.HalfOpenMaxCalls
	}

	return &CircuitBreaker{
		source: source,
		cfg:    cfg,
		state:  StateClosed,
		now:    time.Now,
	}
}

// CanExecute reports whether a call to the source is currently permitted.
// An open breaker whose cooldown has elapsed transitions to half-open as a
// side effect of this check (transition-on-check, not on a timer).
func (b *CircuitBreaker) CanExecute() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.canExecuteLocked()
}

func (b *CircuitBreaker) canExecuteLocked() bool {
	switch b.state {
	case StateClosed:
		return true
	case StateOpen:
		if b.now().Sub(b.lastFailureTime) >= b.cfg.Cooldown {
			b.transitionLocked(StateHalfOpen, "cooldown_elapsed")
			return true
		}
		return false
	case StateHalfOpen:
		return b.halfOpenCalls < b.cfg.HalfOpenMaxCalls
	}
	return false
}

// RecordSuccess records a successful call. While closed it resets the
// consecutive-failure counter; while half-open it counts toward the probes
// required to close the circuit.
func (b *CircuitBreaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.totalCalls++

	switch b.state {
	case StateClosed:
		b.failureCount = 0
	case StateHalfOpen:
		b.halfOpenCalls++
		if b.halfOpenCalls >= b.cfg.HalfOpenMaxCalls {
			b.failureCount = 0
			b.transitionLocked(StateClosed, "probes_succeeded")
		}
	}
}

// RecordFailure records a failed call. The error text is scrubbed of
// credential material before being stored, regardless of isCredentialError,
// since any error text may embed secrets.
func (b *CircuitBreaker) RecordFailure(errText string, isCredentialError bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.totalCalls++
	b.totalFailures++
	b.lastFailureTime = b.now()
	b.lastError = SanitizeCredentials(errText)

	switch b.state {
	case StateHalfOpen:
		// A single failure during probation reopens the circuit.
		b.failureCount++
		b.transitionLocked(StateOpen, "probe_failed")
	case StateClosed:
		b.failureCount++
		if b.failureCount >= b.cfg.FailureThreshold {
			b.transitionLocked(StateOpen, "threshold_reached")
		}
	}

	if isCredentialError {
		logger.GetDefault().WithFields(logger.Fields{
			logger.FieldSource: b.source,
			"credential_error": true,
		}).Warnf("Source failure recorded: %s", b.lastError)
	}
}

// Reset forces the breaker closed, zeroing the failure and probe counters.
// Intended for the admin surface after an operator has confirmed recovery.
func (b *CircuitBreaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failureCount = 0
	b.halfOpenCalls = 0
	if b.state != StateClosed {
		b.transitionLocked(StateClosed, "manual_reset")
	} else {
		b.appendChangeLocked(StateClosed, StateClosed, "manual_reset")
	}
}

// Status returns an immutable snapshot of the breaker. The availability
// check may transition an expired open breaker to half-open, matching
// CanExecute semantics.
func (b *CircuitBreaker) Status() BreakerStatus {
	b.mu.Lock()
	defer b.mu.Unlock()

	available := b.canExecuteLocked()

	var lastFailure *time.Time
	if !b.lastFailureTime.IsZero() {
		t := b.lastFailureTime
		lastFailure = &t
	}

	successRate := float64(b.totalCalls-b.totalFailures) / float64(max64(b.totalCalls, 1)) * 100

	recent := b.stateChanges
	if len(recent) > 5 {
		recent = recent[len(recent)-5:]
	}
	changes := make([]StateChange, len(recent))
	copy(changes, recent)

	return BreakerStatus{
		Source:           b.source,
		State:            b.state,
		FailureCount:     b.failureCount,
		FailureThreshold: b.cfg.FailureThreshold,
		TotalCalls:       b.totalCalls,
		TotalFailures:    b.totalFailures,
		SuccessRate:      successRate,
		LastFailureTime:  lastFailure,
		LastError:        b.lastError,
		CooldownMinutes:  b.cfg.Cooldown.Minutes(),
		IsAvailable:      available,
		RecentChanges:    changes,
	}
}

// State returns the current breaker state without side effects.
func (b *CircuitBreaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *CircuitBreaker) transitionLocked(to BreakerState, reason string) {
	from := b.state
	b.appendChangeLocked(from, to, reason)
	b.state = to

	// Entering open or closed ends any half-open episode.
	if to == StateOpen || to == StateClosed {
		b.halfOpenCalls = 0
	}

	logger.GetDefault().WithFields(logger.Fields{
		logger.FieldSource: b.source,
		"from":             string(from),
		"to":               string(to),
		"failure_count":    b.failureCount,
	}).Infof("Circuit breaker transition: %s", reason)
}

func (b *CircuitBreaker) appendChangeLocked(from, to BreakerState, reason string) {
	b.stateChanges = append(b.stateChanges, StateChange{
		Timestamp:    b.now(),
		From:         from,
		To:           to,
		FailureCount: b.failureCount,
		Reason:       reason,
	})
	if len(b.stateChanges) > maxStateChanges {
		b.stateChanges = b.stateChanges[len(b.stateChanges)-maxStateChanges:]
	}
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
