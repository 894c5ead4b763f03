// File: internal/services/resilience/circuit_breaker.go
package resilience

import (
	"sync"
	"time"
)

// State of a circuit breaker.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateOpen:
		return "OPEN"
	case StateHalfOpen:
		return "HALF_OPEN"
	default:
		return "UNKNOWN"
	}
}

// halfOpenProbeLimit is the number of trial calls allowed while HALF_OPEN.
const halfOpenProbeLimit = 1

// Snapshot is a read-only copy of the breaker state.
type Snapshot struct {
	Service              string    `json:"service"`
	State                string    `json:"state"`
	ConsecutiveFailures  int       `json:"consecutive_failures"`
	LastFailureAt        time.Time `json:"last_failure_at"`
	HalfOpenProbesIssued int       `json:"half_open_probes_issued"`
}

// CircuitBreaker gates calls to one external service. It lives for the
// process lifetime and is never persisted. Safe for concurrent use.
type CircuitBreaker struct {
	mu sync.Mutex

	name             string
	failureThreshold int
	recoveryTimeout  time.Duration

	state               State
	consecutiveFailures int
	lastFailureAt       time.Time
	halfOpenProbes      int

	now    func() time.Time
	logger Logger
}

// NewCircuitBreaker creates a CLOSED breaker. A threshold below 1 is raised to 1.
func NewCircuitBreaker(name string, failureThreshold int, recoveryTimeout time.Duration, logger Logger) *CircuitBreaker {
	if failureThreshold < 1 {
		failureThreshold = 1
	}
	if logger == nil {
		logger = noopLogger{}
	}
	return &CircuitBreaker{
		name:             name,
		failureThreshold: failureThreshold,
		recoveryTimeout:  recoveryTimeout,
		state:            StateClosed,
		now:              time.Now,
		logger:           logger,
	}
}

// Name returns the protected service name.
func (cb *CircuitBreaker) Name() string {
	return cb.name
}

// CanAttempt reports whether a call may go out now. In OPEN it flips to
// HALF_OPEN once the recovery timeout has elapsed; in HALF_OPEN only a single
// probe is admitted.
func (cb *CircuitBreaker) CanAttempt() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		return true
	case StateOpen:
		if cb.now().Sub(cb.lastFailureAt) < cb.recoveryTimeout {
			return false
		}
		cb.transition(StateHalfOpen)
		cb.halfOpenProbes = 1
		return true
	case StateHalfOpen:
		if cb.halfOpenProbes < halfOpenProbeLimit {
			cb.halfOpenProbes++
			return true
		}
		return false
	}
	return false
}

// RecordSuccess closes a HALF_OPEN breaker and clears the failure streak.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateHalfOpen:
		cb.transition(StateClosed)
		cb.consecutiveFailures = 0
		cb.halfOpenProbes = 0
		cb.lastFailureAt = time.Time{}
	case StateClosed:
		cb.consecutiveFailures = 0
	}
}

// RecordFailure counts a failure. A failed HALF_OPEN probe reopens at once
// without touching the failure count.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	now := cb.now()
	switch cb.state {
	case StateHalfOpen:
		cb.lastFailureAt = now
		cb.halfOpenProbes = 0
		cb.transition(StateOpen)
	case StateClosed:
		cb.consecutiveFailures++
		cb.lastFailureAt = now
		if cb.consecutiveFailures >= cb.failureThreshold {
			cb.transition(StateOpen)
		}
	case StateOpen:
		cb.consecutiveFailures++
	}
}

// Reset forces the breaker CLOSED with all counters zeroed.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.transition(StateClosed)
	cb.consecutiveFailures = 0
	cb.halfOpenProbes = 0
	cb.lastFailureAt = time.Time{}
}

// State returns the current state without side effects.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Snapshot returns a copy of the breaker state for status reporting.
func (cb *CircuitBreaker) Snapshot() Snapshot {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return Snapshot{
		Service:              cb.name,
		State:                cb.state.String(),
		ConsecutiveFailures:  cb.consecutiveFailures,
		LastFailureAt:        cb.lastFailureAt,
		HalfOpenProbesIssued: cb.halfOpenProbes,
	}
}

// releaseProbe hands back a HALF_OPEN probe whose call ended without a verdict,
// e.g. because the caller went away.
func (cb *CircuitBreaker) releaseProbe() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if cb.state == StateHalfOpen && cb.halfOpenProbes > 0 {
		cb.halfOpenProbes--
	}
}

// transition must be called with cb.mu held.
func (cb *CircuitBreaker) transition(to State) {
	if cb.state == to {
		return
	}
	from := cb.state
	cb.state = to
	cb.logger.Warn("circuit breaker state changed",
		"service", cb.name,
		"from", from.String(),
		"to", to.String(),
		"consecutive_failures", cb.consecutiveFailures)
}
