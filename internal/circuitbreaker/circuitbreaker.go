// Package circuitbreaker guards the MongoDB repositories: when the
// store misbehaves, scan traffic fails fast instead of piling up on a
// dead connection pool.
package circuitbreaker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// ErrCircuitOpen is returned without invoking the protected call while
// the breaker is open.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// State is the breaker's position.
type State int

const (
	// StateClosed passes calls through and counts failures.
	StateClosed State = iota
	// StateOpen rejects calls until the cool-down elapses.
	StateOpen
	// StateHalfOpen lets trial calls probe whether the store recovered.
	StateHalfOpen
)

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

// Config tunes one breaker.
type Config struct {
	// FailureThreshold is how many consecutive failures open the
	// circuit.
	FailureThreshold int
	// SuccessThreshold is how many consecutive half-open successes
	// close it again.
	SuccessThreshold int
	// Timeout is the cool-down before an open circuit admits a trial
	// call.
	Timeout time.Duration
	// Name identifies the breaker in logs and on /readyz.
	Name string
}

// DefaultConfig matches the defaults used for the requirement and logs
// repositories.
func DefaultConfig() Config {
	return Config{
		FailureThreshold: 5,
		SuccessThreshold: 2,
		Timeout:          30 * time.Second,
		Name:             "circuit-breaker",
	}
}

// CircuitBreaker tracks consecutive failures of a protected call and
// short-circuits while the backend is considered down.
type CircuitBreaker struct {
	cfg Config

	mu          sync.RWMutex
	state       State
	failures    int
	successes   int
	lastFailure time.Time
}

// New creates a closed breaker.
func New(cfg Config) *CircuitBreaker {
	return &CircuitBreaker{cfg: cfg, state: StateClosed}
}

// Execute runs fn under the breaker. While open it returns
// ErrCircuitOpen without calling fn; fn's own error is passed through
// otherwise.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func() error) error {
	if !cb.allow() {
		return ErrCircuitOpen
	}

	if err := fn(); err != nil {
		cb.recordFailure()
		return err
	}
	cb.recordSuccess()
	return nil
}

// allow reports whether a call may proceed, moving an open circuit to
// half-open once the cool-down has elapsed.
func (cb *CircuitBreaker) allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state != StateOpen {
		return true
	}
	if time.Since(cb.lastFailure) < cb.cfg.Timeout {
		return false
	}
	cb.state = StateHalfOpen
	cb.successes = 0
	log.Info().
		Str("circuit_breaker", cb.cfg.Name).
		Msg("Circuit breaker transitioning to half-open")
	return true
}

func (cb *CircuitBreaker) recordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures++
	cb.lastFailure = time.Now()

	switch cb.state {
	case StateClosed:
		if cb.failures >= cb.cfg.FailureThreshold {
			cb.state = StateOpen
			log.Warn().
				Str("circuit_breaker", cb.cfg.Name).
				Int("failure_count", cb.failures).
				Msg("Circuit breaker opened due to failures")
		}
	case StateHalfOpen:
		// A single failed trial call reopens the circuit.
		cb.state = StateOpen
		cb.failures = cb.cfg.FailureThreshold
		log.Warn().
			Str("circuit_breaker", cb.cfg.Name).
			Msg("Circuit breaker reopened after half-open failure")
	}
}

func (cb *CircuitBreaker) recordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures = 0

	if cb.state == StateHalfOpen {
		cb.successes++
		if cb.successes >= cb.cfg.SuccessThreshold {
			cb.state = StateClosed
			cb.successes = 0
			log.Info().
				Str("circuit_breaker", cb.cfg.Name).
				Msg("Circuit breaker closed after successful recovery")
		}
		return
	}
	cb.successes = 0
}

// State returns the breaker's current position.
func (cb *CircuitBreaker) State() State {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.state
}

// IsOpen reports whether calls are currently rejected.
func (cb *CircuitBreaker) IsOpen() bool {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.state == StateOpen
}

// Stats is a point-in-time view of the breaker, surfaced on the
// readiness endpoint.
type Stats struct {
	State        string
	FailureCount int
	SuccessCount int
	LastFailure  time.Time
	IsHealthy    bool
}

// GetStats snapshots the breaker for health reporting.
func (cb *CircuitBreaker) GetStats() Stats {
	cb.mu.RLock()
	defer cb.mu.RUnlock()

	return Stats{
		State:        cb.state.String(),
		FailureCount: cb.failures,
		SuccessCount: cb.successes,
		LastFailure:  cb.lastFailure,
		IsHealthy:    cb.state == StateClosed,
	}
}
