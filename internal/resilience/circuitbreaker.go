package resilience

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrCircuitOpen is returned by [CircuitBreaker.Execute] without calling the
// backend.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// State of a [CircuitBreaker].
type State int

const (
	// StateClosed forwards every call.
	StateClosed State = iota

	// StateOpen rejects calls until ResetTimeout has passed since the last
	// failure.
	StateOpen

	// StateHalfOpen lets up to HalfOpenMax trial calls through. One failure
	// reopens the breaker; HalfOpenMax successes close it.
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

// Breaker defaults.
const (
	defaultMaxFailures  = 5
	defaultResetTimeout = 30 * time.Second
	defaultHalfOpenMax  = 3
)

// CircuitBreakerConfig tunes a [CircuitBreaker]. Zero fields take the
// defaults: 5 failures, 30s reset, 3 trial calls.
type CircuitBreakerConfig struct {
	// Name is the provider name, e.g. "deepgram" or "whisper#2".
	Name string

	MaxFailures  int
	ResetTimeout time.Duration
	HalfOpenMax  int

	// IsFailure decides whether an error counts against the provider. The
	// default ignores context cancellation, which means the client went
	// away rather than the backend failing.
	IsFailure func(error) bool
}

// CircuitBreaker guards one provider. Safe for concurrent use.
type CircuitBreaker struct {
	name         string
	maxFailures  int
	resetTimeout time.Duration
	halfOpenMax  int
	isFailure    func(error) bool

	mu       sync.Mutex
	state    State
	failures int
	openedAt time.Time
	trials   int
	trialsOK int
}

// NewCircuitBreaker returns a closed breaker.
func NewCircuitBreaker(cfg CircuitBreakerConfig) *CircuitBreaker {
	cb := &CircuitBreaker{
		name:         cfg.Name,
		maxFailures:  cfg.MaxFailures,
		resetTimeout: cfg.ResetTimeout,
		halfOpenMax:  cfg.HalfOpenMax,
		isFailure:    cfg.IsFailure,
	}
	if cb.maxFailures <= 0 {
		cb.maxFailures = defaultMaxFailures
	}
	if cb.resetTimeout <= 0 {
		cb.resetTimeout = defaultResetTimeout
	}
	if cb.halfOpenMax <= 0 {
		cb.halfOpenMax = defaultHalfOpenMax
	}
	if cb.isFailure == nil {
		cb.isFailure = defaultIsFailure
	}
	return cb
}

// defaultIsFailure counts every error except context cancellation.
func defaultIsFailure(err error) bool { return !errors.Is(err, context.Canceled) }

// Execute calls fn unless the breaker is open or out of trial calls, in
// which case it returns [ErrCircuitOpen].
func (cb *CircuitBreaker) Execute(fn func() error) error {
	trial, err := cb.admit()
	if err != nil {
		return err
	}
	err = fn()
	cb.settle(trial, err)
	return err
}

// admit decides whether a call may proceed and whether it is a trial call.
func (cb *CircuitBreaker) admit() (trial bool, err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == StateOpen {
		if time.Since(cb.openedAt) < cb.resetTimeout {
			return false, ErrCircuitOpen
		}
		cb.state, cb.trials, cb.trialsOK = StateHalfOpen, 0, 0
		slog.Info("resilience: provider on trial", "provider", cb.name)
	}
	if cb.state != StateHalfOpen {
		return false, nil
	}
	if cb.trials >= cb.halfOpenMax {
		return false, ErrCircuitOpen
	}
	cb.trials++
	return true, nil
}

func (cb *CircuitBreaker) settle(trial bool, err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch {
	case err != nil && cb.isFailure(err):
		cb.openedAt = time.Now()
		if trial {
			cb.state = StateOpen
			slog.Warn("resilience: provider failed its trial", "provider", cb.name)
			return
		}
		cb.failures++
		if cb.failures >= cb.maxFailures && cb.state == StateClosed {
			cb.state = StateOpen
			slog.Warn("resilience: provider disabled", "provider", cb.name, "consecutive_failures", cb.failures)
		}
	case err == nil && trial:
		cb.trialsOK++
		if cb.trialsOK >= cb.halfOpenMax {
			cb.close()
			slog.Info("resilience: provider restored", "provider", cb.name)
		}
	case err == nil:
		cb.failures = 0
	}
}

// close resets all counters. cb.mu must be held.
func (cb *CircuitBreaker) close() {
	cb.state, cb.failures, cb.trials, cb.trialsOK = StateClosed, 0, 0, 0
}

// State reports the breaker state. An open breaker whose reset timeout has
// passed reports [StateHalfOpen] before its next call moves it there.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if cb.state == StateOpen && time.Since(cb.openedAt) >= cb.resetTimeout {
		return StateHalfOpen
	}
	return cb.state
}

// Reset closes the breaker and clears its counters.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.close()
	slog.Info("resilience: provider reset", "provider", cb.name)
}
