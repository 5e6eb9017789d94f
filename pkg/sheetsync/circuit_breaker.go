package sheetsync

import (
	"context"
	"errors"
	"sync"
	"time"
)

// CircuitBreakerState represents the current state of the circuit breaker.
type CircuitBreakerState string

const (
	StateClosed   CircuitBreakerState = "closed"
	StateOpen     CircuitBreakerState = "open"
	StateHalfOpen CircuitBreakerState = "half_open"
)

// ErrCircuitOpen is returned when the circuit breaker is open.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// CircuitBreaker defines the interface for a circuit breaker.
type CircuitBreaker interface {
	// Execute executes the given function within the circuit breaker.
	Execute(ctx context.Context, fn func() error) error
	// Success records a successful execution.
	Success()
	// Failure records a failed execution.
	Failure(err error)
	// State returns the current state of the circuit breaker.
	State() CircuitBreakerState
}

// DefaultCircuitBreaker opens after failureThreshold consecutive failures and
// lets one trial call through once resetTimeout has passed.
type DefaultCircuitBreaker struct {
	mu sync.RWMutex

	state               CircuitBreakerState
	failureThreshold    int
	resetTimeout        time.Duration
	consecutiveFailures int
	lastFailureTime     time.Time

	// counts reports whether an error should count as a failure
	counts        func(error) bool
	onStateChange func(state CircuitBreakerState)
}

// NewDefaultCircuitBreaker creates a new default circuit breaker.
func NewDefaultCircuitBreaker(failureThreshold int, resetTimeout time.Duration,
	onStateChange func(state CircuitBreakerState)) *DefaultCircuitBreaker {
	if failureThreshold < 1 {
		failureThreshold = 1
	}
	return &DefaultCircuitBreaker{
		state:            StateClosed,
		failureThreshold: failureThreshold,
		resetTimeout:     resetTimeout,
		counts:           isBackendFailure,
		onStateChange:    onStateChange,
	}
}

// isBackendFailure ignores caller mistakes and cancellations
func isBackendFailure(err error) bool {
	return !errors.Is(err, ErrCellOutOfRange) && !errors.Is(err, context.Canceled)
}

func (cb *DefaultCircuitBreaker) State() CircuitBreakerState {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.currentState()
}

func (cb *DefaultCircuitBreaker) currentState() CircuitBreakerState {
	if cb.state == StateOpen && time.Since(cb.lastFailureTime) >= cb.resetTimeout {
		return StateHalfOpen
	}
	return cb.state
}

func (cb *DefaultCircuitBreaker) Execute(_ context.Context, fn func() error) error {
	if cb.State() == StateOpen {
		return ErrCircuitOpen
	}

	err := fn()
	if err != nil {
		if cb.counts(err) {
			cb.Failure(err)
		}
		return err
	}

	cb.Success()
	return nil
}

func (cb *DefaultCircuitBreaker) Success() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == StateHalfOpen || cb.state == StateOpen {
		cb.changeState(StateClosed)
	}
	cb.consecutiveFailures = 0
}

func (cb *DefaultCircuitBreaker) Failure(_ error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	halfOpen := cb.currentState() == StateHalfOpen
	cb.consecutiveFailures++
	cb.lastFailureTime = time.Now()

	if halfOpen || (cb.state == StateClosed && cb.consecutiveFailures >= cb.failureThreshold) {
		cb.changeState(StateOpen)
	}
}

func (cb *DefaultCircuitBreaker) changeState(newState CircuitBreakerState) {
	if cb.state != newState {
		cb.state = newState
		if cb.onStateChange != nil {
			cb.onStateChange(newState)
		}
	}
}

// CircuitBreakerTable wraps a Table with circuit breaker protection.
type CircuitBreakerTable struct {
	table Table
	cb    CircuitBreaker
}

// NewCircuitBreakerTable creates a new table wrapper with circuit breaker.
func NewCircuitBreakerTable(table Table, cb CircuitBreaker) *CircuitBreakerTable {
	return &CircuitBreakerTable{
		table: table,
		cb:    cb,
	}
}

func (t *CircuitBreakerTable) Find(ctx context.Context, column int, value string) (int, bool, error) {
	var (
		row int
		ok  bool
	)
	err := t.cb.Execute(ctx, func() error {
		var e error
		row, ok, e = t.table.Find(ctx, column, value)
		return e
	})
	return row, ok, err
}

func (t *CircuitBreakerTable) ReadCell(ctx context.Context, row, column int) (string, error) {
	var cell string
	err := t.cb.Execute(ctx, func() error {
		var e error
		cell, e = t.table.ReadCell(ctx, row, column)
		return e
	})
	return cell, err
}

func (t *CircuitBreakerTable) WriteCell(ctx context.Context, row, column int, value string) error {
	return t.cb.Execute(ctx, func() error {
		return t.table.WriteCell(ctx, row, column, value)
	})
}

func (t *CircuitBreakerTable) AppendRow(ctx context.Context, values []string) error {
	return t.cb.Execute(ctx, func() error {
		return t.table.AppendRow(ctx, values)
	})
}
