package circuitbreaker

import (
	"context"
	"errors"

	"github.com/sony/gobreaker/v2"
)

// CircuitBreaker guards calls to a backing store. One breaker serves every
// result type, so a query can share it between its list and count calls.
type CircuitBreaker struct {
	cb *gobreaker.CircuitBreaker[any]
}

// New creates a circuit breaker from cfg, or nil when it is disabled. A nil
// breaker is valid and lets every call through.
func New(cfg Config) *CircuitBreaker {
	if !cfg.Enabled {
		return nil
	}

	isSuccessful := cfg.IsSuccessful
	if isSuccessful == nil {
		isSuccessful = IgnoreCallerErrors
	}

	settings := gobreaker.Settings{
		Name:         cfg.Name,
		MaxRequests:  uint32(cfg.MaxRequests),
		Interval:     cfg.Interval,
		Timeout:      cfg.Timeout,
		IsSuccessful: isSuccessful,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(cfg.FailureThreshold)
		},
	}

	if cfg.OnStateChange != nil {
		settings.OnStateChange = func(name string, from, to gobreaker.State) {
			cfg.OnStateChange(name, from.String(), to.String())
		}
	}

	return &CircuitBreaker{cb: gobreaker.NewCircuitBreaker[any](settings)}
}

func (c *CircuitBreaker) Name() string {
	return c.cb.Name()
}

// State reports "closed", "half-open" or "open". A nil breaker is always
// closed.
func (c *CircuitBreaker) State() string {
	if c == nil {
		return gobreaker.StateClosed.String()
	}

	return c.cb.State().String()
}

// Execute runs fn through cb, or directly when cb is nil.
// It returns ErrCircuitOpen while the breaker is open and ErrTooManyRequests
// once the half-open probe budget is spent.
func Execute[T any](cb *CircuitBreaker, fn func() (T, error)) (T, error) {
	if cb == nil {
		return fn()
	}

	var zero T

	result, err := cb.cb.Execute(func() (any, error) {
		return fn()
	})
	if err != nil {
		switch {
		case errors.Is(err, gobreaker.ErrOpenState):
			return zero, ErrCircuitOpen
		case errors.Is(err, gobreaker.ErrTooManyRequests):
			return zero, ErrTooManyRequests
		}
	}

	typed, _ := result.(T)

	return typed, err
}

// IgnoreCallerErrors counts cancellations and deadlines set by the caller as
// successful calls.
func IgnoreCallerErrors(err error) bool {
	return err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
