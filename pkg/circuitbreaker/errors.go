package circuitbreaker

import (
	"errors"
	"fmt"
)

var (
	// ErrUnavailable is returned when the breaker rejects a call without
	// reaching the store. Callers may retry later.
	ErrUnavailable = errors.New("store unavailable")

	ErrCircuitOpen = fmt.Errorf("%w: circuit breaker is open", ErrUnavailable)

	// ErrTooManyRequests is returned in the half-open state once the probe
	// budget is spent.
	ErrTooManyRequests = fmt.Errorf("%w: too many requests in half-open state", ErrUnavailable)
)
