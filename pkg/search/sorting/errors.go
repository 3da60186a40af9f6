package sorting

import (
	"errors"
	"fmt"
)

var (
	// ErrOrderBy is matched by every sorting error caused by client input.
	ErrOrderBy = errors.New("order by")

	ErrInvalidSorting = fmt.Errorf("%w: invalid sorting", ErrOrderBy)

	ErrIncompatibleHandler = errors.New("incompatible order by handler")
)

// OrderByNotSupportedError reports a sort key that resolves to no handler.
type OrderByNotSupportedError struct {
	Key   string
	Model string
}

func (e *OrderByNotSupportedError) Error() string {
	return fmt.Sprintf("order by %q is not supported for %s", e.Key, e.Model)
}

func (e *OrderByNotSupportedError) Is(target error) bool {
	return target == ErrOrderBy
}

// InvalidSortingError reports a malformed sort token.
type InvalidSortingError struct {
	Token  string
	Reason string
}

func (e *InvalidSortingError) Error() string {
	return fmt.Sprintf("invalid sorting %q: %s", e.Token, e.Reason)
}

func (e *InvalidSortingError) Is(target error) bool {
	return target == ErrOrderBy || target == ErrInvalidSorting
}
