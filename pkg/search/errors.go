package search

import (
	"errors"
	"fmt"
)

var (
	// ErrAlreadyConsumed is returned by a second terminal call on a query.
	ErrAlreadyConsumed = errors.New("criteria query already consumed")

	// ErrOutOfRange reports a caller contract violation on bulk updates.
	ErrOutOfRange = errors.New("argument out of range")

	ErrInvalidPaging = errors.New("invalid paging")
)

// IDMismatchError reports an entity with no matching data row.
type IDMismatchError struct {
	Model string
	ID    any
}

func (e *IDMismatchError) Error() string {
	return fmt.Sprintf("%s: no data for %s with id %v", ErrOutOfRange, e.Model, e.ID)
}

func (e *IDMismatchError) Is(target error) bool {
	return target == ErrOutOfRange
}
