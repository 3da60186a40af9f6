package projection

import (
	"errors"
	"fmt"
)

var (
	ErrSelectorNotFound     = errors.New("selector not found")
	ErrIncompatibleSelector = errors.New("incompatible selector")
)

// SelectorNotFoundError reports a DTO member that no entity member can fill.
type SelectorNotFoundError struct {
	Entity string
	DTO    string
	Member string
	Reason string
}

func (e *SelectorNotFoundError) Error() string {
	return fmt.Sprintf("%s: %s.%s cannot be selected from %s: %s", ErrSelectorNotFound, e.DTO, e.Member, e.Entity, e.Reason)
}

func (e *SelectorNotFoundError) Is(target error) bool {
	return target == ErrSelectorNotFound
}
