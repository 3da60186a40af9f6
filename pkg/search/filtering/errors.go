package filtering

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/architeacher/smartsearch/pkg/search/queryable"
)

var (
	// ErrInvalidCriteria reports a filter type that cannot be compiled against
	// a model. It is also an queryable.ErrInvalidOperation.
	ErrInvalidCriteria = errors.New("invalid criteria")

	ErrIncompatibleSpecifier = errors.New("incompatible specifier")
)

// Lack describes why one filter field could not be resolved.
type Lack struct {
	Model  string
	Filter string
	Field  string
	Reason string
}

func (l Lack) String() string {
	return fmt.Sprintf("%s.%s on %s: %s", l.Filter, l.Field, l.Model, l.Reason)
}

// LacksError aggregates every lack found while compiling a filter type.
type LacksError struct {
	Model  reflect.Type
	Filter reflect.Type
	Lacks  []Lack
}

func (e *LacksError) Error() string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s: %d criteria of %s cannot be applied to %s",
		ErrInvalidCriteria, len(e.Lacks), e.Filter.Name(), e.Model.Name())

	for _, l := range e.Lacks {
		b.WriteString("\n - ")
		b.WriteString(l.String())
	}

	return b.String()
}

func (e *LacksError) Is(target error) bool {
	return target == ErrInvalidCriteria || target == queryable.ErrInvalidOperation
}
