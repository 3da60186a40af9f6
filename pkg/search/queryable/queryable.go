// Package queryable defines the query contract that specifiers, order handlers
// and the criteria wrapper compose over. Backends implement it.
package queryable

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"strings"

	"github.com/architeacher/smartsearch/pkg/spec"
)

type Direction int

const (
	Ascending Direction = iota
	Descending
)

var (
	ErrInvalidOperation   = errors.New("invalid operation")
	ErrNoElements         = fmt.Errorf("%w: sequence contains no elements", ErrInvalidOperation)
	ErrMoreThanOneElement = fmt.Errorf("%w: sequence contains more than one element", ErrInvalidOperation)
	ErrInvalidDirection   = errors.New("invalid sort direction")
)

// Queryable is an immutable query over models of type M. Every builder method
// returns a new value and leaves the receiver untouched.
type Queryable[M any] interface {
	Where(s spec.Specification) Queryable[M]
	// OrderBy replaces any previous ordering.
	OrderBy(path string, dir Direction) Queryable[M]
	// ThenBy appends a secondary ordering.
	ThenBy(path string, dir Direction) Queryable[M]
	Skip(n int) Queryable[M]
	// Take limits the query to at most n models. A query that is already
	// limited keeps the smaller of both limits.
	Take(n int) Queryable[M]

	ToList(ctx context.Context) ([]M, error)
	// Count ignores ordering, skip and take.
	Count(ctx context.Context) (int, error)
	Stream(ctx context.Context) iter.Seq2[M, error]
}

func (d Direction) String() string {
	if d == Descending {
		return "desc"
	}

	return "asc"
}

// ParseDirection accepts asc, ascending, desc and descending in any case.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "asc", "ascending":
		return Ascending, nil
	case "desc", "descending":
		return Descending, nil
	default:
		return Ascending, fmt.Errorf("%w: %q", ErrInvalidDirection, s)
	}
}

func (d Direction) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Direction) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	parsed, err := ParseDirection(s)
	if err != nil {
		return err
	}

	*d = parsed

	return nil
}

// NarrowLimit returns the limit of a query limited to current after Take(n).
// A negative current means unlimited.
func NarrowLimit(current, n int) int {
	n = max(n, 0)

	if current < 0 {
		return n
	}

	return min(current, n)
}
