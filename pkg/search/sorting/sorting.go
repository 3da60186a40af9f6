// Package sorting resolves sort keys into ordering handlers and applies
// ordered lists of sortings to a queryable.
package sorting

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/architeacher/smartsearch/pkg/search/queryable"
)

// Sorting is one ordering instruction.
type Sorting struct {
	OrderBy   string              `json:"orderBy"`
	Direction queryable.Direction `json:"direction"`
}

func Asc(orderBy string) Sorting  { return Sorting{OrderBy: orderBy, Direction: queryable.Ascending} }
func Desc(orderBy string) Sorting { return Sorting{OrderBy: orderBy, Direction: queryable.Descending} }

func (s Sorting) String() string {
	return s.OrderBy + " " + s.Direction.String()
}

// Parse reads one sort token: "Name", "Name desc", "Name-desc" or "-Name".
// The direction is case-insensitive and defaults to ascending.
func Parse(token string) (Sorting, error) {
	raw := token
	token = strings.TrimSpace(token)

	if rest, ok := strings.CutPrefix(token, "-"); ok {
		return validate(raw, Desc(rest))
	}

	if fields := strings.Fields(token); len(fields) == 2 {
		dir, err := queryable.ParseDirection(fields[1])
		if err != nil {
			return Sorting{}, &InvalidSortingError{Token: raw, Reason: "unknown direction " + fields[1]}
		}

		return validate(raw, Sorting{OrderBy: fields[0], Direction: dir})
	} else if len(fields) > 2 {
		return Sorting{}, &InvalidSortingError{Token: raw, Reason: "too many parts"}
	}

	if i := strings.LastIndex(token, "-"); i > 0 {
		dir, err := queryable.ParseDirection(token[i+1:])
		if err != nil || token[i+1:] == "" {
			return Sorting{}, &InvalidSortingError{Token: raw, Reason: "unknown direction " + token[i+1:]}
		}

		return validate(raw, Sorting{OrderBy: token[:i], Direction: dir})
	}

	return validate(raw, Asc(token))
}

// ParseList reads comma separated sort tokens, skipping blank ones.
func ParseList(tokens ...string) ([]Sorting, error) {
	var out []Sorting

	for _, list := range tokens {
		for token := range strings.SplitSeq(list, ",") {
			if strings.TrimSpace(token) == "" {
				continue
			}

			s, err := Parse(token)
			if err != nil {
				return nil, err
			}

			out = append(out, s)
		}
	}

	return out, nil
}

func validate(raw string, s Sorting) (Sorting, error) {
	if s.OrderBy == "" {
		return Sorting{}, &InvalidSortingError{Token: raw, Reason: "missing property"}
	}

	for _, r := range s.OrderBy {
		if r != '.' && r != '_' && !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return Sorting{}, &InvalidSortingError{Token: raw, Reason: fmt.Sprintf("unexpected character %q", r)}
		}
	}

	return s, nil
}
