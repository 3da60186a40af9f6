// Package memory is a slice-backed queryable that evaluates predicate trees by
// reflection. It backs unit tests and small reference data sets.
package memory

import (
	"context"
	"iter"
	"reflect"
	"slices"

	"github.com/architeacher/smartsearch/pkg/search/queryable"
	"github.com/architeacher/smartsearch/pkg/search/selection"
	"github.com/architeacher/smartsearch/pkg/spec"
)

type (
	ordering struct {
		path string
		dir  queryable.Direction
	}

	Query[M any] struct {
		items   []M
		filters []spec.Specification
		orders  []ordering
		skip    int
		take    int
	}
)

var _ queryable.Queryable[struct{}] = Query[struct{}]{}

// New returns a query over items. The slice is never modified.
func New[M any](items []M) Query[M] {
	return Query[M]{items: items, take: -1}
}

func (q Query[M]) Where(s spec.Specification) queryable.Queryable[M] {
	if s == nil {
		return q
	}

	q.filters = append(slices.Clip(q.filters), s)

	return q
}

func (q Query[M]) OrderBy(path string, dir queryable.Direction) queryable.Queryable[M] {
	q.orders = []ordering{{path: path, dir: dir}}

	return q
}

func (q Query[M]) ThenBy(path string, dir queryable.Direction) queryable.Queryable[M] {
	q.orders = append(slices.Clip(q.orders), ordering{path: path, dir: dir})

	return q
}

func (q Query[M]) Skip(n int) queryable.Queryable[M] {
	q.skip = max(n, 0)

	return q
}

func (q Query[M]) Take(n int) queryable.Queryable[M] {
	q.take = queryable.NarrowLimit(q.take, n)

	return q
}

func (q Query[M]) ToList(_ context.Context) ([]M, error) {
	matched, err := q.filter()
	if err != nil {
		return nil, err
	}

	if err := q.sort(matched); err != nil {
		return nil, err
	}

	return q.page(matched), nil
}

func (q Query[M]) Count(_ context.Context) (int, error) {
	matched, err := q.filter()
	if err != nil {
		return 0, err
	}

	return len(matched), nil
}

func (q Query[M]) Stream(ctx context.Context) iter.Seq2[M, error] {
	return func(yield func(M, error) bool) {
		items, err := q.ToList(ctx)
		if err != nil {
			var zero M
			yield(zero, err)

			return
		}

		for _, item := range items {
			if ctx.Err() != nil {
				var zero M
				yield(zero, ctx.Err())

				return
			}

			if !yield(item, nil) {
				return
			}
		}
	}
}

func (q Query[M]) filter() ([]M, error) {
	matched := make([]M, 0, len(q.items))

	for _, item := range q.items {
		ok, err := q.matches(item)
		if err != nil {
			return nil, err
		}

		if ok {
			matched = append(matched, item)
		}
	}

	return matched, nil
}

func (q Query[M]) matches(item M) (bool, error) {
	root := reflect.ValueOf(&item).Elem()

	for _, s := range q.filters {
		ok, err := Evaluate(s, root)
		if err != nil || !ok {
			return false, err
		}
	}

	return true, nil
}

func (q Query[M]) sort(items []M) error {
	if len(q.orders) == 0 {
		return nil
	}

	model := reflect.TypeFor[M]()
	selections := make([]*selection.Selection, len(q.orders))

	for i, o := range q.orders {
		s, err := selection.Resolve(model, o.path)
		if err != nil {
			return err
		}

		selections[i] = s
	}

	slices.SortStableFunc(items, func(a, b M) int {
		va, vb := reflect.ValueOf(&a).Elem(), reflect.ValueOf(&b).Elem()

		for i, o := range q.orders {
			c := compareMembers(selections[i], va, vb, o.dir)
			if c != 0 {
				return c
			}
		}

		return 0
	})

	return nil
}

// compareMembers orders missing values last when ascending and first when
// descending, matching PostgreSQL defaults.
func compareMembers(s *selection.Selection, a, b reflect.Value, dir queryable.Direction) int {
	va, okA := s.Value(a)
	vb, okB := s.Value(b)

	var c int

	switch {
	case !okA && !okB:
		return 0
	case !okA:
		c = 1
	case !okB:
		c = -1
	default:
		c = compareValues(va, vb)
	}

	if dir == queryable.Descending {
		return -c
	}

	return c
}

func (q Query[M]) page(items []M) []M {
	if q.skip >= len(items) {
		return []M{}
	}

	items = items[q.skip:]

	if q.take >= 0 && q.take < len(items) {
		items = items[:q.take]
	}

	return items
}
