package queryable

import (
	"context"
	"slices"
)

// First returns the first element or ErrNoElements.
func First[M any](ctx context.Context, q Queryable[M]) (M, error) {
	item, ok, err := FirstOrDefault(ctx, q)
	if err != nil {
		return item, err
	}

	if !ok {
		return item, ErrNoElements
	}

	return item, nil
}

// FirstOrDefault returns the first element, or the zero value and false when
// the query is empty.
func FirstOrDefault[M any](ctx context.Context, q Queryable[M]) (M, bool, error) {
	var zero M

	items, err := q.Take(1).ToList(ctx)
	if err != nil {
		return zero, false, err
	}

	if len(items) == 0 {
		return zero, false, nil
	}

	return items[0], true, nil
}

// Single returns the only element. It fails with ErrNoElements when there is
// none and ErrMoreThanOneElement when there are more.
func Single[M any](ctx context.Context, q Queryable[M]) (M, error) {
	item, ok, err := SingleOrDefault(ctx, q)
	if err != nil {
		return item, err
	}

	if !ok {
		return item, ErrNoElements
	}

	return item, nil
}

// SingleOrDefault is Single without the error for an empty query.
func SingleOrDefault[M any](ctx context.Context, q Queryable[M]) (M, bool, error) {
	var zero M

	items, err := q.Take(2).ToList(ctx)
	if err != nil {
		return zero, false, err
	}

	switch len(items) {
	case 0:
		return zero, false, nil
	case 1:
		return items[0], true, nil
	default:
		return zero, false, ErrMoreThanOneElement
	}
}

func Any[M any](ctx context.Context, q Queryable[M]) (bool, error) {
	_, ok, err := FirstOrDefault(ctx, q)

	return ok, err
}

// Collect drains a stream into a slice, stopping at the first error.
func Collect[M any](ctx context.Context, q Queryable[M]) ([]M, error) {
	var items []M

	for item, err := range q.Stream(ctx) {
		if err != nil {
			return nil, err
		}

		items = append(items, item)
	}

	return slices.Clip(items), nil
}
