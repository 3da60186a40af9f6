package search

import (
	"context"
	"reflect"
)

// UpdateWith loads the entities selected by c and applies the data row with
// the same id to each. Paging of c is ignored. An entity without a data row
// fails with an *IDMismatchError and nothing is updated.
//
// The updated entities are returned; persisting them is up to the caller.
func UpdateWith[M, D any, K comparable](
	ctx context.Context,
	c *Criteria[M],
	data []D,
	dataID func(D) K,
	modelID func(*M) K,
	update func(*M, D) error,
) ([]M, error) {
	byID := make(map[K]D, len(data))
	for _, d := range data {
		byID[dataID(d)] = d
	}

	unpaged := &Criteria[M]{
		engine:   c.engine,
		source:   c.source,
		filters:  c.filters,
		specs:    c.specs,
		sortings: c.sortings,
	}

	entities, err := unpaged.ToList(ctx)
	if err != nil {
		return nil, err
	}

	rows := make([]D, len(entities))

	for i := range entities {
		id := modelID(&entities[i])

		d, ok := byID[id]
		if !ok {
			return nil, &IDMismatchError{Model: reflect.TypeFor[M]().Name(), ID: id}
		}

		rows[i] = d
	}

	for i := range entities {
		if err := update(&entities[i], rows[i]); err != nil {
			return nil, err
		}
	}

	return entities, nil
}
