package projection

import (
	"context"

	"github.com/architeacher/smartsearch/pkg/search/queryable"
)

// Source is implemented by backends that can read a projection directly into
// a slice of DTOs, such as a column list in SQL.
type Source interface {
	ProjectInto(ctx context.Context, p *Projection, dst any) error
}

// List runs q and maps its results through sel. Queries over a Source are
// projected by the backend unless the projection has collection members.
func List[E, D any](ctx context.Context, q queryable.Queryable[E], sel *Selector[E, D]) ([]D, error) {
	if src, ok := q.(Source); ok && sel.Projection() != nil && !sel.Projection().HasCollections() {
		var out []D
		if err := src.ProjectInto(ctx, sel.Projection(), &out); err != nil {
			return nil, err
		}

		return out, nil
	}

	items, err := q.ToList(ctx)
	if err != nil {
		return nil, err
	}

	return sel.MapAll(items), nil
}
