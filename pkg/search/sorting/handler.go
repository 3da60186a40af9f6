package sorting

import (
	"github.com/architeacher/smartsearch/pkg/search/queryable"
	"github.com/architeacher/smartsearch/pkg/search/selection"
)

type (
	// Builder accumulates orderings: the first one replaces any ordering of
	// the query, the following ones break ties.
	Builder[M any] struct {
		query   queryable.Queryable[M]
		ordered bool
	}

	// Handler applies one sort key to a builder.
	Handler[M any] interface {
		Apply(b *Builder[M], dir queryable.Direction)
	}

	HandlerFunc[M any] func(b *Builder[M], dir queryable.Direction)

	memberHandler[M any] struct {
		path string
	}
)

func NewBuilder[M any](q queryable.Queryable[M]) *Builder[M] {
	return &Builder[M]{query: q}
}

// By orders by a member path.
func (b *Builder[M]) By(path string, dir queryable.Direction) *Builder[M] {
	if b.ordered {
		b.query = b.query.ThenBy(path, dir)
	} else {
		b.query = b.query.OrderBy(path, dir)
		b.ordered = true
	}

	return b
}

func (b *Builder[M]) Ordered() bool { return b.ordered }

func (b *Builder[M]) Query() queryable.Queryable[M] { return b.query }

func (f HandlerFunc[M]) Apply(b *Builder[M], dir queryable.Direction) {
	f(b, dir)
}

// MemberHandler orders by the member addressed by sel.
func MemberHandler[M any](sel *selection.Selection) Handler[M] {
	return memberHandler[M]{path: sel.Path()}
}

func (h memberHandler[M]) Apply(b *Builder[M], dir queryable.Direction) {
	b.By(h.path, dir)
}

// DefaultHandler orders by the model's Id member. It is what paginated
// queries without explicit sortings are ordered by.
func DefaultHandler[M any]() (Handler[M], error) {
	model := reflectType[M]()

	sel, err := selection.Resolve(model, DefaultKey)
	if err != nil {
		return nil, &OrderByNotSupportedError{Key: DefaultKey, Model: model.Name()}
	}

	return MemberHandler[M](sel), nil
}
