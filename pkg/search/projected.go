package search

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/architeacher/smartsearch/pkg/search/projection"
	"github.com/architeacher/smartsearch/pkg/search/queryable"
)

// ProjectedQuery is a CriteriaQuery whose results are mapped to D. It keeps
// the paging of the query it was derived from.
type ProjectedQuery[M, D any] struct {
	parent   *CriteriaQuery[M]
	selector *projection.Selector[M, D]
	consumed atomic.Bool
}

// Project derives a query returning D. The source query is consumed by the
// derivation.
func Project[M, D any](q *CriteriaQuery[M]) (*ProjectedQuery[M, D], error) {
	sel, err := projection.Create[M, D](q.engine.selectors)
	if err != nil {
		return nil, err
	}

	if err := q.consume(); err != nil {
		return nil, err
	}

	q.state = StateProjected

	return &ProjectedQuery[M, D]{parent: q, selector: sel}, nil
}

// Select prepares c and projects it to D.
func Select[M, D any](c *Criteria[M]) (*ProjectedQuery[M, D], error) {
	q, err := c.Query()
	if err != nil {
		return nil, err
	}

	return Project[M, D](q)
}

func (p *ProjectedQuery[M, D]) consume() error {
	if !p.consumed.CompareAndSwap(false, true) {
		return ErrAlreadyConsumed
	}

	return nil
}

func (p *ProjectedQuery[M, D]) ToList(ctx context.Context) (items []D, err error) {
	if err = p.consume(); err != nil {
		return nil, err
	}

	defer func(start time.Time) { p.parent.observe(ctx, "projected_to_list", start, err) }(time.Now())

	return projection.List(ctx, p.parent.paged(), p.selector)
}

func (p *ProjectedQuery[M, D]) ToResultList(ctx context.Context) (result *ResultList[D], err error) {
	if err = p.consume(); err != nil {
		return nil, err
	}

	defer func(start time.Time) { p.parent.observe(ctx, "projected_to_result_list", start, err) }(time.Now())

	items, err := projection.List(ctx, p.parent.paged(), p.selector)
	if err != nil {
		return nil, err
	}

	count, err := p.parent.total(ctx, len(items))
	if err != nil {
		return nil, err
	}

	q := p.parent

	return newResultList(q.page, q.itemsPerPage, q.skip, count, q.sortings, items), nil
}

func (p *ProjectedQuery[M, D]) First(ctx context.Context) (D, error) {
	item, ok, err := p.FirstOrDefault(ctx)
	if err == nil && !ok {
		err = queryable.ErrNoElements
	}

	return item, err
}

func (p *ProjectedQuery[M, D]) FirstOrDefault(ctx context.Context) (item D, ok bool, err error) {
	if err = p.consume(); err != nil {
		return item, false, err
	}

	entity, ok, err := queryable.FirstOrDefault(ctx, p.parent.paged())
	if err != nil || !ok {
		return item, ok, err
	}

	return p.selector.Map(entity), true, nil
}

func (p *ProjectedQuery[M, D]) Single(ctx context.Context) (item D, err error) {
	if err = p.consume(); err != nil {
		return item, err
	}

	entity, err := queryable.Single(ctx, p.parent.paged())
	if err != nil {
		return item, err
	}

	return p.selector.Map(entity), nil
}
