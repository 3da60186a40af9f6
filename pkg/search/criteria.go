package search

import (
	"context"
	"iter"
	"slices"

	"github.com/architeacher/smartsearch/pkg/search/queryable"
	"github.com/architeacher/smartsearch/pkg/search/sorting"
	"github.com/architeacher/smartsearch/pkg/spec"
)

// Criteria collects the filters, sortings and paging of one search. It is
// not safe for concurrent use; build one per request.
type Criteria[M any] struct {
	engine *Engine
	source queryable.Queryable[M]

	filters  []any
	specs    []spec.Specification
	sortings []sorting.Sorting

	page         int
	itemsPerPage int
	skip         int
	take         int

	count     *bool
	lastCount int
}

func NewCriteria[M any](e *Engine, source queryable.Queryable[M]) *Criteria[M] {
	return &Criteria[M]{engine: e, source: source}
}

// FilterBy adds a filter struct, or a pointer to one. Filters are applied in
// the order they were added; nil filters are ignored.
func (c *Criteria[M]) FilterBy(filter any) *Criteria[M] {
	if filter != nil {
		c.filters = append(c.filters, filter)
	}

	return c
}

// Where adds a predicate next to the filters.
func (c *Criteria[M]) Where(s spec.Specification) *Criteria[M] {
	if s != nil {
		c.specs = append(c.specs, s)
	}

	return c
}

// OrderBy appends sortings. Sortings with an empty key are dropped.
func (c *Criteria[M]) OrderBy(sortings ...sorting.Sorting) *Criteria[M] {
	for _, s := range sortings {
		if s.OrderBy != "" {
			c.sortings = append(c.sortings, s)
		}
	}

	return c
}

// Page selects a 1-based page. A non-positive itemsPerPage falls back to the
// engine default.
func (c *Criteria[M]) Page(page, itemsPerPage int) *Criteria[M] {
	c.page = max(page, 1)
	c.itemsPerPage = itemsPerPage

	return c
}

// Skip and Take override the page window.
func (c *Criteria[M]) Skip(n int) *Criteria[M] {
	c.skip = max(n, 0)

	return c
}

func (c *Criteria[M]) Take(n int) *Criteria[M] {
	c.take = max(n, 0)

	return c
}

func (c *Criteria[M]) WithCount() *Criteria[M] {
	enabled := true
	c.count = &enabled

	return c
}

func (c *Criteria[M]) WithoutCount() *Criteria[M] {
	disabled := false
	c.count = &disabled

	return c
}

// LastCount reuses a count obtained by an earlier page of the same search
// instead of counting again.
func (c *Criteria[M]) LastCount(n int) *Criteria[M] {
	c.lastCount = n

	return c
}

func (c *Criteria[M]) Sortings() []sorting.Sorting {
	return slices.Clone(c.sortings)
}

// window resolves the effective paging. take < 0 means no limit.
func (c *Criteria[M]) window() (page, itemsPerPage, skip, take int) {
	opts := c.engine.options
	take = -1

	if c.page > 0 {
		itemsPerPage = c.itemsPerPage
		if itemsPerPage <= 0 {
			itemsPerPage = opts.DefaultItemsPerPage
		}

		if opts.MaxItemsPerPage > 0 {
			itemsPerPage = min(itemsPerPage, opts.MaxItemsPerPage)
		}

		page = c.page
		skip = (page - 1) * itemsPerPage
		take = itemsPerPage
	}

	if c.skip > 0 {
		skip = c.skip
	}

	if c.take > 0 {
		take = c.take
	}

	return page, itemsPerPage, skip, take
}

func (c *Criteria[M]) counting() bool {
	if c.count != nil {
		return *c.count
	}

	return c.engine.options.Count
}

// Query prepares the search: it applies the filters and the sortings and
// returns a query ready for exactly one terminal call.
func (c *Criteria[M]) Query() (*CriteriaQuery[M], error) {
	q := newCriteriaQuery(c)

	if err := q.filter(); err != nil {
		return nil, err
	}

	if err := q.sort(); err != nil {
		return nil, err
	}

	return q, nil
}

func (c *Criteria[M]) ToList(ctx context.Context) ([]M, error) {
	q, err := c.Query()
	if err != nil {
		return nil, err
	}

	return q.ToList(ctx)
}

func (c *Criteria[M]) ToResultList(ctx context.Context) (*ResultList[M], error) {
	q, err := c.Query()
	if err != nil {
		return nil, err
	}

	return q.ToResultList(ctx)
}

func (c *Criteria[M]) First(ctx context.Context) (M, error) {
	q, err := c.Query()
	if err != nil {
		var zero M

		return zero, err
	}

	return q.First(ctx)
}

func (c *Criteria[M]) FirstOrDefault(ctx context.Context) (M, bool, error) {
	q, err := c.Query()
	if err != nil {
		var zero M

		return zero, false, err
	}

	return q.FirstOrDefault(ctx)
}

func (c *Criteria[M]) Single(ctx context.Context) (M, error) {
	q, err := c.Query()
	if err != nil {
		var zero M

		return zero, err
	}

	return q.Single(ctx)
}

func (c *Criteria[M]) Count(ctx context.Context) (int, error) {
	q, err := c.Query()
	if err != nil {
		return 0, err
	}

	return q.Count(ctx)
}

func (c *Criteria[M]) Stream(ctx context.Context) iter.Seq2[M, error] {
	q, err := c.Query()
	if err != nil {
		return func(yield func(M, error) bool) {
			var zero M

			yield(zero, err)
		}
	}

	return q.Stream(ctx)
}
