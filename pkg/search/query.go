package search

import (
	"context"
	"iter"
	"slices"
	"sync/atomic"
	"time"

	"github.com/architeacher/smartsearch/pkg/search/filtering"
	"github.com/architeacher/smartsearch/pkg/search/queryable"
	"github.com/architeacher/smartsearch/pkg/search/sorting"
	"go.opentelemetry.io/otel/attribute"
)

type State int

const (
	StatePrepared State = iota
	StateFiltered
	StateSorted
	StateProjected
	StateConsumed
)

func (s State) String() string {
	switch s {
	case StatePrepared:
		return "prepared"
	case StateFiltered:
		return "filtered"
	case StateSorted:
		return "sorted"
	case StateProjected:
		return "projected"
	case StateConsumed:
		return "consumed"
	default:
		return "unknown"
	}
}

// CriteriaQuery is a prepared search. Exactly one terminal method may be
// called; later calls fail with ErrAlreadyConsumed.
type CriteriaQuery[M any] struct {
	engine   *Engine
	criteria *Criteria[M]

	query    queryable.Queryable[M]
	sortings []sorting.Sorting

	page, itemsPerPage, skip, take int

	state    State
	consumed atomic.Bool
}

func newCriteriaQuery[M any](c *Criteria[M]) *CriteriaQuery[M] {
	q := &CriteriaQuery[M]{
		engine:   c.engine,
		criteria: c,
		query:    c.source,
		state:    StatePrepared,
	}

	q.page, q.itemsPerPage, q.skip, q.take = c.window()

	return q
}

func (q *CriteriaQuery[M]) State() State {
	if q.consumed.Load() {
		return StateConsumed
	}

	return q.state
}

// Sortings are the orderings applied, including an injected default.
func (q *CriteriaQuery[M]) Sortings() []sorting.Sorting {
	return slices.Clone(q.sortings)
}

func (q *CriteriaQuery[M]) paginated() bool {
	return q.skip > 0 || q.take >= 0
}

func (q *CriteriaQuery[M]) filter() error {
	for _, f := range q.criteria.filters {
		filtered, err := filtering.Apply(q.engine.filters, q.query, f)
		if err != nil {
			return err
		}

		q.query = filtered
	}

	for _, s := range q.criteria.specs {
		q.query = q.query.Where(s)
	}

	q.state = StateFiltered

	return nil
}

// sort applies the requested sortings. A paginated query without sortings
// is ordered by the default key so that pages are reproducible.
func (q *CriteriaQuery[M]) sort() error {
	sortings := q.criteria.sortings
	if len(sortings) == 0 && q.paginated() {
		sortings = []sorting.Sorting{sorting.Asc(q.engine.options.DefaultSortKey)}
	}

	sorted, err := sorting.Apply(q.engine.sortings, q.query, sortings)
	if err != nil {
		return err
	}

	q.query = sorted
	q.sortings = slices.Clone(sortings)
	q.state = StateSorted

	return nil
}

func (q *CriteriaQuery[M]) paged() queryable.Queryable[M] {
	paged := q.query

	if q.skip > 0 {
		paged = paged.Skip(q.skip)
	}

	if q.take >= 0 {
		paged = paged.Take(q.take)
	}

	return paged
}

func (q *CriteriaQuery[M]) consume() error {
	if !q.consumed.CompareAndSwap(false, true) {
		return ErrAlreadyConsumed
	}

	return nil
}

func (q *CriteriaQuery[M]) observe(ctx context.Context, terminal string, start time.Time, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}

	q.engine.metrics.Inc(ctx, "search.queries."+outcome, 1,
		attribute.String("terminal", terminal),
	)
	q.engine.metrics.Inc(ctx, "search.query.latency", time.Since(start).Milliseconds(),
		attribute.String("terminal", terminal),
		attribute.String("outcome", outcome),
	)

	q.engine.logger.Debug().
		Str("terminal", terminal).
		Int("skip", q.skip).
		Int("take", q.take).
		Dur("elapsed", time.Since(start)).
		Err(err).
		Msg("criteria query executed")
}

func (q *CriteriaQuery[M]) ToList(ctx context.Context) (items []M, err error) {
	if err = q.consume(); err != nil {
		return nil, err
	}

	defer func(start time.Time) { q.observe(ctx, "to_list", start, err) }(time.Now())

	return q.paged().ToList(ctx)
}

func (q *CriteriaQuery[M]) First(ctx context.Context) (item M, err error) {
	if err = q.consume(); err != nil {
		return item, err
	}

	defer func(start time.Time) { q.observe(ctx, "first", start, err) }(time.Now())

	return queryable.First(ctx, q.paged())
}

func (q *CriteriaQuery[M]) FirstOrDefault(ctx context.Context) (item M, ok bool, err error) {
	if err = q.consume(); err != nil {
		return item, false, err
	}

	defer func(start time.Time) { q.observe(ctx, "first_or_default", start, err) }(time.Now())

	return queryable.FirstOrDefault(ctx, q.paged())
}

func (q *CriteriaQuery[M]) Single(ctx context.Context) (item M, err error) {
	if err = q.consume(); err != nil {
		return item, err
	}

	defer func(start time.Time) { q.observe(ctx, "single", start, err) }(time.Now())

	return queryable.Single(ctx, q.paged())
}

// Count ignores paging.
func (q *CriteriaQuery[M]) Count(ctx context.Context) (n int, err error) {
	if err = q.consume(); err != nil {
		return 0, err
	}

	defer func(start time.Time) { q.observe(ctx, "count", start, err) }(time.Now())

	return q.query.Count(ctx)
}

func (q *CriteriaQuery[M]) Stream(ctx context.Context) iter.Seq2[M, error] {
	if err := q.consume(); err != nil {
		return func(yield func(M, error) bool) {
			var zero M

			yield(zero, err)
		}
	}

	return q.paged().Stream(ctx)
}

// ToResultList loads the page and, when counting is enabled, the total.
func (q *CriteriaQuery[M]) ToResultList(ctx context.Context) (result *ResultList[M], err error) {
	if err = q.consume(); err != nil {
		return nil, err
	}

	defer func(start time.Time) { q.observe(ctx, "to_result_list", start, err) }(time.Now())

	items, err := q.paged().ToList(ctx)
	if err != nil {
		return nil, err
	}

	count, err := q.total(ctx, len(items))
	if err != nil {
		return nil, err
	}

	return newResultList(q.page, q.itemsPerPage, q.skip, count, q.sortings, items), nil
}

func (q *CriteriaQuery[M]) total(ctx context.Context, loaded int) (int, error) {
	switch {
	case q.criteria.lastCount > 0:
		return q.criteria.lastCount, nil
	case !q.criteria.counting():
		return 0, nil
	case !q.paginated() || (q.skip == 0 && loaded < q.take):
		return loaded, nil
	default:
		return q.query.Count(ctx)
	}
}
