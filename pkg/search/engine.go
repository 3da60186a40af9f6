// Package search ties filtering, sorting and projection together behind a
// criteria builder with paging and counting.
//
// A typical search:
//
//	results, err := search.NewCriteria(engine, customers).
//		FilterBy(filter).
//		OrderBy(sorting.Desc("CreatedAt")).
//		Page(2, 20).
//		ToResultList(ctx)
package search

import (
	"github.com/architeacher/smartsearch/pkg/logger"
	"github.com/architeacher/smartsearch/pkg/metrics"
	"github.com/architeacher/smartsearch/pkg/metrics/noop"
	"github.com/architeacher/smartsearch/pkg/search/filtering"
	"github.com/architeacher/smartsearch/pkg/search/projection"
	"github.com/architeacher/smartsearch/pkg/search/sorting"
)

type (
	// Options are the defaults applied to every criteria of an engine.
	Options struct {
		// DefaultItemsPerPage is used by Page when no page size is given.
		DefaultItemsPerPage int
		// MaxItemsPerPage caps requested page sizes. Zero disables the cap.
		MaxItemsPerPage int
		// DefaultSortKey orders paginated queries that carry no sorting.
		DefaultSortKey string
		// Count enables counting for result lists unless a criteria opts out.
		Count bool
	}

	Option func(*Engine)

	// Engine owns the compiled filter, sort and projection caches. It is safe
	// for concurrent use and meant to live as long as the application.
	Engine struct {
		filters   *filtering.Factory
		sortings  *sorting.Provider
		selectors *projection.Factory
		logger    logger.Logger
		metrics   metrics.Client
		options   Options
	}
)

func DefaultOptions() Options {
	return Options{
		DefaultItemsPerPage: 10,
		MaxItemsPerPage:     100,
		DefaultSortKey:      sorting.DefaultKey,
		Count:               true,
	}
}

func WithLogger(l logger.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

func WithMetrics(c metrics.Client) Option {
	return func(e *Engine) { e.metrics = c }
}

func WithOptions(o Options) Option {
	return func(e *Engine) { e.options = o }
}

func WithFilters(f *filtering.Factory) Option {
	return func(e *Engine) { e.filters = f }
}

func WithSortings(p *sorting.Provider) Option {
	return func(e *Engine) { e.sortings = p }
}

func WithSelectors(f *projection.Factory) Option {
	return func(e *Engine) { e.selectors = f }
}

func New(opts ...Option) *Engine {
	e := &Engine{
		logger:  logger.Nop(),
		metrics: noop.NewMetricsClient(),
		options: DefaultOptions(),
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.filters == nil {
		e.filters = filtering.NewFactory(filtering.WithLogger(e.logger), filtering.WithMetrics(e.metrics))
	}

	if e.sortings == nil {
		e.sortings = sorting.NewProvider(sorting.WithLogger(e.logger))
	}

	if e.selectors == nil {
		e.selectors = projection.NewFactory(projection.WithLogger(e.logger))
	}

	if e.options.DefaultSortKey == "" {
		e.options.DefaultSortKey = sorting.DefaultKey
	}

	return e
}

func (e *Engine) Filters() *filtering.Factory { return e.filters }
func (e *Engine) Sortings() *sorting.Provider { return e.sortings }
func (e *Engine) Selectors() *projection.Factory { return e.selectors }
func (e *Engine) Options() Options { return e.options }
