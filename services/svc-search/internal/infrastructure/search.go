package infrastructure

import (
	"github.com/architeacher/smartsearch/pkg/logger"
	"github.com/architeacher/smartsearch/pkg/metrics"
	"github.com/architeacher/smartsearch/pkg/search"
	"github.com/architeacher/smartsearch/pkg/search/filtering"
	"github.com/architeacher/smartsearch/pkg/search/projection"
	"github.com/architeacher/smartsearch/pkg/search/sorting"
	"github.com/architeacher/smartsearch/services/svc-search/internal/config"
	"github.com/architeacher/smartsearch/services/svc-search/internal/domain/model"
)

// NewSearchEngine builds the engine shared by every customer search and
// registers the customer specific generators.
func NewSearchEngine(cfg config.Search, log logger.Logger, metricsClient metrics.Client) *search.Engine {
	log = log.Component("search")

	filters := filtering.NewFactory(
		filtering.WithLogger(log),
		filtering.WithMetrics(metricsClient),
		filtering.WithOrSplit(cfg.OrSplit),
	)
	filters.AddExpressionGenerator(model.FullTextGenerator, model.FullText())

	return search.New(
		search.WithLogger(log),
		search.WithMetrics(metricsClient),
		search.WithFilters(filters),
		search.WithSortings(sorting.NewProvider(sorting.WithLogger(log))),
		search.WithSelectors(projection.NewFactory(projection.WithLogger(log))),
		search.WithOptions(search.Options{
			DefaultItemsPerPage: cfg.DefaultItemsPerPage,
			MaxItemsPerPage:     cfg.MaxItemsPerPage,
			DefaultSortKey:      cfg.DefaultSortKey,
			Count:               cfg.Count,
		}),
	)
}
