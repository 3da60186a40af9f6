package queries

import (
	"context"

	"github.com/architeacher/smartsearch/pkg/decorator"
	"github.com/architeacher/smartsearch/pkg/logger"
	"github.com/architeacher/smartsearch/pkg/metrics"
	"github.com/architeacher/smartsearch/pkg/search"
	"github.com/architeacher/smartsearch/pkg/search/sorting"
	"github.com/architeacher/smartsearch/services/svc-search/internal/domain/model"
	"github.com/architeacher/smartsearch/services/svc-search/internal/ports"
	"github.com/goccy/go-json"
	otelTrace "go.opentelemetry.io/otel/trace"
)

type (
	// SearchCustomersQuery pages through customer summaries. A zero Page
	// returns every match.
	SearchCustomersQuery struct {
		Filter   model.CustomerFilter
		Sortings []sorting.Sorting
		Page     int
		Size     int
		Bypass   bool
	}

	CustomerSummaries = *search.ResultList[model.CustomerSummary]

	SearchCustomersQueryHandler = decorator.QueryHandler[SearchCustomersQuery, CustomerSummaries]

	searchCustomersQueryHandler struct {
		engine *search.Engine
		source ports.Source
	}
)

func (q SearchCustomersQuery) BypassCache() bool {
	return q.Bypass
}

// CacheKey identifies the result of q. Queries that differ only in Bypass
// share a key.
func (q SearchCustomersQuery) CacheKey() (string, error) {
	sortings := make([]string, 0, len(q.Sortings))
	for _, s := range q.Sortings {
		sortings = append(sortings, s.String())
	}

	data, err := json.Marshal(struct {
		Filter   model.CustomerFilter `json:"filter"`
		Sortings []string             `json:"sortings"`
		Page     int                  `json:"page"`
		Size     int                  `json:"size"`
	}{q.Filter, sortings, q.Page, q.Size})
	if err != nil {
		return "", err
	}

	return string(data), nil
}

func NewSearchCustomersQueryHandler(
	engine *search.Engine,
	source ports.Source,
	cache decorator.Cache[SearchCustomersQuery, CustomerSummaries],
	cacheConfig decorator.CacheConfig,
	log logger.Logger,
	metricsClient metrics.Client,
	tracerProvider otelTrace.TracerProvider,
) SearchCustomersQueryHandler {
	var handler SearchCustomersQueryHandler = searchCustomersQueryHandler{engine: engine, source: source}
	if cache != nil {
		handler = decorator.NewQueryCachingDecorator(handler, cache, cacheConfig)
	}

	return decorator.ApplyQueryDecorators(handler, log, metricsClient, tracerProvider)
}

func (h searchCustomersQueryHandler) Execute(ctx context.Context, query SearchCustomersQuery) (CustomerSummaries, error) {
	criteria := search.NewCriteria(h.engine, h.source.Customers()).
		FilterBy(query.Filter).
		OrderBy(query.Sortings...)

	if query.Page > 0 {
		criteria = criteria.Page(query.Page, query.Size)
	}

	projected, err := search.Select[model.Customer, model.CustomerSummary](criteria)
	if err != nil {
		return nil, err
	}

	return projected.ToResultList(ctx)
}
