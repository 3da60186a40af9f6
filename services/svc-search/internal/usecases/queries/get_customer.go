package queries

import (
	"context"
	"errors"
	"fmt"

	"github.com/architeacher/smartsearch/pkg/decorator"
	"github.com/architeacher/smartsearch/pkg/logger"
	"github.com/architeacher/smartsearch/pkg/metrics"
	"github.com/architeacher/smartsearch/pkg/search"
	"github.com/architeacher/smartsearch/pkg/search/queryable"
	"github.com/architeacher/smartsearch/pkg/spec"
	"github.com/architeacher/smartsearch/services/svc-search/internal/domain/model"
	"github.com/architeacher/smartsearch/services/svc-search/internal/ports"
	otelTrace "go.opentelemetry.io/otel/trace"
)

type (
	GetCustomerQuery struct {
		ID     int64
		Bypass bool
	}

	GetCustomerQueryHandler = decorator.QueryHandler[GetCustomerQuery, *model.Customer]

	getCustomerQueryHandler struct {
		engine *search.Engine
		source ports.Source
	}
)

func (q GetCustomerQuery) BypassCache() bool {
	return q.Bypass
}

func NewGetCustomerQueryHandler(
	engine *search.Engine,
	source ports.Source,
	cache decorator.Cache[GetCustomerQuery, *model.Customer],
	cacheConfig decorator.CacheConfig,
	log logger.Logger,
	metricsClient metrics.Client,
	tracerProvider otelTrace.TracerProvider,
) GetCustomerQueryHandler {
	var handler GetCustomerQueryHandler = getCustomerQueryHandler{engine: engine, source: source}
	if cache != nil {
		handler = decorator.NewQueryCachingDecorator(handler, cache, cacheConfig)
	}

	return decorator.ApplyQueryDecorators(handler, log, metricsClient, tracerProvider)
}

func (h getCustomerQueryHandler) Execute(ctx context.Context, query GetCustomerQuery) (*model.Customer, error) {
	if query.ID <= 0 {
		return nil, fmt.Errorf("%w: %d", model.ErrInvalidCustomerID, query.ID)
	}

	customer, err := search.NewCriteria(h.engine, h.source.Customers()).
		Where(spec.Eq("ID", query.ID)).
		First(ctx)
	if err != nil {
		if errors.Is(err, queryable.ErrNoElements) {
			return nil, fmt.Errorf("%w: %d", model.ErrCustomerNotFound, query.ID)
		}

		return nil, err
	}

	return &customer, nil
}
