package usecases

import (
	"github.com/architeacher/smartsearch/pkg/decorator"
	"github.com/architeacher/smartsearch/pkg/logger"
	"github.com/architeacher/smartsearch/pkg/metrics"
	"github.com/architeacher/smartsearch/pkg/search"
	"github.com/architeacher/smartsearch/services/svc-search/internal/config"
	"github.com/architeacher/smartsearch/services/svc-search/internal/domain/model"
	"github.com/architeacher/smartsearch/services/svc-search/internal/ports"
	"github.com/architeacher/smartsearch/services/svc-search/internal/usecases/commands"
	"github.com/architeacher/smartsearch/services/svc-search/internal/usecases/queries"
	otelTrace "go.opentelemetry.io/otel/trace"
)

type (
	Commands struct {
		UpdateCustomers commands.UpdateCustomersCommandHandler
	}

	Queries struct {
		SearchCustomers queries.SearchCustomersQueryHandler
		GetCustomer     queries.GetCustomerQueryHandler
		FetchLiveness   queries.FetchLivenessQueryHandler
		FetchReadiness  queries.FetchReadinessQueryHandler
	}

	// QueryCaches holds the read-through caches of the cacheable queries.
	// A nil cache leaves its query uncached.
	QueryCaches struct {
		Store           ports.SearchCache
		SearchCustomers decorator.Cache[queries.SearchCustomersQuery, queries.CustomerSummaries]
		GetCustomer     decorator.Cache[queries.GetCustomerQuery, *model.Customer]
	}

	WebApplication struct {
		Commands Commands
		Queries  Queries
	}
)

func NewWebApplication(
	engine *search.Engine,
	repo ports.CustomersRepository,
	healthChecker ports.HealthChecker,
	caches QueryCaches,
	cacheConfig config.SearchCache,
	log logger.Logger,
	metricsClient metrics.Client,
	tracerProvider otelTrace.TracerProvider,
) *WebApplication {
	cacheLogger := log.Component("cache")

	listCache := decorator.CacheConfig{
		Enabled: cacheConfig.Enabled,
		TTL:     cacheConfig.ListTTL,
		Logger:  &cacheLogger,
		Metrics: metricsClient,
	}
	recordCache := listCache
	recordCache.TTL = cacheConfig.RecordTTL

	return &WebApplication{
		Commands: Commands{
			UpdateCustomers: commands.NewUpdateCustomersCommandHandler(engine, repo, caches.Store, log, metricsClient, tracerProvider),
		},
		Queries: Queries{
			SearchCustomers: queries.NewSearchCustomersQueryHandler(
				engine, repo, caches.SearchCustomers, listCache, log, metricsClient, tracerProvider,
			),
			GetCustomer: queries.NewGetCustomerQueryHandler(
				engine, repo, caches.GetCustomer, recordCache, log, metricsClient, tracerProvider,
			),
			FetchLiveness:  queries.NewFetchLivenessQueryHandler(healthChecker, log, metricsClient, tracerProvider),
			FetchReadiness: queries.NewFetchReadinessQueryHandler(healthChecker, log, metricsClient, tracerProvider),
		},
	}
}
