package runtime

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"strconv"

	"github.com/architeacher/smartsearch/pkg/circuitbreaker"
	"github.com/architeacher/smartsearch/pkg/logger"
	"github.com/architeacher/smartsearch/pkg/metrics"
	"github.com/architeacher/smartsearch/pkg/metrics/noop"
	"github.com/architeacher/smartsearch/pkg/search/sqlstore"
	inboundhttp "github.com/architeacher/smartsearch/services/svc-search/internal/adapters/inbound/http"
	"github.com/architeacher/smartsearch/services/svc-search/internal/adapters/repos"
	"github.com/architeacher/smartsearch/services/svc-search/internal/adapters/services"
	"github.com/architeacher/smartsearch/services/svc-search/internal/config"
	"github.com/architeacher/smartsearch/services/svc-search/internal/infrastructure"
	mongoinfra "github.com/architeacher/smartsearch/services/svc-search/internal/infrastructure/mongo"
	"github.com/architeacher/smartsearch/services/svc-search/internal/infrastructure/postgres"
	"github.com/architeacher/smartsearch/services/svc-search/internal/usecases"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/throttled/throttled/v2/store/memstore"
	"go.mongodb.org/mongo-driver/mongo"
)

func defaultOptions(ctx context.Context) []DependencyOption {
	return []DependencyOption{
		WithConfig(),
		WithConfigLoader(),
		WithLogger(),
		WithMetrics(),
		WithTracing(ctx),
		WithCircuitBreaker(),
		WithStorage(ctx),
		WithSearchCache(ctx),
		WithRateLimitStore(),
		WithIdempotencyCache(),
		WithHealthChecker(),
		WithApplication(),
		WithHTTPServer(),
	}
}

func WithConfig() DependencyOption {
	return func(d *dependencies) error {
		cfg, err := config.Init()
		if err != nil {
			return fmt.Errorf("initializing configuration: %w", err)
		}

		d.config = cfg

		return nil
	}
}

func WithConfigLoader() DependencyOption {
	return func(d *dependencies) error {
		d.configLoader = config.NewLoader(d.config)

		return nil
	}
}

func WithLogger() DependencyOption {
	return func(d *dependencies) error {
		d.infra.logger = logger.New(d.config.Logging.Level, d.config.Logging.Format)

		return nil
	}
}

func WithMetrics() DependencyOption {
	return func(d *dependencies) error {
		if !d.config.Telemetry.Metrics.Enabled {
			d.infra.metricsClient = noop.NewMetricsClient()

			return nil
		}

		client := metrics.NewOtelClient(d.config.Telemetry.ServiceName)

		d.infra.metricsClient = client
		d.cleanupFuncs["metrics"] = client.Shutdown

		return nil
	}
}

func WithTracing(ctx context.Context) DependencyOption {
	return func(d *dependencies) error {
		if !d.config.Telemetry.Enabled || !d.config.Telemetry.Traces.Enabled {
			d.infra.tracerProvider = infrastructure.NewNoopTracerProvider()

			return nil
		}

		tp, shutdown, err := infrastructure.NewTracerProvider(ctx, d.config.Telemetry, os.Stdout)
		if err != nil {
			return fmt.Errorf("initializing tracer: %w", err)
		}

		d.infra.tracerProvider = tp
		d.cleanupFuncs["tracer"] = shutdown

		return nil
	}
}

func WithCircuitBreaker() DependencyOption {
	return func(d *dependencies) error {
		cbLogger := d.infra.logger.Component("circuit_breaker")
		cfg := d.config.CircuitBreaker

		d.infra.breaker = circuitbreaker.New(circuitbreaker.Config{
			Name:             d.config.Storage.Backend,
			Enabled:          cfg.Enabled,
			MaxRequests:      cfg.MaxRequests,
			Interval:         cfg.Interval,
			Timeout:          cfg.Timeout,
			FailureThreshold: cfg.FailureThreshold,
			OnStateChange: func(name, from, to string) {
				cbLogger.Warn().
					Str("breaker", name).
					Str("from", from).
					Str("to", to).
					Msg("circuit breaker state changed")
			},
		})

		return nil
	}
}

// WithStorage connects the configured backend and builds the customers
// repository on top of it.
func WithStorage(ctx context.Context) DependencyOption {
	return func(d *dependencies) error {
		storageLogger := d.infra.logger.Component("storage")

		switch d.config.Storage.Backend {
		case config.StoragePostgres:
			pool, err := infrastructure.Connect(ctx, d.config.ConnectRetry, storageLogger, "postgres",
				func(ctx context.Context) (*pgxpool.Pool, error) {
					return postgres.NewPool(ctx, d.config.Database)
				})
			if err != nil {
				return err
			}

			d.repos.customersRepo = repos.NewCustomersRepository(
				pool, sqlstore.NewPgxScanner(), d.infra.breaker, storageLogger,
			)
			d.cleanupFuncs["postgres"] = func(context.Context) error {
				pool.Close()

				return nil
			}

		case config.StorageMongo:
			client, err := infrastructure.Connect(ctx, d.config.ConnectRetry, storageLogger, "mongo",
				func(ctx context.Context) (*mongo.Client, error) {
					return mongoinfra.NewClient(ctx, d.config.Mongo)
				})
			if err != nil {
				return err
			}

			coll := client.Database(d.config.Mongo.Database).Collection(d.config.Mongo.Collection)

			d.repos.customersRepo = repos.NewMongoCustomersRepository(
				coll, mongoinfra.Pinger{Client: client}, d.infra.breaker, storageLogger,
			)
			d.cleanupFuncs["mongo"] = client.Disconnect

		case config.StorageMemory:
			storageLogger.Warn().Msg("using the in-memory storage backend, updates are not persisted")

			d.repos.customersRepo = repos.NewMemoryCustomersRepository()

		default:
			return fmt.Errorf("%w: unknown storage backend %q", config.ErrInvalidConfig, d.config.Storage.Backend)
		}

		return nil
	}
}

func WithSearchCache(ctx context.Context) DependencyOption {
	return func(d *dependencies) error {
		if !d.config.SearchCache.Enabled {
			return nil
		}

		cacheLogger := d.infra.logger.Component("cache")

		client, err := infrastructure.Connect(ctx, d.config.ConnectRetry, cacheLogger, "cache",
			func(ctx context.Context) (*infrastructure.KeydbClient, error) {
				client := infrastructure.NewKeyDBClient(d.config.Cache, cacheLogger)
				if err := client.Ping(ctx); err != nil {
					_ = client.Close()

					return nil, err
				}

				return client, nil
			})
		if err != nil {
			return err
		}

		d.infra.cacheClient = client
		d.repos.searchCache = repos.NewSearchCacheRepository(client, cacheLogger)
		d.cleanupFuncs["cache"] = func(context.Context) error {
			return client.Close()
		}

		return nil
	}
}

// WithRateLimitStore shares the limiter state through the cache when one is
// connected and keeps it in process memory otherwise.
func WithRateLimitStore() DependencyOption {
	return func(d *dependencies) error {
		if !d.config.RateLimiting.Enabled {
			return nil
		}

		if d.infra.cacheClient != nil {
			d.repos.rateLimitStore = repos.NewRateLimitStore(d.infra.cacheClient)

			return nil
		}

		store, err := memstore.NewCtx(int(d.config.RateLimiting.MaxKeys))
		if err != nil {
			return fmt.Errorf("creating rate limit store: %w", err)
		}

		d.repos.rateLimitStore = store

		return nil
	}
}

func WithIdempotencyCache() DependencyOption {
	return func(d *dependencies) error {
		if !d.config.Idempotency.Enabled || d.infra.cacheClient == nil {
			return nil
		}

		d.repos.idempotencyCache = repos.NewIdempotencyRepository(d.infra.cacheClient)

		return nil
	}
}

func WithHealthChecker() DependencyOption {
	return func(d *dependencies) error {
		dependencies := []services.Dependency{
			{Name: "storage", Pinger: d.repos.customersRepo, Critical: true},
		}

		if d.infra.cacheClient != nil {
			dependencies = append(dependencies, services.Dependency{Name: "cache", Pinger: d.infra.cacheClient})
		}

		d.services.healthChecker = services.NewHealthChecker(0, dependencies...)

		return nil
	}
}

func WithApplication() DependencyOption {
	return func(d *dependencies) error {
		d.infra.engine = infrastructure.NewSearchEngine(d.config.Search, d.infra.logger, d.infra.metricsClient)

		var caches usecases.QueryCaches
		if d.repos.searchCache != nil {
			caches = usecases.QueryCaches{
				Store:           d.repos.searchCache,
				SearchCustomers: repos.NewSearchCustomersCacheAdapter(d.repos.searchCache),
				GetCustomer:     repos.NewGetCustomerCacheAdapter(d.repos.searchCache),
			}
		}

		d.apps.webApp = usecases.NewWebApplication(
			d.infra.engine,
			d.repos.customersRepo,
			d.services.healthChecker,
			caches,
			d.config.SearchCache,
			d.infra.logger,
			d.infra.metricsClient,
			d.infra.tracerProvider,
		)

		return nil
	}
}

func WithHTTPServer() DependencyOption {
	return func(d *dependencies) error {
		router, err := inboundhttp.NewRouter(inboundhttp.RouterConfig{
			App:              d.apps.webApp,
			Logger:           d.infra.logger,
			MetricsClient:    d.infra.metricsClient,
			TracerProvider:   d.infra.tracerProvider,
			RateLimitStore:   d.repos.rateLimitStore,
			IdempotencyCache: d.repos.idempotencyCache,
			Config:           d.config,
		})
		if err != nil {
			return fmt.Errorf("creating router: %w", err)
		}

		cfg := d.config.HTTPServer

		d.infra.httpServer = &http.Server{
			Addr:         net.JoinHostPort(cfg.Host, strconv.FormatUint(uint64(cfg.Port), 10)),
			Handler:      router,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  cfg.IdleTimeout,
		}

		return nil
	}
}
