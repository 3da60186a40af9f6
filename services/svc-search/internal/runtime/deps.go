package runtime

import (
	"context"
	"fmt"
	"net/http"

	"github.com/architeacher/smartsearch/pkg/circuitbreaker"
	"github.com/architeacher/smartsearch/pkg/logger"
	"github.com/architeacher/smartsearch/pkg/metrics"
	"github.com/architeacher/smartsearch/pkg/search"
	"github.com/architeacher/smartsearch/services/svc-search/internal/config"
	"github.com/architeacher/smartsearch/services/svc-search/internal/infrastructure"
	"github.com/architeacher/smartsearch/services/svc-search/internal/ports"
	"github.com/architeacher/smartsearch/services/svc-search/internal/usecases"
	"github.com/throttled/throttled/v2"
	otelTrace "go.opentelemetry.io/otel/trace"
)

type (
	// storageRepository is a customers repository the readiness probe can ping.
	storageRepository interface {
		ports.CustomersRepository
		ports.Pinger
	}

	infrastructureDep struct {
		httpServer     *http.Server
		cacheClient    *infrastructure.KeydbClient
		breaker        *circuitbreaker.CircuitBreaker
		engine         *search.Engine
		logger         logger.Logger
		metricsClient  metrics.Client
		tracerProvider otelTrace.TracerProvider
	}

	repositories struct {
		customersRepo    storageRepository
		searchCache      ports.SearchCache
		idempotencyCache ports.IdempotencyCache
		rateLimitStore   throttled.GCRAStoreCtx
	}

	servicesDep struct {
		healthChecker ports.HealthChecker
	}

	applications struct {
		webApp *usecases.WebApplication
	}

	dependencies struct {
		config       *config.ServiceConfig
		configLoader *config.Loader

		infra infrastructureDep

		repos repositories

		services servicesDep

		apps applications

		cleanupFuncs map[string]func(ctx context.Context) error
	}

	DependencyOption func(*dependencies) error
)

func initializeDependencies(ctx context.Context, opts ...DependencyOption) (*dependencies, error) {
	deps := &dependencies{
		cleanupFuncs: make(map[string]func(ctx context.Context) error),
	}

	allOpts := append(defaultOptions(ctx), opts...)

	for _, opt := range allOpts {
		if err := opt(deps); err != nil {
			return nil, fmt.Errorf("failed to apply dependency option: %w", err)
		}
	}

	return deps, nil
}
