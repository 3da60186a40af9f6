package http

import (
	"fmt"
	"net/http"

	"github.com/architeacher/smartsearch/pkg/logger"
	"github.com/architeacher/smartsearch/pkg/metrics"
	"github.com/architeacher/smartsearch/services/svc-search/internal/adapters/inbound/http/handlers"
	"github.com/architeacher/smartsearch/services/svc-search/internal/adapters/inbound/http/middleware"
	"github.com/architeacher/smartsearch/services/svc-search/internal/config"
	"github.com/architeacher/smartsearch/services/svc-search/internal/ports"
	"github.com/architeacher/smartsearch/services/svc-search/internal/usecases"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/throttled/throttled/v2"
	"go.opentelemetry.io/otel/trace"
)

const (
	baseURL = "/v1"
)

// RouterConfig wires the router. A nil RateLimitStore or IdempotencyCache
// leaves the matching middleware out.
type RouterConfig struct {
	App              *usecases.WebApplication
	Logger           logger.Logger
	MetricsClient    metrics.Client
	TracerProvider   trace.TracerProvider
	RateLimitStore   throttled.GCRAStoreCtx
	IdempotencyCache ports.IdempotencyCache
	Config           *config.ServiceConfig
}

func NewRouter(cfg RouterConfig) (http.Handler, error) {
	router := chi.NewRouter()

	// Core middlewares - always applied
	router.Use(middleware.RequestID())
	router.Use(chimiddleware.RealIP)
	router.Use(middleware.Recovery(cfg.Logger))
	router.Use(chimiddleware.Timeout(cfg.Config.HTTPServer.RequestTimeout))

	if cfg.Config.Telemetry.Traces.Enabled && cfg.TracerProvider != nil {
		router.Use(middleware.Tracer(cfg.Config.App.ServiceName, cfg.TracerProvider))
		cfg.Logger.Info().Msg("distributed tracing enabled")
	}

	if cfg.Config.Telemetry.Metrics.Enabled {
		router.Use(middleware.Metrics(cfg.MetricsClient))
		cfg.Logger.Info().Msg("HTTP metrics collection enabled")
	}

	if cfg.Config.Logging.AccessLog.Enabled {
		router.Use(middleware.AccessLogger(cfg.Logger, middleware.AccessLogConfig{
			IncludeQueryParams: cfg.Config.Logging.AccessLog.IncludeQueryParams,
			LogHealthChecks:    cfg.Config.Logging.AccessLog.LogHealthChecks,
		}))
		cfg.Logger.Info().
			Bool("log_health_checks", cfg.Config.Logging.AccessLog.LogHealthChecks).
			Msg("structured access logging enabled")
	}

	if cfg.Config.RateLimiting.Enabled && cfg.RateLimitStore != nil {
		rateLimiting, err := middleware.RateLimiting(cfg.Config.RateLimiting, cfg.RateLimitStore, cfg.Logger)
		if err != nil {
			return nil, fmt.Errorf("creating rate limiter: %w", err)
		}

		router.Use(rateLimiting)
	}

	router.Use(middleware.Compression(cfg.Config.Compression, cfg.MetricsClient))

	updates := []func(http.Handler) http.Handler{}
	if cfg.Config.Idempotency.Enabled && cfg.IdempotencyCache != nil {
		updates = append(updates, middleware.Idempotency(cfg.IdempotencyCache, cfg.Config.Idempotency, cfg.Logger))
	}

	customers := handlers.NewCustomerHandler(cfg.App, cfg.Logger)
	health := handlers.NewHealthHandler(cfg.App, cfg.Logger)

	router.Route(baseURL, func(r chi.Router) {
		r.Get("/health", health.Readiness)
		r.Get("/liveness", health.Liveness)
		r.Get("/readiness", health.Readiness)

		r.Route("/customers", func(r chi.Router) {
			r.With(middleware.ConditionalGET()).Get("/", customers.SearchCustomers)
			r.With(middleware.ConditionalGET()).Get("/{id}", customers.GetCustomer)
			r.With(updates...).Patch("/", customers.UpdateCustomers)
		})
	})

	if cfg.Config.Telemetry.Metrics.Enabled {
		router.Handle("/metrics", cfg.MetricsClient.Handler())
	}

	return router, nil
}
