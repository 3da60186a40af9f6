package decorator

import (
	"context"
	"fmt"
	"strings"

	"github.com/architeacher/smartsearch/pkg/logger"
	"github.com/architeacher/smartsearch/pkg/metrics"
	otelTrace "go.opentelemetry.io/otel/trace"
)

type (
	Query  any
	Result any

	QueryHandler[Q Query, R Result] interface {
		Execute(ctx context.Context, query Q) (R, error)
	}

	// QueryHandlerFunc adapts a function to a QueryHandler.
	QueryHandlerFunc[Q Query, R Result] func(ctx context.Context, query Q) (R, error)
)

func (f QueryHandlerFunc[Q, R]) Execute(ctx context.Context, query Q) (R, error) {
	return f(ctx, query)
}

// ApplyQueryDecorators wraps handler so that every execution is logged,
// measured and traced, in that order from the outside in.
func ApplyQueryDecorators[Q Query, R Result](
	handler QueryHandler[Q, R],
	log logger.Logger,
	metricsClient metrics.Client,
	tracerProvider otelTrace.TracerProvider,
) QueryHandler[Q, R] {
	return queryLoggingDecorator[Q, R]{
		base: queryMetricsDecorator[Q, R]{
			base: queryTracingDecorator[Q, R]{
				base:           handler,
				tracerProvider: tracerProvider,
			},
			client: metricsClient,
		},
		logger: log,
	}
}

// actionName is the unqualified type name of a query or command value.
func actionName(v any) string {
	name := fmt.Sprintf("%T", v)
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[i+1:]
	}

	return strings.TrimPrefix(name, "*")
}
