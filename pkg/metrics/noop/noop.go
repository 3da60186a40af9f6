// Package noop provides the metrics client used when collection is disabled.
package noop

import (
	"context"
	"net/http"

	"github.com/architeacher/smartsearch/pkg/metrics"
	"go.opentelemetry.io/otel/attribute"
)

var _ metrics.Client = MetricsClient{}

type MetricsClient struct{}

func NewMetricsClient() MetricsClient {
	return MetricsClient{}
}

func (MetricsClient) Inc(context.Context, string, any, ...attribute.KeyValue) {}

// Handler answers 404 so a scraper can tell that collection is disabled.
func (MetricsClient) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "metrics collection is disabled", http.StatusNotFound)
	})
}

func (MetricsClient) Shutdown(context.Context) error {
	return nil
}
