package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/architeacher/smartsearch/pkg/metrics"
	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
)

const (
	httpMethodKey     = "http.method"
	httpRouteKey      = "http.route"
	httpStatusCodeKey = "http.status_code"

	httpRequestTotal    = "http.requests"
	httpRequestDuration = "http.request.duration"

	// CacheStatusHeader reports whether a response was served from the
	// search cache.
	CacheStatusHeader = "X-Cache"
)

// Metrics counts requests and their latency per route pattern.
func Metrics(client metrics.Client) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := NewStatusRecorder(w)

			next.ServeHTTP(wrapped, r)

			route := r.URL.Path
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				route = rctx.RoutePattern()
			}

			attrs := []attribute.KeyValue{
				attribute.String(httpMethodKey, r.Method),
				attribute.String(httpRouteKey, route),
				attribute.String(httpStatusCodeKey, strconv.Itoa(wrapped.StatusCode())),
			}

			client.Inc(r.Context(), httpRequestTotal, int64(1), attrs...)
			client.Inc(r.Context(), httpRequestDuration, time.Since(start).Seconds(), attrs...)
		})
	}
}
