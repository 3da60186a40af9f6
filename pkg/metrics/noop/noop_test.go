package noop_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/architeacher/smartsearch/pkg/metrics/noop"
	"github.com/stretchr/testify/require"
)

func TestMetricsClient(t *testing.T) {
	t.Parallel()

	client := noop.NewMetricsClient()
	client.Inc(context.Background(), "search.query.latency", 5)

	rec := httptest.NewRecorder()
	client.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Contains(t, rec.Body.String(), "disabled")
	require.NoError(t, client.Shutdown(context.Background()))
}
