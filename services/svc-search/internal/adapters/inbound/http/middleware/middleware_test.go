package middleware_test

import (
	"bytes"
	"compress/gzip"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/andybalholm/brotli"
	"github.com/architeacher/smartsearch/pkg/logger"
	"github.com/architeacher/smartsearch/pkg/metrics"
	"github.com/architeacher/smartsearch/services/svc-search/internal/adapters/inbound/http/middleware"
	"github.com/architeacher/smartsearch/services/svc-search/internal/config"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/throttled/throttled/v2/store/memstore"
)

func okHandler(body string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(body))
	})
}

func TestRequestID(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name          string
		requestID     string
		correlationID string
	}{
		{name: "generates a request id"},
		{name: "keeps the client request id", requestID: "req-1"},
		{name: "echoes the correlation id", requestID: "req-2", correlationID: "corr-1"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			var seen string

			handler := middleware.RequestID()(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
				seen = middleware.GetRequestID(r.Context())
			}))

			req := httptest.NewRequest(http.MethodGet, "/v1/customers", nil)
			if tc.requestID != "" {
				req.Header.Set(middleware.RequestIDHeader, tc.requestID)
			}
			if tc.correlationID != "" {
				req.Header.Set(middleware.CorrelationIDHeader, tc.correlationID)
			}

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			require.NotEmpty(t, seen)
			require.Equal(t, seen, rec.Header().Get(middleware.RequestIDHeader))

			if tc.requestID != "" {
				require.Equal(t, tc.requestID, seen)
			}

			require.Equal(t, tc.correlationID, rec.Header().Get(middleware.CorrelationIDHeader))
		})
	}
}

func TestRecovery(t *testing.T) {
	t.Parallel()

	var logs bytes.Buffer

	handler := middleware.Recovery(logger.NewBufferedTestLogger(&logs))(
		http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			panic(errors.New("boom"))
		}),
	)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/customers", nil))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Contains(t, rec.Body.String(), "INTERNAL_ERROR")
	require.Contains(t, logs.String(), "panic recovered")
	require.Contains(t, logs.String(), "boom")
}

func TestAccessLogger(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name      string
		path      string
		status    int
		cfg       middleware.AccessLogConfig
		expectLog bool
		level     string
	}{
		{
			name:      "logs a search",
			path:      "/v1/customers?city=Oslo",
			status:    http.StatusOK,
			cfg:       middleware.AccessLogConfig{IncludeQueryParams: true},
			expectLog: true,
			level:     `"level":"info"`,
		},
		{
			name:      "client error at warn level",
			path:      "/v1/customers?orderby=Shoe",
			status:    http.StatusBadRequest,
			expectLog: true,
			level:     `"level":"warn"`,
		},
		{
			name:   "skips health checks",
			path:   "/v1/readiness",
			status: http.StatusOK,
		},
		{
			name:      "logs health checks when asked to",
			path:      "/v1/liveness",
			status:    http.StatusOK,
			cfg:       middleware.AccessLogConfig{LogHealthChecks: true},
			expectLog: true,
			level:     `"level":"info"`,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			var logs bytes.Buffer

			handler := middleware.AccessLogger(logger.NewBufferedTestLogger(&logs), tc.cfg)(
				http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
					w.Header().Set(middleware.CacheStatusHeader, "MISS")
					w.WriteHeader(tc.status)
				}),
			)

			handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, tc.path, nil))

			if !tc.expectLog {
				require.Empty(t, logs.String())

				return
			}

			require.Contains(t, logs.String(), tc.level)
			require.Contains(t, logs.String(), `"cache":"MISS"`)

			if tc.cfg.IncludeQueryParams {
				require.Contains(t, logs.String(), `"query":"city=Oslo"`)
			}
		})
	}
}

func TestMetrics(t *testing.T) {
	t.Parallel()

	client := metrics.NewOtelClient("svc-search-test")
	t.Cleanup(func() { _ = client.Shutdown(t.Context()) })

	router := chi.NewRouter()
	router.Use(middleware.Metrics(client))
	router.Get("/v1/customers/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	for range 3 {
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/customers/7", nil))
	}

	snapshot, err := client.Snapshot(t.Context())
	require.NoError(t, err)
	require.Equal(t, int64(3), snapshot["http.requests"])
	require.Equal(t, int64(3), snapshot["http.request.duration"])
}

func TestRateLimiting(t *testing.T) {
	t.Parallel()

	cfg := config.RateLimiting{
		Enabled:           true,
		RequestsPerSecond: 1,
		BurstSize:         0,
		SkipPaths:         []string{"/v1/readiness"},
	}

	store, err := memstore.NewCtx(100)
	require.NoError(t, err)

	limit, err := middleware.RateLimiting(cfg, store, logger.NewTestLogger())
	require.NoError(t, err)

	handler := limit(okHandler(`{}`))

	send := func(path, remoteAddr string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.RemoteAddr = remoteAddr
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		return rec
	}

	first := send("/v1/customers", "10.0.0.1:5000")
	require.Equal(t, http.StatusOK, first.Code)
	require.Equal(t, "1", first.Header().Get(middleware.RateLimitLimitHeader))

	second := send("/v1/customers", "10.0.0.1:5001")
	require.Equal(t, http.StatusTooManyRequests, second.Code)
	require.NotEmpty(t, second.Header().Get(middleware.RetryAfterHeader))
	require.Contains(t, second.Body.String(), "RATE_LIMIT_EXCEEDED")

	require.Equal(t, http.StatusOK, send("/v1/customers", "10.0.0.2:5000").Code)
	require.Equal(t, http.StatusOK, send("/v1/readiness", "10.0.0.1:5002").Code)
}

func TestCompression(t *testing.T) {
	t.Parallel()

	large := `{"data":"` + strings.Repeat("customer ", 200) + `"}`

	cases := []struct {
		name           string
		acceptEncoding string
		body           string
		contentType    string
		expectEncoding string
		decode         func(io.Reader) (io.Reader, error)
	}{
		{
			name:           "gzip preferred on equal quality",
			acceptEncoding: "br, gzip",
			body:           large,
			expectEncoding: "gzip",
			decode: func(r io.Reader) (io.Reader, error) {
				return gzip.NewReader(r)
			},
		},
		{
			name:           "brotli by quality",
			acceptEncoding: "gzip;q=0.5, br;q=0.9",
			body:           large,
			expectEncoding: "br",
			decode: func(r io.Reader) (io.Reader, error) {
				return brotli.NewReader(r), nil
			},
		},
		{
			name:           "small bodies stay plain",
			acceptEncoding: "gzip",
			body:           `{"data":[]}`,
		},
		{
			name:           "unsupported encoding",
			acceptEncoding: "deflate",
			body:           large,
		},
		{
			name:           "non json body",
			acceptEncoding: "gzip",
			body:           large,
			contentType:    "application/octet-stream",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			contentType := tc.contentType
			if contentType == "" {
				contentType = "application/json"
			}

			handler := middleware.Compression(config.Compression{Enabled: true, Level: 5, MinSize: 256}, nil)(
				http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
					w.Header().Set("Content-Type", contentType)
					_, _ = w.Write([]byte(tc.body))
				}),
			)

			req := httptest.NewRequest(http.MethodGet, "/v1/customers", nil)
			req.Header.Set("Accept-Encoding", tc.acceptEncoding)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			require.Equal(t, http.StatusOK, rec.Code)
			require.Equal(t, tc.expectEncoding, rec.Header().Get("Content-Encoding"))

			if tc.expectEncoding == "" {
				require.Equal(t, tc.body, rec.Body.String())

				return
			}

			require.Less(t, rec.Body.Len(), len(tc.body))

			reader, err := tc.decode(rec.Body)
			require.NoError(t, err)

			decoded, err := io.ReadAll(reader)
			require.NoError(t, err)
			require.Equal(t, tc.body, string(decoded))
		})
	}
}

func TestConditionalGET(t *testing.T) {
	t.Parallel()

	body := `{"data":{"id":1}}`
	handler := middleware.ConditionalGET()(okHandler(body))

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/v1/customers/1", nil))

	etag := first.Header().Get("ETag")
	require.Equal(t, http.StatusOK, first.Code)
	require.Equal(t, body, first.Body.String())
	require.Equal(t, middleware.ETag([]byte(body)), etag)

	cases := []struct {
		name        string
		ifNoneMatch string
		status      int
	}{
		{name: "matching tag", ifNoneMatch: etag, status: http.StatusNotModified},
		{name: "weak matching tag in a list", ifNoneMatch: `"abc", W/` + etag, status: http.StatusNotModified},
		{name: "wildcard", ifNoneMatch: "*", status: http.StatusNotModified},
		{name: "stale tag", ifNoneMatch: `"abc"`, status: http.StatusOK},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(http.MethodGet, "/v1/customers/1", nil)
			req.Header.Set("If-None-Match", tc.ifNoneMatch)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tc.status, rec.Code)
			assert.Equal(t, etag, rec.Header().Get("ETag"))

			if tc.status == http.StatusNotModified {
				assert.Empty(t, rec.Body.String())
			}
		})
	}

	patch := httptest.NewRecorder()
	handler.ServeHTTP(patch, httptest.NewRequest(http.MethodPatch, "/v1/customers", nil))
	require.Empty(t, patch.Header().Get("ETag"))
}
