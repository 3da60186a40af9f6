package http_test

import (
	"compress/gzip"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/architeacher/smartsearch/pkg/logger"
	"github.com/architeacher/smartsearch/pkg/metrics/noop"
	"github.com/architeacher/smartsearch/pkg/search"
	"github.com/architeacher/smartsearch/pkg/search/sorting"
	inboundhttp "github.com/architeacher/smartsearch/services/svc-search/internal/adapters/inbound/http"
	"github.com/architeacher/smartsearch/services/svc-search/internal/adapters/inbound/http/handlers"
	"github.com/architeacher/smartsearch/services/svc-search/internal/adapters/inbound/http/middleware"
	"github.com/architeacher/smartsearch/services/svc-search/internal/adapters/repos"
	"github.com/architeacher/smartsearch/services/svc-search/internal/adapters/services"
	"github.com/architeacher/smartsearch/services/svc-search/internal/config"
	"github.com/architeacher/smartsearch/services/svc-search/internal/domain/model"
	"github.com/architeacher/smartsearch/services/svc-search/internal/infrastructure"
	"github.com/architeacher/smartsearch/services/svc-search/internal/usecases"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/throttled/throttled/v2/store/memstore"
	otelNoop "go.opentelemetry.io/otel/trace/noop"
)

type envelope[T any] struct {
	Data T                     `json:"data"`
	Meta handlers.ResponseMeta `json:"meta"`
}

func ptr[T any](v T) *T { return &v }

func testConfig() *config.ServiceConfig {
	return &config.ServiceConfig{
		App:        config.App{ServiceName: "svc-search"},
		HTTPServer: config.HTTPServer{RequestTimeout: 5 * time.Second},
		Search: config.Search{
			DefaultItemsPerPage: 10,
			MaxItemsPerPage:     50,
			DefaultSortKey:      sorting.DefaultKey,
			Count:               true,
			OrSplit:             true,
		},
		Compression: config.Compression{Enabled: true, Level: 5, MinSize: 64},
	}
}

func newRouter(t *testing.T, cfg *config.ServiceConfig, opts ...func(*inboundhttp.RouterConfig)) http.Handler {
	t.Helper()

	log := logger.NewTestLogger()
	mc := noop.NewMetricsClient()
	tp := otelNoop.NewTracerProvider()

	repo := repos.NewMemoryCustomersRepository(
		model.Customer{ID: 1, FirstName: "Anna", LastName: "Berg", Age: 31, Status: model.StatusActive,
			Address: model.Address{City: "Oslo", Country: "NO"}},
		model.Customer{ID: 2, FirstName: "Ben", LastName: "Olsen", Age: 17, Status: model.StatusActive,
			Address: model.Address{City: "Bergen", Country: "NO"}},
		model.Customer{ID: 3, FirstName: "Cecilie", LastName: "Dahl", Age: 40, Status: model.StatusSuspended,
			Email: ptr("cecilie@dahl.no"), Address: model.Address{City: "Malmo", Country: "SE"}},
		model.Customer{ID: 4, FirstName: "Jan", LastName: "Hansen", Age: 45, Status: model.StatusInactive,
			Address: model.Address{Street: "Main St 4", City: "Oslo", Country: "NO"}},
	)

	engine := infrastructure.NewSearchEngine(cfg.Search, log, mc)
	checker := services.NewHealthChecker(time.Second, services.Dependency{Name: "storage", Pinger: repo, Critical: true})
	app := usecases.NewWebApplication(engine, repo, checker, usecases.QueryCaches{}, cfg.SearchCache, log, mc, tp)

	routerConfig := inboundhttp.RouterConfig{
		App:            app,
		Logger:         log,
		MetricsClient:  mc,
		TracerProvider: tp,
		Config:         cfg,
	}

	for _, opt := range opts {
		opt(&routerConfig)
	}

	router, err := inboundhttp.NewRouter(routerConfig)
	require.NoError(t, err)

	return router
}

func ids(items []model.CustomerSummary) []int64 {
	out := make([]int64, 0, len(items))
	for _, item := range items {
		out = append(out, item.ID)
	}

	return out
}

func TestRouter_SearchCustomers(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		query    string
		expected []int64
		count    int
		pages    int
		sortings []sorting.Sorting
	}{
		{
			name:     "no filter pages with the default sort",
			query:    "",
			expected: []int64{1, 2, 3, 4},
			count:    4,
			pages:    1,
			sortings: []sorting.Sorting{sorting.Asc(sorting.DefaultKey)},
		},
		{
			name:     "city sorted by age descending",
			query:    "city=Oslo&orderby=-Age&size=1",
			expected: []int64{4},
			count:    2,
			pages:    2,
			sortings: []sorting.Sorting{sorting.Desc("Age")},
		},
		{
			name:     "repeated status parameters",
			query:    "status=active&status=suspended&orderby=LastName%20asc",
			expected: []int64{1, 3, 2},
			count:    3,
			pages:    1,
			sortings: []sorting.Sorting{sorting.Asc("LastName")},
		},
		{
			name:     "full text search",
			query:    "q=dahl.no",
			expected: []int64{3},
			count:    1,
			pages:    1,
			sortings: []sorting.Sorting{sorting.Asc(sorting.DefaultKey)},
		},
		{
			name:     "first or last name",
			query:    "name=en",
			expected: []int64{2, 4},
			count:    2,
			pages:    1,
			sortings: []sorting.Sorting{sorting.Asc(sorting.DefaultKey)},
		},
		{
			name:     "city or country",
			query:    "city=Bergen&country=SE&orderby=age-desc",
			expected: []int64{3, 2},
			count:    2,
			pages:    1,
			sortings: []sorting.Sorting{sorting.Desc("age")},
		},
		{
			name:     "age range without a status",
			query:    "min_age=18&max_age=45&exclude_status=suspended&page=2&size=1",
			expected: []int64{4},
			count:    2,
			pages:    2,
			sortings: []sorting.Sorting{sorting.Asc(sorting.DefaultKey)},
		},
		{
			name:     "street of the nested address filter",
			query:    "street=Main",
			expected: []int64{4},
			count:    1,
			pages:    1,
			sortings: []sorting.Sorting{sorting.Asc(sorting.DefaultKey)},
		},
	}

	router := newRouter(t, testConfig())

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(http.MethodGet, "/v1/customers?"+tc.query, nil)
			req.Header.Set(middleware.RequestIDHeader, "req-search")
			rec := httptest.NewRecorder()

			router.ServeHTTP(rec, req)

			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			assert.Equal(t, "BYPASS", rec.Header().Get(middleware.CacheStatusHeader))
			assert.NotEmpty(t, rec.Header().Get("ETag"))

			var body envelope[search.ResultList[model.CustomerSummary]]
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

			assert.Equal(t, tc.expected, ids(body.Data.Items))
			assert.Equal(t, tc.count, body.Data.Count)
			assert.Equal(t, tc.pages, body.Data.Pages)
			assert.Equal(t, tc.sortings, body.Data.Sortings)
			assert.Equal(t, "req-search", body.Meta.RequestID)
			assert.Equal(t, "v1", body.Meta.APIVersion)
		})
	}
}

func TestRouter_SearchCustomers_BadRequests(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		query string
		code  string
	}{
		{name: "unknown sort key", query: "orderby=Shoe", code: "INVALID_SORTING"},
		{name: "unknown direction", query: "orderby=Age%20sideways", code: "INVALID_SORTING"},
		{name: "negative page size", query: "size=-1", code: "INVALID_PARAMETERS"},
		{name: "malformed number", query: "min_age=old", code: "INVALID_PARAMETERS"},
		{name: "negative age", query: "min_age=-3", code: "INVALID_PARAMETERS"},
		{name: "malformed date", query: "created_from=yesterday", code: "INVALID_PARAMETERS"},
	}

	router := newRouter(t, testConfig())

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/customers?"+tc.query, nil))

			require.Equal(t, http.StatusBadRequest, rec.Code)

			var body handlers.ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			require.Equal(t, tc.code, body.Code)
		})
	}
}

func TestRouter_GetCustomer(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		path   string
		status int
	}{
		{name: "existing customer", path: "/v1/customers/3", status: http.StatusOK},
		{name: "unknown customer", path: "/v1/customers/99", status: http.StatusNotFound},
		{name: "malformed id", path: "/v1/customers/abc", status: http.StatusBadRequest},
		{name: "non positive id", path: "/v1/customers/0", status: http.StatusBadRequest},
	}

	router := newRouter(t, testConfig())

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tc.path, nil))

			require.Equal(t, tc.status, rec.Code)

			if tc.status != http.StatusOK {
				return
			}

			var body envelope[model.Customer]
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			require.Equal(t, "Cecilie", body.Data.FirstName)
			require.Equal(t, "cecilie@dahl.no", *body.Data.Email)
		})
	}
}

func TestRouter_GetCustomer_NotModified(t *testing.T) {
	t.Parallel()

	router := newRouter(t, testConfig())

	first := httptest.NewRecorder()
	router.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/v1/customers/1", nil))
	require.Equal(t, http.StatusOK, first.Code)

	req := httptest.NewRequest(http.MethodGet, "/v1/customers/1", nil)
	req.Header.Set("If-None-Match", first.Header().Get("ETag"))

	second := httptest.NewRecorder()
	router.ServeHTTP(second, req)
	require.Equal(t, http.StatusNotModified, second.Code)
	require.Empty(t, second.Body.String())
}

func TestRouter_UpdateCustomers(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		body   string
		status int
		code   string
		verify func(t *testing.T, router http.Handler)
	}{
		{
			name:   "applies every patch",
			body:   `{"patches":[{"id":2,"status":"inactive"},{"id":1,"age":32,"city":"Bergen"}]}`,
			status: http.StatusOK,
			verify: func(t *testing.T, router http.Handler) {
				rec := httptest.NewRecorder()
				router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/customers?city=Bergen&orderby=Id", nil))

				var body envelope[search.ResultList[model.CustomerSummary]]
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
				require.Equal(t, []int64{1, 2}, ids(body.Data.Items))
				require.Equal(t, model.StatusInactive, body.Data.Items[1].Status)
			},
		},
		{
			name:   "unknown customer",
			body:   `{"patches":[{"id":1,"age":50},{"id":42,"age":50}]}`,
			status: http.StatusNotFound,
			code:   "NOT_FOUND",
		},
		{
			name:   "unknown status",
			body:   `{"patches":[{"id":1,"status":"archived"}]}`,
			status: http.StatusBadRequest,
			code:   "INVALID_PARAMETERS",
		},
		{
			name:   "invalid email",
			body:   `{"patches":[{"id":1,"email":"not-an-email"}]}`,
			status: http.StatusBadRequest,
			code:   "INVALID_JSON",
		},
		{
			name:   "empty patch list",
			body:   `{"patches":[]}`,
			status: http.StatusBadRequest,
			code:   "INVALID_JSON",
		},
		{
			name:   "malformed body",
			body:   `{"patches":`,
			status: http.StatusBadRequest,
			code:   "INVALID_JSON",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			router := newRouter(t, testConfig())

			req := httptest.NewRequest(http.MethodPatch, "/v1/customers", strings.NewReader(tc.body))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()

			router.ServeHTTP(rec, req)

			require.Equal(t, tc.status, rec.Code, rec.Body.String())

			if tc.code != "" {
				var body handlers.ErrorResponse
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
				require.Equal(t, tc.code, body.Code)
			}

			if tc.verify != nil {
				tc.verify(t, router)
			}
		})
	}
}

func TestRouter_Health(t *testing.T) {
	t.Parallel()

	router := newRouter(t, testConfig())

	for _, path := range []string{"/v1/health", "/v1/liveness", "/v1/readiness"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

		require.Equal(t, http.StatusOK, rec.Code, path)

		var body map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.Equal(t, "ok", body["status"], path)
	}
}

func TestRouter_RateLimiting(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.RateLimiting = config.RateLimiting{
		Enabled:           true,
		RequestsPerSecond: 1,
		SkipPaths:         []string{"/v1/liveness"},
	}

	store, err := memstore.NewCtx(10)
	require.NoError(t, err)

	router := newRouter(t, cfg, func(rc *inboundhttp.RouterConfig) {
		rc.RateLimitStore = store
	})

	statuses := make([]int, 0, 3)

	for range 3 {
		req := httptest.NewRequest(http.MethodGet, "/v1/customers/1", nil)
		req.RemoteAddr = "10.1.1.1:4000"
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		statuses = append(statuses, rec.Code)
	}

	require.Equal(t, []int{http.StatusOK, http.StatusTooManyRequests, http.StatusTooManyRequests}, statuses)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/liveness", nil)
	req.RemoteAddr = "10.1.1.1:4000"
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_IdempotentUpdates(t *testing.T) {
	t.Parallel()

	server := miniredis.RunT(t)
	client := infrastructure.NewKeyDBClient(config.Cache{Address: server.Addr()}, logger.NewTestLogger())
	t.Cleanup(func() { _ = client.Close() })

	cfg := testConfig()
	cfg.Idempotency = config.Idempotency{
		Enabled:        true,
		HeaderName:     "Idempotency-Key",
		ReplayedHeader: "Idempotent-Replayed",
		CacheTTL:       time.Hour,
		LockTTL:        time.Minute,
	}

	router := newRouter(t, cfg, func(rc *inboundhttp.RouterConfig) {
		rc.IdempotencyCache = repos.NewIdempotencyRepository(client)
	})

	send := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPatch, "/v1/customers", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Idempotency-Key", "suspend-ben-000001")

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		return rec
	}

	first := send(`{"patches":[{"id":2,"status":"suspended"}]}`)
	require.Equal(t, http.StatusOK, first.Code)
	require.Empty(t, first.Header().Get("Idempotent-Replayed"))

	second := send(`{"patches":[{"id":2,"status":"suspended"}]}`)
	require.Equal(t, http.StatusOK, second.Code)
	require.Equal(t, "true", second.Header().Get("Idempotent-Replayed"))
	require.Equal(t, first.Body.String(), second.Body.String())

	reused := send(`{"patches":[{"id":1,"status":"suspended"}]}`)
	require.Equal(t, http.StatusUnprocessableEntity, reused.Code)
}

func TestRouter_CompressesSearchResults(t *testing.T) {
	t.Parallel()

	router := newRouter(t, testConfig())

	req := httptest.NewRequest(http.MethodGet, "/v1/customers", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "gzip", rec.Header().Get("Content-Encoding"))

	reader, err := gzip.NewReader(rec.Body)
	require.NoError(t, err)

	raw, err := io.ReadAll(reader)
	require.NoError(t, err)

	var body envelope[search.ResultList[model.CustomerSummary]]
	require.NoError(t, json.Unmarshal(raw, &body))
	require.Len(t, body.Data.Items, 4)
}
