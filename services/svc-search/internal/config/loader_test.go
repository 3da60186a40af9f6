package config

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit(t *testing.T) {
	t.Setenv("APP_ENVIRONMENT", "sandbox")
	t.Setenv("APP_SERVICE_NAME", "svc-search")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("STORAGE_BACKEND", "mongo")
	t.Setenv("SEARCH_OR_SPLIT", "false")

	cfg, err := Init()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "sandbox", cfg.App.Env.Name)
	assert.Equal(t, "svc-search", cfg.App.ServiceName)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, StorageMongo, cfg.Storage.Backend)
	assert.False(t, cfg.Search.OrSplit)
}

func TestInit_DefaultValues(t *testing.T) {
	cfg, err := Init()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	// App defaults
	assert.Equal(t, "svc-search", cfg.App.ServiceName)
	assert.Equal(t, "v1", cfg.App.APIVersion)

	// HTTPServer defaults
	assert.Equal(t, "0.0.0.0", cfg.HTTPServer.Host)
	assert.Equal(t, uint(8080), cfg.HTTPServer.Port)

	// Search defaults
	assert.Equal(t, StoragePostgres, cfg.Storage.Backend)
	assert.Equal(t, 10, cfg.Search.DefaultItemsPerPage)
	assert.Equal(t, 100, cfg.Search.MaxItemsPerPage)
	assert.Equal(t, "Id", cfg.Search.DefaultSortKey)
	assert.True(t, cfg.Search.Count)
	assert.True(t, cfg.Search.OrSplit)
	assert.False(t, cfg.SearchCache.Enabled)
	assert.True(t, cfg.CircuitBreaker.Enabled)

	// HTTP surface defaults
	assert.True(t, cfg.RateLimiting.Enabled)
	assert.Equal(t, uint(20), cfg.RateLimiting.RequestsPerSecond)
	assert.Contains(t, cfg.RateLimiting.SkipPaths, "/v1/readiness")
	assert.Equal(t, 5, cfg.Compression.Level)
	assert.Equal(t, uint(5), cfg.ConnectRetry.MaxRetries)
	assert.Equal(t, "Idempotency-Key", cfg.Idempotency.HeaderName)
	assert.Equal(t, 24*time.Hour, cfg.Idempotency.CacheTTL)
}

func TestInit_Invalid(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
	}{
		{
			name: "unknown backend",
			env:  map[string]string{"STORAGE_BACKEND": "cassandra"},
		},
		{
			name: "non positive page size",
			env:  map[string]string{"SEARCH_DEFAULT_ITEMS_PER_PAGE": "0"},
		},
		{
			name: "cap below default",
			env: map[string]string{
				"SEARCH_DEFAULT_ITEMS_PER_PAGE": "50",
				"SEARCH_MAX_ITEMS_PER_PAGE":     "20",
			},
		},
		{
			name: "compression level out of range",
			env:  map[string]string{"COMPRESSION_LEVEL": "12"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			for k, v := range tc.env {
				t.Setenv(k, v)
			}

			_, err := Init()
			require.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestGetEnvironment(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		env      string
		expected int
	}{
		{
			name:     "production",
			env:      "production",
			expected: Production,
		},
		{
			name:     "prod shorthand",
			env:      "prod",
			expected: Production,
		},
		{
			name:     "staging",
			env:      "staging",
			expected: Staging,
		},
		{
			name:     "sandbox",
			env:      "sbx",
			expected: Sandbox,
		},
		{
			name:     "development default",
			env:      "local",
			expected: Development,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			cfg := &ServiceConfig{App: App{Env: Environment{Name: tc.env}}}

			assert.Equal(t, tc.expected, cfg.GetEnvironment())
			assert.Equal(t, tc.expected == Production, cfg.IsProduction())
		})
	}
}

func TestLoader_Reload(t *testing.T) {
	cfg, err := Init()
	require.NoError(t, err)

	loader := NewLoader(cfg)

	t.Setenv("SEARCH_MAX_ITEMS_PER_PAGE", "250")
	require.NoError(t, loader.Reload())
	assert.Equal(t, 250, loader.Current().Search.MaxItemsPerPage)

	t.Setenv("STORAGE_BACKEND", "cassandra")
	require.ErrorIs(t, loader.Reload(), ErrInvalidConfig)
	assert.Equal(t, 250, loader.Current().Search.MaxItemsPerPage, "failed reloads keep the previous config")
}

func TestLoader_DumpConfig(t *testing.T) {
	cfg, err := Init()
	require.NoError(t, err)

	var buf bytes.Buffer

	loader := NewLoader(cfg)
	loader.out = &buf
	loader.DumpConfig()

	assert.Contains(t, buf.String(), "=== Configuration Dump ===")
	assert.Contains(t, buf.String(), `"service_name": "svc-search"`)
}
