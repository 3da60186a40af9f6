package config

import "time"

// Compile time variables are set by -ldflags.
var (
	ServiceVersion string
	CommitSHA      string
)

const (
	Development = 1 << iota
	Sandbox
	Staging
	Production
)

const (
	StoragePostgres = "postgres"
	StorageMongo    = "mongo"
	StorageMemory   = "memory"
)

type (
	ServiceConfig struct {
		App            App            `json:"app"`
		HTTPServer     HTTPServer     `json:"http_server"`
		RateLimiting   RateLimiting   `json:"rate_limiting"`
		Compression    Compression    `json:"compression"`
		Storage        Storage        `json:"storage"`
		ConnectRetry   Backoff        `json:"connect_retry"`
		Database       Database       `json:"database"`
		Mongo          Mongo          `json:"mongo"`
		CircuitBreaker CircuitBreaker `json:"circuit_breaker"`
		Cache          Cache          `json:"cache"`
		SearchCache    SearchCache    `json:"search_cache"`
		Idempotency    Idempotency    `json:"idempotency"`
		Search         Search         `json:"search"`
		Logging        Logging        `json:"logging"`
		Telemetry      Telemetry      `json:"telemetry"`
	}

	App struct {
		ServiceName    string      `envconfig:"APP_SERVICE_NAME" default:"svc-search" json:"service_name"`
		APIVersion     string      `envconfig:"APP_API_VERSION" default:"v1" json:"api_version"`
		ServiceVersion string      `envconfig:"APP_SERVICE_VERSION" default:"dev" json:"service_version"`
		CommitSHA      string      `envconfig:"APP_COMMIT_SHA" default:"" json:"commit_sha,omitempty"`
		Env            Environment `json:"environment"`
	}

	Environment struct {
		Name string `envconfig:"APP_ENVIRONMENT" default:"development" json:"env"`
	}

	HTTPServer struct {
		Host            string        `envconfig:"HTTP_SERVER_HOST" default:"0.0.0.0" json:"host"`
		Port            uint          `envconfig:"HTTP_SERVER_PORT" default:"8080" json:"port"`
		ReadTimeout     time.Duration `envconfig:"HTTP_READ_TIMEOUT" default:"15s" json:"read_timeout"`
		WriteTimeout    time.Duration `envconfig:"HTTP_WRITE_TIMEOUT" default:"15s" json:"write_timeout"`
		IdleTimeout     time.Duration `envconfig:"HTTP_IDLE_TIMEOUT" default:"60s" json:"idle_timeout"`
		RequestTimeout  time.Duration `envconfig:"HTTP_REQUEST_TIMEOUT" default:"10s" json:"request_timeout"`
		ShutdownTimeout time.Duration `envconfig:"HTTP_SHUTDOWN_TIMEOUT" default:"30s" json:"shutdown_timeout"`
	}

	// RateLimiting throttles search requests per client IP with GCRA. The
	// state lives in the shared cache when it is enabled, in memory otherwise.
	RateLimiting struct {
		Enabled           bool     `envconfig:"RATE_LIMITING_ENABLED" default:"true" json:"enabled"`
		RequestsPerSecond uint     `envconfig:"RATE_LIMITING_REQUESTS_PER_SECOND" default:"20" json:"requests_per_second"`
		BurstSize         uint     `envconfig:"RATE_LIMITING_BURST_SIZE" default:"40" json:"burst_size"`
		MaxKeys           uint     `envconfig:"RATE_LIMITING_MAX_KEYS" default:"10000" json:"max_keys"`
		SkipPaths         []string `envconfig:"RATE_LIMITING_SKIP_PATHS" default:"/v1/health,/v1/liveness,/v1/readiness,/metrics" json:"skip_paths"`
		GracefulDegraded  bool     `envconfig:"RATE_LIMITING_GRACEFUL_DEGRADED" default:"true" json:"graceful_degraded"`
	}

	Compression struct {
		Enabled   bool     `envconfig:"COMPRESSION_ENABLED" default:"true" json:"enabled"`
		Level     int      `envconfig:"COMPRESSION_LEVEL" default:"5" json:"level"`
		MinSize   int      `envconfig:"COMPRESSION_MIN_SIZE" default:"1024" json:"min_size"`
		SkipPaths []string `envconfig:"COMPRESSION_SKIP_PATHS" default:"/v1/health,/v1/liveness,/v1/readiness,/metrics" json:"skip_paths"`
	}

	// Backoff bounds the retries of the storage and cache connections at
	// startup.
	Backoff struct {
		MaxRetries uint          `envconfig:"CONNECT_MAX_RETRIES" default:"5" json:"max_retries"`
		BaseDelay  time.Duration `envconfig:"CONNECT_BASE_DELAY" default:"500ms" json:"base_delay"`
		MaxDelay   time.Duration `envconfig:"CONNECT_MAX_DELAY" default:"10s" json:"max_delay"`
		Multiplier float64       `envconfig:"CONNECT_MULTIPLIER" default:"2" json:"multiplier"`
		Jitter     float64       `envconfig:"CONNECT_JITTER" default:"0.2" json:"jitter"`
	}

	// Storage selects the backend the customer searches run against.
	Storage struct {
		Backend string `envconfig:"STORAGE_BACKEND" default:"postgres" json:"backend"`
	}

	Database struct {
		Host            string        `envconfig:"POSTGRES_HOST" default:"postgres" json:"host"`
		Port            uint          `envconfig:"POSTGRES_PORT" default:"5432" json:"port"`
		Database        string        `envconfig:"POSTGRES_DATABASE" default:"smartsearch" json:"database"`
		Username        string        `envconfig:"POSTGRES_USERNAME" default:"postgres" json:"username"`
		Password        string        `envconfig:"POSTGRES_PASSWORD" default:"" json:"password,omitempty"`
		SSLMode         string        `envconfig:"POSTGRES_SSL_MODE" default:"disable" json:"ssl_mode"`
		MaxConnections  int           `envconfig:"POSTGRES_MAX_CONNECTIONS" default:"25" json:"max_connections"`
		MinConnections  int           `envconfig:"POSTGRES_MIN_CONNECTIONS" default:"5" json:"min_connections"`
		ConnectTimeout  time.Duration `envconfig:"POSTGRES_CONNECT_TIMEOUT" default:"10s" json:"connect_timeout"`
		MaxConnLifetime time.Duration `envconfig:"POSTGRES_MAX_CONN_LIFETIME" default:"1h" json:"max_conn_lifetime"`
		MaxConnIdleTime time.Duration `envconfig:"POSTGRES_MAX_CONN_IDLE_TIME" default:"30m" json:"max_conn_idle_time"`
	}

	Mongo struct {
		URI            string        `envconfig:"MONGO_URI" default:"mongodb://mongo:27017" json:"uri"`
		Database       string        `envconfig:"MONGO_DATABASE" default:"smartsearch" json:"database"`
		Collection     string        `envconfig:"MONGO_COLLECTION" default:"customers" json:"collection"`
		ConnectTimeout time.Duration `envconfig:"MONGO_CONNECT_TIMEOUT" default:"10s" json:"connect_timeout"`
	}

	CircuitBreaker struct {
		Enabled          bool          `envconfig:"STORAGE_CB_ENABLED" default:"true" json:"enabled"`
		MaxRequests      uint          `envconfig:"STORAGE_CB_MAX_REQUESTS" default:"5" json:"max_requests"`
		Interval         time.Duration `envconfig:"STORAGE_CB_INTERVAL" default:"60s" json:"interval"`
		Timeout          time.Duration `envconfig:"STORAGE_CB_TIMEOUT" default:"30s" json:"timeout"`
		FailureThreshold uint          `envconfig:"STORAGE_CB_FAILURE_THRESHOLD" default:"5" json:"failure_threshold"`
	}

	Cache struct {
		Address      string        `envconfig:"CACHE_ADDRESS" default:"keydb:6379" json:"address"`
		Password     string        `envconfig:"CACHE_PASSWORD" default:"" json:"password,omitempty"`
		DB           uint          `envconfig:"CACHE_DB" default:"0" json:"db"`
		PoolSize     uint          `envconfig:"CACHE_POOL_SIZE" default:"10" json:"pool_size"`
		MinIdleConns uint          `envconfig:"CACHE_MIN_IDLE_CONNS" default:"3" json:"min_idle_conns"`
		DialTimeout  time.Duration `envconfig:"CACHE_DIAL_TIMEOUT" default:"5s" json:"dial_timeout"`
		ReadTimeout  time.Duration `envconfig:"CACHE_READ_TIMEOUT" default:"3s" json:"read_timeout"`
		WriteTimeout time.Duration `envconfig:"CACHE_WRITE_TIMEOUT" default:"3s" json:"write_timeout"`
		PoolTimeout  time.Duration `envconfig:"CACHE_POOL_TIMEOUT" default:"5s" json:"pool_timeout"`
		MaxRetries   uint          `envconfig:"CACHE_MAX_RETRIES" default:"3" json:"max_retries"`
	}

	// SearchCache controls caching of search results in the shared cache.
	SearchCache struct {
		Enabled   bool          `envconfig:"SEARCH_CACHE_ENABLED" default:"false" json:"enabled"`
		ListTTL   time.Duration `envconfig:"SEARCH_CACHE_LIST_TTL" default:"1m" json:"list_ttl"`
		RecordTTL time.Duration `envconfig:"SEARCH_CACHE_RECORD_TTL" default:"5m" json:"record_ttl"`
	}

	// Idempotency replays the stored response of a customer update sent again
	// with the same key. It needs the shared cache.
	Idempotency struct {
		Enabled          bool          `envconfig:"IDEMPOTENCY_ENABLED" default:"true" json:"enabled"`
		HeaderName       string        `envconfig:"IDEMPOTENCY_HEADER_NAME" default:"Idempotency-Key" json:"header_name"`
		ReplayedHeader   string        `envconfig:"IDEMPOTENCY_REPLAYED_HEADER" default:"Idempotent-Replayed" json:"replayed_header"`
		CacheTTL         time.Duration `envconfig:"IDEMPOTENCY_CACHE_TTL" default:"24h" json:"cache_ttl"`
		LockTTL          time.Duration `envconfig:"IDEMPOTENCY_LOCK_TTL" default:"30s" json:"lock_ttl"`
		GracefulDegraded bool          `envconfig:"IDEMPOTENCY_GRACEFUL_DEGRADED" default:"true" json:"graceful_degraded"`
	}

	Search struct {
		DefaultItemsPerPage int    `envconfig:"SEARCH_DEFAULT_ITEMS_PER_PAGE" default:"10" json:"default_items_per_page"`
		MaxItemsPerPage     int    `envconfig:"SEARCH_MAX_ITEMS_PER_PAGE" default:"100" json:"max_items_per_page"`
		DefaultSortKey      string `envconfig:"SEARCH_DEFAULT_SORT_KEY" default:"Id" json:"default_sort_key"`
		Count               bool   `envconfig:"SEARCH_COUNT" default:"true" json:"count"`
		OrSplit             bool   `envconfig:"SEARCH_OR_SPLIT" default:"true" json:"or_split"`
	}

	Logging struct {
		Level     string    `envconfig:"LOG_LEVEL" default:"info" json:"level"`
		Format    string    `envconfig:"LOG_FORMAT" default:"json" json:"format"`
		AccessLog AccessLog `json:"access_log"`
	}

	AccessLog struct {
		Enabled            bool `envconfig:"ACCESS_LOG_ENABLED" default:"true" json:"enabled"`
		LogHealthChecks    bool `envconfig:"ACCESS_LOG_HEALTH_CHECKS" default:"false" json:"log_health_checks"`
		IncludeQueryParams bool `envconfig:"ACCESS_LOG_INCLUDE_QUERY_PARAMS" default:"true" json:"include_query_params"`
	}

	Telemetry struct {
		Enabled        bool    `envconfig:"OTEL_ENABLED" default:"false" json:"enabled"`
		ExporterType   string  `envconfig:"OTEL_EXPORTER" default:"grpc" json:"exporter_type"`
		OTLPEndpoint   string  `envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT" default:"" json:"otlp_endpoint"`
		ServiceName    string  `envconfig:"OTEL_SERVICE_NAME" default:"svc-search" json:"service_name"`
		ServiceVersion string  `envconfig:"OTEL_SERVICE_VERSION" default:"1.0.0" json:"service_version"`
		Metrics        Metrics `json:"metrics"`
		Traces         Traces  `json:"traces"`
	}

	Metrics struct {
		Enabled bool `envconfig:"METRICS_ENABLED" default:"false" json:"enabled"`
	}

	Traces struct {
		Enabled      bool    `envconfig:"TRACES_ENABLED" default:"false" json:"enabled"`
		SamplerRatio float64 `envconfig:"TRACES_SAMPLER_RATIO" default:"1.0" json:"sampler_ratio"`
	}
)

func (c *ServiceConfig) GetEnvironment() int {
	switch c.App.Env.Name {
	case "production", "prod":
		return Production
	case "staging", "stg":
		return Staging
	case "sandbox", "sbx":
		return Sandbox
	default:
		return Development
	}
}

func (c *ServiceConfig) IsProduction() bool {
	return c.GetEnvironment() == Production
}
