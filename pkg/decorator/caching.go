package decorator

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/architeacher/smartsearch/pkg/logger"
	"github.com/architeacher/smartsearch/pkg/metrics"
	"go.opentelemetry.io/otel/attribute"
)

type (
	// CacheStatus represents the status of a cache operation.
	CacheStatus string

	cacheStatusKey struct{}

	cacheStatusTrackerKey struct{}

	cacheStatusTracker struct {
		mu     sync.Mutex
		status CacheStatus
	}

	// CacheConfig holds configuration for the caching decorator. Logger and
	// Metrics are optional.
	CacheConfig struct {
		Enabled bool
		TTL     time.Duration
		Logger  *logger.Logger
		Metrics metrics.Client
	}

	CacheGetter[Q Query, R Result] interface {
		Get(ctx context.Context, query Q) (R, bool, error)
	}

	CacheSetter[Q Query, R Result] interface {
		Set(ctx context.Context, query Q, result R, ttl time.Duration) error
	}

	Cache[Q Query, R Result] interface {
		CacheGetter[Q, R]
		CacheSetter[Q, R]
	}

	// Bypasser is implemented by queries that must not be answered from, or
	// stored into, the cache.
	Bypasser interface {
		BypassCache() bool
	}

	queryCachingDecorator[Q Query, R Result] struct {
		base   QueryHandler[Q, R]
		cache  Cache[Q, R]
		config CacheConfig
	}
)

const (
	CacheStatusHit    CacheStatus = "HIT"
	CacheStatusMiss   CacheStatus = "MISS"
	CacheStatusBypass CacheStatus = "BYPASS"
	CacheStatusError  CacheStatus = "ERROR"
)

// WithCacheStatus adds cache status to context.
func WithCacheStatus(ctx context.Context, status CacheStatus) context.Context {
	return context.WithValue(ctx, cacheStatusKey{}, status)
}

// GetCacheStatus retrieves cache status from context.
func GetCacheStatus(ctx context.Context) CacheStatus {
	if status, ok := ctx.Value(cacheStatusKey{}).(CacheStatus); ok {
		return status
	}

	return CacheStatusBypass
}

// TrackCacheStatus returns a context through which caching decorators report
// how they answered, and a func reading the last reported status. Before any
// report the status is BYPASS.
func TrackCacheStatus(ctx context.Context) (context.Context, func() CacheStatus) {
	tracker := &cacheStatusTracker{status: CacheStatusBypass}

	return context.WithValue(ctx, cacheStatusTrackerKey{}, tracker), func() CacheStatus {
		tracker.mu.Lock()
		defer tracker.mu.Unlock()

		return tracker.status
	}
}

func reportCacheStatus(ctx context.Context, status CacheStatus) {
	tracker, ok := ctx.Value(cacheStatusTrackerKey{}).(*cacheStatusTracker)
	if !ok {
		return
	}

	tracker.mu.Lock()
	tracker.status = status
	tracker.mu.Unlock()
}

func NewQueryCachingDecorator[Q Query, R Result](
	base QueryHandler[Q, R],
	cache Cache[Q, R],
	config CacheConfig,
) QueryHandler[Q, R] {
	return queryCachingDecorator[Q, R]{
		base:   base,
		cache:  cache,
		config: config,
	}
}

func (d queryCachingDecorator[Q, R]) Execute(ctx context.Context, query Q) (R, error) {
	if !d.config.Enabled || d.cache == nil || bypass(query) {
		d.count(ctx, query, CacheStatusBypass)

		return d.base.Execute(WithCacheStatus(ctx, CacheStatusBypass), query)
	}

	cached, hit, err := d.cache.Get(ctx, query)

	switch {
	case err != nil:
		d.count(ctx, query, CacheStatusError)
		d.warn(ctx, err, "cache lookup failed")
	case hit:
		d.count(ctx, query, CacheStatusHit)

		return cached, nil
	default:
		d.count(ctx, query, CacheStatusMiss)
	}

	result, err := d.base.Execute(WithCacheStatus(ctx, CacheStatusMiss), query)
	if err != nil {
		var zero R

		return zero, err
	}

	go func() {
		if err := d.cache.Set(context.Background(), query, result, d.config.TTL); err != nil {
			d.warn(ctx, err, "cache store failed")
		}
	}()

	return result, nil
}

func bypass(query any) bool {
	b, ok := query.(Bypasser)

	return ok && b.BypassCache()
}

func (d queryCachingDecorator[Q, R]) count(ctx context.Context, query Q, status CacheStatus) {
	reportCacheStatus(ctx, status)

	if d.config.Metrics == nil {
		return
	}

	d.config.Metrics.Inc(ctx, "cache."+strings.ToLower(string(status)), 1,
		attribute.String("query.name", actionName(query)),
	)
}

func (d queryCachingDecorator[Q, R]) warn(ctx context.Context, err error, msg string) {
	if d.config.Logger == nil {
		return
	}

	log := d.config.Logger.WithContext(ctx)
	log.Warn().Err(err).Msg(msg)
}
