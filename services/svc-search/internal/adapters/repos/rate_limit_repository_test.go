package repos_test

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/architeacher/smartsearch/pkg/logger"
	"github.com/architeacher/smartsearch/services/svc-search/internal/adapters/repos"
	"github.com/architeacher/smartsearch/services/svc-search/internal/config"
	"github.com/architeacher/smartsearch/services/svc-search/internal/infrastructure"
	"github.com/stretchr/testify/require"
	"github.com/throttled/throttled/v2"
)

func TestRateLimitStore(t *testing.T) {
	t.Parallel()

	server := miniredis.RunT(t)
	client := infrastructure.NewKeyDBClient(config.Cache{Address: server.Addr()}, logger.NewTestLogger())
	t.Cleanup(func() { _ = client.Close() })

	store := repos.NewRateLimitStore(client)
	ctx := t.Context()

	value, now, err := store.GetWithTime(ctx, "ip:10.0.0.1")
	require.NoError(t, err)
	require.Equal(t, int64(-1), value)
	require.False(t, now.IsZero())

	set, err := store.SetIfNotExistsWithTTL(ctx, "ip:10.0.0.1", 100, time.Minute)
	require.NoError(t, err)
	require.True(t, set)
	require.True(t, server.Exists("ratelimit:v1:ip:10.0.0.1"))

	set, err = store.SetIfNotExistsWithTTL(ctx, "ip:10.0.0.1", 200, time.Minute)
	require.NoError(t, err)
	require.False(t, set)

	swapped, err := store.CompareAndSwapWithTTL(ctx, "ip:10.0.0.1", 999, 300, time.Minute)
	require.NoError(t, err)
	require.False(t, swapped)

	swapped, err = store.CompareAndSwapWithTTL(ctx, "ip:10.0.0.1", 100, 300, time.Minute)
	require.NoError(t, err)
	require.True(t, swapped)

	value, _, err = store.GetWithTime(ctx, "ip:10.0.0.1")
	require.NoError(t, err)
	require.Equal(t, int64(300), value)
}

func TestRateLimitStore_Limits(t *testing.T) {
	t.Parallel()

	server := miniredis.RunT(t)
	client := infrastructure.NewKeyDBClient(config.Cache{Address: server.Addr()}, logger.NewTestLogger())
	t.Cleanup(func() { _ = client.Close() })

	limiter, err := throttled.NewGCRARateLimiterCtx(repos.NewRateLimitStore(client), throttled.RateQuota{
		MaxRate:  throttled.PerMin(1),
		MaxBurst: 0,
	})
	require.NoError(t, err)

	limited, _, err := limiter.RateLimitCtx(t.Context(), "ip:10.0.0.2", 1)
	require.NoError(t, err)
	require.False(t, limited)

	limited, result, err := limiter.RateLimitCtx(t.Context(), "ip:10.0.0.2", 1)
	require.NoError(t, err)
	require.True(t, limited)
	require.Positive(t, result.RetryAfter)
}
