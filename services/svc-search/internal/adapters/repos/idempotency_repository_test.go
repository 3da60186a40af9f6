package repos_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/architeacher/smartsearch/pkg/idempotency"
	"github.com/architeacher/smartsearch/pkg/logger"
	"github.com/architeacher/smartsearch/services/svc-search/internal/adapters/repos"
	"github.com/architeacher/smartsearch/services/svc-search/internal/config"
	"github.com/architeacher/smartsearch/services/svc-search/internal/infrastructure"
	"github.com/stretchr/testify/require"
)

func TestIdempotencyRepository(t *testing.T) {
	t.Parallel()

	server := miniredis.RunT(t)
	client := infrastructure.NewKeyDBClient(config.Cache{Address: server.Addr()}, logger.NewTestLogger())
	t.Cleanup(func() { _ = client.Close() })

	repo := repos.NewIdempotencyRepository(client)
	ctx := t.Context()
	key := idempotency.CacheKey(http.MethodPatch, "/v1/customers", "bulk-update-00000001")

	record, err := repo.Get(ctx, key)
	require.NoError(t, err)
	require.Nil(t, record)

	acquired, err := repo.SetLock(ctx, key, time.Minute)
	require.NoError(t, err)
	require.True(t, acquired)

	acquired, err = repo.SetLock(ctx, key, time.Minute)
	require.NoError(t, err)
	require.False(t, acquired)

	stored := &idempotency.Record{
		Fingerprint: idempotency.Fingerprint([]byte(`{"patches":[]}`)),
		StatusCode:  http.StatusOK,
		Headers:     map[string]string{"Content-Type": "application/json"},
		Body:        []byte(`{"data":[]}`),
		CreatedAt:   time.Now().UTC().Truncate(time.Millisecond),
	}
	require.NoError(t, repo.Set(ctx, key, stored, time.Hour))

	record, err = repo.Get(ctx, key)
	require.NoError(t, err)
	require.Equal(t, stored.Fingerprint, record.Fingerprint)
	require.Equal(t, stored.Body, record.Body)
	require.Equal(t, stored.Headers, record.Headers)
	require.True(t, stored.CreatedAt.Equal(record.CreatedAt))

	require.NoError(t, repo.ReleaseLock(ctx, key))
	require.False(t, server.Exists(idempotency.LockKey(key)))

	acquired, err = repo.SetLock(ctx, key, time.Minute)
	require.NoError(t, err)
	require.True(t, acquired)
}

func TestIdempotencyRepository_CacheDown(t *testing.T) {
	t.Parallel()

	server := miniredis.RunT(t)
	client := infrastructure.NewKeyDBClient(config.Cache{Address: server.Addr()}, logger.NewTestLogger())
	t.Cleanup(func() { _ = client.Close() })

	server.Close()

	_, err := repos.NewIdempotencyRepository(client).Get(t.Context(), "idempotency:v1:abc")
	require.Error(t, err)
}
