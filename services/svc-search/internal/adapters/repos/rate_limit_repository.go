package repos

import (
	"context"
	"time"

	"github.com/architeacher/smartsearch/services/svc-search/internal/infrastructure"
	"github.com/throttled/throttled/v2"
)

const rateLimitKeyPrefix = "ratelimit:v1:"

// RateLimitStore keeps GCRA rate limiter state in KeyDB so every replica of
// the service shares one budget per client.
type RateLimitStore struct {
	client *infrastructure.KeydbClient
}

var _ throttled.GCRAStoreCtx = (*RateLimitStore)(nil)

func NewRateLimitStore(client *infrastructure.KeydbClient) *RateLimitStore {
	return &RateLimitStore{client: client}
}

// GetWithTime returns the stored theoretical arrival time, or -1 when the
// client has no state yet.
func (s *RateLimitStore) GetWithTime(ctx context.Context, key string) (int64, time.Time, error) {
	now := time.Now()

	value, found, err := s.client.GetInt64(ctx, rateLimitKeyPrefix+key)
	if err != nil {
		return 0, now, err
	}

	if !found {
		return -1, now, nil
	}

	return value, now, nil
}

func (s *RateLimitStore) SetIfNotExistsWithTTL(ctx context.Context, key string, value int64, ttl time.Duration) (bool, error) {
	return s.client.SetInt64NX(ctx, rateLimitKeyPrefix+key, value, ttl)
}

func (s *RateLimitStore) CompareAndSwapWithTTL(
	ctx context.Context,
	key string,
	old, next int64,
	ttl time.Duration,
) (bool, error) {
	return s.client.CompareAndSwapInt64(ctx, rateLimitKeyPrefix+key, old, next, ttl)
}
