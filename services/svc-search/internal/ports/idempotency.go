package ports

import (
	"context"
	"time"

	"github.com/architeacher/smartsearch/pkg/idempotency"
)

// IdempotencyCache stores completed responses by idempotency cache key.
type IdempotencyCache interface {
	// Get returns nil, nil when nothing is stored under key.
	Get(ctx context.Context, key string) (*idempotency.Record, error)
	Set(ctx context.Context, key string, record *idempotency.Record, ttl time.Duration) error

	// SetLock reports false when another request holds the lock on key.
	SetLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, key string) error
}
