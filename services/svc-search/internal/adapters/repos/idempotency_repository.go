package repos

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/architeacher/smartsearch/pkg/idempotency"
	"github.com/architeacher/smartsearch/services/svc-search/internal/infrastructure"
	"github.com/architeacher/smartsearch/services/svc-search/internal/ports"
	"github.com/goccy/go-json"
)

// IdempotencyRepository keeps replayable responses in KeyDB/Redis.
type IdempotencyRepository struct {
	client *infrastructure.KeydbClient
}

var _ ports.IdempotencyCache = (*IdempotencyRepository)(nil)

func NewIdempotencyRepository(client *infrastructure.KeydbClient) *IdempotencyRepository {
	return &IdempotencyRepository{client: client}
}

func (r *IdempotencyRepository) Get(ctx context.Context, key string) (*idempotency.Record, error) {
	data, err := r.client.Get(ctx, key)
	if err != nil {
		if errors.Is(err, infrastructure.ErrCacheMiss) {
			return nil, nil
		}

		return nil, fmt.Errorf("getting idempotency record: %w", err)
	}

	var record idempotency.Record
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("unmarshalling idempotency record: %w", err)
	}

	return &record, nil
}

func (r *IdempotencyRepository) Set(ctx context.Context, key string, record *idempotency.Record, ttl time.Duration) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshalling idempotency record: %w", err)
	}

	if err := r.client.Set(ctx, key, data, ttl); err != nil {
		return fmt.Errorf("setting idempotency record: %w", err)
	}

	return nil
}

func (r *IdempotencyRepository) SetLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	acquired, err := r.client.SetInt64NX(ctx, idempotency.LockKey(key), time.Now().UnixMilli(), ttl)
	if err != nil {
		return false, fmt.Errorf("acquiring idempotency lock: %w", err)
	}

	return acquired, nil
}

func (r *IdempotencyRepository) ReleaseLock(ctx context.Context, key string) error {
	if err := r.client.Delete(ctx, idempotency.LockKey(key)); err != nil {
		return fmt.Errorf("releasing idempotency lock: %w", err)
	}

	return nil
}
