package repos

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/architeacher/smartsearch/pkg/logger"
	"github.com/architeacher/smartsearch/pkg/search"
	"github.com/architeacher/smartsearch/services/svc-search/internal/domain/model"
	"github.com/architeacher/smartsearch/services/svc-search/internal/infrastructure"
	"github.com/architeacher/smartsearch/services/svc-search/internal/ports"
	"github.com/goccy/go-json"
)

const (
	searchCacheVersion = "v1"
	customerKeyPrefix  = "customer:" + searchCacheVersion + ":"
	searchKeyPrefix    = "customers:search:" + searchCacheVersion + ":"

	purgeBatchSize = 100
)

// SearchCacheRepository keeps customers and search results in KeyDB/Redis.
type SearchCacheRepository struct {
	client *infrastructure.KeydbClient
	logger logger.Logger
}

var _ ports.SearchCache = (*SearchCacheRepository)(nil)

func NewSearchCacheRepository(client *infrastructure.KeydbClient, log logger.Logger) *SearchCacheRepository {
	return &SearchCacheRepository{
		client: client,
		logger: log,
	}
}

func (r *SearchCacheRepository) GetCustomer(ctx context.Context, id int64) (*model.Customer, bool, error) {
	var customer model.Customer

	hit, err := r.get(ctx, customerKey(id), &customer)
	if err != nil || !hit {
		return nil, hit, err
	}

	return &customer, true, nil
}

func (r *SearchCacheRepository) SetCustomer(ctx context.Context, customer *model.Customer, ttl time.Duration) error {
	return r.set(ctx, customerKey(customer.ID), customer, ttl)
}

func (r *SearchCacheRepository) GetSearch(ctx context.Context, key string) (*search.ResultList[model.CustomerSummary], bool, error) {
	var result search.ResultList[model.CustomerSummary]

	hit, err := r.get(ctx, searchKey(key), &result)
	if err != nil || !hit {
		return nil, hit, err
	}

	return &result, true, nil
}

func (r *SearchCacheRepository) SetSearch(
	ctx context.Context,
	key string,
	result *search.ResultList[model.CustomerSummary],
	ttl time.Duration,
) error {
	return r.set(ctx, searchKey(key), result, ttl)
}

// Invalidate drops every cached customer and search result.
func (r *SearchCacheRepository) Invalidate(ctx context.Context) error {
	for _, pattern := range []string{customerKeyPrefix + "*", searchKeyPrefix + "*"} {
		if _, err := r.purgeByPattern(ctx, pattern); err != nil {
			return fmt.Errorf("purging pattern %s: %w", pattern, err)
		}
	}

	return nil
}

func (r *SearchCacheRepository) get(ctx context.Context, key string, dst any) (bool, error) {
	data, err := r.client.Get(ctx, key)
	if err != nil {
		if errors.Is(err, infrastructure.ErrCacheMiss) {
			return false, nil
		}

		return false, fmt.Errorf("getting cached entry: %w", err)
	}

	if err := json.Unmarshal(data, dst); err != nil {
		return false, fmt.Errorf("unmarshalling cached entry %s: %w", key, err)
	}

	return true, nil
}

func (r *SearchCacheRepository) set(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshalling cached entry %s: %w", key, err)
	}

	if err := r.client.Set(ctx, key, data, ttl); err != nil {
		return fmt.Errorf("setting cached entry: %w", err)
	}

	return nil
}

func (r *SearchCacheRepository) purgeByPattern(ctx context.Context, pattern string) (int, error) {
	var (
		cursor  uint64
		deleted int
	)

	for {
		keys, next, err := r.client.Scan(ctx, cursor, pattern, purgeBatchSize)
		if err != nil {
			return deleted, fmt.Errorf("scanning keys: %w", err)
		}

		if len(keys) > 0 {
			if err := r.client.Delete(ctx, keys...); err != nil {
				r.logger.Warn().Err(err).Int("keys", len(keys)).Msg("failed to delete keys during purge")
			} else {
				deleted += len(keys)
			}
		}

		cursor = next
		if cursor == 0 {
			break
		}
	}

	return deleted, nil
}

func customerKey(id int64) string {
	return customerKeyPrefix + strconv.FormatInt(id, 10)
}

func searchKey(key string) string {
	hash := sha256.Sum256([]byte(key))

	return searchKeyPrefix + hex.EncodeToString(hash[:16])
}
