package repos

import (
	"context"
	"fmt"
	"time"

	"github.com/architeacher/smartsearch/services/svc-search/internal/domain/model"
	"github.com/architeacher/smartsearch/services/svc-search/internal/ports"
	"github.com/architeacher/smartsearch/services/svc-search/internal/usecases/queries"
)

type (
	// GetCustomerCacheAdapter adapts SearchCache for GetCustomerQuery.
	GetCustomerCacheAdapter struct {
		cache ports.SearchCache
	}

	// SearchCustomersCacheAdapter adapts SearchCache for SearchCustomersQuery.
	SearchCustomersCacheAdapter struct {
		cache ports.SearchCache
	}
)

func NewGetCustomerCacheAdapter(cache ports.SearchCache) *GetCustomerCacheAdapter {
	return &GetCustomerCacheAdapter{cache: cache}
}

func (a *GetCustomerCacheAdapter) Get(ctx context.Context, query queries.GetCustomerQuery) (*model.Customer, bool, error) {
	return a.cache.GetCustomer(ctx, query.ID)
}

func (a *GetCustomerCacheAdapter) Set(ctx context.Context, _ queries.GetCustomerQuery, result *model.Customer, ttl time.Duration) error {
	return a.cache.SetCustomer(ctx, result, ttl)
}

func NewSearchCustomersCacheAdapter(cache ports.SearchCache) *SearchCustomersCacheAdapter {
	return &SearchCustomersCacheAdapter{cache: cache}
}

func (a *SearchCustomersCacheAdapter) Get(
	ctx context.Context,
	query queries.SearchCustomersQuery,
) (queries.CustomerSummaries, bool, error) {
	key, err := query.CacheKey()
	if err != nil {
		return nil, false, fmt.Errorf("building search cache key: %w", err)
	}

	return a.cache.GetSearch(ctx, key)
}

func (a *SearchCustomersCacheAdapter) Set(
	ctx context.Context,
	query queries.SearchCustomersQuery,
	result queries.CustomerSummaries,
	ttl time.Duration,
) error {
	key, err := query.CacheKey()
	if err != nil {
		return fmt.Errorf("building search cache key: %w", err)
	}

	return a.cache.SetSearch(ctx, key, result, ttl)
}
