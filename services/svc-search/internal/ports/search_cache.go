package ports

import (
	"context"
	"time"

	"github.com/architeacher/smartsearch/pkg/search"
	"github.com/architeacher/smartsearch/services/svc-search/internal/domain/model"
)

// SearchCache stores search results keyed by the normalized search request.
type SearchCache interface {
	GetCustomer(ctx context.Context, id int64) (*model.Customer, bool, error)
	SetCustomer(ctx context.Context, customer *model.Customer, ttl time.Duration) error

	GetSearch(ctx context.Context, key string) (*search.ResultList[model.CustomerSummary], bool, error)
	SetSearch(ctx context.Context, key string, result *search.ResultList[model.CustomerSummary], ttl time.Duration) error

	// Invalidate drops every cached customer and search result.
	Invalidate(ctx context.Context) error
}
