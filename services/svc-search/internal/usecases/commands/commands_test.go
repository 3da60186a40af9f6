package commands_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/architeacher/smartsearch/pkg/logger"
	"github.com/architeacher/smartsearch/pkg/metrics/noop"
	"github.com/architeacher/smartsearch/pkg/search"
	"github.com/architeacher/smartsearch/pkg/search/sorting"
	"github.com/architeacher/smartsearch/services/svc-search/internal/adapters/repos"
	"github.com/architeacher/smartsearch/services/svc-search/internal/config"
	"github.com/architeacher/smartsearch/services/svc-search/internal/domain/model"
	"github.com/architeacher/smartsearch/services/svc-search/internal/infrastructure"
	"github.com/architeacher/smartsearch/services/svc-search/internal/ports"
	"github.com/architeacher/smartsearch/services/svc-search/internal/usecases/commands"
	"github.com/stretchr/testify/require"
	otelNoop "go.opentelemetry.io/otel/trace/noop"
)

type countingCache struct {
	ports.SearchCache
	invalidations atomic.Int32
	err           error
}

func (c *countingCache) Invalidate(context.Context) error {
	c.invalidations.Add(1)

	return c.err
}

func testEngine() *search.Engine {
	return infrastructure.NewSearchEngine(config.Search{
		DefaultItemsPerPage: 10,
		MaxItemsPerPage:     100,
		DefaultSortKey:      sorting.DefaultKey,
		Count:               true,
		OrSplit:             true,
	}, logger.NewTestLogger(), noop.NewMetricsClient())
}

func seedRepository() *repos.MemoryCustomersRepository {
	return repos.NewMemoryCustomersRepository(
		model.Customer{ID: 1, FirstName: "Anna", Age: 31, Status: model.StatusActive, Address: model.Address{City: "Oslo"}},
		model.Customer{ID: 2, FirstName: "Ben", Age: 17, Status: model.StatusActive, Address: model.Address{City: "Bergen"}},
		model.Customer{ID: 3, FirstName: "Cecilie", Age: 40, Status: model.StatusSuspended, Address: model.Address{City: "Malmo"}},
	)
}

func stored(t *testing.T, repo ports.Source) map[int64]model.Customer {
	t.Helper()

	items, err := search.NewCriteria(testEngine(), repo.Customers()).ToList(context.Background())
	require.NoError(t, err)

	out := make(map[int64]model.Customer, len(items))
	for _, item := range items {
		out[item.ID] = item
	}

	return out
}

func ptr[T any](v T) *T { return &v }

func TestUpdateCustomersCommandHandler(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name          string
		cmd           commands.UpdateCustomersCommand
		cacheErr      error
		expectedErr   error
		invalidations int32
		assertFn      func(t *testing.T, updated []model.Customer, after map[int64]model.Customer)
	}{
		{
			name: "updates every patched customer",
			cmd: commands.UpdateCustomersCommand{Patches: []model.CustomerPatch{
				{ID: 3, Status: ptr(model.StatusActive)},
				{ID: 1, Age: ptr(32), City: ptr("Bergen")},
			}},
			invalidations: 1,
			assertFn: func(t *testing.T, updated []model.Customer, after map[int64]model.Customer) {
				require.Len(t, updated, 2)
				require.Equal(t, int64(1), updated[0].ID)
				require.Equal(t, int64(3), updated[1].ID)

				require.Equal(t, 32, after[1].Age)
				require.Equal(t, "Bergen", after[1].Address.City)
				require.Equal(t, model.StatusActive, after[3].Status)
				require.False(t, after[3].UpdatedAt.IsZero())
				require.Equal(t, model.StatusActive, after[2].Status)
				require.True(t, after[2].UpdatedAt.IsZero())
			},
		},
		{
			name: "cache failure does not fail the update",
			cmd: commands.UpdateCustomersCommand{Patches: []model.CustomerPatch{
				{ID: 2, Status: ptr(model.StatusInactive)},
			}},
			cacheErr:      errors.New("cache down"),
			invalidations: 1,
			assertFn: func(t *testing.T, updated []model.Customer, after map[int64]model.Customer) {
				require.Len(t, updated, 1)
				require.Equal(t, model.StatusInactive, after[2].Status)
			},
		},
		{
			name: "unknown customer",
			cmd: commands.UpdateCustomersCommand{Patches: []model.CustomerPatch{
				{ID: 1, Age: ptr(50)},
				{ID: 42, Age: ptr(50)},
			}},
			expectedErr: model.ErrCustomerNotFound,
		},
		{
			name: "invalid patch",
			cmd: commands.UpdateCustomersCommand{Patches: []model.CustomerPatch{
				{ID: 1, Age: ptr(50)},
				{ID: 2, Status: ptr(model.Status("archived"))},
			}},
			expectedErr: model.ErrInvalidStatus,
		},
		{
			name: "duplicate patch",
			cmd: commands.UpdateCustomersCommand{Patches: []model.CustomerPatch{
				{ID: 1, Age: ptr(50)},
				{ID: 1, Age: ptr(51)},
			}},
			expectedErr: model.ErrInvalidCustomer,
		},
		{
			name:        "no patches",
			cmd:         commands.UpdateCustomersCommand{},
			expectedErr: model.ErrInvalidCustomer,
		},
		{
			name: "invalid id",
			cmd: commands.UpdateCustomersCommand{Patches: []model.CustomerPatch{
				{ID: -1, Age: ptr(50)},
			}},
			expectedErr: model.ErrInvalidCustomerID,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			repo := seedRepository()
			before := stored(t, repo)
			cache := &countingCache{err: tc.cacheErr}

			handler := commands.NewUpdateCustomersCommandHandler(
				testEngine(),
				repo,
				cache,
				logger.NewTestLogger(),
				noop.NewMetricsClient(),
				otelNoop.NewTracerProvider(),
			)

			updated, err := handler.Handle(t.Context(), tc.cmd)
			require.Equal(t, tc.invalidations, cache.invalidations.Load())

			if tc.expectedErr != nil {
				require.ErrorIs(t, err, tc.expectedErr)
				require.Nil(t, updated)
				require.Equal(t, before, stored(t, repo))

				return
			}

			require.NoError(t, err)
			tc.assertFn(t, updated, stored(t, repo))
		})
	}
}

func TestUpdateCustomersCommandHandler_WithoutCache(t *testing.T) {
	t.Parallel()

	repo := seedRepository()
	handler := commands.NewUpdateCustomersCommandHandler(
		testEngine(), repo, nil, logger.NewTestLogger(), noop.NewMetricsClient(), otelNoop.NewTracerProvider(),
	)

	start := time.Now().UTC()

	updated, err := handler.Handle(t.Context(), commands.UpdateCustomersCommand{Patches: []model.CustomerPatch{
		{ID: 2, Email: ptr("ben@example.com")},
	}})
	require.NoError(t, err)
	require.Len(t, updated, 1)
	require.Equal(t, "ben@example.com", *stored(t, repo)[2].Email)
	require.False(t, updated[0].UpdatedAt.Before(start))
}
