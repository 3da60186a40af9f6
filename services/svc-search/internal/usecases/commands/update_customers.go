package commands

import (
	"context"
	"fmt"

	"github.com/architeacher/smartsearch/pkg/decorator"
	"github.com/architeacher/smartsearch/pkg/logger"
	"github.com/architeacher/smartsearch/pkg/metrics"
	"github.com/architeacher/smartsearch/pkg/search"
	"github.com/architeacher/smartsearch/pkg/search/sorting"
	"github.com/architeacher/smartsearch/services/svc-search/internal/domain/model"
	"github.com/architeacher/smartsearch/services/svc-search/internal/ports"
	otelTrace "go.opentelemetry.io/otel/trace"
)

type (
	// UpdateCustomersCommand applies each patch to the customer with the
	// same id. Either every customer is updated or none is.
	UpdateCustomersCommand struct {
		Patches []model.CustomerPatch
	}

	UpdateCustomersCommandHandler = decorator.CommandHandler[UpdateCustomersCommand, []model.Customer]

	updateCustomersCommandHandler struct {
		engine *search.Engine
		repo   ports.CustomersRepository
		cache  ports.SearchCache
		logger logger.Logger
	}
)

func NewUpdateCustomersCommandHandler(
	engine *search.Engine,
	repo ports.CustomersRepository,
	cache ports.SearchCache,
	log logger.Logger,
	metricsClient metrics.Client,
	tracerProvider otelTrace.TracerProvider,
) UpdateCustomersCommandHandler {
	return decorator.ApplyCommandDecorators[UpdateCustomersCommand, []model.Customer](
		updateCustomersCommandHandler{engine: engine, repo: repo, cache: cache, logger: log},
		log,
		metricsClient,
		tracerProvider,
	)
}

func (h updateCustomersCommandHandler) Handle(ctx context.Context, cmd UpdateCustomersCommand) ([]model.Customer, error) {
	if len(cmd.Patches) == 0 {
		return nil, fmt.Errorf("%w: no patches", model.ErrInvalidCustomer)
	}

	ids := make([]int64, 0, len(cmd.Patches))
	seen := make(map[int64]struct{}, len(cmd.Patches))

	for _, patch := range cmd.Patches {
		if patch.ID <= 0 {
			return nil, fmt.Errorf("%w: %d", model.ErrInvalidCustomerID, patch.ID)
		}

		if _, ok := seen[patch.ID]; ok {
			return nil, fmt.Errorf("%w: duplicate patch for %d", model.ErrInvalidCustomer, patch.ID)
		}

		seen[patch.ID] = struct{}{}
		ids = append(ids, patch.ID)
	}

	criteria := search.NewCriteria(h.engine, h.repo.Customers()).
		FilterBy(model.CustomerFilter{IDs: ids}).
		OrderBy(sorting.Asc("ID"))

	updated, err := search.UpdateWith(ctx, criteria, cmd.Patches,
		func(p model.CustomerPatch) int64 { return p.ID },
		func(c *model.Customer) int64 { return c.ID },
		func(c *model.Customer, p model.CustomerPatch) error { return c.Apply(p) },
	)
	if err != nil {
		return nil, err
	}

	if len(updated) != len(ids) {
		return nil, fmt.Errorf("%w: found %d of %d", model.ErrCustomerNotFound, len(updated), len(ids))
	}

	if err := h.repo.UpdateMany(ctx, updated); err != nil {
		return nil, err
	}

	if h.cache != nil {
		if err := h.cache.Invalidate(ctx); err != nil {
			log := h.logger.WithContext(ctx)
			log.Warn().
				Err(err).
				Msg("failed to invalidate search cache after update")
		}
	}

	return updated, nil
}
