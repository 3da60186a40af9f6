package repos

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/architeacher/smartsearch/pkg/search/memory"
	"github.com/architeacher/smartsearch/pkg/search/queryable"
	"github.com/architeacher/smartsearch/services/svc-search/internal/domain/model"
	"github.com/architeacher/smartsearch/services/svc-search/internal/ports"
)

// MemoryCustomersRepository keeps customers in process. Searches run over a
// snapshot taken when Customers is called.
type MemoryCustomersRepository struct {
	mu        sync.RWMutex
	customers []model.Customer
}

var _ ports.CustomersRepository = (*MemoryCustomersRepository)(nil)

func NewMemoryCustomersRepository(customers ...model.Customer) *MemoryCustomersRepository {
	return &MemoryCustomersRepository{customers: slices.Clone(customers)}
}

func (r *MemoryCustomersRepository) Customers() queryable.Queryable[model.Customer] {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return memory.New(slices.Clone(r.customers))
}

// UpdateMany replaces customers by id. Nothing is written unless every
// customer exists.
func (r *MemoryCustomersRepository) UpdateMany(_ context.Context, customers []model.Customer) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	positions := make([]int, len(customers))

	for i, customer := range customers {
		index := slices.IndexFunc(r.customers, func(c model.Customer) bool { return c.ID == customer.ID })
		if index < 0 {
			return fmt.Errorf("%w: %d", model.ErrCustomerNotFound, customer.ID)
		}

		positions[i] = index
	}

	for i, index := range positions {
		r.customers[index] = customers[i]
	}

	return nil
}

func (r *MemoryCustomersRepository) Ping(context.Context) error {
	return nil
}
