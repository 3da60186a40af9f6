package ports

import (
	"context"

	"github.com/architeacher/smartsearch/pkg/search/queryable"
	"github.com/architeacher/smartsearch/services/svc-search/internal/domain/model"
)

type (
	Source interface {
		// Customers returns a query over every stored customer.
		Customers() queryable.Queryable[model.Customer]
	}

	Updater interface {
		// UpdateMany persists the given customers. It fails with
		// model.ErrCustomerNotFound when one of them is no longer stored.
		UpdateMany(ctx context.Context, customers []model.Customer) error
	}

	// CustomersRepository is the storage backend customer searches run against.
	CustomersRepository interface {
		Source
		Updater
	}
)
