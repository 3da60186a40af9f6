package repos

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/architeacher/smartsearch/pkg/circuitbreaker"
	"github.com/architeacher/smartsearch/pkg/logger"
	"github.com/architeacher/smartsearch/pkg/search/queryable"
	"github.com/architeacher/smartsearch/pkg/search/sqlstore"
	"github.com/architeacher/smartsearch/services/svc-search/internal/domain/model"
	"github.com/architeacher/smartsearch/services/svc-search/internal/ports"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const customersTable = "customers"

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

type (
	// PoolOps defines the interface for database operations.
	// This allows injecting mock implementations for testing.
	PoolOps interface {
		sqlstore.PoolOps
		Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
		Begin(ctx context.Context) (pgx.Tx, error)
		Ping(ctx context.Context) error
	}

	// CustomersRepository runs customer searches against PostgreSQL.
	CustomersRepository struct {
		pool    PoolOps
		scanner sqlstore.Scanner
		breaker *circuitbreaker.CircuitBreaker
		logger  logger.Logger
	}
)

var _ ports.CustomersRepository = (*CustomersRepository)(nil)

func NewCustomersRepository(
	pool PoolOps,
	scanner sqlstore.Scanner,
	breaker *circuitbreaker.CircuitBreaker,
	log logger.Logger,
) *CustomersRepository {
	return &CustomersRepository{
		pool:    pool,
		scanner: scanner,
		breaker: breaker,
		logger:  log,
	}
}

func (r *CustomersRepository) Customers() queryable.Queryable[model.Customer] {
	return sqlstore.New[model.Customer](
		r.pool,
		customersTable,
		sqlstore.WithScanner(r.scanner),
		sqlstore.WithLogger(r.logger),
		sqlstore.WithCircuitBreaker(r.breaker),
	)
}

// UpdateMany writes every customer in one transaction.
func (r *CustomersRepository) UpdateMany(ctx context.Context, customers []model.Customer) (err error) {
	if len(customers) == 0 {
		return nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", model.ErrDatabaseConnection, err)
	}

	defer func() {
		if err == nil {
			return
		}

		if rbErr := tx.Rollback(ctx); rbErr != nil {
			log := r.logger.WithContext(ctx)
			log.Error().
				Err(rbErr).
				Msg("failed to roll back customer updates")
		}
	}()

	for index := range customers {
		if err = r.update(ctx, tx, &customers[index]); err != nil {
			return err
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: %v", sqlstore.ErrQuery, err)
	}

	return nil
}

func (r *CustomersRepository) update(ctx context.Context, tx pgx.Tx, customer *model.Customer) error {
	query, args, err := psql.Update(customersTable).
		Set("first_name", customer.FirstName).
		Set("last_name", customer.LastName).
		Set("email", customer.Email).
		Set("age", customer.Age).
		Set("status", customer.Status.String()).
		Set("address_street", customer.Address.Street).
		Set("address_city", customer.Address.City).
		Set("address_country", customer.Address.Country).
		Set("updated_at", customer.UpdatedAt).
		Where(sq.Eq{"id": customer.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update query: %w", err)
	}

	result, err := tx.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%w: %v", sqlstore.ErrQuery, err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("%w: %d", model.ErrCustomerNotFound, customer.ID)
	}

	return nil
}

func (r *CustomersRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}
