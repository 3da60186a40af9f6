// Package sqlstore is a PostgreSQL queryable. Predicates are lowered to
// squirrel conditions, executed through a pgx pool and scanned with pgxscan.
package sqlstore

import (
	"context"
	"fmt"
	"iter"
	"reflect"
	"slices"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/architeacher/smartsearch/pkg/circuitbreaker"
	"github.com/architeacher/smartsearch/pkg/logger"
	"github.com/architeacher/smartsearch/pkg/search/projection"
	"github.com/architeacher/smartsearch/pkg/search/queryable"
	"github.com/architeacher/smartsearch/pkg/spec"
	"github.com/jackc/pgx/v5"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

type (
	// PoolOps defines the database operations a query needs. It is satisfied
	// by *pgxpool.Pool and by pgxmock pools.
	PoolOps interface {
		QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
		Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	}

	Option func(*store)

	store struct {
		pool       PoolOps
		scanner    Scanner
		logger     logger.Logger
		breaker    *circuitbreaker.CircuitBreaker
		table      string
		translator *Translator
	}

	ordering struct {
		path string
		dir  queryable.Direction
	}

	// Query is an immutable SELECT over one table. Every builder method
	// returns a new value.
	Query[M any] struct {
		store   *store
		filters []spec.Specification
		orders  []ordering
		skip    int
		take    int
	}
)

var (
	_ queryable.Queryable[struct{}] = Query[struct{}]{}
	_ projection.Source             = Query[struct{}]{}
)

func WithScanner(s Scanner) Option {
	return func(st *store) { st.scanner = s }
}

func WithLogger(l logger.Logger) Option {
	return func(st *store) { st.logger = l }
}

// WithCircuitBreaker runs every statement through cb.
func WithCircuitBreaker(cb *circuitbreaker.CircuitBreaker) Option {
	return func(st *store) { st.breaker = cb }
}

// New returns a query over every row of table mapped to M.
func New[M any](pool PoolOps, table string, opts ...Option) Query[M] {
	st := &store{
		pool:       pool,
		scanner:    NewPgxScanner(),
		logger:     logger.Nop(),
		table:      table,
		translator: NewTranslator(reflect.TypeFor[M]()),
	}

	for _, opt := range opts {
		opt(st)
	}

	return Query[M]{store: st, take: -1}
}

func (q Query[M]) Where(s spec.Specification) queryable.Queryable[M] {
	if s == nil {
		return q
	}

	q.filters = append(slices.Clip(q.filters), s)

	return q
}

func (q Query[M]) OrderBy(path string, dir queryable.Direction) queryable.Queryable[M] {
	q.orders = []ordering{{path: path, dir: dir}}

	return q
}

func (q Query[M]) ThenBy(path string, dir queryable.Direction) queryable.Queryable[M] {
	q.orders = append(slices.Clip(q.orders), ordering{path: path, dir: dir})

	return q
}

func (q Query[M]) Skip(n int) queryable.Queryable[M] {
	q.skip = max(n, 0)

	return q
}

func (q Query[M]) Take(n int) queryable.Queryable[M] {
	q.take = queryable.NarrowLimit(q.take, n)

	return q
}

// SQL renders the statement ToList would run.
func (q Query[M]) SQL() (string, []any, error) {
	builder, err := q.selectBuilder(tableOf(reflect.TypeFor[M]()).selectList())
	if err != nil {
		return "", nil, err
	}

	return builder.ToSql()
}

func (q Query[M]) ToList(ctx context.Context) ([]M, error) {
	var items []M

	if err := q.scanAll(ctx, tableOf(reflect.TypeFor[M]()).selectList(), &items); err != nil {
		return nil, err
	}

	if items == nil {
		items = []M{}
	}

	return items, nil
}

// ProjectInto selects only the columns of p and scans them into dst, a
// pointer to a slice of DTOs.
func (q Query[M]) ProjectInto(ctx context.Context, p *projection.Projection, dst any) error {
	leaves := p.Leaves()
	columns := make([]string, 0, len(leaves))

	for _, leaf := range leaves {
		col, ok := columnOf(leaf.Source.Fields())
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnsupportedField, leaf)
		}

		columns = append(columns, column{name: col, alias: aliasOf(leaf.DTO)}.expr())
	}

	return q.scanAll(ctx, columns, dst)
}

// Count ignores ordering and paging.
func (q Query[M]) Count(ctx context.Context) (int, error) {
	counted := Query[M]{store: q.store, filters: q.filters, take: -1}

	builder, err := counted.selectBuilder([]string{"COUNT(*)"})
	if err != nil {
		return 0, err
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build count query: %w", err)
	}

	return run(ctx, q.store, query, func() (int, error) {
		var n int64
		if err := q.store.pool.QueryRow(ctx, query, args...).Scan(&n); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrQuery, err)
		}

		return int(n), nil
	})
}

func (q Query[M]) Stream(ctx context.Context) iter.Seq2[M, error] {
	return func(yield func(M, error) bool) {
		var zero M

		builder, err := q.selectBuilder(tableOf(reflect.TypeFor[M]()).selectList())
		if err != nil {
			yield(zero, err)

			return
		}

		query, args, err := builder.ToSql()
		if err != nil {
			yield(zero, fmt.Errorf("failed to build select query: %w", err))

			return
		}

		rows, err := run(ctx, q.store, query, func() (pgx.Rows, error) {
			rows, err := q.store.pool.Query(ctx, query, args...)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrQuery, err)
			}

			return rows, nil
		})
		if err != nil {
			yield(zero, err)

			return
		}
		defer rows.Close()

		for rows.Next() {
			var item M
			if err := q.store.scanner.ScanRow(&item, rows); err != nil {
				yield(zero, fmt.Errorf("%w: %v", ErrQuery, err))

				return
			}

			if !yield(item, nil) {
				return
			}
		}

		if err := rows.Err(); err != nil {
			yield(zero, fmt.Errorf("%w: %v", ErrQuery, err))
		}
	}
}

func (q Query[M]) selectBuilder(columns []string) (sq.SelectBuilder, error) {
	builder := psql.Select(columns...).From(q.store.table)

	for _, f := range q.filters {
		cond, err := q.store.translator.Translate(f)
		if err != nil {
			return builder, err
		}

		builder = builder.Where(cond)
	}

	for _, o := range q.orders {
		term, err := q.store.translator.OrderBy(o.path, o.dir)
		if err != nil {
			return builder, err
		}

		builder = builder.OrderBy(term)
	}

	if q.take >= 0 {
		builder = builder.Limit(uint64(q.take))
	}

	if q.skip > 0 {
		builder = builder.Offset(uint64(q.skip))
	}

	return builder, nil
}

func (q Query[M]) scanAll(ctx context.Context, columns []string, dst any) error {
	builder, err := q.selectBuilder(columns)
	if err != nil {
		return err
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return fmt.Errorf("failed to build select query: %w", err)
	}

	_, err = run(ctx, q.store, query, func() (struct{}, error) {
		rows, err := q.store.pool.Query(ctx, query, args...)
		if err != nil {
			return struct{}{}, fmt.Errorf("%w: %v", ErrQuery, err)
		}

		if err := q.store.scanner.ScanAll(dst, rows); err != nil {
			return struct{}{}, fmt.Errorf("%w: %v", ErrQuery, err)
		}

		return struct{}{}, nil
	})

	return err
}

// run executes fn through the circuit breaker and logs the statement.
func run[T any](ctx context.Context, st *store, query string, fn func() (T, error)) (T, error) {
	start := time.Now()

	result, err := circuitbreaker.Execute(st.breaker, fn)

	log := st.logger.WithContext(ctx)
	if err != nil {
		log.Error().
			Err(err).
			Str("table", st.table).
			Str("query", query).
			Str("breaker", st.breaker.State()).
			Msg("query failed")

		return result, err
	}

	log.Debug().
		Str("table", st.table).
		Str("query", query).
		Dur("elapsed", time.Since(start)).
		Msg("query executed")

	return result, nil
}
