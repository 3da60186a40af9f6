package sqlstore_test

import (
	"bytes"
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/architeacher/smartsearch/pkg/circuitbreaker"
	"github.com/architeacher/smartsearch/pkg/logger"
	"github.com/architeacher/smartsearch/pkg/search/projection"
	"github.com/architeacher/smartsearch/pkg/search/queryable"
	"github.com/architeacher/smartsearch/pkg/search/sqlstore"
	"github.com/architeacher/smartsearch/pkg/spec"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"
)

const customerColumns = `id, first_name, last_name, age, email_address, address_city AS "address.city", address_country AS "address.country", created_at`

type (
	address struct {
		City    string
		Country string
	}

	customer struct {
		ID        int
		FirstName string
		LastName  string
		Age       int
		Mail      string `db:"email_address"`
		Address   address
		Tags      []string
		Secret    string `db:"-"`
		CreatedAt time.Time
	}

	customerSummary struct {
		ID          int
		FirstName   string
		AddressCity string `select:"Address.City"`
	}
)

func customerRows(now time.Time) *pgxmock.Rows {
	return pgxmock.NewRows([]string{"id", "first_name", "last_name", "age", "email_address", "address.city", "address.country", "created_at"}).
		AddRow(1, "Anna", "Berg", 29, "anna@example.com", "Oslo", "NO", now).
		AddRow(2, "Ben", "Carter", 52, "ben@example.com", "Leeds", "GB", now)
}

func runQueryTest(
	t *testing.T,
	setupMock func(pgxmock.PgxPoolIface),
	testFn func(*testing.T, queryable.Queryable[customer], *bytes.Buffer),
	opts ...sqlstore.Option,
) {
	t.Helper()
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	setupMock(mock)

	logBuffer := &bytes.Buffer{}
	opts = append(opts, sqlstore.WithLogger(logger.NewBufferedTestLogger(logBuffer)))

	testFn(t, sqlstore.New[customer](mock, "customers", opts...), logBuffer)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestQuery_ToList(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	runQueryTest(t,
		func(mock pgxmock.PgxPoolIface) {
			mock.ExpectQuery(regexp.QuoteMeta(
				`SELECT `+customerColumns+` FROM customers WHERE first_name LIKE $1 AND age >= $2 ORDER BY last_name DESC, id ASC LIMIT 2 OFFSET 2`,
			)).
				WithArgs("%n%", 18).
				WillReturnRows(customerRows(now))
		},
		func(t *testing.T, q queryable.Queryable[customer], _ *bytes.Buffer) {
			items, err := q.
				Where(spec.Contains("FirstName", "n")).
				Where(spec.Gte("Age", 18)).
				Where(nil).
				OrderBy("LastName", queryable.Descending).
				ThenBy("Id", queryable.Ascending).
				Skip(2).
				Take(2).
				ToList(context.Background())
			require.NoError(t, err)
			require.Equal(t, []customer{
				{ID: 1, FirstName: "Anna", LastName: "Berg", Age: 29, Mail: "anna@example.com", Address: address{City: "Oslo", Country: "NO"}, CreatedAt: now},
				{ID: 2, FirstName: "Ben", LastName: "Carter", Age: 52, Mail: "ben@example.com", Address: address{City: "Leeds", Country: "GB"}, CreatedAt: now},
			}, items)
		},
	)
}

func TestQuery_ToListEmpty(t *testing.T) {
	runQueryTest(t,
		func(mock pgxmock.PgxPoolIface) {
			mock.ExpectQuery(regexp.QuoteMeta(`SELECT ` + customerColumns + ` FROM customers WHERE id IN ($1)`)).
				WithArgs(99).
				WillReturnRows(pgxmock.NewRows([]string{"id", "first_name", "last_name", "age", "email_address", "address.city", "address.country", "created_at"}))
		},
		func(t *testing.T, q queryable.Queryable[customer], _ *bytes.Buffer) {
			items, err := q.Where(spec.In("Id", 99)).ToList(context.Background())
			require.NoError(t, err)
			require.NotNil(t, items)
			require.Empty(t, items)
		},
	)
}

func TestQuery_Count(t *testing.T) {
	runQueryTest(t,
		func(mock pgxmock.PgxPoolIface) {
			mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM customers WHERE address_country = $1`)).
				WithArgs("DE").
				WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(7)))
		},
		func(t *testing.T, q queryable.Queryable[customer], _ *bytes.Buffer) {
			n, err := q.
				Where(spec.Eq("Address.Country", "DE")).
				OrderBy("Age", queryable.Ascending).
				Skip(10).
				Take(5).
				Count(context.Background())
			require.NoError(t, err)
			require.Equal(t, 7, n)
		},
	)
}

func TestQuery_DatabaseError(t *testing.T) {
	runQueryTest(t,
		func(mock pgxmock.PgxPoolIface) {
			mock.ExpectQuery(regexp.QuoteMeta(`SELECT ` + customerColumns + ` FROM customers`)).
				WillReturnError(errors.New("connection refused"))
		},
		func(t *testing.T, q queryable.Queryable[customer], logs *bytes.Buffer) {
			_, err := q.ToList(context.Background())
			require.ErrorIs(t, err, sqlstore.ErrQuery)
			require.Contains(t, err.Error(), "connection refused")
			require.Contains(t, logs.String(), "query failed")
		},
	)
}

func TestQuery_UnsupportedFieldDoesNotQuery(t *testing.T) {
	runQueryTest(t,
		func(mock pgxmock.PgxPoolIface) {
			mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM customers`)).
				WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(2)))
		},
		func(t *testing.T, q queryable.Queryable[customer], _ *bytes.Buffer) {
			_, err := q.Where(spec.Eq("Nickname", "x")).ToList(context.Background())
			require.ErrorIs(t, err, sqlstore.ErrUnsupportedField)

			_, err = q.OrderBy("Tags", queryable.Ascending).ToList(context.Background())
			require.ErrorIs(t, err, sqlstore.ErrUnsupportedField)

			n, err := q.OrderBy("Tags", queryable.Ascending).Count(context.Background())
			require.NoError(t, err, "count ignores ordering")
			require.Equal(t, 2, n)
		},
	)
}

func TestQuery_Stream(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	runQueryTest(t,
		func(mock pgxmock.PgxPoolIface) {
			mock.ExpectQuery(regexp.QuoteMeta(`SELECT ` + customerColumns + ` FROM customers ORDER BY id ASC`)).
				WillReturnRows(customerRows(now))
		},
		func(t *testing.T, q queryable.Queryable[customer], _ *bytes.Buffer) {
			var names []string

			for c, err := range q.OrderBy("Id", queryable.Ascending).Stream(context.Background()) {
				require.NoError(t, err)

				names = append(names, c.FirstName)
			}

			require.Equal(t, []string{"Anna", "Ben"}, names)
		},
	)
}

func TestQuery_ProjectInto(t *testing.T) {
	selectors := projection.NewFactory()

	sel, err := projection.Create[customer, customerSummary](selectors)
	require.NoError(t, err)

	runQueryTest(t,
		func(mock pgxmock.PgxPoolIface) {
			mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, first_name, address_city FROM customers WHERE age > $1 LIMIT 10`)).
				WithArgs(30).
				WillReturnRows(pgxmock.NewRows([]string{"id", "first_name", "address_city"}).
					AddRow(2, "Ben", "Leeds"))
		},
		func(t *testing.T, q queryable.Queryable[customer], _ *bytes.Buffer) {
			items, err := projection.List(context.Background(), q.Where(spec.Gt("Age", 30)).Take(10), sel)
			require.NoError(t, err)
			require.Equal(t, []customerSummary{{ID: 2, FirstName: "Ben", AddressCity: "Leeds"}}, items)
		},
	)
}

func TestQuery_SQL(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	q := sqlstore.New[customer](mock, "customers")

	sql, args, err := q.Where(spec.Eq("Age", 40)).(sqlstore.Query[customer]).SQL()
	require.NoError(t, err)
	require.Equal(t, `SELECT `+customerColumns+` FROM customers WHERE age = $1`, sql)
	require.Equal(t, []any{40}, args)
}

func TestQuery_CircuitBreaker(t *testing.T) {
	cb := circuitbreaker.New(circuitbreaker.Config{
		Name:             "customers",
		Enabled:          true,
		FailureThreshold: 1,
		Timeout:          time.Minute,
	})

	runQueryTest(t,
		func(mock pgxmock.PgxPoolIface) {
			mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM customers`)).
				WillReturnError(errors.New("too many connections"))
		},
		func(t *testing.T, q queryable.Queryable[customer], logs *bytes.Buffer) {
			_, err := q.Count(context.Background())
			require.ErrorIs(t, err, sqlstore.ErrQuery)
			require.Equal(t, "open", cb.State())

			_, err = q.ToList(context.Background())
			require.ErrorIs(t, err, circuitbreaker.ErrCircuitOpen)
			require.Contains(t, logs.String(), `"breaker":"open"`)
		},
		sqlstore.WithCircuitBreaker(cb),
	)
}
