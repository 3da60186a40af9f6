package sqlstore_test

import (
	"reflect"
	"testing"

	sq "github.com/Masterminds/squirrel"
	"github.com/architeacher/smartsearch/pkg/search/queryable"
	"github.com/architeacher/smartsearch/pkg/search/sqlstore"
	"github.com/architeacher/smartsearch/pkg/spec"
	"github.com/stretchr/testify/require"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

func TestTranslator_Translate(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name         string
		spec         spec.Specification
		expectedSQL  string
		expectedArgs []any
	}{
		{
			name:         "eq",
			spec:         spec.Eq("FirstName", "Anna"),
			expectedSQL:  "first_name = $1",
			expectedArgs: []any{"Anna"},
		},
		{
			name:         "not eq on nested member",
			spec:         spec.NotEq("Address.Country", "DE"),
			expectedSQL:  "address_country <> $1",
			expectedArgs: []any{"DE"},
		},
		{
			name:         "in",
			spec:         spec.In("Id", 1, 2),
			expectedSQL:  "id IN ($1,$2)",
			expectedArgs: []any{1, 2},
		},
		{
			name:         "not in",
			spec:         spec.NotIn("Id", 3, 4),
			expectedSQL:  "id NOT IN ($1,$2)",
			expectedArgs: []any{3, 4},
		},
		{
			name:         "contains",
			spec:         spec.Contains("LastName", "er"),
			expectedSQL:  "last_name LIKE $1",
			expectedArgs: []any{"%er%"},
		},
		{
			name:         "starts with",
			spec:         spec.StartsWith("LastName", "Be"),
			expectedSQL:  "last_name LIKE $1",
			expectedArgs: []any{"Be%"},
		},
		{
			name:         "between",
			spec:         spec.Between("Age", 18, 30),
			expectedSQL:  "(age >= $1 AND age <= $2)",
			expectedArgs: []any{18, 30},
		},
		{
			name:         "camel case path",
			spec:         spec.Gt("AddressCity", "M"),
			expectedSQL:  "address_city > $1",
			expectedArgs: []any{"M"},
		},
		{
			name:        "is null",
			spec:        spec.IsNull("Address.City"),
			expectedSQL: "address_city IS NULL",
		},
		{
			name:         "db tag",
			spec:         spec.Eq("Mail", "a@example.com"),
			expectedSQL:  "email_address = $1",
			expectedArgs: []any{"a@example.com"},
		},
		{
			name:         "negation",
			spec:         spec.MustNot(spec.Eq("FirstName", "Anna")),
			expectedSQL:  "NOT (first_name = $1)",
			expectedArgs: []any{"Anna"},
		},
		{
			name:         "disjunction",
			spec:         spec.Should(spec.Eq("FirstName", "Anna"), spec.Eq("LastName", "Berg")),
			expectedSQL:  "(first_name = $1 OR last_name = $2)",
			expectedArgs: []any{"Anna", "Berg"},
		},
		{
			name: "nested junctions",
			spec: spec.Must(
				spec.Lte("Age", 40),
				spec.Should(spec.Eq("FirstName", "Anna"), spec.IsNull("Address.City")),
			),
			expectedSQL:  "(age <= $1 AND (first_name = $2 OR address_city IS NULL))",
			expectedArgs: []any{40, "Anna"},
		},
	}

	translator := sqlstore.NewTranslator(reflect.TypeFor[customer]())

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			cond, err := translator.Translate(tc.spec)
			require.NoError(t, err)

			sql, args, err := psql.Select("*").From("customers").Where(cond).ToSql()
			require.NoError(t, err)
			require.Equal(t, "SELECT * FROM customers WHERE "+tc.expectedSQL, sql)

			if tc.expectedArgs == nil {
				require.Empty(t, args)
			} else {
				require.Equal(t, tc.expectedArgs, args)
			}
		})
	}
}

func TestTranslator_UnsupportedField(t *testing.T) {
	t.Parallel()

	translator := sqlstore.NewTranslator(reflect.TypeFor[customer]())

	cases := []struct {
		name string
		spec spec.Specification
	}{
		{name: "unknown member", spec: spec.Eq("Nickname", "x")},
		{name: "collection member", spec: spec.Eq("Tags", "x")},
		{name: "unmapped member", spec: spec.Eq("Secret", "x")},
		{name: "inside a junction", spec: spec.Should(spec.Eq("FirstName", "Anna"), spec.Eq("Nickname", "x"))},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			_, err := translator.Translate(tc.spec)
			require.ErrorIs(t, err, sqlstore.ErrUnsupportedField)
		})
	}
}

func TestTranslator_OrderBy(t *testing.T) {
	t.Parallel()

	translator := sqlstore.NewTranslator(reflect.TypeFor[customer]())

	term, err := translator.OrderBy("Address.City", queryable.Descending)
	require.NoError(t, err)
	require.Equal(t, "address_city DESC", term)

	term, err = translator.OrderBy("createdAt", queryable.Ascending)
	require.NoError(t, err)
	require.Equal(t, "created_at ASC", term)
}
