package mongostore_test

import (
	"reflect"
	"testing"

	"github.com/architeacher/smartsearch/pkg/search/mongostore"
	"github.com/architeacher/smartsearch/pkg/search/queryable"
	"github.com/architeacher/smartsearch/pkg/spec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

type (
	address struct {
		City    string
		Country string `bson:"country_code"`
	}

	audit struct {
		CreatedBy string
	}

	customer struct {
		ID        int `bson:"_id"`
		FirstName string
		Age       int
		Address   address
		Audit     audit  `bson:",inline"`
		Secret    string `bson:"-"`
	}
)

func TestTranslator_Filter(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		spec     spec.Specification
		expected bson.D
	}{
		{
			name:     "eq on tagged id",
			spec:     spec.Eq("Id", 7),
			expected: bson.D{{Key: "_id", Value: bson.D{{Key: "$eq", Value: 7}}}},
		},
		{
			name:     "nested member",
			spec:     spec.NotEq("Address.Country", "DE"),
			expected: bson.D{{Key: "address.country_code", Value: bson.D{{Key: "$ne", Value: "DE"}}}},
		},
		{
			name:     "inline member",
			spec:     spec.Eq("CreatedBy", "ops"),
			expected: bson.D{{Key: "createdby", Value: bson.D{{Key: "$eq", Value: "ops"}}}},
		},
		{
			name:     "in",
			spec:     spec.In("Age", 18, 21),
			expected: bson.D{{Key: "age", Value: bson.D{{Key: "$in", Value: bson.A{18, 21}}}}},
		},
		{
			name:     "not in",
			spec:     spec.NotIn("Age", 30),
			expected: bson.D{{Key: "age", Value: bson.D{{Key: "$nin", Value: bson.A{30}}}}},
		},
		{
			name:     "between",
			spec:     spec.Between("Age", 18, 30),
			expected: bson.D{{Key: "age", Value: bson.D{{Key: "$gte", Value: 18}, {Key: "$lte", Value: 30}}}},
		},
		{
			name:     "starts with",
			spec:     spec.StartsWith("FirstName", "A.n"),
			expected: bson.D{{Key: "firstname", Value: bson.D{{Key: "$regex", Value: `^A\.n.*$`}}}},
		},
		{
			name:     "is null",
			spec:     spec.IsNull("Address.City"),
			expected: bson.D{{Key: "address.city", Value: bson.D{{Key: "$eq", Value: nil}}}},
		},
		{
			name: "disjunction",
			spec: spec.Should(spec.Lt("Age", 18), spec.Gte("Age", 65)),
			expected: bson.D{{Key: "$or", Value: bson.A{
				bson.D{{Key: "age", Value: bson.D{{Key: "$lt", Value: 18}}}},
				bson.D{{Key: "age", Value: bson.D{{Key: "$gte", Value: 65}}}},
			}}},
		},
		{
			name: "negated conjunction",
			spec: spec.MustNot(spec.Must(spec.Gt("Age", 1), spec.NotNull("FirstName"))),
			expected: bson.D{{Key: "$nor", Value: bson.A{
				bson.D{{Key: "$and", Value: bson.A{
					bson.D{{Key: "age", Value: bson.D{{Key: "$gt", Value: 1}}}},
					bson.D{{Key: "firstname", Value: bson.D{{Key: "$ne", Value: nil}}}},
				}}},
			}}},
		},
		{
			name:     "empty disjunction matches nothing",
			spec:     spec.Should(),
			expected: bson.D{{Key: "$nor", Value: bson.A{bson.D{}}}},
		},
	}

	translator := mongostore.NewTranslator(reflect.TypeFor[customer]())

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			filter, err := translator.Filter(tc.spec)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, filter)
		})
	}
}

func TestTranslator_UnsupportedField(t *testing.T) {
	t.Parallel()

	translator := mongostore.NewTranslator(reflect.TypeFor[customer]())

	_, err := translator.Filter(spec.Eq("Nickname", "x"))
	require.ErrorIs(t, err, mongostore.ErrUnsupportedField)

	_, err = translator.Filter(spec.Should(spec.Eq("Age", 1), spec.Eq("Secret", "x")))
	require.ErrorIs(t, err, mongostore.ErrUnsupportedField)

	_, err = translator.Sort("Nickname", queryable.Ascending)
	require.ErrorIs(t, err, mongostore.ErrUnsupportedField)
}

func TestLikeToRegex(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"Anna":   "^Anna$",
		"%nn%":   "^.*nn.*$",
		"A_na":   "^A.na$",
		"a+b(%)": `^a\+b\(.*\)$`,
		"":       "^$",
	}

	for pattern, expected := range cases {
		assert.Equal(t, expected, mongostore.LikeToRegex(pattern), pattern)
	}
}
