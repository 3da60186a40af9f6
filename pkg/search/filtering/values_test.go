package filtering

import (
	"reflect"
	"testing"
	"time"

	"github.com/architeacher/smartsearch/pkg/search/criterion"
	"github.com/stretchr/testify/require"
)

func TestIsEmpty(t *testing.T) {
	t.Parallel()

	text := ""

	cases := []struct {
		name     string
		value    any
		expected bool
	}{
		{name: "blank string", value: "  ", expected: true},
		{name: "string", value: "a", expected: false},
		{name: "nil slice", value: []int(nil), expected: true},
		{name: "slice", value: []int{0}, expected: false},
		{name: "empty map", value: map[string]int{}, expected: true},
		{name: "nil pointer", value: (*int)(nil), expected: true},
		{name: "pointer to empty string", value: &text, expected: false},
		{name: "zero int", value: 0, expected: true},
		{name: "negative int", value: -3, expected: true},
		{name: "positive int", value: 3, expected: false},
		{name: "zero uint", value: uint8(0), expected: true},
		{name: "float", value: 0.5, expected: false},
		{name: "false", value: false, expected: true},
		{name: "true", value: true, expected: false},
		{name: "zero time", value: time.Time{}, expected: true},
		{name: "epoch", value: time.Unix(0, 0).UTC(), expected: true},
		{name: "time", value: time.Now(), expected: false},
		{name: "zero struct", value: struct{ A int }{}, expected: true},
		{name: "struct", value: struct{ A int }{A: 1}, expected: false},
		{name: "zero array", value: [2]byte{}, expected: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			require.Equal(t, tc.expected, isEmpty(reflect.ValueOf(tc.value)))
		})
	}

	require.True(t, isEmpty(reflect.Value{}))
}

func TestNewConverter(t *testing.T) {
	t.Parallel()

	type code string

	cases := []struct {
		name       string
		from, to   reflect.Type
		op         criterion.Operator
		compatible bool
	}{
		{name: "same type", from: reflect.TypeFor[string](), to: reflect.TypeFor[string](), op: criterion.Equal, compatible: true},
		{name: "named string", from: reflect.TypeFor[string](), to: reflect.TypeFor[code](), op: criterion.Equal, compatible: true},
		{name: "int widening", from: reflect.TypeFor[int8](), to: reflect.TypeFor[int64](), op: criterion.Equal, compatible: true},
		{name: "uint to wider int", from: reflect.TypeFor[uint32](), to: reflect.TypeFor[int64](), op: criterion.Equal, compatible: true},
		{name: "uint to same size int", from: reflect.TypeFor[uint64](), to: reflect.TypeFor[int64](), op: criterion.Equal, compatible: false},
		{name: "int32 to float64", from: reflect.TypeFor[int32](), to: reflect.TypeFor[float64](), op: criterion.GreaterThan, compatible: true},
		{name: "int64 to float64", from: reflect.TypeFor[int64](), to: reflect.TypeFor[float64](), op: criterion.GreaterThan, compatible: false},
		{name: "float32 to float64", from: reflect.TypeFor[float32](), to: reflect.TypeFor[float64](), op: criterion.LessThan, compatible: true},
		{name: "float to int", from: reflect.TypeFor[float64](), to: reflect.TypeFor[int](), op: criterion.Equal, compatible: false},
		{name: "int narrowing", from: reflect.TypeFor[int](), to: reflect.TypeFor[int8](), op: criterion.Equal, compatible: false},
		{name: "signed to unsigned", from: reflect.TypeFor[int8](), to: reflect.TypeFor[uint64](), op: criterion.Equal, compatible: false},
		{name: "in over narrowing elements", from: reflect.TypeFor[[]float64](), to: reflect.TypeFor[int](), op: criterion.In, compatible: false},
		{name: "pointers", from: reflect.TypeFor[*int](), to: reflect.TypeFor[*int64](), op: criterion.Equal, compatible: true},
		{name: "number to string", from: reflect.TypeFor[int](), to: reflect.TypeFor[string](), op: criterion.Equal, compatible: false},
		{name: "pattern on number", from: reflect.TypeFor[string](), to: reflect.TypeFor[int](), op: criterion.Like, compatible: false},
		{name: "in over slice", from: reflect.TypeFor[[]int32](), to: reflect.TypeFor[int](), op: criterion.In, compatible: true},
		{name: "in over scalar", from: reflect.TypeFor[int](), to: reflect.TypeFor[int](), op: criterion.In, compatible: false},
		{name: "time", from: reflect.TypeFor[time.Time](), to: reflect.TypeFor[time.Time](), op: criterion.LessThan, compatible: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			_, ok := newConverter(tc.from, tc.to, tc.op)
			require.Equal(t, tc.compatible, ok)
		})
	}
}

func TestNewConverter_In(t *testing.T) {
	t.Parallel()

	one := int32(1)

	convert, ok := newConverter(reflect.TypeFor[[]*int32](), reflect.TypeFor[int64](), criterion.In)
	require.True(t, ok)
	require.Equal(t, []any{int64(1)}, convert(reflect.ValueOf([]*int32{&one, nil})))
}

func TestDisjunction(t *testing.T) {
	t.Parallel()

	var d disjunction
	require.Nil(t, d.combine())

	d.add(nil)
	require.Nil(t, d.combine())
}
