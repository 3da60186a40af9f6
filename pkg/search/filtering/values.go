package filtering

import (
	"reflect"
	"strings"
	"time"

	"github.com/architeacher/smartsearch/pkg/search/criterion"
	"github.com/architeacher/smartsearch/pkg/search/selection"
)

var (
	timeType  = reflect.TypeFor[time.Time]()
	unixEpoch = time.Unix(0, 0)
)

// isEmpty is the guard applied to fields that ignore empty values. Pointers
// are empty only when nil; numbers must be greater than zero.
func isEmpty(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Invalid:
		return true
	case reflect.Pointer, reflect.Interface, reflect.Chan, reflect.Func:
		return v.IsNil()
	case reflect.String:
		return strings.TrimSpace(v.String()) == ""
	case reflect.Slice, reflect.Map:
		return v.Len() == 0
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int() <= 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return v.Uint() == 0
	case reflect.Float32, reflect.Float64:
		return v.Float() <= 0
	case reflect.Bool:
		return !v.Bool()
	case reflect.Struct:
		if v.Type() == timeType {
			t := v.Interface().(time.Time)

			return t.IsZero() || t.Equal(unixEpoch)
		}

		return v.IsZero()
	default:
		return v.IsZero()
	}
}

// converter turns a non-nil, dereferenced filter value into the value placed
// in the predicate leaf.
type converter func(v reflect.Value) any

// newConverter checks that a filter field of type from can be compared with a
// model member of type to under op, and returns the value conversion.
func newConverter(from, to reflect.Type, op criterion.Operator) (converter, bool) {
	from, to = selection.Indirect(from), selection.Indirect(to)

	switch {
	case op == criterion.In:
		if from.Kind() != reflect.Slice && from.Kind() != reflect.Array {
			return nil, false
		}

		elem := selection.Indirect(from.Elem())
		if !compatible(elem, to) {
			return nil, false
		}

		return func(v reflect.Value) any {
			values := make([]any, 0, v.Len())

			for i := range v.Len() {
				item := v.Index(i)
				for item.Kind() == reflect.Pointer {
					if item.IsNil() {
						break
					}

					item = item.Elem()
				}

				if item.Kind() == reflect.Pointer {
					continue
				}

				values = append(values, item.Convert(to).Interface())
			}

			return values
		}, true
	case op.IsPattern():
		if to.Kind() != reflect.String || from.Kind() != reflect.String {
			return nil, false
		}

		return func(v reflect.Value) any { return v.String() }, true
	default:
		if !compatible(from, to) {
			return nil, false
		}

		return func(v reflect.Value) any { return v.Convert(to).Interface() }, true
	}
}

// compatible allows identical and assignable types, conversions between
// named types of the same kind and lossless numeric widening. Pairs that could
// truncate or wrap a filter value, such as float to int or int64 to int8, are
// rejected.
func compatible(from, to reflect.Type) bool {
	if from == to || from.AssignableTo(to) {
		return true
	}

	if from.Kind() == to.Kind() && from.ConvertibleTo(to) {
		return true
	}

	return widens(from, to)
}

// widens reports whether every value of the numeric type from is exactly
// representable in to.
func widens(from, to reflect.Type) bool {
	switch {
	case isSigned(from) && isSigned(to), isUnsigned(from) && isUnsigned(to), isFloat(from) && isFloat(to):
		return from.Bits() <= to.Bits()
	case isUnsigned(from) && isSigned(to):
		return from.Bits() < to.Bits()
	case (isSigned(from) || isUnsigned(from)) && isFloat(to):
		return from.Bits() <= mantissaBits(to)
	default:
		return false
	}
}

func mantissaBits(t reflect.Type) int {
	if t.Kind() == reflect.Float32 {
		return 24
	}

	return 53
}

func isSigned(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return true
	default:
		return false
	}
}

func isUnsigned(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	default:
		return false
	}
}

func isFloat(t reflect.Type) bool {
	return t.Kind() == reflect.Float32 || t.Kind() == reflect.Float64
}

func indirect(v reflect.Value) (reflect.Value, bool) {
	for v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return v, false
		}

		v = v.Elem()
	}

	return v, v.IsValid()
}
