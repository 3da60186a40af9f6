package memory

import (
	"cmp"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/architeacher/smartsearch/pkg/search/selection"
	"github.com/architeacher/smartsearch/pkg/spec"
)

var ErrUnsupportedOperator = errors.New("unsupported operator")

var timeType = reflect.TypeFor[time.Time]()

// truth is a three-valued result. A leaf over a member that is unreachable
// through a nil pointer is unknown, as a comparison with NULL is in SQL.
type truth uint8

const (
	falsy truth = iota
	truthy
	unknown
)

func truthOf(b bool) truth {
	if b {
		return truthy
	}

	return falsy
}

// Evaluate reports whether root (a model value or pointer) satisfies s. Leaves
// whose member is unreachable through a nil pointer only satisfy is_null, and
// negating them does not satisfy the specification either.
func Evaluate(s spec.Specification, root reflect.Value) (bool, error) {
	t, err := evaluate(s, root)

	return t == truthy, err
}

func evaluate(s spec.Specification, root reflect.Value) (truth, error) {
	switch s.Operator() {
	case spec.OpMust:
		result := truthy

		for _, child := range s.Children() {
			t, err := evaluate(child, root)
			if err != nil || t == falsy {
				return falsy, err
			}

			if t == unknown {
				result = unknown
			}
		}

		return result, nil
	case spec.OpShould:
		result := falsy

		for _, child := range s.Children() {
			t, err := evaluate(child, root)
			if err != nil {
				return falsy, err
			}

			if t == truthy {
				return truthy, nil
			}

			if t == unknown {
				result = unknown
			}
		}

		return result, nil
	case spec.OpMustNot:
		t, err := evaluate(s.Children()[0], root)
		if err != nil {
			return falsy, err
		}

		switch t {
		case truthy:
			return falsy, nil
		case falsy:
			return truthy, nil
		default:
			return unknown, nil
		}
	}

	model := root.Type()
	for model.Kind() == reflect.Pointer {
		model = model.Elem()
	}

	sel, err := selection.Resolve(model, s.Field())
	if err != nil {
		return falsy, err
	}

	value, ok := sel.Value(root)
	if ok && (value.Kind() == reflect.Slice || value.Kind() == reflect.Map) && value.IsNil() {
		ok = false
	}

	switch s.Operator() {
	case spec.OpIsNull:
		return truthOf(!ok), nil
	case spec.OpNotNull:
		return truthOf(ok), nil
	}

	if !ok {
		return unknown, nil
	}

	matched, err := evaluateLeaf(s, value)

	return truthOf(matched), err
}

func evaluateLeaf(s spec.Specification, value reflect.Value) (bool, error) {
	switch op := s.Operator(); op {
	case spec.OpEq:
		return compareWith(value, s.Value()) == 0, nil
	case spec.OpNotEq:
		return compareWith(value, s.Value()) != 0, nil
	case spec.OpGt:
		return compareWith(value, s.Value()) > 0, nil
	case spec.OpGte:
		return compareWith(value, s.Value()) >= 0, nil
	case spec.OpLt:
		return compareWith(value, s.Value()) < 0, nil
	case spec.OpLte:
		return compareWith(value, s.Value()) <= 0, nil
	case spec.OpIn, spec.OpNotIn:
		found := false

		for _, candidate := range asSlice(s.Value()) {
			if compareWith(value, candidate) == 0 {
				found = true

				break
			}
		}

		return found == (op == spec.OpIn), nil
	case spec.OpBetween:
		bounds := asSlice(s.Value())
		if len(bounds) != 2 {
			return false, fmt.Errorf("%w: between needs two bounds on %s", ErrUnsupportedOperator, s.Field())
		}

		return compareWith(value, bounds[0]) >= 0 && compareWith(value, bounds[1]) <= 0, nil
	case spec.OpLike, spec.OpContains, spec.OpStartsWith, spec.OpEndsWith:
		if value.Kind() != reflect.String {
			return false, fmt.Errorf("%w: %s on non-string member %s", ErrUnsupportedOperator, op, s.Field())
		}

		return MatchLike(value.String(), spec.Pattern(op, fmt.Sprint(s.Value()))), nil
	default:
		return false, fmt.Errorf("%w: %s", ErrUnsupportedOperator, op)
	}
}

func asSlice(v any) []any {
	if values, ok := v.([]any); ok {
		return values
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return []any{v}
	}

	values := make([]any, rv.Len())
	for i := range values {
		values[i] = rv.Index(i).Interface()
	}

	return values
}

func compareWith(a reflect.Value, b any) int {
	bv := reflect.ValueOf(b)
	for bv.Kind() == reflect.Pointer || bv.Kind() == reflect.Interface {
		if bv.IsNil() {
			return 1
		}

		bv = bv.Elem()
	}

	if !bv.IsValid() {
		return 1
	}

	return compareValues(a, bv)
}

func compareValues(a, b reflect.Value) int {
	switch {
	case isInt(a) && isInt(b):
		return cmp.Compare(a.Int(), b.Int())
	case isUint(a) && isUint(b):
		return cmp.Compare(a.Uint(), b.Uint())
	case isNumber(a) && isNumber(b):
		return cmp.Compare(toFloat(a), toFloat(b))
	case a.Kind() == reflect.String && b.Kind() == reflect.String:
		return strings.Compare(a.String(), b.String())
	case a.Kind() == reflect.Bool && b.Kind() == reflect.Bool:
		return cmp.Compare(boolRank(a.Bool()), boolRank(b.Bool()))
	case a.Type() == timeType && b.Type() == timeType:
		return a.Interface().(time.Time).Compare(b.Interface().(time.Time))
	}

	if b.Type().ConvertibleTo(a.Type()) && a.Comparable() {
		converted := b.Convert(a.Type())
		if converted.Comparable() && a.Equal(converted) {
			return 0
		}
	}

	return strings.Compare(fmt.Sprint(a.Interface()), fmt.Sprint(b.Interface()))
}

func isInt(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return true
	default:
		return false
	}
}

func isUint(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return true
	default:
		return false
	}
}

func isNumber(v reflect.Value) bool {
	return isInt(v) || isUint(v) || v.Kind() == reflect.Float32 || v.Kind() == reflect.Float64
}

func toFloat(v reflect.Value) float64 {
	switch {
	case isInt(v):
		return float64(v.Int())
	case isUint(v):
		return float64(v.Uint())
	default:
		return v.Float()
	}
}

func boolRank(b bool) int {
	if b {
		return 1
	}

	return 0
}

// MatchLike reports whether s matches an SQL LIKE pattern. '%' matches any run
// of characters, '_' exactly one. Matching is case-sensitive.
func MatchLike(s, pattern string) bool {
	sr, pr := []rune(s), []rune(pattern)

	var (
		si, pi int
		star   = -1
		mark   int
	)

	for si < len(sr) {
		switch {
		case pi < len(pr) && pr[pi] == '%':
			star, mark = pi, si
			pi++
		case pi < len(pr) && (pr[pi] == '_' || pr[pi] == sr[si]):
			si++
			pi++
		case star >= 0:
			pi = star + 1
			mark++
			si = mark
		default:
			return false
		}
	}

	for pi < len(pr) && pr[pi] == '%' {
		pi++
	}

	return pi == len(pr)
}
