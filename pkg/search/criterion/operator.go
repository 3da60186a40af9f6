package criterion

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/architeacher/smartsearch/pkg/spec"
)

type Operator int

const (
	Auto Operator = iota
	Equal
	NotEqual
	GreaterThan
	GreaterThanOrEqual
	LessThan
	LessThanOrEqual
	Like
	Contains
	StartsWith
	EndsWith
	In
)

var ErrUnknownOperator = errors.New("unknown operator")

var operatorNames = map[string]Operator{
	"auto":       Auto,
	"eq":         Equal,
	"neq":        NotEqual,
	"gt":         GreaterThan,
	"gte":        GreaterThanOrEqual,
	"lt":         LessThan,
	"lte":        LessThanOrEqual,
	"like":       Like,
	"contains":   Contains,
	"startswith": StartsWith,
	"endswith":   EndsWith,
	"in":         In,
}

func ParseOperator(name string) (Operator, error) {
	op, ok := operatorNames[strings.ToLower(name)]
	if !ok {
		return Auto, fmt.Errorf("%w: %q", ErrUnknownOperator, name)
	}

	return op, nil
}

func (o Operator) String() string {
	for name, op := range operatorNames {
		if op == o {
			return name
		}
	}

	return fmt.Sprintf("operator(%d)", int(o))
}

// Resolve replaces Auto with the operator implied by the filter field type:
// like for strings, in for collections and equal otherwise.
func (o Operator) Resolve(filterType reflect.Type) Operator {
	if o != Auto {
		return o
	}

	for filterType.Kind() == reflect.Pointer {
		filterType = filterType.Elem()
	}

	switch filterType.Kind() {
	case reflect.String:
		return Like
	case reflect.Slice, reflect.Array:
		if filterType.Elem().Kind() == reflect.Uint8 {
			return Equal
		}

		return In
	default:
		return Equal
	}
}

// IsPattern reports whether the operator compares strings by pattern.
func (o Operator) IsPattern() bool {
	switch o {
	case Like, Contains, StartsWith, EndsWith:
		return true
	default:
		return false
	}
}

// Spec maps a resolved operator onto the predicate tree operator.
func (o Operator) Spec() spec.Operator {
	switch o {
	case NotEqual:
		return spec.OpNotEq
	case GreaterThan:
		return spec.OpGt
	case GreaterThanOrEqual:
		return spec.OpGte
	case LessThan:
		return spec.OpLt
	case LessThanOrEqual:
		return spec.OpLte
	case Like:
		return spec.OpLike
	case Contains:
		return spec.OpContains
	case StartsWith:
		return spec.OpStartsWith
	case EndsWith:
		return spec.OpEndsWith
	case In:
		return spec.OpIn
	default:
		return spec.OpEq
	}
}
