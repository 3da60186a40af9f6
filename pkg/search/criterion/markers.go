package criterion

import (
	"reflect"

	"github.com/architeacher/smartsearch/pkg/search/selection"
	"github.com/architeacher/smartsearch/pkg/spec"
)

type (
	// ComplexFilter marks a nested filter type whose own fields carry criteria
	// against the member addressed by the enclosing field.
	ComplexFilter interface {
		ComplexFilter()
	}

	// GeneratorContext is handed to expression generators.
	GeneratorContext struct {
		// Model is the model type being filtered.
		Model reflect.Type
		// Filter is the root filter value.
		Filter reflect.Value
		// Field is the filter field being resolved.
		Field reflect.StructField
		// Value is the field value. It is invalid when a nil pointer lies on
		// the way to the field.
		Value reflect.Value
		// Target is the resolved model member, nil when the field name does not
		// address a member.
		Target    *selection.Selection
		Criterion Criterion
	}

	// ExpressionGenerator builds the predicate for a field. Returning nil
	// applies no constraint.
	ExpressionGenerator interface {
		GenerateSpecification(ctx GeneratorContext) spec.Specification
	}

	// ExpressionGeneratorFunc adapts a function to ExpressionGenerator.
	ExpressionGeneratorFunc func(ctx GeneratorContext) spec.Specification
)

func (f ExpressionGeneratorFunc) GenerateSpecification(ctx GeneratorContext) spec.Specification {
	return f(ctx)
}

var (
	complexFilterType       = reflect.TypeFor[ComplexFilter]()
	expressionGeneratorType = reflect.TypeFor[ExpressionGenerator]()
)

// IsComplexFilter reports whether t or a pointer to t implements ComplexFilter.
func IsComplexFilter(t reflect.Type) bool {
	return implements(t, complexFilterType)
}

// IsExpressionGenerator reports whether t or a pointer to t implements
// ExpressionGenerator.
func IsExpressionGenerator(t reflect.Type) bool {
	return implements(t, expressionGeneratorType)
}

func implements(t, iface reflect.Type) bool {
	t = selection.Indirect(t)

	return t.Implements(iface) || reflect.PointerTo(t).Implements(iface)
}
