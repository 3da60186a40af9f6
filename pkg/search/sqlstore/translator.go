package sqlstore

import (
	"fmt"
	"reflect"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/architeacher/smartsearch/pkg/search/queryable"
	"github.com/architeacher/smartsearch/pkg/search/selection"
	"github.com/architeacher/smartsearch/pkg/spec"
)

// Translator lowers predicate trees over a model into squirrel conditions.
type Translator struct {
	model reflect.Type
}

func NewTranslator(model reflect.Type) *Translator {
	return &Translator{model: model}
}

func (t *Translator) Translate(s spec.Specification) (sq.Sqlizer, error) {
	switch s.Operator() {
	case spec.OpMust, spec.OpShould:
		return t.junction(s)

	case spec.OpMustNot:
		children := s.Children()
		if len(children) == 0 {
			return nil, fmt.Errorf("%w: empty negation", ErrUnsupportedOperator)
		}

		inner, err := t.Translate(children[0])
		if err != nil {
			return nil, err
		}

		return sq.Expr("NOT (?)", inner), nil
	}

	col, err := t.Column(s.Field())
	if err != nil {
		return nil, err
	}

	switch op := s.Operator(); op {
	case spec.OpEq:
		return sq.Eq{col: s.Value()}, nil

	case spec.OpNotEq:
		return sq.NotEq{col: s.Value()}, nil

	case spec.OpIn:
		return sq.Eq{col: s.Value()}, nil

	case spec.OpNotIn:
		return sq.NotEq{col: s.Value()}, nil

	case spec.OpGt:
		return sq.Gt{col: s.Value()}, nil

	case spec.OpGte:
		return sq.GtOrEq{col: s.Value()}, nil

	case spec.OpLt:
		return sq.Lt{col: s.Value()}, nil

	case spec.OpLte:
		return sq.LtOrEq{col: s.Value()}, nil

	case spec.OpBetween:
		bounds, ok := s.Value().([]any)
		if !ok || len(bounds) != 2 {
			return nil, fmt.Errorf("%w: between needs two bounds on %s", ErrUnsupportedOperator, s.Field())
		}

		return sq.And{sq.GtOrEq{col: bounds[0]}, sq.LtOrEq{col: bounds[1]}}, nil

	case spec.OpLike, spec.OpContains, spec.OpStartsWith, spec.OpEndsWith:
		return sq.Like{col: spec.Pattern(op, fmt.Sprint(s.Value()))}, nil

	case spec.OpIsNull:
		return sq.Eq{col: nil}, nil

	case spec.OpNotNull:
		return sq.NotEq{col: nil}, nil

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedOperator, op)
	}
}

func (t *Translator) junction(s spec.Specification) (sq.Sqlizer, error) {
	children := s.Children()
	conditions := make([]sq.Sqlizer, 0, len(children))

	for _, child := range children {
		c, err := t.Translate(child)
		if err != nil {
			return nil, err
		}

		conditions = append(conditions, c)
	}

	if s.Operator() == spec.OpShould {
		return sq.Or(conditions), nil
	}

	return sq.And(conditions), nil
}

// Column returns the stored column of a member path such as "Address.City".
func (t *Translator) Column(path string) (string, error) {
	sel, err := selection.Resolve(t.model, path)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnsupportedField, err)
	}

	if k := sel.Elem().Kind(); k == reflect.Map || (k == reflect.Slice && sel.Elem() != bytesType) {
		return "", fmt.Errorf("%w: %s is a collection", ErrUnsupportedField, sel)
	}

	col, ok := columnOf(sel.Fields())
	if !ok {
		return "", fmt.Errorf("%w: %s is not mapped", ErrUnsupportedField, sel)
	}

	return col, nil
}

// OrderBy renders one ORDER BY term.
func (t *Translator) OrderBy(path string, dir queryable.Direction) (string, error) {
	col, err := t.Column(path)
	if err != nil {
		return "", err
	}

	return col + " " + strings.ToUpper(dir.String()), nil
}
