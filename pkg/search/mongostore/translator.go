package mongostore

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/architeacher/smartsearch/pkg/search/queryable"
	"github.com/architeacher/smartsearch/pkg/search/selection"
	"github.com/architeacher/smartsearch/pkg/spec"
	"go.mongodb.org/mongo-driver/bson"
)

// Translator lowers predicate trees over a model into bson filters. Member
// paths become dotted document keys named the way the default struct codec
// names them: the bson tag, else the lower-cased field name.
type Translator struct {
	model reflect.Type
}

func NewTranslator(model reflect.Type) *Translator {
	return &Translator{model: model}
}

func (t *Translator) Filter(s spec.Specification) (bson.D, error) {
	switch s.Operator() {
	case spec.OpMust, spec.OpShould:
		children := s.Children()
		if len(children) == 0 {
			if s.Operator() == spec.OpShould {
				// {} matches every document, so nor-ing it matches none.
				return bson.D{{Key: "$nor", Value: bson.A{bson.D{}}}}, nil
			}

			return bson.D{}, nil
		}

		parts, err := t.filters(children)
		if err != nil {
			return nil, err
		}

		key := "$and"
		if s.Operator() == spec.OpShould {
			key = "$or"
		}

		return bson.D{{Key: key, Value: parts}}, nil

	case spec.OpMustNot:
		parts, err := t.filters(s.Children())
		if err != nil {
			return nil, err
		}

		return bson.D{{Key: "$nor", Value: parts}}, nil
	}

	key, err := t.Key(s.Field())
	if err != nil {
		return nil, err
	}

	cond, err := condition(s)
	if err != nil {
		return nil, err
	}

	return bson.D{{Key: key, Value: cond}}, nil
}

func (t *Translator) filters(specs []spec.Specification) (bson.A, error) {
	parts := make(bson.A, 0, len(specs))

	for _, child := range specs {
		f, err := t.Filter(child)
		if err != nil {
			return nil, err
		}

		parts = append(parts, f)
	}

	return parts, nil
}

func condition(s spec.Specification) (bson.D, error) {
	switch op := s.Operator(); op {
	case spec.OpEq:
		return bson.D{{Key: "$eq", Value: s.Value()}}, nil
	case spec.OpNotEq:
		return bson.D{{Key: "$ne", Value: s.Value()}}, nil
	case spec.OpIn:
		return bson.D{{Key: "$in", Value: array(s.Value())}}, nil
	case spec.OpNotIn:
		return bson.D{{Key: "$nin", Value: array(s.Value())}}, nil
	case spec.OpGt:
		return bson.D{{Key: "$gt", Value: s.Value()}}, nil
	case spec.OpGte:
		return bson.D{{Key: "$gte", Value: s.Value()}}, nil
	case spec.OpLt:
		return bson.D{{Key: "$lt", Value: s.Value()}}, nil
	case spec.OpLte:
		return bson.D{{Key: "$lte", Value: s.Value()}}, nil
	case spec.OpBetween:
		bounds := array(s.Value())
		if len(bounds) != 2 {
			return nil, fmt.Errorf("%w: between needs two bounds on %s", ErrUnsupportedOperator, s.Field())
		}

		return bson.D{{Key: "$gte", Value: bounds[0]}, {Key: "$lte", Value: bounds[1]}}, nil
	case spec.OpLike, spec.OpContains, spec.OpStartsWith, spec.OpEndsWith:
		return bson.D{{Key: "$regex", Value: LikeToRegex(spec.Pattern(op, fmt.Sprint(s.Value())))}}, nil
	case spec.OpIsNull:
		return bson.D{{Key: "$eq", Value: nil}}, nil
	case spec.OpNotNull:
		return bson.D{{Key: "$ne", Value: nil}}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedOperator, op)
	}
}

func array(v any) bson.A {
	if values, ok := v.([]any); ok {
		return bson.A(values)
	}

	return bson.A{v}
}

// LikeToRegex converts an SQL LIKE pattern into an anchored regular
// expression.
func LikeToRegex(pattern string) string {
	var b strings.Builder

	b.WriteByte('^')

	for _, r := range pattern {
		switch r {
		case '%':
			b.WriteString(".*")
		case '_':
			b.WriteByte('.')
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}

	b.WriteByte('$')

	return b.String()
}

// Key returns the document key of a member path such as "Address.City".
func (t *Translator) Key(path string) (string, error) {
	sel, err := selection.Resolve(t.model, path)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnsupportedField, err)
	}

	keys := make([]string, 0, len(sel.Fields()))

	for _, f := range sel.Fields() {
		key, inline, ok := fieldKey(f)
		if !ok {
			return "", fmt.Errorf("%w: %s is not mapped", ErrUnsupportedField, sel)
		}

		if !inline {
			keys = append(keys, key)
		}
	}

	return strings.Join(keys, "."), nil
}

// Sort renders one sort key.
func (t *Translator) Sort(path string, dir queryable.Direction) (bson.E, error) {
	key, err := t.Key(path)
	if err != nil {
		return bson.E{}, err
	}

	order := 1
	if dir == queryable.Descending {
		order = -1
	}

	return bson.E{Key: key, Value: order}, nil
}

func fieldKey(f reflect.StructField) (key string, inline, ok bool) {
	name, opts, _ := strings.Cut(f.Tag.Get("bson"), ",")
	if name == "-" {
		return "", false, false
	}

	if strings.Contains(opts, "inline") {
		return "", true, true
	}

	if name == "" {
		name = strings.ToLower(f.Name)
	}

	return name, false, true
}
