package spec

import "fmt"

type baseSpec struct {
	self Specification
}

func (b *baseSpec) setSelf(s Specification) { b.self = s }

func (b *baseSpec) Must(other Specification) Specification {
	return &mustSpec{specs: []Specification{b.self, other}}
}
func (b *baseSpec) Should(other Specification) Specification {
	return &shouldSpec{specs: []Specification{b.self, other}}
}
func (b *baseSpec) MustNot() Specification    { return &mustNotSpec{spec: b.self} }
func (b *baseSpec) IsComposite() bool         { return false }
func (b *baseSpec) Children() []Specification { return nil }

type leafSpec struct {
	baseSpec
	op    Operator
	field string
	value any
}

func newLeaf(op Operator, field string, value any) Specification {
	s := &leafSpec{op: op, field: field, value: value}
	s.setSelf(s)

	return s
}

func (s *leafSpec) Operator() Operator { return s.op }
func (s *leafSpec) Field() string      { return s.field }
func (s *leafSpec) Value() any         { return s.value }

func (s *leafSpec) String() string {
	switch s.op {
	case OpIsNull, OpNotNull:
		return fmt.Sprintf("%s %s", s.field, s.op)
	default:
		return fmt.Sprintf("%s %s %v", s.field, s.op, s.value)
	}
}

func Eq(field string, value any) Specification    { return newLeaf(OpEq, field, value) }
func NotEq(field string, value any) Specification { return newLeaf(OpNotEq, field, value) }
func Gt(field string, value any) Specification    { return newLeaf(OpGt, field, value) }
func Gte(field string, value any) Specification   { return newLeaf(OpGte, field, value) }
func Lt(field string, value any) Specification    { return newLeaf(OpLt, field, value) }
func Lte(field string, value any) Specification   { return newLeaf(OpLte, field, value) }

func In(field string, values ...any) Specification {
	return newLeaf(OpIn, field, values)
}

func NotIn(field string, values ...any) Specification {
	return newLeaf(OpNotIn, field, values)
}

// Like matches field against an SQL LIKE pattern where '%' matches any run of
// characters and '_' matches exactly one.
func Like(field, pattern string) Specification {
	return newLeaf(OpLike, field, pattern)
}

func Contains(field, value string) Specification {
	return newLeaf(OpContains, field, value)
}

func StartsWith(field, value string) Specification {
	return newLeaf(OpStartsWith, field, value)
}

func EndsWith(field, value string) Specification {
	return newLeaf(OpEndsWith, field, value)
}

// Between is inclusive on both ends.
func Between(field string, start, end any) Specification {
	return newLeaf(OpBetween, field, []any{start, end})
}

func IsNull(field string) Specification  { return newLeaf(OpIsNull, field, nil) }
func NotNull(field string) Specification { return newLeaf(OpNotNull, field, nil) }

// Compare builds the leaf for a comparison operator. It returns nil for
// composite operators.
func Compare(op Operator, field string, value any) Specification {
	switch op {
	case OpIn, OpNotIn:
		if values, ok := value.([]any); ok {
			return newLeaf(op, field, values)
		}

		return newLeaf(op, field, []any{value})
	case OpLike, OpContains, OpStartsWith, OpEndsWith:
		return newLeaf(op, field, fmt.Sprint(value))
	case OpMust, OpShould, OpMustNot:
		return nil
	default:
		return newLeaf(op, field, value)
	}
}
