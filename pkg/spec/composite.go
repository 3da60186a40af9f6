package spec

import (
	"slices"
	"strings"
)

type mustSpec struct {
	specs []Specification
}

func Must(specs ...Specification) Specification {
	return &mustSpec{specs: specs}
}

func (s *mustSpec) Must(other Specification) Specification {
	return &mustSpec{specs: slices.Concat(s.specs, []Specification{other})}
}

func (s *mustSpec) Should(other Specification) Specification {
	return &shouldSpec{specs: []Specification{s, other}}
}

func (s *mustSpec) MustNot() Specification    { return &mustNotSpec{spec: s} }
func (s *mustSpec) IsComposite() bool         { return true }
func (s *mustSpec) Children() []Specification { return s.specs }
func (s *mustSpec) Operator() Operator        { return OpMust }
func (s *mustSpec) Field() string             { return "" }
func (s *mustSpec) Value() any                { return nil }
func (s *mustSpec) String() string            { return join(s.specs, " AND ") }

type shouldSpec struct {
	specs []Specification
}

func Should(specs ...Specification) Specification {
	return &shouldSpec{specs: specs}
}

func (s *shouldSpec) Must(other Specification) Specification {
	return &mustSpec{specs: []Specification{s, other}}
}

func (s *shouldSpec) Should(other Specification) Specification {
	return &shouldSpec{specs: slices.Concat(s.specs, []Specification{other})}
}

func (s *shouldSpec) MustNot() Specification    { return &mustNotSpec{spec: s} }
func (s *shouldSpec) IsComposite() bool         { return true }
func (s *shouldSpec) Children() []Specification { return s.specs }
func (s *shouldSpec) Operator() Operator        { return OpShould }
func (s *shouldSpec) Field() string             { return "" }
func (s *shouldSpec) Value() any                { return nil }
func (s *shouldSpec) String() string            { return join(s.specs, " OR ") }

type mustNotSpec struct {
	spec Specification
}

func MustNot(spec Specification) Specification {
	return &mustNotSpec{spec: spec}
}

func (s *mustNotSpec) Must(other Specification) Specification {
	return &mustSpec{specs: []Specification{s, other}}
}

func (s *mustNotSpec) Should(other Specification) Specification {
	return &shouldSpec{specs: []Specification{s, other}}
}

func (s *mustNotSpec) MustNot() Specification    { return s.spec }
func (s *mustNotSpec) IsComposite() bool         { return true }
func (s *mustNotSpec) Children() []Specification { return []Specification{s.spec} }
func (s *mustNotSpec) Operator() Operator        { return OpMustNot }
func (s *mustNotSpec) Field() string             { return "" }
func (s *mustNotSpec) Value() any                { return nil }
func (s *mustNotSpec) String() string            { return "NOT (" + s.spec.String() + ")" }

// AllOf conjoins the non-nil specs. It returns nil when none remain and the
// single spec itself when only one does.
func AllOf(specs ...Specification) Specification {
	return combine(specs, Must)
}

// AnyOf disjoins the non-nil specs with the same collapsing rules as AllOf.
func AnyOf(specs ...Specification) Specification {
	return combine(specs, Should)
}

func combine(specs []Specification, fn func(...Specification) Specification) Specification {
	kept := slices.DeleteFunc(slices.Clone(specs), func(s Specification) bool { return s == nil })

	switch len(kept) {
	case 0:
		return nil
	case 1:
		return kept[0]
	default:
		return fn(kept...)
	}
}

func join(specs []Specification, sep string) string {
	parts := make([]string, 0, len(specs))
	for _, s := range specs {
		parts = append(parts, s.String())
	}

	return "(" + strings.Join(parts, sep) + ")"
}
