// Package spec holds the backend-neutral predicate tree produced by filter
// specifiers. Backends lower a Specification into their own query language.
package spec

type Operator string

const (
	OpEq         Operator = "eq"
	OpNotEq      Operator = "neq"
	OpIn         Operator = "in"
	OpNotIn      Operator = "not_in"
	OpLike       Operator = "like"
	OpContains   Operator = "contains"
	OpStartsWith Operator = "starts_with"
	OpEndsWith   Operator = "ends_with"
	OpGt         Operator = "gt"
	OpGte        Operator = "gte"
	OpLt         Operator = "lt"
	OpLte        Operator = "lte"
	OpBetween    Operator = "between"
	OpIsNull     Operator = "is_null"
	OpNotNull    Operator = "not_null"
	OpMust       Operator = "must"
	OpShould     Operator = "should"
	OpMustNot    Operator = "must_not"
)

// Specification is a node of the predicate tree. Leaves compare the model
// member addressed by Field (a dotted Go field path such as "Address.City")
// with Value. Composites combine their Children.
type Specification interface {
	Must(other Specification) Specification
	Should(other Specification) Specification
	MustNot() Specification
	IsComposite() bool
	Children() []Specification
	Operator() Operator
	Field() string
	Value() any
	String() string
}

// IsComposite reports whether op combines other specifications.
func (op Operator) IsComposite() bool {
	switch op {
	case OpMust, OpShould, OpMustNot:
		return true
	default:
		return false
	}
}

// IsPattern reports whether op matches a string pattern.
func (op Operator) IsPattern() bool {
	switch op {
	case OpLike, OpContains, OpStartsWith, OpEndsWith:
		return true
	default:
		return false
	}
}

// Pattern returns the LIKE pattern equivalent to a pattern leaf: contains,
// starts-with and ends-with wrap value in '%' wildcards, like keeps it as is.
func Pattern(op Operator, value string) string {
	switch op {
	case OpContains:
		return "%" + value + "%"
	case OpStartsWith:
		return value + "%"
	case OpEndsWith:
		return "%" + value
	default:
		return value
	}
}

// Walk visits s and its descendants depth-first. Returning false from fn stops
// the descent into the children of the visited node.
func Walk(s Specification, fn func(Specification) bool) {
	if s == nil || !fn(s) {
		return
	}

	for _, child := range s.Children() {
		Walk(child, fn)
	}
}

// Fields returns the distinct member paths referenced by s, in visiting order.
func Fields(s Specification) []string {
	var (
		fields []string
		seen   = make(map[string]struct{})
	)

	Walk(s, func(node Specification) bool {
		if node.IsComposite() {
			return true
		}

		if _, ok := seen[node.Field()]; !ok {
			seen[node.Field()] = struct{}{}
			fields = append(fields, node.Field())
		}

		return true
	})

	return fields
}
