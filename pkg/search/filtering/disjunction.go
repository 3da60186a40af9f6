package filtering

import (
	"reflect"

	"github.com/architeacher/smartsearch/pkg/spec"
)

// disjunction collects the predicates of one OR group while a filter value is
// being applied. Members that produce nothing are left out.
type disjunction struct {
	specs []spec.Specification
}

func (d *disjunction) add(s spec.Specification) {
	if s != nil {
		d.specs = append(d.specs, s)
	}
}

// combine returns nil when no member contributed, so the group applies no
// constraint.
func (d *disjunction) combine() spec.Specification {
	return spec.AnyOf(d.specs...)
}

func disjunctionClause(members []clause) clause {
	return func(filter reflect.Value) spec.Specification {
		var d disjunction

		for _, member := range members {
			d.add(member(filter))
		}

		return d.combine()
	}
}

// conjunctionClause joins the clauses of a complex member of a disjunction.
func conjunctionClause(parts []clause) clause {
	if len(parts) == 1 {
		return parts[0]
	}

	return func(filter reflect.Value) spec.Specification {
		specs := make([]spec.Specification, 0, len(parts))
		for _, part := range parts {
			specs = append(specs, part(filter))
		}

		return spec.AllOf(specs...)
	}
}
