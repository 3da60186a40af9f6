package filtering

import (
	"fmt"
	"reflect"
	"strings"
	"unicode"

	"github.com/architeacher/smartsearch/pkg/search/criterion"
	"github.com/architeacher/smartsearch/pkg/search/selection"
	"github.com/architeacher/smartsearch/pkg/spec"
)

const (
	kindLack        = "lack"
	kindOperator    = "operator"
	kindPredicate   = "predicate"
	kindGenerator   = "generator"
	kindDisjunction = "disjunction"
	kindMember      = "member"
)

type (
	// clause produces the predicate of one resolution for a filter value, or
	// nil when the resolution does not constrain the query.
	clause func(filter reflect.Value) spec.Specification

	// accessor reads a filter field from the root filter value. It reports
	// false when a nil pointer lies on the way.
	accessor func(filter reflect.Value) (reflect.Value, bool)

	// FilterTarget is what the fields of a (possibly nested) filter are
	// resolved against: the root model, the type being matched and, for
	// nested filters, the member leading to it.
	FilterTarget struct {
		Model  reflect.Type
		Target reflect.Type
		Parent *selection.Selection
	}

	// resolution is one classified filter field: either ready to emit a clause
	// or carrying the lacks that prevent it.
	resolution struct {
		field   string
		kind    string
		lacks   []Lack
		clause  clause
		// members holds the member clauses of a disjunction.
		members []clause
	}

	predicateFactory struct {
		valueType reflect.Type
		build     func(v reflect.Value) spec.Specification
	}

	classifier struct {
		model      reflect.Type
		filter     reflect.Type
		predicates map[string]predicateFactory
		generators map[string]criterion.ExpressionGenerator
		splitOr    bool
	}
)

func rootTarget(model reflect.Type) FilterTarget {
	return FilterTarget{Model: model, Target: model}
}

func (t FilterTarget) resolve(path string) (*selection.Selection, error) {
	if t.Parent == nil {
		return selection.Resolve(t.Model, path)
	}

	return t.Parent.Child(path)
}

func rootAccessor(filter reflect.Value) (reflect.Value, bool) {
	return filter, true
}

func (a accessor) field(index []int) accessor {
	return func(filter reflect.Value) (reflect.Value, bool) {
		parent, ok := a(filter)
		if !ok {
			return reflect.Value{}, false
		}

		if parent, ok = indirect(parent); !ok {
			return reflect.Value{}, false
		}

		return parent.FieldByIndex(index), true
	}
}

func (r resolution) ready() bool { return len(r.lacks) == 0 }

func (c *classifier) lack(path, reason string, args ...any) resolution {
	return resolution{
		field: path,
		kind:  kindLack,
		lacks: []Lack{{
			Model:  c.model.Name(),
			Filter: c.filter.Name(),
			Field:  path,
			Reason: fmt.Sprintf(reason, args...),
		}},
	}
}

// classify walks the fields of filterType in declaration order. Members of a
// disjunction group are emitted as one resolution placed where the first
// member was declared.
func (c *classifier) classify(target FilterTarget, filterType reflect.Type, access accessor, prefix string) []resolution {
	var (
		resolutions []resolution
		groups      = make(map[string]int)
	)

	for i := range filterType.NumField() {
		f := filterType.Field(i)
		if !f.IsExported() {
			continue
		}

		path := prefix + f.Name
		fieldAccess := access.field(f.Index)

		crit, err := criterion.Parse(f)
		if err != nil {
			resolutions = append(resolutions, c.lack(path, "%v", err))

			continue
		}

		if crit.Ignore {
			continue
		}

		if factory, ok := c.predicates[path]; ok {
			resolutions = append(resolutions, c.predicate(path, f, crit, factory, fieldAccess))

			continue
		}

		if crit.Disjunction != "" {
			member := c.join(path, c.single(target, f, crit, fieldAccess, path))

			if at, ok := groups[crit.Disjunction]; ok {
				resolutions[at] = appendMember(resolutions[at], member)
			} else {
				groups[crit.Disjunction] = len(resolutions)
				resolutions = append(resolutions, appendMember(resolution{field: crit.Disjunction, kind: kindDisjunction}, member))
			}

			continue
		}

		if split, ok := c.orSplit(target, f, crit, fieldAccess, path); ok {
			resolutions = append(resolutions, split)

			continue
		}

		resolutions = append(resolutions, c.single(target, f, crit, fieldAccess, path)...)
	}

	return resolutions
}

// single applies the complex, generator and default rules to one field.
func (c *classifier) single(
	target FilterTarget,
	f reflect.StructField,
	crit criterion.Criterion,
	access accessor,
	path string,
) []resolution {
	fieldType := selection.Indirect(f.Type)
	embedded := f.Anonymous && fieldType.Kind() == reflect.Struct

	if embedded || crit.Complex || criterion.IsComplexFilter(f.Type) {
		if fieldType.Kind() != reflect.Struct {
			return []resolution{c.lack(path, "complex filter %s is not a struct", f.Type)}
		}

		nested, r, ok := c.complexTarget(target, f, crit, path)
		if !ok {
			return []resolution{r}
		}

		prefix := path + "."
		if embedded {
			prefix = strings.TrimSuffix(path, f.Name)
		}

		return c.classify(nested, fieldType, access, prefix)
	}

	if crit.Generator != "" || criterion.IsExpressionGenerator(f.Type) {
		return []resolution{c.generator(target, f, crit, access, path)}
	}

	return []resolution{c.operator(target, f, crit, access, path, crit.Target(f.Name))}
}

// complexTarget picks what a nested filter is matched against: the same
// target for embedded filters and for nested filters without a matching
// member, otherwise the member named by the field or its path option.
func (c *classifier) complexTarget(
	target FilterTarget,
	f reflect.StructField,
	crit criterion.Criterion,
	path string,
) (FilterTarget, resolution, bool) {
	if f.Anonymous {
		return target, resolution{}, true
	}

	sel, err := target.resolve(crit.Target(f.Name))
	if err != nil {
		if crit.TargetPath == "" {
			return target, resolution{}, true
		}

		return target, c.lack(path, "target %q not found", crit.TargetPath), false
	}

	if !selection.IsStruct(sel.Type()) {
		return target, c.lack(path, "complex filter cannot target %s of type %s", sel.Path(), sel.Type()), false
	}

	return FilterTarget{Model: target.Model, Target: sel.Elem(), Parent: sel}, resolution{}, true
}

func (c *classifier) operator(
	target FilterTarget,
	f reflect.StructField,
	crit criterion.Criterion,
	access accessor,
	path string,
	targetPath string,
) resolution {
	sel, err := target.resolve(targetPath)
	if err != nil {
		return c.lack(path, "target %q not found", targetPath)
	}

	op := crit.Operator.Resolve(f.Type)

	convert, ok := newConverter(f.Type, sel.Type(), op)
	if !ok {
		return c.lack(path, "%s %s is not compatible with %s %s", op, f.Type, sel.Path(), sel.Type())
	}

	specOp := op.Spec()
	member := sel.Path()

	return resolution{
		field: path,
		kind:  kindOperator,
		clause: func(filter reflect.Value) spec.Specification {
			raw, ok := access(filter)
			if !ok || (crit.IgnoreIfEmpty && isEmpty(raw)) {
				return nil
			}

			value, ok := indirect(raw)
			if !ok {
				switch specOp {
				case spec.OpEq:
					return crit.Apply(spec.IsNull(member))
				case spec.OpNotEq:
					return crit.Apply(spec.NotNull(member))
				default:
					return nil
				}
			}

			return crit.Apply(spec.Compare(specOp, member, convert(value)))
		},
	}
}

func (c *classifier) predicate(
	path string,
	f reflect.StructField,
	crit criterion.Criterion,
	factory predicateFactory,
	access accessor,
) resolution {
	if !f.Type.AssignableTo(factory.valueType) {
		return c.lack(path, "predicate factory expects %s, field is %s", factory.valueType, f.Type)
	}

	return resolution{
		field: path,
		kind:  kindPredicate,
		clause: func(filter reflect.Value) spec.Specification {
			raw, ok := access(filter)
			if !ok || (crit.IgnoreIfEmpty && isEmpty(raw)) {
				return nil
			}

			return crit.Apply(factory.build(raw))
		},
	}
}

func (c *classifier) generator(
	target FilterTarget,
	f reflect.StructField,
	crit criterion.Criterion,
	access accessor,
	path string,
) resolution {
	var named criterion.ExpressionGenerator

	if crit.Generator != "" {
		g, ok := c.generators[crit.Generator]
		if !ok {
			return c.lack(path, "expression generator %q is not registered", crit.Generator)
		}

		named = g
	}

	sel, _ := target.resolve(crit.Target(f.Name))
	model := c.model

	return resolution{
		field: path,
		kind:  kindGenerator,
		clause: func(filter reflect.Value) spec.Specification {
			raw, ok := access(filter)
			if crit.IgnoreIfEmpty && (!ok || isEmpty(raw)) {
				return nil
			}

			g := named
			if g == nil {
				if g, ok = asGenerator(raw); !ok {
					return nil
				}
			}

			return crit.Apply(g.GenerateSpecification(criterion.GeneratorContext{
				Model:     model,
				Filter:    filter,
				Field:     f,
				Value:     raw,
				Target:    sel,
				Criterion: crit,
			}))
		},
	}
}

func asGenerator(v reflect.Value) (criterion.ExpressionGenerator, bool) {
	if !v.IsValid() {
		return nil, false
	}

	if v.CanInterface() {
		if g, ok := v.Interface().(criterion.ExpressionGenerator); ok {
			return g, true
		}
	}

	if v.CanAddr() {
		if g, ok := v.Addr().Interface().(criterion.ExpressionGenerator); ok {
			return g, true
		}
	}

	return nil, false
}

// orSplit turns a field named "AOrB" that does not address a member itself
// into a disjunction over A and B.
func (c *classifier) orSplit(
	target FilterTarget,
	f reflect.StructField,
	crit criterion.Criterion,
	access accessor,
	path string,
) (resolution, bool) {
	if !c.splitOr || crit.DisableOrFromName || crit.Complex || crit.Generator != "" {
		return resolution{}, false
	}

	name := crit.Target(f.Name)
	if _, err := target.resolve(name); err == nil {
		return resolution{}, false
	}

	parts := SplitOr(name)
	if len(parts) < 2 {
		return resolution{}, false
	}

	group := resolution{field: path, kind: kindDisjunction}
	for _, part := range parts {
		group = appendMember(group, c.operator(target, f, crit, access, path, part))
	}

	return group, true
}

// SplitOr splits the last segment of a member path at every "Or" that starts
// a new word: "FirstNameOrLastName" gives FirstName and LastName,
// "Profile.CityOrCountry" gives Profile.City and Profile.Country. Names
// without such a separator yield a single part.
func SplitOr(name string) []string {
	prefix, last := "", name
	if i := strings.LastIndex(name, "."); i >= 0 {
		prefix, last = name[:i+1], name[i+1:]
	}

	var (
		parts []string
		start int
	)

	for i := 1; i+2 < len(last); i++ {
		if last[i:i+2] == "Or" && unicode.IsUpper(rune(last[i+2])) {
			parts = append(parts, prefix+last[start:i])
			start = i + 2
		}
	}

	return append(parts, prefix+last[start:])
}

// join folds the resolutions of one disjunction member into one.
func (c *classifier) join(path string, parts []resolution) resolution {
	joined := resolution{field: path, kind: kindMember}

	clauses := make([]clause, 0, len(parts))
	for _, p := range parts {
		joined.lacks = append(joined.lacks, p.lacks...)
		if p.ready() {
			clauses = append(clauses, p.clause)
		}
	}

	if joined.ready() && len(clauses) > 0 {
		joined.clause = conjunctionClause(clauses)
	}

	return joined
}

// appendMember adds a member to a disjunction resolution.
func appendMember(g resolution, member resolution) resolution {
	g.lacks = append(g.lacks, member.lacks...)

	if member.ready() && member.clause != nil {
		g.members = append(g.members, member.clause)
	}

	return g
}

// emit lowers a ready resolution into its clause.
func (r resolution) emit() clause {
	if r.kind == kindDisjunction {
		return disjunctionClause(r.members)
	}

	return r.clause
}
