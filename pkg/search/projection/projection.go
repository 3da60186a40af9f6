// Package projection builds selectors mapping entities to DTOs, either from
// registered functions or by matching DTO fields to entity members.
package projection

import (
	"reflect"
	"strings"

	"github.com/architeacher/smartsearch/pkg/search/selection"
)

// TagName overrides the entity member a DTO field is read from. "-" leaves
// the field unmapped.
const TagName = "select"

type MemberKind int

const (
	// MemberValue copies or converts a scalar, or assigns an identical type.
	MemberValue MemberKind = iota
	// MemberNested fills a struct field from a nested sub-projection.
	MemberNested
	// MemberCollection maps each element of a slice through a sub-projection.
	MemberCollection
)

type (
	// Projection is a resolved entity to DTO mapping that backends can push
	// down as a column list.
	Projection struct {
		Entity  reflect.Type
		DTO     reflect.Type
		Members []Member
	}

	Member struct {
		Field  reflect.StructField
		Source *selection.Selection
		Kind   MemberKind
		Nested *Projection
	}

	// Leaf is a value member reached through nested projections: the DTO
	// field names leading to it and the entity member it reads.
	Leaf struct {
		DTO    []string
		Source *selection.Selection
	}
)

// HasCollections reports whether a collection member appears anywhere.
func (p *Projection) HasCollections() bool {
	for _, m := range p.Members {
		switch m.Kind {
		case MemberCollection:
			return true
		case MemberNested:
			if m.Nested.HasCollections() {
				return true
			}
		}
	}

	return false
}

// Leaves flattens the projection. Source selections of nested members are
// rooted at the projection entity.
func (p *Projection) Leaves() []Leaf {
	return p.leaves(nil, nil)
}

func (p *Projection) leaves(prefix []string, parent *selection.Selection) []Leaf {
	var out []Leaf

	for _, m := range p.Members {
		source := m.Source
		if parent != nil {
			source = join(parent, m.Source)
		}

		path := append(append([]string(nil), prefix...), m.Field.Name)

		switch m.Kind {
		case MemberValue:
			out = append(out, Leaf{DTO: path, Source: source})
		case MemberNested:
			out = append(out, m.Nested.leaves(path, source)...)
		}
	}

	return out
}

func join(parent, child *selection.Selection) *selection.Selection {
	joined, err := parent.Child(child.Path())
	if err != nil {
		return child
	}

	return joined
}

func (l Leaf) String() string {
	return strings.Join(l.DTO, ".") + " <- " + l.Source.Path()
}
