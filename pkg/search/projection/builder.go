package projection

import (
	"fmt"
	"reflect"

	"github.com/architeacher/smartsearch/pkg/search/selection"
)

const maxDepth = 8

// build matches every exported DTO field to an entity member. overrides maps
// DTO field names to entity paths and only applies at the top level.
func build(entity, dto reflect.Type, overrides map[string]string, depth int) (*Projection, error) {
	entity, dto = selection.Indirect(entity), selection.Indirect(dto)

	if dto.Kind() != reflect.Struct || entity.Kind() != reflect.Struct {
		return nil, &SelectorNotFoundError{
			Entity: entity.String(),
			DTO:    dto.String(),
			Reason: "both sides must be structs",
		}
	}

	p := &Projection{Entity: entity, DTO: dto}

	for _, f := range reflect.VisibleFields(dto) {
		if !f.IsExported() || f.Anonymous || len(f.Index) > 1 {
			continue
		}

		path, ok := overrides[f.Name]
		if !ok {
			path = f.Tag.Get(TagName)
		}

		if path == "-" {
			continue
		}

		if path == "" {
			path = f.Name
		}

		member, err := match(entity, dto, f, path, depth)
		if err != nil {
			return nil, err
		}

		p.Members = append(p.Members, member)
	}

	return p, nil
}

func match(entity, dto reflect.Type, f reflect.StructField, path string, depth int) (Member, error) {
	notFound := func(reason string, args ...any) error {
		return &SelectorNotFoundError{
			Entity: entity.Name(),
			DTO:    dto.Name(),
			Member: f.Name,
			Reason: fmt.Sprintf(reason, args...),
		}
	}

	sel, err := selection.Resolve(entity, path)
	if err != nil {
		return Member{}, notFound("no member %q", path)
	}

	src, dst := sel.Type(), f.Type

	switch {
	case assignable(src, dst):
		return Member{Field: f, Source: sel, Kind: MemberValue}, nil
	case selection.IsStruct(src) && selection.IsStruct(dst):
		if depth >= maxDepth {
			return Member{}, notFound("nesting deeper than %d", maxDepth)
		}

		nested, err := build(src, dst, nil, depth+1)
		if err != nil {
			return Member{}, err
		}

		return Member{Field: f, Source: sel, Kind: MemberNested, Nested: nested}, nil
	case isStructSlice(src) && isStructSlice(dst):
		if depth >= maxDepth {
			return Member{}, notFound("nesting deeper than %d", maxDepth)
		}

		nested, err := build(src.Elem(), dst.Elem(), nil, depth+1)
		if err != nil {
			return Member{}, err
		}

		return Member{Field: f, Source: sel, Kind: MemberCollection, Nested: nested}, nil
	default:
		return Member{}, notFound("%s %s cannot be assigned to %s", sel.Path(), src, dst)
	}
}

func isStructSlice(t reflect.Type) bool {
	return t.Kind() == reflect.Slice && selection.IsStruct(t.Elem())
}

func assignable(src, dst reflect.Type) bool {
	s, d := selection.Indirect(src), selection.Indirect(dst)

	if s.AssignableTo(d) {
		return true
	}

	if numeric(s) && numeric(d) {
		return true
	}

	return s.Kind() == d.Kind() && s.Kind() != reflect.Struct && s.ConvertibleTo(d)
}

func numeric(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	default:
		return false
	}
}
