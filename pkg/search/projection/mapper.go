package projection

import "reflect"

// Fill copies the members of src into dst, a settable DTO struct value.
// Members missing behind a nil pointer are left at their zero value.
func (p *Projection) Fill(src, dst reflect.Value) {
	for _, m := range p.Members {
		v, ok := m.Source.Value(src)
		if !ok {
			continue
		}

		field := dst.FieldByIndex(m.Field.Index)

		switch m.Kind {
		case MemberValue:
			assign(field, v)
		case MemberNested:
			m.Nested.Fill(v, alloc(field))
		case MemberCollection:
			if v.Len() == 0 && v.IsNil() {
				continue
			}

			out := reflect.MakeSlice(field.Type(), v.Len(), v.Len())
			for i := range v.Len() {
				m.Nested.Fill(v.Index(i), alloc(out.Index(i)))
			}

			field.Set(out)
		}
	}
}

func assign(field, v reflect.Value) {
	t := field.Type()

	if t.Kind() == reflect.Pointer {
		ptr := reflect.New(t.Elem())
		ptr.Elem().Set(convert(v, t.Elem()))
		field.Set(ptr)

		return
	}

	field.Set(convert(v, t))
}

func convert(v reflect.Value, t reflect.Type) reflect.Value {
	if v.Type().AssignableTo(t) {
		return v
	}

	return v.Convert(t)
}

// alloc returns the struct behind field, allocating it when field is a
// pointer.
func alloc(field reflect.Value) reflect.Value {
	if field.Kind() != reflect.Pointer {
		return field
	}

	if field.IsNil() {
		field.Set(reflect.New(field.Type().Elem()))
	}

	return field.Elem()
}
