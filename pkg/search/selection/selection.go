// Package selection resolves property paths on model types into reusable,
// nil-aware member access chains.
package selection

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"
)

var (
	ErrPropertyNotFound = errors.New("property not found")
	ErrInvalidModel     = errors.New("model must be a struct")
)

var timeType = reflect.TypeFor[time.Time]()

// Selection is a resolved chain of struct member accesses starting at a model
// type. It is immutable and safe for concurrent use.
type Selection struct {
	model  reflect.Type
	fields []reflect.StructField
}

type cacheKey struct {
	model reflect.Type
	path  string
}

type cacheEntry struct {
	selection *Selection
	err       error
}

var cache sync.Map

// Resolve resolves path on model. Segments are separated by dots; each segment
// is matched by exact field name, then case-insensitively, then by splitting a
// CamelCase name into a prefix naming a nested struct and the remainder
// ("AddressCity" resolves as Address.City).
func Resolve(model reflect.Type, path string) (*Selection, error) {
	model = Indirect(model)
	key := cacheKey{model: model, path: path}

	if entry, ok := cache.Load(key); ok {
		e := entry.(cacheEntry)

		return e.selection, e.err
	}

	s, err := resolve(model, path)
	cache.Store(key, cacheEntry{selection: s, err: err})

	return s, err
}

// MustResolve is like Resolve but panics on failure. Intended for package-level
// declarations over known model types.
func MustResolve(model reflect.Type, path string) *Selection {
	s, err := Resolve(model, path)
	if err != nil {
		panic(err)
	}

	return s
}

func resolve(model reflect.Type, path string) (*Selection, error) {
	if model.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: %s", ErrInvalidModel, model)
	}

	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("%w: empty path on %s", ErrPropertyNotFound, model.Name())
	}

	var (
		current = model
		chain   []reflect.StructField
	)

	for _, segment := range strings.Split(path, ".") {
		if !IsStruct(current) {
			return nil, fmt.Errorf("%w: %q on %s", ErrPropertyNotFound, path, model.Name())
		}

		fields, ok := lookup(Indirect(current), segment)
		if !ok {
			return nil, fmt.Errorf("%w: %q on %s", ErrPropertyNotFound, path, model.Name())
		}

		chain = append(chain, fields...)
		current = fields[len(fields)-1].Type
	}

	return &Selection{model: model, fields: chain}, nil
}

func lookup(t reflect.Type, name string) ([]reflect.StructField, bool) {
	if name == "" {
		return nil, false
	}

	if f, ok := t.FieldByName(name); ok && f.IsExported() {
		return []reflect.StructField{f}, true
	}

	visible := exported(t)

	for _, f := range visible {
		if strings.EqualFold(f.Name, name) {
			return []reflect.StructField{f}, true
		}
	}

	// longest prefix first so "AddressLine" wins over "Address" for "AddressLineCity".
	var best []reflect.StructField

	for _, f := range visible {
		if !IsStruct(f.Type) || len(f.Name) >= len(name) || !hasPrefixFold(name, f.Name) {
			continue
		}

		if len(best) > 0 && len(best[0].Name) >= len(f.Name) {
			continue
		}

		rest, ok := lookup(Indirect(f.Type), name[len(f.Name):])
		if !ok {
			continue
		}

		best = append([]reflect.StructField{f}, rest...)
	}

	return best, len(best) > 0
}

func exported(t reflect.Type) []reflect.StructField {
	visible := reflect.VisibleFields(t)
	fields := make([]reflect.StructField, 0, len(visible))

	for _, f := range visible {
		if f.IsExported() && !f.Anonymous {
			fields = append(fields, f)
		}
	}

	return fields
}

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}

// Child resolves path relative to the type addressed by s.
func (s *Selection) Child(path string) (*Selection, error) {
	child, err := Resolve(s.Elem(), path)
	if err != nil {
		return nil, fmt.Errorf("%w (under %s.%s)", err, s.model.Name(), s.Path())
	}

	fields := make([]reflect.StructField, 0, len(s.fields)+len(child.fields))
	fields = append(fields, s.fields...)
	fields = append(fields, child.fields...)

	return &Selection{model: s.model, fields: fields}, nil
}

func (s *Selection) Model() reflect.Type { return s.model }

// Fields returns the member chain. Callers must not modify it.
func (s *Selection) Fields() []reflect.StructField { return s.fields }

func (s *Selection) Names() []string {
	names := make([]string, len(s.fields))
	for i, f := range s.fields {
		names[i] = f.Name
	}

	return names
}

func (s *Selection) Path() string { return strings.Join(s.Names(), ".") }

// Type is the declared type of the last member.
func (s *Selection) Type() reflect.Type { return s.fields[len(s.fields)-1].Type }

// Elem is Type with pointers removed.
func (s *Selection) Elem() reflect.Type { return Indirect(s.Type()) }

// Nullable reports whether a nil pointer can occur anywhere on the chain.
func (s *Selection) Nullable() bool {
	for _, f := range s.fields {
		switch f.Type.Kind() {
		case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice:
			return true
		}
	}

	return false
}

// Value reads the member from root, dereferencing pointers along the way. It
// reports false when a nil pointer is met, including a nil final member.
func (s *Selection) Value(root reflect.Value) (reflect.Value, bool) {
	v, ok := deref(root)
	if !ok {
		return reflect.Value{}, false
	}

	for _, f := range s.fields {
		if v, ok = deref(v); !ok {
			return reflect.Value{}, false
		}

		field, err := v.FieldByIndexErr(f.Index)
		if err != nil {
			return reflect.Value{}, false
		}

		v = field
	}

	return deref(v)
}

func (s *Selection) String() string { return s.model.Name() + "." + s.Path() }

func deref(v reflect.Value) (reflect.Value, bool) {
	for v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return reflect.Value{}, false
		}

		v = v.Elem()
	}

	return v, v.IsValid()
}

// Indirect strips pointer indirections from t.
func Indirect(t reflect.Type) reflect.Type {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	return t
}

// IsStruct reports whether t (or what it points to) is a struct other than
// time.Time, i.e. something a path can descend into.
func IsStruct(t reflect.Type) bool {
	t = Indirect(t)

	return t.Kind() == reflect.Struct && t != timeType
}

// IsStructSlice reports whether t is a slice or array of IsStruct elements.
func IsStructSlice(t reflect.Type) bool {
	t = Indirect(t)

	return (t.Kind() == reflect.Slice || t.Kind() == reflect.Array) && IsStruct(t.Elem())
}

// TypeKey identifies types by their runtime identity. Distinct types that
// share a package and a name, such as types declared in two functions, get
// distinct keys.
func TypeKey(types ...reflect.Type) string {
	var b strings.Builder

	for i, t := range types {
		if i > 0 {
			b.WriteByte('|')
		}

		if t == nil {
			b.WriteString("nil")

			continue
		}

		b.WriteString(strconv.FormatUint(uint64(reflect.ValueOf(t).Pointer()), 16))
	}

	return b.String()
}
