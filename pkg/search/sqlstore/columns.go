package sqlstore

import (
	"reflect"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/georgysavva/scany/v2/dbscan"
)

var (
	timeType  = reflect.TypeFor[time.Time]()
	bytesType = reflect.TypeFor[[]byte]()

	tableCache sync.Map
)

type (
	// column is one selected column. Members of nested value objects are
	// stored flattened ("address_city") and read back under the dotted name
	// pgxscan expects for nested structs ("address.city").
	column struct {
		name  string
		alias string
	}

	table struct {
		columns []column
	}
)

func (c column) expr() string {
	if c.alias == c.name {
		return c.name
	}

	return c.name + ` AS "` + c.alias + `"`
}

func tableOf(model reflect.Type) *table {
	if cached, ok := tableCache.Load(model); ok {
		return cached.(*table)
	}

	t := &table{columns: walk(model, nil, nil)}
	cached, _ := tableCache.LoadOrStore(model, t)

	return cached.(*table)
}

func (t *table) selectList() []string {
	list := make([]string, 0, len(t.columns))
	for _, c := range t.columns {
		list = append(list, c.expr())
	}

	return list
}

func walk(t reflect.Type, names, aliases []string) []column {
	var columns []column

	for i := range t.NumField() {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}

		name, ok := fieldName(f)
		if !ok {
			continue
		}

		ft := f.Type
		for ft.Kind() == reflect.Pointer {
			ft = ft.Elem()
		}

		switch {
		case f.Anonymous && ft.Kind() == reflect.Struct:
			columns = append(columns, walk(ft, names, aliases)...)
		case ft.Kind() == reflect.Struct && ft != timeType:
			columns = append(columns, walk(ft, append(slices.Clip(names), name), append(slices.Clip(aliases), name))...)
		case ft.Kind() == reflect.Map, ft.Kind() == reflect.Slice && ft != bytesType:
		default:
			columns = append(columns, column{
				name:  strings.Join(append(slices.Clip(names), name), "_"),
				alias: strings.Join(append(slices.Clip(aliases), name), "."),
			})
		}
	}

	return columns
}

// fieldName is the db tag of f or its snake_case name. Fields tagged "-" are
// not mapped.
func fieldName(f reflect.StructField) (string, bool) {
	tag, _, _ := strings.Cut(f.Tag.Get("db"), ",")

	switch tag {
	case "-":
		return "", false
	case "":
		return dbscan.SnakeCaseMapper(f.Name), true
	default:
		return tag, true
	}
}

// columnOf is the stored column of a member path given as its struct fields.
func columnOf(fields []reflect.StructField) (string, bool) {
	names := make([]string, 0, len(fields))

	for _, f := range fields {
		name, ok := fieldName(f)
		if !ok {
			return "", false
		}

		if !f.Anonymous {
			names = append(names, name)
		}
	}

	return strings.Join(names, "_"), len(names) > 0
}

// aliasOf is the result column name pgxscan maps to the DTO member names.
func aliasOf(names []string) string {
	snake := make([]string, 0, len(names))
	for _, n := range names {
		snake = append(snake, dbscan.SnakeCaseMapper(n))
	}

	return strings.Join(snake, ".")
}
