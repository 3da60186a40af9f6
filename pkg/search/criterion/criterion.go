// Package criterion reads the declarative filter configuration attached to
// filter struct fields.
//
// A field is configured with the criterion tag:
//
//	Name     string   `criterion:"contains,path=Profile.DisplayName"`
//	Statuses []Status `criterion:"in,path=Status"`
//	Deleted  bool     `criterion:"eq,keepempty"`
//	Internal string   `criterion:"-"`
//
// and grouped into OR-combined disjunctions with the disjunction tag:
//
//	Email string `disjunction:"contact"`
//	Phone string `disjunction:"contact"`
package criterion

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/architeacher/smartsearch/pkg/spec"
)

const (
	TagName            = "criterion"
	DisjunctionTagName = "disjunction"
)

var ErrInvalidTag = errors.New("invalid criterion tag")

// Criterion is the parsed configuration of one filter field.
type Criterion struct {
	Operator   Operator
	Negation   bool
	TargetPath string
	Ignore     bool
	// IgnoreIfEmpty skips the criterion when the field holds an empty value.
	IgnoreIfEmpty bool
	// DisableOrFromName stops "AOrB" field names from being split into a
	// disjunction over A and B.
	DisableOrFromName bool
	Complex           bool
	Generator         string
	Disjunction       string
}

// Default is the configuration of an untagged field.
func Default() Criterion {
	return Criterion{Operator: Auto, IgnoreIfEmpty: true}
}

// Parse reads the criterion and disjunction tags of field.
func Parse(field reflect.StructField) (Criterion, error) {
	c := Default()
	c.Disjunction = strings.TrimSpace(field.Tag.Get(DisjunctionTagName))

	tag, ok := field.Tag.Lookup(TagName)
	if !ok {
		return c, nil
	}

	for _, option := range strings.Split(tag, ",") {
		option = strings.TrimSpace(option)
		if option == "" {
			continue
		}

		key, value, hasValue := strings.Cut(option, "=")
		key = strings.ToLower(strings.TrimSpace(key))
		value = strings.TrimSpace(value)

		switch {
		case key == "-" || key == "ignore":
			c.Ignore = true
		case key == "not":
			c.Negation = true
		case key == "keepempty":
			c.IgnoreIfEmpty = false
		case key == "noorsplit":
			c.DisableOrFromName = true
		case key == "complex":
			c.Complex = true
		case key == "path" && hasValue && value != "":
			c.TargetPath = value
		case key == "generator" && hasValue && value != "":
			c.Generator = value
		case key == "or" && hasValue && value != "":
			c.Disjunction = value
		case !hasValue:
			op, err := ParseOperator(key)
			if err != nil {
				return c, fmt.Errorf("%w on field %s: %w", ErrInvalidTag, field.Name, err)
			}

			c.Operator = op
		default:
			return c, fmt.Errorf("%w on field %s: unknown option %q", ErrInvalidTag, field.Name, option)
		}
	}

	return c, nil
}

// Target returns the model path the criterion compares against.
func (c Criterion) Target(fieldName string) string {
	if c.TargetPath != "" {
		return c.TargetPath
	}

	return fieldName
}

// Apply wraps s according to the negation flag.
func (c Criterion) Apply(s spec.Specification) spec.Specification {
	if s == nil || !c.Negation {
		return s
	}

	return spec.MustNot(s)
}
