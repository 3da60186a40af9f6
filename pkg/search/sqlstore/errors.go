package sqlstore

import "errors"

var (
	// ErrQuery wraps failures reported by the database.
	ErrQuery = errors.New("database query failed")

	// ErrUnsupportedField is returned when a predicate or ordering names a
	// member that has no column.
	ErrUnsupportedField = errors.New("unsupported field")

	// ErrUnsupportedOperator is returned for predicates the translator cannot
	// express in SQL.
	ErrUnsupportedOperator = errors.New("unsupported operator")
)
