package mongostore

import "errors"

var (
	ErrQuery               = errors.New("mongo query failed")
	ErrUnsupportedField    = errors.New("unsupported field")
	ErrUnsupportedOperator = errors.New("unsupported operator")
)
