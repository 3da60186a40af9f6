package model

import "errors"

var (
	ErrCustomerNotFound   = errors.New("customer not found")
	ErrInvalidCustomerID  = errors.New("invalid customer ID")
	ErrInvalidCustomer    = errors.New("invalid customer")
	ErrInvalidStatus      = errors.New("invalid customer status")
	ErrDatabaseConnection = errors.New("database connection error")
)
