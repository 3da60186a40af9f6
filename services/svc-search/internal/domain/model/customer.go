package model

import (
	"fmt"
	"strings"
	"time"
)

type Status string

const (
	StatusActive    Status = "active"
	StatusInactive  Status = "inactive"
	StatusSuspended Status = "suspended"
)

func ParseStatus(s string) (Status, error) {
	switch status := Status(strings.ToLower(strings.TrimSpace(s))); status {
	case StatusActive, StatusInactive, StatusSuspended:
		return status, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
	}
}

func (s Status) String() string {
	return string(s)
}

type Address struct {
	Street  string `db:"street" bson:"street" json:"street"`
	City    string `db:"city" bson:"city" json:"city"`
	Country string `db:"country" bson:"country" json:"country"`
}

// Customer is the searchable aggregate. The db and bson tags name the
// columns and document keys the storage backends read.
type Customer struct {
	ID        int64     `db:"id" bson:"_id" json:"id"`
	FirstName string    `db:"first_name" bson:"first_name" json:"firstName"`
	LastName  string    `db:"last_name" bson:"last_name" json:"lastName"`
	Email     *string   `db:"email" bson:"email,omitempty" json:"email,omitempty"`
	Age       int       `db:"age" bson:"age" json:"age"`
	Status    Status    `db:"status" bson:"status" json:"status"`
	Address   Address   `db:"address" bson:"address" json:"address"`
	CreatedAt time.Time `db:"created_at" bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" bson:"updated_at" json:"updatedAt"`
}

func (c *Customer) FullName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

// Apply copies the set fields of p onto the customer.
func (c *Customer) Apply(p CustomerPatch) error {
	if p.Status != nil {
		if _, err := ParseStatus(string(*p.Status)); err != nil {
			return err
		}

		c.Status = *p.Status
	}

	if p.Age != nil {
		if *p.Age < 0 {
			return fmt.Errorf("%w: age %d", ErrInvalidCustomer, *p.Age)
		}

		c.Age = *p.Age
	}

	if p.Email != nil {
		c.Email = p.Email
	}

	if p.City != nil {
		c.Address.City = *p.City
	}

	c.UpdatedAt = time.Now().UTC()

	return nil
}

// CustomerPatch is one row of a bulk update, matched to a customer by ID.
type CustomerPatch struct {
	ID     int64   `json:"id" binding:"required,gt=0"`
	Status *Status `json:"status,omitempty"`
	Age    *int    `json:"age,omitempty" binding:"omitempty,gte=0"`
	Email  *string `json:"email,omitempty" binding:"omitempty,email"`
	City   *string `json:"city,omitempty"`
}

// CustomerSummary is the list projection of a customer.
type CustomerSummary struct {
	ID        int64  `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Status    Status `json:"status"`
	City      string `json:"city" select:"Address.City"`
}
