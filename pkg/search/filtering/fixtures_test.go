package filtering_test

import (
	"context"
	"iter"
	"time"

	"github.com/architeacher/smartsearch/pkg/search/queryable"
	"github.com/architeacher/smartsearch/pkg/spec"
)

type (
	status string

	supplier struct {
		Name    string
		Country string
	}

	dimensions struct {
		Width  int
		Height int
	}

	product struct {
		ID          int
		Name        string
		Description string
		Category    string
		Price       float64
		Stock       int
		Status      status
		Supplier    *supplier
		Dimensions  dimensions
		CreatedAt   time.Time
	}

	row struct {
		ID int
		P1 string
		P2 string
	}
)

func catalog() []product {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	return []product{
		{ID: 1, Name: "Anvil", Description: "heavy", Category: "tools", Price: 120, Stock: 4, Status: "active", Supplier: &supplier{Name: "Acme", Country: "US"}, Dimensions: dimensions{Width: 30, Height: 20}, CreatedAt: base},
		{ID: 2, Name: "Hammer", Description: "steel", Category: "tools", Price: 25, Stock: 40, Status: "active", Supplier: &supplier{Name: "Forge", Country: "DE"}, Dimensions: dimensions{Width: 5, Height: 30}, CreatedAt: base.AddDate(0, 1, 0)},
		{ID: 3, Name: "Rope", Description: "anvil rope", Category: "outdoor", Price: 12.5, Stock: 0, Status: "discontinued", Dimensions: dimensions{Width: 2, Height: 2}, CreatedAt: base.AddDate(0, 2, 0)},
		{ID: 4, Name: "Tent", Description: "light", Category: "outdoor", Price: 250, Stock: 7, Status: "active", Supplier: &supplier{Name: "Acme", Country: "US"}, Dimensions: dimensions{Width: 200, Height: 150}, CreatedAt: base.AddDate(0, 3, 0)},
	}
}

func productIDs(items []product) []int {
	out := make([]int, 0, len(items))
	for _, p := range items {
		out = append(out, p.ID)
	}

	return out
}

// recorder captures the predicates a specifier applies.
type recorder[M any] struct {
	specs []spec.Specification
}

func (r *recorder[M]) Where(s spec.Specification) queryable.Queryable[M] {
	r.specs = append(r.specs, s)

	return r
}

func (r *recorder[M]) OrderBy(string, queryable.Direction) queryable.Queryable[M] { return r }
func (r *recorder[M]) ThenBy(string, queryable.Direction) queryable.Queryable[M]  { return r }
func (r *recorder[M]) Skip(int) queryable.Queryable[M]                            { return r }
func (r *recorder[M]) Take(int) queryable.Queryable[M]                            { return r }
func (r *recorder[M]) ToList(context.Context) ([]M, error)                        { return nil, nil }
func (r *recorder[M]) Count(context.Context) (int, error)                         { return 0, nil }

func (r *recorder[M]) Stream(context.Context) iter.Seq2[M, error] {
	return func(func(M, error) bool) {}
}
