package model

import (
	"strings"
	"time"

	"github.com/architeacher/smartsearch/pkg/search/criterion"
	"github.com/architeacher/smartsearch/pkg/spec"
)

// FullTextGenerator is the name the full text expression generator is
// registered under.
const FullTextGenerator = "fulltext"

type (
	// CustomerFilter is bound from the query string of a customer search.
	// Empty fields do not constrain the search.
	CustomerFilter struct {
		Search              string        `form:"q" criterion:"generator=fulltext"`
		FirstNameOrLastName string        `form:"name" criterion:"contains"`
		IDs                 []int64       `form:"id" criterion:"in,path=ID"`
		Statuses            []Status      `form:"status" criterion:"in,path=Status"`
		ExcludeStatus       Status        `form:"exclude_status" criterion:"eq,not,path=Status"`
		MinAge              int           `form:"min_age" criterion:"gte,path=Age" binding:"omitempty,gte=0"`
		MaxAge              int           `form:"max_age" criterion:"lte,path=Age" binding:"omitempty,gte=0"`
		City                string        `form:"city" criterion:"eq,path=Address.City" disjunction:"location"`
		Country             string        `form:"country" criterion:"eq,path=Address.Country" disjunction:"location"`
		Address             AddressFilter `criterion:"complex"`
		CreatedFrom         time.Time     `form:"created_from" time_format:"2006-01-02" criterion:"gte,path=CreatedAt"`
		CreatedTo           time.Time     `form:"created_to" time_format:"2006-01-02" criterion:"lt,path=CreatedAt"`
	}

	// AddressFilter constrains the address of a customer.
	AddressFilter struct {
		Street string `form:"street" criterion:"contains"`
	}
)

// FullText matches a search term against the names and the email address.
func FullText() criterion.ExpressionGenerator {
	return criterion.ExpressionGeneratorFunc(func(ctx criterion.GeneratorContext) spec.Specification {
		if !ctx.Value.IsValid() {
			return nil
		}

		term := strings.TrimSpace(ctx.Value.String())
		if term == "" {
			return nil
		}

		return spec.Should(
			spec.Contains("FirstName", term),
			spec.Contains("LastName", term),
			spec.Contains("Email", term),
		)
	})
}
