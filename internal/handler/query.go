package handler

import (
	"net/url"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/xenking/storefront-api/internal/domain/product"
	"github.com/xenking/storefront-api/internal/domain/verr"
)

// positiveInt parses a pagination parameter. Anything that is not a positive
// integer yields 0, which the services replace with their default.
func positiveInt(v string) int {
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return 0
	}
	return n
}

// parseListQuery reads page, limit, category, minPrice, maxPrice, search and
// sort.
func parseListQuery(v url.Values) (product.Query, error) {
	q := product.Query{
		Page:  positiveInt(v.Get("page")),
		Limit: positiveInt(v.Get("limit")),
		Filter: product.Filter{
			Category: product.Category(v.Get("category")),
			Search:   v.Get("search"),
		},
	}

	var b verr.Builder
	price := func(name string) *decimal.Decimal {
		raw := v.Get(name)
		if raw == "" {
			return nil
		}
		d, err := decimal.NewFromString(raw)
		if err != nil {
			b.Add(name, name+" must be a number")
			return nil
		}
		return &d
	}
	q.Filter.MinPrice = price("minPrice")
	q.Filter.MaxPrice = price("maxPrice")

	sort, err := product.ParseSort(v.Get("sort"))
	if err != nil {
		if fields, ok := verr.Fields(err); ok {
			for _, f := range fields {
				b.Add(f.Name, f.Error.Error())
			}
		}
	}
	q.Sort = sort

	if err := b.Err(); err != nil {
		return product.Query{}, err
	}
	return q, nil
}
