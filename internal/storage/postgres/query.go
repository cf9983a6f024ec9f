package postgres

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/xenking/storefront-api/internal/domain/product"
)

// productColumns maps sortable API field names to columns.
var productColumns = map[string]string{
	"name":       "name",
	"price":      "price",
	"stock":      "stock",
	"category":   "category",
	"rating":     "rating",
	"numReviews": "num_reviews",
	"featured":   "featured",
	"createdAt":  "created_at",
	"updatedAt":  "updated_at",
}

// whereBuilder accumulates AND-ed predicates with positional arguments.
type whereBuilder struct {
	conds []string
	args  []any
}

func (w *whereBuilder) add(cond string, arg any) {
	w.args = append(w.args, arg)
	w.conds = append(w.conds, strings.ReplaceAll(cond, "?", "$"+strconv.Itoa(len(w.args))))
}

func (w *whereBuilder) sql() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

// productFilter translates f into a WHERE clause and its arguments.
func productFilter(f product.Filter) (string, []any) {
	var w whereBuilder
	if f.VendorID != "" {
		w.add("vendor_id = ?", f.VendorID)
	}
	if f.Category != "" {
		w.add("category = ?", string(f.Category))
	}
	if f.MinPrice != nil {
		w.add("price >= ?", *f.MinPrice)
	}
	if f.MaxPrice != nil {
		w.add("price <= ?", *f.MaxPrice)
	}
	if f.Search != "" {
		if q := tsQuery(f.Search); q != "" {
			w.add("search @@ to_tsquery('english', ?)", q)
		} else {
			w.conds = append(w.conds, "FALSE")
		}
	}
	return w.sql(), w.args
}

// tsQuery turns free text into a to_tsquery expression matching any of its
// words. Only letters and digits survive, so the result is always valid
// tsquery syntax.
func tsQuery(search string) string {
	words := strings.FieldsFunc(search, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	return strings.Join(words, " | ")
}

// productOrder renders an ORDER BY clause. Unknown fields are skipped and id
// is always the final tie-breaker so pages are stable.
func productOrder(sort []product.SortField) string {
	parts := make([]string, 0, len(sort)+1)
	for _, s := range sort {
		col, ok := productColumns[s.Field]
		if !ok {
			continue
		}
		if s.Desc {
			col += " DESC"
		}
		parts = append(parts, col)
	}
	parts = append(parts, "id")
	return " ORDER BY " + strings.Join(parts, ", ")
}
