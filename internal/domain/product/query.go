package product

import (
	"math"
	"strings"

	"github.com/xenking/storefront-api/internal/domain/verr"
)

// Sortable lists the product fields a listing may be ordered by.
var Sortable = map[string]bool{
	"name":       true,
	"price":      true,
	"stock":      true,
	"category":   true,
	"rating":     true,
	"numReviews": true,
	"featured":   true,
	"createdAt":  true,
	"updatedAt":  true,
}

// DefaultSort orders listings newest first.
var DefaultSort = []SortField{{Field: "createdAt", Desc: true}}

// Limits bounds the page size of listings.
type Limits struct {
	DefaultLimit int
	MaxLimit     int
}

// DefaultLimits matches the public API defaults.
var DefaultLimits = Limits{DefaultLimit: 10, MaxLimit: 100}

// Query is a paginated catalog listing request.
type Query struct {
	Page   int
	Limit  int
	Filter Filter
	Sort   []SortField
}

// normalize fills defaults: page 1, the default limit, newest-first ordering.
// Page sizes above MaxLimit are capped.
func (q Query) normalize(l Limits) Query {
	q.Limit = l.clampLimit(q.Limit)
	q.Page = ClampPage(q.Page, q.Limit)
	if len(q.Sort) == 0 {
		q.Sort = DefaultSort
	}
	return q
}

// clampLimit applies the default and maximum page size. The result is at
// least 1.
func (l Limits) clampLimit(limit int) int {
	if limit < 1 {
		limit = l.DefaultLimit
	}
	if l.MaxLimit > 0 && limit > l.MaxLimit {
		limit = l.MaxLimit
	}
	return max(limit, 1)
}

// Clamp returns page and limit with the listing defaults applied, bounded so
// that the window offset fits in an int.
func (l Limits) Clamp(page, limit int) (int, int) {
	limit = l.clampLimit(limit)
	return ClampPage(page, limit), limit
}

// ClampPage bounds page to [1, math.MaxInt/limit]. Pages past the last record
// still yield an empty window, never a negative offset.
func ClampPage(page, limit int) int {
	if page < 1 {
		return 1
	}
	if limit > 0 && page > math.MaxInt/limit {
		return math.MaxInt / limit
	}
	return page
}

// Window returns the skip/limit slice selected by the page.
func (q Query) Window() Window {
	return Window{Skip: (q.Page - 1) * q.Limit, Limit: q.Limit}
}

// ParseSort parses a sort expression such as "-price,name" or "rating -createdAt".
// A leading "-" selects descending order. An empty expression yields nil.
func ParseSort(expr string) ([]SortField, error) {
	parts := strings.FieldsFunc(expr, func(r rune) bool {
		return r == ',' || r == ' '
	})

	var out []SortField
	for _, part := range parts {
		f := SortField{Field: part}
		if strings.HasPrefix(part, "-") {
			f = SortField{Field: part[1:], Desc: true}
		} else if strings.HasPrefix(part, "+") {
			f.Field = part[1:]
		}
		if !Sortable[f.Field] {
			return nil, verr.Field("sort", f.Field+" is not a sortable field")
		}
		out = append(out, f)
	}
	return out, nil
}

// PageRef points at a neighbouring page.
type PageRef struct {
	Page  int
	Limit int
}

// Pagination tells the client whether neighbouring pages exist.
type Pagination struct {
	Next *PageRef
	Prev *PageRef
}

// Paginate computes the pagination descriptor for a page of size limit over
// total matching records. Next is set only when records exist past the page;
// Prev whenever the page does not start at the first record.
func Paginate(page, limit int, total int64) Pagination {
	page = ClampPage(page, limit)
	var (
		p     Pagination
		start = int64(page-1) * int64(limit)
		end   = int64(page) * int64(limit)
	)
	if end < total {
		p.Next = &PageRef{Page: page + 1, Limit: limit}
	}
	if start > 0 {
		p.Prev = &PageRef{Page: page - 1, Limit: limit}
	}
	return p
}

// Page is one window of a listing.
type Page struct {
	Items      []Product
	Total      int64
	Pagination Pagination
}
