package product

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// NotFoundError reports the id of a missing product. It matches ErrNotFound
// through errors.Is.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("Product not found with id of %s", e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// Category is the closed set of catalog categories.
type Category string

const (
	CategoryElectronics Category = "electronics"
	CategoryClothing    Category = "clothing"
	CategoryBooks       Category = "books"
	CategoryHome        Category = "home"
	CategoryBeauty      Category = "beauty"
	CategorySports      Category = "sports"
	CategoryFood        Category = "food"
	CategoryOther       Category = "other"
)

// Categories lists every supported category in display order.
var Categories = []Category{
	CategoryElectronics,
	CategoryClothing,
	CategoryBooks,
	CategoryHome,
	CategoryBeauty,
	CategorySports,
	CategoryFood,
	CategoryOther,
}

// Valid reports whether c belongs to the supported set.
func (c Category) Valid() bool {
	for _, v := range Categories {
		if c == v {
			return true
		}
	}
	return false
}

// Product represents a catalog item owned by a vendor.
type Product struct {
	ID          string
	Name        string
	Description string
	Price       decimal.Decimal
	Stock       int
	Category    Category
	VendorID    string
	Images      []string
	Featured    bool
	Rating      float64
	NumReviews  int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// PrepareForPersist stamps timestamps before a write. Repositories call it
// immediately before every insert or update.
func (p *Product) PrepareForPersist(now time.Time) {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
}

// PrimaryImage returns the first image URL or an empty string.
func (p *Product) PrimaryImage() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0]
}

// Input carries client-writable product fields. A nil field was absent from
// the request and leaves the target untouched.
type Input struct {
	Name        *string
	Description *string
	Price       *decimal.Decimal
	Stock       *int
	Category    *Category
	Images      *[]string
	Featured    *bool
	Rating      *float64
	NumReviews  *int
}

// ApplyTo copies every present field of in onto p.
func (in Input) ApplyTo(p *Product) {
	if in.Name != nil {
		p.Name = *in.Name
	}
	if in.Description != nil {
		p.Description = *in.Description
	}
	if in.Price != nil {
		p.Price = *in.Price
	}
	if in.Stock != nil {
		p.Stock = *in.Stock
	}
	if in.Category != nil {
		p.Category = *in.Category
	}
	if in.Images != nil {
		p.Images = append([]string(nil), (*in.Images)...)
	}
	if in.Featured != nil {
		p.Featured = *in.Featured
	}
	if in.Rating != nil {
		p.Rating = *in.Rating
	}
	if in.NumReviews != nil {
		p.NumReviews = *in.NumReviews
	}
}

// Filter is the storage-level predicate for catalog listings. Zero-valued
// fields do not restrict the result.
type Filter struct {
	VendorID string
	Category Category
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal
	Search   string
}

// SortField orders listings by a single product field.
type SortField struct {
	Field string
	Desc  bool
}

// Window is the skip/limit slice of a listing.
type Window struct {
	Skip  int
	Limit int
}

// Reader provides read access to the catalog.
type Reader interface {
	GetByID(ctx context.Context, id string) (*Product, error)
}

// Repository defines persistence operations for the product catalog.
// Implementations return ErrNotFound for missing ids.
type Repository interface {
	Reader
	Find(ctx context.Context, f Filter, sort []SortField, w Window) ([]Product, error)
	Count(ctx context.Context, f Filter) (int64, error)
	Create(ctx context.Context, p *Product) error
	Update(ctx context.Context, p *Product) error
	Delete(ctx context.Context, id string) error
}
