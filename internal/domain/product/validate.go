package product

import (
	"math"
	"strconv"
	"strings"

	"github.com/ogen-go/ogen/validate"

	"github.com/xenking/storefront-api/internal/domain/verr"
)

var (
	nameLength        = validate.String{MaxLength: 100, MaxLengthSet: true}
	descriptionLength = validate.String{MaxLength: 1000, MaxLengthSet: true}
	ratingRange       = validate.Float{Min: 0, MinSet: true, Max: 5, MaxSet: true}
)

// Counts are stored in 32-bit columns.
var (
	countRange  = validate.Int{Min: 0, MinSet: true, Max: math.MaxInt32, MaxSet: true}
	tooLargeMsg = " cannot be more than " + strconv.Itoa(math.MaxInt32)
)

// Normalize trims fields the way they are stored.
func Normalize(p *Product) {
	p.Name = strings.TrimSpace(p.Name)
}

// Validate checks p against the catalog constraints and returns a
// *validate.Error listing every violated field.
func Validate(p *Product) error {
	var b verr.Builder
	check(&b, p)
	return b.Err()
}

// New builds a product owned by vendorID from in and validates it as a
// creation would.
func New(vendorID string, in Input) (*Product, error) {
	p := &Product{VendorID: vendorID}
	in.ApplyTo(p)
	Normalize(p)
	if err := validateNew(in, p); err != nil {
		return nil, err
	}
	return p, nil
}

// validateNew runs Validate plus the presence checks that only apply on
// creation, where a missing price cannot be told apart from zero afterwards.
func validateNew(in Input, p *Product) error {
	var b verr.Builder
	if in.Price == nil {
		b.Add("price", "Product price is required")
	}
	check(&b, p)
	return b.Err()
}

func check(b *verr.Builder, p *Product) {
	if p.Name == "" {
		b.Add("name", "Product name is required")
	} else {
		b.Check("name", nameLength.Validate(p.Name), "Product name cannot be more than 100 characters")
	}

	if p.Description == "" {
		b.Add("description", "Product description is required")
	} else {
		b.Check("description", descriptionLength.Validate(p.Description), "Description cannot be more than 1000 characters")
	}

	if p.Price.IsNegative() {
		b.Add("price", "Price must be a positive number")
	}
	checkCount(b, "stock", p.Stock, "Stock quantity")

	switch {
	case p.Category == "":
		b.Add("category", "Product category is required")
	case !p.Category.Valid():
		b.Add("category", string(p.Category)+" is not a supported category")
	}

	if p.VendorID == "" {
		b.Add("vendorId", "Vendor ID is required")
	}
	b.Check("rating", ratingRange.Validate(p.Rating), "Rating must be between 0 and 5")
	checkCount(b, "numReviews", p.NumReviews, "Review count")
}

func checkCount(b *verr.Builder, field string, v int, label string) {
	if countRange.Validate(int64(v)) == nil {
		return
	}
	if v < 0 {
		b.Add(field, label+" cannot be negative")
		return
	}
	b.Add(field, label+tooLargeMsg)
}
