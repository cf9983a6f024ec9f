package mongo

import (
	"go.mongodb.org/mongo-driver/bson"

	"github.com/xenking/storefront-api/internal/domain/product"
)

// productFields maps sortable API field names to document fields.
var productFields = map[string]string{
	"name":       "name",
	"price":      "price",
	"stock":      "stock",
	"category":   "category",
	"rating":     "rating",
	"numReviews": "numReviews",
	"featured":   "featured",
	"createdAt":  "createdAt",
	"updatedAt":  "updatedAt",
}

// productFilter translates f into a query document. It fails with
// errInvalidID when the vendor id cannot match any document.
func productFilter(f product.Filter) (bson.D, error) {
	filter := bson.D{}
	if f.VendorID != "" {
		oid, err := objectID(f.VendorID)
		if err != nil {
			return nil, err
		}
		filter = append(filter, bson.E{Key: "vendorId", Value: oid})
	}
	if f.Category != "" {
		filter = append(filter, bson.E{Key: "category", Value: string(f.Category)})
	}
	if f.MinPrice != nil || f.MaxPrice != nil {
		price := bson.D{}
		if f.MinPrice != nil {
			v, err := toDecimal128(*f.MinPrice)
			if err != nil {
				return nil, err
			}
			price = append(price, bson.E{Key: "$gte", Value: v})
		}
		if f.MaxPrice != nil {
			v, err := toDecimal128(*f.MaxPrice)
			if err != nil {
				return nil, err
			}
			price = append(price, bson.E{Key: "$lte", Value: v})
		}
		filter = append(filter, bson.E{Key: "price", Value: price})
	}
	if f.Search != "" {
		filter = append(filter, bson.E{Key: "$text", Value: bson.D{{Key: "$search", Value: f.Search}}})
	}
	return filter, nil
}

// productSort renders a sort document with _id as the final tie-breaker.
func productSort(sort []product.SortField) bson.D {
	out := make(bson.D, 0, len(sort)+1)
	for _, s := range sort {
		field, ok := productFields[s.Field]
		if !ok {
			continue
		}
		dir := 1
		if s.Desc {
			dir = -1
		}
		out = append(out, bson.E{Key: field, Value: dir})
	}
	return append(out, bson.E{Key: "_id", Value: 1})
}
