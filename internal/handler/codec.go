package handler

import (
	"io"
	"math"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront-api/internal/domain/cart"
	"github.com/xenking/storefront-api/internal/domain/order"
	"github.com/xenking/storefront-api/internal/domain/product"
	"github.com/xenking/storefront-api/internal/domain/user"
	"github.com/xenking/storefront-api/internal/domain/verr"
)

const maxBodyBytes = 1 << 20

// decodeBody walks the top-level JSON object of the request body, calling fn
// for each key. An empty body is an empty object. Values of the wrong JSON
// type are recorded in b by the read helpers rather than aborting the decode.
func decodeBody(w http.ResponseWriter, r *http.Request, fn func(d *jx.Decoder, key string) error) error {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return &malformedBodyError{err: err}
	}
	if len(data) == 0 {
		return nil
	}
	d := jx.DecodeBytes(data)
	if d.Next() != jx.Object {
		return &malformedBodyError{err: errors.New("body is not an object")}
	}
	if err := d.Obj(fn); err != nil {
		return &malformedBodyError{err: err}
	}
	return nil
}

func readString(d *jx.Decoder, b *verr.Builder, field string) (*string, error) {
	if d.Next() != jx.String {
		b.Add(field, field+" must be a string")
		return nil, d.Skip()
	}
	s, err := d.Str()
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func readInt(d *jx.Decoder, b *verr.Builder, field string) (*int, error) {
	if d.Next() != jx.Number {
		b.Add(field, field+" must be an integer")
		return nil, d.Skip()
	}
	n, err := d.Num()
	if err != nil {
		return nil, err
	}
	v, err := n.Int64()
	if err != nil {
		b.Add(field, field+" must be an integer")
		return nil, nil
	}
	// Counts are stored as 32-bit integers.
	if v > math.MaxInt32 || v < math.MinInt32 {
		b.Add(field, field+" is out of range")
		return nil, nil
	}
	i := int(v)
	return &i, nil
}

func readFloat(d *jx.Decoder, b *verr.Builder, field string) (*float64, error) {
	if d.Next() != jx.Number {
		b.Add(field, field+" must be a number")
		return nil, d.Skip()
	}
	f, err := d.Float64()
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// readDecimal accepts a JSON number or a numeric string.
func readDecimal(d *jx.Decoder, b *verr.Builder, field string) (*decimal.Decimal, error) {
	var raw string
	switch d.Next() {
	case jx.Number:
		n, err := d.Num()
		if err != nil {
			return nil, err
		}
		raw = n.String()
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return nil, err
		}
		raw = s
	default:
		b.Add(field, field+" must be a number")
		return nil, d.Skip()
	}
	v, err := decimal.NewFromString(raw)
	if err != nil {
		b.Add(field, field+" must be a number")
		return nil, nil
	}
	return &v, nil
}

func readBool(d *jx.Decoder, b *verr.Builder, field string) (*bool, error) {
	if d.Next() != jx.Bool {
		b.Add(field, field+" must be a boolean")
		return nil, d.Skip()
	}
	v, err := d.Bool()
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func readStrings(d *jx.Decoder, b *verr.Builder, field string) (*[]string, error) {
	if d.Next() != jx.Array {
		b.Add(field, field+" must be an array of strings")
		return nil, d.Skip()
	}
	out := []string{}
	bad := false
	err := d.Arr(func(d *jx.Decoder) error {
		if d.Next() != jx.String {
			bad = true
			return d.Skip()
		}
		s, err := d.Str()
		out = append(out, s)
		return err
	})
	if err != nil {
		return nil, err
	}
	if bad {
		b.Add(field, field+" must be an array of strings")
		return nil, nil
	}
	return &out, nil
}

// decodeProductInput reads the writable product fields. Absent keys stay nil
// so updates only touch what the client sent. vendorId and timestamps are
// ignored.
func decodeProductInput(w http.ResponseWriter, r *http.Request) (product.Input, error) {
	var (
		in product.Input
		b  verr.Builder
	)
	err := decodeBody(w, r, func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "name":
			in.Name, err = readString(d, &b, key)
		case "description":
			in.Description, err = readString(d, &b, key)
		case "price":
			in.Price, err = readDecimal(d, &b, key)
		case "stock":
			in.Stock, err = readInt(d, &b, key)
		case "category":
			var s *string
			if s, err = readString(d, &b, key); s != nil {
				c := product.Category(*s)
				in.Category = &c
			}
		case "images":
			in.Images, err = readStrings(d, &b, key)
		case "featured":
			in.Featured, err = readBool(d, &b, key)
		case "rating":
			in.Rating, err = readFloat(d, &b, key)
		case "numReviews":
			in.NumReviews, err = readInt(d, &b, key)
		default:
			err = d.Skip()
		}
		return err
	})
	if err != nil {
		return in, err
	}
	return in, b.Err()
}

// Response encoding.

func encodeTime(e *jx.Encoder, t time.Time) {
	e.Str(t.UTC().Format(time.RFC3339Nano))
}

func encodeDecimal(e *jx.Encoder, d decimal.Decimal) {
	e.Num(jx.Num(d.String()))
}

func encodeStrings(e *jx.Encoder, ss []string) {
	e.ArrStart()
	for _, s := range ss {
		e.Str(s)
	}
	e.ArrEnd()
}

// encodeProduct writes p. A non-nil vendor is joined in as the "vendor"
// object.
func encodeProduct(e *jx.Encoder, p *product.Product, vendor *user.Summary) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(p.ID)
	e.FieldStart("name")
	e.Str(p.Name)
	e.FieldStart("description")
	e.Str(p.Description)
	e.FieldStart("price")
	encodeDecimal(e, p.Price)
	e.FieldStart("stock")
	e.Int(p.Stock)
	e.FieldStart("category")
	e.Str(string(p.Category))
	e.FieldStart("vendorId")
	e.Str(p.VendorID)
	if vendor != nil {
		e.FieldStart("vendor")
		e.ObjStart()
		e.FieldStart("id")
		e.Str(vendor.ID)
		e.FieldStart("name")
		e.Str(vendor.Name)
		e.FieldStart("email")
		e.Str(vendor.Email)
		e.ObjEnd()
	}
	e.FieldStart("images")
	encodeStrings(e, p.Images)
	e.FieldStart("featured")
	e.Bool(p.Featured)
	e.FieldStart("rating")
	e.Float64(p.Rating)
	e.FieldStart("numReviews")
	e.Int(p.NumReviews)
	e.FieldStart("createdAt")
	encodeTime(e, p.CreatedAt)
	e.FieldStart("updatedAt")
	encodeTime(e, p.UpdatedAt)
	e.ObjEnd()
}

func encodePagination(e *jx.Encoder, p product.Pagination) {
	ref := func(name string, r *product.PageRef) {
		if r == nil {
			return
		}
		e.FieldStart(name)
		e.ObjStart()
		e.FieldStart("page")
		e.Int(r.Page)
		e.FieldStart("limit")
		e.Int(r.Limit)
		e.ObjEnd()
	}
	e.ObjStart()
	ref("next", p.Next)
	ref("prev", p.Prev)
	e.ObjEnd()
}

func encodeCart(e *jx.Encoder, c *cart.Cart) {
	e.ObjStart()
	if c.ID != "" {
		e.FieldStart("id")
		e.Str(c.ID)
	}
	e.FieldStart("userId")
	e.Str(c.UserID)
	e.FieldStart("items")
	e.ArrStart()
	for _, it := range c.Items {
		e.ObjStart()
		e.FieldStart("productId")
		e.Str(it.ProductID)
		e.FieldStart("name")
		e.Str(it.Name)
		e.FieldStart("image")
		e.Str(it.Image)
		e.FieldStart("price")
		encodeDecimal(e, it.Price)
		e.FieldStart("quantity")
		e.Int(it.Quantity)
		e.FieldStart("subtotal")
		encodeDecimal(e, it.Subtotal())
		e.ObjEnd()
	}
	e.ArrEnd()
	e.FieldStart("total")
	encodeDecimal(e, c.Total)
	if !c.UpdatedAt.IsZero() {
		e.FieldStart("updatedAt")
		encodeTime(e, c.UpdatedAt)
	}
	e.ObjEnd()
}

func encodeOrder(e *jx.Encoder, o *order.Order) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(o.ID)
	e.FieldStart("userId")
	e.Str(o.UserID)

	e.FieldStart("items")
	e.ArrStart()
	for _, it := range o.Items {
		e.ObjStart()
		e.FieldStart("productId")
		e.Str(it.ProductID)
		e.FieldStart("name")
		e.Str(it.Name)
		e.FieldStart("quantity")
		e.Int(it.Quantity)
		e.FieldStart("price")
		encodeDecimal(e, it.Price)
		e.FieldStart("image")
		e.Str(it.Image)
		e.ObjEnd()
	}
	e.ArrEnd()

	a := o.ShippingAddress
	e.FieldStart("shippingAddress")
	e.ObjStart()
	e.FieldStart("street")
	e.Str(a.Street)
	e.FieldStart("city")
	e.Str(a.City)
	e.FieldStart("state")
	e.Str(a.State)
	e.FieldStart("zipCode")
	e.Str(a.ZipCode)
	e.FieldStart("country")
	e.Str(a.Country)
	e.ObjEnd()

	pi := o.PaymentInfo
	e.FieldStart("paymentInfo")
	e.ObjStart()
	e.FieldStart("method")
	e.Str(string(pi.Method))
	if pi.TransactionID != "" {
		e.FieldStart("transactionId")
		e.Str(pi.TransactionID)
	}
	e.FieldStart("status")
	e.Str(string(pi.Status))
	e.ObjEnd()

	e.FieldStart("status")
	e.Str(string(o.Status))
	e.FieldStart("subtotal")
	encodeDecimal(e, o.Subtotal())
	e.FieldStart("tax")
	encodeDecimal(e, o.Tax)
	e.FieldStart("shippingFee")
	encodeDecimal(e, o.ShippingFee)
	e.FieldStart("totalAmount")
	encodeDecimal(e, o.TotalAmount)
	e.FieldStart("createdAt")
	encodeTime(e, o.CreatedAt)
	e.FieldStart("updatedAt")
	encodeTime(e, o.UpdatedAt)
	if o.DeliveredAt != nil {
		e.FieldStart("deliveredAt")
		encodeTime(e, *o.DeliveredAt)
	}
	e.ObjEnd()
}

// writeData writes {"success":true,"data":...} with data written by fn.
func writeData(w http.ResponseWriter, status int, fn func(e *jx.Encoder)) {
	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("success")
	e.Bool(true)
	e.FieldStart("data")
	fn(&e)
	e.ObjEnd()
	writeBody(w, status, e.Bytes())
}

// writeList writes the paginated listing envelope.
func writeList(w http.ResponseWriter, count int, total int64, p product.Pagination, fn func(e *jx.Encoder)) {
	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("success")
	e.Bool(true)
	e.FieldStart("count")
	e.Int(count)
	e.FieldStart("total")
	e.Int64(total)
	e.FieldStart("pagination")
	encodePagination(&e, p)
	e.FieldStart("data")
	e.ArrStart()
	fn(&e)
	e.ArrEnd()
	e.ObjEnd()
	writeBody(w, http.StatusOK, e.Bytes())
}
