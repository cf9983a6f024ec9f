package order

import (
	"strings"

	"github.com/xenking/storefront-api/internal/domain/verr"
)

// Validate checks the stored invariants of an order.
func Validate(o *Order) error {
	var b verr.Builder
	if o.UserID == "" {
		b.Add("userId", "User ID is required")
	}
	if len(o.Items) == 0 {
		b.Add("items", "Order must contain at least one item")
	}
	for _, it := range o.Items {
		if it.Quantity < 1 {
			b.Add("items.quantity", "Quantity cannot be less than 1")
			break
		}
	}
	checkAddress(&b, o.ShippingAddress)
	checkPayment(&b, o.PaymentInfo)
	if !o.Status.Valid() {
		b.Add("status", string(o.Status)+" is not a valid order status")
	}
	if o.TotalAmount.IsNegative() {
		b.Add("totalAmount", "Total amount cannot be negative")
	}
	return b.Err()
}

func checkAddress(b *verr.Builder, a Address) {
	for _, f := range []struct {
		name, value, msg string
	}{
		{"shippingAddress.street", a.Street, "Street address is required"},
		{"shippingAddress.city", a.City, "City is required"},
		{"shippingAddress.state", a.State, "State is required"},
		{"shippingAddress.zipCode", a.ZipCode, "Zip code is required"},
		{"shippingAddress.country", a.Country, "Country is required"},
	} {
		if strings.TrimSpace(f.value) == "" {
			b.Add(f.name, f.msg)
		}
	}
}

func checkPayment(b *verr.Builder, p PaymentInfo) {
	switch {
	case p.Method == "":
		b.Add("paymentInfo.method", "Payment method is required")
	case !p.Method.Valid():
		b.Add("paymentInfo.method", string(p.Method)+" is not a supported payment method")
	}
	if !p.Status.Valid() {
		b.Add("paymentInfo.status", string(p.Status)+" is not a valid payment status")
	}
}
