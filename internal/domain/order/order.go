// Package order turns carts into orders and manages their status afterwards.
package order

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested order does not exist.
var ErrNotFound = errors.New("order not found")

// NotFoundError reports the id of a missing order.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("Order not found with id of %s", e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// Status is the fulfilment state of an order.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

// PaymentMethod is how the customer pays.
type PaymentMethod string

const (
	PaymentCreditCard     PaymentMethod = "credit_card"
	PaymentPayPal         PaymentMethod = "paypal"
	PaymentStripe         PaymentMethod = "stripe"
	PaymentCashOnDelivery PaymentMethod = "cash_on_delivery"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCreditCard, PaymentPayPal, PaymentStripe, PaymentCashOnDelivery:
		return true
	}
	return false
}

// PaymentStatus is the settlement state of the payment, independent of Status.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
	PaymentRefunded  PaymentStatus = "refunded"
)

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentPending, PaymentCompleted, PaymentFailed, PaymentRefunded:
		return true
	}
	return false
}

// Address is a shipping destination. Every field is required.
type Address struct {
	Street  string
	City    string
	State   string
	ZipCode string
	Country string
}

// PaymentInfo describes the payment attached to an order.
type PaymentInfo struct {
	Method        PaymentMethod
	TransactionID string
	Status        PaymentStatus
}

// Item is a product snapshot captured at checkout.
type Item struct {
	ProductID string
	Name      string
	Quantity  int
	Price     decimal.Decimal
	Image     string
}

// Order is a placed purchase.
type Order struct {
	ID              string
	UserID          string
	Items           []Item
	ShippingAddress Address
	PaymentInfo     PaymentInfo
	Status          Status
	TotalAmount     decimal.Decimal
	Tax             decimal.Decimal
	ShippingFee     decimal.Decimal
	CreatedAt       time.Time
	UpdatedAt       time.Time
	DeliveredAt     *time.Time
}

// Subtotal returns the sum of item prices times quantities.
func (o *Order) Subtotal() decimal.Decimal {
	total := decimal.Zero
	for _, it := range o.Items {
		total = total.Add(it.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	return total
}

// PrepareForPersist stamps timestamps; repositories call it before every write.
func (o *Order) PrepareForPersist(now time.Time) {
	if o.CreatedAt.IsZero() {
		o.CreatedAt = now
	}
	o.UpdatedAt = now
}

// Repository persists orders.
type Repository interface {
	Create(ctx context.Context, o *Order) error
	// GetByID returns ErrNotFound for unknown ids.
	GetByID(ctx context.Context, id string) (*Order, error)
	// ListByUser returns the user's orders newest first.
	ListByUser(ctx context.Context, userID string, skip, limit int) ([]Order, error)
	CountByUser(ctx context.Context, userID string) (int64, error)
	Update(ctx context.Context, o *Order) error
}

var nowFunc = func() time.Time { return time.Now().UTC() }
