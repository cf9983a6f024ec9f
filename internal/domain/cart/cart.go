// Package cart manages the per-user shopping cart and keeps its total in step
// with the line items.
package cart

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotFound is returned by repositories when a user has no stored cart.
	ErrNotFound = errors.New("cart not found")
	// ErrItemNotFound is returned when a cart has no line for a product.
	ErrItemNotFound = errors.New("cart item not found")
)

// ItemNotFoundError reports the product id missing from a cart.
type ItemNotFoundError struct {
	ProductID string
}

func (e *ItemNotFoundError) Error() string {
	return fmt.Sprintf("Product with id of %s is not in the cart", e.ProductID)
}

func (e *ItemNotFoundError) Unwrap() error { return ErrItemNotFound }

// Item is a cart line. Price, Name and Image are snapshots taken when the
// product was added.
type Item struct {
	ProductID string
	Quantity  int
	Price     decimal.Decimal
	Name      string
	Image     string
}

// Subtotal returns Price × Quantity.
func (i Item) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Cart is the single cart owned by a user.
type Cart struct {
	ID        string
	UserID    string
	Items     []Item
	Total     decimal.Decimal
	UpdatedAt time.Time

	// changed is set by item mutations and cleared by PrepareForPersist.
	changed bool
}

// New returns an empty, unsaved cart for userID.
func New(userID string) *Cart {
	return &Cart{UserID: userID, Items: []Item{}}
}

// Find returns the index of the line for productID, or -1.
func (c *Cart) Find(productID string) int {
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			return i
		}
	}
	return -1
}

// Quantity returns the quantity held for productID.
func (c *Cart) Quantity(productID string) int {
	if i := c.Find(productID); i >= 0 {
		return c.Items[i].Quantity
	}
	return 0
}

// AddItem appends item or, when a line for the product already exists, adds
// to its quantity and refreshes the snapshot. Callers bound the combined
// quantity by stock first.
func (c *Cart) AddItem(item Item) {
	c.changed = true
	if i := c.Find(item.ProductID); i >= 0 {
		item.Quantity += c.Items[i].Quantity
		c.Items[i] = item
		return
	}
	c.Items = append(c.Items, item)
}

// SetQuantity replaces the quantity of an existing line.
func (c *Cart) SetQuantity(productID string, quantity int) error {
	i := c.Find(productID)
	if i < 0 {
		return &ItemNotFoundError{ProductID: productID}
	}
	c.Items[i].Quantity = quantity
	c.changed = true
	return nil
}

// RemoveItem deletes the line for productID.
func (c *Cart) RemoveItem(productID string) error {
	i := c.Find(productID)
	if i < 0 {
		return &ItemNotFoundError{ProductID: productID}
	}
	c.Items = append(c.Items[:i], c.Items[i+1:]...)
	c.changed = true
	return nil
}

// Clear empties the cart.
func (c *Cart) Clear() {
	c.Items = []Item{}
	c.changed = true
}

// Empty reports whether the cart has no lines.
func (c *Cart) Empty() bool { return len(c.Items) == 0 }

// Recalculate sets Total to the sum of the line subtotals.
func (c *Cart) Recalculate() {
	total := decimal.Zero
	for _, it := range c.Items {
		total = total.Add(it.Subtotal())
	}
	c.Total = total
}

// PrepareForPersist must be called by repositories immediately before every
// write. The total is always recomputed, so a cart is never stored with a
// total that disagrees with its items; UpdatedAt moves only when items changed
// or was never set.
func (c *Cart) PrepareForPersist(now time.Time) {
	c.Recalculate()
	if c.changed || c.UpdatedAt.IsZero() {
		c.UpdatedAt = now
	}
	c.changed = false
}

// Repository persists carts, one per user.
type Repository interface {
	// GetByUser returns ErrNotFound when the user has no stored cart.
	GetByUser(ctx context.Context, userID string) (*Cart, error)
	// Save upserts the cart keyed by its owner.
	Save(ctx context.Context, c *Cart) error
}
