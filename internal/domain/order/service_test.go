package order

import (
	"context"
	"fmt"
	"math"
	"sort"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/storefront-api/internal/domain/auth"
	"github.com/xenking/storefront-api/internal/domain/cart"
	"github.com/xenking/storefront-api/internal/domain/user"
	"github.com/xenking/storefront-api/internal/domain/verr"
)

// --- Mock implementations ---

type mockOrderRepo struct {
	orders    map[string]*Order
	seq       int
	createErr error
}

func newMockOrderRepo() *mockOrderRepo {
	return &mockOrderRepo{orders: map[string]*Order{}}
}

func (m *mockOrderRepo) Create(_ context.Context, o *Order) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.seq++
	o.ID = fmt.Sprintf("o%d", m.seq)
	o.PrepareForPersist(time.Date(2024, 5, 1, 0, 0, m.seq, 0, time.UTC))
	m.orders[o.ID] = o
	return nil
}

func (m *mockOrderRepo) GetByID(_ context.Context, id string) (*Order, error) {
	o, ok := m.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *mockOrderRepo) byUser(userID string) []Order {
	var out []Order
	for _, o := range m.orders {
		if o.UserID == userID {
			out = append(out, *o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (m *mockOrderRepo) ListByUser(_ context.Context, userID string, skip, limit int) ([]Order, error) {
	all := m.byUser(userID)
	if skip >= len(all) {
		return nil, nil
	}
	end := skip + limit
	if end > len(all) {
		end = len(all)
	}
	return all[skip:end], nil
}

func (m *mockOrderRepo) CountByUser(_ context.Context, userID string) (int64, error) {
	return int64(len(m.byUser(userID))), nil
}

func (m *mockOrderRepo) Update(_ context.Context, o *Order) error {
	if _, ok := m.orders[o.ID]; !ok {
		return ErrNotFound
	}
	m.orders[o.ID] = o
	return nil
}

type mockCartRepo struct {
	carts   map[string]*cart.Cart
	saveErr error
}

func (m *mockCartRepo) GetByUser(_ context.Context, userID string) (*cart.Cart, error) {
	c, ok := m.carts[userID]
	if !ok {
		return nil, cart.ErrNotFound
	}
	return c, nil
}

func (m *mockCartRepo) Save(_ context.Context, c *cart.Cart) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	c.PrepareForPersist(time.Now())
	m.carts[c.UserID] = c
	return nil
}

// --- Helpers ---

var (
	customer = auth.Identity{UserID: "u1", Role: user.RoleUser}
	stranger = auth.Identity{UserID: "u2", Role: user.RoleUser}
	admin    = auth.Identity{UserID: "admin", Role: user.RoleAdmin}
)

func address() Address {
	return Address{Street: "1 Main St", City: "Springfield", State: "IL", ZipCode: "62701", Country: "US"}
}

func filledCart(userID string) *cart.Cart {
	c := cart.New(userID)
	c.AddItem(cart.Item{ProductID: "p1", Name: "Lamp", Quantity: 2, Price: decimal.RequireFromString("19.99"), Image: "lamp.jpg"})
	c.AddItem(cart.Item{ProductID: "p2", Name: "Pen", Quantity: 3, Price: decimal.RequireFromString("1.50")})
	return c
}

func newTestService(t *testing.T) (*Service, *mockOrderRepo, *mockCartRepo) {
	t.Helper()
	orders := newMockOrderRepo()
	carts := &mockCartRepo{carts: map[string]*cart.Cart{"u1": filledCart("u1")}}
	svc, err := NewService(orders, carts, Pricing{
		TaxRate:     decimal.RequireFromString("0.0825"),
		ShippingFee: decimal.RequireFromString("5.00"),
	})
	require.NoError(t, err)
	return svc, orders, carts
}

func checkout(t *testing.T, svc *Service) *Order {
	t.Helper()
	o, err := svc.Checkout(context.Background(), customer, CheckoutInput{
		ShippingAddress: address(),
		PaymentMethod:   PaymentCreditCard,
	})
	require.NoError(t, err)
	return o
}

// --- Tests ---

func TestService_Checkout(t *testing.T) {
	svc, orders, carts := newTestService(t)

	o := checkout(t, svc)
	require.Len(t, o.Items, 2)
	assert.Equal(t, "lamp.jpg", o.Items[0].Image)
	// subtotal 44.48, tax 3.6696 -> 3.67
	assert.Equal(t, "3.67", o.Tax.StringFixed(2))
	assert.Equal(t, "5.00", o.ShippingFee.StringFixed(2))
	assert.Equal(t, "53.15", o.TotalAmount.StringFixed(2))
	assert.Equal(t, StatusPending, o.Status)
	assert.Equal(t, PaymentPending, o.PaymentInfo.Status)
	assert.False(t, o.CreatedAt.IsZero())
	assert.Contains(t, orders.orders, o.ID)

	assert.True(t, carts.carts["u1"].Empty())
	assert.True(t, carts.carts["u1"].Total.IsZero())
}

func TestService_Checkout_EmptyCart(t *testing.T) {
	svc, orders, _ := newTestService(t)

	_, err := svc.Checkout(context.Background(), stranger, CheckoutInput{
		ShippingAddress: address(),
		PaymentMethod:   PaymentPayPal,
	})
	fields, ok := verr.Fields(err)
	require.True(t, ok)
	assert.Equal(t, "items", fields[0].Name)
	assert.Empty(t, orders.orders)
}

func TestService_Checkout_InvalidInput(t *testing.T) {
	svc, orders, carts := newTestService(t)

	_, err := svc.Checkout(context.Background(), customer, CheckoutInput{
		ShippingAddress: Address{Street: "1 Main St"},
		PaymentMethod:   "barter",
	})
	fields, ok := verr.Fields(err)
	require.True(t, ok)

	names := make([]string, 0, len(fields))
	for _, f := range fields {
		names = append(names, f.Name)
	}
	assert.ElementsMatch(t, []string{
		"shippingAddress.city",
		"shippingAddress.state",
		"shippingAddress.zipCode",
		"shippingAddress.country",
		"paymentInfo.method",
	}, names)
	assert.Empty(t, orders.orders)
	assert.False(t, carts.carts["u1"].Empty())
}

func TestService_Checkout_ClearFailureKeepsOrder(t *testing.T) {
	svc, orders, carts := newTestService(t)
	carts.saveErr = errors.New("timeout")

	o := checkout(t, svc)
	assert.Contains(t, orders.orders, o.ID)
}

func TestService_Get(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	o := checkout(t, svc)

	got, err := svc.Get(ctx, customer, o.ID)
	require.NoError(t, err)
	assert.Equal(t, o.ID, got.ID)

	_, err = svc.Get(ctx, admin, o.ID)
	require.NoError(t, err)

	_, err = svc.Get(ctx, stranger, o.ID)
	var fErr *auth.ForbiddenError
	require.ErrorAs(t, err, &fErr)

	_, err = svc.Get(ctx, stranger, "missing")
	require.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, "Order not found with id of missing", err.Error())
}

func TestService_List(t *testing.T) {
	svc, _, carts := newTestService(t)
	ctx := context.Background()

	var ids []string
	for i := 0; i < 3; i++ {
		carts.carts["u1"] = filledCart("u1")
		ids = append(ids, checkout(t, svc).ID)
	}

	page, err := svc.List(ctx, customer, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.Total)
	require.Len(t, page.Items, 2)
	assert.Equal(t, ids[2], page.Items[0].ID)
	require.NotNil(t, page.Pagination.Next)
	assert.Equal(t, 2, page.Pagination.Next.Page)

	page, err = svc.List(ctx, stranger, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.Nil(t, page.Pagination.Next)

	page, err = svc.List(ctx, customer, math.MaxInt, 2)
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.Equal(t, int64(3), page.Total)
	assert.Nil(t, page.Pagination.Next)
	require.NotNil(t, page.Pagination.Prev)
	assert.Positive(t, page.Pagination.Prev.Page)
}

func TestService_Update(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	o := checkout(t, svc)

	fixed := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	prev := nowFunc
	nowFunc = func() time.Time { return fixed }
	t.Cleanup(func() { nowFunc = prev })

	delivered := StatusDelivered
	paid := PaymentCompleted
	txn := "tx-42"
	got, err := svc.Update(ctx, admin, o.ID, UpdateInput{Status: &delivered, PaymentStatus: &paid, TransactionID: &txn})
	require.NoError(t, err)
	assert.Equal(t, StatusDelivered, got.Status)
	assert.Equal(t, PaymentCompleted, got.PaymentInfo.Status)
	assert.Equal(t, "tx-42", got.PaymentInfo.TransactionID)
	require.NotNil(t, got.DeliveredAt)
	assert.Equal(t, fixed, *got.DeliveredAt)

	// Any value is accepted, including moving back from delivered.
	pending := StatusPending
	got, err = svc.Update(ctx, admin, o.ID, UpdateInput{Status: &pending})
	require.NoError(t, err)
	assert.Equal(t, StatusPending, got.Status)
	assert.Equal(t, fixed, *got.DeliveredAt)
}

func TestService_Update_Errors(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	o := checkout(t, svc)
	shipped := StatusShipped

	_, err := svc.Update(ctx, admin, "missing", UpdateInput{Status: &shipped})
	require.ErrorIs(t, err, ErrNotFound)

	_, err = svc.Update(ctx, customer, o.ID, UpdateInput{Status: &shipped})
	var fErr *auth.ForbiddenError
	require.ErrorAs(t, err, &fErr)

	bogus := Status("lost")
	_, err = svc.Update(ctx, admin, o.ID, UpdateInput{Status: &bogus})
	fields, ok := verr.Fields(err)
	require.True(t, ok)
	assert.Equal(t, "lost is not a valid order status", fields[0].Error.Error())
}
