package cart

import (
	"context"
	"math"
	"testing"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/storefront-api/internal/domain/auth"
	"github.com/xenking/storefront-api/internal/domain/product"
	"github.com/xenking/storefront-api/internal/domain/user"
	"github.com/xenking/storefront-api/internal/domain/verr"
)

// --- Mock implementations ---

type mockCartRepo struct {
	carts   map[string]*Cart
	saves   int
	saveErr error
}

func (m *mockCartRepo) GetByUser(_ context.Context, userID string) (*Cart, error) {
	c, ok := m.carts[userID]
	if !ok {
		return nil, ErrNotFound
	}
	return c, nil
}

// Save mirrors what the storage layer does: prepare, then store.
func (m *mockCartRepo) Save(_ context.Context, c *Cart) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	c.PrepareForPersist(c.UpdatedAt.Add(1))
	m.carts[c.UserID] = c
	m.saves++
	return nil
}

type mockProductReader struct {
	products map[string]*product.Product
}

func (m *mockProductReader) GetByID(_ context.Context, id string) (*product.Product, error) {
	p, ok := m.products[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	return p, nil
}

// --- Helpers ---

var shopper = auth.Identity{UserID: "u1", Role: user.RoleUser}

func newTestService(t *testing.T) (*Service, *mockCartRepo) {
	t.Helper()
	repo := &mockCartRepo{carts: map[string]*Cart{}}
	products := &mockProductReader{products: map[string]*product.Product{
		"lamp": {
			ID:     "lamp",
			Name:   "Desk Lamp",
			Price:  decimal.RequireFromString("29.90"),
			Stock:  3,
			Images: []string{"lamp-1.jpg", "lamp-2.jpg"},
		},
		"pen": {ID: "pen", Name: "Pen", Price: decimal.RequireFromString("1.50"), Stock: 100},
	}}
	svc, err := NewService(repo, products)
	require.NoError(t, err)
	return svc, repo
}

func requireField(t *testing.T, err error, field string) string {
	t.Helper()
	fields, ok := verr.Fields(err)
	require.True(t, ok, "expected validation error, got %v", err)
	for _, f := range fields {
		if f.Name == field {
			return f.Error.Error()
		}
	}
	t.Fatalf("no violation for %q in %v", field, err)
	return ""
}

// --- Tests ---

func TestService_Get_EmptyWhenMissing(t *testing.T) {
	svc, repo := newTestService(t)

	c, err := svc.Get(context.Background(), shopper)
	require.NoError(t, err)
	assert.Equal(t, "u1", c.UserID)
	assert.Empty(t, c.Items)
	assert.True(t, c.Total.IsZero())
	assert.Zero(t, repo.saves)
}

func TestService_AddItem(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	c, err := svc.AddItem(ctx, shopper, "lamp", 2)
	require.NoError(t, err)
	require.Len(t, c.Items, 1)
	assert.Equal(t, "Desk Lamp", c.Items[0].Name)
	assert.Equal(t, "lamp-1.jpg", c.Items[0].Image)
	assert.True(t, decimal.RequireFromString("59.80").Equal(c.Total))

	c, err = svc.AddItem(ctx, shopper, "pen", 4)
	require.NoError(t, err)
	assert.Len(t, c.Items, 2)
	assert.True(t, decimal.RequireFromString("65.80").Equal(c.Total))
	assert.Equal(t, 2, repo.saves)
}

func TestService_AddItem_Errors(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	_, err := svc.AddItem(ctx, shopper, "lamp", 0)
	assert.Equal(t, "Quantity cannot be less than 1", requireField(t, err, "quantity"))

	_, err = svc.AddItem(ctx, shopper, "ghost", 1)
	require.ErrorIs(t, err, product.ErrNotFound)

	_, err = svc.AddItem(ctx, shopper, "lamp", 2)
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, shopper, "lamp", 2)
	assert.Equal(t, "Only 3 of Desk Lamp in stock", requireField(t, err, "quantity"))
	assert.Equal(t, 1, repo.saves)
}

func TestService_AddItem_HugeQuantity(t *testing.T) {
	tests := []struct {
		name     string
		held     int
		quantity int
	}{
		{name: "max int on empty cart", quantity: math.MaxInt},
		{name: "max int on held line", held: 1, quantity: math.MaxInt},
		{name: "sum wraps past max int", held: 100, quantity: math.MaxInt - 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, repo := newTestService(t)
			ctx := context.Background()

			if tt.held > 0 {
				_, err := svc.AddItem(ctx, shopper, "pen", tt.held)
				require.NoError(t, err)
			}
			saves := repo.saves

			_, err := svc.AddItem(ctx, shopper, "pen", tt.quantity)
			assert.Equal(t, "Only 100 of Pen in stock", requireField(t, err, "quantity"))
			assert.Equal(t, saves, repo.saves)

			c, err := svc.Get(ctx, shopper)
			require.NoError(t, err)
			for _, it := range c.Items {
				assert.Equal(t, tt.held, it.Quantity)
			}
			assert.False(t, c.Total.IsNegative())
		})
	}
}

func TestService_SetQuantity(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.SetQuantity(ctx, shopper, "pen", 2)
	require.ErrorIs(t, err, ErrItemNotFound)

	_, err = svc.AddItem(ctx, shopper, "pen", 1)
	require.NoError(t, err)

	c, err := svc.SetQuantity(ctx, shopper, "pen", 10)
	require.NoError(t, err)
	assert.Equal(t, 10, c.Items[0].Quantity)
	assert.True(t, decimal.NewFromInt(15).Equal(c.Total))

	_, err = svc.SetQuantity(ctx, shopper, "pen", 101)
	requireField(t, err, "quantity")
}

func TestService_RemoveAndClear(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.AddItem(ctx, shopper, "pen", 2)
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, shopper, "lamp", 1)
	require.NoError(t, err)

	c, err := svc.RemoveItem(ctx, shopper, "pen")
	require.NoError(t, err)
	require.Len(t, c.Items, 1)
	assert.True(t, decimal.RequireFromString("29.90").Equal(c.Total))

	_, err = svc.RemoveItem(ctx, shopper, "pen")
	require.ErrorIs(t, err, ErrItemNotFound)

	c, err = svc.Clear(ctx, shopper)
	require.NoError(t, err)
	assert.Empty(t, c.Items)
	assert.True(t, c.Total.IsZero())
}

func TestService_SaveError(t *testing.T) {
	svc, repo := newTestService(t)
	repo.saveErr = errors.New("disk full")

	_, err := svc.AddItem(context.Background(), shopper, "pen", 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "save cart")
}
