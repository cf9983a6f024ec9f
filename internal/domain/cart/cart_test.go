package cart

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func item(id, price string, qty int) Item {
	return Item{ProductID: id, Price: decimal.RequireFromString(price), Quantity: qty, Name: id}
}

func TestCart_TotalAfterMutations(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		mutate func(c *Cart)
		total  string
	}{
		{
			name:   "add",
			mutate: func(c *Cart) { c.AddItem(item("c", "1.25", 4)) },
			total:  "30.98",
		},
		{
			name:   "add to existing line",
			mutate: func(c *Cart) { c.AddItem(item("a", "10.99", 1)) },
			total:  "36.97",
		},
		{
			name:   "set quantity",
			mutate: func(c *Cart) { require.NoError(t, c.SetQuantity("b", 3)) },
			total:  "33.98",
		},
		{
			name:   "remove",
			mutate: func(c *Cart) { require.NoError(t, c.RemoveItem("a")) },
			total:  "4.00",
		},
		{
			name:   "clear",
			mutate: func(c *Cart) { c.Clear() },
			total:  "0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Cart{UserID: "u1", Items: []Item{item("a", "10.99", 2), item("b", "4.00", 1)}}
			tt.mutate(c)
			c.PrepareForPersist(now)

			want := decimal.Zero
			for _, it := range c.Items {
				want = want.Add(it.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
			}
			assert.True(t, want.Equal(c.Total), "total %s, items sum %s", c.Total, want)
			assert.True(t, decimal.RequireFromString(tt.total).Equal(c.Total), "total %s", c.Total)
			assert.Equal(t, now, c.UpdatedAt)
		})
	}
}

func TestCart_PrepareForPersist_UnchangedKeepsTimestamp(t *testing.T) {
	earlier := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := &Cart{
		UserID:    "u1",
		Items:     []Item{item("a", "2.50", 2)},
		Total:     decimal.NewFromInt(99),
		UpdatedAt: earlier,
	}

	c.PrepareForPersist(earlier.Add(time.Hour))
	assert.Equal(t, earlier, c.UpdatedAt)
	assert.True(t, decimal.NewFromInt(5).Equal(c.Total), "stale total must be corrected")
}

func TestCart_AddItem_RefreshesSnapshot(t *testing.T) {
	c := New("u1")
	c.AddItem(item("a", "1.00", 1))
	c.AddItem(Item{ProductID: "a", Price: decimal.RequireFromString("2.00"), Quantity: 2, Name: "renamed"})

	require.Len(t, c.Items, 1)
	assert.Equal(t, 3, c.Items[0].Quantity)
	assert.Equal(t, "renamed", c.Items[0].Name)
}

func TestCart_MissingLine(t *testing.T) {
	c := New("u1")

	err := c.SetQuantity("x", 2)
	require.ErrorIs(t, err, ErrItemNotFound)
	assert.Equal(t, "Product with id of x is not in the cart", err.Error())
	require.ErrorIs(t, c.RemoveItem("x"), ErrItemNotFound)
}
