package verr

import (
	"testing"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilder(t *testing.T) {
	var b Builder
	require.NoError(t, b.Err())

	b.Add("name", "Product name is required")
	b.Check("price", nil, "unused")
	b.Check("stock", errors.New("below min"), "Stock quantity cannot be negative")

	fields, ok := Fields(b.Err())
	require.True(t, ok)
	require.Len(t, fields, 2)
	assert.Equal(t, "name", fields[0].Name)
	assert.Equal(t, "Product name is required", fields[0].Error.Error())
	assert.Equal(t, "stock", fields[1].Name)
}

func TestFields_Wrapped(t *testing.T) {
	err := errors.Wrap(Field("quantity", "Quantity cannot be less than 1"), "add item")

	fields, ok := Fields(err)
	require.True(t, ok)
	assert.Equal(t, "quantity", fields[0].Name)

	_, ok = Fields(errors.New("boom"))
	assert.False(t, ok)
}
