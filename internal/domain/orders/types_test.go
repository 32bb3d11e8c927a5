package orders

import (
	"regexp"
	"testing"

	"storefront/internal/domain/inventory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to Status
		want     bool
	}{
		{StatusPending, StatusConfirmed, true},
		{StatusPending, StatusCancelled, true},
		{StatusPending, StatusDelivered, false},
		{StatusConfirmed, StatusShipping, true},
		{StatusShipping, StatusDelivered, true},
		{StatusShipping, StatusCancelled, true},
		{StatusDelivered, StatusCancelled, false},
		{StatusCancelled, StatusPending, false},
		{StatusCancelled, StatusCancelled, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.from, tt.to))
		})
	}
}

func TestStatusValid(t *testing.T) {
	assert.True(t, StatusShipping.Valid())
	assert.False(t, Status("refunded").Valid())
}

func TestOrderLines(t *testing.T) {
	o := &Order{Items: []OrderItem{
		{ProductID: 4, Quantity: 2},
		{ProductID: 1, Quantity: 1},
	}}

	assert.Equal(t, []inventory.LineItem{
		{ProductID: 4, Quantity: 2},
		{ProductID: 1, Quantity: 1},
	}, o.Lines())
}

func TestOrderNumberGenerator(t *testing.T) {
	gen, err := NewOrderNumberGenerator("test-salt")
	require.NoError(t, err)

	a := gen.Generate(42)
	b := gen.Generate(42)

	format := regexp.MustCompile(`^ORD-[A-Z0-9]{6,}-[A-F0-9]{4}$`)
	assert.Regexp(t, format, a)
	assert.Regexp(t, format, b)
	assert.NotEqual(t, a, b)
}
