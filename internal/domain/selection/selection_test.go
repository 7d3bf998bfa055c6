package selection

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/xenking/storefront-checkout/internal/domain/cart"
)

func methods(ids ...string) []Method {
	ms := make([]Method, len(ids))
	for i, id := range ids {
		ms[i] = Method{ID: id, Name: id, Price: "0", Enabled: true}
	}
	return ms
}

func TestSelectShippingFallback(t *testing.T) {
	tests := []struct {
		name    string
		methods []Method
		pick    string
		want    string
	}{
		{"present id sticks", methods("standard", "express"), "express", "express"},
		{"unknown id falls back to first", methods("standard", "express"), "drone", "standard"},
		{"empty list clears selection", nil, "express", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewCoordinator(nil)
			c.SetShippingMethods(tt.methods)
			c.SelectShipping(tt.pick)
			assert.Equal(t, tt.want, c.ShippingID())
		})
	}
}

func TestMethodListShrinkReconcilesSelection(t *testing.T) {
	c := NewCoordinator(nil)
	c.SetShippingMethods(methods("standard", "express"))
	c.SelectShipping("express")

	// The list refreshes and no longer contains the previous selection.
	c.SetShippingMethods(methods("standard"))
	assert.Equal(t, "standard", c.ShippingID())

	c.SetShippingMethods(nil)
	assert.Equal(t, "", c.ShippingID())
}

func TestSelectPaymentFallback(t *testing.T) {
	c := NewCoordinator(nil)
	c.SetPaymentMethods(methods("qr", "card"))
	c.SelectPayment("cash")
	assert.Equal(t, "qr", c.PaymentID())

	c.SelectPayment("card")
	assert.Equal(t, "card", c.PaymentID())
}

func TestSetCartFiltersBySelection(t *testing.T) {
	c := NewCoordinator(cart.NewSelectionSet("m1"))
	c.SetCart(cart.Cart{
		Lines: []cart.Line{
			{MerchandiseID: "m1", Quantity: 1, Total: "1000"},
			{MerchandiseID: "m2", Quantity: 1, Total: "2000"},
		},
		Cost: cart.Summary{Subtotal: "3000", Currency: "CNY"},
	})

	assert.Len(t, c.Cart().Lines, 1)
	assert.Equal(t, "1000", c.ItemsSubtotal().String())
	assert.Equal(t, "CNY", c.Currency())
}

func TestDerivedTotalsCoerceGarbageToZero(t *testing.T) {
	c := NewCoordinator(nil)
	c.SetCart(cart.Cart{
		Lines: []cart.Line{{MerchandiseID: "m1", Quantity: 1, Total: "oops"}},
		Cost:  cart.Summary{Subtotal: "NaN", Discount: ""},
	})
	c.SetShippingMethods([]Method{{ID: "s", Price: "garbage"}})
	c.SelectShipping("s")

	assert.True(t, c.ItemsSubtotal().IsZero())
	assert.True(t, c.CouponsTotal().IsZero())
	assert.True(t, c.ShippingFee().IsZero())
}

func TestCartIsEmpty(t *testing.T) {
	c := NewCoordinator(nil)
	assert.True(t, c.CartIsEmpty(), "no cart set")

	c.SetCart(cart.Cart{Lines: []cart.Line{{MerchandiseID: "m1", Quantity: 1}}})
	assert.False(t, c.CartIsEmpty())

	c.ClearCart()
	assert.True(t, c.CartIsEmpty())
}
