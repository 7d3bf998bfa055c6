// Package selection coordinates the filtered working cart with the chosen
// shipping and payment methods, and derives the cost figures the rest of
// checkout builds on.
package selection

import (
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront-checkout/internal/domain/cart"
)

// Method is a small reference record for a shipping or payment method.
type Method struct {
	ID      string
	Name    string
	Price   string
	Enabled bool
}

// Coordinator holds the filtered cart and the current shipping/payment
// selection. Not safe for concurrent use; the owning session serializes
// access.
type Coordinator struct {
	workingCart *cart.Cart
	selected    cart.SelectionSet

	shippingMethods []Method
	paymentMethods  []Method
	shippingID      string
	paymentID       string
}

// NewCoordinator creates a Coordinator with an optional initial selection
// set. The set may be nil, which makes filtering a pass-through.
func NewCoordinator(selected cart.SelectionSet) *Coordinator {
	return &Coordinator{selected: selected}
}

// SetSelection replaces the merchandise selection set. The working cart is
// not re-filtered retroactively; callers re-apply SetCart with the upstream
// cart after changing the selection.
func (c *Coordinator) SetSelection(sel cart.SelectionSet) {
	c.selected = sel
}

// Selection returns the current merchandise selection set.
func (c *Coordinator) Selection() cart.SelectionSet {
	return c.selected
}

// SetCart replaces the working cart with the filtered result of the given
// upstream cart and the held selection set.
func (c *Coordinator) SetCart(upstream cart.Cart) {
	filtered := cart.FilterBySelection(upstream, c.selected)
	c.workingCart = &filtered
}

// ClearCart drops the working cart entirely.
func (c *Coordinator) ClearCart() {
	c.workingCart = nil
}

// Cart returns the current working cart, or nil when none is set.
func (c *Coordinator) Cart() *cart.Cart {
	return c.workingCart
}

// SetShippingMethods replaces the shipping method list and re-validates the
// current selection against it.
func (c *Coordinator) SetShippingMethods(methods []Method) {
	c.shippingMethods = methods
	c.shippingID = reconcile(c.shippingID, methods)
}

// SetPaymentMethods replaces the payment method list and re-validates the
// current selection against it.
func (c *Coordinator) SetPaymentMethods(methods []Method) {
	c.paymentMethods = methods
	c.paymentID = reconcile(c.paymentID, methods)
}

// SelectShipping sets the shipping selection. An id that is not in the
// current method list auto-corrects to the first available entry, guarding
// against stale selections when the list refreshes from upstream.
func (c *Coordinator) SelectShipping(id string) {
	c.shippingID = reconcile(id, c.shippingMethods)
}

// SelectPayment sets the payment selection with the same stale-id fallback
// as SelectShipping.
func (c *Coordinator) SelectPayment(id string) {
	c.paymentID = reconcile(id, c.paymentMethods)
}

// ShippingID returns the currently selected shipping method id, or "" when
// no methods are available.
func (c *Coordinator) ShippingID() string { return c.shippingID }

// PaymentID returns the currently selected payment method id, or "" when
// no methods are available.
func (c *Coordinator) PaymentID() string { return c.paymentID }

// reconcile returns id when it is present in methods, otherwise the first
// method's id, otherwise "".
func reconcile(id string, methods []Method) string {
	for _, m := range methods {
		if m.ID == id {
			return id
		}
	}
	if len(methods) > 0 {
		return methods[0].ID
	}
	return ""
}

// ItemsSubtotal returns the working cart's items subtotal, zero when the
// cart is absent or the upstream figure is malformed.
func (c *Coordinator) ItemsSubtotal() decimal.Decimal {
	return c.workingCart.SubtotalAmount()
}

// CouponsTotal returns the total discount of the coupons applied to the
// working cart, with the same zero coercion.
func (c *Coordinator) CouponsTotal() decimal.Decimal {
	return c.workingCart.DiscountAmount()
}

// ShippingFee returns the price of the selected shipping method, zero when
// nothing is selected or the price string is malformed.
func (c *Coordinator) ShippingFee() decimal.Decimal {
	for _, m := range c.shippingMethods {
		if m.ID == c.shippingID {
			return cart.ParseAmount(m.Price)
		}
	}
	return decimal.Zero
}

// Currency returns the working cart's currency code, or "" when no cart is
// set.
func (c *Coordinator) Currency() string {
	if c.workingCart == nil {
		return ""
	}
	return c.workingCart.Cost.Currency
}

// CartIsEmpty reports whether there is nothing to check out.
func (c *Coordinator) CartIsEmpty() bool {
	return c.workingCart.IsEmpty()
}
