package cart

import (
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Sentinel errors for cart validation.
var (
	ErrInvalidQuantity   = errors.New("line quantity must be greater than 0")
	ErrLineTotalMismatch = errors.New("line total does not match unit price and quantity")
)

// Cart is the working cart for one checkout pass. It is replaced wholesale
// whenever the upstream cart changes; selection filtering and coupon
// apply/remove produce new values rather than mutating in place.
type Cart struct {
	ID             string
	Lines          []Line
	Cost           Summary
	AppliedCoupons []AppliedCoupon
}

// Line is a single cart line. Amounts arrive from upstream as numeric
// strings and are parsed on demand via ParseAmount.
type Line struct {
	MerchandiseID string
	Quantity      int
	UnitPrice     string
	Total         string
}

// Summary is the cart-level cost summary in minor currency units.
type Summary struct {
	Subtotal string
	Discount string
	Total    string
	Currency string
}

// AppliedCoupon records a coupon currently applied to the cart, as reported
// by the remote cart service.
type AppliedCoupon struct {
	Code   string
	Amount string
}

// ParseAmount parses an upstream numeric string into a decimal amount.
// Missing or malformed values coerce to zero so that a bad upstream field
// can never poison downstream totals.
func ParseAmount(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// IsEmpty reports whether the cart has no lines to check out.
func (c *Cart) IsEmpty() bool {
	return c == nil || len(c.Lines) == 0
}

// SubtotalAmount returns the parsed items subtotal.
func (c *Cart) SubtotalAmount() decimal.Decimal {
	if c == nil {
		return decimal.Zero
	}
	return ParseAmount(c.Cost.Subtotal)
}

// DiscountAmount returns the parsed total of all applied coupon discounts.
func (c *Cart) DiscountAmount() decimal.Decimal {
	if c == nil {
		return decimal.Zero
	}
	return ParseAmount(c.Cost.Discount)
}

// Validate checks the per-line invariants: positive quantity and a line
// total consistent with unit price times quantity. Totals are verified,
// not recomputed; the remote cart service owns pricing.
func (c *Cart) Validate() error {
	for _, l := range c.Lines {
		if l.Quantity <= 0 {
			return errors.Wrapf(ErrInvalidQuantity, "merchandise %s", l.MerchandiseID)
		}
		unit := ParseAmount(l.UnitPrice)
		if unit.IsZero() {
			continue
		}
		want := unit.Mul(decimal.NewFromInt(int64(l.Quantity)))
		if !want.Equal(ParseAmount(l.Total)) {
			return errors.Wrapf(ErrLineTotalMismatch, "merchandise %s", l.MerchandiseID)
		}
	}
	return nil
}
