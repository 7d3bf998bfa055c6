// Package coupon holds the redeemable-coupon wallet and the cart coupon
// apply/remove/redeem operations.
package coupon

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront-checkout/internal/domain/cart"
)

// DiscountType enumerates the supported coupon discount strategies.
type DiscountType string

const (
	// DiscountPercentage applies a percentage-based discount to the subtotal.
	DiscountPercentage DiscountType = "percentage"
	// DiscountFixed applies a fixed monetary discount capped at the subtotal.
	DiscountFixed DiscountType = "fixed"
	// DiscountFreeShipping waives the shipping fee.
	DiscountFreeShipping DiscountType = "free_shipping"
)

// Sentinel errors for coupon operations.
var (
	// ErrSignInRequired is returned when redeeming without an authenticated
	// customer id.
	ErrSignInRequired = errors.New("please sign in to redeem coupons")
	// ErrCodeInFlight is returned when an apply or remove for the same code
	// is already being processed.
	ErrCodeInFlight = errors.New("coupon operation already in progress for this code")
)

// Coupon is a discount definition as presented in the customer's wallet.
type Coupon struct {
	Code        string
	Type        DiscountType
	Value       decimal.Decimal
	MinSubtotal decimal.Decimal
	StartsAt    *time.Time
	ExpiresAt   *time.Time
	Description string
}

// ActiveAt reports whether the coupon's validity window includes t: the
// start is absent or not after t, and the expiry is absent or not before t.
func (c Coupon) ActiveAt(t time.Time) bool {
	if c.StartsAt != nil && t.Before(*c.StartsAt) {
		return false
	}
	if c.ExpiresAt != nil && t.After(*c.ExpiresAt) {
		return false
	}
	return true
}

// CartService is the remote cart-coupon service boundary. Apply and Remove
// return the full updated cart; Redeem adds a coupon to the customer's
// personal wallet without touching the cart.
type CartService interface {
	ApplyCoupon(ctx context.Context, code string) (*cart.Cart, error)
	RemoveCoupon(ctx context.Context, code string) (*cart.Cart, error)
	RedeemCoupon(ctx context.Context, customerID, code string) (*Coupon, error)
}
