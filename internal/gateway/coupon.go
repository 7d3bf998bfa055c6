package gateway

import (
	"context"
	"net/http"
	"net/url"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"go.uber.org/zap"

	"github.com/xenking/storefront-checkout/internal/domain/cart"
	"github.com/xenking/storefront-checkout/internal/domain/coupon"
)

var _ coupon.CartService = (*Client)(nil)

// ApplyCoupon submits the code to the cart-coupon service and returns the
// updated cart.
func (c *Client) ApplyCoupon(ctx context.Context, code string) (*cart.Cart, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.url("/cart/coupons"),
		jsonBody(func(e *jx.Encoder) {
			e.ObjStart()
			e.FieldStart("code")
			e.Str(code)
			e.ObjEnd()
		}),
	)
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}

	var updated *cart.Cart
	if err := c.do(req, func(d *jx.Decoder) error {
		updated, err = decodeCart(d)
		return err
	}); err != nil {
		return nil, err
	}

	c.lg.Debug("coupon applied", zap.String("code", code))
	return updated, nil
}

// RemoveCoupon detaches the code from the cart and returns the updated cart.
func (c *Client) RemoveCoupon(ctx context.Context, code string) (*cart.Cart, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete,
		c.url("/cart/coupons/%s", url.PathEscape(code)), nil)
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}

	var updated *cart.Cart
	if err := c.do(req, func(d *jx.Decoder) error {
		updated, err = decodeCart(d)
		return err
	}); err != nil {
		return nil, err
	}

	c.lg.Debug("coupon removed", zap.String("code", code))
	return updated, nil
}

// RedeemCoupon adds the code to the customer's personal wallet.
func (c *Client) RedeemCoupon(ctx context.Context, customerID, code string) (*coupon.Coupon, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.url("/customers/%s/coupons", url.PathEscape(customerID)),
		jsonBody(func(e *jx.Encoder) {
			e.ObjStart()
			e.FieldStart("code")
			e.Str(code)
			e.ObjEnd()
		}),
	)
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}

	var redeemed *coupon.Coupon
	if err := c.do(req, func(d *jx.Decoder) error {
		redeemed, err = decodeCoupon(d)
		return err
	}); err != nil {
		return nil, err
	}
	return redeemed, nil
}
