package coupon

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/xenking/storefront-checkout/internal/domain/cart"
)

// Coordinator manages the redeemable-coupon wallet and issues cart coupon
// operations. Apply and Remove are single-flight per code: a duplicate
// request for a code already in flight returns ErrCodeInFlight, while
// operations on different codes proceed independently. There is no global
// lock across codes.
type Coordinator struct {
	svc        CartService
	customerID string
	now        func() time.Time

	mu        sync.Mutex
	available []Coupon
	inFlight  map[string]struct{}
}

// NewCoordinator creates a Coordinator. customerID may be empty for guest
// sessions; Redeem then fails with ErrSignInRequired.
func NewCoordinator(svc CartService, customerID string) *Coordinator {
	return &Coordinator{
		svc:        svc,
		customerID: customerID,
		now:        time.Now,
		inFlight:   make(map[string]struct{}),
	}
}

// SetAvailable replaces the wallet with the given list, dropping coupons
// outside their validity window. Inactive coupons are never shown as usable
// even when still present upstream.
func (c *Coordinator) SetAvailable(list []Coupon) {
	now := c.now()
	active := make([]Coupon, 0, len(list))
	for _, cp := range list {
		if cp.ActiveAt(now) {
			active = append(active, cp)
		}
	}

	c.mu.Lock()
	c.available = active
	c.mu.Unlock()
}

// Available returns the wallet of currently usable coupons.
func (c *Coordinator) Available() []Coupon {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Coupon, len(c.available))
	copy(out, c.available)
	return out
}

// IsProcessing reports whether an apply or remove for code is in flight.
func (c *Coordinator) IsProcessing(code string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, ok := c.inFlight[strings.ToLower(code)]
	return ok
}

// Apply sends the code to the cart service and returns the updated cart.
// On failure the remote message is surfaced to the caller and no local
// state changes.
func (c *Coordinator) Apply(ctx context.Context, code string) (*cart.Cart, error) {
	return c.cartOp(ctx, code, c.svc.ApplyCoupon)
}

// Remove is symmetric to Apply.
func (c *Coordinator) Remove(ctx context.Context, code string) (*cart.Cart, error) {
	return c.cartOp(ctx, code, c.svc.RemoveCoupon)
}

// cartOp runs one apply/remove at a time per lowercase code. The in-flight
// set is the single-flight mechanism: a duplicate submission is rejected
// with ErrCodeInFlight instead of being queued, and IsProcessing reports
// the same membership.
func (c *Coordinator) cartOp(
	ctx context.Context,
	code string,
	call func(context.Context, string) (*cart.Cart, error),
) (*cart.Cart, error) {
	key := strings.ToLower(code)
	if !c.begin(key) {
		return nil, ErrCodeInFlight
	}
	defer c.end(key)

	return call(ctx, code)
}

func (c *Coordinator) begin(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.inFlight[key]; ok {
		return false
	}
	c.inFlight[key] = struct{}{}
	return true
}

func (c *Coordinator) end(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.inFlight, key)
}

// Redeem adds a coupon to the customer's personal wallet. The redeemed
// coupon is prepended to the available list only when it is not already
// present (compared by lowercase code) and passes the activity check, so
// duplicates and already-expired coupons never appear.
func (c *Coordinator) Redeem(ctx context.Context, code string) (*Coupon, error) {
	if c.customerID == "" {
		return nil, ErrSignInRequired
	}

	redeemed, err := c.svc.RedeemCoupon(ctx, c.customerID, code)
	if err != nil {
		return nil, err
	}

	if redeemed.ActiveAt(c.now()) {
		c.mu.Lock()
		if !containsCode(c.available, redeemed.Code) {
			c.available = append([]Coupon{*redeemed}, c.available...)
		}
		c.mu.Unlock()
	}
	return redeemed, nil
}

func containsCode(list []Coupon, code string) bool {
	lower := strings.ToLower(code)
	for _, cp := range list {
		if strings.ToLower(cp.Code) == lower {
			return true
		}
	}
	return false
}

// AppliedCodes derives the set of coupon codes currently applied to the
// cart, normalized to lowercase. Membership is derived from the cart, never
// stored independently.
func AppliedCodes(c *cart.Cart) []string {
	if c == nil {
		return nil
	}
	codes := make([]string, 0, len(c.AppliedCoupons))
	for _, ac := range c.AppliedCoupons {
		codes = append(codes, strings.ToLower(ac.Code))
	}
	return codes
}
