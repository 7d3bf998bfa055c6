// Package stub provides an in-process implementation of the storefront
// service boundary, so the checkout server runs end-to-end without the real
// backend. Promo codes are screened against a bloom filter loaded from
// gzipped code packs; addresses and orders live in memory.
package stub

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront-checkout/internal/domain/address"
	"github.com/xenking/storefront-checkout/internal/domain/cart"
	"github.com/xenking/storefront-checkout/internal/domain/coupon"
	"github.com/xenking/storefront-checkout/internal/domain/payment"
	"github.com/xenking/storefront-checkout/internal/gateway"
)

func remoteErr(code int, message string) error {
	return &gateway.RemoteError{Code: code, Message: message}
}

// Rule describes the discount granted by a known promo code.
type Rule struct {
	Type        coupon.DiscountType
	Value       decimal.Decimal
	MinSubtotal decimal.Decimal
	Description string
	StartsAt    *time.Time
	ExpiresAt   *time.Time
}

// Gateway is the in-memory service. Safe for concurrent use.
type Gateway struct {
	mu  sync.Mutex
	now func() time.Time

	codes       *bloom.BloomFilter
	rules       map[string]Rule
	defaultRule *Rule

	baseCart cart.Cart
	applied  []string

	addresses map[string][]address.Address
	orders    map[string]*payment.Confirmation
}

// New creates an empty Gateway. Seed the cart and rules before use.
func New() *Gateway {
	return &Gateway{
		now:       time.Now,
		rules:     make(map[string]Rule),
		addresses: make(map[string][]address.Address),
		orders:    make(map[string]*payment.Confirmation),
	}
}

// SeedCart installs the cart returned (with coupon adjustments) by
// apply/remove operations.
func (g *Gateway) SeedCart(c cart.Cart) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.baseCart = c
	g.applied = nil
}

// SeedRule registers a promo code with an explicit discount rule.
func (g *Gateway) SeedRule(code string, r Rule) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.rules[strings.ToUpper(code)] = r
}

// SeedAddresses installs a customer's address book.
func (g *Gateway) SeedAddresses(customerID string, list []address.Address) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.addresses[customerID] = list
}

// UseCodePack installs the bloom-screened promo-code universe. Codes that
// pass the filter but have no explicit rule get defaultRule.
func (g *Gateway) UseCodePack(filter *bloom.BloomFilter, defaultRule Rule) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.codes = filter
	g.defaultRule = &defaultRule
}

// lookupRule resolves a code to its rule. Caller holds g.mu.
func (g *Gateway) lookupRule(code string) (Rule, bool) {
	upper := strings.ToUpper(code)
	if r, ok := g.rules[upper]; ok {
		return r, true
	}
	if g.codes != nil && g.defaultRule != nil && g.codes.TestString(upper) {
		return *g.defaultRule, true
	}
	return Rule{}, false
}

var _ coupon.CartService = (*Gateway)(nil)

// ApplyCoupon validates the code against the rule set and returns the cart
// with the coupon attached and the discount re-summed.
func (g *Gateway) ApplyCoupon(_ context.Context, code string) (*cart.Cart, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	rule, ok := g.lookupRule(code)
	if !ok {
		return nil, remoteErr(422, "invalid coupon code")
	}

	now := g.now()
	if rule.StartsAt != nil && now.Before(*rule.StartsAt) {
		return nil, remoteErr(422, "coupon is not active yet")
	}
	if rule.ExpiresAt != nil && now.After(*rule.ExpiresAt) {
		return nil, remoteErr(422, "coupon expired")
	}

	subtotal := cart.ParseAmount(g.baseCart.Cost.Subtotal)
	if rule.MinSubtotal.IsPositive() && subtotal.LessThan(rule.MinSubtotal) {
		return nil, remoteErr(422, "order does not meet the coupon minimum")
	}

	upper := strings.ToUpper(code)
	for _, c := range g.applied {
		if c == upper {
			return g.currentCart(), nil
		}
	}
	g.applied = append(g.applied, upper)
	return g.currentCart(), nil
}

// RemoveCoupon detaches the code and returns the re-summed cart.
func (g *Gateway) RemoveCoupon(_ context.Context, code string) (*cart.Cart, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	upper := strings.ToUpper(code)
	kept := g.applied[:0]
	for _, c := range g.applied {
		if c != upper {
			kept = append(kept, c)
		}
	}
	g.applied = kept
	return g.currentCart(), nil
}

// RedeemCoupon validates the code and returns its wallet form.
func (g *Gateway) RedeemCoupon(_ context.Context, customerID, code string) (*coupon.Coupon, error) {
	if customerID == "" {
		return nil, remoteErr(401, "authentication required")
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	rule, ok := g.lookupRule(code)
	if !ok {
		return nil, remoteErr(422, "invalid coupon code")
	}
	return &coupon.Coupon{
		Code:        strings.ToUpper(code),
		Type:        rule.Type,
		Value:       rule.Value,
		MinSubtotal: rule.MinSubtotal,
		StartsAt:    rule.StartsAt,
		ExpiresAt:   rule.ExpiresAt,
		Description: rule.Description,
	}, nil
}

// currentCart rebuilds the cart with applied coupons and a re-summed
// discount. Caller holds g.mu.
func (g *Gateway) currentCart() *cart.Cart {
	c := g.baseCart
	c.AppliedCoupons = nil

	subtotal := cart.ParseAmount(c.Cost.Subtotal)
	discount := decimal.Zero
	for _, code := range g.applied {
		rule, ok := g.lookupRule(code)
		if !ok {
			continue
		}
		amount := discountAmount(rule, subtotal)
		discount = discount.Add(amount)
		c.AppliedCoupons = append(c.AppliedCoupons, cart.AppliedCoupon{
			Code:   code,
			Amount: amount.String(),
		})
	}

	total := subtotal.Sub(discount)
	if total.IsNegative() {
		total = decimal.Zero
	}
	c.Cost.Discount = discount.String()
	c.Cost.Total = total.String()
	return &c
}

var hundred = decimal.NewFromInt(100)

func discountAmount(r Rule, subtotal decimal.Decimal) decimal.Decimal {
	switch r.Type {
	case coupon.DiscountPercentage:
		return subtotal.Mul(r.Value).Div(hundred).Round(0)
	case coupon.DiscountFixed:
		return decimal.Min(r.Value, subtotal)
	case coupon.DiscountFreeShipping:
		// Shipping is charged outside the cart summary; nothing to subtract.
		return decimal.Zero
	default:
		return decimal.Zero
	}
}

var _ address.Service = (*Gateway)(nil)

// AddAddress appends the address to the customer's book, honouring the
// exclusive default flag.
func (g *Gateway) AddAddress(_ context.Context, customerID string, in address.Input) (*address.MutationResult, error) {
	if customerID == "" {
		return nil, remoteErr(401, "authentication required")
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	added := address.Address{
		ID:       uuid.NewString(),
		Name:     in.Name,
		Phone:    in.Phone,
		Province: in.Province,
		City:     in.City,
		District: in.District,
		Detail:   in.Detail,
		Default:  in.Default,
	}

	list := g.addresses[customerID]
	if in.Default {
		for i := range list {
			list[i].Default = false
		}
	}
	list = append(list, added)
	g.addresses[customerID] = list

	out := make([]address.Address, len(list))
	copy(out, list)
	return &address.MutationResult{Addresses: out, Touched: &added}, nil
}

// SetDefaultAddress moves the default flag to the given address.
func (g *Gateway) SetDefaultAddress(_ context.Context, customerID, addressID string) (*address.MutationResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	list := g.addresses[customerID]
	target := -1
	for i := range list {
		if list[i].ID == addressID {
			target = i
			break
		}
	}
	// Resolve before mutating: an unknown id must leave the book unchanged.
	if target < 0 {
		return nil, remoteErr(404, "address not found")
	}

	for i := range list {
		list[i].Default = i == target
	}
	touched := &list[target]

	out := make([]address.Address, len(list))
	copy(out, list)
	return &address.MutationResult{Addresses: out, Touched: touched}, nil
}

var _ payment.OrderService = (*Gateway)(nil)

// ConfirmAndNotify creates an order, deduplicated by idempotency key: a
// retry with the same key returns the original confirmation unchanged.
func (g *Gateway) ConfirmAndNotify(_ context.Context, req payment.ConfirmRequest) (*payment.Confirmation, error) {
	if req.IdempotencyKey == "" {
		return nil, remoteErr(400, "idempotency key required")
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if conf, ok := g.orders[req.IdempotencyKey]; ok {
		return conf, nil
	}

	orderID := uuid.NewString()
	conf := &payment.Confirmation{
		OrderID:    orderID,
		ResultURL:  "/pay/result/" + orderID,
		PaidAmount: req.Payable,
		Currency:   req.Currency,
	}
	g.orders[req.IdempotencyKey] = conf
	return conf, nil
}

// OrderCount reports the number of distinct orders created.
func (g *Gateway) OrderCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.orders)
}
