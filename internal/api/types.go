package api

import (
	"github.com/xenking/storefront-checkout/internal/checkout"
	"github.com/xenking/storefront-checkout/internal/domain/cart"
	"github.com/xenking/storefront-checkout/internal/domain/coupon"
	"github.com/xenking/storefront-checkout/internal/domain/payment"
	"github.com/xenking/storefront-checkout/internal/domain/selection"
)

// Wire types. Domain structs carry no json tags; the API layer owns the
// wire shape and converts explicitly.

type cartPayload struct {
	ID             string                 `json:"id"`
	Lines          []linePayload          `json:"lines"`
	Cost           costPayload            `json:"cost"`
	AppliedCoupons []appliedCouponPayload `json:"appliedCoupons,omitempty"`
}

type linePayload struct {
	MerchandiseID string `json:"merchandiseId"`
	Quantity      int    `json:"quantity"`
	UnitPrice     string `json:"unitPrice"`
	Total         string `json:"total"`
}

type costPayload struct {
	Subtotal string `json:"subtotal"`
	Discount string `json:"discount"`
	Total    string `json:"total"`
	Currency string `json:"currency"`
}

type appliedCouponPayload struct {
	Code   string `json:"code"`
	Amount string `json:"amount"`
}

func (p cartPayload) toDomain() cart.Cart {
	lines := make([]cart.Line, len(p.Lines))
	for i, l := range p.Lines {
		lines[i] = cart.Line{
			MerchandiseID: l.MerchandiseID,
			Quantity:      l.Quantity,
			UnitPrice:     l.UnitPrice,
			Total:         l.Total,
		}
	}
	coupons := make([]cart.AppliedCoupon, len(p.AppliedCoupons))
	for i, c := range p.AppliedCoupons {
		coupons[i] = cart.AppliedCoupon{Code: c.Code, Amount: c.Amount}
	}
	return cart.Cart{
		ID:    p.ID,
		Lines: lines,
		Cost: cart.Summary{
			Subtotal: p.Cost.Subtotal,
			Discount: p.Cost.Discount,
			Total:    p.Cost.Total,
			Currency: p.Cost.Currency,
		},
		AppliedCoupons: coupons,
	}
}

func cartToPayload(c *cart.Cart) *cartPayload {
	if c == nil {
		return nil
	}
	p := &cartPayload{
		ID: c.ID,
		Cost: costPayload{
			Subtotal: c.Cost.Subtotal,
			Discount: c.Cost.Discount,
			Total:    c.Cost.Total,
			Currency: c.Cost.Currency,
		},
	}
	for _, l := range c.Lines {
		p.Lines = append(p.Lines, linePayload{
			MerchandiseID: l.MerchandiseID,
			Quantity:      l.Quantity,
			UnitPrice:     l.UnitPrice,
			Total:         l.Total,
		})
	}
	for _, ac := range c.AppliedCoupons {
		p.AppliedCoupons = append(p.AppliedCoupons, appliedCouponPayload{
			Code:   ac.Code,
			Amount: ac.Amount,
		})
	}
	return p
}

type methodPayload struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Price   string `json:"price"`
	Enabled bool   `json:"enabled"`
}

func methodsToDomain(ms []methodPayload) []selection.Method {
	out := make([]selection.Method, len(ms))
	for i, m := range ms {
		out[i] = selection.Method{ID: m.ID, Name: m.Name, Price: m.Price, Enabled: m.Enabled}
	}
	return out
}

type couponPayload struct {
	Code        string `json:"code"`
	Type        string `json:"type"`
	Value       string `json:"value"`
	MinSubtotal string `json:"minSubtotal,omitempty"`
	StartsAt    string `json:"startsAt,omitempty"`
	ExpiresAt   string `json:"expiresAt,omitempty"`
	Description string `json:"description,omitempty"`
}

func couponToPayload(c coupon.Coupon) couponPayload {
	p := couponPayload{
		Code:        c.Code,
		Type:        string(c.Type),
		Value:       c.Value.String(),
		Description: c.Description,
	}
	if !c.MinSubtotal.IsZero() {
		p.MinSubtotal = c.MinSubtotal.String()
	}
	if c.StartsAt != nil {
		p.StartsAt = c.StartsAt.UTC().Format(timeLayout)
	}
	if c.ExpiresAt != nil {
		p.ExpiresAt = c.ExpiresAt.UTC().Format(timeLayout)
	}
	return p
}

const timeLayout = "2006-01-02T15:04:05Z07:00"

type totalsPayload struct {
	ItemsSubtotal       string `json:"itemsSubtotal"`
	CouponsTotal        string `json:"couponsTotal"`
	ShippingFee         string `json:"shippingFee"`
	PayableBeforePoints string `json:"payableBeforePoints"`
	PointsApplied       int64  `json:"pointsApplied"`
	Payable             string `json:"payable"`
	Currency            string `json:"currency"`
}

func totalsToPayload(t checkout.Totals) totalsPayload {
	return totalsPayload{
		ItemsSubtotal:       t.ItemsSubtotal.String(),
		CouponsTotal:        t.CouponsTotal.String(),
		ShippingFee:         t.ShippingFee.String(),
		PayableBeforePoints: t.PayableBeforePoints.String(),
		PointsApplied:       t.PointsApplied,
		Payable:             t.Payable.String(),
		Currency:            t.Currency,
	}
}

type confirmationPayload struct {
	OrderID    string `json:"orderId"`
	ResultURL  string `json:"resultUrl"`
	PaidAmount string `json:"paidAmount"`
	Currency   string `json:"currency"`
}

func confirmationToPayload(c *payment.Confirmation) *confirmationPayload {
	if c == nil {
		return nil
	}
	return &confirmationPayload{
		OrderID:    c.OrderID,
		ResultURL:  c.ResultURL,
		PaidAmount: c.PaidAmount.String(),
		Currency:   c.Currency,
	}
}

type snapshotPayload struct {
	Cart                *cartPayload         `json:"cart"`
	Totals              totalsPayload        `json:"totals"`
	ShippingMethodID    string               `json:"shippingMethodId"`
	PaymentMethodID     string               `json:"paymentMethodId"`
	AppliedCouponCodes  []string             `json:"appliedCouponCodes"`
	AvailableCoupons    []couponPayload      `json:"availableCoupons"`
	MaxRedeemablePoints int64                `json:"maxRedeemablePoints"`
	PaymentStep         string               `json:"paymentStep"`
	CanPay              bool                 `json:"canPay"`
	ShowEmptyCart       bool                 `json:"showEmptyCart"`
	Confirmation        *confirmationPayload `json:"confirmation,omitempty"`
}

func snapshotOf(s *checkout.Session) snapshotPayload {
	coupons := s.AvailableCoupons()
	cps := make([]couponPayload, len(coupons))
	for i, c := range coupons {
		cps[i] = couponToPayload(c)
	}
	return snapshotPayload{
		Cart:                cartToPayload(s.Cart()),
		Totals:              totalsToPayload(s.Totals()),
		ShippingMethodID:    s.ShippingID(),
		PaymentMethodID:     s.PaymentID(),
		AppliedCouponCodes:  s.AppliedCouponCodes(),
		AvailableCoupons:    cps,
		MaxRedeemablePoints: s.MaxRedeemablePoints(),
		PaymentStep:         string(s.PaymentStep()),
		CanPay:              s.CanPay(),
		ShowEmptyCart:       s.ShouldShowEmptyCartState(),
		Confirmation:        confirmationToPayload(s.PaymentConfirmation()),
	}
}
