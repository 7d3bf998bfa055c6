package api

import (
	"net/http"
	"time"

	"github.com/xenking/storefront-checkout/internal/domain/cart"
	"github.com/xenking/storefront-checkout/internal/domain/coupon"
)

type couponRequest struct {
	Code string `json:"code"`
}

type walletRequest struct {
	Coupons []couponPayload `json:"coupons"`
}

// setWallet replaces the session's available-coupon list. Inactive coupons
// are dropped by the session.
func (h *Handler) setWallet(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req walletRequest
	if !h.decode(w, r, &req) {
		return
	}

	list := make([]coupon.Coupon, len(req.Coupons))
	for i, p := range req.Coupons {
		list[i] = coupon.Coupon{
			Code:        p.Code,
			Type:        coupon.DiscountType(p.Type),
			Value:       cart.ParseAmount(p.Value),
			MinSubtotal: cart.ParseAmount(p.MinSubtotal),
			Description: p.Description,
		}
		if t, err := time.Parse(timeLayout, p.StartsAt); err == nil {
			list[i].StartsAt = &t
		}
		if t, err := time.Parse(timeLayout, p.ExpiresAt); err == nil {
			list[i].ExpiresAt = &t
		}
	}
	s.SetAvailableCoupons(list)
	h.writeJSON(w, http.StatusOK, snapshotOf(s))
}

func (h *Handler) applyCoupon(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req couponRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := s.ApplyCoupon(r.Context(), req.Code); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, snapshotOf(s))
}

func (h *Handler) removeCoupon(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := s.RemoveCoupon(r.Context(), r.PathValue("code")); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, snapshotOf(s))
}

func (h *Handler) redeemCoupon(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req couponRequest
	if !h.decode(w, r, &req) {
		return
	}
	redeemed, err := s.RedeemCoupon(r.Context(), req.Code)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, couponToPayload(*redeemed))
}
