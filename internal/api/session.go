package api

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/xenking/storefront-checkout/internal/checkout"
	"github.com/xenking/storefront-checkout/internal/domain/cart"
	"github.com/xenking/storefront-checkout/internal/domain/payment"
)

type createSessionRequest struct {
	CustomerID     string   `json:"customerId"`
	LoyaltyBalance int64    `json:"loyaltyBalance"`
	SelectedIDs    []string `json:"selectedMerchandiseIds"`
	Platform       string   `json:"platform"`
	// DeviceKey lets a client reattach to its device-scoped payment state
	// (the idempotency token). Optional; omitted means a private scope.
	DeviceKey string `json:"deviceKey"`
}

type createSessionResponse struct {
	SessionID string `json:"sessionId"`
}

func (h *Handler) createSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if !h.decode(w, r, &req) {
		return
	}

	s := checkout.NewSession(h.gw, h.store, h.lg, checkout.Params{
		CustomerID:     req.CustomerID,
		LoyaltyBalance: req.LoyaltyBalance,
		Selected:       cart.NewSelectionSet(req.SelectedIDs...),
		DeviceKey:      req.DeviceKey,
		Device: payment.DeviceContext{
			Platform:  req.Platform,
			UserAgent: r.UserAgent(),
			RemoteIP:  r.RemoteAddr,
		},
	})
	s.Load(r.Context())

	id := h.registry.Add(s)
	h.lg.Info("session created",
		zap.String("session_id", id),
		zap.String("customer_id", req.CustomerID),
	)
	h.writeJSON(w, http.StatusCreated, createSessionResponse{SessionID: id})
}

func (h *Handler) snapshot(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	h.writeJSON(w, http.StatusOK, snapshotOf(s))
}

func (h *Handler) deleteSession(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	s.ClosePayment()
	h.registry.Remove(r.PathValue("id"))
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) resetSession(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := s.Reset(r.Context()); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, snapshotOf(s))
}

func (h *Handler) setCart(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req cartPayload
	if !h.decode(w, r, &req) {
		return
	}
	c := req.toDomain()
	if err := c.Validate(); err != nil {
		h.writeJSON(w, http.StatusUnprocessableEntity, errorPayload{
			Code:    http.StatusUnprocessableEntity,
			Message: err.Error(),
		})
		return
	}
	if err := s.SetCart(c); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, snapshotOf(s))
}

type selectionRequest struct {
	MerchandiseIDs []string `json:"merchandiseIds"`
}

func (h *Handler) setSelection(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req selectionRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := s.SetSelectionSet(req.MerchandiseIDs...); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, snapshotOf(s))
}

type methodsRequest struct {
	Methods []methodPayload `json:"methods"`
}

func (h *Handler) setShippingMethods(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req methodsRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := s.SetShippingMethods(methodsToDomain(req.Methods)); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, snapshotOf(s))
}

func (h *Handler) setPaymentMethods(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req methodsRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := s.SetPaymentMethods(methodsToDomain(req.Methods)); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, snapshotOf(s))
}

type selectIDRequest struct {
	ID string `json:"id"`
}

func (h *Handler) selectShipping(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req selectIDRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := s.SelectShipping(req.ID); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, snapshotOf(s))
}

func (h *Handler) selectPayment(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req selectIDRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := s.SelectPayment(req.ID); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, snapshotOf(s))
}
