// Package api exposes the checkout session as a small REST surface: one
// route per session operation, JSON bodies, and {code, message} error
// payloads.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/xenking/storefront-checkout/internal/checkout"
	"github.com/xenking/storefront-checkout/internal/domain/address"
	"github.com/xenking/storefront-checkout/internal/domain/coupon"
	"github.com/xenking/storefront-checkout/internal/domain/payment"
	"github.com/xenking/storefront-checkout/internal/domain/points"
	"github.com/xenking/storefront-checkout/internal/gateway"
	"github.com/xenking/storefront-checkout/pkg/kv"
)

// Handler serves the checkout API. It creates sessions against the injected
// gateway and store and dispatches per-session operations.
type Handler struct {
	gw       checkout.Gateway
	store    kv.Store
	lg       *zap.Logger
	registry *Registry
}

// NewHandler constructs a Handler with the required dependencies.
func NewHandler(gw checkout.Gateway, store kv.Store, lg *zap.Logger) *Handler {
	return &Handler{
		gw:       gw,
		store:    store,
		lg:       lg.Named("api"),
		registry: NewRegistry(),
	}
}

// Register mounts every route on mux under /api.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/sessions", h.createSession)
	mux.HandleFunc("GET /api/sessions/{id}", h.snapshot)
	mux.HandleFunc("DELETE /api/sessions/{id}", h.deleteSession)
	mux.HandleFunc("POST /api/sessions/{id}/reset", h.resetSession)

	mux.HandleFunc("PUT /api/sessions/{id}/cart", h.setCart)
	mux.HandleFunc("PUT /api/sessions/{id}/selection", h.setSelection)
	mux.HandleFunc("PUT /api/sessions/{id}/shipping-methods", h.setShippingMethods)
	mux.HandleFunc("PUT /api/sessions/{id}/payment-methods", h.setPaymentMethods)
	mux.HandleFunc("POST /api/sessions/{id}/shipping", h.selectShipping)
	mux.HandleFunc("POST /api/sessions/{id}/payment", h.selectPayment)

	mux.HandleFunc("PUT /api/sessions/{id}/coupons", h.setWallet)
	mux.HandleFunc("POST /api/sessions/{id}/coupons", h.applyCoupon)
	mux.HandleFunc("DELETE /api/sessions/{id}/coupons/{code}", h.removeCoupon)
	mux.HandleFunc("POST /api/sessions/{id}/coupons/redeem", h.redeemCoupon)

	mux.HandleFunc("PUT /api/sessions/{id}/points", h.applyPoints)
	mux.HandleFunc("POST /api/sessions/{id}/points/max", h.applyMaxPoints)
	mux.HandleFunc("DELETE /api/sessions/{id}/points", h.resetPoints)

	mux.HandleFunc("GET /api/sessions/{id}/addresses", h.listAddresses)
	mux.HandleFunc("POST /api/sessions/{id}/addresses", h.addAddress)
	mux.HandleFunc("PUT /api/sessions/{id}/addresses/refresh", h.refreshAddresses)
	mux.HandleFunc("PUT /api/sessions/{id}/addresses/{addressID}/default", h.setDefaultAddress)
	mux.HandleFunc("POST /api/sessions/{id}/addresses/select", h.selectAddress)

	mux.HandleFunc("POST /api/sessions/{id}/pay/open", h.openPayment)
	mux.HandleFunc("POST /api/sessions/{id}/pay/help", h.paymentHelp)
	mux.HandleFunc("POST /api/sessions/{id}/pay/back", h.paymentBack)
	mux.HandleFunc("POST /api/sessions/{id}/pay/close", h.closePayment)
	mux.HandleFunc("POST /api/sessions/{id}/pay/confirm", h.confirmPayment)
}

// session resolves the {id} path value to a live session, writing a 404 on
// miss. The bool reports whether the caller may proceed.
func (h *Handler) session(w http.ResponseWriter, r *http.Request) (*checkout.Session, bool) {
	s, err := h.registry.Get(r.PathValue("id"))
	if err != nil {
		h.writeError(w, err)
		return nil, false
	}
	return s, true
}

// decode reads the JSON request body into v, writing a 400 on failure.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	if err := dec.Decode(v); err != nil {
		h.writeJSON(w, http.StatusBadRequest, errorPayload{
			Code:    http.StatusBadRequest,
			Message: "malformed request body",
		})
		return false
	}
	return true
}

type errorPayload struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.lg.Warn("write response", zap.Error(err))
	}
}

// writeError maps domain errors onto HTTP statuses. Remote failure messages
// and guard errors are surfaced verbatim; anything unrecognized is a 500
// with a generic message.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	message := "internal error"

	var re *gateway.RemoteError
	var vErrs validator.ValidationErrors
	switch {
	case errors.As(err, &re):
		status = http.StatusBadGateway
		if re.Code >= 400 && re.Code < 600 {
			status = re.Code
		}
		message = re.Error()
	case errors.As(err, &vErrs):
		status = http.StatusUnprocessableEntity
		message = err.Error()
	case errors.Is(err, ErrSessionNotFound):
		status = http.StatusNotFound
		message = err.Error()
	case errors.Is(err, checkout.ErrEditingLocked),
		errors.Is(err, payment.ErrNotReady),
		errors.Is(err, payment.ErrNotAwaitingScan),
		errors.Is(err, coupon.ErrCodeInFlight):
		status = http.StatusConflict
		message = err.Error()
	case errors.Is(err, coupon.ErrSignInRequired),
		errors.Is(err, address.ErrSignInRequired):
		status = http.StatusUnauthorized
		message = err.Error()
	case errors.Is(err, points.ErrInvalidPoints),
		errors.Is(err, points.ErrExceedsMax):
		status = http.StatusUnprocessableEntity
		message = err.Error()
	default:
		h.lg.Error("unhandled error", zap.Error(err))
	}

	h.writeJSON(w, status, errorPayload{Code: status, Message: message})
}
