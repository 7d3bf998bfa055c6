package api

import (
	"net/http"
)

func (h *Handler) openPayment(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := s.OpenPayment(); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, snapshotOf(s))
}

func (h *Handler) paymentHelp(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	s.RequestPaymentHelp()
	h.writeJSON(w, http.StatusOK, snapshotOf(s))
}

func (h *Handler) paymentBack(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	s.BackToScan()
	h.writeJSON(w, http.StatusOK, snapshotOf(s))
}

func (h *Handler) closePayment(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	s.ClosePayment()
	h.writeJSON(w, http.StatusOK, snapshotOf(s))
}

func (h *Handler) confirmPayment(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	conf, err := s.ConfirmPayment(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, confirmationToPayload(conf))
}
