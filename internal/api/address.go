package api

import (
	"net/http"

	"github.com/xenking/storefront-checkout/internal/domain/address"
)

type addressListResponse struct {
	Addresses  []address.Address `json:"addresses"`
	SelectedID string            `json:"selectedId"`
}

func (h *Handler) listAddresses(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	resp := addressListResponse{Addresses: s.Addresses()}
	if sel := s.SelectedAddress(); sel != nil {
		resp.SelectedID = sel.ID
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) addAddress(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var in address.Input
	if !h.decode(w, r, &in) {
		return
	}
	added, err := s.AddAddress(r.Context(), in)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, added)
}

type refreshAddressesRequest struct {
	Addresses []address.Address `json:"addresses"`
}

func (h *Handler) refreshAddresses(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req refreshAddressesRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := s.RefreshAddresses(r.Context(), req.Addresses); err != nil {
		h.writeError(w, err)
		return
	}
	h.listAddresses(w, r)
}

func (h *Handler) setDefaultAddress(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := s.SetDefaultAddress(r.Context(), r.PathValue("addressID")); err != nil {
		h.writeError(w, err)
		return
	}
	h.listAddresses(w, r)
}

func (h *Handler) selectAddress(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req selectIDRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := s.SelectAddress(req.ID); err != nil {
		h.writeError(w, err)
		return
	}
	h.listAddresses(w, r)
}
