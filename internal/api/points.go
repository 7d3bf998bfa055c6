package api

import (
	"net/http"
)

type pointsRequest struct {
	Input string `json:"input"`
}

func (h *Handler) applyPoints(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req pointsRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := s.SetPointsInput(req.Input); err != nil {
		h.writeError(w, err)
		return
	}
	if err := s.ApplyPointsInput(); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, snapshotOf(s))
}

func (h *Handler) applyMaxPoints(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := s.ApplyMaxPoints(); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, snapshotOf(s))
}

func (h *Handler) resetPoints(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := s.ResetPoints(); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, snapshotOf(s))
}
