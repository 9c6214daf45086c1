package handlers

import (
	"net/http"

	"tenderportal/internal/service"
)

// CreateBidHandler обрабатывает POST /api/bids
func (h *Handler) CreateBidHandler(w http.ResponseWriter, r *http.Request) {
	var in service.SubmitBidInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	bid, err := h.Bids.Submit(r.Context(), actor(r), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, bid)
}

// GetBidsForTenderHandler: владелец видит все предложения, поставщик, свои
func (h *Handler) GetBidsForTenderHandler(w http.ResponseWriter, r *http.Request) {
	tenderID, err := parseID(r, "tenderId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	bids, err := h.Bids.ListForTender(r.Context(), actor(r), tenderID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bids)
}

// GetUserBidsHandler возвращает предложения текущего пользователя
func (h *Handler) GetUserBidsHandler(w http.ResponseWriter, r *http.Request) {
	bids, err := h.Bids.ListMine(r.Context(), actor(r), parsePaginationParams(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bids)
}

// UpdateBidStatusHandler: решение по предложению (accepted | rejected)
func (h *Handler) UpdateBidStatusHandler(w http.ResponseWriter, r *http.Request) {
	bidID, err := parseID(r, "bidId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var in service.DecideBidInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	bid, err := h.Bids.Decide(r.Context(), actor(r), bidID, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bid)
}
