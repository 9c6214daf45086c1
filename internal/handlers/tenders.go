package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"tenderportal/internal/apperr"
	"tenderportal/internal/policy"
	"tenderportal/internal/service"
	"tenderportal/models"
)

// GetTendersHandler: каталог тендеров с фильтрами status, category, include_drafts
func (h *Handler) GetTendersHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	in := service.ListTendersInput{
		Status:   models.TenderStatus(strings.TrimSpace(q.Get("status"))),
		Category: strings.TrimSpace(q.Get("category")),
		Page:     parsePaginationParams(r),
	}
	if v := q.Get("include_drafts"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, r, apperr.Validation("include_drafts", "must be a boolean"))
			return
		}
		in.IncludeDrafts = b
	}

	tenders, err := h.Tenders.List(r.Context(), actor(r), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tenders)
}

func (h *Handler) GetTenderHandler(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "tenderId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	tender, err := h.Tenders.Get(r.Context(), actor(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tender)
}

// CreateTenderHandler обрабатывает POST /api/tenders
func (h *Handler) CreateTenderHandler(w http.ResponseWriter, r *http.Request) {
	var in service.CreateTenderInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	tender, err := h.Tenders.Create(r.Context(), actor(r), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, tender)
}

// EditTenderHandler (PATCH) выполняет правку черновика и/или смену статуса
func (h *Handler) EditTenderHandler(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "tenderId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var in service.UpdateTenderInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	tender, err := h.Tenders.Update(r.Context(), actor(r), id, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tender)
}

func (h *Handler) PublishTenderHandler(w http.ResponseWriter, r *http.Request) {
	h.tenderTransition(w, r, h.Tenders.Publish)
}

func (h *Handler) CloseTenderHandler(w http.ResponseWriter, r *http.Request) {
	h.tenderTransition(w, r, h.Tenders.CloseForReview)
}

func (h *Handler) CancelTenderHandler(w http.ResponseWriter, r *http.Request) {
	h.tenderTransition(w, r, h.Tenders.Cancel)
}

type transitionFunc func(ctx context.Context, a policy.Actor, id int64) (*service.TenderView, error)

func (h *Handler) tenderTransition(w http.ResponseWriter, r *http.Request, fn transitionFunc) {
	id, err := parseID(r, "tenderId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	tender, err := fn(r.Context(), actor(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tender)
}

type awardRequest struct {
	WinningBidID int64 `json:"winning_bid_id"`
}

func (h *Handler) AwardTenderHandler(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "tenderId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req awardRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.WinningBidID <= 0 {
		writeError(w, r, apperr.Validation("winning_bid_id", "is required"))
		return
	}
	tender, err := h.Tenders.Award(r.Context(), actor(r), id, req.WinningBidID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tender)
}

func (h *Handler) DeleteTenderHandler(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "tenderId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.Tenders.Delete(r.Context(), actor(r), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) TenderHistoryHandler(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "tenderId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	events, err := h.Tenders.History(r.Context(), actor(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}
