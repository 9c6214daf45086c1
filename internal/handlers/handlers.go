package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"tenderportal/internal/apperr"
	"tenderportal/internal/license"
	"tenderportal/internal/logger"
	"tenderportal/internal/middleware"
	"tenderportal/internal/policy"
	"tenderportal/internal/service"

	"github.com/go-chi/chi/v5"
)

// maxBodySize: ограничение размера тела, чтобы избежать DoS
const maxBodySize = 1 << 20

// LicenseManager: операции страницы лицензии.
type LicenseManager interface {
	Status(ctx context.Context) (license.Status, error)
	Configure(ctx context.Context, key string) (license.Status, error)
}

// Handler оборачивает сервисы портала
type Handler struct {
	Tenders *service.TenderService
	Bids    *service.BidService
	Users   *service.UserService
	Auth    *service.AuthService
	License LicenseManager
}

// NewHandler создает новый Handler
func NewHandler(tenders *service.TenderService, bids *service.BidService, users *service.UserService,
	auth *service.AuthService, lic LicenseManager) *Handler {
	return &Handler{Tenders: tenders, Bids: bids, Users: users, Auth: auth, License: lic}
}

// PingHandler отвечает "ok" для проверки сервера
func (h *Handler) PingHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError: единственное место, где ошибка превращается в HTTP-ответ.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	if apperr.KindOf(err) == apperr.KindInternal {
		logger.FromContext(r.Context()).WithError(err).Error("request failed")
	}
	apperr.WriteJSON(w, err)
}

// decodeJSON читает тело запроса в v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	defer r.Body.Close()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		return apperr.Validation("body", "failed to read request body")
	}
	if err := json.Unmarshal(body, v); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			return apperr.Validation(typeErr.Field, "has invalid type")
		}
		return apperr.Validation("body", "invalid JSON format")
	}
	return nil
}

func parseID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.Validation(name, "must be a positive integer")
	}
	return id, nil
}

// actor возвращает текущего пользователя; маршруты без него закрыты RequireRoute.
func actor(r *http.Request) policy.Actor {
	a, _ := middleware.ActorFrom(r.Context())
	return a
}

// parsePaginationParams парсит limit и offset (или skip) из query, с дефолтами и ограничениями
func parsePaginationParams(r *http.Request) service.Page {
	var params service.Page
	q := r.URL.Query()

	if limitStr := q.Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			params.Limit = l
		}
	}
	offsetStr := q.Get("offset")
	if offsetStr == "" {
		offsetStr = q.Get("skip")
	}
	if offsetStr != "" {
		if o, err := strconv.Atoi(offsetStr); err == nil && o >= 0 {
			params.Offset = o
		}
	}
	return params.Normalize()
}
