package handlers

import (
	"mime"
	"net/http"

	"tenderportal/internal/apperr"
	"tenderportal/internal/middleware"
	"tenderportal/internal/service"
)

// LoginHandler принимает JSON {email, password} или форму username/password.
func (h *Handler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var in service.LoginInput
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "application/x-www-form-urlencoded":
		r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
		if err := r.ParseForm(); err != nil {
			writeError(w, r, apperr.Validation("body", "invalid form"))
			return
		}
		in.Email = r.PostForm.Get("username")
		if in.Email == "" {
			in.Email = r.PostForm.Get("email")
		}
		in.Password = r.PostForm.Get("password")
	default:
		if err := decodeJSON(w, r, &in); err != nil {
			writeError(w, r, err)
			return
		}
	}

	res, err := h.Auth.Login(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	var in service.RegisterInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	user, err := h.Auth.Register(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

func (h *Handler) RegisterAdminHandler(w http.ResponseWriter, r *http.Request) {
	var in service.RegisterInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	user, err := h.Auth.RegisterAdmin(r.Context(), actor(r), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

func (h *Handler) MeHandler(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFrom(r.Context())
	if user == nil {
		writeError(w, r, apperr.Unauthenticated("authentication required"))
		return
	}
	writeJSON(w, http.StatusOK, user)
}
