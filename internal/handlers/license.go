package handlers

import (
	"net/http"
)

type configureLicenseRequest struct {
	LicenseKey string `json:"license_key"`
}

func (h *Handler) LicenseStatusHandler(w http.ResponseWriter, r *http.Request) {
	st, err := h.License.Status(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// ConfigureLicenseHandler сохраняет ключ, только если сервер лицензий его принял
func (h *Handler) ConfigureLicenseHandler(w http.ResponseWriter, r *http.Request) {
	var req configureLicenseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	st, err := h.License.Configure(r.Context(), req.LicenseKey)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}
