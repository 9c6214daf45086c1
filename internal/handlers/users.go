package handlers

import (
	"net/http"

	"tenderportal/internal/service"
)

func (h *Handler) GetUsersHandler(w http.ResponseWriter, r *http.Request) {
	users, err := h.Users.List(r.Context(), actor(r), parsePaginationParams(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

// EditUserHandler меняет full_name, company и is_active; роль не меняется
func (h *Handler) EditUserHandler(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "userId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var in service.UpdateUserInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	user, err := h.Users.Update(r.Context(), actor(r), id, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}
