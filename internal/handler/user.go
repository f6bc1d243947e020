package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/todo-service/internal/service"
)

// UserHandler serves the caller's own account.
type UserHandler struct {
	users  *service.UserService
	logger *slog.Logger
}

func NewUserHandler(users *service.UserService, logger *slog.Logger) *UserHandler {
	return &UserHandler{users: users, logger: logger}
}

// HandleProfile returns the authenticated user.
//
// HTTP: GET /user
func (h *UserHandler) HandleProfile(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	user, err := h.users.Profile(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// HandleUpdate changes the caller's profile or password.
//
// HTTP: PUT /user/update
// REQUEST BODY: {"password": "current", "new_password": "...", "email": "..."}
// RESPONSE: 204 No Content
func (h *UserHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	var in service.UpdateProfileInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, err)
		return
	}

	if err := h.users.UpdateProfile(r.Context(), id, in); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
