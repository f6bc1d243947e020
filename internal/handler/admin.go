package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/todo-service/internal/service"
)

// AdminHandler serves the cross-owner admin endpoints. The role check is in
// service.AdminService; a regular user gets 401 "admin role required".
type AdminHandler struct {
	admin  *service.AdminService
	logger *slog.Logger
}

func NewAdminHandler(admin *service.AdminService, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{admin: admin, logger: logger}
}

// HandleListTodos lists every todo.
//
// HTTP: GET /admin/todo
func (h *AdminHandler) HandleListTodos(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	opts, err := listOptions(r)
	if err != nil {
		writeError(w, err)
		return
	}

	todos, err := h.admin.ListTodos(r.Context(), id, opts)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, todos)
}

// HandleListUsers lists every account.
//
// HTTP: GET /admin/user
func (h *AdminHandler) HandleListUsers(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	opts, err := listOptions(r)
	if err != nil {
		writeError(w, err)
		return
	}

	users, err := h.admin.ListUsers(r.Context(), id, opts)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

// HandleDeleteTodo removes any todo.
//
// HTTP: DELETE /admin/todo/{id}
func (h *AdminHandler) HandleDeleteTodo(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	todoID, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.admin.DeleteTodo(r.Context(), id, todoID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
