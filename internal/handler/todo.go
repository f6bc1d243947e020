package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/todo-service/internal/service"
)

// TodoHandler handles HTTP requests for the caller's todos.
//
// HANDLER RESPONSIBILITIES:
// 1. Parse the request (path id, query, JSON body)
// 2. Call the service with the caller's identity
// 3. Map the result (or error) to an HTTP response
//
// Ownership rules live in the service. A todo that belongs to someone else
// comes back as a 404 from here exactly like a missing one.
type TodoHandler struct {
	todos  *service.TodoService
	logger *slog.Logger
}

func NewTodoHandler(todos *service.TodoService, logger *slog.Logger) *TodoHandler {
	return &TodoHandler{todos: todos, logger: logger}
}

// HandleList returns the caller's todos (every todo for an admin).
//
// HTTP: GET /todo?limit=50&offset=0
// RESPONSE: [{"id": 1, "title": "...", ...}, ...]
func (h *TodoHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	opts, err := listOptions(r)
	if err != nil {
		writeError(w, err)
		return
	}

	todos, err := h.todos.List(r.Context(), id, opts)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, todos)
}

// HandleGet returns one todo.
//
// HTTP: GET /todo/{id}
func (h *TodoHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	todoID, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	todo, err := h.todos.Get(r.Context(), id, todoID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, todo)
}

// HandleCreate creates a todo owned by the caller.
//
// HTTP: POST /todo
// REQUEST BODY: {"title": "...", "description": "...", "priority": 3, "complete": false}
// RESPONSE: 201 with the stored todo
func (h *TodoHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	var in service.CreateTodoInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, err)
		return
	}

	todo, err := h.todos.Create(r.Context(), id, in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, todo)
}

// HandleUpdate applies a partial update.
//
// HTTP: PUT /todo/{id}
// RESPONSE: 204 No Content
func (h *TodoHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	todoID, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var in service.UpdateTodoInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, err)
		return
	}

	if _, err := h.todos.Update(r.Context(), id, todoID, in); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleDelete removes a todo.
//
// HTTP: DELETE /todo/{id}
// RESPONSE: 204 No Content
func (h *TodoHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	todoID, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.todos.Delete(r.Context(), id, todoID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
