// Package authz decides what a caller may see or change.
//
// These are pure functions over the caller identity. They hold no state and
// never touch storage; services call them before and after repository calls.
package authz

import (
	"github.com/sakif/todo-service/internal/apperror"
	"github.com/sakif/todo-service/internal/model"
	"github.com/sakif/todo-service/internal/repository"
)

// ScopeForRead narrows filter to the caller's own todos unless the caller is
// an admin, in which case the filter is returned unchanged.
func ScopeForRead(id model.Identity, filter repository.TodoFilter) repository.TodoFilter {
	if id.IsAdmin() {
		return filter
	}
	return repository.OwnedBy(id.UserID)
}

// AuthorizeMutation allows admins and the owner of todo. Anyone else gets the
// same NotFound a missing id would produce.
func AuthorizeMutation(id model.Identity, todo *model.Todo) error {
	if id.IsAdmin() || todo.OwnerID == id.UserID {
		return nil
	}
	return apperror.NotFound("todo", todo.ID)
}

// RequireAdmin gates the admin-only operations. A caller without the admin
// role is unauthenticated for these routes (401), with a message that tells
// it apart from a bad token.
func RequireAdmin(id model.Identity) error {
	if !id.IsAdmin() {
		return apperror.Unauthorized("admin role required")
	}
	return nil
}
