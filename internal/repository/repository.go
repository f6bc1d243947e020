// Package repository declares the storage contracts the services depend on.
//
// Implementations live in sub-packages (sqlite, postgres). Every method takes
// the request context; the implementation borrows a pooled connection for the
// duration of the call and returns it on every exit path.
package repository

import (
	"context"

	"github.com/sakif/todo-service/internal/model"
)

type ListOptions struct {
	Limit  int
	Offset int
}

// TodoFilter narrows a todo query. A nil OwnerID means "any owner".
type TodoFilter struct {
	OwnerID *int64
}

// OwnedBy returns a filter restricted to one owner.
func OwnedBy(ownerID int64) TodoFilter {
	return TodoFilter{OwnerID: &ownerID}
}

type UserRepository interface {
	// Create inserts the user and sets its ID. Returns apperror.ErrConflict
	// when the email or username is taken.
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id int64) (*model.User, error)
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	List(ctx context.Context, opts ListOptions) ([]model.User, error)
	// Update writes every mutable column of the user.
	Update(ctx context.Context, user *model.User) error
}

type TodoRepository interface {
	Create(ctx context.Context, todo *model.Todo) error
	// GetByID returns apperror.ErrNotFound when no row matches both the id
	// and the filter.
	GetByID(ctx context.Context, id int64, filter TodoFilter) (*model.Todo, error)
	List(ctx context.Context, filter TodoFilter, opts ListOptions) ([]model.Todo, error)
	Update(ctx context.Context, todo *model.Todo) error
	Delete(ctx context.Context, id int64, filter TodoFilter) error
}

// Store bundles the repositories of one backend with its lifecycle.
type Store interface {
	Users() UserRepository
	Todos() TodoRepository
	Ping(ctx context.Context) error
	Close() error
}
