package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sakif/todo-service/internal/authz"
	"github.com/sakif/todo-service/internal/model"
	"github.com/sakif/todo-service/internal/repository"
)

// AdminService exposes cross-owner views. Every method starts with
// authz.RequireAdmin, so a regular user gets apperror.ErrUnauthorized.
type AdminService struct {
	users  repository.UserRepository
	todos  repository.TodoRepository
	logger *slog.Logger
}

func NewAdminService(users repository.UserRepository, todos repository.TodoRepository, logger *slog.Logger) *AdminService {
	return &AdminService{users: users, todos: todos, logger: logger}
}

func (s *AdminService) ListTodos(ctx context.Context, id model.Identity, opts repository.ListOptions) ([]model.Todo, error) {
	if err := authz.RequireAdmin(id); err != nil {
		return nil, err
	}
	todos, err := s.todos.List(ctx, repository.TodoFilter{}, clampListOptions(opts))
	if err != nil {
		return nil, fmt.Errorf("admin: listing todos: %w", err)
	}
	return todos, nil
}

func (s *AdminService) ListUsers(ctx context.Context, id model.Identity, opts repository.ListOptions) ([]model.User, error) {
	if err := authz.RequireAdmin(id); err != nil {
		return nil, err
	}
	users, err := s.users.List(ctx, clampListOptions(opts))
	if err != nil {
		return nil, fmt.Errorf("admin: listing users: %w", err)
	}
	return users, nil
}

// DeleteTodo removes any todo regardless of owner.
func (s *AdminService) DeleteTodo(ctx context.Context, id model.Identity, todoID int64) error {
	if err := authz.RequireAdmin(id); err != nil {
		return err
	}
	if err := s.todos.Delete(ctx, todoID, repository.TodoFilter{}); err != nil {
		return err
	}

	s.logger.Warn("todo deleted by admin",
		slog.Int64("id", todoID),
		slog.Int64("adminID", id.UserID),
	)
	return nil
}
