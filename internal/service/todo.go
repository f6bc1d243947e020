package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/todo-service/internal/apperror"
	"github.com/sakif/todo-service/internal/authz"
	"github.com/sakif/todo-service/internal/model"
	"github.com/sakif/todo-service/internal/repository"
)

const (
	DefaultListLimit = 50
	MaxListLimit     = 200
)

// TodoService handles CRUD on todos for an authenticated caller.
//
// Every method takes the caller's model.Identity. Reads are narrowed with
// authz.ScopeForRead; mutations load the record and pass it through
// authz.AuthorizeMutation. A todo owned by someone else is reported as
// apperror.ErrNotFound, never as forbidden.
type TodoService struct {
	repo   repository.TodoRepository
	logger *slog.Logger
}

func NewTodoService(repo repository.TodoRepository, logger *slog.Logger) *TodoService {
	return &TodoService{repo: repo, logger: logger}
}

// CreateTodoInput is the POST /todo payload.
type CreateTodoInput struct {
	Title       string `json:"title"       validate:"required,min=3,max=120"`
	Description string `json:"description" validate:"required,min=3,max=330"`
	Priority    int    `json:"priority"    validate:"gte=1,lte=6"`
	Complete    bool   `json:"complete"`
}

// UpdateTodoInput is a partial update. Only non-nil fields change, and they
// are validated with the same rules as CreateTodoInput.
//
// OwnerID exists only so a payload carrying owner_id can be rejected
// explicitly instead of being silently ignored.
type UpdateTodoInput struct {
	Title       *string `json:"title"       validate:"omitempty,min=3,max=120"`
	Description *string `json:"description" validate:"omitempty,min=3,max=330"`
	Priority    *int    `json:"priority"    validate:"omitempty,gte=1,lte=6"`
	Complete    *bool   `json:"complete"`
	OwnerID     *int64  `json:"owner_id"`
}

// Create validates and saves a new todo owned by the caller.
func (s *TodoService) Create(ctx context.Context, id model.Identity, in CreateTodoInput) (*model.Todo, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	todo := &model.Todo{
		Title:       in.Title,
		Description: in.Description,
		Priority:    in.Priority,
		Complete:    in.Complete,
		OwnerID:     id.UserID,
	}
	if err := s.repo.Create(ctx, todo); err != nil {
		s.logger.Error("failed to create todo",
			slog.Int64("ownerID", id.UserID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating todo: %w", err)
	}

	s.logger.Info("todo created",
		slog.Int64("id", todo.ID),
		slog.Int64("ownerID", todo.OwnerID),
	)
	return todo, nil
}

// List returns the caller's todos, or every todo for an admin.
func (s *TodoService) List(ctx context.Context, id model.Identity, opts repository.ListOptions) ([]model.Todo, error) {
	filter := authz.ScopeForRead(id, repository.TodoFilter{})
	todos, err := s.repo.List(ctx, filter, clampListOptions(opts))
	if err != nil {
		s.logger.Error("failed to list todos", slog.String("error", err.Error()))
		return nil, fmt.Errorf("listing todos: %w", err)
	}
	return todos, nil
}

// Get returns one todo. Not-visible and missing both yield ErrNotFound.
func (s *TodoService) Get(ctx context.Context, id model.Identity, todoID int64) (*model.Todo, error) {
	return s.repo.GetByID(ctx, todoID, authz.ScopeForRead(id, repository.TodoFilter{}))
}

// Update applies a partial update.
//
// Fetch, authorize, apply, save. Two concurrent updates to the same todo both
// succeed and the later write wins.
func (s *TodoService) Update(ctx context.Context, id model.Identity, todoID int64, in UpdateTodoInput) (*model.Todo, error) {
	if in.OwnerID != nil {
		return nil, apperror.ValidationFailed("owner_id", "owner_id cannot be changed")
	}
	if in.Title != nil {
		t := strings.TrimSpace(*in.Title)
		in.Title = &t
	}
	if in.Description != nil {
		d := strings.TrimSpace(*in.Description)
		in.Description = &d
	}
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	todo, err := s.repo.GetByID(ctx, todoID, repository.TodoFilter{})
	if err != nil {
		return nil, err
	}
	if err := authz.AuthorizeMutation(id, todo); err != nil {
		return nil, err
	}

	if in.Title != nil {
		todo.Title = *in.Title
	}
	if in.Description != nil {
		todo.Description = *in.Description
	}
	if in.Priority != nil {
		todo.Priority = *in.Priority
	}
	if in.Complete != nil {
		todo.Complete = *in.Complete
	}

	if err := s.repo.Update(ctx, todo); err != nil {
		s.logger.Error("failed to update todo",
			slog.Int64("id", todoID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("updating todo: %w", err)
	}

	s.logger.Info("todo updated",
		slog.Int64("id", todo.ID),
		slog.Int64("by", id.UserID),
	)
	return todo, nil
}

// Delete removes a todo the caller owns (or any todo, for an admin).
func (s *TodoService) Delete(ctx context.Context, id model.Identity, todoID int64) error {
	todo, err := s.repo.GetByID(ctx, todoID, repository.TodoFilter{})
	if err != nil {
		return err
	}
	if err := authz.AuthorizeMutation(id, todo); err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, todoID, authz.ScopeForRead(id, repository.TodoFilter{})); err != nil {
		return err
	}

	s.logger.Info("todo deleted",
		slog.Int64("id", todoID),
		slog.Int64("by", id.UserID),
	)
	return nil
}

// clampListOptions keeps pagination within sane bounds so callers cannot
// request a million rows.
func clampListOptions(opts repository.ListOptions) repository.ListOptions {
	if opts.Limit <= 0 {
		opts.Limit = DefaultListLimit
	}
	if opts.Limit > MaxListLimit {
		opts.Limit = MaxListLimit
	}
	if opts.Offset < 0 {
		opts.Offset = 0
	}
	return opts
}
