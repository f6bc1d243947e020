package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sakif/todo-service/internal/apperror"
	"github.com/sakif/todo-service/internal/model"
	"github.com/sakif/todo-service/internal/repository"
)

var _ repository.TodoRepository = (*TodoStore)(nil)

// TodoStore persists todos.
//
// Ownership scoping happens in SQL: when a filter carries an OwnerID the
// query gets an extra "AND owner_id = ?" clause. A todo owned by someone else
// is therefore indistinguishable from a todo that does not exist.
type TodoStore struct {
	conn *sql.DB
}

const todoColumns = `id, title, description, priority, complete, owner_id`

func (s *TodoStore) Create(ctx context.Context, todo *model.Todo) error {
	res, err := s.conn.ExecContext(ctx,
		`INSERT INTO todos (title, description, priority, complete, owner_id)
		 VALUES (?, ?, ?, ?, ?)`,
		todo.Title,
		todo.Description,
		todo.Priority,
		todo.Complete,
		todo.OwnerID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting todo: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("sqlite: reading todo id: %w", err)
	}
	todo.ID = id
	return nil
}

// GetByID returns apperror.ErrNotFound when the id is unknown or the row is
// outside the filter.
func (s *TodoStore) GetByID(ctx context.Context, id int64, filter repository.TodoFilter) (*model.Todo, error) {
	query := `SELECT ` + todoColumns + ` FROM todos WHERE id = ?`
	args := []any{id}
	query, args = ownerClause(query, args, filter)

	t, err := scanTodo(s.conn.QueryRowContext(ctx, query, args...))
	if err != nil {
		if isNoRows(err) {
			return nil, apperror.NotFound("todo", id)
		}
		return nil, fmt.Errorf("sqlite: getting todo %d: %w", id, err)
	}
	return t, nil
}

// List returns todos matching the filter, ordered by id.
// An empty result is an empty slice, never nil, so it encodes as [].
func (s *TodoStore) List(ctx context.Context, filter repository.TodoFilter, opts repository.ListOptions) ([]model.Todo, error) {
	limit, offset := clampList(opts)

	query := `SELECT ` + todoColumns + ` FROM todos WHERE 1 = 1`
	var args []any
	query, args = ownerClause(query, args, filter)
	query += ` ORDER BY id LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing todos: %w", err)
	}
	defer rows.Close()

	todos := make([]model.Todo, 0)
	for rows.Next() {
		t, err := scanTodo(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning todo: %w", err)
		}
		todos = append(todos, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating todos: %w", err)
	}
	return todos, nil
}

// Update writes title, description, priority and complete. owner_id is never
// touched: ownership is fixed at creation.
func (s *TodoStore) Update(ctx context.Context, todo *model.Todo) error {
	res, err := s.conn.ExecContext(ctx,
		`UPDATE todos SET title = ?, description = ?, priority = ?, complete = ?
		 WHERE id = ?`,
		todo.Title,
		todo.Description,
		todo.Priority,
		todo.Complete,
		todo.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating todo %d: %w", todo.ID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFound("todo", todo.ID)
	}
	return nil
}

// Delete removes the todo if it exists within the filter.
//
// DELETE is a no-op when the WHERE clause matches nothing, so RowsAffected is
// how we tell "deleted" apart from "not found".
func (s *TodoStore) Delete(ctx context.Context, id int64, filter repository.TodoFilter) error {
	query := `DELETE FROM todos WHERE id = ?`
	args := []any{id}
	query, args = ownerClause(query, args, filter)

	res, err := s.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("sqlite: deleting todo %d: %w", id, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFound("todo", id)
	}
	return nil
}

func ownerClause(query string, args []any, filter repository.TodoFilter) (string, []any) {
	if filter.OwnerID == nil {
		return query, args
	}
	return query + ` AND owner_id = ?`, append(args, *filter.OwnerID)
}

func scanTodo(sc scanner) (*model.Todo, error) {
	var t model.Todo
	if err := sc.Scan(
		&t.ID,
		&t.Title,
		&t.Description,
		&t.Priority,
		&t.Complete,
		&t.OwnerID,
	); err != nil {
		return nil, err
	}
	return &t, nil
}
