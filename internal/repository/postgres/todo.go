package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	"github.com/sakif/todo-service/internal/apperror"
	"github.com/sakif/todo-service/internal/model"
	"github.com/sakif/todo-service/internal/repository"
)

var _ repository.TodoRepository = (*TodoStore)(nil)

// TodoStore implements repository.TodoRepository on PostgreSQL. Owner scoping
// is an extra WHERE clause, same as the SQLite store.
type TodoStore struct {
	conn *sql.DB
}

const todoColumns = `id, title, description, priority, complete, owner_id`

func (s *TodoStore) Create(ctx context.Context, todo *model.Todo) error {
	err := s.conn.QueryRowContext(ctx,
		`INSERT INTO todos (title, description, priority, complete, owner_id)
		 VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		todo.Title,
		todo.Description,
		todo.Priority,
		todo.Complete,
		todo.OwnerID,
	).Scan(&todo.ID)
	if err != nil {
		return fmt.Errorf("postgres: inserting todo: %w", err)
	}
	return nil
}

func (s *TodoStore) GetByID(ctx context.Context, id int64, filter repository.TodoFilter) (*model.Todo, error) {
	query, args := ownerClause(`SELECT `+todoColumns+` FROM todos WHERE id = $1`, []any{id}, filter)

	t, err := scanTodo(s.conn.QueryRowContext(ctx, query, args...))
	if err != nil {
		if isNoRows(err) {
			return nil, apperror.NotFound("todo", id)
		}
		return nil, fmt.Errorf("postgres: getting todo %d: %w", id, err)
	}
	return t, nil
}

func (s *TodoStore) List(ctx context.Context, filter repository.TodoFilter, opts repository.ListOptions) ([]model.Todo, error) {
	limit, offset := clampList(opts)

	query, args := ownerClause(`SELECT `+todoColumns+` FROM todos WHERE TRUE`, nil, filter)
	n := len(args)
	query += ` ORDER BY id LIMIT $` + strconv.Itoa(n+1) + ` OFFSET $` + strconv.Itoa(n+2)
	args = append(args, limit, offset)

	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: listing todos: %w", err)
	}
	defer rows.Close()

	todos := make([]model.Todo, 0)
	for rows.Next() {
		t, err := scanTodo(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scanning todo: %w", err)
		}
		todos = append(todos, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterating todos: %w", err)
	}
	return todos, nil
}

func (s *TodoStore) Update(ctx context.Context, todo *model.Todo) error {
	res, err := s.conn.ExecContext(ctx,
		`UPDATE todos SET title = $1, description = $2, priority = $3, complete = $4
		 WHERE id = $5`,
		todo.Title,
		todo.Description,
		todo.Priority,
		todo.Complete,
		todo.ID,
	)
	if err != nil {
		return fmt.Errorf("postgres: updating todo %d: %w", todo.ID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("postgres: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFound("todo", todo.ID)
	}
	return nil
}

func (s *TodoStore) Delete(ctx context.Context, id int64, filter repository.TodoFilter) error {
	query, args := ownerClause(`DELETE FROM todos WHERE id = $1`, []any{id}, filter)

	res, err := s.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("postgres: deleting todo %d: %w", id, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("postgres: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFound("todo", id)
	}
	return nil
}

// ownerClause appends the owner predicate using the next positional parameter.
func ownerClause(query string, args []any, filter repository.TodoFilter) (string, []any) {
	if filter.OwnerID == nil {
		return query, args
	}
	args = append(args, *filter.OwnerID)
	return query + ` AND owner_id = $` + strconv.Itoa(len(args)), args
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
