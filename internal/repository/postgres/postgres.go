// Package postgres implements the repository interfaces on PostgreSQL via lib/pq.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/sakif/todo-service/internal/repository"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200

	uniqueViolationCode = "23505"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
    id            BIGSERIAL PRIMARY KEY,
    email         TEXT    NOT NULL UNIQUE,
    username      TEXT    NOT NULL UNIQUE,
    first_name    TEXT    NOT NULL DEFAULT '',
    last_name     TEXT    NOT NULL DEFAULT '',
    password_hash TEXT    NOT NULL,
    is_active     BOOLEAN NOT NULL DEFAULT TRUE,
    role          TEXT    NOT NULL DEFAULT 'user'
);

CREATE TABLE IF NOT EXISTS todos (
    id          BIGSERIAL PRIMARY KEY,
    title       TEXT    NOT NULL,
    description TEXT    NOT NULL,
    priority    INTEGER NOT NULL,
    complete    BOOLEAN NOT NULL DEFAULT FALSE,
    owner_id    BIGINT  NOT NULL REFERENCES users(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_todos_owner_id ON todos(owner_id);
`

var _ repository.Store = (*DB)(nil)

type DB struct {
	conn  *sql.DB
	users *UserStore
	todos *TodoStore
}

// Open connects to dsn, verifies the connection and creates the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return NewWithConn(conn), nil
}

// NewWithConn wraps an existing handle without touching the schema. Tests use
// it with sqlmock.
func NewWithConn(conn *sql.DB) *DB {
	return &DB{
		conn:  conn,
		users: &UserStore{conn: conn},
		todos: &TodoStore{conn: conn},
	}
}

func (db *DB) Users() repository.UserRepository { return db.users }
func (db *DB) Todos() repository.TodoRepository { return db.todos }

func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

func (db *DB) Close() error {
	return db.conn.Close()
}

func clampList(opts repository.ListOptions) (limit, offset int) {
	limit = opts.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	offset = opts.Offset
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// uniqueViolation maps a 23505 error to the column it concerns. Postgres names
// implicit UNIQUE constraints "<table>_<column>_key".
func uniqueViolation(err error) (string, bool) {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || string(pqErr.Code) != uniqueViolationCode {
		return "", false
	}
	field := strings.TrimSuffix(strings.TrimPrefix(pqErr.Constraint, "users_"), "_key")
	if field == "" {
		field = "value"
	}
	return field, true
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

type scanner interface {
	Scan(dest ...any) error
}
