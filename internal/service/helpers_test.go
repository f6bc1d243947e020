package service

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/sakif/todo-service/internal/auth"
	"github.com/sakif/todo-service/internal/model"
	"github.com/sakif/todo-service/internal/repository"
	"github.com/sakif/todo-service/internal/repository/sqlite"
)

// =========================================================================
// FIXTURES
// =========================================================================

const testPassword = "pw123"

type fixture struct {
	db     *sqlite.DB
	tokens *auth.TokenService
	auth   *AuthService
	users  *UserService
	todos  *TodoService
	admin  *AdminService
}

// newFixture wires every service against a private in-memory database.
func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("sqlite.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	ts, err := auth.NewTokenService("test-secret-at-least-16-chars!!", "HS256", 20*time.Minute)
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}

	// Cost 4 is bcrypt minimum, makes tests fast
	ps := auth.NewPasswordServiceForTest(4)
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	return &fixture{
		db:     db,
		tokens: ts,
		auth:   NewAuthService(db.Users(), ts, ps, true, logger),
		users:  NewUserService(db.Users(), ps, logger),
		todos:  NewTodoService(db.Todos(), logger),
		admin:  NewAdminService(db.Users(), db.Todos(), logger),
	}
}

// register creates a user and returns its identity as a token would carry it.
func (f *fixture) register(t *testing.T, username string, role model.Role) model.Identity {
	t.Helper()
	u, err := f.auth.CreateUser(context.Background(), RegisterInput{
		Email:     username + "@example.com",
		Username:  username,
		FirstName: "Test",
		LastName:  "User",
		Password:  testPassword,
		Role:      role.String(),
	})
	if err != nil {
		t.Fatalf("CreateUser(%s): %v", username, err)
	}
	return model.Identity{UserID: u.ID, Username: u.Username, Role: u.Role}
}

func (f *fixture) createTodo(t *testing.T, owner model.Identity, title string) *model.Todo {
	t.Helper()
	todo, err := f.todos.Create(context.Background(), owner, CreateTodoInput{
		Title:       title,
		Description: "description for " + title,
		Priority:    2,
	})
	if err != nil {
		t.Fatalf("Create todo %q: %v", title, err)
	}
	return todo
}

func ptr[T any](v T) *T { return &v }

var repositoryAll = repository.ListOptions{}
