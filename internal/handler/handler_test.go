package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/todo-service/internal/auth"
	"github.com/sakif/todo-service/internal/handler"
	"github.com/sakif/todo-service/internal/model"
	"github.com/sakif/todo-service/internal/repository/sqlite"
	"github.com/sakif/todo-service/internal/service"
)

const testPassword = "pw123"

// testAPI mounts every handler on a router backed by an in-memory database.
type testAPI struct {
	router http.Handler
	db     *sqlite.DB
	github *fakeGitHub
}

type fakeGitHub struct {
	user *auth.GitHubUser
	err  error
	code string
}

func (f *fakeGitHub) AuthURL(state string) string {
	return "https://github.example/authorize?state=" + url.QueryEscape(state)
}

func (f *fakeGitHub) Exchange(_ context.Context, code string) (*auth.GitHubUser, error) {
	f.code = code
	return f.user, f.err
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	db, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	ts, err := auth.NewTokenService("handler-test-secret-0123456789", "HS256", 20*time.Minute)
	require.NoError(t, err)
	ps := auth.NewPasswordServiceForTest(4)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	authSvc := service.NewAuthService(db.Users(), ts, ps, true, logger)
	gh := &fakeGitHub{}

	authH := handler.NewAuthHandler(authSvc, gh, logger)
	userH := handler.NewUserHandler(service.NewUserService(db.Users(), ps, logger), logger)
	todoH := handler.NewTodoHandler(service.NewTodoService(db.Todos(), logger), logger)
	adminH := handler.NewAdminHandler(service.NewAdminService(db.Users(), db.Todos(), logger), logger)
	healthH := handler.NewHealthHandler(db, logger)

	r := chi.NewRouter()
	r.Get("/healthz", healthH.HandleHealth)
	r.Post("/auth", authH.HandleRegister)
	r.Post("/auth/token", authH.HandleToken)
	r.Get("/auth/github/login", authH.HandleGitHubLogin)
	r.Get("/auth/github/callback", authH.HandleGitHubCallback)
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth(authSvc))
		r.Get("/user", userH.HandleProfile)
		r.Put("/user/update", userH.HandleUpdate)
		r.Get("/todo", todoH.HandleList)
		r.Post("/todo", todoH.HandleCreate)
		r.Get("/todo/{id}", todoH.HandleGet)
		r.Put("/todo/{id}", todoH.HandleUpdate)
		r.Delete("/todo/{id}", todoH.HandleDelete)
		r.Get("/admin/todo", adminH.HandleListTodos)
		r.Get("/admin/user", adminH.HandleListUsers)
		r.Delete("/admin/todo/{id}", adminH.HandleDeleteTodo)
	})

	return &testAPI{router: r, db: db, github: gh}
}

func (a *testAPI) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		rd = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		rd = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

// signup registers a user and returns a bearer token for it.
func (a *testAPI) signup(t *testing.T, username, role string) string {
	t.Helper()
	rec := a.do(t, http.MethodPost, "/auth", "", map[string]string{
		"email":      username + "@example.com",
		"username":   username,
		"first_name": "Test",
		"last_name":  "User",
		"password":   testPassword,
		"role":       role,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return a.login(t, username, testPassword)
}

func (a *testAPI) login(t *testing.T, username, password string) string {
	t.Helper()
	form := url.Values{"username": {username}, "password": {password}}
	req := httptest.NewRequest(http.MethodPost, "/auth/token", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var tok service.TokenResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tok))
	assert.Equal(t, "bearer", tok.TokenType)
	return tok.AccessToken
}

func (a *testAPI) createTodo(t *testing.T, token, title string) model.Todo {
	t.Helper()
	rec := a.do(t, http.MethodPost, "/todo", token, map[string]any{
		"title": title, "description": "about " + title, "priority": 2,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var todo model.Todo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &todo))
	return todo
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) handler.ErrorResponse {
	t.Helper()
	var body handler.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}
