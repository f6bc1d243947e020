package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/todo-service/internal/config"
)

func testConfig() config.Config {
	return config.Config{
		Port:                   0,
		DBDriver:               config.DriverSQLite,
		DBPath:                 ":memory:",
		JWTSecret:              "server-test-secret-0123456789",
		JWTAlgorithm:           "HS256",
		TokenTTL:               20 * time.Minute,
		BCryptCost:             4,
		HashConcurrency:        2,
		AllowAdminRegistration: true,
	}
}

// client talks to a real HTTP listener serving the full router.
type client struct {
	t    *testing.T
	base string
}

func newTestServer(t *testing.T, cfg config.Config) *client {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s, err := New(cfg, logger)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return &client{t: t, base: ts.URL}
}

func (c *client) do(method, path, token string, body string) (*http.Response, []byte) {
	c.t.Helper()
	req, err := http.NewRequest(method, c.base+path, strings.NewReader(body))
	require.NoError(c.t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(c.t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(c.t, err)
	return resp, raw
}

func (c *client) register(username, role string) {
	c.t.Helper()
	body := fmt.Sprintf(`{"email":"%s@example.com","username":"%s","first_name":"F","last_name":"L","password":"pw123","role":"%s"}`,
		username, username, role)
	resp, raw := c.do(http.MethodPost, "/auth", "", body)
	require.Equal(c.t, http.StatusCreated, resp.StatusCode, string(raw))
}

func (c *client) token(username, password string) string {
	c.t.Helper()
	form := url.Values{"username": {username}, "password": {password}}
	resp, err := http.PostForm(c.base+"/auth/token", form)
	require.NoError(c.t, err)
	defer resp.Body.Close()
	require.Equal(c.t, http.StatusOK, resp.StatusCode)

	var tok struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
	}
	require.NoError(c.t, json.NewDecoder(resp.Body).Decode(&tok))
	require.Equal(c.t, "bearer", tok.TokenType)
	return tok.AccessToken
}

func TestServer_TodoLifecycle(t *testing.T) {
	c := newTestServer(t, testConfig())
	c.register("alice", "")
	alice := c.token("alice", "pw123")

	resp, raw := c.do(http.MethodPost, "/todo", alice, `{"title":"buy milk","description":"2 liters","priority":3}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(raw))
	var created struct {
		ID       int64 `json:"id"`
		Complete bool  `json:"complete"`
		OwnerID  int64 `json:"owner_id"`
	}
	require.NoError(t, json.Unmarshal(raw, &created))
	assert.False(t, created.Complete)

	resp, raw = c.do(http.MethodGet, "/todo", alice, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list []map[string]any
	require.NoError(t, json.Unmarshal(raw, &list))
	assert.Len(t, list, 1)

	path := fmt.Sprintf("/todo/%d", created.ID)
	resp, _ = c.do(http.MethodDelete, path, alice, "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = c.do(http.MethodGet, path, alice, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServer_OwnershipAndAdmin(t *testing.T) {
	c := newTestServer(t, testConfig())
	c.register("alice", "")
	c.register("bob", "")
	c.register("root", "admin")
	alice := c.token("alice", "pw123")
	bob := c.token("bob", "pw123")
	root := c.token("root", "pw123")

	resp, raw := c.do(http.MethodPost, "/todo", alice, `{"title":"secret","description":"alice only","priority":1}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var todo struct {
		ID int64 `json:"id"`
	}
	require.NoError(t, json.Unmarshal(raw, &todo))
	path := fmt.Sprintf("/todo/%d", todo.ID)

	resp, _ = c.do(http.MethodGet, path, bob, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp, _ = c.do(http.MethodPut, path, bob, `{"complete":true}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	for _, path := range []string{"/admin/todo", "/admin/user"} {
		resp, raw = c.do(http.MethodGet, path, bob, "")
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, path)
		assert.Contains(t, string(raw), "admin role required")
	}
	resp, _ = c.do(http.MethodDelete, path, bob, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp, _ = c.do(http.MethodGet, "/admin/todo", root, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = c.do(http.MethodPut, path, root, `{"complete":true}`)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestServer_PublicAndProtected(t *testing.T) {
	c := newTestServer(t, testConfig())

	resp, raw := c.do(http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, string(raw))
	assert.NotEmpty(t, resp.Header.Get("Content-Type"))

	for _, path := range []string{"/todo", "/user", "/admin/user"} {
		resp, _ := c.do(http.MethodGet, path, "", "")
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, path)
		assert.Equal(t, "Bearer", resp.Header.Get("WWW-Authenticate"), path)
	}

	// GitHub routes exist only when configured.
	resp, _ = c.do(http.MethodGet, "/auth/github/login", "", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServer_GitHubRoutesWhenConfigured(t *testing.T) {
	cfg := testConfig()
	cfg.GitHubClientID = "client-id"
	cfg.GitHubClientSecret = "client-secret"
	cfg.GitHubCallbackURL = "http://localhost/auth/github/callback"
	c := newTestServer(t, cfg)

	noRedirect := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}}
	resp, err := noRedirect.Get(c.base + "/auth/github/login")
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusTemporaryRedirect, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Location"), "github.com/login/oauth/authorize")
	assert.Contains(t, resp.Header.Get("Location"), "client_id=client-id")
}

func TestNew_RejectsBadDriver(t *testing.T) {
	cfg := testConfig()
	cfg.DBDriver = "mysql"
	_, err := New(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.Error(t, err)
}

func TestStart_StopsOnContextCancel(t *testing.T) {
	s, err := New(testConfig(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Start did not return after cancel")
	}
}
