// Package server sets up the HTTP server, router, and all route definitions.
//
// This is the composition root: configuration in, a running server out.
//
//	config.Config → repository.Store (sqlite | postgres)
//	              → auth.TokenService, auth.PasswordService
//	              → service.* → handler.* → chi routes
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/sakif/todo-service/internal/auth"
	"github.com/sakif/todo-service/internal/config"
	"github.com/sakif/todo-service/internal/handler"
	"github.com/sakif/todo-service/internal/middleware"
	"github.com/sakif/todo-service/internal/repository"
	"github.com/sakif/todo-service/internal/repository/postgres"
	sqliteRepo "github.com/sakif/todo-service/internal/repository/sqlite"
	"github.com/sakif/todo-service/internal/service"
)

const shutdownTimeout = 30 * time.Second

// Server represents the HTTP server and all its dependencies.
//
// The Server owns the store and closes it after shutdown.
type Server struct {
	router *chi.Mux
	config config.Config
	logger *slog.Logger
	store  repository.Store
}

// OpenStore opens the storage backend selected by cfg.DBDriver.
func OpenStore(cfg config.Config) (repository.Store, error) {
	switch cfg.DBDriver {
	case config.DriverPostgres:
		db, err := postgres.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return db, nil
	case config.DriverSQLite:
		if cfg.DBPath != ":memory:" {
			dir := filepath.Dir(cfg.DBPath)
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("creating database directory %q: %w", dir, err)
			}
		}
		db, err := sqliteRepo.New(cfg.DBPath)
		if err != nil {
			return nil, err
		}
		return db, nil
	}
	return nil, fmt.Errorf("unsupported database driver %q", cfg.DBDriver)
}

// New opens the configured store and wires every route.
func New(cfg config.Config, logger *slog.Logger) (*Server, error) {
	store, err := OpenStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s, err := NewWithStore(cfg, store, logger)
	if err != nil {
		store.Close()
		return nil, err
	}
	return s, nil
}

// NewWithStore wires the routes against an already opened store. The Server
// takes ownership of store.
func NewWithStore(cfg config.Config, store repository.Store, logger *slog.Logger) (*Server, error) {
	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		store:  store,
	}
	if err := s.setupRoutes(); err != nil {
		return nil, fmt.Errorf("setting up routes: %w", err)
	}
	return s, nil
}

// NewAuthService builds the credential services from cfg. The CLI uses it to
// create users without starting the HTTP server.
func NewAuthService(cfg config.Config, users repository.UserRepository, logger *slog.Logger) (*service.AuthService, *auth.PasswordService, *auth.TokenService, error) {
	tokens, err := auth.NewTokenService(cfg.JWTSecret, cfg.JWTAlgorithm, cfg.TokenTTL)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("creating token service: %w", err)
	}
	passwords, err := auth.NewPasswordService(cfg.BCryptCost, cfg.HashConcurrency)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("creating password service: %w", err)
	}
	authSvc := service.NewAuthService(users, tokens, passwords, cfg.AllowAdminRegistration, logger)
	return authSvc, passwords, tokens, nil
}

// setupRoutes configures all middleware and route handlers.
//
// ROUTE STRUCTURE:
//
//	GET    /healthz                 → storage health
//	POST   /auth                    → register
//	POST   /auth/token              → password login
//	GET    /auth/github/login       → GitHub redirect (when configured)
//	GET    /auth/github/callback    → GitHub callback (when configured)
//	GET    /user                    → own profile          [bearer]
//	PUT    /user/update             → update own profile   [bearer]
//	GET    /todo                    → list todos           [bearer]
//	POST   /todo                    → create todo          [bearer]
//	GET    /todo/{id}               → get todo             [bearer]
//	PUT    /todo/{id}               → update todo          [bearer]
//	DELETE /todo/{id}               → delete todo          [bearer]
//	GET    /admin/todo              → every todo           [bearer, admin]
//	GET    /admin/user              → every user           [bearer, admin]
//	DELETE /admin/todo/{id}         → delete any todo      [bearer, admin]
//
// MIDDLEWARE ORDER MATTERS:
// RequestID runs first so the logger can read the id; Recoverer sits inside
// the logger so a recovered panic is still logged as a 500.
func (s *Server) setupRoutes() error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)

	authSvc, passwords, _, err := NewAuthService(s.config, s.store.Users(), s.logger)
	if err != nil {
		return err
	}

	var github handler.GitHubExchanger
	if s.config.GitHubEnabled() {
		github = auth.NewGitHubProvider(s.config.GitHubClientID, s.config.GitHubClientSecret, s.config.GitHubCallbackURL)
	}

	authHandler := handler.NewAuthHandler(authSvc, github, s.logger)
	userHandler := handler.NewUserHandler(service.NewUserService(s.store.Users(), passwords, s.logger), s.logger)
	todoHandler := handler.NewTodoHandler(service.NewTodoService(s.store.Todos(), s.logger), s.logger)
	adminHandler := handler.NewAdminHandler(service.NewAdminService(s.store.Users(), s.store.Todos(), s.logger), s.logger)
	healthHandler := handler.NewHealthHandler(s.store, s.logger)

	// === Public routes ===
	s.router.Get("/healthz", healthHandler.HandleHealth)
	s.router.Route("/auth", func(r chi.Router) {
		r.Post("/", authHandler.HandleRegister)
		r.Post("/token", authHandler.HandleToken)
		if github != nil {
			r.Get("/github/login", authHandler.HandleGitHubLogin)
			r.Get("/github/callback", authHandler.HandleGitHubCallback)
		}
	})

	// === Protected routes ===
	s.router.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth(authSvc))

		r.Get("/user", userHandler.HandleProfile)
		r.Put("/user/update", userHandler.HandleUpdate)

		r.Route("/todo", func(r chi.Router) {
			r.Get("/", todoHandler.HandleList)
			r.Post("/", todoHandler.HandleCreate)
			r.Get("/{id}", todoHandler.HandleGet)
			r.Put("/{id}", todoHandler.HandleUpdate)
			r.Delete("/{id}", todoHandler.HandleDelete)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Get("/todo", adminHandler.HandleListTodos)
			r.Get("/user", adminHandler.HandleListUsers)
			r.Delete("/todo/{id}", adminHandler.HandleDeleteTodo)
		})
	})

	return nil
}

// Handler exposes the router, mainly for httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases the store without starting the server.
func (s *Server) Close() error {
	return s.store.Close()
}

// Start serves HTTP until ctx is cancelled or SIGINT/SIGTERM arrives, then
// shuts down gracefully.
//
// GRACEFUL SHUTDOWN:
//  1. Stop accepting new connections
//  2. Wait up to 30s for in-flight requests
//  3. Close the store
func (s *Server) Start(ctx context.Context) error {
	defer s.store.Close()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.config.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("driver", s.config.DBDriver),
			slog.Bool("github", s.config.GitHubEnabled()),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		s.logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
		return nil
	})

	return g.Wait()
}
