// Package main is the entry point for the to-do server.
//
//	todo-server            start the HTTP server (same as "serve")
//	todo-server serve      start the HTTP server
//	todo-server user create --username ... --role admin
//
// Configuration comes from the environment (see internal/config); flags on
// serve override it.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/sakif/todo-service/internal/config"
	"github.com/sakif/todo-service/internal/server"
	"github.com/sakif/todo-service/internal/service"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	serve := newServeCmd()

	root := &cobra.Command{
		Use:           "todo-server",
		Short:         "Multi-user to-do list service",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          serve.RunE,
	}
	root.Flags().AddFlagSet(serve.Flags())

	root.AddCommand(serve)
	root.AddCommand(newUserCmd())
	return root
}

func newLogger(level slog.Level) *slog.Logger {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger
}

// serveConfig reads the environment, applies the flags that were set on cmd
// and only then validates, so a flag can repair an invalid env value.
func serveConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.FromEnv()
	if err != nil {
		return config.Config{}, err
	}

	flags := cmd.Flags()
	if flags.Changed("port") {
		if cfg.Port, err = flags.GetInt("port"); err != nil {
			return config.Config{}, err
		}
	}
	if flags.Changed("db-driver") {
		if cfg.DBDriver, err = flags.GetString("db-driver"); err != nil {
			return config.Config{}, err
		}
	}
	if flags.Changed("db-path") {
		if cfg.DBPath, err = flags.GetString("db-path"); err != nil {
			return config.Config{}, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := serveConfig(cmd)
			if err != nil {
				return err
			}

			logger := newLogger(cfg.LogLevel)
			logger.Info("configuration loaded", slog.String("config", cfg.String()))

			srv, err := server.New(cfg, logger)
			if err != nil {
				return fmt.Errorf("creating server: %w", err)
			}
			return srv.Start(cmd.Context())
		},
	}

	cmd.Flags().Int("port", 8080, "HTTP port (overrides PORT)")
	cmd.Flags().String("db-driver", config.DriverSQLite, "sqlite or postgres (overrides DB_DRIVER)")
	cmd.Flags().String("db-path", "data/todo.db", "SQLite database file (overrides DB_PATH)")
	return cmd
}

func newUserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage user accounts",
	}
	cmd.AddCommand(newUserCreateCmd())
	return cmd
}

func newUserCreateCmd() *cobra.Command {
	var in service.RegisterInput

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a user directly in storage",
		Long: `Create a user without going through POST /auth.

This bypasses ALLOW_ADMIN_REGISTRATION, so it is the way to bootstrap the
first administrator on a deployment that disables admin self-registration.`,
		Example: "  todo-server user create --email root@example.com --username root \\\n" +
			"    --first-name Root --last-name Admin --password s3cret --role admin",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := newLogger(cfg.LogLevel)

			store, err := server.OpenStore(cfg)
			if err != nil {
				return fmt.Errorf("opening database: %w", err)
			}
			defer store.Close()

			authSvc, _, _, err := server.NewAuthService(cfg, store.Users(), logger)
			if err != nil {
				return err
			}

			user, err := authSvc.CreateUser(cmd.Context(), in)
			if err != nil {
				return fmt.Errorf("creating user: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created user %d (%s, role=%s)\n", user.ID, user.Username, user.Role)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&in.Email, "email", "", "email address")
	f.StringVar(&in.Username, "username", "", "login name")
	f.StringVar(&in.Password, "password", "", "initial password")
	f.StringVar(&in.FirstName, "first-name", "", "first name")
	f.StringVar(&in.LastName, "last-name", "", "last name")
	f.StringVar(&in.Role, "role", "user", "user or admin")
	for _, name := range []string{"email", "username", "password", "first-name", "last-name"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}
