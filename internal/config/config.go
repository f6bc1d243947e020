// Package config loads process configuration from the environment.
//
// Config is read once at start-up and passed by value into constructors.
// Nothing in the application mutates it afterwards, and nothing reads the
// environment outside this package.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config holds every tunable of the server.
type Config struct {
	Port int

	DBDriver    string
	DBPath      string // SQLite file, or ":memory:"
	DatabaseURL string // Postgres DSN

	JWTSecret    string
	JWTAlgorithm string
	TokenTTL     time.Duration

	BCryptCost      int
	HashConcurrency int

	AllowAdminRegistration bool

	LogLevel slog.Level

	GitHubClientID     string
	GitHubClientSecret string
	GitHubCallbackURL  string
}

// GitHubEnabled reports whether GitHub sign-in is configured.
func (c Config) GitHubEnabled() bool {
	return c.GitHubClientID != "" && c.GitHubClientSecret != ""
}

// String never includes secrets, so a Config can be logged.
func (c Config) String() string {
	return fmt.Sprintf("port=%d driver=%s alg=%s ttl=%s github=%t",
		c.Port, c.DBDriver, c.JWTAlgorithm, c.TokenTTL, c.GitHubEnabled())
}

// Load reads the environment and validates the result.
func Load() (Config, error) {
	return load(os.Getenv)
}

// FromEnv reads the environment without the cross-field checks, for callers
// that override values (command-line flags) and call Validate afterwards.
// Unparseable values are still reported.
func FromEnv() (Config, error) {
	return parse(os.Getenv)
}

func load(getenv func(string) string) (Config, error) {
	cfg, errs := parseEnv(getenv)
	if err := cfg.Validate(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return Config{}, fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return cfg, nil
}

func parse(getenv func(string) string) (Config, error) {
	cfg, errs := parseEnv(getenv)
	if len(errs) > 0 {
		return Config{}, fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return cfg, nil
}

// parseEnv falls back to the default for every unparseable value and returns
// the parse errors alongside.
func parseEnv(getenv func(string) string) (Config, []error) {
	var errs []error
	env := envReader{getenv: getenv, errs: &errs}

	cfg := Config{
		Port:                   env.int("PORT", 8080),
		DBDriver:               strings.ToLower(env.str("DB_DRIVER", DriverSQLite)),
		DBPath:                 env.str("DB_PATH", "data/todo.db"),
		DatabaseURL:            getenv("DATABASE_URL"),
		JWTSecret:              getenv("JWT_SECRET"),
		JWTAlgorithm:           strings.ToUpper(env.str("JWT_ALGORITHM", "HS256")),
		TokenTTL:               env.duration("TOKEN_TTL", 20*time.Minute),
		BCryptCost:             env.int("BCRYPT_COST", 12),
		HashConcurrency:        env.int("HASH_CONCURRENCY", runtime.NumCPU()),
		AllowAdminRegistration: env.bool("ALLOW_ADMIN_REGISTRATION", true),
		LogLevel:               env.level("LOG_LEVEL", slog.LevelInfo),
		GitHubClientID:         getenv("GITHUB_CLIENT_ID"),
		GitHubClientSecret:     getenv("GITHUB_CLIENT_SECRET"),
		GitHubCallbackURL:      getenv("GITHUB_CALLBACK_URL"),
	}
	if cfg.GitHubCallbackURL == "" {
		cfg.GitHubCallbackURL = fmt.Sprintf("http://localhost:%d/auth/github/callback", cfg.Port)
	}

	return cfg, errs
}

// Validate checks cross-field constraints. It is also called by the CLI after
// flags override environment values.
func (c Config) Validate() error {
	var errs []error
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT %d out of range", c.Port))
	}
	switch c.DBDriver {
	case DriverSQLite:
		if c.DBPath == "" {
			errs = append(errs, errors.New("DB_PATH is required for sqlite"))
		}
	case DriverPostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver))
	}
	if len(c.JWTSecret) < 16 {
		errs = append(errs, errors.New("JWT_SECRET must be set and at least 16 characters"))
	}
	switch c.JWTAlgorithm {
	case "HS256", "HS384", "HS512":
	default:
		errs = append(errs, fmt.Errorf("unsupported JWT_ALGORITHM %q", c.JWTAlgorithm))
	}
	if c.TokenTTL <= 0 {
		errs = append(errs, errors.New("TOKEN_TTL must be positive"))
	}
	if c.BCryptCost < 4 || c.BCryptCost > 31 {
		errs = append(errs, fmt.Errorf("BCRYPT_COST %d out of range 4..31", c.BCryptCost))
	}
	if c.HashConcurrency < 1 {
		errs = append(errs, errors.New("HASH_CONCURRENCY must be at least 1"))
	}
	return errors.Join(errs...)
}

// envReader collects parse errors instead of failing on the first one, so a
// misconfigured deployment reports everything at once.
type envReader struct {
	getenv func(string) string
	errs   *[]error
}

func (e envReader) str(key, def string) string {
	if v := e.getenv(key); v != "" {
		return v
	}
	return def
}

func (e envReader) int(key string, def int) int {
	v := e.getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		*e.errs = append(*e.errs, fmt.Errorf("%s: invalid integer %q", key, v))
		return def
	}
	return n
}

func (e envReader) bool(key string, def bool) bool {
	v := e.getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		*e.errs = append(*e.errs, fmt.Errorf("%s: invalid boolean %q", key, v))
		return def
	}
	return b
}

func (e envReader) duration(key string, def time.Duration) time.Duration {
	v := e.getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		*e.errs = append(*e.errs, fmt.Errorf("%s: invalid duration %q", key, v))
		return def
	}
	return d
}

func (e envReader) level(key string, def slog.Level) slog.Level {
	v := e.getenv(key)
	if v == "" {
		return def
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(v)); err != nil {
		*e.errs = append(*e.errs, fmt.Errorf("%s: invalid log level %q", key, v))
		return def
	}
	return lvl
}
