// Package service holds the business rules of the to-do service.
//
// Handlers parse HTTP and call services; services validate input, enforce
// ownership and call repositories. Nothing here knows about HTTP status
// codes: failures are apperror values and the handler layer maps them.
//
//	Handler (HTTP) → Service (rules) → Repository (SQL)
//	                       ↘ auth (bcrypt, JWT) / authz (ownership)
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/rs/xid"

	"github.com/sakif/todo-service/internal/apperror"
	"github.com/sakif/todo-service/internal/auth"
	"github.com/sakif/todo-service/internal/model"
	"github.com/sakif/todo-service/internal/repository"
)

// TokenTypeBearer is the token_type reported alongside every access token.
const TokenTypeBearer = "bearer"

// unusablePasswordPrefix marks accounts created through GitHub sign-in. The
// stored value is not a bcrypt hash, so password login can never match it.
const unusablePasswordPrefix = "!github:"

// AuthService handles registration, password login and token verification.
type AuthService struct {
	users      repository.UserRepository
	tokens     *auth.TokenService
	passwords  *auth.PasswordService
	allowAdmin bool
	logger     *slog.Logger
}

// NewAuthService creates an AuthService. allowAdminRegistration controls
// whether POST /auth may create accounts with the admin role.
func NewAuthService(
	users repository.UserRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	allowAdminRegistration bool,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:      users,
		tokens:     tokens,
		passwords:  passwords,
		allowAdmin: allowAdminRegistration,
		logger:     logger,
	}
}

// RegisterInput is the registration payload.
type RegisterInput struct {
	Email     string `json:"email"      validate:"required,email,max=254"`
	Username  string `json:"username"   validate:"required,max=64"`
	FirstName string `json:"first_name" validate:"required,max=64"`
	LastName  string `json:"last_name"  validate:"required,max=64"`
	Password  string `json:"password"   validate:"required"`
	// Role defaults to "user" when empty.
	Role string `json:"role" validate:"omitempty,oneof=user admin"`
}

// TokenResult is the body of a successful login.
type TokenResult struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// Register creates a new active account through the public endpoint.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*model.User, error) {
	in.Role = strings.ToLower(strings.TrimSpace(in.Role))
	if in.Role == model.RoleAdmin.String() && !s.allowAdmin {
		return nil, apperror.ValidationFailed("role", "admin accounts cannot be self-registered")
	}
	return s.CreateUser(ctx, in)
}

// CreateUser creates an account without the self-registration policy check.
// The CLI uses it to bootstrap administrators.
func (s *AuthService) CreateUser(ctx context.Context, in RegisterInput) (*model.User, error) {
	in.Email = strings.TrimSpace(in.Email)
	in.Username = strings.TrimSpace(in.Username)
	in.Role = strings.ToLower(strings.TrimSpace(in.Role))

	if err := validateStruct(in); err != nil {
		return nil, err
	}

	role := model.RoleUser
	if in.Role != "" {
		r, err := model.ParseRole(in.Role)
		if err != nil {
			return nil, apperror.ValidationFailed("role", err.Error())
		}
		role = r
	}

	// Cheap duplicate checks before paying for bcrypt. The UNIQUE constraints
	// still catch a concurrent registration racing past these.
	if err := s.ensureFree(ctx, in.Username, in.Email); err != nil {
		return nil, err
	}

	hash, err := s.passwords.Hash(ctx, in.Password)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Email:        in.Email,
		Username:     in.Username,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		PasswordHash: hash,
		IsActive:     true,
		Role:         role,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("service/auth: creating user %q: %w", in.Username, err)
	}

	s.logger.Info("user registered",
		slog.Int64("userID", user.ID),
		slog.String("username", user.Username),
		slog.String("role", user.Role.String()),
	)
	return user, nil
}

func (s *AuthService) ensureFree(ctx context.Context, username, email string) error {
	if _, err := s.users.GetByUsername(ctx, username); err == nil {
		return apperror.Conflict("user", "username")
	} else if !errors.Is(err, apperror.ErrNotFound) {
		return fmt.Errorf("service/auth: checking username: %w", err)
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return apperror.Conflict("user", "email")
	} else if !errors.Is(err, apperror.ErrNotFound) {
		return fmt.Errorf("service/auth: checking email: %w", err)
	}
	return nil
}

// Authenticate checks a username/password pair.
//
// Unknown user, wrong password and inactive account all return the same
// apperror.ErrUnauthorized so callers cannot tell them apart. For unknown
// users a dummy bcrypt comparison keeps the timing the same too.
func (s *AuthService) Authenticate(ctx context.Context, username, password string) (*model.User, error) {
	fail := apperror.Unauthorized("incorrect username or password")

	user, err := s.users.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			s.passwords.VerifyDummy(ctx, password)
			return nil, fail
		}
		return nil, fmt.Errorf("service/auth: looking up %q: %w", username, err)
	}

	if err := s.passwords.Verify(ctx, user.PasswordHash, password); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		if !errors.Is(err, auth.ErrPasswordMismatch) && !strings.HasPrefix(user.PasswordHash, unusablePasswordPrefix) {
			s.logger.Warn("stored password hash is unreadable", slog.Int64("userID", user.ID))
		}
		return nil, fail
	}

	if !user.IsActive {
		return nil, fail
	}
	return user, nil
}

// Login authenticates and issues an access token.
func (s *AuthService) Login(ctx context.Context, username, password string) (*TokenResult, error) {
	user, err := s.Authenticate(ctx, username, password)
	if err != nil {
		return nil, err
	}
	return s.issue(user)
}

// Verify turns a bearer token into an Identity. It makes AuthService an
// auth.TokenVerifier.
func (s *AuthService) Verify(token string) (model.Identity, error) {
	return s.tokens.Verify(token)
}

// LoginGitHub signs in a GitHub account.
//
// The local account is matched by email, but only accounts that were created
// through GitHub are linked: registration never proves ownership of an email,
// so a password account with the same address is a conflict. On first sign-in
// a user-role account is created with the GitHub login as username; if that
// username is taken the GitHub id is appended. Such accounts have no usable
// password and sign in through GitHub only.
func (s *AuthService) LoginGitHub(ctx context.Context, gh *auth.GitHubUser) (*TokenResult, error) {
	if gh == nil || gh.Email == "" {
		return nil, apperror.Unauthorized("GitHub account has no usable email")
	}

	user, err := s.users.GetByEmail(ctx, gh.Email)
	switch {
	case err == nil:
		if !strings.HasPrefix(user.PasswordHash, unusablePasswordPrefix) {
			s.logger.Warn("GitHub sign-in refused: email belongs to a password account",
				slog.Int64("userID", user.ID),
				slog.String("login", gh.Login),
			)
			return nil, &apperror.AppError{
				Err:     apperror.ErrConflict,
				Message: "an account with this email already exists; sign in with username and password",
				Field:   "email",
			}
		}
	case errors.Is(err, apperror.ErrNotFound):
		user, err = s.createGitHubUser(ctx, gh)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("service/auth: looking up GitHub email: %w", err)
	}

	if !user.IsActive {
		return nil, apperror.Unauthorized("account is disabled")
	}

	s.logger.Info("user authenticated via GitHub",
		slog.Int64("userID", user.ID),
		slog.String("login", gh.Login),
	)
	return s.issue(user)
}

func (s *AuthService) createGitHubUser(ctx context.Context, gh *auth.GitHubUser) (*model.User, error) {
	first, last, _ := strings.Cut(strings.TrimSpace(gh.Name), " ")
	user := &model.User{
		Email:        gh.Email,
		Username:     gh.Login,
		FirstName:    first,
		LastName:     last,
		PasswordHash: unusablePasswordPrefix + xid.New().String(),
		IsActive:     true,
		Role:         model.RoleUser,
	}

	err := s.users.Create(ctx, user)
	if errors.Is(err, apperror.ErrConflict) {
		user.Username = fmt.Sprintf("%s-gh%d", gh.Login, gh.ID)
		err = s.users.Create(ctx, user)
	}
	if err != nil {
		return nil, fmt.Errorf("service/auth: creating GitHub user %q: %w", gh.Login, err)
	}
	return user, nil
}

func (s *AuthService) issue(user *model.User) (*TokenResult, error) {
	token, err := s.tokens.Issue(user)
	if err != nil {
		return nil, fmt.Errorf("service/auth: issuing token for user %d: %w", user.ID, err)
	}
	return &TokenResult{AccessToken: token, TokenType: TokenTypeBearer}, nil
}
