package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/todo-service/internal/apperror"
	"github.com/sakif/todo-service/internal/auth"
	"github.com/sakif/todo-service/internal/model"
	"github.com/sakif/todo-service/internal/repository"
)

// UserService serves the caller's own profile.
type UserService struct {
	users     repository.UserRepository
	passwords *auth.PasswordService
	logger    *slog.Logger
}

func NewUserService(users repository.UserRepository, passwords *auth.PasswordService, logger *slog.Logger) *UserService {
	return &UserService{users: users, passwords: passwords, logger: logger}
}

// UpdateProfileInput is a partial update: nil fields are left unchanged.
// Password is the caller's current password and is always required.
type UpdateProfileInput struct {
	Password    string  `json:"password"     validate:"required"`
	NewPassword *string `json:"new_password" validate:"omitempty,min=1"`
	Email       *string `json:"email"        validate:"omitempty,email,max=254"`
	Username    *string `json:"username"     validate:"omitempty,min=1,max=64"`
	FirstName   *string `json:"first_name"   validate:"omitempty,min=1,max=64"`
	LastName    *string `json:"last_name"    validate:"omitempty,min=1,max=64"`
}

// Profile returns the caller's account.
func (s *UserService) Profile(ctx context.Context, id model.Identity) (*model.User, error) {
	user, err := s.users.GetByID(ctx, id.UserID)
	if err != nil {
		return nil, fmt.Errorf("service/user: loading profile: %w", err)
	}
	return user, nil
}

// UpdateProfile changes the caller's own account after re-checking the
// current password. Role, active flag and id are not editable here.
func (s *UserService) UpdateProfile(ctx context.Context, id model.Identity, in UpdateProfileInput) error {
	if err := validateStruct(in); err != nil {
		return err
	}

	user, err := s.users.GetByID(ctx, id.UserID)
	if err != nil {
		return fmt.Errorf("service/user: loading profile: %w", err)
	}

	if err := s.passwords.Verify(ctx, user.PasswordHash, in.Password); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		return apperror.Unauthorized("current password is incorrect")
	}

	if in.Email != nil {
		user.Email = strings.TrimSpace(*in.Email)
	}
	if in.Username != nil {
		user.Username = strings.TrimSpace(*in.Username)
	}
	if in.FirstName != nil {
		user.FirstName = *in.FirstName
	}
	if in.LastName != nil {
		user.LastName = *in.LastName
	}
	if in.NewPassword != nil {
		hash, err := s.passwords.Hash(ctx, *in.NewPassword)
		if err != nil {
			var appErr *apperror.AppError
			if errors.As(err, &appErr) && appErr.Field == "password" {
				return apperror.ValidationFailed("new_password", appErr.Message)
			}
			return err
		}
		user.PasswordHash = hash
	}

	if err := s.users.Update(ctx, user); err != nil {
		return fmt.Errorf("service/user: updating user %d: %w", user.ID, err)
	}

	s.logger.Info("profile updated",
		slog.Int64("userID", user.ID),
		slog.Bool("passwordChanged", in.NewPassword != nil),
	)
	return nil
}
