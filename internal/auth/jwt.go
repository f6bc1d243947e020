// Package auth issues and verifies bearer tokens, hashes passwords and wires
// both into HTTP middleware.
//
// AUTHENTICATION FLOW OVERVIEW:
//  1. Client POSTs username + password to /auth/token
//  2. Server verifies the bcrypt hash and issues a signed JWT
//  3. Client sends "Authorization: Bearer <jwt>" on every protected call
//  4. RequireAuth verifies the token and puts a model.Identity in the context
//
// The server never looks the user up again while the token is valid: id,
// username and role all travel inside the signed payload. The flip side is
// that a token cannot be revoked before it expires, which is why TOKEN_TTL
// defaults to a short 20 minutes.
//
// JWT STRUCTURE (three base64-encoded parts separated by dots):
//
//	HEADER.PAYLOAD.SIGNATURE
//	- Header: algorithm + token type → {"alg":"HS256","typ":"JWT"}
//	- Payload: claims → {"sub":"alice","id":1,"role":"user","exp":1234567890}
//	- Signature: HMAC(header+"."+payload, secretKey)
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/sakif/todo-service/internal/apperror"
	"github.com/sakif/todo-service/internal/model"
)

const issuer = "todo-service"

// TokenService handles JWT creation and validation.
//
// The HMAC key and algorithm come from configuration and are fixed for the
// lifetime of the process. Both are read-only after construction, so a single
// TokenService is shared by every request goroutine.
type TokenService struct {
	secret []byte
	method *jwt.SigningMethodHMAC
	ttl    time.Duration
}

// NewTokenService creates a TokenService.
//
// algorithm is one of HS256, HS384, HS512. ttl is the validity window of
// tokens minted by Issue.
func NewTokenService(secret, algorithm string, ttl time.Duration) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	if ttl <= 0 {
		return nil, errors.New("auth: token TTL must be positive")
	}

	var method *jwt.SigningMethodHMAC
	switch algorithm {
	case "HS256":
		method = jwt.SigningMethodHS256
	case "HS384":
		method = jwt.SigningMethodHS384
	case "HS512":
		method = jwt.SigningMethodHS512
	default:
		return nil, fmt.Errorf("auth: unsupported signing algorithm %q", algorithm)
	}

	return &TokenService{secret: []byte(secret), method: method, ttl: ttl}, nil
}

// TTL is the validity window applied by Issue.
func (s *TokenService) TTL() time.Duration { return s.ttl }

// claims is the JWT payload.
//
// "sub" carries the username, "id" the numeric user id and "role" the textual
// role. Role stays a string here so an unknown value fails Verify explicitly
// instead of failing inside the JSON decoder with a less useful error.
type claims struct {
	UserID int64  `json:"id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// Issue signs a token for user that expires after the configured TTL.
func (s *TokenService) Issue(user *model.User) (string, error) {
	return s.IssueWithDuration(user, s.ttl)
}

// IssueWithDuration signs a token with a custom validity. Tests use a negative
// duration to mint already-expired tokens.
func (s *TokenService) IssueWithDuration(user *model.User, d time.Duration) (string, error) {
	if user == nil || user.ID <= 0 || user.Username == "" {
		return "", errors.New("auth: cannot issue a token for an unsaved user")
	}
	if !user.Role.Valid() {
		return "", fmt.Errorf("auth: cannot issue a token for role %v", user.Role)
	}

	now := time.Now()
	c := claims{
		UserID: user.ID,
		Role:   user.Role.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.Username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(d)),
			Issuer:    issuer,
		},
	}

	signed, err := jwt.NewWithClaims(s.method, c).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}
	return signed, nil
}

// Verify parses and verifies a JWT string and returns the caller identity.
//
// VALIDATION CHECKS (performed by the jwt library):
//   - Signature is valid (wasn't tampered with)
//   - Algorithm is exactly the configured one (no "none", no HS256↔HS512 swap)
//   - Token has an expiry and it is in the future
//   - Issuer matches
//
// Then the custom claims: subject and id must be present and role must be a
// known role. Every failure is an apperror.ErrUnauthorized.
func (s *TokenService) Verify(tokenStr string) (model.Identity, error) {
	var c claims
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&c,
		func(*jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{s.method.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return model.Identity{}, apperror.Unauthorized("token expired")
		}
		return model.Identity{}, apperror.Unauthorized("invalid token")
	}
	if !token.Valid {
		return model.Identity{}, apperror.Unauthorized("invalid token")
	}

	if c.Subject == "" || c.UserID <= 0 {
		return model.Identity{}, apperror.Unauthorized("token is missing its subject")
	}
	role, err := model.ParseRole(c.Role)
	if err != nil {
		return model.Identity{}, apperror.Unauthorized("token carries an unknown role")
	}

	return model.Identity{
		UserID:    c.UserID,
		Username:  c.Subject,
		Role:      role,
		ExpiresAt: c.ExpiresAt.Time,
	}, nil
}
