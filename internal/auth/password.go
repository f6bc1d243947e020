package auth

// Password hashing utilities.
//
// bcrypt is deliberately slow, salts every hash and embeds the salt and cost in
// its output, so no separate salt column is needed:
//
//	$2a$12$<22-char salt><31-char hash>
//	 ^   ^
//	 |   cost (12 rounds → 2^12 iterations)
//	 version

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/semaphore"

	"github.com/sakif/todo-service/internal/apperror"
)

// DefaultCost is the bcrypt work factor used in production.
const DefaultCost = 12

// MaxPasswordBytes is bcrypt's input limit. Longer inputs are rejected rather
// than silently truncated.
const MaxPasswordBytes = 72

// ErrPasswordMismatch is returned by Verify when the password is wrong.
var ErrPasswordMismatch = errors.New("auth: invalid password")

// PasswordService provides bcrypt hashing and verification.
//
// Every hash and compare holds one slot of a weighted semaphore for its
// duration. With HASH_CONCURRENCY slots, a burst of logins queues instead of
// pinning every core; a queued caller gives up when its request context is
// cancelled.
type PasswordService struct {
	cost  int
	slots *semaphore.Weighted

	// dummyHash is compared against when the user does not exist, so that
	// "unknown user" costs the same time as "wrong password".
	dummyHash []byte
}

// NewPasswordService creates a PasswordService. concurrency < 1 is treated as 1.
func NewPasswordService(cost, concurrency int) (*PasswordService, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("auth: bcrypt cost %d out of range", cost)
	}
	if concurrency < 1 {
		concurrency = 1
	}

	dummy, err := bcrypt.GenerateFromPassword([]byte("dummy-password-for-timing"), cost)
	if err != nil {
		return nil, fmt.Errorf("auth: generating dummy hash: %w", err)
	}

	return &PasswordService{
		cost:      cost,
		slots:     semaphore.NewWeighted(int64(concurrency)),
		dummyHash: dummy,
	}, nil
}

// NewPasswordServiceForTest creates a PasswordService with the given cost
// (normally bcrypt.MinCost = 4). Use this in tests in other packages to avoid
// the ~250ms overhead of cost 12 per hashing operation.
//
// Do NOT use in production.
func NewPasswordServiceForTest(cost int) *PasswordService {
	ps, err := NewPasswordService(cost, 4)
	if err != nil {
		panic(err)
	}
	return ps
}

// Hash hashes the given plaintext password with bcrypt.
//
// Returns a validation error if the plaintext is longer than 72 bytes.
func (p *PasswordService) Hash(ctx context.Context, plaintext string) (string, error) {
	if len(plaintext) > MaxPasswordBytes {
		return "", apperror.ValidationFailed("password", "password must be 72 bytes or fewer")
	}

	if err := p.slots.Acquire(ctx, 1); err != nil {
		return "", fmt.Errorf("auth: waiting for hash slot: %w", err)
	}
	defer p.slots.Release(1)

	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), p.cost)
	if err != nil {
		return "", fmt.Errorf("auth: hashing password: %w", err)
	}
	return string(hashed), nil
}

// Verify checks whether a plaintext password matches a stored bcrypt hash.
//
// Returns nil on a match and ErrPasswordMismatch on a mismatch. A malformed
// hash is reported as a wrapped error distinct from ErrPasswordMismatch.
// bcrypt.CompareHashAndPassword compares in constant time.
func (p *PasswordService) Verify(ctx context.Context, hash, plaintext string) error {
	if err := p.slots.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("auth: waiting for hash slot: %w", err)
	}
	defer p.slots.Release(1)

	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrPasswordMismatch
		}
		return fmt.Errorf("auth: comparing password hash: %w", err)
	}
	return nil
}

// VerifyDummy burns one comparison against an internal hash. Call it when the
// user lookup failed so the response time matches a real password check.
func (p *PasswordService) VerifyDummy(ctx context.Context, plaintext string) {
	if err := p.slots.Acquire(ctx, 1); err != nil {
		return
	}
	defer p.slots.Release(1)

	_ = bcrypt.CompareHashAndPassword(p.dummyHash, []byte(plaintext))
}
