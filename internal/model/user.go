// Package model defines the data structures used throughout the application.
package model

import (
	"fmt"
	"strings"
)

// Role is the closed set of privilege levels a user can hold.
//
// It is stored and serialized as text ("user", "admin") but compared as an
// enum, so a typo like "Admin" can never silently grant or deny access.
type Role uint8

const (
	RoleUser Role = iota + 1
	RoleAdmin
)

// ParseRole converts the textual form into a Role. The empty string is not a
// role; callers that want a default must apply it themselves.
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "user":
		return RoleUser, nil
	case "admin":
		return RoleAdmin, nil
	}
	return 0, fmt.Errorf("model: unknown role %q", s)
}

func (r Role) String() string {
	switch r {
	case RoleUser:
		return "user"
	case RoleAdmin:
		return "admin"
	}
	return fmt.Sprintf("Role(%d)", uint8(r))
}

func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// MarshalText lets encoding/json write the role as a plain string.
func (r Role) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("model: cannot marshal invalid role %d", uint8(r))
	}
	return []byte(r.String()), nil
}

func (r *Role) UnmarshalText(b []byte) error {
	parsed, err := ParseRole(string(b))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// User represents a registered account.
//
// PasswordHash is a bcrypt hash and is never serialized to clients.
type User struct {
	ID           int64  `json:"id"         db:"id"`
	Email        string `json:"email"      db:"email"`
	Username     string `json:"username"   db:"username"`
	FirstName    string `json:"first_name" db:"first_name"`
	LastName     string `json:"last_name"  db:"last_name"`
	PasswordHash string `json:"-"          db:"password_hash"`
	IsActive     bool   `json:"is_active"  db:"is_active"`
	Role         Role   `json:"role"       db:"role"`
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
