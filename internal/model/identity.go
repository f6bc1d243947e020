package model

import "time"

// Identity is the caller descriptor reconstructed from a verified bearer
// token on every request. It is never persisted.
type Identity struct {
	UserID    int64
	Username  string
	Role      Role
	ExpiresAt time.Time
}

func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}
