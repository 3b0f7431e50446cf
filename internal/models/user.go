package models

import "time"

// Tenant is an isolated organization. Every user and dataset belongs to
// exactly one tenant, and no query may cross tenant boundaries.
type Tenant struct {
	ID        string    `json:"id"`         // UUID
	Name      string    `json:"name"`       // globally unique, human readable
	CreatedAt time.Time `json:"created_at"` // creation time
}

// User is an account owned by a tenant. The tenant assignment is immutable
// for the lifetime of the account.
type User struct {
	ID           string    `json:"id"`        // UUID
	TenantID     string    `json:"tenant_id"` // owning tenant
	Email        string    `json:"email"`     // globally unique
	PasswordHash string    `json:"-"`         // bcrypt hash, never serialized
	CreatedAt    time.Time `json:"created_at"`
}

// Refresh token lifecycle states. A token starts active, and exactly one
// transition out of active ever succeeds: to rotated (normal refresh) or
// to revoked (logout, or defensive revocation after reuse detection).
const (
	TokenStatusActive  = "active"
	TokenStatusRotated = "rotated"
	TokenStatusRevoked = "revoked"
)

// RefreshToken is one link in a login session chain. Only the SHA-256 hash
// of the raw token is ever stored; the raw value exists only in the client's
// cookie.
type RefreshToken struct {
	ID        string    `json:"id"`         // UUID
	UserID    string    `json:"user_id"`    // owner
	TokenHash string    `json:"-"`          // hex SHA-256 of the raw token
	Status    string    `json:"status"`     // active | rotated | revoked
	ExpiresAt time.Time `json:"expires_at"` // hard expiry
	CreatedAt time.Time `json:"created_at"`
}

// Expired reports whether the token is past its hard expiry at the given time.
func (t *RefreshToken) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}
