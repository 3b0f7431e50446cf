package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// dummyHash is a bcrypt hash of an unguessable throwaway value. Login runs a
// compare against it when the email is unknown so that the "no such user"
// path costs roughly the same as a real password check.
const dummyHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

// HashPassword hashes a plaintext password with bcrypt at the default cost.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// VerifyPassword reports whether password matches the stored bcrypt hash.
// bcrypt's compare is constant time with respect to the hash contents.
func VerifyPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// BurnPasswordCheck performs a bcrypt compare against a throwaway hash.
// Called on the unknown-email login path to keep its timing close to the
// known-email path.
func BurnPasswordCheck(password string) {
	_ = bcrypt.CompareHashAndPassword([]byte(dummyHash), []byte(password))
}
