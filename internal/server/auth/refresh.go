package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"time"
)

// GenerateRefreshToken creates a new random refresh token. It returns the
// raw token (sent to the client as an HttpOnly cookie and never stored),
// the hex SHA-256 hash used for storage and lookup, and the expiry time.
func GenerateRefreshToken(ttl time.Duration) (raw, hash string, expiresAt time.Time, err error) {
	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", "", time.Time{}, fmt.Errorf("failed to generate random token: %w", err)
	}

	raw = base64.RawURLEncoding.EncodeToString(tokenBytes)
	hash = HashRefreshToken(raw)
	expiresAt = time.Now().Add(ttl)

	return raw, hash, expiresAt, nil
}

// HashRefreshToken hashes a raw refresh token for storage lookup.
// SHA-256 rather than bcrypt: the input is 256 bits of entropy, so a fast
// hash is safe and keeps the refresh path cheap.
func HashRefreshToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
