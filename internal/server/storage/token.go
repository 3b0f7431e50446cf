package storage

import (
	"context"

	"github.com/tenaplex/tenaplex/internal/models"
)

// TokenStorage defines interface for refresh token persistence and rotation
type TokenStorage interface {
	// SaveRefreshToken stores a new active refresh token record.
	SaveRefreshToken(ctx context.Context, token *models.RefreshToken) error

	// GetRefreshToken retrieves a refresh token by its hash.
	// Returns ErrTokenNotFound if no record matches.
	GetRefreshToken(ctx context.Context, tokenHash string) (*models.RefreshToken, error)

	// RotateRefreshToken atomically marks the record matching oldHash as
	// rotated and inserts successor as the new active record, in one
	// transaction. The status transition is a compare-and-set: of any number
	// of concurrent rotations of the same token, exactly one succeeds.
	// Returns ErrTokenNotFound for an unknown hash, ErrTokenRotated when the
	// record was already rotated (reuse), ErrTokenExpired past expiry.
	RotateRefreshToken(ctx context.Context, oldHash string, successor *models.RefreshToken) error

	// RevokeRefreshToken marks the record matching tokenHash as revoked.
	// Idempotent: unknown or already-invalid tokens are not an error.
	RevokeRefreshToken(ctx context.Context, tokenHash string) error

	// RevokeUserTokens revokes all active tokens of a user. Used for
	// defensive revocation when a rotated token is presented again.
	// Returns the number of tokens revoked.
	RevokeUserTokens(ctx context.Context, userID string) (int, error)

	// DeleteExpiredTokens removes expired records and terminal records
	// (rotated, revoked) older than the refresh TTL.
	// Returns the number of deleted records.
	DeleteExpiredTokens(ctx context.Context) (int, error)
}
