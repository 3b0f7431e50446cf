package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/tenaplex/tenaplex/internal/models"
	"github.com/tenaplex/tenaplex/internal/server/storage"
)

// SaveRefreshToken stores a new active refresh token record
func (s *Storage) SaveRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	query := `
		INSERT INTO refresh_tokens (id, user_id, token_hash, status, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		token.ID,
		token.UserID,
		token.TokenHash,
		token.Status,
		token.ExpiresAt,
		token.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to save refresh token: %w", err)
	}

	return nil
}

// GetRefreshToken retrieves a refresh token by its hash
func (s *Storage) GetRefreshToken(ctx context.Context, tokenHash string) (*models.RefreshToken, error) {
	return getRefreshToken(ctx, s.db, tokenHash)
}

// queryer abstracts *sql.DB and *sql.Tx for shared lookups
type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getRefreshToken(ctx context.Context, q queryer, tokenHash string) (*models.RefreshToken, error) {
	query := `
		SELECT id, user_id, token_hash, status, expires_at, created_at
		FROM refresh_tokens
		WHERE token_hash = ?
	`

	token := &models.RefreshToken{}

	err := q.QueryRowContext(ctx, query, tokenHash).Scan(
		&token.ID,
		&token.UserID,
		&token.TokenHash,
		&token.Status,
		&token.ExpiresAt,
		&token.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrTokenNotFound
		}
		return nil, fmt.Errorf("failed to get refresh token: %w", err)
	}

	return token, nil
}

// RotateRefreshToken atomically retires the record matching oldHash and
// inserts successor as the new active record for the same user.
//
// The transition active -> rotated is a compare-and-set on status inside
// the transaction: when two rotations race on the same token, the UPDATE
// of exactly one of them matches a row, and the loser reports the token's
// post-transition state instead. A crash between the two statements rolls
// both back, so two simultaneously valid tokens can never exist.
func (s *Storage) RotateRefreshToken(ctx context.Context, oldHash string, successor *models.RefreshToken) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	result, err := tx.ExecContext(ctx, `
		UPDATE refresh_tokens
		SET status = ?
		WHERE token_hash = ? AND status = ? AND expires_at > ?
	`, models.TokenStatusRotated, oldHash, models.TokenStatusActive, time.Now())
	if err != nil {
		return fmt.Errorf("failed to retire refresh token: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rows == 0 {
		// CAS missed: report why so the caller can pick a policy.
		existing, err := getRefreshToken(ctx, tx, oldHash)
		if err != nil {
			return err
		}
		if existing.Expired(time.Now()) {
			return storage.ErrTokenExpired
		}
		if existing.Status == models.TokenStatusRotated {
			return storage.ErrTokenRotated
		}
		return storage.ErrTokenNotFound
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO refresh_tokens (id, user_id, token_hash, status, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		successor.ID,
		successor.UserID,
		successor.TokenHash,
		successor.Status,
		successor.ExpiresAt,
		successor.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert successor token: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit rotation: %w", err)
	}

	return nil
}

// RevokeRefreshToken marks the record matching tokenHash as revoked.
// Idempotent: revoking an unknown or already-terminal token is a no-op.
func (s *Storage) RevokeRefreshToken(ctx context.Context, tokenHash string) error {
	query := `
		UPDATE refresh_tokens
		SET status = ?
		WHERE token_hash = ? AND status = ?
	`

	_, err := s.db.ExecContext(ctx, query, models.TokenStatusRevoked, tokenHash, models.TokenStatusActive)
	if err != nil {
		return fmt.Errorf("failed to revoke refresh token: %w", err)
	}

	return nil
}

// RevokeUserTokens revokes all active tokens of a user
func (s *Storage) RevokeUserTokens(ctx context.Context, userID string) (int, error) {
	query := `
		UPDATE refresh_tokens
		SET status = ?
		WHERE user_id = ? AND status = ?
	`

	result, err := s.db.ExecContext(ctx, query, models.TokenStatusRevoked, userID, models.TokenStatusActive)
	if err != nil {
		return 0, fmt.Errorf("failed to revoke user tokens: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return int(rows), nil
}

// DeleteExpiredTokens removes expired records along with terminal records
// that can no longer participate in reuse detection.
// Rotated and revoked rows are kept until their expiry passes so that a
// stolen-and-reused token is still recognizable as rotated, then swept.
func (s *Storage) DeleteExpiredTokens(ctx context.Context) (int, error) {
	query := `DELETE FROM refresh_tokens WHERE expires_at < ?`

	result, err := s.db.ExecContext(ctx, query, time.Now())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired tokens: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return int(rows), nil
}
