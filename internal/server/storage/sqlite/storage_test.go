package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/tenaplex/tenaplex/internal/models"
	"github.com/tenaplex/tenaplex/internal/tenantctx"
)

func setupTestStorage(t *testing.T) (*Storage, func()) {
	t.Helper()

	s, err := New(context.Background(), ":memory:")
	require.NoError(t, err)

	return s, func() {
		_ = s.Close()
	}
}

func createTestTenant(t *testing.T, ctx context.Context, s *Storage, name string) string {
	t.Helper()

	tenant := &models.Tenant{
		ID:        uuid.New().String(),
		Name:      name,
		CreatedAt: time.Now(),
	}
	require.NoError(t, s.CreateTenant(ctx, tenant))

	return tenant.ID
}

func createTestUser(t *testing.T, ctx context.Context, s *Storage, tenantID, email string) string {
	t.Helper()

	user := &models.User{
		ID:           uuid.New().String(),
		TenantID:     tenantID,
		Email:        email,
		PasswordHash: "$2a$10$fakefakefakefakefakefakefakefakefakefakefakefakefakef",
		CreatedAt:    time.Now(),
	}
	require.NoError(t, s.CreateUser(ctx, user))

	return user.ID
}

func scopedCtx(tenantID, userID string) context.Context {
	return tenantctx.WithScope(context.Background(), tenantctx.Scope{
		TenantID: tenantID,
		UserID:   userID,
	})
}

func activeToken(userID, hash string) *models.RefreshToken {
	return &models.RefreshToken{
		ID:        uuid.New().String(),
		UserID:    userID,
		TokenHash: hash,
		Status:    models.TokenStatusActive,
		ExpiresAt: time.Now().Add(24 * time.Hour),
		CreatedAt: time.Now(),
	}
}
