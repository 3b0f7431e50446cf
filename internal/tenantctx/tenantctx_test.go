package tenantctx

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithScopeAndFromContext(t *testing.T) {
	ctx := WithScope(context.Background(), Scope{TenantID: "tenant-1", UserID: "user-1"})

	scope, err := FromContext(ctx)
	require.NoError(t, err)
	assert.Equal(t, "tenant-1", scope.TenantID)
	assert.Equal(t, "user-1", scope.UserID)
}

func TestFromContext_NoScope(t *testing.T) {
	_, err := FromContext(context.Background())
	assert.ErrorIs(t, err, ErrNoScope)
}

// A scope without a tenant is as useless as no scope at all.
func TestFromContext_EmptyTenant(t *testing.T) {
	ctx := WithScope(context.Background(), Scope{UserID: "user-1"})

	_, err := FromContext(ctx)
	assert.ErrorIs(t, err, ErrNoScope)
}

// Scopes nest per context: a child scope shadows the parent's without
// mutating it.
func TestWithScope_ChildShadowsParent(t *testing.T) {
	parent := WithScope(context.Background(), Scope{TenantID: "tenant-1", UserID: "user-1"})
	child := WithScope(parent, Scope{TenantID: "tenant-2", UserID: "user-2"})

	parentScope, err := FromContext(parent)
	require.NoError(t, err)
	assert.Equal(t, "tenant-1", parentScope.TenantID)

	childScope, err := FromContext(child)
	require.NoError(t, err)
	assert.Equal(t, "tenant-2", childScope.TenantID)
}
