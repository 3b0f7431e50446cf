// Package tenantctx carries the verified tenant identity of a request.
//
// The scope is installed once by the auth middleware after token
// verification and read by the storage layer before every tenant-scoped
// query. It lives only in the request's context.Context, never in package
// state, so concurrent requests for different tenants cannot observe each
// other's scope.
package tenantctx

import (
	"context"
	"errors"
)

// ErrNoScope is returned when a tenant-scoped operation runs without an
// installed scope. This is a wiring bug, not a user error: storage must
// refuse to execute rather than silently query unscoped.
var ErrNoScope = errors.New("no tenant scope in context")

// Scope is the resolved identity of one request.
type Scope struct {
	TenantID string
	UserID   string
}

type scopeKey struct{}

// WithScope returns a child context carrying the given scope.
func WithScope(ctx context.Context, scope Scope) context.Context {
	return context.WithValue(ctx, scopeKey{}, scope)
}

// FromContext extracts the scope installed by the auth middleware.
// Returns ErrNoScope if the request was never authenticated.
func FromContext(ctx context.Context) (Scope, error) {
	scope, ok := ctx.Value(scopeKey{}).(Scope)
	if !ok || scope.TenantID == "" {
		return Scope{}, ErrNoScope
	}
	return scope, nil
}
