package middleware

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/tenaplex/tenaplex/internal/server/handlers"
	"github.com/tenaplex/tenaplex/internal/tenantctx"
	"github.com/tenaplex/tenaplex/pkg/api"
)

// AuthMiddleware verifies the bearer access token and installs the
// resolved tenant scope into the request context.
//
// This is the single place where tenant identity enters a request. The
// scope lives only in that request's context, so concurrent requests for
// different tenants can never observe each other's scope. Every scoped
// storage call downstream re-reads it via tenantctx.FromContext.
func AuthMiddleware(logger *slog.Logger, jwtConfig handlers.JWTConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				logger.Warn("missing Authorization header", "path", r.URL.Path)
				unauthorized(w, "missing token", false)
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				logger.Warn("invalid Authorization header format")
				unauthorized(w, "invalid token format", false)
				return
			}

			claims, err := handlers.ValidateAccessToken(jwtConfig, parts[1])
			if err != nil {
				expired := errors.Is(err, handlers.ErrTokenExpired)
				logger.Warn("invalid access token", "error", err, "expired", expired)
				unauthorized(w, "invalid or expired token", expired)
				return
			}

			ctx := tenantctx.WithScope(r.Context(), tenantctx.Scope{
				TenantID: claims.TenantID,
				UserID:   claims.UserID,
			})

			logger.Debug("request authenticated",
				"user_id", claims.UserID, "tenant_id", claims.TenantID)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// unauthorized writes a 401. Expired tokens additionally carry the
// "token_expired" error code the client's refresh path keys on, so only a
// genuinely refreshable failure triggers a refresh attempt.
func unauthorized(w http.ResponseWriter, message string, expired bool) {
	code := "unauthorized"
	if expired {
		code = "token_expired"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(api.ErrorResponse{
		Error:   code,
		Message: message,
	})
}
