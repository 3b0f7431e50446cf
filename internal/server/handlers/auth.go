package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/tenaplex/tenaplex/internal/models"
	"github.com/tenaplex/tenaplex/internal/server/auth"
	"github.com/tenaplex/tenaplex/internal/server/storage"
	"github.com/tenaplex/tenaplex/internal/validation"
	"github.com/tenaplex/tenaplex/pkg/api"
)

// RefreshCookieName is the cookie carrying the raw refresh token.
// The token never appears in a JSON body, so script cannot read it.
const RefreshCookieName = "refresh_token"

// refreshCookiePath limits the cookie to the auth endpoints that need it
// (refresh and logout).
const refreshCookiePath = "/auth"

// AuthHandler handles registration, login, token refresh and logout
type AuthHandler struct {
	logger       *slog.Logger
	tenants      storage.TenantStorage
	users        storage.UserStorage
	tokens       storage.TokenStorage
	jwtConfig    JWTConfig
	cookieSecure bool
}

// NewAuthHandler creates a new auth handler.
// cookieSecure should be true everywhere except plain-HTTP development.
func NewAuthHandler(
	logger *slog.Logger,
	tenants storage.TenantStorage,
	users storage.UserStorage,
	tokens storage.TokenStorage,
	jwtConfig JWTConfig,
	cookieSecure bool,
) *AuthHandler {
	return &AuthHandler{
		logger:       logger,
		tenants:      tenants,
		users:        users,
		tokens:       tokens,
		jwtConfig:    jwtConfig,
		cookieSecure: cookieSecure,
	}
}

// Tenants handles GET /auth/tenants
// Public list of tenants for the registration dropdown.
func (h *AuthHandler) Tenants(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	tenants, err := h.tenants.ListTenants(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list tenants", slog.Any("error", err))
		h.sendError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	resp := make([]api.TenantResponse, 0, len(tenants))
	for _, t := range tenants {
		resp = append(resp, api.TenantResponse{ID: t.ID, Name: t.Name})
	}

	h.sendJSON(w, resp, http.StatusOK)
}

// Register handles POST /auth/register
// Creates the account, then issues the same token pair as login.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.ErrorContext(ctx, "failed to decode register request", slog.Any("error", err))
		h.sendError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := validation.ValidateEmail(req.Email); err != nil {
		h.sendError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := validation.ValidatePassword(req.Password); err != nil {
		h.sendError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.TenantID == "" {
		h.sendError(w, "tenant_id is required", http.StatusBadRequest)
		return
	}

	passwordHash, err := auth.HashPassword(req.Password)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to hash password", slog.Any("error", err))
		h.sendError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	user := &models.User{
		ID:           uuid.New().String(),
		TenantID:     req.TenantID,
		Email:        req.Email,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now(),
	}

	if err := h.users.CreateUser(ctx, user); err != nil {
		switch {
		case errors.Is(err, storage.ErrEmailTaken):
			h.logger.WarnContext(ctx, "registration with taken email")
			h.sendError(w, "email already registered", http.StatusConflict)
		case errors.Is(err, storage.ErrTenantNotFound):
			h.logger.WarnContext(ctx, "registration with unknown tenant", slog.String("tenant_id", req.TenantID))
			h.sendError(w, "invalid tenant", http.StatusBadRequest)
		default:
			h.logger.ErrorContext(ctx, "failed to create user", slog.Any("error", err))
			h.sendError(w, "internal server error", http.StatusInternalServerError)
		}
		return
	}

	h.logger.InfoContext(ctx, "user registered",
		slog.String("user_id", user.ID),
		slog.String("tenant_id", user.TenantID))

	h.issueSession(w, r, user)
}

// Login handles POST /auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.ErrorContext(ctx, "failed to decode login request", slog.Any("error", err))
		h.sendError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	user, err := h.users.GetUserByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			// Burn a bcrypt compare so this path is not measurably faster
			// than a wrong password, then report the same generic error.
			auth.BurnPasswordCheck(req.Password)
			h.logger.WarnContext(ctx, "login failed: unknown email")
			h.sendError(w, "invalid credentials", http.StatusUnauthorized)
			return
		}
		h.logger.ErrorContext(ctx, "failed to get user", slog.Any("error", err))
		h.sendError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	if !auth.VerifyPassword(user.PasswordHash, req.Password) {
		h.logger.WarnContext(ctx, "login failed: wrong password", slog.String("user_id", user.ID))
		h.sendError(w, "invalid credentials", http.StatusUnauthorized)
		return
	}

	h.logger.InfoContext(ctx, "user logged in",
		slog.String("user_id", user.ID),
		slog.String("tenant_id", user.TenantID))

	h.issueSession(w, r, user)
}

// Refresh handles POST /auth/refresh
// Exchanges the refresh cookie for a new access token, rotating the
// refresh token in the same storage transaction.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	cookie, err := r.Cookie(RefreshCookieName)
	if err != nil || cookie.Value == "" {
		h.sendError(w, "no refresh token provided", http.StatusUnauthorized)
		return
	}

	oldHash := auth.HashRefreshToken(cookie.Value)

	stored, err := h.tokens.GetRefreshToken(ctx, oldHash)
	if err != nil {
		if errors.Is(err, storage.ErrTokenNotFound) {
			h.logger.WarnContext(ctx, "refresh with unknown token")
			h.sendError(w, "invalid refresh token", http.StatusUnauthorized)
			return
		}
		h.logger.ErrorContext(ctx, "failed to get refresh token", slog.Any("error", err))
		h.sendError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	user, err := h.users.GetUserByID(ctx, stored.UserID)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to get user for refresh", slog.Any("error", err))
		h.sendError(w, "invalid refresh token", http.StatusUnauthorized)
		return
	}

	newRaw, newHash, newExpiresAt, err := auth.GenerateRefreshToken(h.jwtConfig.RefreshTokenTTL)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to generate refresh token", slog.Any("error", err))
		h.sendError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	successor := &models.RefreshToken{
		ID:        uuid.New().String(),
		UserID:    stored.UserID,
		TokenHash: newHash,
		Status:    models.TokenStatusActive,
		ExpiresAt: newExpiresAt,
		CreatedAt: time.Now(),
	}

	if err := h.tokens.RotateRefreshToken(ctx, oldHash, successor); err != nil {
		switch {
		case errors.Is(err, storage.ErrTokenRotated):
			// The token was already rotated: either theft or a client that
			// lost a refresh race. Revoke the whole chain; whoever holds the
			// successor must re-authenticate.
			revoked, revokeErr := h.tokens.RevokeUserTokens(ctx, stored.UserID)
			if revokeErr != nil {
				h.logger.ErrorContext(ctx, "defensive revocation failed", slog.Any("error", revokeErr))
			}
			h.logger.WarnContext(ctx, "refresh token reuse detected, chain revoked",
				slog.String("user_id", stored.UserID),
				slog.Int("tokens_revoked", revoked))
			h.sendError(w, "invalid refresh token", http.StatusUnauthorized)
		case errors.Is(err, storage.ErrTokenExpired):
			h.logger.WarnContext(ctx, "refresh token expired", slog.String("user_id", stored.UserID))
			h.sendError(w, "refresh token expired", http.StatusUnauthorized)
		case errors.Is(err, storage.ErrTokenNotFound):
			h.sendError(w, "invalid refresh token", http.StatusUnauthorized)
		default:
			h.logger.ErrorContext(ctx, "failed to rotate refresh token", slog.Any("error", err))
			h.sendError(w, "internal server error", http.StatusInternalServerError)
		}
		return
	}

	accessToken, err := GenerateAccessToken(h.jwtConfig, user.ID, user.TenantID, user.Email)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to generate access token", slog.Any("error", err))
		h.sendError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	h.logger.InfoContext(ctx, "tokens refreshed", slog.String("user_id", user.ID))

	h.setRefreshCookie(w, newRaw, newExpiresAt)
	h.sendJSON(w, api.TokenResponse{
		AccessToken: accessToken,
		TokenType:   "bearer",
		UserID:      user.ID,
		TenantID:    user.TenantID,
		Email:       user.Email,
	}, http.StatusOK)
}

// Logout handles POST /auth/logout
// Revokes the refresh token and clears the cookie. Idempotent: an absent
// or already-invalid cookie still yields 204.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if cookie, err := r.Cookie(RefreshCookieName); err == nil && cookie.Value != "" {
		hash := auth.HashRefreshToken(cookie.Value)
		if err := h.tokens.RevokeRefreshToken(ctx, hash); err != nil {
			// Logout must still succeed; the sweeper will catch the record.
			h.logger.WarnContext(ctx, "failed to revoke refresh token on logout", slog.Any("error", err))
		} else {
			h.logger.InfoContext(ctx, "user logged out")
		}
	}

	h.clearRefreshCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

// issueSession mints the access token and the initial refresh token for a
// freshly verified user, shared by register and login.
func (h *AuthHandler) issueSession(w http.ResponseWriter, r *http.Request, user *models.User) {
	ctx := r.Context()

	accessToken, err := GenerateAccessToken(h.jwtConfig, user.ID, user.TenantID, user.Email)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to generate access token", slog.Any("error", err))
		h.sendError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	rawRefresh, refreshHash, expiresAt, err := auth.GenerateRefreshToken(h.jwtConfig.RefreshTokenTTL)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to generate refresh token", slog.Any("error", err))
		h.sendError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	token := &models.RefreshToken{
		ID:        uuid.New().String(),
		UserID:    user.ID,
		TokenHash: refreshHash,
		Status:    models.TokenStatusActive,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now(),
	}

	if err := h.tokens.SaveRefreshToken(ctx, token); err != nil {
		h.logger.ErrorContext(ctx, "failed to save refresh token", slog.Any("error", err))
		h.sendError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	h.setRefreshCookie(w, rawRefresh, expiresAt)
	h.sendJSON(w, api.TokenResponse{
		AccessToken: accessToken,
		TokenType:   "bearer",
		UserID:      user.ID,
		TenantID:    user.TenantID,
		Email:       user.Email,
	}, http.StatusOK)
}

func (h *AuthHandler) setRefreshCookie(w http.ResponseWriter, raw string, expiresAt time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     RefreshCookieName,
		Value:    raw,
		Path:     refreshCookiePath,
		Expires:  expiresAt,
		MaxAge:   int(time.Until(expiresAt).Seconds()),
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteStrictMode,
	})
}

func (h *AuthHandler) clearRefreshCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     RefreshCookieName,
		Value:    "",
		Path:     refreshCookiePath,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteStrictMode,
	})
}

// sendJSON writes a JSON response
func (h *AuthHandler) sendJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	sendJSON(h.logger, w, data, statusCode)
}

// sendError writes a JSON error response
func (h *AuthHandler) sendError(w http.ResponseWriter, message string, statusCode int) {
	sendError(h.logger, w, message, statusCode)
}

func sendJSON(logger *slog.Logger, w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("failed to encode JSON response", slog.Any("error", err))
	}
}

func sendError(logger *slog.Logger, w http.ResponseWriter, message string, statusCode int) {
	resp := api.ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
	}
	sendJSON(logger, w, resp, statusCode)
}
