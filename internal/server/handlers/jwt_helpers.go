package handlers

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token verification failure classes. Expired is the only one the client
// may answer with a silent refresh; the rest require re-authentication.
var (
	ErrTokenExpired   = errors.New("access token expired")
	ErrTokenMalformed = errors.New("access token malformed")
	ErrTokenInvalid   = errors.New("access token invalid")
)

// CustomClaims carries the verified identity of a request: who the caller
// is and, critically, which tenant every downstream query must be scoped to.
type CustomClaims struct {
	UserID   string `json:"user_id"`
	TenantID string `json:"tenant_id"`
	Email    string `json:"email"`
	jwt.RegisteredClaims
}

// JWTConfig holds JWT signing configuration
type JWTConfig struct {
	Secret          []byte
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
}

// clockSkewLeeway tolerates small clock differences when checking expiry
const clockSkewLeeway = 10 * time.Second

// GenerateAccessToken creates a new signed JWT access token.
// Pure function of its inputs plus the clock; nothing is persisted.
func GenerateAccessToken(cfg JWTConfig, userID, tenantID, email string) (string, error) {
	now := time.Now()

	claims := CustomClaims{
		UserID:   userID,
		TenantID: tenantID,
		Email:    email,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(cfg.AccessTokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    "tenaplex",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(cfg.Secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, nil
}

// ValidateAccessToken validates and parses a JWT access token.
// Returns ErrTokenExpired, ErrTokenMalformed or ErrTokenInvalid so callers
// can distinguish the refreshable case from garbage.
func ValidateAccessToken(cfg JWTConfig, tokenString string) (*CustomClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &CustomClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return cfg.Secret, nil
	}, jwt.WithLeeway(clockSkewLeeway))

	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrTokenExpired
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, ErrTokenMalformed
		default:
			return nil, ErrTokenInvalid
		}
	}

	claims, ok := token.Claims.(*CustomClaims)
	if !ok || !token.Valid {
		return nil, ErrTokenInvalid
	}

	if claims.UserID == "" || claims.TenantID == "" {
		return nil, ErrTokenInvalid
	}

	return claims, nil
}
