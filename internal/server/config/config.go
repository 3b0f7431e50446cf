// Package config loads server configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Defaults. Access tokens are deliberately short lived: they are stateless
// and cannot be revoked before expiry, so minutes bound the damage of a
// stolen token. Refresh tokens live for days and are revocable.
const (
	DefaultAddr            = ":8080"
	DefaultDatabasePath    = "tenaplex.db"
	DefaultAccessTokenTTL  = 15 * time.Minute
	DefaultRefreshTokenTTL = 7 * 24 * time.Hour
	DefaultSweepInterval   = time.Hour
	DefaultRateLimit       = 300
	DefaultAuthRateLimit   = 10
	DefaultRateWindow      = time.Minute
)

// Config holds all server settings
type Config struct {
	Addr            string        // listen address
	DatabasePath    string        // SQLite file path
	JWTSecret       string        // HMAC signing secret, required
	AccessTokenTTL  time.Duration // access token lifetime
	RefreshTokenTTL time.Duration // refresh token lifetime
	SweepInterval   time.Duration // expired-token sweep period
	RateLimit       int           // requests per window per IP
	AuthRateLimit   int           // requests per window per IP on credential endpoints
	RateWindow      time.Duration
	CookieSecure    bool // Secure attribute on the refresh cookie
}

// Load builds a Config from environment variables, applying defaults.
// TENAPLEX_JWT_SECRET is the only required variable.
func Load() (*Config, error) {
	cfg := &Config{
		Addr:            envString("TENAPLEX_ADDR", DefaultAddr),
		DatabasePath:    envString("TENAPLEX_DB_PATH", DefaultDatabasePath),
		JWTSecret:       os.Getenv("TENAPLEX_JWT_SECRET"),
		AccessTokenTTL:  DefaultAccessTokenTTL,
		RefreshTokenTTL: DefaultRefreshTokenTTL,
		SweepInterval:   DefaultSweepInterval,
		RateLimit:       DefaultRateLimit,
		AuthRateLimit:   DefaultAuthRateLimit,
		RateWindow:      DefaultRateWindow,
		CookieSecure:    true,
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("TENAPLEX_JWT_SECRET is required")
	}
	if len(cfg.JWTSecret) < 32 {
		return nil, fmt.Errorf("TENAPLEX_JWT_SECRET must be at least 32 characters")
	}

	var err error
	if cfg.AccessTokenTTL, err = envDuration("TENAPLEX_ACCESS_TOKEN_TTL", cfg.AccessTokenTTL); err != nil {
		return nil, err
	}
	if cfg.RefreshTokenTTL, err = envDuration("TENAPLEX_REFRESH_TOKEN_TTL", cfg.RefreshTokenTTL); err != nil {
		return nil, err
	}
	if cfg.SweepInterval, err = envDuration("TENAPLEX_SWEEP_INTERVAL", cfg.SweepInterval); err != nil {
		return nil, err
	}
	if cfg.RateLimit, err = envInt("TENAPLEX_RATE_LIMIT", cfg.RateLimit); err != nil {
		return nil, err
	}
	if cfg.AuthRateLimit, err = envInt("TENAPLEX_AUTH_RATE_LIMIT", cfg.AuthRateLimit); err != nil {
		return nil, err
	}

	// Opt-out for plain-HTTP development only.
	if v := os.Getenv("TENAPLEX_COOKIE_INSECURE"); v == "1" || v == "true" {
		cfg.CookieSecure = false
	}

	return cfg, nil
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func envInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}
