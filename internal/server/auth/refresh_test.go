package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateRefreshToken(t *testing.T) {
	raw, hash, expiresAt, err := GenerateRefreshToken(time.Hour)
	require.NoError(t, err)

	assert.NotEmpty(t, raw)
	assert.Equal(t, HashRefreshToken(raw), hash)
	assert.NotEqual(t, raw, hash)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, time.Minute)

	// Tokens are unpredictable: two generations never collide.
	raw2, hash2, _, err := GenerateRefreshToken(time.Hour)
	require.NoError(t, err)
	assert.NotEqual(t, raw, raw2)
	assert.NotEqual(t, hash, hash2)
}

func TestHashRefreshToken_Deterministic(t *testing.T) {
	assert.Equal(t, HashRefreshToken("some-token"), HashRefreshToken("some-token"))
	assert.NotEqual(t, HashRefreshToken("some-token"), HashRefreshToken("other-token"))
	// hex SHA-256
	assert.Len(t, HashRefreshToken("some-token"), 64)
}
