package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("password123")
	require.NoError(t, err)
	require.NotEmpty(t, hash)
	assert.NotEqual(t, "password123", hash)

	assert.True(t, VerifyPassword(hash, "password123"))
	assert.False(t, VerifyPassword(hash, "wrongpassword"))
	assert.False(t, VerifyPassword("not-a-bcrypt-hash", "password123"))
}

func TestHashPassword_Salted(t *testing.T) {
	first, err := HashPassword("password123")
	require.NoError(t, err)
	second, err := HashPassword("password123")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}
