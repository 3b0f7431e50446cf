package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRefreshToken_Expired(t *testing.T) {
	now := time.Now()
	token := &RefreshToken{ExpiresAt: now.Add(time.Hour)}

	assert.False(t, token.Expired(now))
	assert.True(t, token.Expired(now.Add(2*time.Hour)))
}

// Password hashes and token hashes must never serialize, whatever struct
// ends up in a response body.
func TestSecretsNeverSerialized(t *testing.T) {
	user, err := json.Marshal(User{ID: "u1", PasswordHash: "bcrypt-hash"})
	require.NoError(t, err)
	assert.NotContains(t, string(user), "bcrypt-hash")

	token, err := json.Marshal(RefreshToken{ID: "t1", TokenHash: "sha256-hash"})
	require.NoError(t, err)
	assert.NotContains(t, string(token), "sha256-hash")
}
