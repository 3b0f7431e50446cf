package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSession_InstallAndClear(t *testing.T) {
	s := New()

	_, ok := s.Token()
	assert.False(t, ok)

	identity := Identity{UserID: "user-1", TenantID: "tenant-1", Email: "a@acme.com"}
	s.Install("access-token", identity)

	token, ok := s.Token()
	require.True(t, ok)
	assert.Equal(t, "access-token", token)

	got, ok := s.Identity()
	require.True(t, ok)
	assert.Equal(t, identity, got)

	s.Clear()

	_, ok = s.Token()
	assert.False(t, ok)
	_, ok = s.Identity()
	assert.False(t, ok)
}

// A refresh result that lands after Clear must not resurrect the session.
func TestSession_ClearInvalidatesInFlightRefresh(t *testing.T) {
	s := New()
	s.Install("old-token", Identity{UserID: "user-1"})

	// Refresh starts: capture the epoch.
	epoch := s.Epoch()

	// Logout while the refresh is in flight.
	s.Clear()

	// The refresh completes late; its result is discarded.
	installed := s.InstallIfCurrent("fresh-token", Identity{UserID: "user-1"}, epoch)
	assert.False(t, installed)

	_, ok := s.Token()
	assert.False(t, ok)
}

func TestSession_InstallIfCurrent(t *testing.T) {
	s := New()

	epoch := s.Epoch()
	installed := s.InstallIfCurrent("fresh-token", Identity{UserID: "user-1"}, epoch)
	require.True(t, installed)

	token, ok := s.Token()
	require.True(t, ok)
	assert.Equal(t, "fresh-token", token)
}
