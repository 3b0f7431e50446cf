// Package session holds the client's access token in volatile memory.
//
// The token is deliberately never written to disk: a process restart (the
// "page reload") loses it, and the client must silently refresh using the
// cookie or send the user back to login. Only the refresh cookie persists,
// in the cookie jar.
package session

import "sync"

// Identity is the authenticated identity the session belongs to.
type Identity struct {
	UserID   string
	TenantID string
	Email    string
}

// Session is the in-memory token holder. Safe for concurrent use.
//
// The epoch counter guards against resurrection: Clear bumps it, and a
// refresh that started before the Clear will fail its InstallIfCurrent
// because it carries a stale epoch.
type Session struct {
	mu       sync.Mutex
	token    string
	identity Identity
	epoch    uint64
}

// New creates an empty session.
func New() *Session {
	return &Session{}
}

// Install stores a fresh access token and identity.
func (s *Session) Install(token string, identity Identity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	s.identity = identity
}

// Token returns the current access token, and whether one is present.
func (s *Session) Token() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token, s.token != ""
}

// Identity returns the identity of the current session.
func (s *Session) Identity() (Identity, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.identity, s.token != ""
}

// Epoch returns the current session epoch. Capture it before starting a
// refresh and pass it to InstallIfCurrent when the refresh completes.
func (s *Session) Epoch() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.epoch
}

// InstallIfCurrent stores the token only if the session has not been
// cleared since epoch was captured. Returns false when the result arrived
// too late and was discarded.
func (s *Session) InstallIfCurrent(token string, identity Identity, epoch uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch != epoch {
		return false
	}
	s.token = token
	s.identity = identity
	return true
}

// Clear wipes the session and invalidates any in-flight refresh result.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	s.identity = Identity{}
	s.epoch++
}
