package api

import (
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"
)

// SessionStore issues and validates short-lived session tokens. It is
// injected into the server rather than living in a package-level variable
// so its lifecycle is bound to the process wiring and tests can use their
// own instance.
type SessionStore struct {
	mu       sync.Mutex
	ttl      time.Duration
	now      func() time.Time
	sessions map[string]time.Time
}

// NewSessionStore creates a store whose tokens expire after ttl
func NewSessionStore(ttl time.Duration) *SessionStore {
	return &SessionStore{
		ttl:      ttl,
		now:      time.Now,
		sessions: make(map[string]time.Time),
	}
}

// Issue creates and returns a new session token
func (s *SessionStore) Issue() string {
	buf := make([]byte, 24)
	rand.Read(buf)
	token := hex.EncodeToString(buf)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[token] = s.now().Add(s.ttl)
	return token
}

// Valid reports whether token is a live session. Expired tokens are
// removed on sight.
func (s *SessionStore) Valid(token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	expiry, ok := s.sessions[token]
	if !ok {
		return false
	}
	if s.now().After(expiry) {
		delete(s.sessions, token)
		return false
	}
	return true
}

// Revoke removes a session if present
func (s *SessionStore) Revoke(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, token)
}
