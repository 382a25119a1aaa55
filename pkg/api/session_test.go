package api

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSessionStoreIssueAndValidate(t *testing.T) {
	store := NewSessionStore(time.Hour)
	token := store.Issue()
	assert.NotEmpty(t, token)
	assert.True(t, store.Valid(token))
	assert.False(t, store.Valid("unknown"))
}

func TestSessionStoreExpiry(t *testing.T) {
	store := NewSessionStore(time.Minute)
	current := time.Unix(1700000000, 0)
	store.now = func() time.Time { return current }

	token := store.Issue()
	assert.True(t, store.Valid(token))

	current = current.Add(2 * time.Minute)
	assert.False(t, store.Valid(token))
	// expired token is dropped, not resurrected
	current = time.Unix(1700000000, 0)
	assert.False(t, store.Valid(token))
}

func TestSessionStoreRevoke(t *testing.T) {
	store := NewSessionStore(time.Hour)
	token := store.Issue()
	store.Revoke(token)
	assert.False(t, store.Valid(token))
}

func TestSessionTokensAreUnique(t *testing.T) {
	store := NewSessionStore(time.Hour)
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		token := store.Issue()
		assert.False(t, seen[token])
		seen[token] = true
	}
}
