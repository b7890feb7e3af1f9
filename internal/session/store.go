// Package session owns bearer-token state. No other component issues,
// inspects, or revokes tokens; the rest of the system holds tokens by
// value only.
package session

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/finvault/bankcore/internal/domain"
)

const tokenBytes = 32

// Session tracks one issued token. Revocation is terminal; expiry is a
// read-time check derived from ExpiresAt, never a stored state.
type Session struct {
	Token     string
	UserID    int64
	IssuedAt  time.Time
	ExpiresAt time.Time // zero means no expiry
	Revoked   bool
}

// Store issues, validates, and revokes opaque bearer tokens.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*Session
	ttl      time.Duration

	now func() time.Time // overridable in tests
}

// NewStore creates a session store. ttl <= 0 disables expiry.
func NewStore(ttl time.Duration) *Store {
	return &Store{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		now:      time.Now,
	}
}

// Issue mints a cryptographically unguessable token bound to userID.
func (s *Store) Issue(userID int64) (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("token generation failed: %w", err)
	}
	token := hex.EncodeToString(buf)

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	sess := &Session{Token: token, UserID: userID, IssuedAt: now}
	if s.ttl > 0 {
		sess.ExpiresAt = now.Add(s.ttl)
	}
	s.sessions[token] = sess
	return token, nil
}

// Validate returns the user the token was issued to. A token is valid iff
// it exists, is not revoked, and has not expired.
func (s *Store) Validate(token string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[token]
	if !ok || sess.Revoked || s.expired(sess) {
		return 0, domain.ErrInvalidToken
	}
	return sess.UserID, nil
}

// Revoke permanently invalidates a token. Revoking a token that is not
// currently active fails: it no longer denotes a session, so a second
// revoke reports domain.ErrInvalidToken rather than succeeding.
func (s *Store) Revoke(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[token]
	if !ok || sess.Revoked || s.expired(sess) {
		return domain.ErrInvalidToken
	}
	sess.Revoked = true
	return nil
}

func (s *Store) expired(sess *Session) bool {
	return !sess.ExpiresAt.IsZero() && s.now().After(sess.ExpiresAt)
}
