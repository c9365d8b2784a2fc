// Package resettoken holds the single-use password-recovery token ledger.
// Tokens live for the configured TTL and expire lazily: there is no sweeper,
// an unusable entry is deleted the moment a consumer discovers it.
package resettoken

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	ErrTokenInvalid = errors.New("invalid reset token")
	ErrTokenExpired = errors.New("reset token has expired")
)

type entry struct {
	email     string
	expiresAt time.Time
}

// Store is a process-lifetime, concurrency-safe token ledger. All per-key
// operations run under one mutex, so concurrent consumes of the same token
// succeed at most once.
type Store struct {
	mu      sync.Mutex
	entries map[string]entry
	ttl     time.Duration
	now     func() time.Time
}

// New constructs a Store with the given token lifetime.
func New(ttl time.Duration) *Store {
	return &Store{
		entries: make(map[string]entry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Issue mints an opaque token bound to the account identifier.
func (s *Store) Issue(email string) (token string, expiresAt time.Time) {
	token = uuid.NewString()
	expiresAt = s.now().Add(s.ttl)

	s.mu.Lock()
	s.entries[token] = entry{email: email, expiresAt: expiresAt}
	s.mu.Unlock()
	return token, expiresAt
}

// Consume claims the token and returns the bound account identifier. A valid
// entry is removed before returning, unknown tokens fail with
// ErrTokenInvalid, and an expired entry is removed on discovery and fails
// with ErrTokenExpired.
func (s *Store) Consume(token string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[token]
	if !ok {
		return "", ErrTokenInvalid
	}
	delete(s.entries, token)

	if s.now().After(e.expiresAt) {
		return "", ErrTokenExpired
	}
	return e.email, nil
}

// Len reports the number of live entries.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
