// Package auth keeps the bearer token issued by the platform at login and
// answers questions about it. The client never validates the signature (it
// holds no key); it only inspects the claims.
package auth

import (
	"fmt"
	"sync"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

// Store holds the current session token. The zero value is an empty store.
type Store struct {
	mu    sync.RWMutex
	token string
}

// SetToken replaces the stored token. Called after a successful login.
func (s *Store) SetToken(token string) {
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
}

// Token returns the stored token, or "" when the user is not logged in.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Clear forgets the token. Called on logout.
func (s *Store) Clear() {
	s.mu.Lock()
	s.token = ""
	s.mu.Unlock()
}

// Subject returns the token's subject claim (the logged-in user's email on
// this platform).
func (s *Store) Subject() (string, error) {
	claims, err := s.claims()
	if err != nil {
		return "", err
	}
	subject, err := claims.GetSubject()
	if err != nil {
		return "", fmt.Errorf("auth: token has no subject: %w", err)
	}
	return subject, nil
}

// Expired reports whether the stored token carries an exp claim in the past.
// An absent token or an unparseable one counts as expired.
func (s *Store) Expired() bool {
	claims, err := s.claims()
	if err != nil {
		return true
	}
	expiry, err := claims.GetExpirationTime()
	if err != nil || expiry == nil {
		// No exp claim: treat the token as non-expiring.
		return false
	}
	return expiry.Before(time.Now())
}

func (s *Store) claims() (jwt.MapClaims, error) {
	token := s.Token()
	if token == "" {
		return nil, fmt.Errorf("auth: no token stored")
	}

	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("auth: parse token: %w", err)
	}
	return claims, nil
}
