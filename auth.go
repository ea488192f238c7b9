package boxgate

import (
	"crypto/sha256"
	"crypto/subtle"
)

// TokenAuthenticator checks request tokens against one shared secret.
type TokenAuthenticator struct {
	secret string
}

// NewTokenAuthenticator returns an authenticator for secret. An empty secret
// rejects every token.
func NewTokenAuthenticator(secret string) *TokenAuthenticator {
	return &TokenAuthenticator{secret: secret}
}

// Configured reports whether a secret is set.
func (a *TokenAuthenticator) Configured() bool {
	return a != nil && a.secret != ""
}

// Authorize reports whether token matches the configured secret. Both sides
// are hashed first so the comparison always runs over equal lengths.
func (a *TokenAuthenticator) Authorize(token string) bool {
	if !a.Configured() || token == "" {
		return false
	}
	want := sha256.Sum256([]byte(a.secret))
	got := sha256.Sum256([]byte(token))
	return subtle.ConstantTimeCompare(want[:], got[:]) == 1
}
