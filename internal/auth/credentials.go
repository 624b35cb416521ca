// Package auth turns long-lived API key material into short-lived ES256
// bearer tokens accepted by the remote App Store Connect style API.
//
// The Issuer signs a fresh token on every call; CachingIssuer wraps any
// TokenSource and reuses a token until shortly before it expires. The
// signature itself is produced by a Signer, so keys may live on disk, in a
// hardware-backed store or behind an external signing process.
package auth

import (
	"fmt"
	"time"
)

// TokenLifetime is the fixed validity window of every issued token.
const TokenLifetime = 1200 * time.Second

// Credentials identify an API key. KeyRef is an opaque handle interpreted by
// the Signer (a path to a .p8 file for ECDSASigner).
type Credentials struct {
	KeyID    string
	IssuerID string
	KeyRef   string
}

// String never prints the issuer id or the key reference.
func (c Credentials) String() string {
	return fmt.Sprintf("Credentials(key_id=%s)", c.KeyID)
}

// AccessToken is a signed bearer token plus its validity window.
type AccessToken struct {
	Value     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// ValidAt reports whether the token can still be presented at now, keeping
// margin in reserve for clock skew and in-flight requests.
func (t AccessToken) ValidAt(now time.Time, margin time.Duration) bool {
	return t.Value != "" && now.Before(t.ExpiresAt.Add(-margin))
}

// String hides the token value.
func (t AccessToken) String() string {
	return fmt.Sprintf("AccessToken(expires_at=%s)", t.ExpiresAt.UTC().Format(time.RFC3339))
}
