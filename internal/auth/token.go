package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

// Default validity windows for one-time tokens. Overridable via config.
const (
	DefaultVerificationTTL = 24 * time.Hour
	DefaultResetTTL        = 1 * time.Hour
)

const opaqueTokenBytes = 32

// NewOpaqueToken returns a 64-character hex string read from the
// cryptographically secure random source. These back the email
// verification and password reset links.
//
// Uniqueness is enforced by the store's UNIQUE constraint at write time;
// at 256 bits a collision is not a practical concern, so the generator
// does not check for one.
func NewOpaqueToken() (string, error) {
	buf := make([]byte, opaqueTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("auth: generating token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// ExpiryTime returns the expiry timestamp for a token issued now with the
// given validity window.
func ExpiryTime(ttl time.Duration) time.Time {
	return time.Now().Add(ttl)
}

// IsExpired reports whether the given expiry has passed. A nil expiry is
// always expired: a token with no validity window on record is unusable,
// not unlimited.
func IsExpired(expiresAt *time.Time) bool {
	if expiresAt == nil {
		return true
	}
	return time.Now().After(*expiresAt)
}
