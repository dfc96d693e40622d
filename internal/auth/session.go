package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned by Validate for any token that cannot be
// accepted: malformed, wrong signature, wrong issuer, or expired.
// Validation fails closed — there is no partial success.
var ErrInvalidToken = errors.New("auth: invalid token")

const (
	issuer = "tasktrail"

	// DefaultSessionTTL is the session token lifetime when no override is
	// configured. Expiry is enforced inside the token itself, not by a
	// server-side session record.
	DefaultSessionTTL = 7 * 24 * time.Hour
)

// TokenService issues and validates session tokens.
//
// Sessions are HMAC-SHA256 signed JWTs carrying the account id in the
// "sub" claim plus issued-at and expiry. The signature is the whole point:
// a self-describing but unsigned token would let anyone fabricate a
// session for an arbitrary account.
type TokenService struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenService creates a TokenService with the given signing secret and
// session lifetime. The secret is process-wide configuration loaded once
// at startup; generate with e.g. `openssl rand -hex 32`.
func NewTokenService(secret string, ttl time.Duration) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: session secret must be at least 16 characters")
	}
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &TokenService{secret: []byte(secret), ttl: ttl}, nil
}

type sessionClaims struct {
	jwt.RegisteredClaims
}

// Issue creates and signs a session token bound to the given account id.
func (s *TokenService) Issue(userID string) (string, error) {
	if userID == "" {
		return "", errors.New("auth: user ID must not be empty")
	}

	now := time.Now()
	c := sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			Issuer:    issuer,
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}

	return signed, nil
}

// IssueWithDuration creates a token with a custom lifetime. Used by tests
// to produce already-expired tokens.
func (s *TokenService) IssueWithDuration(userID string, d time.Duration) (string, error) {
	now := time.Now()
	c := sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(d)),
			Issuer:    issuer,
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}

	return signed, nil
}

// Validate parses and verifies a session token and returns the account id
// it is bound to. Any failure — empty input, bad signature, expiry,
// unexpected algorithm, missing subject — yields ErrInvalidToken; the
// caller never sees a panic or a partially-validated identity.
//
// Restricting the accepted algorithms to HS256 guards against algorithm
// confusion (a token claiming alg "none" is rejected outright).
func (s *TokenService) Validate(tokenStr string) (string, error) {
	if tokenStr == "" {
		return "", ErrInvalidToken
	}

	token, err := jwt.ParseWithClaims(
		tokenStr,
		&sessionClaims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", fmt.Errorf("%w: expired", ErrInvalidToken)
		}
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	c, ok := token.Claims.(*sessionClaims)
	if !ok || !token.Valid || c.Subject == "" {
		return "", ErrInvalidToken
	}

	return c.Subject, nil
}
