// Package sharetoken mints and verifies signed replay links.
//
// A share token is an HS256 JWT whose subject is the session id. Tokens
// expire; there is no revocation.
package sharetoken

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const issuerName = "retrace"

const (
	// DefaultTTL applies when no TTL is configured.
	DefaultTTL = 24 * time.Hour
	// MaxTTL bounds how long a share link can stay valid.
	MaxTTL = 7 * 24 * time.Hour
)

// ErrExpired is returned when a token's expiry has passed.
var ErrExpired = errors.New("share token expired")

// ErrInvalid is returned when a token fails any other check, such as a
// bad signature or a foreign issuer.
var ErrInvalid = errors.New("share token invalid")

// Issuer signs and verifies share tokens with a shared HMAC secret.
type Issuer struct {
	secret []byte
	ttl    time.Duration
}

// New creates an Issuer.
//
// Parameters:
//   - secret: HMAC signing key, must be non-empty
//   - ttl: token lifetime; 0 or negative selects DefaultTTL
//
// Returns:
//   - *Issuer: the configured issuer
//   - error: if the secret is empty or the TTL exceeds MaxTTL
func New(secret string, ttl time.Duration) (*Issuer, error) {
	if secret == "" {
		return nil, errors.New("share secret is required")
	}

	if ttl <= 0 {
		ttl = DefaultTTL
	}

	if ttl > MaxTTL {
		return nil, fmt.Errorf("share ttl %s exceeds maximum %s", ttl, MaxTTL)
	}

	return &Issuer{secret: []byte(secret), ttl: ttl}, nil
}

// TTL returns the configured token lifetime.
func (i *Issuer) TTL() time.Duration {
	return i.ttl
}

// Issue signs a token granting replay access to one session.
//
// Returns:
//   - string: the signed token
//   - time.Time: when the token expires
//   - error: signing errors
func (i *Issuer) Issue(sessionID uuid.UUID) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(i.ttl)

	claims := jwt.RegisteredClaims{
		Issuer:    issuerName,
		Subject:   sessionID.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign share token: %w", err)
	}

	return token, expiresAt, nil
}

// Verify checks a token and returns the session id it grants access to.
//
// Returns:
//   - uuid.UUID: the session id from the subject claim
//   - error: ErrExpired for expired tokens, ErrInvalid for everything else
func (i *Issuer) Verify(tokenStr string) (uuid.UUID, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(tokenStr, claims,
		func(t *jwt.Token) (any, error) { return i.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuerName),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return uuid.Nil, fmt.Errorf("%w: %w", ErrExpired, err)
		}
		return uuid.Nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}

	sessionID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: subject is not a session id", ErrInvalid)
	}

	return sessionID, nil
}
