package sharetoken_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/retracehq/retrace/sharetoken"
)

const testSecret = "test-secret-0123456789"

// mintToken signs arbitrary claims for adversarial test tokens.
func mintToken(t *testing.T, method jwt.SigningMethod, secret string, claims jwt.RegisteredClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func TestNew(t *testing.T) {
	t.Run("error - empty secret", func(t *testing.T) {
		_, err := sharetoken.New("", time.Hour)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "share secret")
	})

	t.Run("defaults ttl when unset", func(t *testing.T) {
		issuer, err := sharetoken.New(testSecret, 0)
		require.NoError(t, err)
		assert.Equal(t, sharetoken.DefaultTTL, issuer.TTL())
	})

	t.Run("keeps configured ttl", func(t *testing.T) {
		issuer, err := sharetoken.New(testSecret, 2*time.Hour)
		require.NoError(t, err)
		assert.Equal(t, 2*time.Hour, issuer.TTL())
	})

	t.Run("error - ttl beyond maximum", func(t *testing.T) {
		_, err := sharetoken.New(testSecret, 8*24*time.Hour)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "maximum")
	})
}

func TestIssuer_RoundTrip(t *testing.T) {
	issuer, err := sharetoken.New(testSecret, time.Hour)
	require.NoError(t, err)

	sessionID := uuid.New()

	token, expiresAt, err := issuer.Issue(sessionID)
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

	got, err := issuer.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, sessionID, got)
}

func TestIssuer_Verify(t *testing.T) {
	issuer, err := sharetoken.New(testSecret, time.Hour)
	require.NoError(t, err)

	now := time.Now()

	t.Run("error - expired token", func(t *testing.T) {
		token := mintToken(t, jwt.SigningMethodHS256, testSecret, jwt.RegisteredClaims{
			Issuer:    "retrace",
			Subject:   uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now.Add(-2 * time.Hour)),
			ExpiresAt: jwt.NewNumericDate(now.Add(-time.Hour)),
		})

		_, err := issuer.Verify(token)
		assert.ErrorIs(t, err, sharetoken.ErrExpired)
	})

	t.Run("error - wrong signing key", func(t *testing.T) {
		token := mintToken(t, jwt.SigningMethodHS256, "some-other-secret", jwt.RegisteredClaims{
			Issuer:    "retrace",
			Subject:   uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		})

		_, err := issuer.Verify(token)
		assert.ErrorIs(t, err, sharetoken.ErrInvalid)
	})

	t.Run("error - foreign issuer", func(t *testing.T) {
		token := mintToken(t, jwt.SigningMethodHS256, testSecret, jwt.RegisteredClaims{
			Issuer:    "someone-else",
			Subject:   uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		})

		_, err := issuer.Verify(token)
		assert.ErrorIs(t, err, sharetoken.ErrInvalid)
	})

	t.Run("error - unexpected signing method", func(t *testing.T) {
		token := mintToken(t, jwt.SigningMethodHS512, testSecret, jwt.RegisteredClaims{
			Issuer:    "retrace",
			Subject:   uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		})

		_, err := issuer.Verify(token)
		assert.ErrorIs(t, err, sharetoken.ErrInvalid)
	})

	t.Run("error - missing expiry", func(t *testing.T) {
		token := mintToken(t, jwt.SigningMethodHS256, testSecret, jwt.RegisteredClaims{
			Issuer:   "retrace",
			Subject:  uuid.NewString(),
			IssuedAt: jwt.NewNumericDate(now),
		})

		_, err := issuer.Verify(token)
		assert.ErrorIs(t, err, sharetoken.ErrInvalid)
	})

	t.Run("error - subject is not a session id", func(t *testing.T) {
		token := mintToken(t, jwt.SigningMethodHS256, testSecret, jwt.RegisteredClaims{
			Issuer:    "retrace",
			Subject:   "not-a-uuid",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		})

		_, err := issuer.Verify(token)
		assert.ErrorIs(t, err, sharetoken.ErrInvalid)
	})

	t.Run("error - garbage input", func(t *testing.T) {
		_, err := issuer.Verify("not.a.jwt")
		assert.ErrorIs(t, err, sharetoken.ErrInvalid)
	})

	t.Run("error - empty input", func(t *testing.T) {
		_, err := issuer.Verify("")
		assert.ErrorIs(t, err, sharetoken.ErrInvalid)
	})
}
