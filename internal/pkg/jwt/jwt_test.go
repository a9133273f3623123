package jwt

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-for-testing"

func TestGenerateToken(t *testing.T) {
	t.Run("generate valid token", func(t *testing.T) {
		token, err := GenerateToken("alice@example.com", "user", testSecret, 24)

		require.NoError(t, err)
		assert.NotEmpty(t, token)

		claims, err := ParseToken(token, testSecret)
		require.NoError(t, err)
		assert.Equal(t, "alice@example.com", claims.Email)
		assert.Equal(t, "user", claims.Role)
		assert.Equal(t, "alice@example.com", claims.Subject)
	})

	t.Run("every token has its own id", func(t *testing.T) {
		token1, err := GenerateToken("alice@example.com", "user", testSecret, 24)
		require.NoError(t, err)
		token2, err := GenerateToken("alice@example.com", "user", testSecret, 24)
		require.NoError(t, err)

		assert.NotEqual(t, token1, token2)

		c1, _ := ParseToken(token1, testSecret)
		c2, _ := ParseToken(token2, testSecret)
		assert.NotEmpty(t, c1.ID)
		assert.NotEqual(t, c1.ID, c2.ID)
	})

	t.Run("admin role is carried", func(t *testing.T) {
		token, err := GenerateToken("root@example.com", "admin", testSecret, 1)
		require.NoError(t, err)

		claims, err := ParseToken(token, testSecret)
		require.NoError(t, err)
		assert.Equal(t, "admin", claims.Role)
	})
}

func TestParseToken(t *testing.T) {
	t.Run("parse valid token", func(t *testing.T) {
		token, _ := GenerateToken("bob@example.com", "user", testSecret, 24)

		claims, err := ParseToken(token, testSecret)

		require.NoError(t, err)
		assert.True(t, claims.ExpiresAt.After(time.Now()))
		assert.True(t, claims.IssuedAt.Before(time.Now().Add(time.Second)))
	})

	t.Run("parse token with wrong secret", func(t *testing.T) {
		token, _ := GenerateToken("bob@example.com", "user", testSecret, 24)

		claims, err := ParseToken(token, "wrong-secret")

		assert.ErrorIs(t, err, ErrInvalidToken)
		assert.Nil(t, claims)
	})

	t.Run("parse invalid token string", func(t *testing.T) {
		claims, err := ParseToken("invalid.token.string", testSecret)

		assert.ErrorIs(t, err, ErrInvalidToken)
		assert.Nil(t, claims)
	})

	t.Run("parse empty token", func(t *testing.T) {
		claims, err := ParseToken("", testSecret)

		assert.ErrorIs(t, err, ErrInvalidToken)
		assert.Nil(t, claims)
	})

	t.Run("parse expired token", func(t *testing.T) {
		claims := Claims{
			Email: "bob@example.com",
			RegisteredClaims: jwt.RegisteredClaims{
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
				IssuedAt:  jwt.NewNumericDate(time.Now().Add(-2 * time.Hour)),
				NotBefore: jwt.NewNumericDate(time.Now().Add(-2 * time.Hour)),
			},
		}
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
		tokenString, _ := token.SignedString([]byte(testSecret))

		result, err := ParseToken(tokenString, testSecret)

		assert.ErrorIs(t, err, ErrExpiredToken)
		assert.Nil(t, result)
	})

	t.Run("parse token with none signing method", func(t *testing.T) {
		claims := Claims{
			Email: "bob@example.com",
			Role:  "admin",
			RegisteredClaims: jwt.RegisteredClaims{
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		}
		token := jwt.NewWithClaims(jwt.SigningMethodNone, claims)
		tokenString, _ := token.SignedString(jwt.UnsafeAllowNoneSignatureType)

		result, err := ParseToken(tokenString, testSecret)

		assert.ErrorIs(t, err, ErrInvalidToken)
		assert.Nil(t, result)
	})
}

func TestClaims_Remaining(t *testing.T) {
	token, _ := GenerateToken("bob@example.com", "user", testSecret, 2)
	claims, err := ParseToken(token, testSecret)
	require.NoError(t, err)

	remaining := claims.Remaining()
	assert.Greater(t, remaining, time.Hour)
	assert.LessOrEqual(t, remaining, 2*time.Hour)

	assert.Equal(t, time.Duration(0), (&Claims{}).Remaining())
}

func TestErrors(t *testing.T) {
	assert.Equal(t, "invalid token", ErrInvalidToken.Error())
	assert.Equal(t, "token has expired", ErrExpiredToken.Error())
}
