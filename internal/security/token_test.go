package security

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "0123456789abcdef0123456789abcdef"

func TestTokenRoundTrip(t *testing.T) {
	m := NewTokenManager(secret, "motorent", time.Hour)

	token, err := m.GenerateAccessToken(3, 1, []string{RoleManager})
	require.NoError(t, err)

	claims, err := m.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, int32(3), claims.StaffID)
	assert.Equal(t, int32(1), claims.ShopID)
	assert.True(t, claims.HasRole(RoleManager))
	assert.False(t, claims.HasRole("owner"))
}

func TestValidateToken_Rejects(t *testing.T) {
	m := NewTokenManager(secret, "motorent", time.Hour).(*tokenManager)

	t.Run("expired", func(t *testing.T) {
		past := NewTokenManager(secret, "motorent", time.Minute).(*tokenManager)
		past.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
		token, err := past.GenerateAccessToken(3, 1, nil)
		require.NoError(t, err)

		_, err = m.ValidateToken(token)
		assert.ErrorIs(t, err, ErrExpiredToken)
	})

	t.Run("other secret", func(t *testing.T) {
		other := NewTokenManager("ffffffffffffffffffffffffffffffff", "motorent", time.Hour)
		token, err := other.GenerateAccessToken(3, 1, nil)
		require.NoError(t, err)

		_, err = m.ValidateToken(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("other issuer", func(t *testing.T) {
		other := NewTokenManager(secret, "someone-else", time.Hour)
		token, err := other.GenerateAccessToken(3, 1, nil)
		require.NoError(t, err)

		_, err = m.ValidateToken(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong type", func(t *testing.T) {
		claims := StaffClaims{
			StaffID: 3,
			Type:    "refresh",
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    "motorent",
				Audience:  jwt.ClaimStrings{"rental-api"},
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
		require.NoError(t, err)

		_, err = m.ValidateToken(token)
		assert.ErrorIs(t, err, ErrWrongTokenType)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := m.ValidateToken("not-a-token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}
