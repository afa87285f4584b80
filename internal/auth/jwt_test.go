package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signed(t *testing.T, claims Claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("some-backend-secret"))
	require.NoError(t, err)
	return token
}

func TestInspect(t *testing.T) {
	exp := time.Now().Add(15 * time.Minute).Truncate(time.Second)
	token := signed(t, Claims{
		UserID: "u1",
		Role:   "ADMIN",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	})

	claims, err := Inspect(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, "ADMIN", claims.Role)

	got, err := ExpiresAt(token)
	require.NoError(t, err)
	assert.True(t, exp.Equal(got))
}

func TestExpiresAt_NoClaim(t *testing.T) {
	_, err := ExpiresAt(signed(t, Claims{UserID: "u1"}))
	require.ErrorIs(t, err, ErrNoExpiry)
}

func TestInspect_Garbage(t *testing.T) {
	_, err := Inspect("not-a-jwt")
	require.Error(t, err)
}
