package auth

import (
	"testing"
	"time"

	"LinkCut-Backend/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestJWTService(duration time.Duration) *JWTService {
	return NewJWTService(&config.Auth{
		SecretKey:     "test-secret-key",
		TokenDuration: duration,
		Issuer:        "LinkCut-Test",
	})
}

func TestJWT_GenerateAndValidate(t *testing.T) {
	svc := newTestJWTService(time.Hour)

	token, err := svc.GenerateAccessToken(42, "alice")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserID)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, "alice", claims.Subject)
	assert.Equal(t, "LinkCut-Test", claims.Issuer)
}

func TestJWT_ExpiredToken(t *testing.T) {
	svc := newTestJWTService(-time.Minute)

	token, err := svc.GenerateAccessToken(1, "bob")
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestJWT_WrongSecret(t *testing.T) {
	token, err := newTestJWTService(time.Hour).GenerateAccessToken(1, "bob")
	require.NoError(t, err)

	other := NewJWTService(&config.Auth{
		SecretKey:     "a-different-secret",
		TokenDuration: time.Hour,
		Issuer:        "LinkCut-Test",
	})

	_, err = other.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWT_GarbageToken(t *testing.T) {
	svc := newTestJWTService(time.Hour)

	for _, token := range []string{"", "not-a-token", "a.b.c"} {
		_, err := svc.ValidateToken(token)
		assert.ErrorIs(t, err, ErrInvalidToken, "token=%q", token)
	}
}

func TestExtractTokenFromBearer(t *testing.T) {
	assert.Equal(t, "abc", ExtractTokenFromBearer("Bearer abc"))
	assert.Empty(t, ExtractTokenFromBearer("abc"))
	assert.Empty(t, ExtractTokenFromBearer("Bearer"))
	assert.Empty(t, ExtractTokenFromBearer(""))
	assert.Empty(t, ExtractTokenFromBearer("Basic dXNlcjpwYXNz"))
}

func TestPasswordService_HashAndVerify(t *testing.T) {
	svc := NewPasswordServiceWithCost(4) // минимальная сложность, чтобы тест был быстрым

	hash, err := svc.HashPassword("s3cret-pass")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret-pass", hash)

	assert.NoError(t, svc.VerifyPassword(hash, "s3cret-pass"))
	assert.Error(t, svc.VerifyPassword(hash, "wrong-pass"))
}

func TestPasswordService_EmptyPassword(t *testing.T) {
	svc := NewPasswordServiceWithCost(4)

	_, err := svc.HashPassword("")
	assert.ErrorIs(t, err, ErrInvalidPassword)
}

func TestIsValidPassword(t *testing.T) {
	assert.Error(t, IsValidPassword("short"))
	assert.NoError(t, IsValidPassword("longenough"))
	assert.Error(t, IsValidPassword(string(make([]byte, 129))))
}
