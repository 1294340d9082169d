package util

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/app/storefront/entity"
)

func testUser() *entity.User {
	return &entity.User{
		ID:    uuid.New(),
		Email: "buyer@example.com",
		Role:  entity.RoleBuyer,
	}
}

func TestJWTManager_GenerateAccessToken_Success(t *testing.T) {
	jwtManager := NewJWTManager("test-secret-key", 15*time.Minute, 7*24*time.Hour)
	user := testUser()

	token, err := jwtManager.GenerateAccessToken(user)

	require.NoError(t, err)
	assert.NotEmpty(t, token)

	claims, err := jwtManager.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, user.Email, claims.Email)
	assert.Equal(t, entity.RoleBuyer, claims.Role)
	assert.Equal(t, TokenTypeAccess, claims.TokenType)
}

func TestJWTManager_GenerateRefreshToken_Success(t *testing.T) {
	jwtManager := NewJWTManager("test-secret-key", 15*time.Minute, 7*24*time.Hour)
	user := testUser()

	token, err := jwtManager.GenerateRefreshToken(user)

	require.NoError(t, err)

	claims, err := jwtManager.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, TokenTypeRefresh, claims.TokenType)
}

func TestJWTManager_ValidateToken_WrongSecret(t *testing.T) {
	jwtManager := NewJWTManager("test-secret-key", 15*time.Minute, 7*24*time.Hour)
	other := NewJWTManager("another-secret", 15*time.Minute, 7*24*time.Hour)

	token, err := jwtManager.GenerateAccessToken(testUser())
	require.NoError(t, err)

	claims, err := other.ValidateToken(token)

	assert.Error(t, err)
	assert.Nil(t, claims)
}

func TestJWTManager_ValidateToken_Expired(t *testing.T) {
	jwtManager := NewJWTManager("test-secret-key", -time.Minute, 7*24*time.Hour)

	token, err := jwtManager.GenerateAccessToken(testUser())
	require.NoError(t, err)

	claims, err := jwtManager.ValidateToken(token)

	assert.ErrorIs(t, err, ErrExpiredToken)
	assert.Nil(t, claims)
}

func TestJWTManager_ValidateToken_Garbage(t *testing.T) {
	jwtManager := NewJWTManager("test-secret-key", 15*time.Minute, 7*24*time.Hour)

	claims, err := jwtManager.ValidateToken("not-a-token")

	assert.Error(t, err)
	assert.Nil(t, claims)
}
