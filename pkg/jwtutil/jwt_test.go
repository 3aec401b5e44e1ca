package jwtutil

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndValidate(t *testing.T) {
	j := NewJWTUtil(&JWTConfig{SigningKey: "secret", ExpirationHours: 168})

	token, err := j.GenerateToken("owner-1", RoleOwner, "Asha", "A-101")
	require.NoError(t, err)

	claims, err := j.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "owner-1", claims.ID)
	assert.Equal(t, RoleOwner, claims.Role)
	assert.Equal(t, "Asha", claims.Name)
	assert.Equal(t, "A-101", claims.FlatNo)
	assert.WithinDuration(t, time.Now().Add(7*24*time.Hour), claims.ExpiresAt.Time, time.Minute)
}

func TestValidateRejectsWrongKey(t *testing.T) {
	token, err := NewJWTUtil(&JWTConfig{SigningKey: "one", ExpirationHours: 1}).GenerateToken("a", RoleAdmin, "Admin", "")
	require.NoError(t, err)

	_, err = NewJWTUtil(&JWTConfig{SigningKey: "two", ExpirationHours: 1}).ValidateToken(token)
	assert.ErrorIs(t, err, jwt.ErrTokenSignatureInvalid)
}

func TestValidateRejectsExpired(t *testing.T) {
	j := NewJWTUtil(&JWTConfig{SigningKey: "secret", ExpirationHours: 1})
	j.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	token, err := j.GenerateToken("a", RoleAdmin, "Admin", "")
	require.NoError(t, err)

	_, err = NewJWTUtil(&JWTConfig{SigningKey: "secret", ExpirationHours: 1}).ValidateToken(token)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestValidateRejectsUnknownRole(t *testing.T) {
	j := NewJWTUtil(&JWTConfig{SigningKey: "secret", ExpirationHours: 1})
	token, err := j.GenerateToken("a", "superuser", "Root", "")
	require.NoError(t, err)

	_, err = j.ValidateToken(token)
	assert.Error(t, err)
}

func TestGenerateWithoutKey(t *testing.T) {
	_, err := NewJWTUtil(&JWTConfig{}).GenerateToken("a", RoleAdmin, "Admin", "")
	assert.Error(t, err)
}
