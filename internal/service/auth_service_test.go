package service

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPasswordHashRoundTrip(t *testing.T) {
	hash, err := hashPassword("Secret123")
	require.NoError(t, err)

	assert.True(t, verifyPassword("Secret123", hash))
	assert.False(t, verifyPassword("secret123", hash))
	assert.False(t, verifyPassword("Secret123", "not-a-hash"))
}

func TestRegisterLoginAndAuthenticate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	auth := NewAuthService(env.users, "test-secret", time.Hour)

	resp, err := auth.Register(ctx, RegisterInput{
		Name:     "Ana",
		Email:    "  Ana@Example.com ",
		Password: "Secret123",
	})
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", resp.User.Email)
	assert.NotEmpty(t, resp.AccessToken)

	_, err = auth.Register(ctx, RegisterInput{Name: "Ana", Email: "ana@example.com", Password: "Secret123"})
	assert.ErrorIs(t, err, ErrEmailTaken)

	_, err = auth.Login(ctx, LoginInput{Email: "ana@example.com", Password: "wrong"})
	assert.ErrorIs(t, err, ErrInvalidCreds)

	login, err := auth.Login(ctx, LoginInput{Email: "ANA@example.com", Password: "Secret123"})
	require.NoError(t, err)

	id, err := auth.ParseToken(login.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, id)

	user, err := auth.Authenticate(ctx, login.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "Ana", user.Name)
}

func TestParseTokenRejectsForeignTokens(t *testing.T) {
	env := newTestEnv(t)
	auth := NewAuthService(env.users, "test-secret", time.Hour)

	other := NewAuthService(env.users, "other-secret", time.Hour)
	foreign, err := other.generateToken(uuid.New())
	require.NoError(t, err)
	_, err = auth.ParseToken(foreign)
	assert.ErrorIs(t, err, ErrInvalidToken)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": uuid.NewString()})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = auth.ParseToken(unsigned)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = auth.ParseToken("garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestAuthenticateUnknownSubject(t *testing.T) {
	env := newTestEnv(t)
	auth := NewAuthService(env.users, "test-secret", time.Hour)

	token, err := auth.generateToken(uuid.New())
	require.NoError(t, err)

	_, err = auth.Authenticate(context.Background(), token)
	assert.ErrorIs(t, err, ErrUnknownSubject)
}
