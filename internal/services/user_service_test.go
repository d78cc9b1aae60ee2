package services

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUserService(t *testing.T, name string) *UserService {
	t.Helper()
	return NewUserService(newTestDB(t, name), "test-secret", time.Hour)
}

func TestRegisterAndLogin(t *testing.T) {
	svc := newUserService(t, "reg_login")
	ctx := context.Background()

	u, err := svc.Register(ctx, "  Ada@Example.com ", "Ada", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", u.Email)
	assert.Equal(t, "Ada", u.DisplayName)
	assert.NotEqual(t, "correct horse", u.PasswordHash)

	got, token, err := svc.Login(ctx, "ADA@example.com", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.NotEmpty(t, token)

	id, err := svc.VerifyToken(token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, id)
}

func TestRegisterValidation(t *testing.T) {
	svc := newUserService(t, "reg_val")
	ctx := context.Background()

	_, err := svc.Register(ctx, "not-an-email", "Ada", "long enough")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Register(ctx, "ada@example.com", "   ", "long enough")
	assert.ErrorIs(t, err, ErrDisplayNameRequired)

	_, err = svc.Register(ctx, "ada@example.com", "Ada", "short")
	assert.ErrorIs(t, err, ErrWeakPassword)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc := newUserService(t, "reg_dup")
	ctx := context.Background()

	_, err := svc.Register(ctx, "ada@example.com", "Ada", "correct horse")
	require.NoError(t, err)
	_, err = svc.Register(ctx, "ada@example.com", "Other", "battery staple")
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	svc := newUserService(t, "login_bad")
	ctx := context.Background()

	_, err := svc.Register(ctx, "ada@example.com", "Ada", "correct horse")
	require.NoError(t, err)

	_, _, err = svc.Login(ctx, "ada@example.com", "wrong password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, err = svc.Login(ctx, "nobody@example.com", "correct horse")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestVerifyTokenExpiry(t *testing.T) {
	svc := newUserService(t, "token_exp")
	ctx := context.Background()

	issued := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.Now = func() time.Time { return issued }

	_, err := svc.Register(ctx, "ada@example.com", "Ada", "correct horse")
	require.NoError(t, err)
	_, token, err := svc.Login(ctx, "ada@example.com", "correct horse")
	require.NoError(t, err)

	_, err = svc.VerifyToken(token)
	require.NoError(t, err)

	svc.Now = func() time.Time { return issued.Add(2 * time.Hour) }
	_, err = svc.VerifyToken(token)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestVerifyTokenGarbage(t *testing.T) {
	svc := newUserService(t, "token_bad")
	_, err := svc.VerifyToken("not.a.token")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestProfileLifecycle(t *testing.T) {
	svc := newUserService(t, "profile")
	ctx := context.Background()

	u, err := svc.Register(ctx, "ada@example.com", "Ada", "correct horse")
	require.NoError(t, err)

	got, err := svc.Profile(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ada", got.DisplayName)

	got, err = svc.UpdateDisplayName(ctx, u.ID, "Ada Lovelace")
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", got.DisplayName)

	_, err = svc.UpdateDisplayName(ctx, u.ID, "  ")
	assert.ErrorIs(t, err, ErrDisplayNameRequired)

	_, err = svc.Profile(ctx, "missing")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestChangePassword(t *testing.T) {
	svc := newUserService(t, "chpass")
	ctx := context.Background()

	u, err := svc.Register(ctx, "ada@example.com", "Ada", "correct horse")
	require.NoError(t, err)

	err = svc.ChangePassword(ctx, u.ID, "wrong", "battery staple")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	err = svc.ChangePassword(ctx, u.ID, "correct horse", "short")
	assert.ErrorIs(t, err, ErrWeakPassword)

	require.NoError(t, svc.ChangePassword(ctx, u.ID, "correct horse", "battery staple"))

	_, _, err = svc.Login(ctx, "ada@example.com", "correct horse")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, _, err = svc.Login(ctx, "ada@example.com", "battery staple")
	assert.NoError(t, err)
}

func TestVerifyTokenEmptySecret(t *testing.T) {
	// A token HS256-signed with an empty key must never verify, even when
	// the service itself carries an empty key: accepting it would let
	// anyone mint tokens for arbitrary user ids.
	forged := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "victim-user-id",
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	signed, err := forged.SignedString([]byte(""))
	require.NoError(t, err)

	svc := NewUserService(newTestDB(t, "empty_secret"), "", time.Hour)
	_, err = svc.VerifyToken(signed)
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	// Login refuses to issue tokens without a signing key.
	_, regErr := svc.Register(context.Background(), "ada@example.com", "Ada", "correct horse")
	require.NoError(t, regErr)
	_, _, err = svc.Login(context.Background(), "ada@example.com", "correct horse")
	assert.Error(t, err)
}
