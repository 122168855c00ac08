package session_test

import (
	"testing"
	"time"

	"github.com/kumado/kumado/internal/model"
	"github.com/kumado/kumado/internal/server/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var user = &model.User{
	Base:     model.Base{ID: "01ARZ3NDEKTSV4RRFFQ69G5FAV"},
	Username: "george",
}

func TestAccessTokenRoundTrip(t *testing.T) {
	m := session.NewManager([]byte("secret"), time.Hour, 24*time.Hour)

	token, expiresAt, err := m.AccessToken(user)
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, time.Minute)

	claims, err := m.ParseAccessToken(token, false)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, user.Username, claims.Username)
	assert.Equal(t, expiresAt.Unix(), claims.ExpiresAt.Unix())
}

func TestAccessTokenExpiry(t *testing.T) {
	m := session.NewManager([]byte("secret"), -time.Minute, 24*time.Hour)

	token, _, err := m.AccessToken(user)
	require.NoError(t, err)

	_, err = m.ParseAccessToken(token, false)
	assert.Error(t, err)

	// The refresh flow still reads identity claims out of expired tokens.
	claims, err := m.ParseAccessToken(token, true)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
}

func TestAccessTokenSignature(t *testing.T) {
	m := session.NewManager([]byte("secret"), time.Hour, 24*time.Hour)
	other := session.NewManager([]byte("wrong-secret"), time.Hour, 24*time.Hour)

	token, _, err := other.AccessToken(user)
	require.NoError(t, err)

	// A bad signature is terminal, expired claims allowed or not.
	_, err = m.ParseAccessToken(token, false)
	assert.Error(t, err)
	_, err = m.ParseAccessToken(token, true)
	assert.Error(t, err)

	_, err = m.ParseAccessToken("trololo", true)
	assert.Error(t, err)
}

func TestRefreshTokenHasNoIdentity(t *testing.T) {
	m := session.NewManager([]byte("secret"), time.Hour, 24*time.Hour)

	token, expiresAt, err := m.RefreshToken()
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.WithinDuration(t, time.Now().Add(24*time.Hour), expiresAt, time.Minute)

	// Refresh tokens carry no user claims so they never pass as access tokens.
	_, err = m.ParseAccessToken(token, false)
	assert.Error(t, err)
}

func TestSecureCompare(t *testing.T) {
	assert.True(t, session.SecureCompare("token", "token"))
	assert.False(t, session.SecureCompare("token", "Token"))
	assert.False(t, session.SecureCompare("token", "token2"))
}
