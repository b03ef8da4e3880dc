package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medstock/medstock-backend/pkg/config"
	"github.com/medstock/medstock-backend/pkg/errors"
)

func newTestManager(now time.Time) *Manager {
	return NewManager(&config.JWTConfig{
		Secret:       "test-secret",
		AccessExpiry: 24 * time.Hour,
		Issuer:       "medstock",
	}).WithClock(func() time.Time { return now })
}

func TestAccessTokenRoundTrip(t *testing.T) {
	now := time.Now()
	m := newTestManager(now)

	tok, err := m.IssueAccessToken(1, "admin@clinic.test")
	require.NoError(t, err)
	assert.WithinDuration(t, now.Add(24*time.Hour), tok.ExpiresAt, time.Second)

	email, err := m.VerifyToken(tok.Token)
	require.NoError(t, err)
	assert.Equal(t, "admin@clinic.test", email)
}

func TestVerifyToken_Expired(t *testing.T) {
	issuedAt := time.Now().Add(-48 * time.Hour)
	tok, err := newTestManager(issuedAt).IssueAccessToken(1, "admin@clinic.test")
	require.NoError(t, err)

	_, err = newTestManager(time.Now()).VerifyToken(tok.Token)
	assert.True(t, errors.Is(err, errors.ErrTokenExpired))
}

func TestVerifyToken_RejectsSetupToken(t *testing.T) {
	m := newTestManager(time.Now())

	tok, err := m.IssueSetupToken(1, "admin@clinic.test")
	require.NoError(t, err)

	_, err = m.VerifyToken(tok.Token)
	assert.True(t, errors.Is(err, errors.ErrTokenInvalid))

	claims, err := m.Validate(tok.Token, PurposeSetup)
	require.NoError(t, err)
	assert.Equal(t, int64(1), claims.AdminID)
}

func TestVerifyToken_WrongSecret(t *testing.T) {
	tok, err := newTestManager(time.Now()).IssueAccessToken(1, "admin@clinic.test")
	require.NoError(t, err)

	other := NewManager(&config.JWTConfig{Secret: "another", AccessExpiry: time.Hour, Issuer: "medstock"})
	_, err = other.VerifyToken(tok.Token)
	assert.True(t, errors.Is(err, errors.ErrTokenInvalid))
}

func TestVerifyToken_Garbage(t *testing.T) {
	_, err := newTestManager(time.Now()).VerifyToken("not.a.token")
	assert.True(t, errors.Is(err, errors.ErrTokenInvalid))
}
