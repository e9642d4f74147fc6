package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/conf-schedule-api/pkg/errors"
)

func TestTokenServiceIssueAndValidate(t *testing.T) {
	now := time.Now().UTC()
	svc := NewTokenService(TokenConfig{Secret: "secret", Issuer: "conf-schedule"}, func() time.Time { return now })

	token, err := svc.Issue("organiser-1", "org@example.com", time.Hour)
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "organiser-1", claims.UserID)
	assert.Equal(t, "org@example.com", claims.Email)
	assert.Equal(t, "conf-schedule", claims.Issuer)
}

func TestTokenServiceRejectsInvalidTokens(t *testing.T) {
	now := time.Now().UTC()
	clock := func() time.Time { return now }
	svc := NewTokenService(TokenConfig{Secret: "secret", Issuer: "conf-schedule"}, clock)

	_, err := svc.Issue("", "", time.Hour)
	requireCode(t, err, appErrors.ErrValidation)

	token, err := svc.Issue("organiser-1", "", time.Minute)
	require.NoError(t, err)

	later := NewTokenService(TokenConfig{Secret: "secret", Issuer: "conf-schedule"}, func() time.Time { return now.Add(2 * time.Minute) })
	_, err = later.ValidateToken(token)
	requireCode(t, err, appErrors.ErrUnauthorized)

	other := NewTokenService(TokenConfig{Secret: "other", Issuer: "conf-schedule"}, clock)
	_, err = other.ValidateToken(token)
	requireCode(t, err, appErrors.ErrUnauthorized)

	foreign := NewTokenService(TokenConfig{Secret: "secret", Issuer: "someone-else"}, clock)
	_, err = foreign.ValidateToken(token)
	requireCode(t, err, appErrors.ErrUnauthorized)

	_, err = svc.ValidateToken("not-a-token")
	requireCode(t, err, appErrors.ErrUnauthorized)
}
