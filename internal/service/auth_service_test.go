package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-timetable-api/internal/models"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

func TestAuthServiceIssueAndValidate(t *testing.T) {
	svc := NewAuthService("secret", "sma-identity")

	token, err := svc.IssueToken("user-1", models.RoleCoordinator, time.Hour)
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, models.RoleCoordinator, claims.Role)
}

func TestAuthServiceRejectsBadTokens(t *testing.T) {
	svc := NewAuthService("secret", "sma-identity")

	expired, err := svc.IssueToken("user-1", models.RoleAdmin, -time.Minute)
	require.NoError(t, err)
	_, err = svc.ValidateToken(expired)
	require.Error(t, err)
	assert.Equal(t, "token expired", appErrors.FromError(err).Message)

	foreign, err := NewAuthService("other", "sma-identity").IssueToken("user-1", models.RoleAdmin, time.Hour)
	require.NoError(t, err)
	_, err = svc.ValidateToken(foreign)
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)

	wrongIssuer, err := NewAuthService("secret", "elsewhere").IssueToken("user-1", models.RoleAdmin, time.Hour)
	require.NoError(t, err)
	_, err = svc.ValidateToken(wrongIssuer)
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)

	_, err = svc.ValidateToken("not-a-jwt")
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
}
