package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-tests-api/internal/models"
	appErrors "github.com/noah-isme/sma-tests-api/pkg/errors"
)

func newAuthServiceForTest() *AuthService {
	return NewAuthService(nil, zap.NewNop(), AuthConfig{AccessTokenSecret: "secret", AccessTokenExpiry: time.Hour, Issuer: "sma-tests-api"})
}

func TestAuthServiceIssueAndValidate(t *testing.T) {
	svc := newAuthServiceForTest()

	resp, err := svc.IssueToken(models.IssueTokenRequest{UserID: "u1", FullName: "Teacher One", Role: models.RoleTeacher})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, models.RoleTeacher, claims.Role)
	assert.Equal(t, "sma-tests-api", claims.Issuer)
}

func TestAuthServiceIssueTokenValidatesRole(t *testing.T) {
	svc := newAuthServiceForTest()

	_, err := svc.IssueToken(models.IssueTokenRequest{UserID: "u1", Role: "STUDENT"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestAuthServiceRejectsExpiredToken(t *testing.T) {
	svc := newAuthServiceForTest()
	svc.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	resp, err := svc.IssueToken(models.IssueTokenRequest{UserID: "u1", Role: models.RoleAdmin})
	require.NoError(t, err)

	_, err = svc.ValidateToken(resp.AccessToken)
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
}

func TestAuthServiceRejectsForeignSecret(t *testing.T) {
	other := NewAuthService(nil, zap.NewNop(), AuthConfig{AccessTokenSecret: "other", Issuer: "sma-tests-api"})
	resp, err := other.IssueToken(models.IssueTokenRequest{UserID: "u1", Role: models.RoleAdmin})
	require.NoError(t, err)

	_, err = newAuthServiceForTest().ValidateToken(resp.AccessToken)
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
}
