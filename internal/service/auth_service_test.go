package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/cloudsanalytics/appointment-api/internal/models"
	appErrors "github.com/cloudsanalytics/appointment-api/pkg/errors"
)

type mockAuthUsers struct {
	byEmail map[string]models.User
}

func (m *mockAuthUsers) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if u, ok := m.byEmail[email]; ok {
		return &u, nil
	}
	return nil, sql.ErrNoRows
}

type mockRevocations struct {
	revoked map[string]time.Duration
}

func (m *mockRevocations) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if m.revoked == nil {
		m.revoked = make(map[string]time.Duration)
	}
	m.revoked[jti] = ttl
	return nil
}

func (m *mockRevocations) IsRevoked(ctx context.Context, jti string) (bool, error) {
	_, ok := m.revoked[jti]
	return ok, nil
}

func newAuthFixture(t *testing.T) (*mockAuthUsers, *mockRevocations, *AuthService) {
	hash, err := bcrypt.GenerateFromPassword([]byte("admin-pass"), bcrypt.MinCost)
	require.NoError(t, err)
	email := "admin@example.com"
	users := &mockAuthUsers{byEmail: map[string]models.User{
		email: {ID: "admin-1", Name: "Admin", Email: &email, PasswordHash: string(hash), Role: models.RoleAdmin},
	}}
	revoked := &mockRevocations{}
	svc := NewAuthService(users, revoked, nil, nil, AuthConfig{
		Secret:             "test-secret",
		Expiry:             time.Hour,
		Issuer:             "appointment-api",
		SuperadminEmail:    "root@example.com",
		SuperadminPassword: "root-pass",
	})
	return users, revoked, svc
}

func TestLoginSuperadminFromConfig(t *testing.T) {
	_, _, svc := newAuthFixture(t)

	resp, err := svc.Login(context.Background(), models.LoginRequest{Email: "root@example.com", Password: "root-pass"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleSuperadmin, resp.Role)

	claims, err := svc.ValidateToken(context.Background(), resp.Token)
	require.NoError(t, err)
	assert.Equal(t, models.RoleSuperadmin, claims.Role)
	assert.Empty(t, claims.UserID)
}

func TestLoginSuperadminWrongPassword(t *testing.T) {
	_, _, svc := newAuthFixture(t)

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "root@example.com", Password: "nope"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestLoginAdminFromDatabase(t *testing.T) {
	_, _, svc := newAuthFixture(t)

	resp, err := svc.Login(context.Background(), models.LoginRequest{Email: "Admin@Example.com", Password: "admin-pass"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, resp.Role)

	claims, err := svc.ValidateToken(context.Background(), resp.Token)
	require.NoError(t, err)
	assert.Equal(t, "admin-1", claims.UserID)
}

func TestLoginUnknownEmail(t *testing.T) {
	_, _, svc := newAuthFixture(t)

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "nobody@example.com", Password: "whatever"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestLogoutRevokesToken(t *testing.T) {
	_, revoked, svc := newAuthFixture(t)

	resp, err := svc.Login(context.Background(), models.LoginRequest{Email: "admin@example.com", Password: "admin-pass"})
	require.NoError(t, err)

	claims, err := svc.ValidateToken(context.Background(), resp.Token)
	require.NoError(t, err)

	require.NoError(t, svc.Logout(context.Background(), claims))
	assert.Len(t, revoked.revoked, 1)

	_, err = svc.ValidateToken(context.Background(), resp.Token)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestValidateTokenRejectsTampered(t *testing.T) {
	_, _, svc := newAuthFixture(t)

	resp, err := svc.Login(context.Background(), models.LoginRequest{Email: "admin@example.com", Password: "admin-pass"})
	require.NoError(t, err)

	_, err = svc.ValidateToken(context.Background(), resp.Token+"x")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}
