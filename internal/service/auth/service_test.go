package auth

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/jwalitptl/bp-admin-api/internal/model"
	"github.com/jwalitptl/bp-admin-api/internal/repository/repotest"
	"github.com/jwalitptl/bp-admin-api/pkg/auth"
	"github.com/jwalitptl/bp-admin-api/pkg/errors"
	"github.com/jwalitptl/bp-admin-api/pkg/security"
)

type fixture struct {
	svc    *Service
	jwtSvc auth.JWTService
	store  *repotest.Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := repotest.NewStore()
	hasher := security.NewBcryptHasher(bcrypt.MinCost)
	jwtSvc, err := auth.NewJWTService(auth.Config{Secret: "secret", Issuer: "test", Expiry: time.Hour})
	require.NoError(t, err)

	hash, err := hasher.Hash("firehouse-9")
	require.NoError(t, err)
	users := repotest.UserRepository{Store: store}
	require.NoError(t, users.Create(context.Background(), &model.User{
		Username: "nurse.kim", Name: "Kim", Role: model.RoleNurse, PasswordHash: hash, IsActive: true,
	}))
	require.NoError(t, users.Create(context.Background(), &model.User{
		Username: "retired", Name: "Old", Role: model.RoleCoach, PasswordHash: hash, IsActive: false,
	}))

	return &fixture{
		svc:    NewService(users, jwtSvc, hasher, zerolog.Nop()),
		jwtSvc: jwtSvc,
		store:  store,
	}
}

func TestLoginIssuesToken(t *testing.T) {
	f := newFixture(t)

	resp, err := f.svc.Login(context.Background(), &model.LoginRequest{Username: "nurse.kim", Password: "firehouse-9"})
	require.NoError(t, err)
	assert.Equal(t, "nurse.kim", resp.User.Username)
	assert.Greater(t, resp.ExpiresAt, time.Now().Unix())

	claims, err := f.jwtSvc.ValidateToken(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, claims.UserID)
	assert.Equal(t, model.RoleNurse, claims.Role)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Login(context.Background(), &model.LoginRequest{Username: "nurse.kim", Password: "wrong-pass"})
	assert.True(t, errors.IsKind(err, errors.KindUnauthorized))

	_, err = f.svc.Login(context.Background(), &model.LoginRequest{Username: "nobody", Password: "firehouse-9"})
	assert.True(t, errors.IsKind(err, errors.KindUnauthorized))
}

func TestLoginRejectsInactiveUser(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Login(context.Background(), &model.LoginRequest{Username: "retired", Password: "firehouse-9"})
	appErr, ok := errors.As(err)
	require.True(t, ok)
	assert.Equal(t, errors.KindUnauthorized, appErr.Kind)
	assert.Equal(t, "account is disabled", appErr.Message)
}

func TestLogoutRevokesToken(t *testing.T) {
	f := newFixture(t)
	resp, err := f.svc.Login(context.Background(), &model.LoginRequest{Username: "nurse.kim", Password: "firehouse-9"})
	require.NoError(t, err)
	claims, err := f.jwtSvc.ValidateToken(resp.Token)
	require.NoError(t, err)

	require.NoError(t, f.svc.Logout(context.Background(), claims))
	_, err = f.jwtSvc.ValidateToken(resp.Token)
	assert.ErrorIs(t, err, auth.ErrTokenRevoked)
}

func TestCurrentUser(t *testing.T) {
	f := newFixture(t)
	user, err := f.svc.CurrentUser(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "nurse.kim", user.Username)

	_, err = f.svc.CurrentUser(context.Background(), 42)
	assert.True(t, errors.IsKind(err, errors.KindNotFound))
}
