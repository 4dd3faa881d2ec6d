package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	pkgAuth "github.com/angelmondragon/giftledger-backend/pkg/auth"
	"github.com/angelmondragon/giftledger-backend/pkg/config"
	"github.com/angelmondragon/giftledger-backend/pkg/db/models"
	"github.com/angelmondragon/giftledger-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/giftledger-backend/pkg/errors"
	"github.com/angelmondragon/giftledger-backend/pkg/logger"
	"github.com/angelmondragon/giftledger-backend/pkg/security"
)

var testJWT = config.JWTConfig{Secret: "secret", Issuer: "giftledger", ExpirationMinutes: 60}

type fakeUsers struct {
	byEmail   map[string]*models.User
	suppliers map[uuid.UUID]*models.Supplier
	lastLogin map[uuid.UUID]time.Time
	err       error
}

func (f *fakeUsers) FindByEmail(_ context.Context, email string) (*models.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	user, ok := f.byEmail[email]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return user, nil
}

func (f *fakeUsers) FindSupplier(_ context.Context, userID uuid.UUID) (*models.Supplier, error) {
	supplier, ok := f.suppliers[userID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return supplier, nil
}

func (f *fakeUsers) UpdateLastLogin(_ context.Context, id uuid.UUID, at time.Time) error {
	f.lastLogin[id] = at
	return nil
}

type fakeSessions struct {
	open    map[string]string
	openErr error
}

func (f *fakeSessions) Open(_ context.Context, accessID, userID string) error {
	if f.openErr != nil {
		return f.openErr
	}
	f.open[accessID] = userID
	return nil
}

func (f *fakeSessions) Revoke(_ context.Context, accessID string) error {
	delete(f.open, accessID)
	return nil
}

func newAuthFixture(t *testing.T) (Service, *fakeUsers, *fakeSessions, *models.User, *models.Supplier) {
	t.Helper()
	hash, err := security.HashPassword("secret-pass", config.PasswordConfig{ArgonMemoryKB: 1024, ArgonTime: 1, ArgonParallelism: 1, ArgonSaltLen: 16, ArgonKeyLen: 32})
	require.NoError(t, err)

	user := &models.User{ID: uuid.New(), Email: "sup@example.test", Name: "Sup", PasswordHash: hash, Role: enums.RoleSupplier}
	supplier := &models.Supplier{ID: uuid.New(), UserID: user.ID, Name: "Sup"}
	repo := &fakeUsers{
		byEmail:   map[string]*models.User{user.Email: user},
		suppliers: map[uuid.UUID]*models.Supplier{user.ID: supplier},
		lastLogin: map[uuid.UUID]time.Time{},
	}
	sessions := &fakeSessions{open: map[string]string{}}
	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	svc, err := NewService(ServiceParams{
		UserRepo:       repo,
		SessionManager: sessions,
		JWTConfig:      testJWT,
		Logger:         logger.Nop(),
		Now:            func() time.Time { return now },
	})
	require.NoError(t, err)
	return svc, repo, sessions, user, supplier
}

func TestLoginIssuesTokenWithSupplierScope(t *testing.T) {
	svc, repo, sessions, user, supplier := newAuthFixture(t)

	resp, err := svc.Login(context.Background(), LoginRequest{Email: " SUP@example.test ", Password: "secret-pass"})
	require.NoError(t, err)
	assert.Equal(t, "Bearer", resp.TokenType)
	require.NotNil(t, resp.User.SupplierID)
	assert.Equal(t, supplier.ID, *resp.User.SupplierID)
	assert.Contains(t, repo.lastLogin, user.ID)

	claims, err := pkgAuth.ParseAccessTokenAt(testJWT, resp.AccessToken, resp.ExpiresAt.Add(-time.Minute))
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, enums.RoleSupplier, claims.Role)
	assert.Equal(t, user.ID.String(), sessions.open[claims.ID])
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	svc, _, sessions, _, _ := newAuthFixture(t)
	ctx := context.Background()

	for _, req := range []LoginRequest{
		{Email: "sup@example.test", Password: "wrong-pass"},
		{Email: "nobody@example.test", Password: "secret-pass"},
		{Email: "", Password: "secret-pass"},
	} {
		_, err := svc.Login(ctx, req)
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized), req.Email)
	}
	assert.Empty(t, sessions.open)
}

func TestLoginDependencyFailures(t *testing.T) {
	svc, repo, sessions, _, _ := newAuthFixture(t)
	ctx := context.Background()

	sessions.openErr = errors.New("redis down")
	_, err := svc.Login(ctx, LoginRequest{Email: "sup@example.test", Password: "secret-pass"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))

	repo.err = errors.New("db down")
	_, err = svc.Login(ctx, LoginRequest{Email: "sup@example.test", Password: "secret-pass"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
}

func TestLoginSupplierWithoutProfile(t *testing.T) {
	svc, repo, _, user, _ := newAuthFixture(t)
	delete(repo.suppliers, user.ID)

	resp, err := svc.Login(context.Background(), LoginRequest{Email: "sup@example.test", Password: "secret-pass"})
	require.NoError(t, err)
	assert.Nil(t, resp.User.SupplierID)
}

func TestLogoutRevokesSession(t *testing.T) {
	svc, _, sessions, _, _ := newAuthFixture(t)
	ctx := context.Background()
	sessions.open["access-1"] = "user"

	require.NoError(t, svc.Logout(ctx, "access-1"))
	assert.NotContains(t, sessions.open, "access-1")

	assert.True(t, pkgerrors.IsCode(svc.Logout(ctx, ""), pkgerrors.CodeUnauthorized))
}
