package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/streamline-hs/enrollment-portal-api/internal/models"
	"github.com/streamline-hs/enrollment-portal-api/internal/repository"
	appErrors "github.com/streamline-hs/enrollment-portal-api/pkg/errors"
	"github.com/streamline-hs/enrollment-portal-api/pkg/kvstore"
)

func newAuthFixture(t *testing.T) (*AuthService, *repository.UserRepository, *repository.DraftRepository, *repository.ApplicationRepository) {
	t.Helper()
	store := kvstore.NewMemory()
	users := repository.NewUserRepository(store)
	drafts := repository.NewDraftRepository(store)
	apps := repository.NewApplicationRepository(store)

	hash, err := bcrypt.GenerateFromPassword([]byte("admin123"), bcrypt.MinCost)
	require.NoError(t, err)

	svc := NewAuthService(users, apps, drafts, nil, nil, AuthConfig{
		AdminEmail:        "admin@school.edu",
		AdminPasswordHash: hash,
		TokenSecret:       "test-secret",
		TokenExpiry:       time.Hour,
		Issuer:            "enrollment-portal",
	})
	return svc, users, drafts, apps
}

func TestRegisterThenLoginLandsOnWelcome(t *testing.T) {
	svc, _, _, _ := newAuthFixture(t)
	ctx := context.Background()

	res, err := svc.Register(ctx, models.RegisterRequest{
		FirstName: "Maria",
		LastName:  "Garcia",
		Email:     "maria@example.com",
		Password:  "secret1",
	})
	require.NoError(t, err)
	assert.Equal(t, models.RouteStudentWelcome, res.Redirect)
	assert.Equal(t, models.RoleStudent, res.User.Role)
	assert.NotEmpty(t, res.AccessToken)

	login, err := svc.Login(ctx, models.LoginRequest{Email: "maria@example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, models.RouteStudentWelcome, login.Redirect)
	assert.Equal(t, res.User.ID, login.User.ID)
}

func TestLoginAdminRoutesToAdminDashboard(t *testing.T) {
	svc, _, _, _ := newAuthFixture(t)

	res, err := svc.Login(context.Background(), models.LoginRequest{Email: "ADMIN@school.edu", Password: "admin123"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, res.User.Role)
	assert.Equal(t, models.RouteAdminDashboard, res.Redirect)
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	svc, _, _, _ := newAuthFixture(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, models.RegisterRequest{
		FirstName: "Maria", LastName: "Garcia", Email: "maria@example.com", Password: "secret1",
	})
	require.NoError(t, err)

	_, err = svc.Login(ctx, models.LoginRequest{Email: "maria@example.com", Password: "wrong"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)

	_, err = svc.Login(ctx, models.LoginRequest{Email: "admin@school.edu", Password: "wrong"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	svc, _, _, _ := newAuthFixture(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, models.RegisterRequest{
		FirstName: "Maria", LastName: "Garcia", Email: "maria@example.com", Password: "secret1",
	})
	require.NoError(t, err)

	_, err = svc.Register(ctx, models.RegisterRequest{
		FirstName: "Mario", LastName: "Garcia", Email: "MARIA@example.com", Password: "secret2",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrDuplicateEmail.Code, appErrors.FromError(err).Code)

	// The admin email can never be registered.
	_, err = svc.Register(ctx, models.RegisterRequest{
		FirstName: "Eve", LastName: "Admin", Email: "admin@school.edu", Password: "secret3",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrDuplicateEmail.Code, appErrors.FromError(err).Code)
}

func TestLoginResumesDraftAndDashboard(t *testing.T) {
	svc, _, drafts, apps := newAuthFixture(t)
	ctx := context.Background()

	res, err := svc.Register(ctx, models.RegisterRequest{
		FirstName: "Maria", LastName: "Garcia", Email: "maria@example.com", Password: "secret1",
	})
	require.NoError(t, err)
	userID := res.User.ID

	require.NoError(t, drafts.Save(ctx, &models.EnrollmentDraft{UserID: userID}))
	login, err := svc.Login(ctx, models.LoginRequest{Email: "maria@example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, models.RouteStudentEnrollment, login.Redirect)

	// A submitted application outranks the draft.
	require.NoError(t, apps.Create(ctx, &models.Application{UserID: userID, Status: models.StatusPending}))
	login, err = svc.Login(ctx, models.LoginRequest{Email: "maria@example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, models.RouteStudentDashboard, login.Redirect)
}

func TestResolveLanding(t *testing.T) {
	assert.Equal(t, models.RouteAdminDashboard, ResolveLanding(models.RoleAdmin, true, true))
	assert.Equal(t, models.RouteStudentDashboard, ResolveLanding(models.RoleStudent, true, true))
	assert.Equal(t, models.RouteStudentEnrollment, ResolveLanding(models.RoleStudent, false, true))
	assert.Equal(t, models.RouteStudentWelcome, ResolveLanding(models.RoleStudent, false, false))
}

func TestLogoutKeepsDraft(t *testing.T) {
	svc, users, drafts, _ := newAuthFixture(t)
	ctx := context.Background()

	res, err := svc.Register(ctx, models.RegisterRequest{
		FirstName: "Maria", LastName: "Garcia", Email: "maria@example.com", Password: "secret1",
	})
	require.NoError(t, err)
	require.NoError(t, drafts.Save(ctx, &models.EnrollmentDraft{UserID: res.User.ID}))

	require.NoError(t, svc.Logout(ctx))

	_, err = users.Current(ctx)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	draft, err := drafts.Find(ctx, res.User.ID)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, draft.UserID)
}

func TestValidateTokenRoundTrip(t *testing.T) {
	svc, _, _, _ := newAuthFixture(t)
	ctx := context.Background()

	res, err := svc.Register(ctx, models.RegisterRequest{
		FirstName: "Maria", LastName: "Garcia", Email: "maria@example.com", Password: "secret1",
	})
	require.NoError(t, err)

	claims, err := svc.ValidateToken(res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, claims.UserID)
	assert.Equal(t, models.RoleStudent, claims.Role)

	_, err = svc.ValidateToken(res.AccessToken + "x")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}
