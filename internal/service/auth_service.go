package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/streamline-hs/enrollment-portal-api/internal/models"
	"github.com/streamline-hs/enrollment-portal-api/internal/repository"
	appErrors "github.com/streamline-hs/enrollment-portal-api/pkg/errors"
)

type identityRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Append(ctx context.Context, user *models.User) error
	SetCurrent(ctx context.Context, user *models.User) error
	Current(ctx context.Context) (*models.User, error)
	ClearCurrent(ctx context.Context) error
}

type applicationFinder interface {
	FindByUserID(ctx context.Context, userID string) (*models.Application, error)
}

type draftFinder interface {
	Find(ctx context.Context, userID string) (*models.EnrollmentDraft, error)
}

// AuthConfig defines configuration for the identity resolver.
type AuthConfig struct {
	AdminEmail        string
	AdminPasswordHash []byte
	TokenSecret       string
	TokenExpiry       time.Duration
	Issuer            string
}

// AuthService resolves the current identity, handles login/registration and
// computes the landing route. Student passwords are compared in plaintext
// against the registered-users record, preserving the ported system's
// behaviour; only the fixed admin credential is hash-compared.
type AuthService struct {
	users     identityRepository
	apps      applicationFinder
	drafts    draftFinder
	validator *validator.Validate
	logger    *zap.Logger
	config    AuthConfig
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(users identityRepository, apps applicationFinder, drafts draftFinder, validate *validator.Validate, logger *zap.Logger, config AuthConfig) *AuthService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{users: users, apps: apps, drafts: drafts, validator: validate, logger: logger, config: config}
}

// ResolveLanding is the single routing policy for a signed-in user: admins
// land on their dashboard; a student with a submitted application sees its
// status rather than a fresh flow; a student with a saved draft resumes the
// form; everyone else starts at the welcome checklist.
func ResolveLanding(role models.UserRole, hasApplication, hasDraft bool) models.Route {
	if role == models.RoleAdmin {
		return models.RouteAdminDashboard
	}
	if hasApplication {
		return models.RouteStudentDashboard
	}
	if hasDraft {
		return models.RouteStudentEnrollment
	}
	return models.RouteStudentWelcome
}

// Login authenticates against the fixed admin pair or the registered-users
// list, persists the current-user marker and returns a session token plus
// the landing route.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid login payload")
	}

	user, err := s.resolveCredentials(ctx, req)
	if err != nil {
		return nil, err
	}

	if err := s.users.SetCurrent(ctx, user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrPersistenceUnavailable.Code, appErrors.ErrPersistenceUnavailable.Status, "failed to persist session")
	}

	return s.buildSession(ctx, user)
}

func (s *AuthService) resolveCredentials(ctx context.Context, req models.LoginRequest) (*models.User, error) {
	if strings.EqualFold(req.Email, s.config.AdminEmail) {
		if err := bcrypt.CompareHashAndPassword(s.config.AdminPasswordHash, []byte(req.Password)); err != nil {
			return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid email or password")
		}
		return &models.User{ID: "admin", Email: s.config.AdminEmail, Role: models.RoleAdmin}, nil
	}

	user, err := s.users.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid email or password")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrPersistenceUnavailable.Code, appErrors.ErrPersistenceUnavailable.Status, "failed to load registered users")
	}
	if user.Password != req.Password {
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid email or password")
	}
	return user, nil
}

// Register creates a student account. There is no rollback between the
// list append and the current-user write; a crash in between leaves an
// orphaned registration, which is accepted.
func (s *AuthService) Register(ctx context.Context, req models.RegisterRequest) (*models.LoginResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid registration payload")
	}

	if strings.EqualFold(req.Email, s.config.AdminEmail) {
		return nil, appErrors.Clone(appErrors.ErrDuplicateEmail, "an account with this email already exists")
	}
	if _, err := s.users.FindByEmail(ctx, req.Email); err == nil {
		return nil, appErrors.Clone(appErrors.ErrDuplicateEmail, "an account with this email already exists")
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, appErrors.Wrap(err, appErrors.ErrPersistenceUnavailable.Code, appErrors.ErrPersistenceUnavailable.Status, "failed to load registered users")
	}

	user := &models.User{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Role:      models.RoleStudent,
	}
	if err := s.users.Append(ctx, user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrPersistenceUnavailable.Code, appErrors.ErrPersistenceUnavailable.Status, "failed to register user")
	}
	if err := s.users.SetCurrent(ctx, user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrPersistenceUnavailable.Code, appErrors.ErrPersistenceUnavailable.Status, "failed to persist session")
	}

	s.logger.Info("student registered", zap.String("email", user.Email))
	return s.buildSession(ctx, user)
}

// Logout clears the current-user marker only; drafts and applications stay.
func (s *AuthService) Logout(ctx context.Context) error {
	if err := s.users.ClearCurrent(ctx); err != nil {
		return appErrors.Wrap(err, appErrors.ErrPersistenceUnavailable.Code, appErrors.ErrPersistenceUnavailable.Status, "failed to clear session")
	}
	return nil
}

// Session describes the signed-in user identified by claims, including the
// landing route recomputed against the present draft/application state.
func (s *AuthService) Session(ctx context.Context, claims *models.JWTClaims) (*models.SessionInfo, error) {
	user := models.UserInfo{ID: claims.UserID, Email: claims.Email, Role: claims.Role}
	redirect, err := s.landingFor(ctx, claims.UserID, claims.Role)
	if err != nil {
		return nil, err
	}
	return &models.SessionInfo{User: user, Redirect: redirect}, nil
}

func (s *AuthService) landingFor(ctx context.Context, userID string, role models.UserRole) (models.Route, error) {
	if role == models.RoleAdmin {
		return models.RouteAdminDashboard, nil
	}
	hasApplication := false
	if _, err := s.apps.FindByUserID(ctx, userID); err == nil {
		hasApplication = true
	} else if !errors.Is(err, repository.ErrNotFound) {
		return "", appErrors.Wrap(err, appErrors.ErrPersistenceUnavailable.Code, appErrors.ErrPersistenceUnavailable.Status, "failed to load application")
	}
	hasDraft := false
	if _, err := s.drafts.Find(ctx, userID); err == nil {
		hasDraft = true
	} else if !errors.Is(err, repository.ErrNotFound) {
		return "", appErrors.Wrap(err, appErrors.ErrPersistenceUnavailable.Code, appErrors.ErrPersistenceUnavailable.Status, "failed to load draft")
	}
	return ResolveLanding(role, hasApplication, hasDraft), nil
}

func (s *AuthService) buildSession(ctx context.Context, user *models.User) (*models.LoginResponse, error) {
	token, err := s.generateToken(user)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create access token")
	}
	redirect, err := s.landingFor(ctx, user.ID, user.Role)
	if err != nil {
		return nil, err
	}
	return &models.LoginResponse{
		AccessToken: token,
		ExpiresIn:   int64(s.config.TokenExpiry.Seconds()),
		User:        user.Info(),
		Redirect:    redirect,
	}, nil
}

// ValidateToken parses and validates an access token returning the claims.
func (s *AuthService) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.TokenSecret), nil
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}

	claims, ok := token.Claims.(*models.JWTClaims)
	if !ok || !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}

	return claims, nil
}

func (s *AuthService) generateToken(user *models.User) (string, error) {
	issuedAt := time.Now().UTC()
	claims := &models.JWTClaims{
		UserID: user.ID,
		Role:   user.Role,
		Email:  user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.config.Issuer,
			Subject:   user.ID,
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(s.config.TokenExpiry)),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.config.TokenSecret))
}
