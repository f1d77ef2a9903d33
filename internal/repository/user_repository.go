package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/streamline-hs/enrollment-portal-api/internal/models"
	"github.com/streamline-hs/enrollment-portal-api/pkg/kvstore"
)

// ErrNotFound is returned when a requested record is absent from the store.
var ErrNotFound = errors.New("repository: not found")

// Store keys for identity records.
const (
	keyCurrentUser     = "currentUser"
	keyRegisteredUsers = "registeredUsers"
)

// UserRepository persists registered accounts and the current-user marker.
type UserRepository struct {
	store kvstore.Store
}

// NewUserRepository constructs the repository.
func NewUserRepository(store kvstore.Store) *UserRepository {
	return &UserRepository{store: store}
}

// ListRegistered returns all registered users, empty when none exist yet.
func (r *UserRepository) ListRegistered(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := r.store.Get(ctx, keyRegisteredUsers, &users); err != nil {
		if errors.Is(err, kvstore.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("list registered users: %w", err)
	}
	return users, nil
}

// FindByEmail returns the registered user matching email, case-insensitively.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	users, err := r.ListRegistered(ctx)
	if err != nil {
		return nil, err
	}
	for i := range users {
		if strings.EqualFold(users[i].Email, email) {
			return &users[i], nil
		}
	}
	return nil, ErrNotFound
}

// Append adds a user to the registered list. Duplicate detection is the
// caller's concern; the list itself enforces nothing.
func (r *UserRepository) Append(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	users, err := r.ListRegistered(ctx)
	if err != nil {
		return err
	}
	users = append(users, *user)
	if err := r.store.Set(ctx, keyRegisteredUsers, users); err != nil {
		return fmt.Errorf("append registered user: %w", err)
	}
	return nil
}

// SetCurrent marks user as the device's signed-in identity.
func (r *UserRepository) SetCurrent(ctx context.Context, user *models.User) error {
	if err := r.store.Set(ctx, keyCurrentUser, user); err != nil {
		return fmt.Errorf("set current user: %w", err)
	}
	return nil
}

// Current returns the signed-in identity, or ErrNotFound when nobody is.
func (r *UserRepository) Current(ctx context.Context) (*models.User, error) {
	var user models.User
	if err := r.store.Get(ctx, keyCurrentUser, &user); err != nil {
		if errors.Is(err, kvstore.ErrKeyNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get current user: %w", err)
	}
	return &user, nil
}

// ClearCurrent signs out. Draft and application data are left untouched.
func (r *UserRepository) ClearCurrent(ctx context.Context) error {
	if err := r.store.Delete(ctx, keyCurrentUser); err != nil {
		return fmt.Errorf("clear current user: %w", err)
	}
	return nil
}
