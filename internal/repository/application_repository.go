package repository

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/streamline-hs/enrollment-portal-api/internal/models"
	"github.com/streamline-hs/enrollment-portal-api/pkg/kvstore"
)

// Store keys for application records. The global list is the source of
// truth; each student also gets a per-user duplicate for cheap dashboard
// reads, and both are rewritten together on every mutation.
const keyEnrollments = "enrollments"

func userEnrollmentKey(userID string) string {
	return "enrollments-" + userID
}

// ApplicationRepository is the durable record store shared by the student
// workflow (writer) and the admin review flow (mutator). All operations are
// whole-record read-modify-write with last-writer-wins semantics.
type ApplicationRepository struct {
	store kvstore.Store
	now   func() time.Time
}

// NewApplicationRepository constructs the repository.
func NewApplicationRepository(store kvstore.Store) *ApplicationRepository {
	return &ApplicationRepository{store: store, now: time.Now}
}

// NewApplicationID produces an id of the form APP-<year>-<random5>.
func NewApplicationID(now time.Time) string {
	n, err := rand.Int(rand.Reader, big.NewInt(100000))
	if err != nil {
		n = big.NewInt(now.UnixNano() % 100000)
	}
	return fmt.Sprintf("APP-%d-%05d", now.Year(), n.Int64())
}

// List returns all applications, normalised via the defaulting rule.
func (r *ApplicationRepository) List(ctx context.Context) ([]models.Application, error) {
	var apps []models.Application
	if err := r.store.Get(ctx, keyEnrollments, &apps); err != nil {
		if errors.Is(err, kvstore.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("list applications: %w", err)
	}
	for i := range apps {
		apps[i].Normalize()
	}
	return apps, nil
}

// FindByID returns the application with the given id, or ErrNotFound.
func (r *ApplicationRepository) FindByID(ctx context.Context, id string) (*models.Application, error) {
	apps, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range apps {
		if apps[i].ID == id {
			return &apps[i], nil
		}
	}
	return nil, ErrNotFound
}

// FindByUserID returns the student's own application, or ErrNotFound.
func (r *ApplicationRepository) FindByUserID(ctx context.Context, userID string) (*models.Application, error) {
	var app models.Application
	if err := r.store.Get(ctx, userEnrollmentKey(userID), &app); err != nil {
		if errors.Is(err, kvstore.ErrKeyNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find application for user: %w", err)
	}
	app.Normalize()
	return &app, nil
}

// Create appends the application to the global list and writes the per-user
// duplicate. Ids are assigned here when absent.
func (r *ApplicationRepository) Create(ctx context.Context, app *models.Application) error {
	if app.ID == "" {
		app.ID = NewApplicationID(r.now())
	}
	if app.SubmittedAt.IsZero() {
		app.SubmittedAt = r.now().UTC()
	}
	app.LastUpdated = app.SubmittedAt
	app.Normalize()

	apps, err := r.List(ctx)
	if err != nil {
		return err
	}
	apps = append(apps, *app)
	if err := r.store.Set(ctx, keyEnrollments, apps); err != nil {
		return fmt.Errorf("create application: %w", err)
	}
	if err := r.store.Set(ctx, userEnrollmentKey(app.UserID), app); err != nil {
		return fmt.Errorf("create per-user application: %w", err)
	}
	return nil
}

// mutate applies fn to the matching record inside a read-modify-write of
// the whole list, then rewrites the per-user duplicate to keep both in sync.
// fn reports whether it changed the record; when it did not, nothing is
// written back and ErrNotFound is returned.
func (r *ApplicationRepository) mutate(ctx context.Context, id string, fn func(*models.Application) bool) (*models.Application, error) {
	apps, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	idx := -1
	for i := range apps {
		if apps[i].ID == id {
			idx = i
			break
		}
	}
	if idx == -1 {
		return nil, ErrNotFound
	}
	if !fn(&apps[idx]) {
		return nil, ErrNotFound
	}
	apps[idx].LastUpdated = r.now().UTC()
	if err := r.store.Set(ctx, keyEnrollments, apps); err != nil {
		return nil, fmt.Errorf("update application: %w", err)
	}
	updated := apps[idx]
	if updated.UserID != "" {
		if err := r.store.Set(ctx, userEnrollmentKey(updated.UserID), &updated); err != nil {
			return nil, fmt.Errorf("sync per-user application: %w", err)
		}
	}
	return &updated, nil
}

// UpdateStatus changes the review status.
func (r *ApplicationRepository) UpdateStatus(ctx context.Context, id string, status models.ApplicationStatus) (*models.Application, error) {
	return r.mutate(ctx, id, func(app *models.Application) bool {
		app.Status = status
		return true
	})
}

// AppendNote adds an admin note.
func (r *ApplicationRepository) AppendNote(ctx context.Context, id string, note models.Note) (*models.Application, error) {
	return r.mutate(ctx, id, func(app *models.Application) bool {
		app.Notes = append(app.Notes, note)
		return true
	})
}

// SetDocumentStatus updates the verification state of one document,
// matched by name. An unknown name mutates nothing.
func (r *ApplicationRepository) SetDocumentStatus(ctx context.Context, id, documentName string, status models.DocumentStatus) (*models.Application, error) {
	return r.mutate(ctx, id, func(app *models.Application) bool {
		now := r.now().UTC()
		matched := false
		for i := range app.Documents {
			if app.Documents[i].Name == documentName {
				app.Documents[i].Status = status
				app.Documents[i].Date = &now
				matched = true
			}
		}
		return matched
	})
}

// Delete removes the application from the global list and drops the
// per-user duplicate.
func (r *ApplicationRepository) Delete(ctx context.Context, id string) error {
	apps, err := r.List(ctx)
	if err != nil {
		return err
	}
	idx := -1
	for i := range apps {
		if apps[i].ID == id {
			idx = i
			break
		}
	}
	if idx == -1 {
		return ErrNotFound
	}
	removed := apps[idx]
	apps = append(apps[:idx], apps[idx+1:]...)
	if err := r.store.Set(ctx, keyEnrollments, apps); err != nil {
		return fmt.Errorf("delete application: %w", err)
	}
	if removed.UserID != "" {
		if err := r.store.Delete(ctx, userEnrollmentKey(removed.UserID)); err != nil {
			return fmt.Errorf("delete per-user application: %w", err)
		}
	}
	return nil
}
