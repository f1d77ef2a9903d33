package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streamline-hs/enrollment-portal-api/internal/models"
	"github.com/streamline-hs/enrollment-portal-api/pkg/kvstore"
)

func testApplication(userID string) *models.Application {
	return &models.Application{
		UserID: userID,
		Form: models.EnrollmentForm{
			FirstName:  "Maria",
			LastName:   "Garcia",
			Email:      "maria.garcia@example.com",
			GradeLevel: 10,
		},
		Status: models.StatusPending,
		Payment: models.PaymentRecord{
			Method:   models.PaymentMethodCreditCard,
			Amount:   1000,
			Currency: "PHP",
		},
	}
}

func TestApplicationRepositoryCreateAssignsID(t *testing.T) {
	repo := NewApplicationRepository(kvstore.NewMemory())

	app := testApplication("u1")
	require.NoError(t, repo.Create(context.Background(), app))

	assert.Regexp(t, regexp.MustCompile(`^APP-\d{4}-\d{5}$`), app.ID)
	assert.False(t, app.SubmittedAt.IsZero())
}

func TestApplicationRepositoryPerUserDuplicateInSync(t *testing.T) {
	store := kvstore.NewMemory()
	repo := NewApplicationRepository(store)
	ctx := context.Background()

	app := testApplication("u1")
	require.NoError(t, repo.Create(ctx, app))

	own, err := repo.FindByUserID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, app.ID, own.ID)

	_, err = repo.UpdateStatus(ctx, app.ID, models.StatusApproved)
	require.NoError(t, err)

	own, err = repo.FindByUserID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, own.Status)

	listed, err := repo.FindByID(ctx, app.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, listed.Status)
}

func TestApplicationRepositoryAppendNote(t *testing.T) {
	repo := NewApplicationRepository(kvstore.NewMemory())
	ctx := context.Background()

	app := testApplication("u1")
	require.NoError(t, repo.Create(ctx, app))

	updated, err := repo.AppendNote(ctx, app.ID, models.Note{Author: "admin@school.edu", Body: "interested in debate club", CreatedAt: time.Now().UTC()})
	require.NoError(t, err)
	require.Len(t, updated.Notes, 1)
	assert.Equal(t, "interested in debate club", updated.Notes[0].Body)
}

func TestApplicationRepositorySetDocumentStatus(t *testing.T) {
	repo := NewApplicationRepository(kvstore.NewMemory())
	ctx := context.Background()

	app := testApplication("u1")
	app.Documents = []models.DocumentRecord{
		{ID: 1, Name: "Birth Certificate", Status: models.DocumentPending},
		{ID: 2, Name: "Report Card / Form 138", Status: models.DocumentPending},
	}
	require.NoError(t, repo.Create(ctx, app))

	updated, err := repo.SetDocumentStatus(ctx, app.ID, "Birth Certificate", models.DocumentVerified)
	require.NoError(t, err)
	assert.Equal(t, models.DocumentVerified, updated.Documents[0].Status)
	assert.NotNil(t, updated.Documents[0].Date)
	assert.Equal(t, models.DocumentPending, updated.Documents[1].Status)

	_, err = repo.SetDocumentStatus(ctx, app.ID, "No Such Document", models.DocumentVerified)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestApplicationRepositoryUnknownDocumentLeavesRecordUntouched(t *testing.T) {
	repo := NewApplicationRepository(kvstore.NewMemory())
	ctx := context.Background()

	created := time.Date(2026, 8, 24, 9, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return created }

	app := testApplication("u1")
	app.Documents = []models.DocumentRecord{
		{ID: 1, Name: "Birth Certificate", Status: models.DocumentPending},
	}
	require.NoError(t, repo.Create(ctx, app))

	repo.now = func() time.Time { return created.Add(time.Hour) }

	_, err := repo.SetDocumentStatus(ctx, app.ID, "No Such Document", models.DocumentVerified)
	require.ErrorIs(t, err, ErrNotFound)

	stored, err := repo.FindByID(ctx, app.ID)
	require.NoError(t, err)
	assert.True(t, stored.LastUpdated.Equal(created), "failed mutation must not rewrite the record")
	assert.Equal(t, models.DocumentPending, stored.Documents[0].Status)

	own, err := repo.FindByUserID(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, own.LastUpdated.Equal(created))
}

func TestApplicationRepositoryDelete(t *testing.T) {
	repo := NewApplicationRepository(kvstore.NewMemory())
	ctx := context.Background()

	app := testApplication("u1")
	require.NoError(t, repo.Create(ctx, app))
	require.NoError(t, repo.Delete(ctx, app.ID))

	_, err := repo.FindByID(ctx, app.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = repo.FindByUserID(ctx, "u1")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, repo.Delete(ctx, app.ID), ErrNotFound)
}

func TestApplicationRepositoryNormalizesLegacyRecords(t *testing.T) {
	store := kvstore.NewMemory()
	ctx := context.Background()

	// A record written by older logic: no status, no documents, notes as a
	// bare string.
	legacy := []map[string]interface{}{{
		"id":      "APP-2024-00017",
		"user_id": "u1",
		"form":    map[string]interface{}{"first_name": "Maria", "last_name": "Garcia", "grade_level": 10},
		"notes":   "transferred from another district",
	}}
	require.NoError(t, store.Set(ctx, "enrollments", legacy))

	repo := NewApplicationRepository(store)
	apps, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, apps, 1)

	assert.Equal(t, models.StatusPending, apps[0].Status)
	assert.Len(t, apps[0].Documents, 5)
	for _, doc := range apps[0].Documents {
		assert.Equal(t, models.DocumentNotSubmitted, doc.Status)
	}
	require.Len(t, apps[0].Notes, 1)
	assert.Equal(t, "transferred from another district", apps[0].Notes[0].Body)
}
