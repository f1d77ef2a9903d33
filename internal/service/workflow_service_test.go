package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streamline-hs/enrollment-portal-api/internal/models"
	"github.com/streamline-hs/enrollment-portal-api/internal/repository"
	"github.com/streamline-hs/enrollment-portal-api/pkg/config"
	appErrors "github.com/streamline-hs/enrollment-portal-api/pkg/errors"
	"github.com/streamline-hs/enrollment-portal-api/pkg/kvstore"
)

func newWorkflowFixture(t *testing.T) (*WorkflowService, *repository.DraftRepository, *repository.ApplicationRepository) {
	t.Helper()
	store := kvstore.NewMemory()
	drafts := repository.NewDraftRepository(store)
	apps := repository.NewApplicationRepository(store)
	payments := NewPaymentService(config.PaymentConfig{Amount: 1000, Currency: "PHP"}, nil, nil)
	svc := NewWorkflowService(drafts, apps, payments, nil, nil, nil, nil, nil)
	return svc, drafts, apps
}

func attachAllRequired(t *testing.T, svc *WorkflowService, userID string) {
	t.Helper()
	ctx := context.Background()
	for _, id := range models.RequiredIDs(models.DefaultRequirements()) {
		_, err := svc.ToggleDocument(ctx, userID, id, true)
		require.NoError(t, err)
	}
}

func cardDetails() models.PaymentDetails {
	return models.PaymentDetails{
		CardNumber: "4111 1111 1111 1234",
		CardName:   "Maria Garcia",
		Expiry:     "12/27",
		CVC:        "123",
	}
}

func TestContinueBlockedUntilChecklistComplete(t *testing.T) {
	svc, _, _ := newWorkflowFixture(t)
	ctx := context.Background()

	// Attach everything except the ID pictures (id 4).
	for _, id := range []int{1, 2, 3, 5} {
		_, err := svc.ToggleDocument(ctx, "u1", id, true)
		require.NoError(t, err)
	}

	_, err := svc.ContinueToForm(ctx, "u1")
	require.Error(t, err)
	var incomplete *IncompleteChecklistError
	require.ErrorAs(t, err, &incomplete)
	assert.Equal(t, []int{4}, incomplete.Missing)

	_, err = svc.ToggleDocument(ctx, "u1", 4, true)
	require.NoError(t, err)
	view, err := svc.ContinueToForm(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, models.StateFormEditing, view.State)
}

func TestOptionalDocumentNeverBlocks(t *testing.T) {
	svc, _, _ := newWorkflowFixture(t)

	attachAllRequired(t, svc, "u1")
	view, err := svc.ContinueToForm(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, models.StateFormEditing, view.State)
	assert.NotContains(t, view.CheckedDocumentIDs, 6)
}

func TestSaveDraftIsIdempotentAndResumes(t *testing.T) {
	svc, drafts, _ := newWorkflowFixture(t)
	ctx := context.Background()

	attachAllRequired(t, svc, "u1")
	_, err := svc.ContinueToForm(ctx, "u1")
	require.NoError(t, err)

	form := validForm()
	_, err = svc.SaveDraft(ctx, "u1", form)
	require.NoError(t, err)
	_, err = svc.SaveDraft(ctx, "u1", form)
	require.NoError(t, err)

	saved, err := drafts.Find(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, form, saved.Form)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, saved.CheckedDocumentIDs)

	// A fresh service instance resumes from the stored draft.
	resumed := NewWorkflowService(drafts, repository.NewApplicationRepository(kvstore.NewMemory()), nil, nil, nil, nil, nil, nil)
	view, err := resumed.View(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, models.StateFormEditing, view.State)
	assert.True(t, view.HasDraft)
	assert.Equal(t, form, view.Form)
}

func TestSaveDraftClearsStaleStrand(t *testing.T) {
	svc, drafts, _ := newWorkflowFixture(t)
	ctx := context.Background()

	attachAllRequired(t, svc, "u1")
	_, err := svc.ContinueToForm(ctx, "u1")
	require.NoError(t, err)

	form := validForm()
	form.GradeLevel = 9
	form.Strand = "STEM"
	_, err = svc.SaveDraft(ctx, "u1", form)
	require.NoError(t, err)

	saved, err := drafts.Find(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, saved.Form.Strand)
}

func TestClearFormResetsEverything(t *testing.T) {
	svc, drafts, _ := newWorkflowFixture(t)
	ctx := context.Background()

	attachAllRequired(t, svc, "u1")
	_, err := svc.ContinueToForm(ctx, "u1")
	require.NoError(t, err)
	_, err = svc.SaveDraft(ctx, "u1", validForm())
	require.NoError(t, err)

	view, err := svc.ClearForm(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, view.CheckedDocumentIDs)
	assert.Empty(t, view.Form.FirstName)
	assert.False(t, view.HasDraft)

	_, err = drafts.Find(ctx, "u1")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestSubmitReportsEveryFailure(t *testing.T) {
	svc, _, _ := newWorkflowFixture(t)
	ctx := context.Background()

	attachAllRequired(t, svc, "u1")
	_, err := svc.ContinueToForm(ctx, "u1")
	require.NoError(t, err)

	bad := validForm()
	bad.Email = "nope"
	bad.ZipCode = "12"
	_, err = svc.Submit(ctx, "u1", bad)
	var formErr *FormValidationError
	require.ErrorAs(t, err, &formErr)
	assert.Len(t, formErr.Fields, 2)

	// The failed submit must not advance the flow.
	view, err := svc.View(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, models.StateFormEditing, view.State)

	view, err = svc.Submit(ctx, "u1", validForm())
	require.NoError(t, err)
	assert.Equal(t, models.StatePaymentPending, view.State)
}

func TestCancelPaymentPreservesData(t *testing.T) {
	svc, _, _ := newWorkflowFixture(t)
	ctx := context.Background()

	attachAllRequired(t, svc, "u1")
	_, err := svc.ContinueToForm(ctx, "u1")
	require.NoError(t, err)
	form := validForm()
	_, err = svc.Submit(ctx, "u1", form)
	require.NoError(t, err)

	view, err := svc.CancelPayment(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, models.StateFormEditing, view.State)
	assert.Equal(t, form, view.Form)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, view.CheckedDocumentIDs)
}

func TestCompletePaymentFilesApplication(t *testing.T) {
	svc, drafts, apps := newWorkflowFixture(t)
	ctx := context.Background()

	attachAllRequired(t, svc, "u1")
	_, err := svc.ContinueToForm(ctx, "u1")
	require.NoError(t, err)
	_, err = svc.SaveDraft(ctx, "u1", validForm())
	require.NoError(t, err)
	_, err = svc.Submit(ctx, "u1", validForm())
	require.NoError(t, err)

	app, err := svc.CompletePayment(ctx, "u1", models.PaymentMethodCreditCard, cardDetails())
	require.NoError(t, err)
	assert.Regexp(t, `^APP-\d{4}-\d{5}$`, app.ID)
	assert.Equal(t, models.StatusPending, app.Status)

	// Stored card number keeps only the last four digits.
	assert.Equal(t, "**** **** **** 1234", app.Payment.Details.CardNumber)
	assert.Empty(t, app.Payment.Details.AccountNumber)

	// Attached documents enter review as Pending; the optional one stays out.
	require.Len(t, app.Documents, 6)
	for _, doc := range app.Documents {
		if doc.ID == 6 {
			assert.Equal(t, models.DocumentNotSubmitted, doc.Status)
		} else {
			assert.Equal(t, models.DocumentPending, doc.Status)
			assert.NotNil(t, doc.Date)
		}
	}

	// Draft removed, flow finished, record durable.
	_, err = drafts.Find(ctx, "u1")
	assert.ErrorIs(t, err, repository.ErrNotFound)
	view, err := svc.View(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, models.StateSubmitted, view.State)
	stored, err := apps.FindByUserID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, app.ID, stored.ID)

	// Submission locks the checklist.
	_, err = svc.ToggleDocument(ctx, "u1", 1, false)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidTransition.Code, appErrors.FromError(err).Code)
}

type recordingCache struct {
	invalidated []string
}

func (c *recordingCache) Get(ctx context.Context, key string, dest interface{}) error {
	return appErrors.ErrCacheMiss
}

func (c *recordingCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return nil
}

func (c *recordingCache) Invalidate(ctx context.Context, key string) {
	c.invalidated = append(c.invalidated, key)
}

func TestCompletePaymentInvalidatesSummaryCache(t *testing.T) {
	store := kvstore.NewMemory()
	drafts := repository.NewDraftRepository(store)
	apps := repository.NewApplicationRepository(store)
	payments := NewPaymentService(config.PaymentConfig{Amount: 1000, Currency: "PHP"}, nil, nil)
	cache := &recordingCache{}
	svc := NewWorkflowService(drafts, apps, payments, nil, nil, cache, nil, nil)
	ctx := context.Background()

	attachAllRequired(t, svc, "u1")
	_, err := svc.ContinueToForm(ctx, "u1")
	require.NoError(t, err)
	_, err = svc.Submit(ctx, "u1", validForm())
	require.NoError(t, err)
	assert.Empty(t, cache.invalidated)

	_, err = svc.CompletePayment(ctx, "u1", models.PaymentMethodCreditCard, cardDetails())
	require.NoError(t, err)
	assert.Equal(t, []string{summaryCacheKey}, cache.invalidated)
}

func TestCompletePaymentRejectsIncompleteDetails(t *testing.T) {
	svc, _, _ := newWorkflowFixture(t)
	ctx := context.Background()

	attachAllRequired(t, svc, "u1")
	_, err := svc.ContinueToForm(ctx, "u1")
	require.NoError(t, err)
	_, err = svc.Submit(ctx, "u1", validForm())
	require.NoError(t, err)

	_, err = svc.CompletePayment(ctx, "u1", models.PaymentMethodBankTransfer, models.PaymentDetails{AccountName: "Maria"})
	var formErr *FormValidationError
	require.ErrorAs(t, err, &formErr)

	// Still payable after the failure.
	view, err := svc.View(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, models.StatePaymentPending, view.State)
}

func TestCancelledPaymentHasNoSideEffect(t *testing.T) {
	store := kvstore.NewMemory()
	drafts := repository.NewDraftRepository(store)
	apps := repository.NewApplicationRepository(store)
	payments := NewPaymentService(config.PaymentConfig{Amount: 1000, Currency: "PHP", ProcessingDelay: 50 * time.Millisecond}, nil, nil)
	svc := NewWorkflowService(drafts, apps, payments, nil, nil, nil, nil, nil)
	ctx := context.Background()

	attachAllRequired(t, svc, "u1")
	_, err := svc.ContinueToForm(ctx, "u1")
	require.NoError(t, err)
	_, err = svc.Submit(ctx, "u1", validForm())
	require.NoError(t, err)

	cancelCtx, cancel := context.WithCancel(ctx)
	cancel()
	_, err = svc.CompletePayment(cancelCtx, "u1", models.PaymentMethodCreditCard, cardDetails())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPaymentCancelled.Code, appErrors.FromError(err).Code)

	_, err = apps.FindByUserID(ctx, "u1")
	assert.ErrorIs(t, err, repository.ErrNotFound)
	view, err := svc.View(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, models.StatePaymentPending, view.State)
}

func TestResumeFromSubmittedApplication(t *testing.T) {
	svc, _, apps := newWorkflowFixture(t)
	ctx := context.Background()

	require.NoError(t, apps.Create(ctx, &models.Application{UserID: "u1", Form: validForm()}))

	view, err := svc.View(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, models.StateSubmitted, view.State)

	app, err := svc.Application(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "u1", app.UserID)
}
