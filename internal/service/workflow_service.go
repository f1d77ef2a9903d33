package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/streamline-hs/enrollment-portal-api/internal/models"
	"github.com/streamline-hs/enrollment-portal-api/internal/repository"
	appErrors "github.com/streamline-hs/enrollment-portal-api/pkg/errors"
)

type workflowDraftRepository interface {
	Save(ctx context.Context, draft *models.EnrollmentDraft) error
	Find(ctx context.Context, userID string) (*models.EnrollmentDraft, error)
	Delete(ctx context.Context, userID string) error
}

type workflowApplicationRepository interface {
	Create(ctx context.Context, app *models.Application) error
	FindByUserID(ctx context.Context, userID string) (*models.Application, error)
}

type paymentProcessor interface {
	Process(ctx context.Context, method models.PaymentMethod, details models.PaymentDetails) (*models.PaymentRecord, error)
}

// studentFlow is one student's in-memory enrollment flow instance.
type studentFlow struct {
	state     models.WorkflowState
	form      models.EnrollmentForm
	checklist *Checklist
	hasDraft  bool
}

// WorkflowService drives the enrollment flow through
// Welcome -> FormEditing -> PaymentPending -> Submitted, with draft
// save/resume in between. Flow instances are held in memory per student;
// only drafts and submitted applications touch the persistence store.
type WorkflowService struct {
	drafts       workflowDraftRepository
	apps         workflowApplicationRepository
	payments     paymentProcessor
	validator    *FormValidator
	requirements []models.Requirement
	cache        summaryCache
	metrics      *MetricsService
	logger       *zap.Logger

	mu    sync.Mutex
	flows map[string]*studentFlow
}

// NewWorkflowService constructs the workflow orchestrator. cache may be
// nil; when set, the admin summary cache is invalidated whenever a new
// application is filed.
func NewWorkflowService(drafts workflowDraftRepository, apps workflowApplicationRepository, payments paymentProcessor, formValidator *FormValidator, requirements []models.Requirement, cache summaryCache, metrics *MetricsService, logger *zap.Logger) *WorkflowService {
	if formValidator == nil {
		formValidator = NewFormValidator()
	}
	if len(requirements) == 0 {
		requirements = models.DefaultRequirements()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WorkflowService{
		drafts:       drafts,
		apps:         apps,
		payments:     payments,
		validator:    formValidator,
		requirements: requirements,
		cache:        cache,
		metrics:      metrics,
		logger:       logger,
		flows:        make(map[string]*studentFlow),
	}
}

// flow returns the student's flow instance, creating and resuming it on
// first touch: a submitted application wins over a draft, a draft resumes
// straight into form editing, and everyone else starts at the welcome
// checklist.
func (s *WorkflowService) flow(ctx context.Context, userID string) (*studentFlow, error) {
	if f, ok := s.flows[userID]; ok {
		return f, nil
	}

	f := &studentFlow{state: models.StateWelcome, checklist: NewChecklist(s.requirements)}

	if _, err := s.apps.FindByUserID(ctx, userID); err == nil {
		f.state = models.StateSubmitted
		s.flows[userID] = f
		return f, nil
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, persistenceErr(err, "failed to load application")
	}

	if draft, err := s.drafts.Find(ctx, userID); err == nil {
		f.state = models.StateFormEditing
		f.form = draft.Form
		f.checklist.Restore(draft.CheckedDocumentIDs)
		f.hasDraft = true
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, persistenceErr(err, "failed to load draft")
	}

	s.flows[userID] = f
	return f, nil
}

func (s *WorkflowService) view(f *studentFlow) *models.WorkflowView {
	return &models.WorkflowView{
		State:              f.state,
		Requirements:       f.checklist.Requirements(),
		CheckedDocumentIDs: f.checklist.Checked(),
		Form:               f.form,
		HasDraft:           f.hasDraft,
		MissingDocuments:   f.checklist.Missing(),
	}
}

// View reports the current flow state for the signed-in student.
func (s *WorkflowService) View(ctx context.Context, userID string) (*models.WorkflowView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, err := s.flow(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.view(f), nil
}

// ToggleDocument marks a checklist document attached or detached. Allowed
// on the welcome step and while editing the form.
func (s *WorkflowService) ToggleDocument(ctx context.Context, userID string, documentID int, attached bool) (*models.WorkflowView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, err := s.flow(ctx, userID)
	if err != nil {
		return nil, err
	}
	if f.state != models.StateWelcome && f.state != models.StateFormEditing {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "documents cannot change after submission")
	}
	f.checklist.Toggle(documentID, attached)
	return s.view(f), nil
}

// ContinueToForm advances Welcome -> FormEditing once every required
// document is acknowledged.
func (s *WorkflowService) ContinueToForm(ctx context.Context, userID string) (*models.WorkflowView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, err := s.flow(ctx, userID)
	if err != nil {
		return nil, err
	}
	if f.state != models.StateWelcome {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "the checklist step is already behind you")
	}
	if !f.checklist.IsComplete() {
		return nil, &IncompleteChecklistError{Missing: f.checklist.Missing()}
	}
	f.state = models.StateFormEditing
	return s.view(f), nil
}

// SaveDraft persists the form fields and acknowledged documents under the
// student's id, overwriting any previous draft. No state transition.
func (s *WorkflowService) SaveDraft(ctx context.Context, userID string, form models.EnrollmentForm) (*models.WorkflowView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, err := s.flow(ctx, userID)
	if err != nil {
		return nil, err
	}
	if f.state != models.StateFormEditing {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "drafts can only be saved while editing the form")
	}

	s.validator.Normalize(&form)
	draft := &models.EnrollmentDraft{
		UserID:             userID,
		Form:               form,
		CheckedDocumentIDs: f.checklist.Checked(),
	}
	if err := s.drafts.Save(ctx, draft); err != nil {
		return nil, persistenceErr(err, "failed to save draft")
	}
	f.form = form
	f.hasDraft = true
	return s.view(f), nil
}

// ClearForm resets the form and the checklist and removes any saved draft.
func (s *WorkflowService) ClearForm(ctx context.Context, userID string) (*models.WorkflowView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, err := s.flow(ctx, userID)
	if err != nil {
		return nil, err
	}
	if f.state != models.StateFormEditing {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "the form can only be cleared while editing it")
	}
	if err := s.drafts.Delete(ctx, userID); err != nil {
		return nil, persistenceErr(err, "failed to delete draft")
	}
	f.form = models.EnrollmentForm{}
	f.checklist.Reset()
	f.hasDraft = false
	return s.view(f), nil
}

// Submit validates the form and the checklist. On success the flow moves
// to PaymentPending carrying the validated form forward; on failure it
// stays in FormEditing and the error names every offending field or
// missing document.
func (s *WorkflowService) Submit(ctx context.Context, userID string, form models.EnrollmentForm) (*models.WorkflowView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, err := s.flow(ctx, userID)
	if err != nil {
		return nil, err
	}
	if f.state != models.StateFormEditing {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "submission is only possible from the form step")
	}

	if verr := s.validator.Validate(&form); verr != nil {
		f.form = form
		return nil, verr
	}
	if !f.checklist.IsComplete() {
		f.form = form
		return nil, &IncompleteChecklistError{Missing: f.checklist.Missing()}
	}

	f.form = form
	f.state = models.StatePaymentPending
	return s.view(f), nil
}

// CancelPayment steps back from PaymentPending to FormEditing with all
// entered data preserved.
func (s *WorkflowService) CancelPayment(ctx context.Context, userID string) (*models.WorkflowView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, err := s.flow(ctx, userID)
	if err != nil {
		return nil, err
	}
	if f.state != models.StatePaymentPending {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "no payment in progress")
	}
	f.state = models.StateFormEditing
	return s.view(f), nil
}

// CompletePayment runs the simulated settlement and, on success, writes
// the application record, deletes the draft and finishes the flow. The
// settlement happens outside the flow lock so a concurrent CancelPayment
// is honoured: if the flow left PaymentPending while the payment was in
// flight, nothing is written.
func (s *WorkflowService) CompletePayment(ctx context.Context, userID string, method models.PaymentMethod, details models.PaymentDetails) (*models.Application, error) {
	s.mu.Lock()
	f, err := s.flow(ctx, userID)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	if f.state != models.StatePaymentPending {
		s.mu.Unlock()
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "no payment in progress")
	}
	s.mu.Unlock()

	receipt, err := s.payments.Process(ctx, method, details)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if f.state != models.StatePaymentPending {
		return nil, appErrors.Clone(appErrors.ErrPaymentCancelled, "payment was cancelled")
	}

	app := &models.Application{
		UserID:    userID,
		Form:      f.form,
		Status:    models.StatusPending,
		Documents: s.documentsFrom(f.checklist, receipt.Timestamp),
		Payment:   *receipt,
	}
	if err := s.apps.Create(ctx, app); err != nil {
		return nil, persistenceErr(err, "failed to store application")
	}
	if err := s.drafts.Delete(ctx, userID); err != nil {
		// The application is already durable; losing the draft cleanup is
		// survivable and logged rather than surfaced.
		s.logger.Warn("failed to delete draft after submission", zap.String("user_id", userID), zap.Error(err))
	}

	f.state = models.StateSubmitted
	f.hasDraft = false

	if s.cache != nil {
		s.cache.Invalidate(ctx, summaryCacheKey)
	}
	if s.metrics != nil {
		s.metrics.RecordApplicationSubmitted()
	}
	s.logger.Info("application submitted",
		zap.String("application_id", app.ID),
		zap.String("user_id", userID),
		zap.Int("grade_level", app.Form.GradeLevel),
	)
	return app, nil
}

// Application returns the student's submitted record for the dashboard.
func (s *WorkflowService) Application(ctx context.Context, userID string) (*models.Application, error) {
	app, err := s.apps.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no submitted application")
		}
		return nil, persistenceErr(err, "failed to load application")
	}
	return app, nil
}

// documentsFrom derives the application's document records from the
// checklist snapshot: acknowledged documents enter review as Pending,
// unacknowledged optional ones stay NotSubmitted.
func (s *WorkflowService) documentsFrom(checklist *Checklist, at time.Time) []models.DocumentRecord {
	checked := make(map[int]bool)
	for _, id := range checklist.Checked() {
		checked[id] = true
	}
	docs := make([]models.DocumentRecord, 0, len(s.requirements))
	for _, req := range s.requirements {
		rec := models.DocumentRecord{ID: req.ID, Name: req.Name, Status: models.DocumentNotSubmitted}
		if checked[req.ID] {
			rec.Status = models.DocumentPending
			t := at
			rec.Date = &t
		}
		docs = append(docs, rec)
	}
	return docs
}

func persistenceErr(err error, message string) error {
	return appErrors.Wrap(err, appErrors.ErrPersistenceUnavailable.Code, appErrors.ErrPersistenceUnavailable.Status, message)
}
