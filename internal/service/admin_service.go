package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/streamline-hs/enrollment-portal-api/internal/models"
	"github.com/streamline-hs/enrollment-portal-api/internal/repository"
	"github.com/streamline-hs/enrollment-portal-api/pkg/config"
	appErrors "github.com/streamline-hs/enrollment-portal-api/pkg/errors"
)

const summaryCacheKey = "admin:summary"

type adminApplicationRepository interface {
	List(ctx context.Context) ([]models.Application, error)
	FindByID(ctx context.Context, id string) (*models.Application, error)
	UpdateStatus(ctx context.Context, id string, status models.ApplicationStatus) (*models.Application, error)
	AppendNote(ctx context.Context, id string, note models.Note) (*models.Application, error)
	SetDocumentStatus(ctx context.Context, id, documentName string, status models.DocumentStatus) (*models.Application, error)
	Delete(ctx context.Context, id string) error
}

type summaryCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Invalidate(ctx context.Context, key string)
}

// AdminService backs the review console: listing, searching, status
// changes, notes, document verification and the dashboard summary.
type AdminService struct {
	apps    adminApplicationRepository
	cache   summaryCache
	metrics *MetricsService
	logger  *zap.Logger
	cfg     config.CacheConfig
	now     func() time.Time
}

// NewAdminService constructs the review service. cache may be nil.
func NewAdminService(apps adminApplicationRepository, cache summaryCache, metrics *MetricsService, logger *zap.Logger, cfg config.CacheConfig) *AdminService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdminService{
		apps:    apps,
		cache:   cache,
		metrics: metrics,
		logger:  logger,
		cfg:     cfg,
		now:     time.Now,
	}
}

// List returns applications matching the filter, newest first. Search and
// status narrow the result together.
func (s *AdminService) List(ctx context.Context, filter models.ApplicationFilter) ([]models.Application, error) {
	apps, err := s.apps.List(ctx)
	if err != nil {
		return nil, persistenceErr(err, "failed to list applications")
	}

	needle := strings.ToLower(strings.TrimSpace(filter.Search))
	status := strings.TrimSpace(filter.Status)

	matched := make([]models.Application, 0, len(apps))
	for _, app := range apps {
		if needle != "" && !matchesSearch(&app, needle) {
			continue
		}
		if status != "" && status != "all" && string(app.Status) != status {
			continue
		}
		matched = append(matched, app)
	}

	// Newest submissions first.
	for i, j := 0, len(matched)-1; i < j; i, j = i+1, j-1 {
		matched[i], matched[j] = matched[j], matched[i]
	}
	return matched, nil
}

func matchesSearch(app *models.Application, needle string) bool {
	haystacks := []string{
		app.Form.FullName(),
		app.ID,
		app.Form.Email,
	}
	for _, h := range haystacks {
		if strings.Contains(strings.ToLower(h), needle) {
			return true
		}
	}
	return false
}

// Get returns a single application by id.
func (s *AdminService) Get(ctx context.Context, id string) (*models.Application, error) {
	app, err := s.apps.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "application not found")
		}
		return nil, persistenceErr(err, "failed to load application")
	}
	return app, nil
}

// ChangeStatus moves an application to a new review state.
func (s *AdminService) ChangeStatus(ctx context.Context, id string, status models.ApplicationStatus) (*models.Application, error) {
	if !models.ValidStatus(status) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown application status")
	}
	app, err := s.apps.UpdateStatus(ctx, id, status)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "application not found")
		}
		return nil, persistenceErr(err, "failed to update status")
	}
	s.invalidateSummary(ctx)
	s.logger.Info("application status changed",
		zap.String("application_id", id),
		zap.String("status", string(status)),
	)
	return app, nil
}

// AppendNote attaches an admin remark to the application.
func (s *AdminService) AppendNote(ctx context.Context, id, author, body string) (*models.Application, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "note body is required")
	}
	note := models.Note{Author: author, Body: body, CreatedAt: s.now().UTC()}
	app, err := s.apps.AppendNote(ctx, id, note)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "application not found")
		}
		return nil, persistenceErr(err, "failed to append note")
	}
	return app, nil
}

// SetDocumentStatus verifies or rejects a named document on the
// application's checklist.
func (s *AdminService) SetDocumentStatus(ctx context.Context, id, documentName string, status models.DocumentStatus) (*models.Application, error) {
	switch status {
	case models.DocumentPending, models.DocumentVerified, models.DocumentRejected, models.DocumentNotSubmitted:
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown document status")
	}
	app, err := s.apps.SetDocumentStatus(ctx, id, documentName, status)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "application or document not found")
		}
		return nil, persistenceErr(err, "failed to update document")
	}
	return app, nil
}

// Delete removes an application from the record store.
func (s *AdminService) Delete(ctx context.Context, id string) error {
	if err := s.apps.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return appErrors.Clone(appErrors.ErrNotFound, "application not found")
		}
		return persistenceErr(err, "failed to delete application")
	}
	s.invalidateSummary(ctx)
	s.logger.Info("application deleted", zap.String("application_id", id))
	return nil
}

// Summary computes the dashboard counts from the full application list.
// The result is cached when a cache is configured and invalidated on
// every mutation, so stale counts never outlive a change.
func (s *AdminService) Summary(ctx context.Context) (*models.ApplicationSummary, error) {
	if s.cache != nil && s.cfg.Enabled {
		var cached models.ApplicationSummary
		if err := s.cache.Get(ctx, summaryCacheKey, &cached); err == nil {
			s.metrics.RecordCacheOperation(true)
			return &cached, nil
		}
		s.metrics.RecordCacheOperation(false)
	}

	apps, err := s.apps.List(ctx)
	if err != nil {
		return nil, persistenceErr(err, "failed to list applications")
	}

	summary := s.summarize(apps)

	if s.cache != nil && s.cfg.Enabled {
		if err := s.cache.Set(ctx, summaryCacheKey, summary, s.cfg.SummaryTTL); err != nil {
			s.logger.Warn("failed to cache summary", zap.Error(err))
		}
	}
	return summary, nil
}

func (s *AdminService) summarize(apps []models.Application) *models.ApplicationSummary {
	summary := &models.ApplicationSummary{
		Total:        len(apps),
		ByStatus:     make(map[models.ApplicationStatus]int),
		ByGradeLevel: make(map[int]int),
	}

	now := s.now().UTC()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	weekday := (int(now.Weekday()) + 6) % 7 // Monday = 0
	startOfWeek := startOfDay.AddDate(0, 0, -weekday)

	for _, app := range apps {
		summary.ByStatus[app.Status]++
		summary.ByGradeLevel[app.Form.GradeLevel]++
		if !app.SubmittedAt.Before(startOfDay) {
			summary.Today++
		}
		if !app.SubmittedAt.Before(startOfWeek) {
			summary.ThisWeek++
		}
	}
	return summary
}

func (s *AdminService) invalidateSummary(ctx context.Context) {
	if s.cache != nil {
		s.cache.Invalidate(ctx, summaryCacheKey)
	}
}
