package service

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/streamline-hs/enrollment-portal-api/internal/models"
	"github.com/streamline-hs/enrollment-portal-api/pkg/config"
	appErrors "github.com/streamline-hs/enrollment-portal-api/pkg/errors"
	"github.com/streamline-hs/enrollment-portal-api/pkg/export"
	"github.com/streamline-hs/enrollment-portal-api/pkg/jobs"
)

type exportApplicationLister interface {
	List(ctx context.Context) ([]models.Application, error)
}

type csvRenderer interface {
	Render(table export.Table) ([]byte, error)
}

type pdfRenderer interface {
	Render(table export.Table) ([]byte, error)
}

// ExportService generates CSV and PDF exports of the applications table
// in the background. Jobs and their rendered bytes are held in memory and
// expire after the configured TTL.
type ExportService struct {
	apps    exportApplicationLister
	csv     csvRenderer
	pdf     pdfRenderer
	metrics *MetricsService
	logger  *zap.Logger
	cfg     config.ExportsConfig
	now     func() time.Time

	// maxRetries mirrors the queue's effective retry limit so run can
	// tell a retryable failure from a terminal one.
	maxRetries int

	queue *jobs.Queue

	mu      sync.RWMutex
	records map[string]*models.ExportJob
	results map[string][]byte
}

// NewExportService constructs the export pipeline. Call Start before
// requesting jobs and Stop on shutdown.
func NewExportService(apps exportApplicationLister, cfg config.ExportsConfig, metrics *MetricsService, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = time.Hour
	}
	retries := cfg.WorkerRetries
	if retries <= 0 {
		retries = 3
	}
	s := &ExportService{
		apps:       apps,
		csv:        export.NewCSVExporter(),
		pdf:        export.NewPDFExporter(),
		metrics:    metrics,
		logger:     logger,
		cfg:        cfg,
		now:        time.Now,
		maxRetries: retries,
		records:    make(map[string]*models.ExportJob),
		results:    make(map[string][]byte),
	}
	s.queue = jobs.New("exports", s.run, jobs.Options{
		Workers:    cfg.WorkerConcurrency,
		MaxRetries: retries,
		Logger:     logger,
	})
	return s
}

// Start launches the export workers.
func (s *ExportService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the workers.
func (s *ExportService) Stop() {
	s.queue.Stop()
}

// Request queues a new export and returns the job descriptor immediately.
func (s *ExportService) Request(format models.ExportFormat, requestedBy string) (*models.ExportJob, error) {
	if !models.ValidExportFormat(format) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "export format must be csv or pdf")
	}

	job := &models.ExportJob{
		ID:          uuid.NewString(),
		Format:      format,
		Status:      models.ExportQueued,
		RequestedBy: requestedBy,
		CreatedAt:   s.now().UTC(),
	}

	s.mu.Lock()
	s.sweepLocked()
	s.records[job.ID] = job
	s.mu.Unlock()

	if err := s.queue.Enqueue(jobs.Task{ID: job.ID, Kind: "applications-export"}); err != nil {
		s.mu.Lock()
		delete(s.records, job.ID)
		s.mu.Unlock()
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to queue export")
	}

	return s.snapshot(job.ID), nil
}

// Job returns the current descriptor for an export job.
func (s *ExportService) Job(id string) (*models.ExportJob, error) {
	job := s.snapshot(id)
	if job == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "export job not found")
	}
	return job, nil
}

// Result returns the rendered bytes of a completed job.
func (s *ExportService) Result(id string) (*models.ExportJob, []byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.records[id]
	if !ok {
		return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "export job not found")
	}
	if job.Status != models.ExportCompleted {
		return nil, nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("export job is %s", job.Status))
	}
	copied := *job
	return &copied, s.results[id], nil
}

func (s *ExportService) run(ctx context.Context, task jobs.Task) error {
	s.setStatus(task.ID, models.ExportRunning, "")

	job := s.snapshot(task.ID)
	if job == nil {
		return nil
	}

	apps, err := s.apps.List(ctx)
	if err != nil {
		s.fail(job, task.Attempt, err)
		return err
	}

	table := buildApplicationsTable(apps)

	var payload []byte
	var contentType, ext string
	switch job.Format {
	case models.ExportFormatCSV:
		payload, err = s.csv.Render(table)
		contentType, ext = "text/csv", "csv"
	case models.ExportFormatPDF:
		payload, err = s.pdf.Render(table)
		contentType, ext = "application/pdf", "pdf"
	default:
		err = fmt.Errorf("unsupported export format %s", job.Format)
	}
	if err != nil {
		s.fail(job, task.Attempt, err)
		return err
	}

	now := s.now().UTC()
	s.mu.Lock()
	if rec, ok := s.records[job.ID]; ok {
		rec.Status = models.ExportCompleted
		rec.FileName = fmt.Sprintf("applications-%s.%s", now.Format("20060102-150405"), ext)
		rec.ContentType = contentType
		rec.Size = len(payload)
		rec.CompletedAt = &now
		rec.Error = ""
		s.results[job.ID] = payload
	}
	s.mu.Unlock()

	s.metrics.RecordExportJob(string(job.Format), "completed")
	s.logger.Info("export completed",
		zap.String("job_id", job.ID),
		zap.String("format", string(job.Format)),
		zap.Int("rows", len(apps)),
	)
	return nil
}

// fail records the outcome of a failed attempt. While retries remain the
// job goes back to queued and nothing is counted; only the terminal
// attempt marks the job failed and increments the failure metric.
func (s *ExportService) fail(job *models.ExportJob, attempt int, err error) {
	if attempt < s.maxRetries {
		s.setStatus(job.ID, models.ExportQueued, "")
		s.logger.Warn("export attempt failed",
			zap.String("job_id", job.ID),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
		return
	}
	s.setStatus(job.ID, models.ExportFailed, err.Error())
	s.metrics.RecordExportJob(string(job.Format), "failed")
	s.logger.Error("export failed", zap.String("job_id", job.ID), zap.Error(err))
}

func (s *ExportService) setStatus(id string, status models.ExportJobStatus, errMsg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.records[id]; ok {
		rec.Status = status
		rec.Error = errMsg
	}
}

func (s *ExportService) snapshot(id string) *models.ExportJob {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[id]
	if !ok {
		return nil
	}
	copied := *rec
	return &copied
}

// sweepLocked drops expired jobs and their payloads. Caller holds s.mu.
func (s *ExportService) sweepLocked() {
	cutoff := s.now().UTC().Add(-s.cfg.JobTTL)
	for id, rec := range s.records {
		if rec.CreatedAt.Before(cutoff) {
			delete(s.records, id)
			delete(s.results, id)
		}
	}
}

func buildApplicationsTable(apps []models.Application) export.Table {
	table := export.Table{
		Title:   "Enrollment Applications",
		Headers: []string{"ID", "Student", "Email", "Grade Level", "Strand", "Status", "Submitted", "Payment Ref"},
	}
	for _, app := range apps {
		submitted := ""
		if !app.SubmittedAt.IsZero() {
			submitted = app.SubmittedAt.UTC().Format("2006-01-02 15:04")
		}
		table.Rows = append(table.Rows, []string{
			app.ID,
			app.Form.FullName(),
			app.Form.Email,
			strconv.Itoa(app.Form.GradeLevel),
			app.Form.Strand,
			string(app.Status),
			submitted,
			app.Payment.Reference,
		})
	}
	return table
}
