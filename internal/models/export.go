package models

import "time"

// ExportFormat selects the rendered file type for an applications export.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

// ValidExportFormat reports whether f is a supported format.
func ValidExportFormat(f ExportFormat) bool {
	return f == ExportFormatCSV || f == ExportFormatPDF
}

// ExportJobStatus is the lifecycle of a queued export.
type ExportJobStatus string

const (
	ExportQueued    ExportJobStatus = "queued"
	ExportRunning   ExportJobStatus = "running"
	ExportCompleted ExportJobStatus = "completed"
	ExportFailed    ExportJobStatus = "failed"
)

// ExportJob tracks one background export of the applications table.
type ExportJob struct {
	ID          string          `json:"id"`
	Format      ExportFormat    `json:"format"`
	Status      ExportJobStatus `json:"status"`
	FileName    string          `json:"file_name,omitempty"`
	ContentType string          `json:"content_type,omitempty"`
	Size        int             `json:"size,omitempty"`
	Error       string          `json:"error,omitempty"`
	RequestedBy string          `json:"requested_by"`
	CreatedAt   time.Time       `json:"created_at"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
}
