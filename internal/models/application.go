package models

import (
	"encoding/json"
	"time"
)

// ApplicationStatus is the admin-facing review state.
type ApplicationStatus string

const (
	StatusPending     ApplicationStatus = "Pending"
	StatusUnderReview ApplicationStatus = "Under Review"
	StatusApproved    ApplicationStatus = "Approved"
	StatusRejected    ApplicationStatus = "Rejected"
)

// ValidStatus reports whether s is one of the known review states.
func ValidStatus(s ApplicationStatus) bool {
	switch s {
	case StatusPending, StatusUnderReview, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// Note is one admin remark on an application.
type Note struct {
	Author    string    `json:"author"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// NoteList unmarshals both the canonical note array and the legacy single
// string shape some older records carry.
type NoteList []Note

// UnmarshalJSON accepts either a JSON array of notes or a bare string.
func (n *NoteList) UnmarshalJSON(data []byte) error {
	var notes []Note
	if err := json.Unmarshal(data, &notes); err == nil {
		*n = notes
		return nil
	}
	var legacy string
	if err := json.Unmarshal(data, &legacy); err != nil {
		return err
	}
	if legacy == "" {
		*n = nil
		return nil
	}
	*n = NoteList{{Body: legacy}}
	return nil
}

// Application is the durable record of a submitted enrollment. It is
// created exactly once, at successful payment completion, and afterwards
// mutated only by the admin review flow.
type Application struct {
	ID          string            `json:"id"`
	UserID      string            `json:"user_id"`
	Form        EnrollmentForm    `json:"form"`
	Status      ApplicationStatus `json:"status"`
	Documents   []DocumentRecord  `json:"documents"`
	Payment     PaymentRecord     `json:"payment"`
	SubmittedAt time.Time         `json:"submitted_date"`
	LastUpdated time.Time         `json:"last_updated"`
	Notes       NoteList          `json:"notes,omitempty"`
}

// Normalize applies the defaulting rule for records written by older logic:
// a missing status becomes Pending and a missing document list becomes the
// required checklist, all unsubmitted.
func (a *Application) Normalize() {
	if a.Status == "" {
		a.Status = StatusPending
	}
	if len(a.Documents) == 0 {
		for _, req := range DefaultRequirements() {
			if !req.Required {
				continue
			}
			a.Documents = append(a.Documents, DocumentRecord{ID: req.ID, Name: req.Name, Status: DocumentNotSubmitted})
		}
	}
}

// ApplicationFilter narrows admin listings. Search matches name, id and
// email substrings case-insensitively; Status of "all" (or empty) matches
// everything. Both compose with logical AND.
type ApplicationFilter struct {
	Search string
	Status string
}

// ApplicationSummary holds the derived dashboard counts. It is recomputed
// from the full list after every mutation, never maintained incrementally.
type ApplicationSummary struct {
	Total        int                       `json:"total"`
	ByStatus     map[ApplicationStatus]int `json:"by_status"`
	ByGradeLevel map[int]int               `json:"by_grade_level"`
	Today        int                       `json:"today"`
	ThisWeek     int                       `json:"this_week"`
}
