package models

import "time"

// DocumentStatus tracks admin verification of a submitted document.
type DocumentStatus string

const (
	DocumentNotSubmitted DocumentStatus = "NotSubmitted"
	DocumentPending      DocumentStatus = "Pending"
	DocumentVerified     DocumentStatus = "Verified"
	DocumentRejected     DocumentStatus = "Rejected"
)

// Requirement is one entry of the fixed enrollment checklist. No file bytes
// are ever stored; "attaching" a document is an acknowledgement only.
type Requirement struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Required    bool   `json:"required"`
}

// DocumentRecord is the per-application state of one checklist document.
type DocumentRecord struct {
	ID     int            `json:"id"`
	Name   string         `json:"name"`
	Status DocumentStatus `json:"status"`
	Date   *time.Time     `json:"date,omitempty"`
}

// DefaultRequirements returns the checklist presented on the welcome step.
func DefaultRequirements() []Requirement {
	return []Requirement{
		{ID: 1, Name: "Birth Certificate", Description: "Original or certified true copy", Required: true},
		{ID: 2, Name: "Report Card / Form 138", Description: "From previous school year", Required: true},
		{ID: 3, Name: "Certificate of Good Moral Character", Description: "From previous school", Required: true},
		{ID: 4, Name: "2x2 ID Pictures", Description: "White background, 4 copies", Required: true},
		{ID: 5, Name: "Medical Certificate", Description: "From a licensed physician", Required: true},
		{ID: 6, Name: "Proof of Residency", Description: "Utility bill or valid ID", Required: false},
	}
}

// RequiredIDs filters a requirement list down to the mandatory ids.
func RequiredIDs(reqs []Requirement) []int {
	ids := make([]int, 0, len(reqs))
	for _, r := range reqs {
		if r.Required {
			ids = append(ids, r.ID)
		}
	}
	return ids
}
