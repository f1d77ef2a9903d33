package service

import (
	"fmt"
	"sort"

	appErrors "github.com/streamline-hs/enrollment-portal-api/pkg/errors"

	"github.com/streamline-hs/enrollment-portal-api/internal/models"
)

// IncompleteChecklistError names the required documents still missing when
// the student tries to advance.
type IncompleteChecklistError struct {
	Missing []int
}

// Error implements the error interface.
func (e *IncompleteChecklistError) Error() string {
	return fmt.Sprintf("required documents missing: %v", e.Missing)
}

// Unwrap links the error into the shared taxonomy.
func (e *IncompleteChecklistError) Unwrap() error {
	return appErrors.ErrIncompleteChecklist
}

// Checklist tracks which documents a student has acknowledged or attached
// within one workflow instance. It lives in memory only; the workflow
// snapshots it into a draft when asked to. No document bytes are ever
// stored, "attaching" is acknowledgement alone.
type Checklist struct {
	requirements []models.Requirement
	checked      map[int]bool
}

// NewChecklist builds a tracker over the given requirement list.
func NewChecklist(requirements []models.Requirement) *Checklist {
	return &Checklist{
		requirements: requirements,
		checked:      make(map[int]bool),
	}
}

// Toggle marks the document attached or detached. Unknown ids are ignored.
func (c *Checklist) Toggle(documentID int, attached bool) {
	for _, req := range c.requirements {
		if req.ID == documentID {
			if attached {
				c.checked[documentID] = true
			} else {
				delete(c.checked, documentID)
			}
			return
		}
	}
}

// Checked returns the attached document ids in ascending order.
func (c *Checklist) Checked() []int {
	ids := make([]int, 0, len(c.checked))
	for id := range c.checked {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Missing returns the required document ids not yet attached, ascending.
func (c *Checklist) Missing() []int {
	var missing []int
	for _, req := range c.requirements {
		if req.Required && !c.checked[req.ID] {
			missing = append(missing, req.ID)
		}
	}
	sort.Ints(missing)
	return missing
}

// IsComplete reports whether every required document is attached.
func (c *Checklist) IsComplete() bool {
	return len(c.Missing()) == 0
}

// Restore replaces the tracker state with the given attached ids, as read
// back from a draft.
func (c *Checklist) Restore(ids []int) {
	c.checked = make(map[int]bool, len(ids))
	for _, id := range ids {
		c.Toggle(id, true)
	}
}

// Reset clears every acknowledgement.
func (c *Checklist) Reset() {
	c.checked = make(map[int]bool)
}

// Requirements exposes the fixed checklist definition.
func (c *Checklist) Requirements() []models.Requirement {
	return c.requirements
}
