package models

// WorkflowState is one step of the student enrollment flow.
type WorkflowState string

const (
	StateWelcome        WorkflowState = "welcome"
	StateFormEditing    WorkflowState = "form_editing"
	StatePaymentPending WorkflowState = "payment_pending"
	StateSubmitted      WorkflowState = "submitted"
)

// WorkflowView is the API projection of one student's flow instance.
type WorkflowView struct {
	State              WorkflowState  `json:"state"`
	Requirements       []Requirement  `json:"requirements"`
	CheckedDocumentIDs []int          `json:"checked_document_ids"`
	Form               EnrollmentForm `json:"form"`
	HasDraft           bool           `json:"has_draft"`
	MissingDocuments   []int          `json:"missing_documents,omitempty"`
}
