package models

import "time"

// Gender options accepted by the enrollment form.
const (
	GenderMale           = "male"
	GenderFemale         = "female"
	GenderOther          = "other"
	GenderPreferNotToSay = "prefer_not_to_say"
)

// SeniorHighMinGrade is the first grade level that requires a strand
// (academic track) selection.
const SeniorHighMinGrade = 11

// EnrollmentForm is the structured application record collected from the
// student. Validation rules live in the enrollment form validator; the
// struct tags cover the unconditional ones, the strand rule is conditional
// on grade level.
type EnrollmentForm struct {
	FirstName   string `json:"first_name" validate:"required,min=2"`
	MiddleName  string `json:"middle_name,omitempty"`
	LastName    string `json:"last_name" validate:"required,min=2"`
	DateOfBirth string `json:"date_of_birth" validate:"required"`
	Gender      string `json:"gender" validate:"required,oneof=male female other prefer_not_to_say"`
	Email       string `json:"email" validate:"required,email"`
	Phone       string `json:"phone" validate:"required,min=10"`

	Street  string `json:"street" validate:"required,min=10"`
	City    string `json:"city" validate:"required,min=2"`
	State   string `json:"state" validate:"required,min=2"`
	ZipCode string `json:"zip_code" validate:"required,min=5"`

	GradeLevel     int    `json:"grade_level" validate:"required,min=7,max=12"`
	Strand         string `json:"strand,omitempty"`
	PreviousSchool string `json:"previous_school,omitempty"`

	EmergencyContactName         string `json:"emergency_contact_name" validate:"required,min=2"`
	EmergencyContactPhone        string `json:"emergency_contact_phone" validate:"required,min=10"`
	EmergencyContactRelationship string `json:"emergency_contact_relationship" validate:"required,min=2"`
}

// FullName joins the name parts for display and search.
func (f EnrollmentForm) FullName() string {
	if f.MiddleName != "" {
		return f.FirstName + " " + f.MiddleName + " " + f.LastName
	}
	return f.FirstName + " " + f.LastName
}

// FieldError reports one failed validation rule, scoped to a field.
type FieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// EnrollmentDraft is the provisionally saved form plus acknowledged
// document ids, keyed by user id. Overwritten on every save and deleted on
// successful submission. Never read by the admin side.
type EnrollmentDraft struct {
	UserID             string         `json:"user_id"`
	Form               EnrollmentForm `json:"form"`
	CheckedDocumentIDs []int          `json:"checked_document_ids"`
	SavedAt            time.Time      `json:"saved_at"`
}
