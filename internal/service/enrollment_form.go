package service

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	appErrors "github.com/streamline-hs/enrollment-portal-api/pkg/errors"

	"github.com/streamline-hs/enrollment-portal-api/internal/models"
)

// FormValidationError carries the full set of per-field failures collected
// from one validation pass. Validation is never fail-fast.
type FormValidationError struct {
	Fields []models.FieldError
}

// Error implements the error interface.
func (e *FormValidationError) Error() string {
	return fmt.Sprintf("form validation failed on %d field(s)", len(e.Fields))
}

// Unwrap links the error into the shared taxonomy.
func (e *FormValidationError) Unwrap() error {
	return appErrors.ErrValidation
}

// FormValidator validates enrollment forms against the fixed rule set.
type FormValidator struct {
	validate *validator.Validate
}

// NewFormValidator constructs a validator that reports json field names.
func NewFormValidator() *FormValidator {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &FormValidator{validate: v}
}

// Normalize applies the strand clearing rule: a strand selection only makes
// sense for senior high (grades 11-12) and is wiped whenever the grade
// level drops below that, so stale picks never survive a grade change.
func (fv *FormValidator) Normalize(form *models.EnrollmentForm) {
	if form.GradeLevel < models.SeniorHighMinGrade {
		form.Strand = ""
	}
}

// Validate normalizes the form and collects every rule violation. It
// returns nil when the form is acceptable for submission.
func (fv *FormValidator) Validate(form *models.EnrollmentForm) *FormValidationError {
	fv.Normalize(form)

	var fields []models.FieldError

	if err := fv.validate.Struct(form); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range verrs {
				fields = append(fields, models.FieldError{Field: fe.Field(), Reason: reasonFor(fe)})
			}
		} else {
			fields = append(fields, models.FieldError{Field: "form", Reason: "invalid form payload"})
		}
	}

	if form.DateOfBirth != "" {
		if _, err := time.Parse("2006-01-02", form.DateOfBirth); err != nil {
			fields = append(fields, models.FieldError{Field: "date_of_birth", Reason: "must be a valid date (YYYY-MM-DD)"})
		}
	}

	if form.GradeLevel >= models.SeniorHighMinGrade && strings.TrimSpace(form.Strand) == "" {
		fields = append(fields, models.FieldError{Field: "strand", Reason: "strand is required for grades 11 and 12"})
	}

	if len(fields) == 0 {
		return nil
	}
	return &FormValidationError{Fields: fields}
}

func reasonFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "oneof":
		return "must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at least %s characters", fe.Param())
		}
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at most %s characters", fe.Param())
		}
		return fmt.Sprintf("must be at most %s", fe.Param())
	default:
		return "is invalid"
	}
}
