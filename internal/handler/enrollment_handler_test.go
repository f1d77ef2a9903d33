package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streamline-hs/enrollment-portal-api/internal/middleware"
	"github.com/streamline-hs/enrollment-portal-api/internal/models"
	"github.com/streamline-hs/enrollment-portal-api/internal/repository"
	"github.com/streamline-hs/enrollment-portal-api/internal/service"
	"github.com/streamline-hs/enrollment-portal-api/pkg/config"
	"github.com/streamline-hs/enrollment-portal-api/pkg/kvstore"
	"github.com/streamline-hs/enrollment-portal-api/pkg/response"
)

func newEnrollmentHandler(t *testing.T) *EnrollmentHandler {
	t.Helper()
	store := kvstore.NewMemory()
	drafts := repository.NewDraftRepository(store)
	apps := repository.NewApplicationRepository(store)
	payments := service.NewPaymentService(config.PaymentConfig{Amount: 1000, Currency: "PHP"}, nil, nil)
	workflow := service.NewWorkflowService(drafts, apps, payments, nil, nil, nil, nil, nil)
	return NewEnrollmentHandler(workflow)
}

func studentContext(t *testing.T, method, target string, body interface{}) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	var buf *bytes.Buffer
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		buf = bytes.NewBuffer(raw)
	} else {
		buf = &bytes.Buffer{}
	}
	req, err := http.NewRequest(method, target, buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "u1", Role: models.RoleStudent, Email: "maria@example.com"})
	return c, w
}

func enrollmentTestForm() models.EnrollmentForm {
	return models.EnrollmentForm{
		FirstName:                    "Maria",
		LastName:                     "Garcia",
		DateOfBirth:                  "2010-06-15",
		Gender:                       models.GenderFemale,
		Email:                        "maria@example.com",
		Phone:                        "09171234567",
		Street:                       "123 Mabini Street",
		City:                         "Quezon City",
		State:                        "Metro Manila",
		ZipCode:                      "11000",
		GradeLevel:                   8,
		EmergencyContactName:         "Jose Garcia",
		EmergencyContactPhone:        "09179876543",
		EmergencyContactRelationship: "Father",
	}
}

func attachRequired(t *testing.T, h *EnrollmentHandler) {
	t.Helper()
	for _, id := range models.RequiredIDs(models.DefaultRequirements()) {
		c, w := studentContext(t, http.MethodPost, fmt.Sprintf("/enrollment/documents/%d", id), toggleDocumentRequest{Attached: true})
		c.Params = gin.Params{{Key: "id", Value: fmt.Sprintf("%d", id)}}
		h.ToggleDocument(c)
		require.Equal(t, http.StatusOK, w.Code)
	}
}

func TestEnrollmentViewStartsAtWelcome(t *testing.T) {
	h := newEnrollmentHandler(t)

	c, w := studentContext(t, http.MethodGet, "/enrollment", nil)
	h.View(c)
	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Data models.WorkflowView `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, models.StateWelcome, envelope.Data.State)
	assert.Len(t, envelope.Data.Requirements, 6)
}

func TestContinueWithoutDocumentsNamesMissing(t *testing.T) {
	h := newEnrollmentHandler(t)

	c, w := studentContext(t, http.MethodPost, "/enrollment/continue", nil)
	h.Continue(c)
	require.Equal(t, http.StatusPreconditionFailed, w.Code)

	var envelope response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "INCOMPLETE_CHECKLIST", envelope.Error.Code)
	assert.ElementsMatch(t, []interface{}{1.0, 2.0, 3.0, 4.0, 5.0}, envelope.Meta["missing_documents"])
}

func TestSubmitReportsFieldErrorsInMeta(t *testing.T) {
	h := newEnrollmentHandler(t)
	attachRequired(t, h)

	c, w := studentContext(t, http.MethodPost, "/enrollment/continue", nil)
	h.Continue(c)
	require.Equal(t, http.StatusOK, w.Code)

	bad := enrollmentTestForm()
	bad.Email = "nope"
	c, w = studentContext(t, http.MethodPost, "/enrollment/submit", bad)
	h.Submit(c)
	require.Equal(t, http.StatusBadRequest, w.Code)

	var envelope response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "VALIDATION_ERROR", envelope.Error.Code)
	fields, ok := envelope.Meta["fields"].([]interface{})
	require.True(t, ok)
	require.Len(t, fields, 1)
	field := fields[0].(map[string]interface{})
	assert.Equal(t, "email", field["field"])
}

func TestFullFlowThroughHandlers(t *testing.T) {
	h := newEnrollmentHandler(t)
	attachRequired(t, h)

	c, w := studentContext(t, http.MethodPost, "/enrollment/continue", nil)
	h.Continue(c)
	require.Equal(t, http.StatusOK, w.Code)

	c, w = studentContext(t, http.MethodPut, "/enrollment/draft", enrollmentTestForm())
	h.SaveDraft(c)
	require.Equal(t, http.StatusOK, w.Code)

	c, w = studentContext(t, http.MethodPost, "/enrollment/submit", enrollmentTestForm())
	h.Submit(c)
	require.Equal(t, http.StatusOK, w.Code)

	c, w = studentContext(t, http.MethodPost, "/enrollment/payment", completePaymentRequest{
		Method: models.PaymentMethodCreditCard,
		Details: models.PaymentDetails{
			CardNumber: "4111111111119876",
			CardName:   "Maria Garcia",
			Expiry:     "12/27",
			CVC:        "123",
		},
	})
	h.CompletePayment(c)
	require.Equal(t, http.StatusCreated, w.Code)

	var envelope struct {
		Data models.Application `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Regexp(t, `^APP-\d{4}-\d{5}$`, envelope.Data.ID)
	assert.Equal(t, "************9876", envelope.Data.Payment.Details.CardNumber)

	c, w = studentContext(t, http.MethodGet, "/enrollment/application", nil)
	h.Application(c)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestToggleDocumentRejectsBadID(t *testing.T) {
	h := newEnrollmentHandler(t)

	c, w := studentContext(t, http.MethodPost, "/enrollment/documents/abc", toggleDocumentRequest{Attached: true})
	c.Params = gin.Params{{Key: "id", Value: "abc"}}
	h.ToggleDocument(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
