package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/streamline-hs/enrollment-portal-api/internal/models"
	"github.com/streamline-hs/enrollment-portal-api/internal/service"
	appErrors "github.com/streamline-hs/enrollment-portal-api/pkg/errors"
	"github.com/streamline-hs/enrollment-portal-api/pkg/response"
)

// EnrollmentHandler exposes the student enrollment flow.
type EnrollmentHandler struct {
	workflow *service.WorkflowService
}

// NewEnrollmentHandler creates a new handler.
func NewEnrollmentHandler(workflow *service.WorkflowService) *EnrollmentHandler {
	return &EnrollmentHandler{workflow: workflow}
}

// View godoc
// @Summary Current enrollment flow state
// @Description Return the student's flow step, checklist and form, resuming any saved draft
// @Tags Enrollment
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Security BearerAuth
// @Router /enrollment [get]
func (h *EnrollmentHandler) View(c *gin.Context) {
	claims := claimsFromContext(c)
	view, err := h.workflow.View(c.Request.Context(), claims.UserID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view)
}

type toggleDocumentRequest struct {
	Attached bool `json:"attached"`
}

// ToggleDocument godoc
// @Summary Mark a checklist document attached or detached
// @Tags Enrollment
// @Accept json
// @Produce json
// @Param id path int true "Document id"
// @Param payload body toggleDocumentRequest true "Toggle payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /enrollment/documents/{id} [post]
func (h *EnrollmentHandler) ToggleDocument(c *gin.Context) {
	documentID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "document id must be numeric"))
		return
	}

	var req toggleDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid toggle payload"))
		return
	}

	claims := claimsFromContext(c)
	view, err := h.workflow.ToggleDocument(c.Request.Context(), claims.UserID, documentID, req.Attached)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view)
}

// Continue godoc
// @Summary Advance from the checklist to the form
// @Description Requires every mandatory document to be acknowledged
// @Tags Enrollment
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Security BearerAuth
// @Router /enrollment/continue [post]
func (h *EnrollmentHandler) Continue(c *gin.Context) {
	claims := claimsFromContext(c)
	view, err := h.workflow.ContinueToForm(c.Request.Context(), claims.UserID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view)
}

// SaveDraft godoc
// @Summary Save the enrollment form as a draft
// @Description Overwrites any previous draft; the draft survives logout
// @Tags Enrollment
// @Accept json
// @Produce json
// @Param payload body models.EnrollmentForm true "Form fields"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /enrollment/draft [put]
func (h *EnrollmentHandler) SaveDraft(c *gin.Context) {
	var form models.EnrollmentForm
	if err := c.ShouldBindJSON(&form); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid form payload"))
		return
	}

	claims := claimsFromContext(c)
	view, err := h.workflow.SaveDraft(c.Request.Context(), claims.UserID, form)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view)
}

// ClearForm godoc
// @Summary Reset the form and checklist and delete the saved draft
// @Tags Enrollment
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /enrollment/form [delete]
func (h *EnrollmentHandler) ClearForm(c *gin.Context) {
	claims := claimsFromContext(c)
	view, err := h.workflow.ClearForm(c.Request.Context(), claims.UserID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view)
}

// Submit godoc
// @Summary Submit the enrollment form for payment
// @Description Validates the form and checklist; failures name every offending field
// @Tags Enrollment
// @Accept json
// @Produce json
// @Param payload body models.EnrollmentForm true "Form fields"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Security BearerAuth
// @Router /enrollment/submit [post]
func (h *EnrollmentHandler) Submit(c *gin.Context) {
	var form models.EnrollmentForm
	if err := c.ShouldBindJSON(&form); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid form payload"))
		return
	}

	claims := claimsFromContext(c)
	view, err := h.workflow.Submit(c.Request.Context(), claims.UserID, form)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view)
}

type completePaymentRequest struct {
	Method  models.PaymentMethod  `json:"method"`
	Details models.PaymentDetails `json:"details"`
}

// CompletePayment godoc
// @Summary Settle the enrollment fee and file the application
// @Description Cancelling the request during settlement leaves the flow unchanged
// @Tags Enrollment
// @Accept json
// @Produce json
// @Param payload body completePaymentRequest true "Payment payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /enrollment/payment [post]
func (h *EnrollmentHandler) CompletePayment(c *gin.Context) {
	var req completePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payment payload"))
		return
	}

	claims := claimsFromContext(c)
	app, err := h.workflow.CompletePayment(c.Request.Context(), claims.UserID, req.Method, req.Details)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Created(c, app)
}

// CancelPayment godoc
// @Summary Step back from payment to form editing
// @Tags Enrollment
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /enrollment/payment/cancel [post]
func (h *EnrollmentHandler) CancelPayment(c *gin.Context) {
	claims := claimsFromContext(c)
	view, err := h.workflow.CancelPayment(c.Request.Context(), claims.UserID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view)
}

// Application godoc
// @Summary The student's submitted application
// @Description Backs the student dashboard after submission
// @Tags Enrollment
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /enrollment/application [get]
func (h *EnrollmentHandler) Application(c *gin.Context) {
	claims := claimsFromContext(c)
	app, err := h.workflow.Application(c.Request.Context(), claims.UserID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.JSON(c, http.StatusOK, app)
}
