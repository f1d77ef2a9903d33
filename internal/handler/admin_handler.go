package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/streamline-hs/enrollment-portal-api/internal/models"
	"github.com/streamline-hs/enrollment-portal-api/internal/service"
	appErrors "github.com/streamline-hs/enrollment-portal-api/pkg/errors"
	"github.com/streamline-hs/enrollment-portal-api/pkg/response"
)

// AdminHandler exposes the application review console.
type AdminHandler struct {
	admin   *service.AdminService
	exports *service.ExportService
}

// NewAdminHandler creates a new handler.
func NewAdminHandler(admin *service.AdminService, exports *service.ExportService) *AdminHandler {
	return &AdminHandler{admin: admin, exports: exports}
}

// ListApplications godoc
// @Summary List applications
// @Description Search matches name, id and email; status narrows further
// @Tags Admin
// @Produce json
// @Param search query string false "Case-insensitive search"
// @Param status query string false "Status filter, or all"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/applications [get]
func (h *AdminHandler) ListApplications(c *gin.Context) {
	filter := models.ApplicationFilter{
		Search: c.Query("search"),
		Status: c.Query("status"),
	}
	apps, err := h.admin.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, apps, map[string]interface{}{"count": len(apps)})
}

// GetApplication godoc
// @Summary One application by id
// @Tags Admin
// @Produce json
// @Param id path string true "Application id"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/applications/{id} [get]
func (h *AdminHandler) GetApplication(c *gin.Context) {
	app, err := h.admin.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, app)
}

type changeStatusRequest struct {
	Status models.ApplicationStatus `json:"status" binding:"required"`
}

// ChangeStatus godoc
// @Summary Move an application to a new review state
// @Tags Admin
// @Accept json
// @Produce json
// @Param id path string true "Application id"
// @Param payload body changeStatusRequest true "New status"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/applications/{id}/status [patch]
func (h *AdminHandler) ChangeStatus(c *gin.Context) {
	var req changeStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid status payload"))
		return
	}
	app, err := h.admin.ChangeStatus(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, app)
}

type appendNoteRequest struct {
	Body string `json:"body" binding:"required"`
}

// AppendNote godoc
// @Summary Attach a review note
// @Tags Admin
// @Accept json
// @Produce json
// @Param id path string true "Application id"
// @Param payload body appendNoteRequest true "Note body"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/applications/{id}/notes [post]
func (h *AdminHandler) AppendNote(c *gin.Context) {
	var req appendNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid note payload"))
		return
	}
	claims := claimsFromContext(c)
	app, err := h.admin.AppendNote(c.Request.Context(), c.Param("id"), claims.Email, req.Body)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, app)
}

type setDocumentStatusRequest struct {
	Name   string                `json:"name" binding:"required"`
	Status models.DocumentStatus `json:"status" binding:"required"`
}

// SetDocumentStatus godoc
// @Summary Verify or reject a submitted document
// @Tags Admin
// @Accept json
// @Produce json
// @Param id path string true "Application id"
// @Param payload body setDocumentStatusRequest true "Document name and status"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/applications/{id}/documents [patch]
func (h *AdminHandler) SetDocumentStatus(c *gin.Context) {
	var req setDocumentStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid document payload"))
		return
	}
	app, err := h.admin.SetDocumentStatus(c.Request.Context(), c.Param("id"), req.Name, req.Status)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, app)
}

// DeleteApplication godoc
// @Summary Remove an application
// @Tags Admin
// @Produce json
// @Param id path string true "Application id"
// @Success 204 "No Content"
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/applications/{id} [delete]
func (h *AdminHandler) DeleteApplication(c *gin.Context) {
	if err := h.admin.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Summary godoc
// @Summary Dashboard counts
// @Description Totals by status and grade level plus today's and this week's submissions
// @Tags Admin
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/summary [get]
func (h *AdminHandler) Summary(c *gin.Context) {
	summary, err := h.admin.Summary(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary)
}

type requestExportRequest struct {
	Format models.ExportFormat `json:"format" binding:"required"`
}

// RequestExport godoc
// @Summary Queue a CSV or PDF export of the applications table
// @Tags Admin
// @Accept json
// @Produce json
// @Param payload body requestExportRequest true "Export format"
// @Success 202 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/exports [post]
func (h *AdminHandler) RequestExport(c *gin.Context) {
	var req requestExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid export payload"))
		return
	}
	claims := claimsFromContext(c)
	job, err := h.exports.Request(req.Format, claims.Email)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusAccepted, job)
}

// GetExport godoc
// @Summary Export job status
// @Tags Admin
// @Produce json
// @Param id path string true "Export job id"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/exports/{id} [get]
func (h *AdminHandler) GetExport(c *gin.Context) {
	job, err := h.exports.Job(c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, job)
}

// DownloadExport godoc
// @Summary Download a completed export
// @Tags Admin
// @Produce octet-stream
// @Param id path string true "Export job id"
// @Success 200 {file} byte
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /admin/exports/{id}/download [get]
func (h *AdminHandler) DownloadExport(c *gin.Context) {
	job, payload, err := h.exports.Result(c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", "attachment; filename="+job.FileName)
	c.Data(http.StatusOK, job.ContentType, payload)
}
