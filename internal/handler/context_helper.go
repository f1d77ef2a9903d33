package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/streamline-hs/enrollment-portal-api/internal/middleware"
	"github.com/streamline-hs/enrollment-portal-api/internal/models"
	"github.com/streamline-hs/enrollment-portal-api/internal/service"
	"github.com/streamline-hs/enrollment-portal-api/pkg/response"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	claims, ok := middleware.CurrentClaims(c)
	if !ok {
		return nil
	}
	return claims
}

// respondServiceError renders service errors, attaching the per-field or
// missing-document details the workflow errors carry.
func respondServiceError(c *gin.Context, err error) {
	var formErr *service.FormValidationError
	if errors.As(err, &formErr) {
		response.ErrorWithMeta(c, err, map[string]interface{}{
			"fields": formErr.Fields,
		})
		return
	}

	var checklistErr *service.IncompleteChecklistError
	if errors.As(err, &checklistErr) {
		response.ErrorWithMeta(c, err, map[string]interface{}{
			"missing_documents": checklistErr.Missing,
		})
		return
	}

	response.Error(c, err)
}
