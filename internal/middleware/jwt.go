package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/streamline-hs/enrollment-portal-api/internal/models"
	"github.com/streamline-hs/enrollment-portal-api/internal/service"
	appErrors "github.com/streamline-hs/enrollment-portal-api/pkg/errors"
	"github.com/streamline-hs/enrollment-portal-api/pkg/response"
)

// ContextUserKey is the gin context key storing JWT claims.
const ContextUserKey = "currentUser"

// JWT protects routes by requiring a valid access token. Unauthenticated
// requests are told where to go next via the redirect meta field.
func JWT(authService *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			rejectUnauthenticated(c, appErrors.ErrUnauthorized)
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			rejectUnauthenticated(c, appErrors.Clone(appErrors.ErrUnauthorized, "invalid authorization header"))
			return
		}

		claims, err := authService.ValidateToken(parts[1])
		if err != nil {
			rejectUnauthenticated(c, err)
			return
		}

		c.Set(ContextUserKey, claims)
		c.Next()
	}
}

func rejectUnauthenticated(c *gin.Context, err error) {
	response.ErrorWithMeta(c, err, map[string]interface{}{
		"redirect": models.RouteLogin,
	})
	c.Abort()
}

// CurrentClaims extracts the authenticated claims set by JWT.
func CurrentClaims(c *gin.Context) (*models.JWTClaims, bool) {
	value, ok := c.Get(ContextUserKey)
	if !ok {
		return nil, false
	}
	claims, ok := value.(*models.JWTClaims)
	return claims, ok
}
