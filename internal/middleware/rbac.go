package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/streamline-hs/enrollment-portal-api/internal/models"
	appErrors "github.com/streamline-hs/enrollment-portal-api/pkg/errors"
	"github.com/streamline-hs/enrollment-portal-api/pkg/response"
)

// RequireRoles bounces requests whose authenticated role is not in the
// allowed set. The 403 carries the caller's own home route so clients can
// send them back where they belong.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	allowed := make(map[models.UserRole]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}

	return func(c *gin.Context) {
		claims, ok := CurrentClaims(c)
		if !ok {
			rejectUnauthenticated(c, appErrors.ErrUnauthorized)
			return
		}

		if _, ok := allowed[claims.Role]; !ok {
			response.ErrorWithMeta(c, appErrors.ErrForbidden, map[string]interface{}{
				"redirect": models.HomeRoute(claims.Role),
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
