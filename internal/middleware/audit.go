package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Audit records every successful mutating request on the review console:
// who did what, from where, and how long it took. Read-only requests are
// not logged.
func Audit(logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		if c.Request.Method == "GET" || c.Writer.Status() >= 400 {
			return
		}

		actor := "anonymous"
		if claims, ok := CurrentClaims(c); ok {
			actor = claims.Email
		}

		logger.Info("admin action",
			zap.String("actor", actor),
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.String("ip", c.ClientIP()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}
