package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/nimeshabuddhika/smartpay-dashboard/pkg"
	"github.com/nimeshabuddhika/smartpay-dashboard/pkg/utils"
	"go.uber.org/zap"
)

// TraceID returns Gin middleware that assigns every request a trace id and logs it on completion.
func TraceID(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := c.Request.Header.Get(pkg.HeaderTraceId)
		if utils.IsEmpty(traceID) {
			traceID = uuid.New().String()
		}
		c.Set(pkg.TraceId, traceID)
		c.Writer.Header().Set(pkg.HeaderTraceId, traceID)

		c.Next()

		logger.Debug("request_completed",
			zap.String(pkg.TraceId, traceID),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
		)
	}
}
