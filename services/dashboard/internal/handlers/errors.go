package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nimeshabuddhika/smartpay-dashboard/pkg"
	"github.com/nimeshabuddhika/smartpay-dashboard/pkg/predictor"
	"github.com/nimeshabuddhika/smartpay-dashboard/pkg/views"
	"go.uber.org/zap"
)

// backendAppError maps a client failure to the API error envelope; message is the
// user-facing banner text.
func backendAppError(err error, message string) error {
	switch {
	case errors.Is(err, pkg.ErrRateLimitExceeded):
		return pkg.NewAppError(pkg.ErrRateLimitedCode, pkg.ErrRateLimitedCode.Message, err)
	case predictor.IsServerError(err):
		return pkg.NewAppError(pkg.ErrBackendCode, message, err)
	case predictor.IsTransportError(err):
		return pkg.NewAppError(pkg.ErrBackendUnreachableCode, message, err)
	default:
		return err
	}
}

func respondError(c *gin.Context, logger *zap.Logger, traceID string, err error) {
	resp := pkg.ToErrorResponse(logger, traceID, err)
	c.AbortWithStatusJSON(resp.Status, resp)
}

func respondBackendError(c *gin.Context, logger *zap.Logger, traceID string, section views.Section, err error) {
	ev := views.NewErrorView(section, err)
	respondError(c, logger, traceID, backendAppError(err, ev.Message))
}

func respondTraceError(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusInternalServerError, pkg.ErrorResponse{
		Code:    pkg.ErrServerCode.Code,
		Message: err.Error(),
	})
}
