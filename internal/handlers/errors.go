package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/justsurfingit/hr-requisitions/internal/common"
	"github.com/justsurfingit/hr-requisitions/internal/dtos"
)

var statusByCode = map[common.Code]int{
	common.CodeValidation:             http.StatusUnprocessableEntity,
	common.CodeOutOfScope:             http.StatusForbidden,
	common.CodeInvalidTransition:      http.StatusBadRequest,
	common.CodeRequisitionClosed:      http.StatusLocked,
	common.CodeConcurrentModification: http.StatusConflict,
	common.CodeTemplateInconsistency:  http.StatusInternalServerError,
	common.CodeNotFound:               http.StatusNotFound,
	common.CodeForbidden:              http.StatusForbidden,
	common.CodeUnauthorized:           http.StatusUnauthorized,
	common.CodeBadRequest:             http.StatusBadRequest,
	common.CodeRateLimited:            http.StatusTooManyRequests,
	common.CodeInternal:               http.StatusInternalServerError,
}

// StatusFor maps an error to its HTTP status. Errors without a code are 500.
func StatusFor(err error) int {
	appErr, ok := common.As(err)
	if !ok {
		return http.StatusInternalServerError
	}
	if status, ok := statusByCode[appErr.Code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// ErrorRenderer writes the last error recorded with c.Error, unless a
// response was already written. Server-side failures are logged and their
// details withheld from the client.
func ErrorRenderer(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		err := c.Errors.Last().Err
		status := StatusFor(err)

		body := dtos.ErrorBody{Code: common.CodeInternal, Message: "internal server error"}
		if appErr, ok := common.As(err); ok && status < http.StatusInternalServerError {
			body = dtos.ErrorBody{
				Code:       appErr.Code,
				Message:    appErr.Message,
				Violations: appErr.Violations,
				Current:    appErr.Current,
				Target:     appErr.Target,
			}
		} else if ok {
			body.Code = appErr.Code
		}
		if status >= http.StatusInternalServerError {
			logger.Error("request failed",
				zap.String("request_id", c.GetString(requestIDKey)),
				zap.String("path", c.FullPath()),
				zap.Error(err))
		}
		c.AbortWithStatusJSON(status, dtos.ErrorResponse{Error: body})
	}
}

func fail(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

func badRequest(c *gin.Context, message string, err error) {
	fail(c, common.NewError(common.CodeBadRequest, message, err))
}
