package middlewares

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"lab-equipment-api/apperrors"
	"lab-equipment-api/response"
)

// Recovery turns panics into a structured 500 instead of a dropped connection.
func Recovery(logger *zap.Logger) gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(nil, func(c *gin.Context, recovered any) {
		err, ok := recovered.(error)
		if !ok {
			err = fmt.Errorf("panic: %v", recovered)
		}
		logger.Error("panic recovered", zap.String("request_id", RequestIDValue(c)), zap.Stack("stack"))
		response.Error(c, logger, apperrors.Wrap(err, apperrors.ErrInternal.Code, apperrors.ErrInternal.Status, apperrors.ErrInternal.Message))
	})
}

// BodyLimit caps request bodies at limit bytes.
func BodyLimit(limit int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Body != nil && limit > 0 {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		}
		c.Next()
	}
}

// IsBodyTooLarge reports whether err came from a BodyLimit cut-off.
func IsBodyTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return true
	}
	// multipart parsing does not always wrap the reader error
	return err != nil && strings.Contains(err.Error(), "request body too large")
}

// NotFound answers unmatched routes.
func NotFound(c *gin.Context) {
	response.Error(c, nil, apperrors.Clone(apperrors.ErrRouteNotFound, fmt.Sprintf("route %s %s not found", c.Request.Method, c.Request.URL.Path)))
}
