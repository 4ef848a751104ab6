package response

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"lab-equipment-api/apperrors"
)

// ErrorBody is the JSON shape of every failed request.
type ErrorBody struct {
	Error *apperrors.Error `json:"error"`
}

// Error writes err as a structured error body. Server-side failures are
// logged with their cause and reported with the generic message only.
func Error(c *gin.Context, logger *zap.Logger, err error) {
	appErr := apperrors.FromError(err)
	if appErr.Status >= 500 && logger != nil {
		logger.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.String("code", appErr.Code),
			zap.Error(err))
	}
	c.Header("Cache-Control", "no-store")
	c.AbortWithStatusJSON(appErr.Status, ErrorBody{Error: appErr})
}
