package middleware

import (
	"net/http"

	"entsoe-agent/internal/api/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const internalErrorMessage = "An unexpected error occurred"

// ErrorHandler recovers panics into an INTERNAL_ERROR response. Only string
// panic values are echoed to the caller; anything else is logged.
func ErrorHandler(logger *zap.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logger.Error("panic recovered",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.String("request_id", c.GetString(RequestIDKey)),
			zap.Any("panic", recovered))

		message := internalErrorMessage
		if s, ok := recovered.(string); ok && s != "" {
			message = s
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, models.ErrorResponse{
			Error: models.ErrorDetail{Code: "INTERNAL_ERROR", Message: message},
		})
	})
}
