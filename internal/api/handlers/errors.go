package handlers

import (
	"net/http"

	"entsoe-agent/internal/api/models"
	"entsoe-agent/internal/model"

	"github.com/gin-gonic/gin"
)

// StatusForKind maps a failure kind to the HTTP status returned to callers.
func StatusForKind(kind model.ErrorKind) int {
	switch kind {
	case model.KindUnsupportedCountry, model.KindInvalidRequest, model.KindBadParameters:
		return http.StatusBadRequest
	case model.KindUnauthorized:
		return http.StatusUnauthorized
	case model.KindNoDataFound:
		return http.StatusNotFound
	case model.KindRateLimited:
		return http.StatusTooManyRequests
	case model.KindMissingCredential:
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadGateway
	}
}

func badRequest(c *gin.Context, code, message string) {
	c.JSON(http.StatusBadRequest, models.ErrorResponse{
		Error: models.ErrorDetail{
			Code:    code,
			Message: message,
		},
	})
}

// respondResult writes r with 200 on success or the status of its failure kind.
func respondResult(c *gin.Context, r *model.Result) {
	if r.OK() {
		c.JSON(http.StatusOK, r)
		return
	}
	if r.RetryAfter != "" {
		c.Header("Retry-After", r.RetryAfter)
	}
	c.JSON(StatusForKind(r.ErrorKind), r)
}
