package api

import (
	"errors"
	"net/http"

	"shop-service/internal/auth"
	"shop-service/internal/service"
	"shop-service/internal/store"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func mapErrorToStatus(err error) int {
	switch {
	case service.IsValidation(err), service.IsBusinessRule(err), errors.Is(err, store.ErrProductReferenced):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrProductNotFound), errors.Is(err, store.ErrOrderNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrAdminRequired), errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes {"success": false, "error": ...}. Internal faults are logged
// and replaced with a generic message.
func (h *Handler) respondError(c *gin.Context, err error) {
	status := mapErrorToStatus(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		h.logger.Error("Request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err))
		msg = "internal server error"
	}

	c.JSON(status, gin.H{
		"success": false,
		"error":   msg,
	})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{
		"success": false,
		"error":   msg,
	})
}
