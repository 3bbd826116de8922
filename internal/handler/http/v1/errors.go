package v1

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/shenikar/fireguard_dispatch/internal/events"
	"github.com/shenikar/fireguard_dispatch/internal/models"
)

// errorStatus сопоставляет доменную ошибку с HTTP-статусом и текстом ответа
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, models.ErrValidation):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound, "not found"
	case errors.Is(err, models.ErrConflict):
		return http.StatusConflict, "resource was modified concurrently, refresh and try again"
	case errors.Is(err, models.ErrInvalidTransition):
		return http.StatusUnprocessableEntity, err.Error()
	case errors.Is(err, models.ErrForbidden):
		return http.StatusForbidden, "operation not permitted for this actor"
	case errors.Is(err, events.ErrCursorExpired):
		return http.StatusGone, "cursor expired, reload a snapshot and resubscribe"
	}
	return http.StatusInternalServerError, "internal server error"
}

// respondError пишет ответ с ошибкой; 5xx логируются как ошибки, остальное - как предупреждения
func respondError(c *gin.Context, log *logrus.Entry, err error) {
	status, message := errorStatus(err)
	if status >= http.StatusInternalServerError {
		log.WithError(err).Error("Request failed")
	} else {
		log.WithError(err).Warn("Request rejected")
	}
	c.JSON(status, gin.H{"error": message})
}
