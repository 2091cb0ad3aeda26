package handler

import (
	"errors"
	"net/http"
	"strconv"

	apperrors "gigfinder-ticketing/pkg/app_errors"
	"gigfinder-ticketing/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func BindJson(c *gin.Context, obj interface{}) error {
	if err := c.ShouldBindJSON(obj); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request format",
		})
		return err
	}
	return nil
}

// ParamID reads a positive integer path parameter and answers 400 otherwise.
func ParamID(c *gin.Context, name string) (int, bool) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid " + name,
		})
		return 0, false
	}
	return id, true
}

// handleServiceError maps domain errors to status codes. Anything unknown is a 500 with a generic message.
func handleServiceError(c *gin.Context, err error, operation string) {
	log := logger.WithComponent("handler").With(zap.String("operation", operation), zap.Error(err))

	var capacity *apperrors.CapacityExceededError
	var validation *apperrors.ValidationError
	switch {
	case errors.As(err, &capacity):
		log.Warn("Capacity exceeded")
		c.JSON(http.StatusConflict, gin.H{
			"error":     capacity.Error(),
			"remaining": capacity.Remaining,
		})
	case errors.Is(err, apperrors.ErrCapacityExceeded):
		log.Warn("Capacity exceeded")
		c.JSON(http.StatusConflict, gin.H{
			"error": "sold out",
		})
	case errors.As(err, &validation):
		log.Warn("Validation failed")
		c.JSON(http.StatusBadRequest, gin.H{
			"error": validation.Error(),
			"field": validation.Field,
		})
	case errors.Is(err, apperrors.ErrEventNotFound):
		log.Warn("Event not found")
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Event not found",
		})
	case errors.Is(err, apperrors.ErrBookingNotFound):
		log.Warn("Booking not found")
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Booking not found",
		})
	case errors.Is(err, apperrors.ErrAlreadyRefunded):
		log.Warn("Booking already refunded")
		c.JSON(http.StatusConflict, gin.H{
			"error": "Booking already refunded",
		})
	case errors.Is(err, apperrors.ErrNothingToRefund):
		log.Warn("Nothing to refund")
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error": "Booking has no payment to refund",
		})
	case errors.Is(err, apperrors.ErrPaymentRequired):
		log.Warn("Payment required")
		c.JSON(http.StatusPaymentRequired, gin.H{
			"error": "Event requires payment, use checkout",
		})
	case errors.Is(err, apperrors.ErrForbidden):
		log.Warn("Forbidden")
		c.JSON(http.StatusForbidden, gin.H{
			"error": "Forbidden",
		})
	case errors.Is(err, apperrors.ErrUnauthorized):
		log.Warn("Unauthorized")
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "Unauthorized",
		})
	default:
		log.Error("Unexpected error")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Internal server error",
		})
	}
}

func handleSuccess(c *gin.Context, data interface{}, statusCode int) {
	if data != nil {
		c.JSON(statusCode, data)
	} else {
		c.Status(statusCode)
	}
}
