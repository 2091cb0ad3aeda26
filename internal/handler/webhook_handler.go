package handler

import (
	"errors"
	"io"
	"net/http"

	"gigfinder-ticketing/internal/service"
	apperrors "gigfinder-ticketing/pkg/app_errors"
	"gigfinder-ticketing/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	signatureHeader = "Stripe-Signature"
	maxWebhookBody  = 64 << 10
)

type WebhookHandler struct {
	service service.ReconciliationService
}

func NewWebhookHandler(service service.ReconciliationService) *WebhookHandler {
	return &WebhookHandler{service: service}
}

func (h *WebhookHandler) RegisterRoutes(r *gin.Engine) {
	router := r.Group("/api/v1")
	{
		router.POST("webhooks/payments", h.HandlePayment)
	}
}

// HandlePayment answers 2xx only when the delivery needs no retry.
func (h *WebhookHandler) HandlePayment(c *gin.Context) {
	log := logger.WithComponent("webhook")

	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody+1))
	if err != nil || len(payload) > maxWebhookBody {
		log.Warn("Unreadable webhook body", zap.Error(err), zap.Int("size", len(payload)))
		c.JSON(http.StatusBadRequest, gin.H{"error": "rejected"})
		return
	}

	result, err := h.service.HandleWebhook(c.Request.Context(), payload, c.GetHeader(signatureHeader))
	switch {
	case err == nil:
	case errors.Is(err, apperrors.ErrInvalidSignature):
		log.Warn("Webhook signature rejected", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "rejected"})
		return
	default:
		log.Error("Webhook processing failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	if result == nil {
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"received":   true,
		"booking_id": result.Booking.ID,
		"created":    result.Created,
	})
}
