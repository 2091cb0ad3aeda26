package handler

import (
	"net/http"

	"gigfinder-ticketing/internal/handler/middleware"
	"gigfinder-ticketing/internal/service"

	"github.com/gin-gonic/gin"
)

type RefundHandler struct {
	service service.RefundService
}

func NewRefundHandler(service service.RefundService) *RefundHandler {
	return &RefundHandler{service: service}
}

func (h *RefundHandler) RegisterRoutes(r *gin.Engine) {
	router := r.Group("/api/v1")
	{
		router.POST("bookings/:id/refund", middleware.RequireIdentity(), h.Refund)
	}
}

func (h *RefundHandler) Refund(c *gin.Context) {
	id, ok := ParamID(c, "id")
	if !ok {
		return
	}
	result, err := h.service.Refund(c.Request.Context(), id, middleware.IdentityFrom(c))
	if err != nil {
		handleServiceError(c, err, "Refund")
		return
	}
	handleSuccess(c, result, http.StatusOK)
}
