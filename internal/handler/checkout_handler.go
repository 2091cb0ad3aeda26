package handler

import (
	"net/http"

	"gigfinder-ticketing/internal/model"
	"gigfinder-ticketing/internal/service"

	"github.com/gin-gonic/gin"
)

type CheckoutHandler struct {
	service service.ReconciliationService
}

func NewCheckoutHandler(service service.ReconciliationService) *CheckoutHandler {
	return &CheckoutHandler{service: service}
}

func (h *CheckoutHandler) RegisterRoutes(r *gin.Engine) {
	router := r.Group("/api/v1")
	{
		router.POST("events/:id/checkout", h.StartCheckout)
	}
}

func (h *CheckoutHandler) StartCheckout(c *gin.Context) {
	eventID, ok := ParamID(c, "id")
	if !ok {
		return
	}
	var req model.CheckoutRequest
	if err := BindJson(c, &req); err != nil {
		return
	}
	req.EventID = eventID

	result, err := h.service.StartCheckout(c.Request.Context(), req)
	if err != nil {
		handleServiceError(c, err, "StartCheckout")
		return
	}

	// 免費活動直接出票
	if result.Booking != nil {
		handleSuccess(c, result, http.StatusCreated)
		return
	}
	handleSuccess(c, result, http.StatusOK)
}
