package handler

import (
	"errors"
	"net/http"

	"gigfinder-ticketing/internal/handler/middleware"
	"gigfinder-ticketing/internal/model"
	"gigfinder-ticketing/internal/service"
	apperrors "gigfinder-ticketing/pkg/app_errors"
	"gigfinder-ticketing/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type ScanHandler struct {
	service service.RedemptionService
}

func NewScanHandler(service service.RedemptionService) *ScanHandler {
	return &ScanHandler{service: service}
}

func (h *ScanHandler) RegisterRoutes(r *gin.Engine) {
	router := r.Group("/api/v1")
	{
		router.POST("scan", middleware.RequireIdentity(), h.Scan)
	}
}

func (h *ScanHandler) Scan(c *gin.Context) {
	var req model.ScanRequest
	if err := BindJson(c, &req); err != nil {
		return
	}

	result, err := h.service.Validate(c.Request.Context(), req)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, result)
	case errors.Is(err, apperrors.ErrDuplicateScan) && result != nil:
		c.JSON(http.StatusConflict, result)
	case errors.Is(err, apperrors.ErrInvalidCredential) && result != nil:
		c.JSON(http.StatusUnprocessableEntity, result)
	default:
		logger.WithComponent("handler").Error("Unexpected error", zap.String("operation", "Scan"), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Internal server error",
		})
	}
}
