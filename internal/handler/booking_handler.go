package handler

import (
	"net/http"

	"gigfinder-ticketing/internal/handler/middleware"
	"gigfinder-ticketing/internal/model"
	"gigfinder-ticketing/internal/service"

	"github.com/gin-gonic/gin"
)

type BookingHandler struct {
	service service.BookingService
}

func NewBookingHandler(service service.BookingService) *BookingHandler {
	return &BookingHandler{service: service}
}

func (h *BookingHandler) RegisterRoutes(r *gin.Engine) {
	router := r.Group("/api/v1")
	{
		router.GET("events/:id/availability", h.GetAvailability)
		router.POST("events/:id/bookings", h.BookDirect)
		router.GET("events/:id/bookings", middleware.RequireIdentity(), h.ListEventBookings)
		router.GET("bookings/:id", h.GetBooking)
		router.GET("bookings/:id/ticket.png", h.GetTicketImage)
	}
}

func (h *BookingHandler) GetAvailability(c *gin.Context) {
	eventID, ok := ParamID(c, "id")
	if !ok {
		return
	}
	availability, err := h.service.Availability(c.Request.Context(), eventID)
	if err != nil {
		handleServiceError(c, err, "GetAvailability")
		return
	}
	handleSuccess(c, availability, http.StatusOK)
}

// BookDirect 免費活動任何人可訂；收費活動只有主辦方能加 guest list
func (h *BookingHandler) BookDirect(c *gin.Context) {
	eventID, ok := ParamID(c, "id")
	if !ok {
		return
	}
	var req model.DirectBookingRequest
	if err := BindJson(c, &req); err != nil {
		return
	}

	result, err := h.service.BookDirect(c.Request.Context(), eventID, req, middleware.IdentityFrom(c))
	if err != nil {
		handleServiceError(c, err, "BookDirect")
		return
	}
	handleSuccess(c, model.NewBookingResponse(result.Booking), http.StatusCreated)
}

func (h *BookingHandler) ListEventBookings(c *gin.Context) {
	eventID, ok := ParamID(c, "id")
	if !ok {
		return
	}
	bookings, err := h.service.ListEventBookings(c.Request.Context(), eventID, middleware.IdentityFrom(c))
	if err != nil {
		handleServiceError(c, err, "ListEventBookings")
		return
	}

	response := make([]model.BookingResponse, 0, len(bookings))
	for _, b := range bookings {
		response = append(response, model.NewBookingResponse(b))
	}
	handleSuccess(c, response, http.StatusOK)
}

func (h *BookingHandler) GetBooking(c *gin.Context) {
	id, ok := ParamID(c, "id")
	if !ok {
		return
	}
	booking, err := h.service.GetBooking(c.Request.Context(), id, bookingAccess(c))
	if err != nil {
		handleServiceError(c, err, "GetBooking")
		return
	}
	handleSuccess(c, model.NewBookingResponse(booking), http.StatusOK)
}

func (h *BookingHandler) GetTicketImage(c *gin.Context) {
	id, ok := ParamID(c, "id")
	if !ok {
		return
	}
	png, err := h.service.TicketImage(c.Request.Context(), id, bookingAccess(c))
	if err != nil {
		handleServiceError(c, err, "GetTicketImage")
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "image/png", png)
}

// bookingAccess 買家用 ?email= 查詢，主辦方用 token
func bookingAccess(c *gin.Context) model.BookingAccess {
	return model.BookingAccess{
		Email:    c.Query("email"),
		Identity: middleware.IdentityFrom(c),
	}
}
