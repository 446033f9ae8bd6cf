package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sakay-ph/service-booking/internal/application"
	"github.com/sakay-ph/service-booking/internal/response"
)

// BookingHandler handles HTTP requests for persisted bookings.
type BookingHandler struct {
	service *application.BookingService
}

// NewBookingHandler creates a new BookingHandler.
func NewBookingHandler(service *application.BookingService) *BookingHandler {
	return &BookingHandler{service: service}
}

// RegisterRoutes registers all booking routes on the given router group.
func (h *BookingHandler) RegisterRoutes(r *gin.RouterGroup) {
	bookings := r.Group("/api/v1/bookings")
	{
		bookings.GET("/:number", h.GetBooking)
		bookings.POST("/:number/confirm", h.ConfirmBooking)
		bookings.POST("/:number/assign", h.AssignRider)
		bookings.POST("/:number/complete", h.CompleteBooking)
		bookings.POST("/:number/cancel", h.CancelBooking)
	}
}

// GetBooking handles GET /api/v1/bookings/:number.
func (h *BookingHandler) GetBooking(c *gin.Context) {
	result, err := h.service.GetBooking(c.Request.Context(), c.Param("number"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// ConfirmBooking handles POST /api/v1/bookings/:number/confirm.
func (h *BookingHandler) ConfirmBooking(c *gin.Context) {
	result, err := h.service.ConfirmBooking(c.Request.Context(), c.Param("number"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// AssignRider handles POST /api/v1/bookings/:number/assign.
func (h *BookingHandler) AssignRider(c *gin.Context) {
	var body struct {
		RiderID string `json:"rider_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.AssignRider(c.Request.Context(), c.Param("number"), body.RiderID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// CompleteBooking handles POST /api/v1/bookings/:number/complete.
func (h *BookingHandler) CompleteBooking(c *gin.Context) {
	result, err := h.service.CompleteBooking(c.Request.Context(), c.Param("number"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// CancelBooking handles POST /api/v1/bookings/:number/cancel.
func (h *BookingHandler) CancelBooking(c *gin.Context) {
	var body struct {
		Reason string `json:"reason"`
	}
	_ = c.ShouldBindJSON(&body)

	result, err := h.service.CancelBooking(c.Request.Context(), c.Param("number"), body.Reason)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// parsePagination extracts page and limit query parameters with defaults.
func parsePagination(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	return page, limit
}
