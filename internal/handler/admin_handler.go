package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/sakay-ph/service-booking/internal/application"
	bookingDomain "github.com/sakay-ph/service-booking/internal/domain/booking"
	"github.com/sakay-ph/service-booking/internal/response"
)

// AdminBookingHandler handles admin HTTP requests for booking management.
type AdminBookingHandler struct {
	service *application.BookingService
}

// NewAdminBookingHandler creates a new AdminBookingHandler.
func NewAdminBookingHandler(service *application.BookingService) *AdminBookingHandler {
	return &AdminBookingHandler{service: service}
}

// RegisterRoutes registers admin booking routes.
func (h *AdminBookingHandler) RegisterRoutes(r *gin.RouterGroup) {
	admin := r.Group("/api/v1/admin")
	{
		admin.GET("/bookings", h.ListBookings)
		admin.GET("/stats/bookings", h.BookingStats)
	}
}

// ListBookings handles GET /api/v1/admin/bookings.
func (h *AdminBookingHandler) ListBookings(c *gin.Context) {
	page, limit := parsePagination(c)

	var status *bookingDomain.BookingStatus
	if raw := c.Query("status"); raw != "" {
		s, err := bookingDomain.ParseBookingStatus(raw)
		if err != nil {
			response.Error(c, err)
			return
		}
		status = &s
	}

	bookings, total, err := h.service.ListAllBookings(c.Request.Context(), page, limit, status)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Paginated(c, bookings, total, page, limit)
}

// BookingStats handles GET /api/v1/admin/stats/bookings.
func (h *AdminBookingHandler) BookingStats(c *gin.Context) {
	stats, err := h.service.GetBookingStats(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, stats)
}
