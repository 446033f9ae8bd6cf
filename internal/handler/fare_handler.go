package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sakay-ph/service-booking/internal/application"
	"github.com/sakay-ph/service-booking/internal/response"
)

// FareHandler prices arbitrary distances.
type FareHandler struct {
	service *application.QuoteService
}

// NewFareHandler creates a new FareHandler.
func NewFareHandler(service *application.QuoteService) *FareHandler {
	return &FareHandler{service: service}
}

// RegisterRoutes registers fare routes.
func (h *FareHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/api/v1/fares/estimate", h.Estimate)
}

// Estimate handles GET /api/v1/fares/estimate?distance_km=. Without a distance the
// minimum fare is returned, flagged as not yet known.
func (h *FareHandler) Estimate(c *gin.Context) {
	var distance *float64
	if raw := c.Query("distance_km"); raw != "" {
		d, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			response.BadRequest(c, "distance_km must be a number")
			return
		}
		distance = &d
	}

	result, err := h.service.EstimateFare(distance)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}
