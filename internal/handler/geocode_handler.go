package handler

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sakay-ph/service-booking/internal/application"
	bookingDomain "github.com/sakay-ph/service-booking/internal/domain/booking"
	"github.com/sakay-ph/service-booking/internal/response"
)

// GeocodeHandler exposes forward and reverse geocoding.
type GeocodeHandler struct {
	service *application.QuoteService
}

// NewGeocodeHandler creates a new GeocodeHandler.
func NewGeocodeHandler(service *application.QuoteService) *GeocodeHandler {
	return &GeocodeHandler{service: service}
}

// RegisterRoutes registers geocoding routes.
func (h *GeocodeHandler) RegisterRoutes(r *gin.RouterGroup) {
	geocode := r.Group("/api/v1/geocode")
	{
		geocode.GET("/search", h.Search)
		geocode.GET("/reverse", h.Reverse)
	}
}

// Search handles GET /api/v1/geocode/search?q=&lat=&lng=.
func (h *GeocodeHandler) Search(c *gin.Context) {
	q := strings.TrimSpace(c.Query("q"))
	if q == "" {
		response.BadRequest(c, "q is required")
		return
	}

	var bias *bookingDomain.Coordinate
	if c.Query("lat") != "" || c.Query("lng") != "" {
		coord, ok := queryCoordinate(c)
		if !ok {
			return
		}
		bias = &coord
	}

	places := h.service.SearchAddress(c.Request.Context(), q, bias)
	response.Success(c, gin.H{"places": places})
}

// Reverse handles GET /api/v1/geocode/reverse?lat=&lng=.
func (h *GeocodeHandler) Reverse(c *gin.Context) {
	coord, ok := queryCoordinate(c)
	if !ok {
		return
	}

	label, err := h.service.ReverseGeocode(c.Request.Context(), coord)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, gin.H{"coordinate": coord, "display_name": label})
}

func queryCoordinate(c *gin.Context) (bookingDomain.Coordinate, bool) {
	lat, latErr := strconv.ParseFloat(c.Query("lat"), 64)
	lng, lngErr := strconv.ParseFloat(c.Query("lng"), 64)
	if latErr != nil || lngErr != nil {
		response.BadRequest(c, "lat and lng must be numbers")
		return bookingDomain.Coordinate{}, false
	}
	coord, err := bookingDomain.NewCoordinate(lat, lng)
	if err != nil {
		response.Error(c, err)
		return bookingDomain.Coordinate{}, false
	}
	return coord, true
}
