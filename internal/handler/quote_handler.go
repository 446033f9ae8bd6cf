package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sakay-ph/service-booking/internal/application"
	bookingDomain "github.com/sakay-ph/service-booking/internal/domain/booking"
	"github.com/sakay-ph/service-booking/internal/response"
)

// QuoteHandler handles HTTP requests for quote sessions.
type QuoteHandler struct {
	service *application.QuoteService
}

// NewQuoteHandler creates a new QuoteHandler.
func NewQuoteHandler(service *application.QuoteService) *QuoteHandler {
	return &QuoteHandler{service: service}
}

// RegisterRoutes registers all quote routes on the given router group.
func (h *QuoteHandler) RegisterRoutes(r *gin.RouterGroup) {
	quotes := r.Group("/api/v1/quotes")
	{
		quotes.POST("", h.StartSession)
		quotes.GET("/:id", h.GetQuote)
		quotes.PUT("/:id/pickup", h.SelectLocation(bookingDomain.EndpointPickup))
		quotes.PUT("/:id/dropoff", h.SelectLocation(bookingDomain.EndpointDropoff))
		quotes.POST("/:id/current-location", h.SelectCurrentLocation)
		quotes.POST("/:id/swap", h.Swap)
		quotes.POST("/:id/reset", h.Reset)
		quotes.POST("/:id/book", h.Book)
	}
}

type selectLocationRequest struct {
	Lat   *float64 `json:"lat" binding:"required"`
	Lng   *float64 `json:"lng" binding:"required"`
	Label *string  `json:"label"`
}

type currentLocationRequest struct {
	Endpoint         string   `json:"endpoint" binding:"required"`
	Lat              *float64 `json:"lat"`
	Lng              *float64 `json:"lng"`
	PermissionDenied bool     `json:"permission_denied"`
}

type bookRequest struct {
	AcceptTerms  bool   `json:"accept_terms"`
	ContactName  string `json:"contact_name"`
	ContactPhone string `json:"contact_phone"`
}

// StartSession handles POST /api/v1/quotes.
func (h *QuoteHandler) StartSession(c *gin.Context) {
	response.Created(c, h.service.StartSession(c.Request.Context()))
}

// GetQuote handles GET /api/v1/quotes/:id.
func (h *QuoteHandler) GetQuote(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}

	result, err := h.service.GetQuote(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// SelectLocation handles PUT /api/v1/quotes/:id/pickup and /dropoff.
func (h *QuoteHandler) SelectLocation(ep bookingDomain.Endpoint) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := sessionID(c)
		if !ok {
			return
		}

		var req selectLocationRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}
		coord, err := bookingDomain.NewCoordinate(*req.Lat, *req.Lng)
		if err != nil {
			response.Error(c, err)
			return
		}

		result, err := h.service.SelectLocation(c.Request.Context(), id, ep, coord, req.Label)
		if err != nil {
			response.Error(c, err)
			return
		}

		response.Success(c, result)
	}
}

// SelectCurrentLocation handles POST /api/v1/quotes/:id/current-location. The client relays
// the device position, or reports that the permission was denied.
func (h *QuoteHandler) SelectCurrentLocation(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}

	var req currentLocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	ep, err := bookingDomain.ParseEndpoint(req.Endpoint)
	if err != nil {
		response.Error(c, err)
		return
	}

	pos := application.ReportedPosition{Denied: req.PermissionDenied}
	if req.Lat != nil && req.Lng != nil {
		pos.Coordinate = &bookingDomain.Coordinate{Lat: *req.Lat, Lng: *req.Lng}
	}

	result, err := h.service.SelectCurrentLocation(c.Request.Context(), id, ep, pos)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// Swap handles POST /api/v1/quotes/:id/swap.
func (h *QuoteHandler) Swap(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}

	result, err := h.service.Swap(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// Reset handles POST /api/v1/quotes/:id/reset.
func (h *QuoteHandler) Reset(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}

	result, err := h.service.Reset(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// Book handles POST /api/v1/quotes/:id/book.
func (h *QuoteHandler) Book(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}

	var req bookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	contact := bookingDomain.Contact{Name: req.ContactName, Phone: req.ContactPhone}
	result, err := h.service.Book(c.Request.Context(), id, req.AcceptTerms, contact)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, result)
}

func sessionID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid session ID")
		return uuid.Nil, false
	}
	return id, true
}
