package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"smsride/internal/redis"
)

// LocationHandler receives handset position reports from the location network.
type LocationHandler struct {
	locationStore redis.LocationStoreInterface
}

// NewLocationHandler creates a new LocationHandler.
func NewLocationHandler(locationStore redis.LocationStoreInterface) *LocationHandler {
	return &LocationHandler{locationStore: locationStore}
}

// UpdateLocationRequest is the HTTP request body for a position report.
type UpdateLocationRequest struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// LocationResponse is the HTTP response for a handset position.
type LocationResponse struct {
	Phone string  `json:"phone"`
	Lat   float64 `json:"lat"`
	Lng   float64 `json:"lng"`
}

// UpdateLocation handles POST /v1/locations/:phone
func (h *LocationHandler) UpdateLocation(c *gin.Context) {
	phone := c.Param("phone")

	var req UpdateLocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	if req.Lat < -redis.MaxLatitude || req.Lat > redis.MaxLatitude ||
		req.Lng < -redis.MaxLongitude || req.Lng > redis.MaxLongitude {
		respondError(c, errInvalidLocation)
		return
	}

	if err := h.locationStore.UpdateLocation(c.Request.Context(), phone, req.Lat, req.Lng); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// GetLocation handles GET /v1/locations/:phone
func (h *LocationHandler) GetLocation(c *gin.Context) {
	phone := c.Param("phone")

	loc, err := h.locationStore.Position(c.Request.Context(), phone)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, LocationResponse{Phone: phone, Lat: loc.Latitude, Lng: loc.Longitude})
}

// RemoveLocation handles DELETE /v1/locations/:phone
func (h *LocationHandler) RemoveLocation(c *gin.Context) {
	if err := h.locationStore.RemoveLocation(c.Request.Context(), c.Param("phone")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
