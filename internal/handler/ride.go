package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"smsride/internal/domain"
	"smsride/internal/repository"
)

const defaultRideListLimit = 100

// RideHandler serves read-only views of the ride ledger.
type RideHandler struct {
	rides repository.RideLedger
}

// NewRideHandler creates a new RideHandler.
func NewRideHandler(rides repository.RideLedger) *RideHandler {
	return &RideHandler{rides: rides}
}

// RideResponse is the HTTP response for ride data.
type RideResponse struct {
	Number        int64  `json:"number"`
	Client        string `json:"client"`
	Driver        string `json:"driver,omitempty"`
	Active        bool   `json:"active"`
	Finished      bool   `json:"finished"`
	RatedByClient bool   `json:"rated_by_client"`
	RatedByDriver bool   `json:"rated_by_driver"`
	CreatedAt     string `json:"created_at"`
}

func toRideResponse(r *domain.Ride) RideResponse {
	return RideResponse{
		Number:        r.Number,
		Client:        r.ClientNumber,
		Driver:        r.DriverNumber,
		Active:        r.Active,
		Finished:      r.Finished,
		RatedByClient: r.RatedByClient,
		RatedByDriver: r.RatedByDriver,
		CreatedAt:     r.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

// GetRide handles GET /v1/rides/:number
func (h *RideHandler) GetRide(c *gin.Context) {
	number, err := strconv.ParseInt(c.Param("number"), 10, 64)
	if err != nil {
		respondError(c, errInvalidRideNumber)
		return
	}

	ride, err := h.rides.GetByNumber(c.Request.Context(), number)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toRideResponse(ride))
}

// GetAll handles GET /v1/rides
func (h *RideHandler) GetAll(c *gin.Context) {
	limit := defaultRideListLimit
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	rides, err := h.rides.List(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]RideResponse, 0, len(rides))
	for _, r := range rides {
		response = append(response, toRideResponse(r))
	}

	c.JSON(http.StatusOK, response)
}
