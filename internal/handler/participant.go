package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"smsride/internal/repository"
)

// ParticipantHandler serves read-only views of the directory.
type ParticipantHandler struct {
	directory repository.Directory
}

// NewParticipantHandler creates a new ParticipantHandler.
func NewParticipantHandler(directory repository.Directory) *ParticipantHandler {
	return &ParticipantHandler{directory: directory}
}

// ParticipantResponse is the HTTP response for a registered number.
type ParticipantResponse struct {
	Phone        string `json:"phone"`
	RegisteredAt string `json:"registered_at"`
}

// GetClients handles GET /v1/clients
func (h *ParticipantHandler) GetClients(c *gin.Context) {
	clients, err := h.directory.ListClients(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]ParticipantResponse, 0, len(clients))
	for _, cl := range clients {
		response = append(response, ParticipantResponse{
			Phone:        cl.PhoneNumber,
			RegisteredAt: cl.RegisteredAt.Format("2006-01-02T15:04:05Z07:00"),
		})
	}

	c.JSON(http.StatusOK, response)
}

// GetDrivers handles GET /v1/drivers
func (h *ParticipantHandler) GetDrivers(c *gin.Context) {
	drivers, err := h.directory.ListDrivers(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]ParticipantResponse, 0, len(drivers))
	for _, d := range drivers {
		response = append(response, ParticipantResponse{
			Phone:        d.PhoneNumber,
			RegisteredAt: d.RegisteredAt.Format("2006-01-02T15:04:05Z07:00"),
		})
	}

	c.JSON(http.StatusOK, response)
}
