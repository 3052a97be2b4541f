package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"smsride/internal/repository"
	"smsride/internal/service"
)

// SMSHandler receives inbound SMS from the carrier gateway.
type SMSHandler struct {
	dispatchService *service.DispatchService
	serviceNumber   string
}

// NewSMSHandler creates a new SMSHandler.
func NewSMSHandler(dispatchService *service.DispatchService, serviceNumber string) *SMSHandler {
	return &SMSHandler{
		dispatchService: dispatchService,
		serviceNumber:   serviceNumber,
	}
}

// InboundSMSRequest is the HTTP request body of an inbound SMS.
// Gateways posting form data use the same field names.
type InboundSMSRequest struct {
	From string `json:"from" form:"from"`
	To   string `json:"to" form:"to"`
	Text string `json:"text" form:"text"`
}

// InboundSMSResponse reports how the command was handled.
type InboundSMSResponse struct {
	Command    string `json:"command"`
	Accepted   bool   `json:"accepted"`
	RideNumber int64  `json:"ride_number,omitempty"`
	Reason     string `json:"reason,omitempty"`
}

// Inbound handles POST /v1/sms/inbound
func (h *SMSHandler) Inbound(c *gin.Context) {
	var req InboundSMSRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	if req.From == "" {
		respondError(c, errInvalidPhone)
		return
	}

	out := h.dispatchService.HandleMessage(c.Request.Context(), req.From, req.Text)

	resp := InboundSMSResponse{
		Command:  string(out.Command),
		Accepted: out.Err == nil,
	}
	if out.Ride != nil {
		resp.RideNumber = out.Ride.Number
	}
	if out.Err != nil {
		if isInfrastructureError(out.Err) {
			respondError(c, out.Err)
			return
		}
		resp.Reason = out.Err.Error()
	}

	respondJSON(c, http.StatusAccepted, resp)
}

// Commands handles GET /v1/commands
func (h *SMSHandler) Commands(c *gin.Context) {
	c.String(http.StatusOK, service.HelpText(h.serviceNumber))
}

// isInfrastructureError reports whether err is not one of the rejections
// already answered to the sender by SMS.
func isInfrastructureError(err error) bool {
	rejections := []error{
		repository.ErrNotFound,
		repository.ErrAlreadyClient,
		repository.ErrAlreadyDriver,
		repository.ErrRideAlreadyTaken,
		repository.ErrAlreadyRated,
		service.ErrNotClient,
		service.ErrNotDriver,
		service.ErrNoActiveRide,
		service.ErrRideNotTaken,
		service.ErrInvalidScore,
	}
	for _, r := range rejections {
		if errors.Is(err, r) {
			return false
		}
	}
	return true
}
