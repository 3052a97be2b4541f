package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"smsride/internal/repository"
	"smsride/internal/service"
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// respondError sends an error response with the appropriate HTTP status code.
func respondError(c *gin.Context, err error) {
	code := mapErrorToHTTPStatus(err)
	c.JSON(code, ErrorResponse{Error: err.Error()})
}

// respondJSON sends a JSON response with the given status code.
func respondJSON(c *gin.Context, code int, data any) {
	c.JSON(code, data)
}

// mapErrorToHTTPStatus maps service/repository errors to HTTP status codes.
func mapErrorToHTTPStatus(err error) int {
	switch {
	// Not found errors
	case errors.Is(err, repository.ErrNotFound),
		errors.Is(err, service.ErrLocationUnavailable):
		return http.StatusNotFound

	// Validation errors - Bad Request
	case errors.Is(err, errInvalidPhone),
		errors.Is(err, errInvalidRideNumber),
		errors.Is(err, errInvalidLocation):
		return http.StatusBadRequest

	// Default to internal server error
	default:
		return http.StatusInternalServerError
	}
}

var (
	errInvalidPhone      = errors.New("invalid phone number")
	errInvalidRideNumber = errors.New("invalid ride number")
	errInvalidLocation   = errors.New("invalid location")
)
