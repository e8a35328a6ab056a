package routes

import (
	"errors"
	"net/http"

	"dumpster-booking/internal/booking"
	"dumpster-booking/internal/inventory"
)

var (
	ErrInvalidJSON = errors.New("invalid JSON")
	ErrRateLimited = errors.New("rate limited")
)

// ErrorInfo is what a client is told about an error.
type ErrorInfo struct {
	Message string
	Field   string
	Code    string
}

var errorStatusMap = map[error]int{
	ErrInvalidJSON:           http.StatusBadRequest,
	ErrRateLimited:           http.StatusTooManyRequests,
	booking.ErrCreateFailed:  http.StatusInternalServerError,
	booking.ErrNotifyFailed:  http.StatusInternalServerError,
	inventory.ErrUnknownTier: http.StatusInternalServerError,
}

var errorInfoMap = map[error]ErrorInfo{
	ErrInvalidJSON: {Message: "Invalid JSON", Code: string(booking.InvalidPayload)},
	ErrRateLimited: {Message: "Too many requests. Please try again later.", Code: "rate_limited"},
}

var serverError = ErrorInfo{Message: "Server error", Code: "server_error"}

// GetErrorStatus maps err to a response status. Unknown errors are 500.
func GetErrorStatus(err error) int {
	var ve *booking.ValidationError
	if errors.As(err, &ve) {
		return http.StatusBadRequest
	}
	for known, status := range errorStatusMap {
		if errors.Is(err, known) {
			return status
		}
	}
	return http.StatusInternalServerError
}

// GetErrorInfo returns the client facing description of err. Server errors never
// carry detail.
func GetErrorInfo(err error) ErrorInfo {
	var ve *booking.ValidationError
	if errors.As(err, &ve) {
		return ErrorInfo{Message: ve.Message, Field: ve.Field, Code: string(ve.Reason)}
	}
	for known, info := range errorInfoMap {
		if errors.Is(err, known) {
			return info
		}
	}
	return serverError
}
