package routes

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"dumpster-booking/internal/booking"
)

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		info   ErrorInfo
	}{
		{
			name:   "invalid json",
			err:    fmt.Errorf("%w: %w", ErrInvalidJSON, errors.New("unexpected EOF")),
			status: http.StatusBadRequest,
			info:   ErrorInfo{Message: "Invalid JSON", Code: "invalid_payload"},
		},
		{
			name:   "rate limited",
			err:    ErrRateLimited,
			status: http.StatusTooManyRequests,
			info:   ErrorInfo{Message: "Too many requests. Please try again later.", Code: "rate_limited"},
		},
		{
			name:   "validation",
			err:    fmt.Errorf("request: %w", &booking.ValidationError{Reason: booking.InvalidContact, Field: "email", Message: "Invalid email"}),
			status: http.StatusBadRequest,
			info:   ErrorInfo{Message: "Invalid email", Field: "email", Code: "invalid_contact"},
		},
		{
			name:   "calendar write",
			err:    fmt.Errorf("%w: %w", booking.ErrCreateFailed, errors.New("quota exceeded")),
			status: http.StatusInternalServerError,
			info:   serverError,
		},
		{
			name:   "unknown",
			err:    errors.New("boom"),
			status: http.StatusInternalServerError,
			info:   serverError,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetErrorStatus(tt.err); got != tt.status {
				t.Errorf("status = %d, want %d", got, tt.status)
			}
			if got := GetErrorInfo(tt.err); got != tt.info {
				t.Errorf("info = %+v, want %+v", got, tt.info)
			}
		})
	}
}
