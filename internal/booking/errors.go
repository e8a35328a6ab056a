package booking

import (
	"errors"
	"fmt"
)

// Reason classifies a rejected booking request.
type Reason string

const (
	InvalidPayload  Reason = "invalid_payload"
	InvalidSize     Reason = "invalid_size"
	InvalidDuration Reason = "invalid_duration"
	InvalidDate     Reason = "invalid_date"
	TooFarInAdvance Reason = "too_far_in_advance"
	InvalidContact  Reason = "invalid_contact"
	InvalidHorizon  Reason = "invalid_horizon"
)

// ValidationError is a client mistake. Message is safe to show to the customer.
type ValidationError struct {
	Reason  Reason `json:"code"`
	Field   string `json:"field,omitempty"`
	Message string `json:"error"`
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalid(reason Reason, field, format string, args ...any) *ValidationError {
	return &ValidationError{Reason: reason, Field: field, Message: fmt.Sprintf(format, args...)}
}

var (
	// ErrCreateFailed means the calendar did not accept the hold.
	ErrCreateFailed = errors.New("failed to create reservation")
	// ErrNotifyFailed means the hold exists but the operator was not told about it.
	ErrNotifyFailed = errors.New("failed to notify operator")
)
