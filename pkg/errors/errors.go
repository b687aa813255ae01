package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents a typed domain error with HTTP awareness.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Err     error  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Predefined errors for common scenarios.
var (
	ErrInvalidCredentials = New("INVALID_CREDENTIALS", http.StatusBadRequest, "invalid email or password")
	ErrNotFound           = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrForbidden          = New("FORBIDDEN", http.StatusForbidden, "forbidden")
	ErrUnauthorized       = New("UNAUTHORIZED", http.StatusUnauthorized, "unauthorized")
	ErrValidation         = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrInternal           = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")

	// Slot validation and conflict rejections. Never retried.
	ErrInvalidTimeFormat = New("INVALID_TIME_FORMAT", http.StatusBadRequest, "invalid date format, use DD-MM-YYYY HH:mm")
	ErrSlotInPast        = New("SLOT_IN_PAST", http.StatusBadRequest, "cannot create a slot in the past")
	ErrSlotDuration      = New("INVALID_SLOT_DURATION", http.StatusBadRequest, "slot must be exactly 30 minutes")
	ErrDuplicateSlot     = New("DUPLICATE_SLOT", http.StatusConflict, "a slot with the same date and time already exists")
	ErrSlotOverlap       = New("SLOT_OVERLAP", http.StatusConflict, "slot overlaps with an existing slot")
	ErrSlotLocked        = New("SLOT_LOCKED", http.StatusConflict, "slot is already booked")

	// Booking path. A lost slot claim never surfaces directly; the
	// arbitration retries and escalates to SlotUnavailable.
	ErrContactRequired = New("CONTACT_REQUIRED", http.StatusBadRequest, "email or mobile number is required")
	ErrSlotUnavailable = New("SLOT_UNAVAILABLE", http.StatusConflict, "slot not available or already booked")
	ErrNoCandidates    = New("NO_CANDIDATES", http.StatusConflict, "no available slots found at this time")
)

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}
