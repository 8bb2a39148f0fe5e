package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"

	"github.com/steemit/birthday-payments/internal/payments"
)

const (
	msgValidation      = "Validation error"
	msgInvalidID       = "Invalid payment ID"
	msgNotFound        = "Payment not found"
	msgInvalidBody     = "Invalid request body"
	msgBodyTooLarge    = "Request body too large"
	msgRouteNotFound   = "Route not found"
	msgPanic           = "Something went wrong!"
	msgInternalError   = "Internal server error"
	msgTooManyRequests = "Too many requests from this IP, please try again later."
)

// Error represents an API error
type Error struct {
	Code    int
	Message string
	// Errors lists field violations of a rejected payload
	Errors []string
	// Err is the underlying cause, only exposed to clients in development
	Err error
}

// NewError creates a new API error
func NewError(code int, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("API error %d: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("API error %d: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// toError maps a service error to its API error. fallback is the message
// reported for unexpected failures.
func toError(err error, fallback string) *Error {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr
	}

	var verr *payments.ValidationError
	switch {
	case errors.As(err, &verr):
		return &Error{Code: http.StatusBadRequest, Message: msgValidation, Errors: verr.Errors}
	case errors.Is(err, payments.ErrInvalidID):
		return NewError(http.StatusBadRequest, msgInvalidID)
	case errors.Is(err, payments.ErrNotFound):
		return NewError(http.StatusNotFound, msgNotFound)
	default:
		return &Error{Code: http.StatusInternalServerError, Message: fallback, Err: err}
	}
}

// bindError maps a request decoding failure to its API error
func bindError(err error) *Error {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return &Error{Code: http.StatusRequestEntityTooLarge, Message: msgBodyTooLarge, Err: err}
	}
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		return &Error{Code: http.StatusBadRequest, Message: msgValidation, Errors: []string{fieldTypeMessage(typeErr)}, Err: err}
	}
	return &Error{Code: http.StatusBadRequest, Message: msgInvalidBody, Err: err}
}

// fieldTypeMessage describes a JSON value of the wrong type for its field
func fieldTypeMessage(e *json.UnmarshalTypeError) string {
	if e.Type != nil && e.Type.Kind() == reflect.String {
		return e.Field + " must be a string"
	}
	return e.Field + " has an invalid type"
}
