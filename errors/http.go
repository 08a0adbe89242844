package errors

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
)

// MapToHTTPStatus translates errors coming out of the notification core into
// the status codes exposed by the HTTP surface.
func MapToHTTPStatus(err error) int {
	var validationErrors validator.ValidationErrors
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &validationErrors),
		errors.Is(err, ErrInvalidTarget),
		errors.Is(err, ErrEncode):
		return http.StatusBadRequest
	case errors.Is(err, ErrQueueFull):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
