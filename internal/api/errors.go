package api

import (
	"errors"
	"fmt"
	"net/http"
)

// DefaultErrorMessage is used when the backend gives no usable detail.
const DefaultErrorMessage = "Ocurrió un error al comunicarse con el servidor"

// Error is a non-success HTTP response from the backend.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// NetworkError means the backend could not be reached at all
// (connection refused, DNS, timeout). It is never an HTTP response.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("failed to reach server: %v", e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// Status returns the HTTP status carried by err, or 0.
func Status(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

// IsAuthError reports whether err is a 401 or 403 from the backend.
func IsAuthError(err error) bool {
	status := Status(err)
	return status == http.StatusUnauthorized || status == http.StatusForbidden
}

// IsNetworkError reports whether err is a transport failure.
func IsNetworkError(err error) bool {
	var netErr *NetworkError
	return errors.As(err, &netErr)
}
