package gateway

import (
	"errors"
	"fmt"
	"net/http"
)

// APIError is a non-2xx reply from the property management API.
type APIError struct {
	Status int
	Body   any // decoded JSON or raw text
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error: %d", e.Status)
}

// StatusCode returns the HTTP status of err when it is an *APIError, or 0.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

// IsNotFound reports whether err is a 404 reply.
func IsNotFound(err error) bool {
	return StatusCode(err) == http.StatusNotFound
}
