package http

import "fmt"

// HTTPError indicates an HTTP error response.
type HTTPError struct {
	// StatusCode is the HTTP status code
	StatusCode int
	// Body is the response body
	Body []byte
}

// Error returns a string representation of the HTTP error.
func (e *HTTPError) Error() string {
	return fmt.Sprintf("http error: status %d", e.StatusCode)
}

// Sentinel errors for HTTP operations.
var (
	// ErrRequestFailed indicates the request itself failed (network error).
	ErrRequestFailed = fmt.Errorf("http request failed")
)
