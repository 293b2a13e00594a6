package youtube

import (
	"errors"
	"fmt"
)

// Sentinel errors for YouTube API operations.
var (
	// ErrUnauthorized indicates the API rejected the bearer token (401).
	// Callers treat this as session expiry, not as a request failure.
	ErrUnauthorized = errors.New("youtube: unauthorized")
)

// RemoteError indicates the API returned a non-401 failure status.
type RemoteError struct {
	// Status is the HTTP status code returned by the API.
	Status int
	// Message is the API's error message, if any.
	Message string
}

// Error returns a string representation of the remote error.
func (e *RemoteError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("youtube: remote error %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("youtube: remote error %d", e.Status)
}

// NetworkError indicates the transport failed before a response arrived.
type NetworkError struct {
	Err error
}

// Error returns a string representation of the network error.
func (e *NetworkError) Error() string {
	return fmt.Sprintf("youtube: network error: %v", e.Err)
}

// Unwrap returns the underlying error for use with errors.Is() and errors.As().
func (e *NetworkError) Unwrap() error { return e.Err }
