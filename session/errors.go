package session

import "errors"

// Sentinel errors for session operations.
var (
	// ErrNotAuthenticated indicates the operation requires a session that
	// does not exist.
	ErrNotAuthenticated = errors.New("session: not authenticated")
	// ErrAuthenticationFailed indicates interactive login did not yield a
	// usable token.
	ErrAuthenticationFailed = errors.New("session: authentication failed")
)
