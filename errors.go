package likevault

import (
	"likevault/session"
	"likevault/storage"
	"likevault/syncer"
	"likevault/youtube"
)

// Error handling types exported for library users.
//
// All error types support the standard error handling patterns:
//
// Using errors.Is() for sentinel errors:
//
//	if errors.Is(err, likevault.ErrNotAuthenticated) {
//		fmt.Println("Sign in first")
//	}
//
// Using errors.As() for wrapped errors:
//
//	var remoteErr *likevault.RemoteError
//	if errors.As(err, &remoteErr) {
//		fmt.Printf("API returned %d\n", remoteErr.Status)
//	}

// Type aliases for convenient error handling.
type (
	// RemoteError reports a non-401 failure status from the API.
	RemoteError = youtube.RemoteError
	// NetworkError reports a transport failure with no response.
	NetworkError = youtube.NetworkError
	// StorageError wraps errors during vault storage operations.
	StorageError = storage.StorageError
)

// Sentinel errors exported from sub-packages.
var (
	// ErrNotAuthenticated indicates the operation requires a session that
	// does not exist.
	ErrNotAuthenticated = session.ErrNotAuthenticated
	// ErrAuthenticationFailed indicates interactive login did not yield a
	// usable token.
	ErrAuthenticationFailed = session.ErrAuthenticationFailed
	// ErrUnauthorized indicates the remote rejected an ostensibly valid
	// token; the session layer treats it as expiry.
	ErrUnauthorized = youtube.ErrUnauthorized
	// ErrInvalidArgument indicates a malformed request, such as an empty
	// id list passed to a delete.
	ErrInvalidArgument = syncer.ErrInvalidArgument

	// Storage errors
	// ErrNotFound indicates an entity was not found in the vault.
	ErrNotFound = storage.ErrNotFound
	// ErrInvalidInput indicates invalid input was provided.
	ErrInvalidInput = storage.ErrInvalidInput
	// ErrStorageCorrupt indicates the vault file could not be parsed.
	ErrStorageCorrupt = storage.ErrStorageCorrupt
	// ErrLockTimeout indicates a timeout acquiring the vault file lock.
	ErrLockTimeout = storage.ErrLockTimeout
)
