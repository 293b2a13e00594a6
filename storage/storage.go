// Package storage provides abstractions for persisting likevault data.
package storage

import (
	"context"
	"errors"
	"fmt"
)

// Sentinel errors for common storage conditions.
var (
	// ErrNotFound indicates the requested entity was not found.
	ErrNotFound = errors.New("storage: not found")
	// ErrInvalidInput indicates invalid or malformed input was provided.
	ErrInvalidInput = errors.New("storage: invalid input")
	// ErrStorageCorrupt indicates data corruption was detected.
	ErrStorageCorrupt = errors.New("storage: data corruption detected")
	// ErrLockTimeout indicates a timeout acquiring a file lock.
	ErrLockTimeout = errors.New("storage: lock acquisition timeout")
)

// StorageError wraps storage errors with operation and entity context.
// Use errors.As() to extract this error type and get operation details:
//
//	var storErr *storage.StorageError
//	if errors.As(err, &storErr) {
//		fmt.Printf("Failed to %s %s: %v\n", storErr.Op, storErr.Entity, storErr.Err)
//	}
type StorageError struct {
	// Op is the operation that failed ("read", "write", "lock").
	Op string
	// Entity is the entity type ("credential", "cache", "store").
	Entity string
	// Err is the underlying error that occurred.
	Err error
}

// Error returns a string representation of the storage error.
func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s %s: %v", e.Op, e.Entity, e.Err)
}

// Unwrap returns the underlying error for use with errors.Is() and errors.As().
func (e *StorageError) Unwrap() error { return e.Err }

// Store is the main storage interface for likevault data.
// Implementations must be safe for concurrent use; every mutation is
// all-or-nothing from the caller's point of view.
type Store interface {
	CredentialStore
	VideoCacheStore

	// Close releases any resources held by the store.
	Close() error
}

// CredentialStore persists the single OAuth credential.
type CredentialStore interface {
	// LoadCredential returns the stored credential, or ErrNotFound if no
	// credential was ever saved or it has been cleared.
	LoadCredential(ctx context.Context) (*Credential, error)
	// SaveCredential replaces the stored credential.
	SaveCredential(ctx context.Context, cred *Credential) error
	// ClearCredential removes the stored credential. Clearing an absent
	// credential is not an error.
	ClearCredential(ctx context.Context) error
}

// VideoCacheStore persists the liked-video cache. Mutations are
// read-modify-write under the store's lock, so callers see them applied
// in the order issued; ReplaceCache and ClearCache are whole-object
// writes and win over any append that committed before them.
type VideoCacheStore interface {
	// LoadCache returns the persisted cache. An empty cache (never
	// fetched, or cleared) is returned as a zero-item cache, not an error.
	LoadCache(ctx context.Context) (*VideoCache, error)
	// ReplaceCache overwrites the whole cache with the given pages' worth
	// of items, cursor and total, stamping FetchedAt.
	ReplaceCache(ctx context.Context, items []VideoRecord, nextPageToken string, totalResults int64) (*VideoCache, error)
	// AppendVideos appends items to the cache, skipping any whose ID is
	// already present, and updates the cursor and total. It returns the
	// items actually added and the updated cache.
	AppendVideos(ctx context.Context, items []VideoRecord, nextPageToken string, totalResults int64) ([]VideoRecord, *VideoCache, error)
	// RemoveVideos deletes the records whose IDs are in ids. Unknown IDs
	// are ignored, so removing the same set twice is a no-op.
	RemoveVideos(ctx context.Context, ids []string) (*VideoCache, error)
	// ClearCache resets the cache to empty.
	ClearCache(ctx context.Context) error
}
