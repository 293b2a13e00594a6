package storage

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	schemaVersion = "1.0"
	lockTimeout   = 5 * time.Second
)

// JSONStore implements Store using a single JSON file.
type JSONStore struct {
	path string
	lock *FileLock
	data *storeData
	mu   sync.RWMutex

	// now is swappable for tests.
	now func() time.Time
}

// storeData is the top-level JSON structure.
type storeData struct {
	Version    string      `json:"version"`
	InstallID  string      `json:"install_id"` // Stable identity for this vault
	UpdatedAt  time.Time   `json:"updated_at"`
	Credential *Credential `json:"credential,omitempty"`
	Cache      *VideoCache `json:"cache"`
}

// NewJSONStore creates a new JSON file store at the given path.
// If the file exists, it is loaded; otherwise an empty store is created.
func NewJSONStore(path string) (*JSONStore, error) {
	s := &JSONStore{
		path: path,
		lock: NewFileLock(path),
		now:  time.Now,
	}

	if err := s.lock.Lock(lockTimeout); err != nil {
		return nil, err
	}

	if err := s.load(); err != nil {
		s.lock.Unlock()
		return nil, err
	}

	return s, nil
}

// InstallID returns the stable identifier generated when the vault file
// was first created.
func (s *JSONStore) InstallID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.InstallID
}

// load reads the JSON file into memory. Creates empty data if file doesn't exist.
func (s *JSONStore) load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.data = newStoreData(s.now())
			// Save immediately to catch permission errors early
			return s.save()
		}
		return &StorageError{Op: "read", Entity: "store", Err: err}
	}

	s.data = &storeData{}
	if err := json.Unmarshal(data, s.data); err != nil {
		return &StorageError{Op: "read", Entity: "store", Err: ErrStorageCorrupt}
	}

	if s.data.Cache == nil {
		s.data.Cache = NewVideoCache(s.now())
	}
	if s.data.InstallID == "" {
		s.data.InstallID = uuid.NewString()
	}

	return nil
}

// save persists the data to disk atomically.
func (s *JSONStore) save() error {
	s.data.UpdatedAt = s.now()

	writer, err := NewAtomicWriter(s.path)
	if err != nil {
		return &StorageError{Op: "write", Entity: "store", Err: err}
	}

	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(s.data); err != nil {
		writer.Abort()
		return &StorageError{Op: "write", Entity: "store", Err: err}
	}

	if err := writer.Commit(); err != nil {
		return &StorageError{Op: "write", Entity: "store", Err: err}
	}

	return nil
}

// Close releases resources held by the store.
func (s *JSONStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lock.Unlock()
}

func newStoreData(now time.Time) *storeData {
	return &storeData{
		Version:   schemaVersion,
		InstallID: uuid.NewString(),
		UpdatedAt: now,
		Cache:     NewVideoCache(now),
	}
}

// --- CredentialStore implementation ---

func (s *JSONStore) LoadCredential(ctx context.Context) (*Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.data.Credential == nil {
		return nil, &StorageError{Op: "read", Entity: "credential", Err: ErrNotFound}
	}
	cred := *s.data.Credential
	return &cred, nil
}

func (s *JSONStore) SaveCredential(ctx context.Context, cred *Credential) error {
	if cred == nil || cred.Token == "" {
		return &StorageError{Op: "write", Entity: "credential", Err: ErrInvalidInput}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.data.Credential
	copied := *cred
	s.data.Credential = &copied

	if err := s.save(); err != nil {
		// Failed writes must not be observable: restore the old value.
		s.data.Credential = prev
		return err
	}
	return nil
}

func (s *JSONStore) ClearCredential(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.data.Credential == nil {
		return nil
	}

	prev := s.data.Credential
	s.data.Credential = nil

	if err := s.save(); err != nil {
		s.data.Credential = prev
		return err
	}
	return nil
}

// --- VideoCacheStore implementation ---

func (s *JSONStore) LoadCache(ctx context.Context) (*VideoCache, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyCache(s.data.Cache), nil
}

func (s *JSONStore) ReplaceCache(ctx context.Context, items []VideoRecord, nextPageToken string, totalResults int64) (*VideoCache, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.data.Cache
	s.data.Cache = &VideoCache{
		Items:         append([]VideoRecord{}, items...),
		NextPageToken: nextPageToken,
		TotalResults:  totalResults,
		FetchedAt:     s.now(),
	}

	if err := s.save(); err != nil {
		s.data.Cache = prev
		return nil, err
	}
	return copyCache(s.data.Cache), nil
}

func (s *JSONStore) AppendVideos(ctx context.Context, items []VideoRecord, nextPageToken string, totalResults int64) ([]VideoRecord, *VideoCache, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.data.Cache
	next := copyCache(prev)

	// Skip records already cached; the remote can re-return an item when
	// the liked set changes between page fetches.
	var added []VideoRecord
	for _, item := range items {
		if next.ContainsID(item.ID) {
			continue
		}
		next.Items = append(next.Items, item)
		added = append(added, item)
	}
	next.NextPageToken = nextPageToken
	next.TotalResults = totalResults
	next.FetchedAt = s.now()

	s.data.Cache = next
	if err := s.save(); err != nil {
		s.data.Cache = prev
		return nil, nil, err
	}
	return added, copyCache(next), nil
}

func (s *JSONStore) RemoveVideos(ctx context.Context, ids []string) (*VideoCache, error) {
	if len(ids) == 0 {
		return nil, &StorageError{Op: "write", Entity: "cache", Err: ErrInvalidInput}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}

	prev := s.data.Cache
	next := copyCache(prev)
	kept := next.Items[:0]
	for _, item := range next.Items {
		if !drop[item.ID] {
			kept = append(kept, item)
		}
	}
	next.Items = kept
	next.FetchedAt = s.now()

	s.data.Cache = next
	if err := s.save(); err != nil {
		s.data.Cache = prev
		return nil, err
	}
	return copyCache(next), nil
}

func (s *JSONStore) ClearCache(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.data.Cache
	s.data.Cache = NewVideoCache(s.now())

	if err := s.save(); err != nil {
		s.data.Cache = prev
		return err
	}
	return nil
}

// copyCache returns a shallow-item copy so callers never alias the
// store's internal slice.
func copyCache(c *VideoCache) *VideoCache {
	out := &VideoCache{
		Items:         append([]VideoRecord{}, c.Items...),
		NextPageToken: c.NextPageToken,
		TotalResults:  c.TotalResults,
		FetchedAt:     c.FetchedAt,
	}
	return out
}
