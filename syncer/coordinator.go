// Package syncer orchestrates fetching liked-video pages into the local
// cache and the local-only delete operations over it.
package syncer

import (
	"context"
	"errors"
	"log"

	"likevault/session"
	"likevault/storage"
	"likevault/youtube"
)

// Sentinel errors for coordinator operations.
var (
	// ErrNotAuthenticated indicates the operation requires a session that
	// does not exist. Re-exported so callers need only one import.
	ErrNotAuthenticated = session.ErrNotAuthenticated
	// ErrInvalidArgument indicates a malformed request, such as an empty
	// id set passed to a delete.
	ErrInvalidArgument = errors.New("syncer: invalid argument")
)

// PageFetcher is the part of the API client the coordinator needs.
type PageFetcher interface {
	FetchLikedPage(ctx context.Context, token, pageToken string) (*youtube.Page, error)
}

// Session is the part of the session manager the coordinator needs.
type Session interface {
	Token(ctx context.Context) (string, error)
	CheckStatus(ctx context.Context) session.Status
	Invalidate(ctx context.Context, reason string)
}

// Coordinator applies fetch and delete operations to the video cache.
// It holds no state of its own: cache mutations are read-modify-write
// calls into the store, which serializes them, so a whole-cache write
// (fetch first, delete all) that commits last wins over a concurrent
// page append. Deletes are local-cache-only and deliberately never touch
// the remote like: removing a record here does not un-like the video.
type Coordinator struct {
	store   storage.VideoCacheStore
	client  PageFetcher
	session Session
}

// New creates a coordinator.
func New(store storage.VideoCacheStore, client PageFetcher, sess Session) *Coordinator {
	return &Coordinator{
		store:   store,
		client:  client,
		session: sess,
	}
}

// FetchResult is the outcome of a page fetch.
type FetchResult struct {
	// NewItems are the records this fetch added to the cache.
	NewItems []storage.VideoRecord
	// Cache is the updated cache after the fetch.
	Cache *storage.VideoCache
}

// FetchFirst fetches the first page of liked videos and replaces the
// cache wholesale with it. The cache and its cursor are untouched when
// the fetch fails.
func (c *Coordinator) FetchFirst(ctx context.Context) (*storage.VideoCache, error) {
	token, err := c.token(ctx)
	if err != nil {
		return nil, err
	}

	page, err := c.client.FetchLikedPage(ctx, token, "")
	if err != nil {
		return nil, c.mapFetchError(ctx, err)
	}

	cache, err := c.store.ReplaceCache(ctx, page.Items, page.NextPageToken, page.TotalResults)
	if err != nil {
		return nil, err
	}

	log.Printf("syncer: fetched first page, %d videos cached (total %d)", len(cache.Items), cache.TotalResults)
	return cache, nil
}

// FetchNext fetches the page at the given cursor and appends it,
// de-duplicating by video id and preserving first-seen order. An empty
// pageToken means the cache's own cursor; when that is also empty there
// is nothing left to fetch and the call is a no-op returning the cache
// as is.
func (c *Coordinator) FetchNext(ctx context.Context, pageToken string) (*FetchResult, error) {
	cache, err := c.store.LoadCache(ctx)
	if err != nil {
		return nil, err
	}
	if pageToken == "" {
		pageToken = cache.NextPageToken
	}
	if pageToken == "" {
		return &FetchResult{Cache: cache}, nil
	}

	token, err := c.token(ctx)
	if err != nil {
		return nil, err
	}

	page, err := c.client.FetchLikedPage(ctx, token, pageToken)
	if err != nil {
		return nil, c.mapFetchError(ctx, err)
	}

	added, updated, err := c.store.AppendVideos(ctx, page.Items, page.NextPageToken, page.TotalResults)
	if err != nil {
		return nil, err
	}

	log.Printf("syncer: fetched next page, %d new videos (%d cached)", len(added), len(updated.Items))
	return &FetchResult{NewItems: added, Cache: updated}, nil
}

// DeleteByIDs removes the given records from the cache. The removal is
// idempotent; unknown ids are ignored.
func (c *Coordinator) DeleteByIDs(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return ErrInvalidArgument
	}

	cache, err := c.store.RemoveVideos(ctx, ids)
	if err != nil {
		return err
	}

	log.Printf("syncer: removed %d ids from cache, %d videos remain", len(ids), len(cache.Items))
	return nil
}

// DeleteAll empties the cache.
func (c *Coordinator) DeleteAll(ctx context.Context) error {
	if err := c.store.ClearCache(ctx); err != nil {
		return err
	}
	log.Printf("syncer: cache cleared")
	return nil
}

// StoredVideos returns the persisted cache without touching the network.
func (c *Coordinator) StoredVideos(ctx context.Context) (*storage.VideoCache, error) {
	return c.store.LoadCache(ctx)
}

// token resolves the bearer token, re-validating the session once: a
// CheckStatus pass lets lazy expiry detection run before the operation
// is declared unauthenticated.
func (c *Coordinator) token(ctx context.Context) (string, error) {
	token, err := c.session.Token(ctx)
	if err == nil {
		return token, nil
	}

	if status := c.session.CheckStatus(ctx); !status.Authenticated {
		return "", ErrNotAuthenticated
	}
	return c.session.Token(ctx)
}

// mapFetchError converts a remote token rejection into a session
// invalidation plus ErrNotAuthenticated; the raw 401 never reaches the
// caller. Other failures pass through untouched so the caller may
// reissue the same call.
func (c *Coordinator) mapFetchError(ctx context.Context, err error) error {
	if errors.Is(err, youtube.ErrUnauthorized) {
		c.session.Invalidate(ctx, session.ReasonTokenExpired)
		return ErrNotAuthenticated
	}
	return err
}
