package storage

import "time"

// Thumbnail size labels present in VideoRecord.Thumbnails.
const (
	ThumbnailDefault = "default"
	ThumbnailMedium  = "medium"
)

// Credential holds the OAuth bearer token for the signed-in account.
type Credential struct {
	Token        string    `json:"token"`         // Opaque bearer token
	ExpiresAt    time.Time `json:"expires_at"`    // Absolute expiry instant
	AccountEmail string    `json:"account_email"` // Best-effort display identity
}

// Valid reports whether the credential can still be presented to the API.
// An empty token or a passed expiry means "not authenticated".
func (c *Credential) Valid(now time.Time) bool {
	if c == nil || c.Token == "" {
		return false
	}
	return now.Before(c.ExpiresAt)
}

// VideoRecord is the cached metadata for one liked video.
type VideoRecord struct {
	ID          string            `json:"id"`           // YouTube video ID, unique key
	Title       string            `json:"title"`        // Video title
	ChannelName string            `json:"channel_name"` // Uploading channel
	PublishedAt time.Time         `json:"published_at"`
	Thumbnails  map[string]string `json:"thumbnails"`             // size label -> URL
	DurationISO string            `json:"duration_iso,omitempty"` // ISO-8601, from contentDetails

	// Selected is a transient view-side flag. It is never persisted and
	// never sent to the API; every load starts it at false.
	Selected bool `json:"-"`
}

// VideoCache is the full set of fetched liked-video records plus the
// pagination state needed to continue where the last fetch stopped.
type VideoCache struct {
	Items         []VideoRecord `json:"items"`                     // Fetch order preserved
	NextPageToken string        `json:"next_page_token,omitempty"` // Empty means no more pages
	TotalResults  int64         `json:"total_results"`             // Server-reported, advisory
	FetchedAt     time.Time     `json:"fetched_at"`                // Last successful write
}

// NewVideoCache returns an empty cache stamped with the given fetch time.
func NewVideoCache(now time.Time) *VideoCache {
	return &VideoCache{
		Items:     []VideoRecord{},
		FetchedAt: now,
	}
}

// ContainsID reports whether a record with the given video ID is cached.
func (c *VideoCache) ContainsID(id string) bool {
	for _, item := range c.Items {
		if item.ID == id {
			return true
		}
	}
	return false
}
