// Package youtube wraps the YouTube Data API v3 calls needed to read the
// authenticated account's liked videos and profile identity.
package youtube

import (
	"context"
	"errors"
	"net/http"
	"time"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	httpx "likevault/http"
	"likevault/storage"
)

const (
	// DefaultPageSize is the fixed liked-videos page size.
	DefaultPageSize = 50

	// defaultUserinfoURL resolves the account's email address.
	defaultUserinfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"
)

// OAuth scopes the client's calls require.
const (
	ScopeYouTubeReadonly = youtube.YoutubeReadonlyScope
	ScopeUserinfoEmail   = "https://www.googleapis.com/auth/userinfo.email"
)

// Config holds API client configuration.
type Config struct {
	// PageSize is the liked-videos page size (default 50, the API maximum).
	PageSize int64

	// UserinfoURL overrides the userinfo endpoint (tests).
	UserinfoURL string

	// Endpoint overrides the Data API base URL (tests).
	Endpoint string
}

// Client issues the authenticated read calls against the YouTube API.
// Every call takes the bearer token explicitly; the client itself holds
// no credential state.
type Client struct {
	service     *youtube.Service
	http        *httpx.Client
	pageSize    int64
	userinfoURL string
}

// Page is one page of the liked-videos listing.
type Page struct {
	// Items are the records on this page, in API order.
	Items []storage.VideoRecord
	// NextPageToken is the cursor for the following page; empty on the last page.
	NextPageToken string
	// TotalResults is the server-reported size of the full liked set.
	TotalResults int64
}

// NewClient creates an API client on top of the given HTTP client.
// The HTTP client provides rate limiting and pooling; authorization is
// attached per call.
func NewClient(hc *httpx.Client, cfg *Config) (*Client, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	userinfoURL := cfg.UserinfoURL
	if userinfoURL == "" {
		userinfoURL = defaultUserinfoURL
	}

	opts := []option.ClientOption{option.WithHTTPClient(hc.HTTPClient())}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}

	service, err := youtube.NewService(context.Background(), opts...)
	if err != nil {
		return nil, err
	}

	return &Client{
		service:     service,
		http:        hc,
		pageSize:    pageSize,
		userinfoURL: userinfoURL,
	}, nil
}

// FetchLikedPage fetches one page of the account's liked videos, with
// snippet and contentDetails parts so durations are populated. An empty
// pageToken requests the first page.
func (c *Client) FetchLikedPage(ctx context.Context, token, pageToken string) (*Page, error) {
	call := c.service.Videos.List([]string{"snippet", "contentDetails"}).
		MyRating("like").
		MaxResults(c.pageSize).
		Context(ctx)
	if pageToken != "" {
		call = call.PageToken(pageToken)
	}
	call.Header().Set("Authorization", "Bearer "+token)

	resp, err := call.Do()
	if err != nil {
		return nil, classifyError(err)
	}

	page := &Page{
		Items:         make([]storage.VideoRecord, 0, len(resp.Items)),
		NextPageToken: resp.NextPageToken,
	}
	if resp.PageInfo != nil {
		page.TotalResults = resp.PageInfo.TotalResults
	}
	for _, item := range resp.Items {
		page.Items = append(page.Items, toRecord(item))
	}

	return page, nil
}

// FetchAccountEmail resolves the account's email address for display.
// Callers treat failures as non-fatal; identity resolution never gates
// authentication.
func (c *Client) FetchAccountEmail(ctx context.Context, token string) (string, error) {
	var info struct {
		Email string `json:"email"`
	}

	headers := map[string]string{"Authorization": "Bearer " + token}
	if err := c.http.GetJSON(ctx, c.userinfoURL, headers, &info); err != nil {
		var httpErr *httpx.HTTPError
		if errors.As(err, &httpErr) {
			if httpErr.StatusCode == http.StatusUnauthorized {
				return "", ErrUnauthorized
			}
			return "", &RemoteError{Status: httpErr.StatusCode}
		}
		return "", &NetworkError{Err: err}
	}

	return info.Email, nil
}

// toRecord converts an API video resource into the cached record shape.
func toRecord(v *youtube.Video) storage.VideoRecord {
	rec := storage.VideoRecord{
		ID:         v.Id,
		Thumbnails: make(map[string]string),
	}

	if v.Snippet != nil {
		rec.Title = v.Snippet.Title
		rec.ChannelName = v.Snippet.ChannelTitle
		if t, err := time.Parse(time.RFC3339, v.Snippet.PublishedAt); err == nil {
			rec.PublishedAt = t
		}
		if v.Snippet.Thumbnails != nil {
			if v.Snippet.Thumbnails.Default != nil {
				rec.Thumbnails[storage.ThumbnailDefault] = v.Snippet.Thumbnails.Default.Url
			}
			if v.Snippet.Thumbnails.Medium != nil {
				rec.Thumbnails[storage.ThumbnailMedium] = v.Snippet.Thumbnails.Medium.Url
			}
		}
	}
	if v.ContentDetails != nil {
		rec.DurationISO = v.ContentDetails.Duration
	}

	return rec
}

// classifyError maps API failures onto the client's error taxonomy:
// 401 means the token was rejected, any other API status is a remote
// error, and everything else never reached the server.
func classifyError(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		if apiErr.Code == http.StatusUnauthorized {
			return ErrUnauthorized
		}
		return &RemoteError{Status: apiErr.Code, Message: apiErr.Message}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return &NetworkError{Err: err}
}
