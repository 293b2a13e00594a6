package server

import "likevault/storage"

// Action tags the operation a message request asks for.
type Action string

// The full set of message actions.
const (
	ActionAuthenticate       Action = "authenticate"
	ActionCheckAuth          Action = "checkAuth"
	ActionLogout             Action = "logout"
	ActionGetLikedVideos     Action = "getLikedVideos"
	ActionGetMoreLikedVideos Action = "getMoreLikedVideos"
	ActionGetStoredVideos    Action = "getStoredVideos"
	ActionDeleteVideos       Action = "deleteVideos"
	ActionDeleteAllVideos    Action = "deleteAllVideos"
)

// Request is the envelope every message arrives in. Only the fields the
// tagged action needs are read.
type Request struct {
	Action    Action   `json:"action"`
	PageToken string   `json:"pageToken,omitempty"`
	VideoIDs  []string `json:"videoIds,omitempty"`
}

// SuccessResponse reports whether a state-changing action took effect.
type SuccessResponse struct {
	Success bool `json:"success"`
}

// AuthStatusResponse is the checkAuth reply.
type AuthStatusResponse struct {
	IsAuthenticated bool   `json:"isAuthenticated"`
	Email           string `json:"email"`
}

// VideosResponse carries the videos a fetch produced plus the paging
// state after it.
type VideosResponse struct {
	Videos        []storage.VideoRecord `json:"videos"`
	NextPageToken string                `json:"nextPageToken,omitempty"`
	TotalResults  int64                 `json:"totalResults"`
}

// StoredItems wraps cached records for the getStoredVideos reply.
type StoredItems struct {
	Items []storage.VideoRecord `json:"items"`
}

// StoredVideosResponse is the getStoredVideos reply.
type StoredVideosResponse struct {
	Videos        StoredItems `json:"videos"`
	NextPageToken string      `json:"nextPageToken,omitempty"`
	TotalResults  int64       `json:"totalResults"`
}

// ErrorResponse carries a human-readable failure message.
type ErrorResponse struct {
	Error string `json:"error"`
}
