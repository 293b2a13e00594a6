// Package server exposes the session and cache operations over a local
// HTTP API. All actions arrive on a single message endpoint and are
// dispatched by a typed action tag; authentication state changes are
// pushed to clients as server-sent events.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"likevault/session"
	"likevault/storage"
	"likevault/syncer"
	"likevault/youtube"
)

// SessionManager is the part of the session layer the server needs.
type SessionManager interface {
	Login(ctx context.Context) (session.Status, error)
	Logout(ctx context.Context)
	CheckStatus(ctx context.Context) session.Status
	Events() *session.Broadcaster
}

// Coordinator is the part of the sync layer the server needs.
type Coordinator interface {
	FetchFirst(ctx context.Context) (*storage.VideoCache, error)
	FetchNext(ctx context.Context, pageToken string) (*syncer.FetchResult, error)
	DeleteByIDs(ctx context.Context, ids []string) error
	DeleteAll(ctx context.Context) error
	StoredVideos(ctx context.Context) (*storage.VideoCache, error)
}

// Server routes message requests to the session manager and coordinator.
type Server struct {
	sessions SessionManager
	coord    Coordinator
	router   chi.Router
}

// New creates a server with its routes registered.
func New(sessions SessionManager, coord Coordinator) *Server {
	s := &Server{
		sessions: sessions,
		coord:    coord,
	}

	r := chi.NewRouter()
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.RequestID)

	r.Post("/api/message", s.handleMessage)
	r.Get("/api/events", s.handleEvents)
	r.Get("/health", s.handleHealth)

	s.router = r
	return s
}

// Handler returns the server's HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe starts serving on addr and blocks.
func (s *Server) ListenAndServe(addr string) error {
	log.Printf("server: listening on %s", addr)
	return http.ListenAndServe(addr, s.router)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleMessage decodes a message request and dispatches on its action
// tag. The switch enumerates every action; an unlisted tag is a client
// error, not a fall-through.
func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("malformed request body: %w", err))
		return
	}

	ctx := r.Context()
	switch req.Action {
	case ActionAuthenticate:
		s.authenticate(ctx, w)
	case ActionCheckAuth:
		s.checkAuth(ctx, w)
	case ActionLogout:
		s.logout(ctx, w)
	case ActionGetLikedVideos:
		s.getLikedVideos(ctx, w)
	case ActionGetMoreLikedVideos:
		s.getMoreLikedVideos(ctx, w, req.PageToken)
	case ActionGetStoredVideos:
		s.getStoredVideos(ctx, w)
	case ActionDeleteVideos:
		s.deleteVideos(ctx, w, req.VideoIDs)
	case ActionDeleteAllVideos:
		s.deleteAllVideos(ctx, w)
	default:
		writeError(w, http.StatusBadRequest, fmt.Errorf("unknown action %q", req.Action))
	}
}

// authenticate runs the interactive login. Failure is reported in-band
// as success=false rather than an error payload.
func (s *Server) authenticate(ctx context.Context, w http.ResponseWriter) {
	if _, err := s.sessions.Login(ctx); err != nil {
		log.Printf("server: authenticate failed: %v", err)
		writeJSON(w, http.StatusOK, SuccessResponse{Success: false})
		return
	}
	writeJSON(w, http.StatusOK, SuccessResponse{Success: true})
}

// checkAuth never rejects; an absent or expired session is an ordinary
// unauthenticated status.
func (s *Server) checkAuth(ctx context.Context, w http.ResponseWriter) {
	status := s.sessions.CheckStatus(ctx)
	writeJSON(w, http.StatusOK, AuthStatusResponse{
		IsAuthenticated: status.Authenticated,
		Email:           status.Email,
	})
}

func (s *Server) logout(ctx context.Context, w http.ResponseWriter) {
	s.sessions.Logout(ctx)
	writeJSON(w, http.StatusOK, SuccessResponse{Success: true})
}

func (s *Server) getLikedVideos(ctx context.Context, w http.ResponseWriter) {
	cache, err := s.coord.FetchFirst(ctx)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, VideosResponse{
		Videos:        cache.Items,
		NextPageToken: cache.NextPageToken,
		TotalResults:  cache.TotalResults,
	})
}

func (s *Server) getMoreLikedVideos(ctx context.Context, w http.ResponseWriter, pageToken string) {
	result, err := s.coord.FetchNext(ctx, pageToken)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, VideosResponse{
		Videos:        result.NewItems,
		NextPageToken: result.Cache.NextPageToken,
		TotalResults:  result.Cache.TotalResults,
	})
}

// getStoredVideos serves the cache as is, without touching the network.
func (s *Server) getStoredVideos(ctx context.Context, w http.ResponseWriter) {
	cache, err := s.coord.StoredVideos(ctx)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, StoredVideosResponse{
		Videos:        StoredItems{Items: cache.Items},
		NextPageToken: cache.NextPageToken,
		TotalResults:  cache.TotalResults,
	})
}

func (s *Server) deleteVideos(ctx context.Context, w http.ResponseWriter, ids []string) {
	if err := s.coord.DeleteByIDs(ctx, ids); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, SuccessResponse{Success: true})
}

func (s *Server) deleteAllVideos(ctx context.Context, w http.ResponseWriter) {
	if err := s.coord.DeleteAll(ctx); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, SuccessResponse{Success: true})
}

// handleEvents streams authentication events to the client as
// server-sent events until the client disconnects.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	events := s.sessions.Events()
	ch := events.Subscribe()
	defer events.Unsubscribe(ch)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev := <-ch:
			data, err := json.Marshal(ev)
			if err != nil {
				log.Printf("server: encode auth event: %v", err)
				continue
			}
			fmt.Fprintf(w, "event: auth\ndata: %s\n\n", data)
			flusher.Flush()
		}
	}
}

// statusFor maps the error taxonomy to HTTP status codes.
func statusFor(err error) int {
	var remote *youtube.RemoteError
	switch {
	case errors.Is(err, syncer.ErrNotAuthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, syncer.ErrInvalidArgument), errors.Is(err, storage.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.As(err, &remote):
		return http.StatusBadGateway
	default:
		var netErr *youtube.NetworkError
		if errors.As(err, &netErr) {
			return http.StatusBadGateway
		}
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("server: encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, ErrorResponse{Error: err.Error()})
}
