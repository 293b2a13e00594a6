package server

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"likevault/session"
	"likevault/storage"
	"likevault/syncer"
)

type fakeSessions struct {
	loginErr   error
	status     session.Status
	events     *session.Broadcaster
	logoutDone bool
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{events: session.NewBroadcaster()}
}

func (f *fakeSessions) Login(ctx context.Context) (session.Status, error) {
	if f.loginErr != nil {
		return session.Status{}, f.loginErr
	}
	f.status = session.Status{Authenticated: true, Email: "user@example.com"}
	return f.status, nil
}

func (f *fakeSessions) Logout(ctx context.Context) {
	f.logoutDone = true
	f.status = session.Status{}
}

func (f *fakeSessions) CheckStatus(ctx context.Context) session.Status {
	return f.status
}

func (f *fakeSessions) Events() *session.Broadcaster {
	return f.events
}

type fakeCoordinator struct {
	cache      *storage.VideoCache
	fetchErr   error
	gotCursor  string
	deletedIDs []string
	cleared    bool
}

func (f *fakeCoordinator) FetchFirst(ctx context.Context) (*storage.VideoCache, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.cache, nil
}

func (f *fakeCoordinator) FetchNext(ctx context.Context, pageToken string) (*syncer.FetchResult, error) {
	f.gotCursor = pageToken
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return &syncer.FetchResult{NewItems: f.cache.Items, Cache: f.cache}, nil
}

func (f *fakeCoordinator) DeleteByIDs(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return syncer.ErrInvalidArgument
	}
	f.deletedIDs = ids
	return nil
}

func (f *fakeCoordinator) DeleteAll(ctx context.Context) error {
	f.cleared = true
	return nil
}

func (f *fakeCoordinator) StoredVideos(ctx context.Context) (*storage.VideoCache, error) {
	return f.cache, nil
}

func testCache() *storage.VideoCache {
	return &storage.VideoCache{
		Items: []storage.VideoRecord{
			{ID: "v1", Title: "first"},
			{ID: "v2", Title: "second"},
		},
		NextPageToken: "tok2",
		TotalResults:  5,
		FetchedAt:     time.Now().UTC(),
	}
}

func postMessage(t *testing.T, ts *httptest.Server, body string) (*http.Response, map[string]json.RawMessage) {
	t.Helper()
	resp, err := http.Post(ts.URL+"/api/message", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST /api/message: %v", err)
	}
	defer resp.Body.Close()

	var fields map[string]json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&fields); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp, fields
}

func rawString(t *testing.T, raw json.RawMessage) string {
	t.Helper()
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		t.Fatalf("unmarshal %s as string: %v", raw, err)
	}
	return s
}

func TestAuthenticate(t *testing.T) {
	sessions := newFakeSessions()
	ts := httptest.NewServer(New(sessions, &fakeCoordinator{}).Handler())
	defer ts.Close()

	resp, fields := postMessage(t, ts, `{"action":"authenticate"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if string(fields["success"]) != "true" {
		t.Errorf("success = %s, want true", fields["success"])
	}
}

func TestAuthenticateFailureIsInBand(t *testing.T) {
	sessions := newFakeSessions()
	sessions.loginErr = session.ErrAuthenticationFailed
	ts := httptest.NewServer(New(sessions, &fakeCoordinator{}).Handler())
	defer ts.Close()

	resp, fields := postMessage(t, ts, `{"action":"authenticate"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if string(fields["success"]) != "false" {
		t.Errorf("success = %s, want false", fields["success"])
	}
	if _, ok := fields["error"]; ok {
		t.Error("authenticate failure produced an error payload")
	}
}

func TestCheckAuthNeverRejects(t *testing.T) {
	sessions := newFakeSessions()
	ts := httptest.NewServer(New(sessions, &fakeCoordinator{}).Handler())
	defer ts.Close()

	resp, fields := postMessage(t, ts, `{"action":"checkAuth"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if string(fields["isAuthenticated"]) != "false" {
		t.Errorf("isAuthenticated = %s, want false", fields["isAuthenticated"])
	}

	sessions.status = session.Status{Authenticated: true, Email: "user@example.com"}
	_, fields = postMessage(t, ts, `{"action":"checkAuth"}`)
	if string(fields["isAuthenticated"]) != "true" {
		t.Errorf("isAuthenticated = %s, want true", fields["isAuthenticated"])
	}
	if rawString(t, fields["email"]) != "user@example.com" {
		t.Errorf("email = %s, want user@example.com", fields["email"])
	}
}

func TestLogout(t *testing.T) {
	sessions := newFakeSessions()
	sessions.status = session.Status{Authenticated: true}
	ts := httptest.NewServer(New(sessions, &fakeCoordinator{}).Handler())
	defer ts.Close()

	_, fields := postMessage(t, ts, `{"action":"logout"}`)
	if string(fields["success"]) != "true" {
		t.Errorf("success = %s, want true", fields["success"])
	}
	if !sessions.logoutDone {
		t.Error("logout did not reach the session manager")
	}
}

func TestGetLikedVideos(t *testing.T) {
	coord := &fakeCoordinator{cache: testCache()}
	ts := httptest.NewServer(New(newFakeSessions(), coord).Handler())
	defer ts.Close()

	resp, fields := postMessage(t, ts, `{"action":"getLikedVideos"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var videos []storage.VideoRecord
	if err := json.Unmarshal(fields["videos"], &videos); err != nil {
		t.Fatalf("unmarshal videos: %v", err)
	}
	if len(videos) != 2 || videos[0].ID != "v1" {
		t.Errorf("videos = %+v, want [v1 v2]", videos)
	}
	if rawString(t, fields["nextPageToken"]) != "tok2" {
		t.Errorf("nextPageToken = %s, want tok2", fields["nextPageToken"])
	}
	if string(fields["totalResults"]) != "5" {
		t.Errorf("totalResults = %s, want 5", fields["totalResults"])
	}
}

func TestGetLikedVideosUnauthenticated(t *testing.T) {
	coord := &fakeCoordinator{fetchErr: syncer.ErrNotAuthenticated}
	ts := httptest.NewServer(New(newFakeSessions(), coord).Handler())
	defer ts.Close()

	resp, fields := postMessage(t, ts, `{"action":"getLikedVideos"}`)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
	if _, ok := fields["error"]; !ok {
		t.Error("response carries no error message")
	}
}

func TestGetMoreLikedVideosPassesCursor(t *testing.T) {
	coord := &fakeCoordinator{cache: testCache()}
	ts := httptest.NewServer(New(newFakeSessions(), coord).Handler())
	defer ts.Close()

	resp, _ := postMessage(t, ts, `{"action":"getMoreLikedVideos","pageToken":"tok2"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if coord.gotCursor != "tok2" {
		t.Errorf("cursor passed to coordinator = %q, want tok2", coord.gotCursor)
	}
}

func TestGetStoredVideosShape(t *testing.T) {
	coord := &fakeCoordinator{cache: testCache()}
	ts := httptest.NewServer(New(newFakeSessions(), coord).Handler())
	defer ts.Close()

	_, fields := postMessage(t, ts, `{"action":"getStoredVideos"}`)

	var videos struct {
		Items []storage.VideoRecord `json:"items"`
	}
	if err := json.Unmarshal(fields["videos"], &videos); err != nil {
		t.Fatalf("unmarshal videos: %v", err)
	}
	if len(videos.Items) != 2 {
		t.Errorf("items = %+v, want 2 records", videos.Items)
	}
	if rawString(t, fields["nextPageToken"]) != "tok2" {
		t.Errorf("nextPageToken = %s, want tok2", fields["nextPageToken"])
	}
}

func TestDeleteVideos(t *testing.T) {
	coord := &fakeCoordinator{cache: testCache()}
	ts := httptest.NewServer(New(newFakeSessions(), coord).Handler())
	defer ts.Close()

	_, fields := postMessage(t, ts, `{"action":"deleteVideos","videoIds":["v1","v2"]}`)
	if string(fields["success"]) != "true" {
		t.Errorf("success = %s, want true", fields["success"])
	}
	if len(coord.deletedIDs) != 2 {
		t.Errorf("deleted ids = %v, want [v1 v2]", coord.deletedIDs)
	}
}

func TestDeleteVideosEmptySet(t *testing.T) {
	coord := &fakeCoordinator{cache: testCache()}
	ts := httptest.NewServer(New(newFakeSessions(), coord).Handler())
	defer ts.Close()

	resp, fields := postMessage(t, ts, `{"action":"deleteVideos","videoIds":[]}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	if _, ok := fields["error"]; !ok {
		t.Error("response carries no error message")
	}
}

func TestDeleteAllVideos(t *testing.T) {
	coord := &fakeCoordinator{cache: testCache()}
	ts := httptest.NewServer(New(newFakeSessions(), coord).Handler())
	defer ts.Close()

	_, fields := postMessage(t, ts, `{"action":"deleteAllVideos"}`)
	if string(fields["success"]) != "true" {
		t.Errorf("success = %s, want true", fields["success"])
	}
	if !coord.cleared {
		t.Error("deleteAllVideos did not reach the coordinator")
	}
}

func TestUnknownAction(t *testing.T) {
	ts := httptest.NewServer(New(newFakeSessions(), &fakeCoordinator{}).Handler())
	defer ts.Close()

	resp, fields := postMessage(t, ts, `{"action":"frobnicate"}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	if !bytes.Contains(fields["error"], []byte("frobnicate")) {
		t.Errorf("error = %s, want mention of the unknown action", fields["error"])
	}
}

func TestMalformedBody(t *testing.T) {
	ts := httptest.NewServer(New(newFakeSessions(), &fakeCoordinator{}).Handler())
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/api/message", "application/json", strings.NewReader("{not json"))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestHealth(t *testing.T) {
	ts := httptest.NewServer(New(newFakeSessions(), &fakeCoordinator{}).Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
}

func TestEventsStream(t *testing.T) {
	sessions := newFakeSessions()
	ts := httptest.NewServer(New(sessions, &fakeCoordinator{}).Handler())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/events", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET /api/events: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("Content-Type = %q, want text/event-stream", ct)
	}

	// Give the handler a moment to subscribe before broadcasting.
	time.Sleep(50 * time.Millisecond)
	sessions.events.Send(session.AuthEvent{
		Authenticated: true,
		Email:         "user@example.com",
		Reason:        session.ReasonLogin,
	})

	scanner := bufio.NewScanner(resp.Body)
	var data string
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "data: ") {
			data = strings.TrimPrefix(line, "data: ")
			break
		}
	}
	if data == "" {
		t.Fatalf("no event data received: %v", scanner.Err())
	}

	var ev session.AuthEvent
	if err := json.Unmarshal([]byte(data), &ev); err != nil {
		t.Fatalf("unmarshal event %q: %v", data, err)
	}
	if !ev.Authenticated || ev.Reason != session.ReasonLogin {
		t.Errorf("event = %+v, want authenticated login event", ev)
	}
}
