package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestClient_Get(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer abc" {
			t.Errorf("Authorization header = %q, want %q", got, "Bearer abc")
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer ts.Close()

	client := New(nil)
	defer client.Close()

	resp, err := client.Get(context.Background(), ts.URL, map[string]string{
		"Authorization": "Bearer abc",
	})
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("StatusCode = %d, want 200", resp.StatusCode)
	}
	if string(resp.Body) != `{"ok":true}` {
		t.Errorf("Body = %q", resp.Body)
	}
}

func TestClient_NonTwoHundredIsHTTPError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer ts.Close()

	client := New(nil)
	defer client.Close()

	_, err := client.Get(context.Background(), ts.URL, nil)
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("Get() error = %T (%v), want *HTTPError", err, err)
	}
	if httpErr.StatusCode != http.StatusForbidden {
		t.Errorf("StatusCode = %d, want 403", httpErr.StatusCode)
	}
}

func TestClient_TransportFailure(t *testing.T) {
	client := New(nil)
	defer client.Close()

	// Closed server: connection refused
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := ts.URL
	ts.Close()

	_, err := client.Get(context.Background(), url, nil)
	if !errors.Is(err, ErrRequestFailed) {
		t.Errorf("Get() against closed server error = %v, want ErrRequestFailed", err)
	}
}

func TestClient_GetJSON(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"email":"someone@example.com"}`))
	}))
	defer ts.Close()

	client := New(nil)
	defer client.Close()

	var out struct {
		Email string `json:"email"`
	}
	if err := client.GetJSON(context.Background(), ts.URL, nil, &out); err != nil {
		t.Fatalf("GetJSON() error = %v", err)
	}
	if out.Email != "someone@example.com" {
		t.Errorf("decoded email = %q", out.Email)
	}
}

func TestRateLimitedTransport_Throttles(t *testing.T) {
	var hits int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))
	defer ts.Close()

	// 20 rps, burst 1: three requests need ~100ms
	client := New(&Config{
		Timeout:           5 * time.Second,
		RequestsPerSecond: 20,
		Burst:             1,
		Transport:         DefaultTransportConfig(),
	})
	defer client.Close()

	start := time.Now()
	for i := 0; i < 3; i++ {
		if _, err := client.Get(context.Background(), ts.URL, nil); err != nil {
			t.Fatalf("Get() error = %v", err)
		}
	}
	elapsed := time.Since(start)

	if atomic.LoadInt32(&hits) != 3 {
		t.Errorf("server saw %d requests, want 3", hits)
	}
	if elapsed < 80*time.Millisecond {
		t.Errorf("three requests at 20rps/burst 1 took %v, want >= ~100ms", elapsed)
	}
}

func TestRateLimitedTransport_ContextCancel(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer ts.Close()

	client := New(&Config{
		Timeout:           5 * time.Second,
		RequestsPerSecond: 0.1, // one request per 10s after the burst
		Burst:             1,
		Transport:         DefaultTransportConfig(),
	})
	defer client.Close()

	// First request consumes the burst
	if _, err := client.Get(context.Background(), ts.URL, nil); err != nil {
		t.Fatalf("Get() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.Get(ctx, ts.URL, nil)
	if err == nil {
		t.Error("Get() with expired context succeeded, want error")
	}
}

func TestRateLimitedTransport_DefaultUserAgent(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("User-Agent"); got != "likevault/1.0" {
			t.Errorf("User-Agent = %q, want %q", got, "likevault/1.0")
		}
	}))
	defer ts.Close()

	client := New(nil)
	defer client.Close()

	if _, err := client.Get(context.Background(), ts.URL, nil); err != nil {
		t.Fatalf("Get() error = %v", err)
	}
}
