package session

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"os/exec"
	"runtime"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// Grant is the outcome of a completed interactive authorization.
type Grant struct {
	// Token is the bearer access token.
	Token string
	// ExpiresAt is the absolute expiry instant computed from the grant's
	// lifetime.
	ExpiresAt time.Time
}

// Authorizer performs the interactive part of login. Implementations
// block until the user completes or abandons the consent flow.
type Authorizer interface {
	Authorize(ctx context.Context) (*Grant, error)
}

// WebAuthFlow implements Authorizer with the loopback-redirect OAuth
// flow: open the consent URL in the user's browser, catch the redirect
// on a localhost listener, exchange the authorization code for a token.
type WebAuthFlow struct {
	// ClientID identifies the OAuth application.
	ClientID string
	// ClientSecret is the installed-app secret (not confidential for
	// this application class, but required by the token endpoint).
	ClientSecret string
	// ListenAddr is the loopback address for the redirect listener.
	// Use "127.0.0.1:0" to pick a free port.
	ListenAddr string
	// Scopes are the OAuth scopes to request.
	Scopes []string
	// OpenBrowser launches the user's browser at the consent URL.
	// Nil means use the platform default opener; the URL is always
	// logged so the user can follow it by hand.
	OpenBrowser func(url string) error

	// Endpoint overrides the provider endpoints (tests). Zero value
	// means Google's.
	Endpoint oauth2.Endpoint
}

// callbackResult carries the redirect outcome from the HTTP handler.
type callbackResult struct {
	code string
	err  error
}

// Authorize runs the interactive flow and returns the granted token.
// It fails when the user cancels, the redirect carries no code, the
// state nonce does not match, or the code exchange fails.
func (f *WebAuthFlow) Authorize(ctx context.Context) (*Grant, error) {
	addr := f.ListenAddr
	if addr == "" {
		addr = "127.0.0.1:0"
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen for redirect: %w", err)
	}
	defer listener.Close()

	endpoint := f.Endpoint
	if endpoint.AuthURL == "" {
		endpoint = google.Endpoint
	}

	cfg := &oauth2.Config{
		ClientID:     f.ClientID,
		ClientSecret: f.ClientSecret,
		Endpoint:     endpoint,
		Scopes:       f.Scopes,
		RedirectURL:  fmt.Sprintf("http://%s/oauth/callback", listener.Addr().String()),
	}

	// Nonce binds the redirect to this flow instance.
	state := uuid.NewString()
	results := make(chan callbackResult, 1)

	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/callback", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		switch {
		case q.Get("state") != state:
			http.Error(w, "state mismatch", http.StatusBadRequest)
			results <- callbackResult{err: fmt.Errorf("state mismatch in redirect")}
		case q.Get("error") != "":
			http.Error(w, "authorization denied", http.StatusForbidden)
			results <- callbackResult{err: fmt.Errorf("authorization denied: %s", q.Get("error"))}
		case q.Get("code") == "":
			http.Error(w, "no code in redirect", http.StatusBadRequest)
			results <- callbackResult{err: fmt.Errorf("no authorization code in redirect")}
		default:
			fmt.Fprint(w, "<html><body>Signed in. You can close this window.</body></html>")
			results <- callbackResult{code: q.Get("code")}
		}
	})

	server := &http.Server{Handler: mux}
	go server.Serve(listener)
	defer server.Close()

	authURL := cfg.AuthCodeURL(state, oauth2.AccessTypeOnline)
	log.Printf("session: open this URL to sign in: %s", authURL)

	opener := f.OpenBrowser
	if opener == nil {
		opener = openBrowser
	}
	if err := opener(authURL); err != nil {
		log.Printf("session: could not open browser: %v", err)
	}

	var result callbackResult
	select {
	case result = <-results:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if result.err != nil {
		return nil, result.err
	}

	token, err := cfg.Exchange(ctx, result.code)
	if err != nil {
		return nil, fmt.Errorf("exchange code: %w", err)
	}
	if token.AccessToken == "" {
		return nil, fmt.Errorf("no access token in response")
	}

	expiresAt := token.Expiry
	if expiresAt.IsZero() {
		// Provider did not report a lifetime; assume the usual hour.
		expiresAt = time.Now().Add(time.Hour)
	}

	return &Grant{Token: token.AccessToken, ExpiresAt: expiresAt}, nil
}

// openBrowser launches the platform's URL opener.
func openBrowser(url string) error {
	switch runtime.GOOS {
	case "darwin":
		return exec.Command("open", url).Start()
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", url).Start()
	default:
		return exec.Command("xdg-open", url).Start()
	}
}
