// Package session manages the authentication lifecycle: interactive
// login, logout, lazy expiry detection, and auth-change notifications.
package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"likevault/internal/retry"
	"likevault/storage"
	"likevault/youtube"
)

// State is the session manager's externally observable state.
type State int

const (
	// StateUnauthenticated means no valid credential exists.
	StateUnauthenticated State = iota
	// StateAuthenticating means an interactive login is in flight.
	StateAuthenticating
	// StateAuthenticated means a locally valid credential exists.
	StateAuthenticated
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateAuthenticating:
		return "authenticating"
	case StateAuthenticated:
		return "authenticated"
	default:
		return "unauthenticated"
	}
}

// EmailFetcher is the part of the API client the session manager needs.
type EmailFetcher interface {
	FetchAccountEmail(ctx context.Context, token string) (string, error)
}

// Status is the answer to "is the user currently authenticated".
type Status struct {
	Authenticated bool
	Email         string
}

// Manager owns the authentication state machine. Authentication truth is
// always derived from the persisted credential, never from a cached
// process-global, so it cannot drift from storage.
type Manager struct {
	store    storage.Store
	api      EmailFetcher
	auth     Authorizer
	events   *Broadcaster
	retryCfg retry.Config

	// FallbackEmail is shown when the account's email cannot be resolved
	// and none was stored before.
	FallbackEmail string

	mu             sync.Mutex
	authenticating bool

	// now is swappable for tests.
	now func() time.Time
}

// NewManager creates a session manager.
func NewManager(store storage.Store, api EmailFetcher, auth Authorizer) *Manager {
	return &Manager{
		store:    store,
		api:      api,
		auth:     auth,
		events:   NewBroadcaster(),
		retryCfg: retry.DefaultConfig(),
		now:      time.Now,
	}
}

// SetRetryConfig replaces the backoff policy for the best-effort email
// lookup. Call before the manager is in use.
func (m *Manager) SetRetryConfig(cfg retry.Config) {
	m.retryCfg = cfg
}

// Events returns the auth-change broadcaster for consumers to subscribe to.
func (m *Manager) Events() *Broadcaster {
	return m.events
}

// State reports the current state. Outside an in-flight login it is
// derived from the persisted credential.
func (m *Manager) State(ctx context.Context) State {
	m.mu.Lock()
	inFlight := m.authenticating
	m.mu.Unlock()
	if inFlight {
		return StateAuthenticating
	}

	cred, err := m.store.LoadCredential(ctx)
	if err == nil && cred.Valid(m.now()) {
		return StateAuthenticated
	}
	return StateUnauthenticated
}

// Login runs the interactive authorization flow and persists the
// resulting credential. On any failure the session stays (or becomes)
// unauthenticated and ErrAuthenticationFailed is returned.
func (m *Manager) Login(ctx context.Context) (Status, error) {
	m.mu.Lock()
	if m.authenticating {
		m.mu.Unlock()
		return Status{}, fmt.Errorf("%w: another login is in progress", ErrAuthenticationFailed)
	}
	m.authenticating = true
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.authenticating = false
		m.mu.Unlock()
	}()

	grant, err := m.auth.Authorize(ctx)
	if err != nil {
		return Status{}, fmt.Errorf("%w: %v", ErrAuthenticationFailed, err)
	}

	email := m.resolveEmail(ctx, grant.Token)

	cred := &storage.Credential{
		Token:        grant.Token,
		ExpiresAt:    grant.ExpiresAt,
		AccountEmail: email,
	}
	if err := m.store.SaveCredential(ctx, cred); err != nil {
		return Status{}, fmt.Errorf("%w: persist credential: %v", ErrAuthenticationFailed, err)
	}

	log.Printf("session: signed in as %s (token expires %s)", email, grant.ExpiresAt.Format(time.RFC3339))
	m.events.Send(AuthEvent{Authenticated: true, Email: email, Reason: ReasonLogin})

	return Status{Authenticated: true, Email: email}, nil
}

// resolveEmail fetches the account email, best effort. Failures fall
// back to the previously stored identity, then to the configured
// default; they never fail the login.
func (m *Manager) resolveEmail(ctx context.Context, token string) string {
	var email string
	err := retry.Do(ctx, m.retryCfg, emailErrorClassifier, func(ctx context.Context) error {
		var err error
		email, err = m.api.FetchAccountEmail(ctx, token)
		return err
	})
	if err == nil && email != "" {
		return email
	}
	if err != nil {
		log.Printf("session: could not resolve account email: %v", err)
	}

	if prev, loadErr := m.store.LoadCredential(ctx); loadErr == nil && prev.AccountEmail != "" {
		return prev.AccountEmail
	}
	return m.FallbackEmail
}

// emailErrorClassifier avoids retrying a rejected token; a 401 will not
// heal on its own.
func emailErrorClassifier(err error) bool {
	if errors.Is(err, youtube.ErrUnauthorized) {
		return false
	}
	return retry.IsRetryable(err)
}

// Logout clears the credential and the video cache. It always succeeds:
// there is nothing a caller could do about a store error beyond what is
// logged here.
func (m *Manager) Logout(ctx context.Context) {
	m.purge(ctx)
	m.events.Send(AuthEvent{Authenticated: false, Reason: ReasonLogout})
	log.Printf("session: signed out")
}

// CheckStatus reports whether a valid credential exists. An expired or
// absent credential makes this the point where stale state is purged;
// expiry is only ever discovered here, never pushed.
func (m *Manager) CheckStatus(ctx context.Context) Status {
	cred, err := m.store.LoadCredential(ctx)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			log.Printf("session: load credential: %v", err)
		}
		return Status{}
	}

	if !cred.Valid(m.now()) {
		log.Printf("session: token expired, purging credential")
		m.purge(ctx)
		m.events.Send(AuthEvent{Authenticated: false, Reason: ReasonTokenExpired})
		return Status{}
	}

	return Status{Authenticated: true, Email: cred.AccountEmail}
}

// Token returns the stored bearer token if it is still locally valid.
func (m *Manager) Token(ctx context.Context) (string, error) {
	cred, err := m.store.LoadCredential(ctx)
	if err != nil || !cred.Valid(m.now()) {
		return "", ErrNotAuthenticated
	}
	return cred.Token, nil
}

// Invalidate handles a remote token rejection: the credential looked
// valid locally but the API said otherwise. The purge matches a logout
// and interested consumers are notified asynchronously instead of the
// rejection surfacing through unrelated call chains.
func (m *Manager) Invalidate(ctx context.Context, reason string) {
	log.Printf("session: credential invalidated (%s)", reason)
	m.purge(ctx)
	m.events.Send(AuthEvent{Authenticated: false, Reason: reason})
}

// purge drops the credential and the cached videos. Liked-video data for
// a signed-out account has no reason to stick around.
func (m *Manager) purge(ctx context.Context) {
	if err := m.store.ClearCredential(ctx); err != nil {
		log.Printf("session: clear credential: %v", err)
	}
	if err := m.store.ClearCache(ctx); err != nil {
		log.Printf("session: clear cache: %v", err)
	}
}
