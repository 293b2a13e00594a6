package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"likevault/storage"
)

// mockStore implements storage.Store in memory.
type mockStore struct {
	cred  *storage.Credential
	cache *storage.VideoCache

	credClears  int
	cacheClears int
	saveErr     error
}

func newMockStore() *mockStore {
	return &mockStore{cache: storage.NewVideoCache(time.Now())}
}

func (m *mockStore) LoadCredential(ctx context.Context) (*storage.Credential, error) {
	if m.cred == nil {
		return nil, storage.ErrNotFound
	}
	cred := *m.cred
	return &cred, nil
}

func (m *mockStore) SaveCredential(ctx context.Context, cred *storage.Credential) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	copied := *cred
	m.cred = &copied
	return nil
}

func (m *mockStore) ClearCredential(ctx context.Context) error {
	m.cred = nil
	m.credClears++
	return nil
}

func (m *mockStore) LoadCache(ctx context.Context) (*storage.VideoCache, error) {
	return m.cache, nil
}

func (m *mockStore) ReplaceCache(ctx context.Context, items []storage.VideoRecord, nextPageToken string, totalResults int64) (*storage.VideoCache, error) {
	m.cache = &storage.VideoCache{Items: items, NextPageToken: nextPageToken, TotalResults: totalResults, FetchedAt: time.Now()}
	return m.cache, nil
}

func (m *mockStore) AppendVideos(ctx context.Context, items []storage.VideoRecord, nextPageToken string, totalResults int64) ([]storage.VideoRecord, *storage.VideoCache, error) {
	m.cache.Items = append(m.cache.Items, items...)
	m.cache.NextPageToken = nextPageToken
	m.cache.TotalResults = totalResults
	return items, m.cache, nil
}

func (m *mockStore) RemoveVideos(ctx context.Context, ids []string) (*storage.VideoCache, error) {
	return m.cache, nil
}

func (m *mockStore) ClearCache(ctx context.Context) error {
	m.cache = storage.NewVideoCache(time.Now())
	m.cacheClears++
	return nil
}

func (m *mockStore) Close() error { return nil }

// mockAuthorizer returns a scripted grant.
type mockAuthorizer struct {
	grant *Grant
	err   error
	calls int
}

func (a *mockAuthorizer) Authorize(ctx context.Context) (*Grant, error) {
	a.calls++
	return a.grant, a.err
}

// mockEmailFetcher returns a scripted email.
type mockEmailFetcher struct {
	email string
	err   error
	calls int
}

func (f *mockEmailFetcher) FetchAccountEmail(ctx context.Context, token string) (string, error) {
	f.calls++
	return f.email, f.err
}

func newTestManager(store *mockStore, auth *mockAuthorizer, api *mockEmailFetcher) *Manager {
	m := NewManager(store, api, auth)
	m.retryCfg.MaxRetries = 0
	return m
}

func TestLogin_Success(t *testing.T) {
	store := newMockStore()
	auth := &mockAuthorizer{grant: &Grant{Token: "abc", ExpiresAt: time.Now().Add(time.Hour)}}
	api := &mockEmailFetcher{email: "someone@example.com"}
	m := newTestManager(store, auth, api)

	events := m.Events().Subscribe()
	defer m.Events().Unsubscribe(events)

	status, err := m.Login(context.Background())
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if !status.Authenticated || status.Email != "someone@example.com" {
		t.Errorf("Login() status = %+v", status)
	}
	if store.cred == nil || store.cred.Token != "abc" {
		t.Errorf("credential not persisted: %+v", store.cred)
	}

	select {
	case ev := <-events:
		if !ev.Authenticated || ev.Reason != ReasonLogin {
			t.Errorf("event = %+v, want authenticated login event", ev)
		}
	default:
		t.Error("no auth event broadcast on login")
	}
}

func TestLogin_EmailFailureFallsBack(t *testing.T) {
	store := newMockStore()
	auth := &mockAuthorizer{grant: &Grant{Token: "abc", ExpiresAt: time.Now().Add(time.Hour)}}
	api := &mockEmailFetcher{err: errors.New("userinfo down")}
	m := newTestManager(store, auth, api)
	m.FallbackEmail = "fallback@example.com"

	status, err := m.Login(context.Background())
	if err != nil {
		t.Fatalf("Login() error = %v, want success despite email failure", err)
	}
	if status.Email != "fallback@example.com" {
		t.Errorf("status.Email = %q, want fallback", status.Email)
	}
}

func TestLogin_AuthorizerFailure(t *testing.T) {
	store := newMockStore()
	auth := &mockAuthorizer{err: errors.New("user canceled")}
	m := newTestManager(store, auth, &mockEmailFetcher{})

	_, err := m.Login(context.Background())
	if !errors.Is(err, ErrAuthenticationFailed) {
		t.Fatalf("Login() error = %v, want ErrAuthenticationFailed", err)
	}
	if store.cred != nil {
		t.Error("credential persisted after failed login")
	}
	if got := m.State(context.Background()); got != StateUnauthenticated {
		t.Errorf("State() = %v, want unauthenticated", got)
	}
}

func TestLogin_PersistFailure(t *testing.T) {
	store := newMockStore()
	store.saveErr = errors.New("disk full")
	auth := &mockAuthorizer{grant: &Grant{Token: "abc", ExpiresAt: time.Now().Add(time.Hour)}}
	m := newTestManager(store, auth, &mockEmailFetcher{email: "someone@example.com"})

	_, err := m.Login(context.Background())
	if !errors.Is(err, ErrAuthenticationFailed) {
		t.Errorf("Login() error = %v, want ErrAuthenticationFailed", err)
	}
}

func TestCheckStatus_Valid(t *testing.T) {
	store := newMockStore()
	store.cred = &storage.Credential{
		Token:        "abc",
		ExpiresAt:    time.Now().Add(time.Hour),
		AccountEmail: "someone@example.com",
	}
	m := newTestManager(store, &mockAuthorizer{}, &mockEmailFetcher{})

	status := m.CheckStatus(context.Background())
	if !status.Authenticated || status.Email != "someone@example.com" {
		t.Errorf("CheckStatus() = %+v", status)
	}
}

func TestCheckStatus_ExpiredPurges(t *testing.T) {
	store := newMockStore()
	store.cred = &storage.Credential{Token: "abc", ExpiresAt: time.Now().Add(-time.Minute)}
	store.cache, _ = store.ReplaceCache(context.Background(), []storage.VideoRecord{{ID: "v1"}}, "", 1)
	api := &mockEmailFetcher{}
	m := newTestManager(store, &mockAuthorizer{}, api)

	events := m.Events().Subscribe()
	defer m.Events().Unsubscribe(events)

	status := m.CheckStatus(context.Background())
	if status.Authenticated {
		t.Error("CheckStatus() = authenticated for expired credential")
	}
	if store.cred != nil {
		t.Error("expired credential not purged")
	}
	if len(store.cache.Items) != 0 {
		t.Error("cache not purged with expired credential")
	}

	select {
	case ev := <-events:
		if ev.Authenticated || ev.Reason != ReasonTokenExpired {
			t.Errorf("event = %+v, want token_expired", ev)
		}
	default:
		t.Error("no auth event broadcast on expiry")
	}

	// Second check: still unauthenticated, and nothing contacted the remote.
	status = m.CheckStatus(context.Background())
	if status.Authenticated {
		t.Error("second CheckStatus() = authenticated")
	}
	if api.calls != 0 {
		t.Errorf("CheckStatus contacted the remote %d times, want 0", api.calls)
	}
}

func TestLogout_ClearsEverything(t *testing.T) {
	store := newMockStore()
	store.cred = &storage.Credential{Token: "abc", ExpiresAt: time.Now().Add(time.Hour)}
	m := newTestManager(store, &mockAuthorizer{}, &mockEmailFetcher{})

	events := m.Events().Subscribe()
	defer m.Events().Unsubscribe(events)

	m.Logout(context.Background())

	if store.cred != nil {
		t.Error("credential survived logout")
	}
	if store.cacheClears == 0 {
		t.Error("cache not cleared on logout")
	}

	select {
	case ev := <-events:
		if ev.Authenticated || ev.Reason != ReasonLogout {
			t.Errorf("event = %+v, want logout event", ev)
		}
	default:
		t.Error("no auth event broadcast on logout")
	}
}

func TestToken(t *testing.T) {
	store := newMockStore()
	m := newTestManager(store, &mockAuthorizer{}, &mockEmailFetcher{})

	if _, err := m.Token(context.Background()); !errors.Is(err, ErrNotAuthenticated) {
		t.Errorf("Token() with no credential error = %v, want ErrNotAuthenticated", err)
	}

	store.cred = &storage.Credential{Token: "abc", ExpiresAt: time.Now().Add(time.Hour)}
	token, err := m.Token(context.Background())
	if err != nil {
		t.Fatalf("Token() error = %v", err)
	}
	if token != "abc" {
		t.Errorf("Token() = %q, want abc", token)
	}

	store.cred.ExpiresAt = time.Now().Add(-time.Minute)
	if _, err := m.Token(context.Background()); !errors.Is(err, ErrNotAuthenticated) {
		t.Errorf("Token() with expired credential error = %v, want ErrNotAuthenticated", err)
	}
}

func TestInvalidate_Broadcasts(t *testing.T) {
	store := newMockStore()
	store.cred = &storage.Credential{Token: "abc", ExpiresAt: time.Now().Add(time.Hour)}
	m := newTestManager(store, &mockAuthorizer{}, &mockEmailFetcher{})

	events := m.Events().Subscribe()
	defer m.Events().Unsubscribe(events)

	m.Invalidate(context.Background(), ReasonTokenExpired)

	if store.cred != nil {
		t.Error("credential survived Invalidate()")
	}
	select {
	case ev := <-events:
		if ev.Reason != ReasonTokenExpired {
			t.Errorf("event reason = %q, want token_expired", ev.Reason)
		}
	default:
		t.Error("no auth event broadcast on Invalidate()")
	}
}

func TestState(t *testing.T) {
	store := newMockStore()
	m := newTestManager(store, &mockAuthorizer{}, &mockEmailFetcher{})
	ctx := context.Background()

	if got := m.State(ctx); got != StateUnauthenticated {
		t.Errorf("State() = %v, want unauthenticated", got)
	}

	store.cred = &storage.Credential{Token: "abc", ExpiresAt: time.Now().Add(time.Hour)}
	if got := m.State(ctx); got != StateAuthenticated {
		t.Errorf("State() = %v, want authenticated", got)
	}
}
