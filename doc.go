// Package likevault keeps a local, browsable vault of the videos a
// YouTube account has liked.
//
// It signs the user in with Google OAuth, pages through the account's
// liked videos via the YouTube Data API, and persists them in a JSON
// vault file. Videos can be removed from the vault without touching the
// like on YouTube.
//
// Overview
//
// The daemon exposes every operation over a small local HTTP API:
//
//   - authenticate: interactive browser sign-in
//   - checkAuth: current session status
//   - getLikedVideos / getMoreLikedVideos: page liked videos into the vault
//   - getStoredVideos: read the vault without network access
//   - deleteVideos / deleteAllVideos: local-only removal
//
// Authentication state changes (login, logout, token expiry) are pushed
// to connected clients as server-sent events on /api/events.
//
// Quick Start
//
// Run the daemon and sign in:
//
//	likevault serve
//	likevault login
//	likevault fetch
//	likevault list
//
// Or drive it from code:
//
//	store, err := storage.NewJSONStore(path)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer store.Close()
//
//	sessions := session.NewManager(store, api, flow)
//	coord := syncer.New(store, api, sessions)
//	cache, err := coord.FetchFirst(ctx)
//
// Configuration
//
// likevault loads settings from multiple sources:
//
//   1. Environment variables (highest priority)
//   2. Config file (likevault.json or ~/.config/likevault/likevault.json)
//   3. Default values (lowest priority)
//
// Environment variables:
//
//   - LIKEVAULT_OAUTH_CLIENT_ID: Google OAuth client id
//   - LIKEVAULT_OAUTH_CLIENT_SECRET: Matching client secret
//   - LIKEVAULT_LISTEN_ADDR: HTTP API listen address
//   - LIKEVAULT_STORE_PATH: Vault file path
//   - LIKEVAULT_PAGE_SIZE: Videos per fetched page (max 50)
//   - LIKEVAULT_REQUEST_TIMEOUT: Outbound request timeout
//   - LIKEVAULT_REQUESTS_PER_SECOND: Outbound API rate cap
//
// Error Handling
//
// All operations return errors that implement standard Go error handling:
//
//	if errors.Is(err, likevault.ErrNotAuthenticated) {
//		fmt.Println("Sign in first")
//	}
//
//	var remoteErr *likevault.RemoteError
//	if errors.As(err, &remoteErr) {
//		fmt.Printf("API returned %d: %s\n", remoteErr.Status, remoteErr.Message)
//	}
//
// Sub-packages
//
// For more control, use the sub-packages directly:
//
//   - session: OAuth flow and session state machine
//   - syncer: page fetching and vault mutation
//   - youtube: YouTube Data API client
//   - storage: persistent vault storage
//   - server: local HTTP API
//   - config: configuration management
//
package likevault
