package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"likevault/config"
	httpx "likevault/http"
	"likevault/internal/retry"
	"likevault/server"
	"likevault/session"
	"likevault/storage"
	"likevault/syncer"
	"likevault/youtube"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "serve":
		cmdServe(args)
	case "login":
		cmdLogin(args)
	case "logout":
		cmdLogout(args)
	case "status":
		cmdStatus(args)
	case "fetch":
		cmdFetch(args)
	case "more":
		cmdMore(args)
	case "list":
		cmdList(args)
	case "delete":
		cmdDelete(args)
	case "clear":
		cmdClear(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown command %q\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `likevault - local vault for your YouTube liked videos

Usage:
  likevault serve                 Run the HTTP API daemon
  likevault login                 Sign in with Google (opens a browser)
  likevault logout                Sign out and clear the vault
  likevault status                Show authentication status
  likevault fetch                 Fetch the first page of liked videos
  likevault more [--cursor tok]   Fetch the next page into the vault
  likevault list                  List the videos in the vault
  likevault delete <id> [id...]   Remove videos from the vault
  likevault clear                 Empty the vault
  likevault help                  Show this help message

Deletes are local only; they never remove the like on YouTube.

For help on specific command: likevault <command> -h
`)
}

// app bundles the wired components a command works against.
type app struct {
	cfg      *config.Config
	store    *storage.JSONStore
	sessions *session.Manager
	coord    *syncer.Coordinator
	server   *server.Server
}

func buildApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.StorePath), 0o700); err != nil {
		return nil, fmt.Errorf("create state directory: %w", err)
	}
	store, err := storage.NewJSONStore(cfg.StorePath)
	if err != nil {
		return nil, fmt.Errorf("open state file: %w", err)
	}

	hc := httpx.New(&httpx.Config{
		Timeout:           cfg.RequestTimeout,
		RequestsPerSecond: cfg.RequestsPerSecond,
		Burst:             cfg.RequestBurst,
	})

	yt, err := youtube.NewClient(hc, &youtube.Config{PageSize: cfg.PageSize})
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("create API client: %w", err)
	}

	flow := &session.WebAuthFlow{
		ClientID:     cfg.OAuthClientID,
		ClientSecret: cfg.OAuthClientSecret,
		ListenAddr:   cfg.OAuthListenAddr,
		Scopes:       []string{youtube.ScopeYouTubeReadonly, youtube.ScopeUserinfoEmail},
	}

	sessions := session.NewManager(store, yt, flow)
	sessions.FallbackEmail = cfg.FallbackEmail
	sessions.SetRetryConfig(retry.Config{
		MaxRetries:     cfg.MaxRetries,
		InitialBackoff: cfg.InitialBackoff,
		MaxBackoff:     cfg.MaxBackoff,
		Multiplier:     cfg.BackoffMultiplier,
		JitterFraction: 0.2,
	})

	coord := syncer.New(store, yt, sessions)

	return &app{
		cfg:      cfg,
		store:    store,
		sessions: sessions,
		coord:    coord,
		server:   server.New(sessions, coord),
	}, nil
}

func mustBuildApp() *app {
	a, err := buildApp()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	return a
}

func (a *app) close() {
	if err := a.store.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: close state file: %v\n", err)
	}
}

func cmdServe(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	addr := fs.String("addr", "", "Listen address (overrides config)")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: likevault serve [flags]\n\nFlags:\n")
		fs.PrintDefaults()
	}
	fs.Parse(args)

	a := mustBuildApp()
	defer a.close()

	listenAddr := a.cfg.ListenAddr
	if *addr != "" {
		listenAddr = *addr
	}

	if err := a.server.ListenAndServe(listenAddr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func cmdLogin(args []string) {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	timeout := fs.Duration("timeout", 3*time.Minute, "How long to wait for the browser consent")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: likevault login [flags]\n\nFlags:\n")
		fs.PrintDefaults()
	}
	fs.Parse(args)

	a := mustBuildApp()
	defer a.close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	fmt.Fprintln(os.Stderr, "Opening browser for Google sign-in...")
	status, err := a.sessions.Login(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: login failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Signed in as %s\n", status.Email)
}

func cmdLogout(args []string) {
	fs := flag.NewFlagSet("logout", flag.ExitOnError)
	fs.Parse(args)

	a := mustBuildApp()
	defer a.close()

	a.sessions.Logout(context.Background())
	fmt.Println("Signed out.")
}

func cmdStatus(args []string) {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	fs.Parse(args)

	a := mustBuildApp()
	defer a.close()

	status := a.sessions.CheckStatus(context.Background())
	if !status.Authenticated {
		fmt.Println("Not signed in.")
		return
	}
	fmt.Printf("Signed in as %s\n", status.Email)

	cache, err := a.coord.StoredVideos(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: read vault: %v\n", err)
		return
	}
	if len(cache.Items) > 0 {
		fmt.Printf("Vault: %d of %d videos, fetched %s\n",
			len(cache.Items), cache.TotalResults, cache.FetchedAt.Format(time.RFC3339))
	}
}

func cmdFetch(args []string) {
	fs := flag.NewFlagSet("fetch", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: likevault fetch\n\nReplaces the vault with the first page of liked videos.\n")
	}
	fs.Parse(args)

	a := mustBuildApp()
	defer a.close()

	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.RequestTimeout+5*time.Second)
	defer cancel()

	fmt.Fprintln(os.Stderr, "Fetching liked videos...")
	cache, err := a.coord.FetchFirst(ctx)
	if err != nil {
		exitFetchError(err)
	}
	printCache(cache)
}

func cmdMore(args []string) {
	fs := flag.NewFlagSet("more", flag.ExitOnError)
	cursor := fs.String("cursor", "", "Page cursor (default: the vault's stored cursor)")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: likevault more [flags]\n\nFlags:\n")
		fs.PrintDefaults()
	}
	fs.Parse(args)

	a := mustBuildApp()
	defer a.close()

	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.RequestTimeout+5*time.Second)
	defer cancel()

	result, err := a.coord.FetchNext(ctx, *cursor)
	if err != nil {
		exitFetchError(err)
	}
	if len(result.NewItems) == 0 && result.Cache.NextPageToken == "" {
		fmt.Fprintln(os.Stderr, "No more pages.")
	}
	fmt.Fprintf(os.Stderr, "Added %d videos.\n", len(result.NewItems))
	printCache(result.Cache)
}

func cmdList(args []string) {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	fs.Parse(args)

	a := mustBuildApp()
	defer a.close()

	cache, err := a.coord.StoredVideos(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if len(cache.Items) == 0 {
		fmt.Println("Vault is empty.")
		return
	}
	printCache(cache)
}

func cmdDelete(args []string) {
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: likevault delete <video-id> [video-id...]\n")
	}
	fs.Parse(args)

	ids := fs.Args()
	if len(ids) == 0 {
		fmt.Fprintf(os.Stderr, "Error: missing video-id\n")
		fs.Usage()
		os.Exit(1)
	}

	a := mustBuildApp()
	defer a.close()

	if err := a.coord.DeleteByIDs(context.Background(), ids); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Removed %d videos from the vault.\n", len(ids))
}

func cmdClear(args []string) {
	fs := flag.NewFlagSet("clear", flag.ExitOnError)
	fs.Parse(args)

	a := mustBuildApp()
	defer a.close()

	if err := a.coord.DeleteAll(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("Vault cleared.")
}

func exitFetchError(err error) {
	if errors.Is(err, syncer.ErrNotAuthenticated) {
		fmt.Fprintln(os.Stderr, "Error: not signed in. Run `likevault login` first.")
	} else {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	os.Exit(1)
}

func printCache(cache *storage.VideoCache) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "VIDEO ID\tTITLE\tCHANNEL\tDURATION\tPUBLISHED")
	for _, v := range cache.Items {
		published := ""
		if !v.PublishedAt.IsZero() {
			published = v.PublishedAt.Format("2006-01-02")
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			v.ID,
			truncate(v.Title, 50),
			truncate(v.ChannelName, 25),
			v.DurationISO,
			published,
		)
	}
	w.Flush()

	fmt.Fprintf(os.Stderr, "\nVault: %d of %d videos", len(cache.Items), cache.TotalResults)
	if cache.NextPageToken != "" {
		fmt.Fprintf(os.Stderr, " (more available, run `likevault more`)")
	}
	fmt.Fprintln(os.Stderr)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
