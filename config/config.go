// Package config manages application configuration.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Config holds all application configuration for the likevault daemon.
type Config struct {
	// OAuthClientID is the Google OAuth client id used for the consent flow
	OAuthClientID string `json:"oauth_client_id"`
	// OAuthClientSecret is the matching client secret; may be empty for
	// clients registered without one
	OAuthClientSecret string `json:"oauth_client_secret"`
	// OAuthListenAddr is the loopback address the consent redirect lands on
	// (default: "127.0.0.1:0", a random free port)
	OAuthListenAddr string `json:"oauth_listen_addr"`
	// FallbackEmail is shown when the account email cannot be resolved
	FallbackEmail string `json:"fallback_email"`

	// ListenAddr is the address the HTTP API binds to
	ListenAddr string `json:"listen_addr"`
	// StorePath is the path of the JSON state file
	StorePath string `json:"store_path"`

	// PageSize is the number of videos requested per page (max 50)
	PageSize int64 `json:"page_size"`
	// RequestTimeout bounds each outbound API request
	RequestTimeout time.Duration `json:"request_timeout"`
	// RequestsPerSecond throttles outbound API traffic (0 = unlimited)
	RequestsPerSecond float64 `json:"requests_per_second"`
	// RequestBurst is the throttle's burst allowance
	RequestBurst int `json:"request_burst"`

	// MaxRetries is the maximum number of retries for the best-effort
	// account email lookup
	MaxRetries int `json:"max_retries"`
	// InitialBackoff is the initial backoff duration for retries
	InitialBackoff time.Duration `json:"initial_backoff"`
	// MaxBackoff is the maximum backoff duration for retries
	MaxBackoff time.Duration `json:"max_backoff"`
	// BackoffMultiplier is the multiplier for exponential backoff (must be > 1)
	BackoffMultiplier float64 `json:"backoff_multiplier"`
}

// DefaultConfig returns configuration with safe defaults.
func DefaultConfig() *Config {
	return &Config{
		OAuthListenAddr:   "127.0.0.1:0",
		ListenAddr:        "127.0.0.1:8737",
		StorePath:         defaultStorePath(),
		PageSize:          50,
		RequestTimeout:    30 * time.Second,
		RequestsPerSecond: 2.0,
		RequestBurst:      4,
		MaxRetries:        2,
		InitialBackoff:    500 * time.Millisecond,
		MaxBackoff:        10 * time.Second,
		BackoffMultiplier: 2.0,
	}
}

func defaultStorePath() string {
	return filepath.Join(os.Getenv("HOME"), ".config", "likevault", "state.json")
}

// Load loads configuration from environment variables, config file, and applies defaults.
// Priority: env vars > config file > defaults
func Load() (*Config, error) {
	cfg := DefaultConfig()

	// Try to load from config file
	if err := cfg.loadFromFile(); err != nil {
		// Config file is optional
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	// Override with environment variables
	cfg.loadFromEnv()

	// Validate
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadFromFile attempts to load config from likevault.json in current directory or home directory.
func (c *Config) loadFromFile() error {
	paths := []string{
		"likevault.json",
		filepath.Join(os.Getenv("HOME"), ".config", "likevault", "likevault.json"),
	}

	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return err
		}

		if err := json.Unmarshal(data, c); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
		return nil
	}

	return os.ErrNotExist
}

// loadFromEnv overrides config with environment variables.
func (c *Config) loadFromEnv() {
	if v := os.Getenv("LIKEVAULT_OAUTH_CLIENT_ID"); v != "" {
		c.OAuthClientID = v
	}
	if v := os.Getenv("LIKEVAULT_OAUTH_CLIENT_SECRET"); v != "" {
		c.OAuthClientSecret = v
	}
	if v := os.Getenv("LIKEVAULT_OAUTH_LISTEN_ADDR"); v != "" {
		c.OAuthListenAddr = v
	}
	if v := os.Getenv("LIKEVAULT_FALLBACK_EMAIL"); v != "" {
		c.FallbackEmail = v
	}
	if v := os.Getenv("LIKEVAULT_LISTEN_ADDR"); v != "" {
		c.ListenAddr = v
	}
	if v := os.Getenv("LIKEVAULT_STORE_PATH"); v != "" {
		c.StorePath = v
	}
	if v := os.Getenv("LIKEVAULT_PAGE_SIZE"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.PageSize = n
		}
	}
	if v := os.Getenv("LIKEVAULT_REQUEST_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.RequestTimeout = d
		}
	}
	if v := os.Getenv("LIKEVAULT_REQUESTS_PER_SECOND"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.RequestsPerSecond = f
		}
	}
	if v := os.Getenv("LIKEVAULT_REQUEST_BURST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.RequestBurst = n
		}
	}
	if v := os.Getenv("LIKEVAULT_MAX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.MaxRetries = n
		}
	}
	if v := os.Getenv("LIKEVAULT_INITIAL_BACKOFF"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.InitialBackoff = d
		}
	}
	if v := os.Getenv("LIKEVAULT_MAX_BACKOFF"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.MaxBackoff = d
		}
	}
}

// Validate checks that configuration values are valid and consistent.
// It returns an error if any configuration value is invalid.
func (c *Config) Validate() error {
	if c.ListenAddr == "" {
		return fmt.Errorf("listen_addr must not be empty")
	}
	if c.StorePath == "" {
		return fmt.Errorf("store_path must not be empty")
	}
	if c.PageSize <= 0 || c.PageSize > 50 {
		return fmt.Errorf("page_size must be between 1 and 50")
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be positive")
	}
	if c.RequestsPerSecond < 0 {
		return fmt.Errorf("requests_per_second must be non-negative")
	}
	if c.RequestBurst < 0 {
		return fmt.Errorf("request_burst must be non-negative")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max_retries must be non-negative")
	}
	if c.InitialBackoff <= 0 {
		return fmt.Errorf("initial_backoff must be positive")
	}
	if c.MaxBackoff < c.InitialBackoff {
		return fmt.Errorf("max_backoff must be >= initial_backoff")
	}
	if c.BackoffMultiplier <= 1 {
		return fmt.Errorf("backoff_multiplier must be > 1")
	}
	return nil
}
