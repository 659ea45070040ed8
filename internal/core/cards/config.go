package cards

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config validation errors
var (
	// ErrInvalidCacheHours is returned when CacheHours is outside 1..720
	ErrInvalidCacheHours = errors.New("CacheHours must be between 1 and 720")
	// ErrInvalidFetchTimeout is returned when FetchTimeout is not positive
	ErrInvalidFetchTimeout = errors.New("FetchTimeout must be positive")
	// ErrInvalidMaxRedirects is returned when MaxRedirects is negative
	ErrInvalidMaxRedirects = errors.New("MaxRedirects cannot be negative")
	// ErrInvalidMaxBodyBytes is returned when MaxBodyBytes is not positive
	ErrInvalidMaxBodyBytes = errors.New("MaxBodyBytes must be positive")
	// ErrMissingUserAgent is returned when UserAgent is empty
	ErrMissingUserAgent = errors.New("UserAgent is required")
)

const (
	// MinCacheHours and MaxCacheHours bound the card retention window.
	MinCacheHours = 1
	MaxCacheHours = 720

	// DefaultUserAgent identifies the fetcher to remote sites.
	DefaultUserAgent = "CardBot/1.0 (+https://github.com/a506488043/custom-card)"
)

// Config holds the configuration for the card resolution engine.
type Config struct {
	// UserAgent is sent with every fetch. It must identify this service
	// rather than impersonate a browser.
	UserAgent string

	// CacheHours is how long a resolved card stays fresh, in hours.
	// It sets both the store's expires_at and the cache tier TTL.
	CacheHours int

	// FetchTimeout bounds one remote fetch, including redirects.
	FetchTimeout time.Duration

	// MaxRedirects is the number of redirect hops followed per fetch.
	MaxRedirects int

	// MaxBodyBytes caps how much of a response is read. Longer bodies are
	// truncated.
	MaxBodyBytes int64

	// AllowPrivate disables the private-address checks in the fetcher.
	// Only for tests and local development.
	AllowPrivate bool
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		UserAgent:    DefaultUserAgent,
		CacheHours:   72,
		FetchTimeout: 10 * time.Second,
		MaxRedirects: 3,
		MaxBodyBytes: 5 << 20,
	}
}

// TTL returns the card retention window.
func (c Config) TTL() time.Duration {
	return time.Duration(c.CacheHours) * time.Hour
}

// ClampCacheHours forces hours into the accepted range.
func ClampCacheHours(hours int) int {
	switch {
	case hours < MinCacheHours:
		return MinCacheHours
	case hours > MaxCacheHours:
		return MaxCacheHours
	default:
		return hours
	}
}

// Validate checks the configuration for invalid values.
func (c Config) Validate() error {
	if c.CacheHours < MinCacheHours || c.CacheHours > MaxCacheHours {
		return fmt.Errorf("%w: got %d", ErrInvalidCacheHours, c.CacheHours)
	}
	if c.FetchTimeout <= 0 {
		return fmt.Errorf("%w: got %v", ErrInvalidFetchTimeout, c.FetchTimeout)
	}
	if c.MaxRedirects < 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidMaxRedirects, c.MaxRedirects)
	}
	if c.MaxBodyBytes <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidMaxBodyBytes, c.MaxBodyBytes)
	}
	if strings.TrimSpace(c.UserAgent) == "" {
		return ErrMissingUserAgent
	}
	return nil
}

// ConfigFromEnv creates a Config from environment variables.
// Uses defaults for any missing or invalid environment variables.
//
// Environment variables:
//   - CARDS_CACHE_HOURS: retention window in hours, clamped to 1..720 (default: 72)
//   - CARDS_FETCH_TIMEOUT_SECONDS: fetch timeout in seconds (default: 10)
//   - CARDS_MAX_REDIRECTS: redirect hops followed (default: 3)
//   - CARDS_MAX_BODY_KB: response read limit in KiB (default: 5120)
//   - CARDS_USER_AGENT: fetcher User-Agent (default: DefaultUserAgent)
func ConfigFromEnv() Config {
	cfg := DefaultConfig()

	if v := os.Getenv("CARDS_CACHE_HOURS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.CacheHours = ClampCacheHours(n)
		} else {
			slog.Warn("[CARDS] invalid CARDS_CACHE_HOURS value, using default",
				"value", v,
				"default", cfg.CacheHours,
				"error", err,
			)
		}
	}

	if v := os.Getenv("CARDS_FETCH_TIMEOUT_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.FetchTimeout = time.Duration(n) * time.Second
		} else {
			slog.Warn("[CARDS] invalid CARDS_FETCH_TIMEOUT_SECONDS value, using default",
				"value", v,
				"default_seconds", int(cfg.FetchTimeout.Seconds()),
				"error", err,
			)
		}
	}

	if v := os.Getenv("CARDS_MAX_REDIRECTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.MaxRedirects = n
		} else {
			slog.Warn("[CARDS] invalid CARDS_MAX_REDIRECTS value, using default",
				"value", v,
				"default", cfg.MaxRedirects,
				"error", err,
			)
		}
	}

	if v := os.Getenv("CARDS_MAX_BODY_KB"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			cfg.MaxBodyBytes = n << 10
		} else {
			slog.Warn("[CARDS] invalid CARDS_MAX_BODY_KB value, using default",
				"value", v,
				"default_kb", cfg.MaxBodyBytes>>10,
				"error", err,
			)
		}
	}

	if v := strings.TrimSpace(os.Getenv("CARDS_USER_AGENT")); v != "" {
		cfg.UserAgent = v
	}

	return cfg
}
