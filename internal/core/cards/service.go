// Package cards resolves link-preview cards: it validates a URL, reads
// through the tiered cache and the persistent store, and on a miss fetches
// the page, extracts its metadata and writes the result back everywhere.
package cards

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/singleflight"
)

const (
	// maxTitleRunes and maxImageLength match the store's column widths.
	maxTitleRunes  = 255
	maxImageLength = 2048

	defaultPerPage = 20
	maxPerPage     = 100
)

// Service resolves cards and exposes the administrative operations over them.
type Service interface {
	// Resolve returns the card for rawURL with non-empty overrides applied on
	// top. The only errors are a *ValidationError for a rejected URL and the
	// context's error if ctx ends first; every other failure degrades to a
	// fallback card titled with the URL's host.
	Resolve(ctx context.Context, rawURL string, overrides Fields) (*Card, error)

	List(ctx context.Context, opts ListOptions) (*ListResult, error)
	Delete(ctx context.Context, urlHash string) error
	Flush(ctx context.Context) error

	// Edit replaces the displayable fields of a stored card without
	// refetching it. The expiry is left as is.
	Edit(ctx context.Context, urlHash string, fields Fields) (*Card, error)

	Status(ctx context.Context) Status
}

type service struct {
	repo         Repository
	cache        Cache
	fetcher      Fetcher
	breaker      *circuitBreaker
	now          func() time.Time
	group        singleflight.Group
	ttl          time.Duration
	allowPrivate bool
}

// ServiceOption configures the service
type ServiceOption func(*service)

// WithClock overrides the time source used for expiry.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *service) {
		s.now = now
		s.breaker.now = now
	}
}

// NewService creates the card service.
func NewService(repo Repository, cache Cache, fetcher Fetcher, cfg Config, opts ...ServiceOption) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("%w: repository", ErrNilDependency)
	}
	if cache == nil {
		return nil, fmt.Errorf("%w: cache", ErrNilDependency)
	}
	if fetcher == nil {
		return nil, fmt.Errorf("%w: fetcher", ErrNilDependency)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	s := &service{
		repo:         repo,
		cache:        cache,
		fetcher:      fetcher,
		breaker:      newCircuitBreaker(),
		now:          time.Now,
		ttl:          cfg.TTL(),
		allowPrivate: cfg.AllowPrivate,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *service) Resolve(ctx context.Context, rawURL string, overrides Fields) (*Card, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cardURL := NormalizeURL(rawURL)
	if _, err := validateURL(cardURL, s.allowPrivate); err != nil {
		return nil, err
	}

	overrides = Fields{
		Title:       Sanitize(overrides.Title),
		Image:       absoluteHTTPURL(Sanitize(overrides.Image), cardURL),
		Description: Sanitize(overrides.Description),
	}
	urlHash := HashURL(cardURL)

	if p, tier, ok := s.cache.Get(ctx, urlHash); ok {
		if p.ExpiresAt.After(s.now()) {
			slog.Debug("[CARDS] cache hit", "url", cardURL, "tier", tier)
			resolveTotal.WithLabelValues(tier).Inc()
			return cardFromPayload(cardURL, urlHash, p).withOverrides(overrides), nil
		}
		// Tier TTLs are fixed; the row's expiry may be sooner.
		s.cache.Delete(ctx, urlHash)
	}

	stored, err := s.repo.Get(ctx, urlHash)
	if err != nil {
		slog.Warn("[CARDS] store lookup failed, continuing without it",
			"url", cardURL,
			"error", err,
		)
	}
	if stored != nil && stored.ExpiresAt.After(s.now()) {
		slog.Debug("[CARDS] store hit, promoting into cache", "url", cardURL)
		s.cache.Set(ctx, urlHash, stored.payload())
		resolveTotal.WithLabelValues(sourceStore).Inc()
		return stored.withOverrides(overrides), nil
	}

	card, err := s.resolveShared(ctx, cardURL, urlHash)
	if err != nil {
		return nil, err
	}
	return card.withOverrides(overrides), nil
}

// resolveShared collapses concurrent misses for the same key into one fetch.
func (s *service) resolveShared(ctx context.Context, cardURL, urlHash string) (*Card, error) {
	ch := s.group.DoChan(urlHash, func() (any, error) {
		return s.fetchAndStore(ctx, cardURL, urlHash)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			// The caller that led the shared fetch went away. Ours has not.
			if isContextError(res.Err) && ctx.Err() == nil {
				return s.fetchAndStore(ctx, cardURL, urlHash)
			}
			return nil, res.Err
		}
		return res.Val.(*Card), nil
	}
}

// fetchAndStore fetches and extracts cardURL, falling back to a host-titled
// card on any fetch failure, and writes the result to the store and cache.
// Nothing is written if ctx ends during the fetch, or if the host's circuit
// is open and the URL was never fetched.
func (s *service) fetchAndStore(ctx context.Context, cardURL, urlHash string) (*Card, error) {
	host := hostOf(cardURL)

	if ok, err := s.breaker.canAttempt(host); !ok {
		slog.Debug("[CARDS] skipping fetch", "url", cardURL, "reason", err)
		fetchTotal.WithLabelValues("skipped").Inc()
		resolveTotal.WithLabelValues(sourceFallback).Inc()
		return s.newCard(cardURL, urlHash, Fields{Title: host}), nil
	}

	start := time.Now()
	body, err := s.fetcher.Fetch(ctx, cardURL)
	fetchDuration.Observe(time.Since(start).Seconds())

	if ctxErr := ctx.Err(); ctxErr != nil {
		fetchTotal.WithLabelValues("canceled").Inc()
		return nil, ctxErr
	}

	source := sourceFetch
	var fields Fields
	if err != nil {
		fetchTotal.WithLabelValues(fetchOutcome(err)).Inc()
		if hostFailure(err) {
			s.breaker.recordFailure(host, err)
		} else if hostAnswered(err) {
			s.breaker.recordSuccess(host)
		}
		slog.Warn("[CARDS] fetch failed, using host fallback",
			"url", cardURL,
			"error", err,
		)
		fields = Fields{Title: host}
		source = sourceFallback
	} else {
		fetchTotal.WithLabelValues("ok").Inc()
		s.breaker.recordSuccess(host)
		fields = Extract(body, cardURL)
	}

	card := s.newCard(cardURL, urlHash, fields)

	if err := s.repo.Upsert(ctx, card); err != nil {
		slog.Warn("[CARDS] failed to persist card",
			"url", cardURL,
			"error", err,
		)
	}
	if !s.cache.Set(ctx, urlHash, card.payload()) {
		slog.Debug("[CARDS] card not cached, no tier accepted it", "url", cardURL)
	}

	resolveTotal.WithLabelValues(source).Inc()
	return card, nil
}

func (s *service) newCard(cardURL, urlHash string, f Fields) *Card {
	return &Card{
		URL:         cardURL,
		URLHash:     urlHash,
		Title:       truncateRunes(f.Title, maxTitleRunes),
		Image:       boundedImage(f.Image),
		Description: f.Description,
		ExpiresAt:   s.now().Add(s.ttl).UTC(),
	}
}

func (s *service) List(ctx context.Context, opts ListOptions) (*ListResult, error) {
	opts = normalizeListOptions(opts)

	items, total, err := s.repo.List(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list cards: %w", err)
	}
	if items == nil {
		items = []*Card{}
	}
	return &ListResult{
		Items:   items,
		Total:   total,
		Page:    opts.Page,
		PerPage: opts.PerPage,
	}, nil
}

func normalizeListOptions(opts ListOptions) ListOptions {
	opts.Search = strings.TrimSpace(opts.Search)
	if opts.Page < 1 {
		opts.Page = 1
	}
	switch {
	case opts.PerPage <= 0:
		opts.PerPage = defaultPerPage
	case opts.PerPage > maxPerPage:
		opts.PerPage = maxPerPage
	}
	return opts
}

func (s *service) Delete(ctx context.Context, urlHash string) error {
	if !IsURLHash(urlHash) {
		return ErrInvalidHash
	}

	err := s.repo.Delete(ctx, urlHash)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("failed to delete card: %w", err)
	}
	// Tiers may still hold the entry even when the store row is gone.
	s.cache.Delete(ctx, urlHash)
	return err
}

func (s *service) Flush(ctx context.Context) error {
	storeErr := s.repo.Truncate(ctx)
	if !s.cache.Flush(ctx) {
		slog.Warn("[CARDS] cache flush incomplete")
	}
	if storeErr != nil {
		return fmt.Errorf("failed to truncate card store: %w", storeErr)
	}
	slog.Info("[CARDS] all cards flushed")
	return nil
}

func (s *service) Edit(ctx context.Context, urlHash string, fields Fields) (*Card, error) {
	if !IsURLHash(urlHash) {
		return nil, ErrInvalidHash
	}

	image := Sanitize(fields.Image)
	if image != "" && absoluteHTTPURL(image, "") == "" {
		return nil, &ValidationError{URL: image, Reason: "image must be an absolute http(s) URL"}
	}
	fields = Fields{
		Title:       truncateRunes(Sanitize(fields.Title), maxTitleRunes),
		Image:       boundedImage(image),
		Description: Sanitize(fields.Description),
	}

	card, err := s.repo.UpdateFields(ctx, urlHash, fields)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update card: %w", err)
	}

	if card.ExpiresAt.After(s.now()) {
		s.cache.Set(ctx, urlHash, card.payload())
	} else {
		s.cache.Delete(ctx, urlHash)
	}
	return card, nil
}

func (s *service) Status(ctx context.Context) Status {
	st := Status{
		Cache:    s.cache.Status(ctx),
		Breakers: s.breaker.stats(),
		Store:    StoreStatus{Available: true},
	}
	if err := s.repo.Ping(ctx); err != nil {
		st.Store = StoreStatus{Available: false, Error: err.Error()}
	}
	return st
}

func fetchOutcome(err error) string {
	var fe *FetchError
	if errors.As(err, &fe) {
		return string(fe.Reason)
	}
	return string(ReasonNetwork)
}

func isContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return strings.TrimSpace(string([]rune(s)[:n]))
}

func boundedImage(image string) string {
	if len(image) > maxImageLength {
		return ""
	}
	return image
}
