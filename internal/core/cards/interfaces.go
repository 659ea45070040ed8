package cards

import (
	"context"

	"github.com/a506488043/custom-card/internal/cache"
)

// Repository defines the interface for durable card persistence.
type Repository interface {
	// Get retrieves the card stored under urlHash.
	// Returns nil, nil if not found or expired (not an error condition).
	// Returns error only on database failures.
	Get(ctx context.Context, urlHash string) (*Card, error)

	// Upsert stores card under card.URLHash, replacing any existing row.
	Upsert(ctx context.Context, card *Card) error

	// Delete removes the card stored under urlHash.
	// Returns ErrNotFound if no row existed.
	Delete(ctx context.Context, urlHash string) error

	// List returns one page of cards, expired ones included, and the total
	// number of cards matching opts.Search.
	List(ctx context.Context, opts ListOptions) ([]*Card, int, error)

	// UpdateFields replaces title, image and description of an existing card
	// without touching its expiry. Returns ErrNotFound if no row existed.
	UpdateFields(ctx context.Context, urlHash string, fields Fields) (*Card, error)

	// Truncate removes every stored card.
	Truncate(ctx context.Context) error

	// Ping checks connectivity.
	Ping(ctx context.Context) error
}

// Cache is the tiered cache the service reads through. *cache.Manager implements it.
type Cache interface {
	Get(ctx context.Context, urlHash string) (cache.Payload, string, bool)
	Set(ctx context.Context, urlHash string, p cache.Payload) bool
	Delete(ctx context.Context, urlHash string) bool
	Flush(ctx context.Context) bool
	Status(ctx context.Context) cache.Status
}

// Fetcher retrieves the raw body of a remote page.
type Fetcher interface {
	// Fetch returns the response body or a *FetchError.
	Fetch(ctx context.Context, rawURL string) ([]byte, error)
}
