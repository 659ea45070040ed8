// Package cache implements the tiered card cache: an ordered list of
// independently optional tiers (in-process LRU, local disk, Redis) consulted
// fastest first, with hits in slower tiers promoted into the faster ones.
package cache

import (
	"context"
	"errors"
	"time"
)

// DefaultKeyPrefix namespaces every key the tiers write.
const DefaultKeyPrefix = "chfm_card_"

var (
	// ErrEmptyKey is returned when a tier is asked to operate on an empty key.
	ErrEmptyKey = errors.New("cache key cannot be empty")
	// ErrInvalidTTL is returned when a tier is constructed with a non-positive TTL.
	ErrInvalidTTL = errors.New("cache TTL must be positive")
	// ErrInvalidSize is returned when the memory tier is given a non-positive size.
	ErrInvalidSize = errors.New("cache size must be positive")
	// ErrInvalidBasePath is returned when the disk tier base path is empty.
	ErrInvalidBasePath = errors.New("cache base path cannot be empty")
	// ErrNilClient is returned when the Redis tier is built without a client.
	ErrNilClient = errors.New("redis client is nil")
)

// Payload is the cached subset of a card.
type Payload struct {
	ExpiresAt   time.Time `json:"expires_at"`
	Title       string    `json:"title"`
	Image       string    `json:"image"`
	Description string    `json:"description"`
}

// entry is what the tiers persist: the payload plus the time it was written,
// which drives each tier's own TTL.
type entry struct {
	WrittenAt time.Time `json:"written_at"`
	Payload   Payload   `json:"payload"`
}

// Tier is one layer of the cache hierarchy.
//
// Get reports a miss as (Payload{}, false, nil); errors are reserved for the
// tier itself failing. Delete of a missing key is not an error. Flush clears
// every key the tier owns, not only expired ones.
type Tier interface {
	Name() string
	Get(ctx context.Context, key string) (Payload, bool, error)
	Set(ctx context.Context, key string, p Payload) error
	Delete(ctx context.Context, key string) error
	Flush(ctx context.Context) error
	Available(ctx context.Context) bool
}
