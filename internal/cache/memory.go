package cache

import (
	"context"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// MemoryTier is the fast in-process tier. Entries older than the TTL are
// treated as misses and evicted when read; there is no background sweep.
type MemoryTier struct {
	items *lru.Cache[string, entry]
	now   func() time.Time
	ttl   time.Duration
}

// NewMemoryTier creates an LRU-bounded memory tier holding at most size entries.
func NewMemoryTier(size int, ttl time.Duration) (*MemoryTier, error) {
	if size <= 0 {
		return nil, ErrInvalidSize
	}
	if ttl <= 0 {
		return nil, ErrInvalidTTL
	}

	items, err := lru.New[string, entry](size)
	if err != nil {
		return nil, err
	}

	return &MemoryTier{
		items: items,
		ttl:   ttl,
		now:   time.Now,
	}, nil
}

func (m *MemoryTier) Name() string { return "memory" }

func (m *MemoryTier) Get(_ context.Context, key string) (Payload, bool, error) {
	if key == "" {
		return Payload{}, false, ErrEmptyKey
	}

	e, ok := m.items.Get(key)
	if !ok {
		return Payload{}, false, nil
	}
	if m.now().Sub(e.WrittenAt) > m.ttl {
		m.items.Remove(key)
		return Payload{}, false, nil
	}
	return e.Payload, true, nil
}

func (m *MemoryTier) Set(_ context.Context, key string, p Payload) error {
	if key == "" {
		return ErrEmptyKey
	}
	m.items.Add(key, entry{Payload: p, WrittenAt: m.now()})
	return nil
}

func (m *MemoryTier) Delete(_ context.Context, key string) error {
	if key == "" {
		return ErrEmptyKey
	}
	m.items.Remove(key)
	return nil
}

func (m *MemoryTier) Flush(_ context.Context) error {
	m.items.Purge()
	return nil
}

// Available is always true: the memory tier has no external dependency.
func (m *MemoryTier) Available(_ context.Context) bool { return true }

// Len returns the number of entries currently held, expired ones included.
func (m *MemoryTier) Len() int { return m.items.Len() }
