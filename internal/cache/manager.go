package cache

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

// DefaultRetryInterval is how long a tier that just failed is skipped
// before the manager tries it again.
const DefaultRetryInterval = 30 * time.Second

// tierState pairs a tier with the time until which it is considered down.
type tierState struct {
	tier      Tier
	downUntil atomic.Int64 // unix nanos; zero means up
}

// Manager consults its tiers in order, fastest first.
//
// A hit in tier i is promoted into tiers 0..i-1. Writes, deletes and flushes
// go to every tier and succeed if at least one tier succeeded. A tier that
// errors is skipped for the retry interval instead of failing the operation.
type Manager struct {
	now           func() time.Time
	prefix        string
	tiers         []*tierState
	retryInterval time.Duration
}

// TierStatus describes one tier for status reporting.
type TierStatus struct {
	Name      string `json:"name"`
	Available bool   `json:"available"`
}

// Status reports per-tier availability.
type Status struct {
	Tiers        []TierStatus `json:"tiers"`
	AnyAvailable bool         `json:"any_available"`
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithRetryInterval sets how long a failing tier is skipped.
func WithRetryInterval(d time.Duration) ManagerOption {
	return func(m *Manager) {
		m.retryInterval = d
	}
}

// NewManager builds a manager over tiers, ordered fastest first. Nil tiers
// are ignored so optional tiers can be passed unconditionally. Each tier is
// probed once and its availability logged.
func NewManager(ctx context.Context, prefix string, tiers []Tier, opts ...ManagerOption) *Manager {
	m := &Manager{
		prefix:        prefix,
		retryInterval: DefaultRetryInterval,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}

	for _, t := range tiers {
		if t == nil {
			continue
		}
		m.tiers = append(m.tiers, &tierState{tier: t})
	}

	status := m.Status(ctx)
	attrs := []any{"any_available", status.AnyAvailable}
	for i, ts := range status.Tiers {
		if !ts.Available {
			m.tiers[i].downUntil.Store(m.now().Add(m.retryInterval).UnixNano())
		}
		attrs = append(attrs, ts.Name, ts.Available)
	}
	slog.Info("[CARD-CACHE] cache tiers initialized", attrs...)

	return m
}

// Key returns the namespaced key for a URL hash.
func (m *Manager) Key(urlHash string) string {
	return m.prefix + urlHash
}

func (m *Manager) usable(st *tierState) bool {
	until := st.downUntil.Load()
	return until == 0 || m.now().UnixNano() >= until
}

func (m *Manager) markDown(st *tierState, op string, err error) {
	name := st.tier.Name()
	tierErrors.WithLabelValues(name, op).Inc()
	st.downUntil.Store(m.now().Add(m.retryInterval).UnixNano())
	slog.Warn("[CARD-CACHE] tier operation failed, skipping tier",
		"tier", name,
		"op", op,
		"retry_in", m.retryInterval,
		"error", err,
	)
}

func (m *Manager) markUp(st *tierState) {
	if st.downUntil.Swap(0) != 0 {
		slog.Info("[CARD-CACHE] tier recovered", "tier", st.tier.Name())
	}
}

// Get returns the payload for urlHash and the name of the tier that served it.
func (m *Manager) Get(ctx context.Context, urlHash string) (Payload, string, bool) {
	key := m.Key(urlHash)

	for i, st := range m.tiers {
		if !m.usable(st) {
			continue
		}
		p, ok, err := st.tier.Get(ctx, key)
		if err != nil {
			if ctx.Err() != nil {
				return Payload{}, "", false
			}
			m.markDown(st, "get", err)
			continue
		}
		m.markUp(st)
		if !ok {
			continue
		}

		name := st.tier.Name()
		tierHits.WithLabelValues(name).Inc()
		m.promote(ctx, key, p, i)
		slog.Debug("[CARD-CACHE] cache hit", "tier", name, "key", key)
		return p, name, true
	}

	cacheMisses.Inc()
	return Payload{}, "", false
}

// promote copies p into every usable tier faster than index hit.
func (m *Manager) promote(ctx context.Context, key string, p Payload, hit int) {
	for _, st := range m.tiers[:hit] {
		if !m.usable(st) {
			continue
		}
		if err := st.tier.Set(ctx, key, p); err != nil {
			m.markDown(st, "promote", err)
			continue
		}
		tierPromotions.WithLabelValues(st.tier.Name()).Inc()
	}
}

// Set writes p to every usable tier. It reports true if any tier accepted it.
func (m *Manager) Set(ctx context.Context, urlHash string, p Payload) bool {
	key := m.Key(urlHash)
	ok := false
	for _, st := range m.tiers {
		if !m.usable(st) {
			continue
		}
		if err := st.tier.Set(ctx, key, p); err != nil {
			m.markDown(st, "set", err)
			continue
		}
		m.markUp(st)
		ok = true
	}
	return ok
}

// Delete removes urlHash from every tier. Down tiers are still attempted so a
// stale copy does not outlive an explicit delete.
func (m *Manager) Delete(ctx context.Context, urlHash string) bool {
	key := m.Key(urlHash)
	ok := false
	for _, st := range m.tiers {
		if err := st.tier.Delete(ctx, key); err != nil {
			m.markDown(st, "delete", err)
			continue
		}
		ok = true
	}
	return ok
}

// Flush clears the whole namespace in every tier.
func (m *Manager) Flush(ctx context.Context) bool {
	ok := false
	for _, st := range m.tiers {
		if err := st.tier.Flush(ctx); err != nil {
			m.markDown(st, "flush", err)
			continue
		}
		ok = true
	}
	return ok
}

// Available reports whether any tier is currently usable.
func (m *Manager) Available(ctx context.Context) bool {
	return m.Status(ctx).AnyAvailable
}

// Status probes every tier.
func (m *Manager) Status(ctx context.Context) Status {
	status := Status{Tiers: make([]TierStatus, 0, len(m.tiers))}
	for _, st := range m.tiers {
		available := st.tier.Available(ctx)
		if available {
			m.markUp(st)
		}
		status.Tiers = append(status.Tiers, TierStatus{
			Name:      st.tier.Name(),
			Available: available,
		})
		status.AnyAvailable = status.AnyAvailable || available
	}
	return status
}
