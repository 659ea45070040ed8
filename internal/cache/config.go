package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config selects and sizes the cache tiers.
type Config struct {
	// KeyPrefix namespaces every key in every tier.
	KeyPrefix string

	// DiskPath is the directory for the disk tier. Empty disables the tier.
	DiskPath string

	// RedisURL is a redis:// URL for the shared tier. Empty disables the tier.
	RedisURL string

	// TTL bounds how long any tier keeps an entry.
	TTL time.Duration

	// MemoryEntries caps the in-process tier.
	MemoryEntries int
}

// DefaultConfig returns a memory-only configuration.
func DefaultConfig() Config {
	return Config{
		KeyPrefix:     DefaultKeyPrefix,
		TTL:           72 * time.Hour,
		MemoryEntries: 1024,
	}
}

// Tiers holds the tiers built from a Config, fastest first. Disk and Redis
// are nil when disabled or unreachable at startup.
type Tiers struct {
	Memory *MemoryTier
	Disk   *DiskTier
	Redis  *RedisTier
	client *redis.Client
}

// BuildTiers constructs the configured tiers. The memory tier is always
// present. A Redis server that cannot be reached is logged and left out
// rather than failing startup; a malformed Redis URL is an error.
func BuildTiers(ctx context.Context, cfg Config) (*Tiers, error) {
	mem, err := NewMemoryTier(cfg.MemoryEntries, cfg.TTL)
	if err != nil {
		return nil, fmt.Errorf("memory tier: %w", err)
	}
	t := &Tiers{Memory: mem}

	if cfg.DiskPath != "" {
		disk, err := NewDiskTier(cfg.DiskPath, cfg.TTL)
		if err != nil {
			return nil, fmt.Errorf("disk tier: %w", err)
		}
		t.Disk = disk
	}

	if cfg.RedisURL != "" {
		if _, err := redis.ParseURL(cfg.RedisURL); err != nil {
			return nil, fmt.Errorf("invalid Redis URL: %w", err)
		}
		client, err := NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil, err
			}
			slog.Warn("[CARD-CACHE] redis unreachable, continuing without redis tier", "error", err)
			return t, nil
		}
		rt, err := NewRedisTier(client, cfg.KeyPrefix, cfg.TTL)
		if err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("redis tier: %w", err)
		}
		t.Redis = rt
		t.client = client
	}

	return t, nil
}

// List returns the non-nil tiers in lookup order.
func (t *Tiers) List() []Tier {
	out := []Tier{t.Memory}
	if t.Disk != nil {
		out = append(out, t.Disk)
	}
	if t.Redis != nil {
		out = append(out, t.Redis)
	}
	return out
}

// Close releases the Redis connection, if any.
func (t *Tiers) Close() error {
	if t.client == nil {
		return nil
	}
	return t.client.Close()
}
