package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/codeGROOVE-dev/retry"
	"github.com/redis/go-redis/v9"
)

const (
	redisScanCount    = 200
	redisPingTimeout  = 2 * time.Second
	redisConnAttempts = 3
)

// RedisTier is the shared network tier. Entries expire through Redis TTLs,
// so the tier never has to judge age itself.
type RedisTier struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisTier wraps an existing client. prefix restricts Flush to the
// keys this service owns.
func NewRedisTier(client *redis.Client, prefix string, ttl time.Duration) (*RedisTier, error) {
	if client == nil {
		return nil, ErrNilClient
	}
	if ttl <= 0 {
		return nil, ErrInvalidTTL
	}
	return &RedisTier{
		client: client,
		prefix: prefix,
		ttl:    ttl,
	}, nil
}

// NewRedisClient builds a client from a redis:// URL and verifies it with a
// ping, retrying briefly so a Redis that is still starting is not reported down.
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid Redis URL: %w", err)
	}
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second
	opts.PoolSize = 10

	client := redis.NewClient(opts)

	err = retry.Do(
		func() error {
			pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
			defer cancel()
			return client.Ping(pingCtx).Err()
		},
		retry.Context(ctx),
		retry.Attempts(redisConnAttempts),
		retry.Delay(500*time.Millisecond),
		retry.OnRetry(func(n uint, err error) {
			slog.Warn("[CARD-CACHE] redis ping failed, retrying",
				"attempt", n+1,
				"addr", opts.Addr,
				"error", err,
			)
		}),
	)
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	slog.Info("[CARD-CACHE] connected to Redis", "addr", opts.Addr, "db", opts.DB)
	return client, nil
}

func (r *RedisTier) Name() string { return "redis" }

func (r *RedisTier) Get(ctx context.Context, key string) (Payload, bool, error) {
	if key == "" {
		return Payload{}, false, ErrEmptyKey
	}

	data, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return Payload{}, false, nil
	}
	if err != nil {
		return Payload{}, false, err
	}

	var e entry
	if err := json.Unmarshal(data, &e); err != nil {
		return Payload{}, false, fmt.Errorf("failed to decode redis entry: %w", err)
	}
	return e.Payload, true, nil
}

func (r *RedisTier) Set(ctx context.Context, key string, p Payload) error {
	if key == "" {
		return ErrEmptyKey
	}
	data, err := json.Marshal(entry{Payload: p, WrittenAt: time.Now()})
	if err != nil {
		return fmt.Errorf("failed to encode redis entry: %w", err)
	}
	return r.client.Set(ctx, key, data, r.ttl).Err()
}

func (r *RedisTier) Delete(ctx context.Context, key string) error {
	if key == "" {
		return ErrEmptyKey
	}
	return r.client.Del(ctx, key).Err()
}

// Flush deletes every key under the tier's prefix. It never issues FLUSHDB,
// so other data sharing the Redis database survives.
func (r *RedisTier) Flush(ctx context.Context) error {
	iter := r.client.Scan(ctx, 0, r.prefix+"*", redisScanCount).Iterator()

	batch := make([]string, 0, redisScanCount)
	removed := 0
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == redisScanCount {
			if err := r.client.Del(ctx, batch...).Err(); err != nil {
				return err
			}
			removed += len(batch)
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(batch) > 0 {
		if err := r.client.Del(ctx, batch...).Err(); err != nil {
			return err
		}
		removed += len(batch)
	}

	slog.Info("[CARD-CACHE] redis tier flushed", "prefix", r.prefix, "keys_removed", removed)
	return nil
}

func (r *RedisTier) Available(ctx context.Context) bool {
	pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()
	return r.client.Ping(pingCtx).Err() == nil
}
