package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/ruteri/fhevm-instance-bootstrap/interfaces"
)

// RedisBackend implements a storage backend using a Redis server.
// Keys are namespaced with a configurable prefix.
type RedisBackend struct {
	client      *redis.Client
	prefix      string
	ttl         time.Duration
	log         *slog.Logger
	locationURI string
}

// NewRedisBackend creates a Redis storage backend from go-redis options.
// A zero ttl stores values without expiry.
func NewRedisBackend(opts *redis.Options, prefix string, ttl time.Duration, log *slog.Logger) (*RedisBackend, error) {
	if opts == nil || opts.Addr == "" {
		return nil, fmt.Errorf("redis address cannot be empty")
	}

	return &RedisBackend{
		client:      redis.NewClient(opts),
		prefix:      prefix,
		ttl:         ttl,
		log:         log,
		locationURI: fmt.Sprintf("redis://%s/%d?prefix=%s", opts.Addr, opts.DB, prefix),
	}, nil
}

// NewRedisBackendFromClient wraps an existing client.
func NewRedisBackendFromClient(client *redis.Client, prefix string, ttl time.Duration, log *slog.Logger) *RedisBackend {
	return &RedisBackend{
		client:      client,
		prefix:      prefix,
		ttl:         ttl,
		log:         log,
		locationURI: fmt.Sprintf("redis://%s?prefix=%s", client.Options().Addr, prefix),
	}
}

// Fetch retrieves data stored under key.
func (b *RedisBackend) Fetch(ctx context.Context, key string) ([]byte, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}

	data, err := b.client.Get(ctx, b.redisKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, interfaces.ErrContentNotFound
	}
	if err != nil {
		b.log.Debug("Failed to read from Redis", slog.String("key", key), "err", err)
		return nil, fmt.Errorf("%w: %v", interfaces.ErrBackendUnavailable, err)
	}

	return data, nil
}

// Store writes data under key.
func (b *RedisBackend) Store(ctx context.Context, key string, data []byte) error {
	if err := validateKey(key); err != nil {
		return err
	}

	if err := b.client.Set(ctx, b.redisKey(key), data, b.ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", interfaces.ErrBackendUnavailable, err)
	}

	b.log.Debug("Stored content in Redis",
		slog.String("key", key),
		slog.Int("size", len(data)))
	return nil
}

// Available pings the Redis server.
func (b *RedisBackend) Available(ctx context.Context) bool {
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := b.client.Ping(pingCtx).Err(); err != nil {
		b.log.Debug("Redis backend unavailable", "err", err)
		return false
	}
	return true
}

// Name returns a unique identifier for this storage backend.
func (b *RedisBackend) Name() string {
	return fmt.Sprintf("redis-%s", b.client.Options().Addr)
}

// LocationURI returns the URI that identifies this storage backend.
func (b *RedisBackend) LocationURI() string {
	return b.locationURI
}

// Close releases the client connections.
func (b *RedisBackend) Close() error {
	return b.client.Close()
}

func (b *RedisBackend) redisKey(key string) string {
	if b.prefix == "" {
		return key
	}
	return b.prefix + ":" + key
}
