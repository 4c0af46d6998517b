package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/allegro/bigcache/v3"
	"github.com/ruteri/fhevm-instance-bootstrap/interfaces"
)

// DefaultMemoryTTL bounds how long the memory backend keeps a value.
const DefaultMemoryTTL = 24 * time.Hour

const (
	memoryShards     = 16
	memoryMaxEntries = 1024
	memoryEntrySize  = 8 * 1024 // public params for 2048 are ~4 KiB
	memoryHardMaxMB  = 64
)

// MemoryBackend implements a process-local storage backend on BigCache.
// Entries expire after the configured life window.
type MemoryBackend struct {
	cache       *bigcache.BigCache
	ttl         time.Duration
	log         *slog.Logger
	locationURI string
}

// NewMemoryBackend creates a memory backend whose entries live for ttl.
func NewMemoryBackend(ttl time.Duration, log *slog.Logger) (*MemoryBackend, error) {
	if ttl <= 0 {
		ttl = DefaultMemoryTTL
	}

	// one record per ACL address; shard queues are preallocated from
	// MaxEntriesInWindow * MaxEntrySize, so both stay small
	config := bigcache.DefaultConfig(ttl)
	config.Shards = memoryShards
	config.MaxEntriesInWindow = memoryMaxEntries
	config.MaxEntrySize = memoryEntrySize
	config.HardMaxCacheSize = memoryHardMaxMB
	config.CleanWindow = ttl / 2
	config.Verbose = false

	cache, err := bigcache.New(context.Background(), config)
	if err != nil {
		return nil, fmt.Errorf("failed to create BigCache instance: %w", err)
	}

	return &MemoryBackend{
		cache:       cache,
		ttl:         ttl,
		log:         log,
		locationURI: fmt.Sprintf("memory://?ttl=%s", ttl),
	}, nil
}

// Fetch retrieves data stored under key.
func (b *MemoryBackend) Fetch(ctx context.Context, key string) ([]byte, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}

	data, err := b.cache.Get(key)
	if errors.Is(err, bigcache.ErrEntryNotFound) {
		return nil, interfaces.ErrContentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("memory get %s: %w", key, err)
	}
	return data, nil
}

// Store writes data under key.
func (b *MemoryBackend) Store(ctx context.Context, key string, data []byte) error {
	if err := validateKey(key); err != nil {
		return err
	}

	if err := b.cache.Set(key, data); err != nil {
		return fmt.Errorf("memory set %s: %w", key, err)
	}
	return nil
}

// Available always reports true for the memory backend.
func (b *MemoryBackend) Available(ctx context.Context) bool {
	return true
}

// Name returns a unique identifier for this storage backend.
func (b *MemoryBackend) Name() string {
	return "memory"
}

// LocationURI returns the URI that identifies this storage backend.
func (b *MemoryBackend) LocationURI() string {
	return b.locationURI
}

// Close releases the cache.
func (b *MemoryBackend) Close() error {
	return b.cache.Close()
}
