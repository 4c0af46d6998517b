package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ruteri/fhevm-instance-bootstrap/interfaces"
	"github.com/syndtr/goleveldb/leveldb"
	leveldbstorage "github.com/syndtr/goleveldb/leveldb/storage"
)

// LevelDBBackend implements a storage backend on an embedded LevelDB database.
// LevelDB handles its own synchronization.
type LevelDBBackend struct {
	db          *leveldb.DB
	path        string
	log         *slog.Logger
	locationURI string
}

// NewLevelDBBackend opens or creates a LevelDB database at path.
// If path is empty, uses in-memory storage.
func NewLevelDBBackend(path string, log *slog.Logger) (*LevelDBBackend, error) {
	var db *leveldb.DB
	var err error

	if path == "" {
		db, err = leveldb.Open(leveldbstorage.NewMemStorage(), nil)
	} else {
		db, err = leveldb.OpenFile(path, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open database at %s: %w", path, err)
	}

	uri := "leveldb://memory"
	if path != "" {
		uri = fmt.Sprintf("leveldb://%s", path)
	}

	return &LevelDBBackend{
		db:          db,
		path:        path,
		log:         log,
		locationURI: uri,
	}, nil
}

// Fetch retrieves data stored under key.
func (b *LevelDBBackend) Fetch(ctx context.Context, key string) ([]byte, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}

	data, err := b.db.Get([]byte(key), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, interfaces.ErrContentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("leveldb get %s: %w", key, err)
	}
	return data, nil
}

// Store writes data under key.
func (b *LevelDBBackend) Store(ctx context.Context, key string, data []byte) error {
	if err := validateKey(key); err != nil {
		return err
	}

	if err := b.db.Put([]byte(key), data, nil); err != nil {
		return fmt.Errorf("leveldb put %s: %w", key, err)
	}

	b.log.Debug("Stored content in LevelDB",
		slog.String("key", key),
		slog.Int("size", len(data)))
	return nil
}

// Available reports whether the database is still open.
func (b *LevelDBBackend) Available(ctx context.Context) bool {
	_, err := b.db.GetProperty("leveldb.stats")
	return err == nil
}

// Name returns a unique identifier for this storage backend.
func (b *LevelDBBackend) Name() string {
	if b.path == "" {
		return "leveldb-memory"
	}
	return fmt.Sprintf("leveldb-%s", b.path)
}

// LocationURI returns the URI that identifies this storage backend.
func (b *LevelDBBackend) LocationURI() string {
	return b.locationURI
}

// Close closes the database.
func (b *LevelDBBackend) Close() error {
	return b.db.Close()
}
