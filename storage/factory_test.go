package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/ruteri/fhevm-instance-bootstrap/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustLocation(t *testing.T, uri string) interfaces.StorageBackendLocation {
	t.Helper()
	loc, err := interfaces.NewStorageBackendLocation(uri)
	require.NoError(t, err)
	return loc
}

func TestStorageBackendFactory_StorageBackendFor(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name     string
		uri      string
		wantType interfaces.StorageBackend
		wantErr  bool
	}{
		{name: "file", uri: "file://" + dir, wantType: &FileBackend{}},
		{name: "memory", uri: "memory://?ttl=1h", wantType: &MemoryBackend{}},
		{name: "leveldb memory", uri: "leveldb://memory", wantType: &LevelDBBackend{}},
		{name: "leveldb path", uri: "leveldb://" + filepath.Join(dir, "db"), wantType: &LevelDBBackend{}},
		{name: "ipfs", uri: "ipfs://localhost:5001/fhevm?timeout=5s", wantType: &IPFSBackend{}},
		{name: "s3", uri: "s3://bucket/prefix?region=eu-west-1", wantType: &S3Backend{}},
		{name: "vault", uri: "vault://token@localhost:8200/secret/fhevm?tls=false", wantType: &VaultBackend{}},
		{name: "redis", uri: "redis://localhost:6379/2?prefix=test&ttl=1h", wantType: &RedisBackend{}},
		{name: "redis bad db", uri: "redis://localhost:6379/x", wantErr: true},
		{name: "memory bad ttl", uri: "memory://?ttl=soon", wantErr: true},
		{name: "s3 without bucket", uri: "s3:///prefix", wantErr: true},
	}

	factory := NewStorageBackendFactory(testLogger())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend, err := factory.StorageBackendFor(mustLocation(t, tt.uri))
			if tt.wantErr {
				assert.ErrorIs(t, err, interfaces.ErrInvalidLocationURI)
				return
			}
			require.NoError(t, err)
			assert.IsType(t, tt.wantType, backend)
		})
	}
}

func TestNewStorageBackendLocation_UnsupportedScheme(t *testing.T) {
	_, err := interfaces.NewStorageBackendLocation("github://owner/repo")
	assert.ErrorIs(t, err, interfaces.ErrInvalidLocationURI)
}

func TestStorageBackendFactory_CreateMultiBackend(t *testing.T) {
	factory := NewStorageBackendFactory(testLogger())

	t.Run("single backend is returned directly", func(t *testing.T) {
		backend, err := factory.CreateMultiBackend([]interfaces.StorageBackendLocation{
			mustLocation(t, "memory://"),
		})
		require.NoError(t, err)
		assert.IsType(t, &MemoryBackend{}, backend)
	})

	t.Run("invalid locations are skipped", func(t *testing.T) {
		backend, err := factory.CreateMultiBackend([]interfaces.StorageBackendLocation{
			mustLocation(t, "memory://?ttl=bad"),
			mustLocation(t, "memory://"),
			mustLocation(t, "file://"+t.TempDir()),
		})
		require.NoError(t, err)
		require.IsType(t, &MultiStorageBackend{}, backend)

		ctx := context.Background()
		require.NoError(t, backend.Store(ctx, "a/b", []byte("v")))
		data, err := backend.Fetch(ctx, "a/b")
		require.NoError(t, err)
		assert.Equal(t, []byte("v"), data)
	})

	t.Run("no valid backends", func(t *testing.T) {
		_, err := factory.CreateMultiBackend([]interfaces.StorageBackendLocation{
			mustLocation(t, "memory://?ttl=bad"),
		})
		assert.Error(t, err)
	})
}
