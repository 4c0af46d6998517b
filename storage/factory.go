package storage

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/ruteri/fhevm-instance-bootstrap/interfaces"
)

// StorageBackendFactory creates storage backends from URI strings and manages
// multi-backend configurations for redundant storage.
type StorageBackendFactory struct {
	log *slog.Logger
}

// NewStorageBackendFactory creates a new factory instance that can create storage backends.
func NewStorageBackendFactory(logger *slog.Logger) *StorageBackendFactory {
	return &StorageBackendFactory{
		log: logger,
	}
}

// StorageBackendFor creates a storage backend from a location URI.
// The URI format should be [scheme]://[auth@]host[:port][/path][?params]
//
// Supported schemes:
//   - file:// - Local filesystem storage
//   - s3:// - Amazon S3 or compatible object storage
//   - ipfs:// - IPFS node mutable file system
//   - vault:// - HashiCorp Vault KV v2
//   - redis:// - Redis server
//   - leveldb:// - Embedded LevelDB database
//   - memory:// - Process-local cache
//
// Returns an error if the URI is invalid or the scheme is unsupported.
func (sf *StorageBackendFactory) StorageBackendFor(location interfaces.StorageBackendLocation) (interfaces.StorageBackend, error) {
	switch location.Scheme {
	case "ipfs":
		return sf.createIPFSBackend(location)
	case "s3":
		return sf.createS3Backend(location)
	case "file":
		return sf.createFileBackend(location)
	case "vault":
		return sf.createVaultBackend(location)
	case "redis":
		return sf.createRedisBackend(location)
	case "leveldb":
		return sf.createLevelDBBackend(location)
	case "memory":
		return sf.createMemoryBackend(location)
	default:
		return nil, fmt.Errorf("%w: unsupported backend scheme: %s", interfaces.ErrInvalidLocationURI, location.Scheme)
	}
}

// CreateMultiBackend creates a multi-storage backend from a list of location URIs.
// It will store content to all available backends and fetch from the first one that has the content.
// Returns an error if no valid backends could be created from the provided URIs.
func (sf *StorageBackendFactory) CreateMultiBackend(locations []interfaces.StorageBackendLocation) (interfaces.StorageBackend, error) {
	backends := make([]interfaces.StorageBackend, 0, len(locations))

	for _, location := range locations {
		backend, err := sf.StorageBackendFor(location)
		if err != nil {
			sf.log.Warn("Failed to create storage backend",
				"err", err,
				slog.String("locationURI", location.String()))
			continue
		}
		backends = append(backends, backend)
	}

	if len(backends) == 0 {
		return nil, fmt.Errorf("no valid storage backends created")
	}

	if len(backends) == 1 {
		return backends[0], nil
	}

	return NewMultiStorageBackend(backends, sf.log), nil
}

// createIPFSBackend creates an IPFS storage backend.
// URI format: ipfs://host:port/mfs/root?timeout=30s
func (sf *StorageBackendFactory) createIPFSBackend(location interfaces.StorageBackendLocation) (interfaces.StorageBackend, error) {
	sf.log.Debug("Creating IPFS backend", slog.String("uri", location.String()))

	u, err := location.URL()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrInvalidLocationURI, err)
	}

	host := u.Hostname()
	if host == "" {
		host = "localhost"
	}
	port := u.Port()
	if port == "" {
		port = "5001" // Default IPFS API port
	}

	timeout, err := durationParam(location, "timeout", 30*time.Second)
	if err != nil {
		return nil, err
	}

	root := location.Path
	if root == "" || root == "/" {
		root = "/fhevm"
	}

	return NewIPFSBackend(host, port, root, timeout, sf.log)
}

// createS3Backend creates an S3 or S3-compatible storage backend.
// URI format: s3://[ACCESS_KEY:SECRET_KEY@]bucket-name/prefix/?region=us-west-2&endpoint=http://minio:9000
func (sf *StorageBackendFactory) createS3Backend(location interfaces.StorageBackendLocation) (interfaces.StorageBackend, error) {
	u, err := location.URL()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrInvalidLocationURI, err)
	}

	cfg := S3Config{
		Bucket:   u.Hostname(),
		Prefix:   location.Path,
		Region:   location.GetParam("region"),
		Endpoint: location.GetParam("endpoint"),
	}
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}
	if u.User != nil {
		cfg.AccessKey = u.User.Username()
		cfg.SecretKey, _ = u.User.Password()
	}

	return NewS3Backend(cfg, sf.log)
}

// createFileBackend creates a file system storage backend.
// URI format: file:///absolute/path/ or file://./relative/path/
func (sf *StorageBackendFactory) createFileBackend(location interfaces.StorageBackendLocation) (interfaces.StorageBackend, error) {
	sf.log.Debug("Creating file backend", slog.String("uri", location.String()))

	path := location.Path
	if location.Host != "" {
		path = location.Host + "/" + strings.TrimPrefix(path, "/")
	}

	if path == "" {
		return nil, fmt.Errorf("%w: empty path in file URI: %s", interfaces.ErrInvalidLocationURI, location.String())
	}

	return NewFileBackend(path, sf.log)
}

// createVaultBackend creates a Vault KV v2 backend.
// URI format: vault://vault.example.com:8200/mount/data/path?tls=true
// The token is read from the URI user info or from VAULT_TOKEN.
func (sf *StorageBackendFactory) createVaultBackend(location interfaces.StorageBackendLocation) (interfaces.StorageBackend, error) {
	sf.log.Debug("Creating Vault backend", slog.String("host", location.Host))

	u, err := location.URL()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrInvalidLocationURI, err)
	}

	scheme := "https"
	if location.GetParam("tls") == "false" {
		scheme = "http"
	}
	address := fmt.Sprintf("%s://%s", scheme, u.Host)

	parts := strings.SplitN(strings.Trim(location.Path, "/"), "/", 2)
	mountPath := parts[0]
	if mountPath == "" {
		mountPath = "secret"
	}
	var dataPath string
	if len(parts) > 1 {
		dataPath = parts[1]
	}

	token := os.Getenv("VAULT_TOKEN")
	if u.User != nil && u.User.Username() != "" {
		token = u.User.Username()
	}

	return NewVaultBackend(address, mountPath, dataPath, token, sf.log)
}

// createRedisBackend creates a Redis backend.
// URI format: redis://[:password@]host:port/db?prefix=fhevm&ttl=24h
func (sf *StorageBackendFactory) createRedisBackend(location interfaces.StorageBackendLocation) (interfaces.StorageBackend, error) {
	sf.log.Debug("Creating Redis backend", slog.String("host", location.Host))

	u, err := location.URL()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrInvalidLocationURI, err)
	}

	opts := &redis.Options{Addr: u.Host}
	if u.User != nil {
		opts.Username = u.User.Username()
		opts.Password, _ = u.User.Password()
	}
	if db := strings.Trim(location.Path, "/"); db != "" {
		n, err := strconv.Atoi(db)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid redis database %q", interfaces.ErrInvalidLocationURI, db)
		}
		opts.DB = n
	}

	ttl, err := durationParam(location, "ttl", 0)
	if err != nil {
		return nil, err
	}

	prefix := location.GetParam("prefix")
	if prefix == "" {
		prefix = "fhevm"
	}

	return NewRedisBackend(opts, prefix, ttl, sf.log)
}

// createLevelDBBackend creates an embedded LevelDB backend.
// URI format: leveldb:///var/lib/fhevm/keys or leveldb://memory
func (sf *StorageBackendFactory) createLevelDBBackend(location interfaces.StorageBackendLocation) (interfaces.StorageBackend, error) {
	sf.log.Debug("Creating LevelDB backend", slog.String("uri", location.String()))

	if location.Host == "memory" {
		return NewLevelDBBackend("", sf.log)
	}

	path := location.Path
	if location.Host != "" {
		path = location.Host + "/" + strings.TrimPrefix(path, "/")
	}
	if path == "" {
		return nil, fmt.Errorf("%w: empty path in leveldb URI: %s", interfaces.ErrInvalidLocationURI, location.String())
	}

	return NewLevelDBBackend(path, sf.log)
}

// createMemoryBackend creates a process-local backend.
// URI format: memory://?ttl=1h
func (sf *StorageBackendFactory) createMemoryBackend(location interfaces.StorageBackendLocation) (interfaces.StorageBackend, error) {
	ttl, err := durationParam(location, "ttl", DefaultMemoryTTL)
	if err != nil {
		return nil, err
	}
	return NewMemoryBackend(ttl, sf.log)
}

func durationParam(location interfaces.StorageBackendLocation, name string, def time.Duration) (time.Duration, error) {
	raw := location.GetParam(name)
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid %s %q", interfaces.ErrInvalidLocationURI, name, raw)
	}
	return d, nil
}
