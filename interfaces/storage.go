package interfaces

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"
)

// StorageSchemes lists the URI schemes accepted for key stores.
var StorageSchemes = []string{"file", "s3", "ipfs", "vault", "redis", "leveldb", "memory"}

// StorageBackendLocation is a parsed key store URI,
// [scheme]://[auth@]host[:port][/path][?params].
type StorageBackendLocation struct {
	Raw    string
	Scheme string
	Host   string
	Path   string
	Query  url.Values
}

// NewStorageBackendLocation parses uri and rejects unknown schemes.
func NewStorageBackendLocation(uri string) (StorageBackendLocation, error) {
	parsed, err := url.Parse(uri)
	if err != nil {
		return StorageBackendLocation{}, fmt.Errorf("%w: %v", ErrInvalidLocationURI, err)
	}

	scheme := strings.ToLower(parsed.Scheme)
	if !slices.Contains(StorageSchemes, scheme) {
		return StorageBackendLocation{}, fmt.Errorf("%w: unsupported storage scheme %q", ErrInvalidLocationURI, parsed.Scheme)
	}

	return StorageBackendLocation{
		Raw:    uri,
		Scheme: scheme,
		Host:   parsed.Host,
		Path:   parsed.Path,
		Query:  parsed.Query(),
	}, nil
}

func (loc StorageBackendLocation) String() string {
	return loc.Raw
}

// URL re-parses the location, keeping user info.
func (loc StorageBackendLocation) URL() (*url.URL, error) {
	return url.Parse(loc.Raw)
}

// GetParam returns the query parameter name, or "".
func (loc StorageBackendLocation) GetParam(name string) string {
	return loc.Query.Get(name)
}

var (
	// ErrContentNotFound is returned when no value is stored under the requested key.
	ErrContentNotFound = errors.New("content not found")

	// ErrBackendUnavailable is returned when a storage backend cannot be reached.
	ErrBackendUnavailable = errors.New("storage backend unavailable")

	ErrInvalidLocationURI = errors.New("invalid storage location URI")
)

// StorageBackend provides key-addressed data storage.
type StorageBackend interface {
	// Fetch retrieves data stored under key. Returns ErrContentNotFound on a miss.
	Fetch(ctx context.Context, key string) ([]byte, error)

	// Store saves data under key, replacing any previous value.
	Store(ctx context.Context, key string, data []byte) error

	// Available checks if backend is accessible.
	Available(ctx context.Context) bool

	// Name returns identifier for logging.
	Name() string

	// LocationURI returns URI identifying this backend.
	LocationURI() string
}

// StorageBackendFactory creates storage backends.
type StorageBackendFactory interface {
	// StorageBackendFor creates backend from URI.
	// Supports file://, s3://, ipfs://, vault://, redis://, leveldb://, memory://
	StorageBackendFor(location StorageBackendLocation) (StorageBackend, error)

	// CreateMultiBackend creates aggregated storage backend.
	CreateMultiBackend(locations []StorageBackendLocation) (StorageBackend, error)
}
