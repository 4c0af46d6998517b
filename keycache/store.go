package keycache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ruteri/fhevm-instance-bootstrap/interfaces"
)

// KeyPrefix is the storage key prefix of cached records.
const KeyPrefix = "fhevm/keys/"

var ErrInvalidACLAddress = errors.New("invalid acl address")

type storedRecord struct {
	PublicKey    hexutil.Bytes `json:"publicKey,omitempty"`
	PublicParams hexutil.Bytes `json:"publicParams,omitempty"`
	UpdatedAt    time.Time     `json:"updatedAt"`
}

// StorageKeyStore implements interfaces.KeyStore on a storage backend.
type StorageKeyStore struct {
	backend interfaces.StorageBackend
	log     *slog.Logger
}

// NewStorageKeyStore creates a key store persisting records in backend.
func NewStorageKeyStore(backend interfaces.StorageBackend, log *slog.Logger) *StorageKeyStore {
	if log == nil {
		log = slog.Default()
	}
	return &StorageKeyStore{backend: backend, log: log}
}

// StorageKey returns the backend key of the record for aclAddress.
// Addresses are matched case-insensitively.
func StorageKey(aclAddress string) (string, error) {
	if aclAddress == "" || strings.ContainsAny(aclAddress, "/\\") {
		return "", fmt.Errorf("%w: %q", ErrInvalidACLAddress, aclAddress)
	}
	return KeyPrefix + strings.ToLower(aclAddress), nil
}

// Get returns the stored record, or an empty record if none is stored.
func (s *StorageKeyStore) Get(ctx context.Context, aclAddress string) (interfaces.KeyRecord, error) {
	key, err := StorageKey(aclAddress)
	if err != nil {
		return interfaces.KeyRecord{}, err
	}

	data, err := s.backend.Fetch(ctx, key)
	if errors.Is(err, interfaces.ErrContentNotFound) {
		return interfaces.KeyRecord{}, nil
	}
	if err != nil {
		return interfaces.KeyRecord{}, err
	}

	var record storedRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return interfaces.KeyRecord{}, fmt.Errorf("corrupted key record %s: %w", key, err)
	}

	return interfaces.KeyRecord{
		PublicKey:    nilIfEmpty(record.PublicKey),
		PublicParams: nilIfEmpty(record.PublicParams),
	}, nil
}

// Set stores the record for aclAddress, replacing any previous one.
func (s *StorageKeyStore) Set(ctx context.Context, aclAddress string, publicKey, publicParams []byte) error {
	key, err := StorageKey(aclAddress)
	if err != nil {
		return err
	}

	data, err := json.Marshal(storedRecord{
		PublicKey:    publicKey,
		PublicParams: publicParams,
		UpdatedAt:    time.Now().UTC(),
	})
	if err != nil {
		return err
	}

	if err := s.backend.Store(ctx, key, data); err != nil {
		return err
	}

	s.log.Debug("Stored key record", slog.String("backend", s.backend.Name()), slog.String("key", key))
	return nil
}

func nilIfEmpty(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	return b
}
