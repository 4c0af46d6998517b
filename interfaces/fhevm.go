package interfaces

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Instance is a confidential-compute client instance.
type Instance interface {
	// EncryptValue encrypts value for use by the recipient contract.
	EncryptValue(ctx context.Context, value *uint256.Int, recipient common.Address) (*EncryptedInput, error)

	// PublicKey exports the public encryption key.
	PublicKey() ([]byte, error)

	// PublicParams exports the public params for the given parameter set size.
	PublicParams(size int) ([]byte, error)
}

// SDK loads the remote confidential-compute SDK module.
type SDK interface {
	Load(ctx context.Context) (Module, error)
}

// Module is a loaded remote SDK.
type Module interface {
	// Initialize performs the one-time SDK initialisation.
	Initialize(ctx context.Context) (bool, error)

	// CreateInstance builds a remote-backed instance.
	CreateInstance(ctx context.Context, config InstanceConfig) (Instance, error)

	// DefaultConfig returns the SDK's default network configuration.
	DefaultConfig() InstanceConfig
}

// MockFactory creates in-process mock engine instances.
type MockFactory interface {
	CreateMockInstance(ctx context.Context, params MockParams) (Instance, error)
}

// KeyStore persists public key material keyed by ACL address.
type KeyStore interface {
	// Get returns the stored record. A miss returns an empty record and no error.
	Get(ctx context.Context, aclAddress string) (KeyRecord, error)

	// Set stores the record for the ACL address.
	Set(ctx context.Context, aclAddress string, publicKey, publicParams []byte) error
}
