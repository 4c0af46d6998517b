package interfaces

import (
	"crypto/ecdh"
	"crypto/ecdsa"
	"errors"

	"github.com/ethereum/go-ethereum/common"
)

var (
	// ErrKMSLocked is returned while a threshold KMS has not collected enough shares.
	ErrKMSLocked = errors.New("KMS is locked")

	// ErrUnsupportedParamsSize is returned for a public params size the KMS cannot produce.
	ErrUnsupportedParamsSize = errors.New("unsupported public params size")
)

// KMS derives the key material of one cryptographic domain, identified by its ACL contract address.
// Derivation is deterministic: the same master key and ACL address always yield the same material.
type KMS interface {
	// PublicKey returns the PEM encoded encryption public key.
	PublicKey(acl common.Address) ([]byte, error)

	// DecryptionKey returns the private half of the encryption key.
	DecryptionKey(acl common.Address) (*ecdh.PrivateKey, error)

	// PublicParams returns the public parameters blob for the given parameter set size.
	PublicParams(acl common.Address, size int) ([]byte, error)

	// VerifierKey returns the secp256k1 key that signs input proofs.
	VerifierKey(acl common.Address) (*ecdsa.PrivateKey, error)

	// KeyID returns a stable identifier of the domain's key material.
	KeyID(acl common.Address) (string, error)
}
