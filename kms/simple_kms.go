package kms

import (
	"crypto/ecdh"
	"crypto/ecdsa"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"slices"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ruteri/fhevm-instance-bootstrap/cryptoutils"
	"github.com/ruteri/fhevm-instance-bootstrap/interfaces"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/hkdf"
)

// SupportedPublicParamsSizes lists the parameter set sizes SimpleKMS can produce.
var SupportedPublicParamsSizes = []int{interfaces.DefaultPublicParamsSize}

const publicParamsMagic = "FHEVMCRS"

// SimpleKMS provides a deterministic key management implementation.
// It derives keys from a master key, suitable for development and testing.
type SimpleKMS struct {
	masterKey []byte

	mu             sync.RWMutex
	encryptionKeys map[common.Address]*ecdh.PrivateKey
	verifierKeys   map[common.Address]*ecdsa.PrivateKey
}

// NewSimpleKMS creates a new instance with the provided master key.
// The master key must be at least 32 bytes long.
func NewSimpleKMS(masterKey []byte) (*SimpleKMS, error) {
	if len(masterKey) < 32 {
		return nil, errors.New("master key must be at least 32 bytes")
	}

	return &SimpleKMS{
		masterKey:      slices.Clone(masterKey),
		encryptionKeys: make(map[common.Address]*ecdh.PrivateKey),
		verifierKeys:   make(map[common.Address]*ecdsa.PrivateKey),
	}, nil
}

// SeedFromPassphrase stretches a passphrase into a 32-byte master key with Argon2id.
func SeedFromPassphrase(passphrase string, salt []byte) []byte {
	salt = append([]byte("FHEVM-KMS-SEED-"), salt...)
	return argon2.IDKey([]byte(passphrase), salt, 1, 64*1024, 4, 32)
}

// WithSeed creates a new SimpleKMS with the provided seed.
// Useful for testing with deterministic keys.
func (k *SimpleKMS) WithSeed(seed []byte) (*SimpleKMS, error) {
	return NewSimpleKMS(seed)
}

// PublicKey returns the PEM encoded encryption public key of acl.
func (k *SimpleKMS) PublicKey(acl common.Address) ([]byte, error) {
	key, err := k.DecryptionKey(acl)
	if err != nil {
		return nil, err
	}
	return cryptoutils.MarshalPublicKeyPEM(key.PublicKey())
}

// DecryptionKey returns the P-256 encryption key of acl.
func (k *SimpleKMS) DecryptionKey(acl common.Address) (*ecdh.PrivateKey, error) {
	k.mu.RLock()
	key, found := k.encryptionKeys[acl]
	k.mu.RUnlock()
	if found {
		return key, nil
	}

	r := k.derive(acl, "encryption")
	scalar := make([]byte, 32)
	for {
		if _, err := io.ReadFull(r, scalar); err != nil {
			return nil, fmt.Errorf("failed to derive encryption key: %w", err)
		}
		// out of range scalars are rejected, draw again
		candidate, err := ecdh.P256().NewPrivateKey(scalar)
		if err == nil {
			key = candidate
			break
		}
	}

	k.mu.Lock()
	k.encryptionKeys[acl] = key
	k.mu.Unlock()
	return key, nil
}

// VerifierKey returns the secp256k1 input verifier key of acl.
func (k *SimpleKMS) VerifierKey(acl common.Address) (*ecdsa.PrivateKey, error) {
	k.mu.RLock()
	key, found := k.verifierKeys[acl]
	k.mu.RUnlock()
	if found {
		return key, nil
	}

	r := k.derive(acl, "input-verifier")
	scalar := make([]byte, 32)
	for {
		if _, err := io.ReadFull(r, scalar); err != nil {
			return nil, fmt.Errorf("failed to derive verifier key: %w", err)
		}
		candidate, err := crypto.ToECDSA(scalar)
		if err == nil {
			key = candidate
			break
		}
	}

	k.mu.Lock()
	k.verifierKeys[acl] = key
	k.mu.Unlock()
	return key, nil
}

// VerifierAddress returns the address of the input verifier key of acl.
func (k *SimpleKMS) VerifierAddress(acl common.Address) (common.Address, error) {
	key, err := k.VerifierKey(acl)
	if err != nil {
		return common.Address{}, err
	}
	return crypto.PubkeyToAddress(key.PublicKey), nil
}

// PublicParams returns the public parameters blob of acl for size.
//
// Layout: "FHEVMCRS" | size (4 bytes) | sha256(public key) | size*2 pseudo-random bytes
func (k *SimpleKMS) PublicParams(acl common.Address, size int) ([]byte, error) {
	if !slices.Contains(SupportedPublicParamsSizes, size) {
		return nil, fmt.Errorf("%w: %d", interfaces.ErrUnsupportedParamsSize, size)
	}

	publicKey, err := k.PublicKey(acl)
	if err != nil {
		return nil, err
	}
	keyDigest := sha256.Sum256(publicKey)

	params := make([]byte, 0, len(publicParamsMagic)+4+len(keyDigest)+size*2)
	params = append(params, publicParamsMagic...)
	params = binary.BigEndian.AppendUint32(params, uint32(size))
	params = append(params, keyDigest[:]...)

	body := make([]byte, size*2)
	if _, err := io.ReadFull(k.derive(acl, fmt.Sprintf("crs-%d", size)), body); err != nil {
		return nil, fmt.Errorf("failed to derive public params: %w", err)
	}
	return append(params, body...), nil
}

// KeyID returns the hex encoded digest of the public key of acl.
func (k *SimpleKMS) KeyID(acl common.Address) (string, error) {
	publicKey, err := k.PublicKey(acl)
	if err != nil {
		return "", err
	}
	digest := sha256.Sum256(publicKey)
	return hex.EncodeToString(digest[:16]), nil
}

// derive returns the HKDF stream for purpose within the domain of acl.
func (k *SimpleKMS) derive(acl common.Address, purpose string) io.Reader {
	return hkdf.New(sha256.New, k.masterKey, acl.Bytes(), []byte("fhevm/"+purpose))
}

// PublicParamsSize reads the parameter set size from a blob produced by PublicParams.
func PublicParamsSize(params []byte) (int, error) {
	if len(params) < len(publicParamsMagic)+4 || string(params[:len(publicParamsMagic)]) != publicParamsMagic {
		return 0, errors.New("malformed public params")
	}
	return int(binary.BigEndian.Uint32(params[len(publicParamsMagic):])), nil
}
