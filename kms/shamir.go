package kms

import (
	"bytes"
	"crypto/ecdh"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"crypto/x509"
	"encoding/binary"
	"encoding/hex"
	"encoding/pem"
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/hashicorp/vault/shamir"
	"github.com/ruteri/fhevm-instance-bootstrap/interfaces"
)

var shareDomain = []byte("FHEVM-KMS-SHARE-")

// ShamirKMS guards a SimpleKMS master key with Shamir Secret Sharing.
// The key is split into shares held by administrators; a recovering KMS stays
// locked until a threshold of admin-signed shares has been submitted.
// The reconstructed key is only kept in memory.
type ShamirKMS struct {
	mu             sync.RWMutex
	inner          *SimpleKMS
	threshold      int
	receivedShares map[int][]byte
	adminPubKeys   map[string][]byte
}

// ShamirConfig contains configuration parameters for creating a ShamirKMS instance.
type ShamirConfig struct {
	// Threshold is the minimum number of shares required to reconstruct the master key
	Threshold int
	// AdminPubKeys is the list of authorized administrator public keys in PEM format
	AdminPubKeys [][]byte
}

// SplitMasterKey splits masterKey into parts shares, any threshold of which recover it.
func SplitMasterKey(masterKey []byte, parts, threshold int) ([][]byte, error) {
	if len(masterKey) < 32 {
		return nil, errors.New("master key must be at least 32 bytes")
	}
	if threshold < 2 {
		return nil, errors.New("threshold must be at least 2")
	}
	if parts < threshold {
		return nil, errors.New("total shares must be at least equal to threshold")
	}

	shares, err := shamir.Split(masterKey, parts, threshold)
	if err != nil {
		return nil, fmt.Errorf("failed to split master key: %w", err)
	}
	return shares, nil
}

// NewShamirKMS creates an unlocked ShamirKMS from masterKey and returns one share per admin.
// The caller distributes the shares and should erase masterKey afterwards.
func NewShamirKMS(masterKey []byte, config ShamirConfig) (*ShamirKMS, [][]byte, error) {
	shares, err := SplitMasterKey(masterKey, len(config.AdminPubKeys), config.Threshold)
	if err != nil {
		return nil, nil, err
	}

	k, err := NewShamirKMSRecovery(config)
	if err != nil {
		return nil, nil, err
	}

	k.inner, err = NewSimpleKMS(masterKey)
	if err != nil {
		return nil, nil, err
	}

	return k, shares, nil
}

// NewShamirKMSRecovery creates a locked ShamirKMS awaiting admin shares.
func NewShamirKMSRecovery(config ShamirConfig) (*ShamirKMS, error) {
	if config.Threshold < 2 {
		return nil, errors.New("threshold must be at least 2")
	}

	k := &ShamirKMS{
		threshold:      config.Threshold,
		receivedShares: make(map[int][]byte),
		adminPubKeys:   make(map[string][]byte),
	}

	for _, publicKeyPEM := range config.AdminPubKeys {
		if _, err := parseAdminPubKey(publicKeyPEM); err != nil {
			return nil, fmt.Errorf("invalid admin pubkey: %w", err)
		}
		k.adminPubKeys[adminFingerprint(publicKeyPEM)] = publicKeyPEM
	}

	if len(k.adminPubKeys) < config.Threshold {
		return nil, errors.New("fewer admins than threshold")
	}

	return k, nil
}

// SubmitShare submits a key share signed by a registered administrator.
// The signature covers ShareDigest(shareIndex, share). Once threshold shares
// are collected the master key is reconstructed and the KMS unlocks.
func (k *ShamirKMS) SubmitShare(shareIndex int, share, signature, adminPubKeyPEM []byte) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.inner != nil {
		return errors.New("KMS is already unlocked")
	}

	registered, found := k.adminPubKeys[adminFingerprint(adminPubKeyPEM)]
	if !found || !bytes.Equal(registered, adminPubKeyPEM) {
		return errors.New("unregistered admin public key")
	}

	pubKey, err := parseAdminPubKey(adminPubKeyPEM)
	if err != nil {
		return err
	}

	digest := ShareDigest(shareIndex, share)
	switch key := pubKey.(type) {
	case *ecdsa.PublicKey:
		if !ecdsa.VerifyASN1(key, digest[:], signature) {
			return errors.New("invalid share signature")
		}
	case ed25519.PublicKey:
		if !ed25519.Verify(key, digest[:], signature) {
			return errors.New("invalid share signature")
		}
	}

	k.receivedShares[shareIndex] = bytes.Clone(share)
	return k.tryReconstruct()
}

func (k *ShamirKMS) tryReconstruct() error {
	if len(k.receivedShares) < k.threshold {
		return nil
	}

	shares := make([][]byte, 0, len(k.receivedShares))
	for _, share := range k.receivedShares {
		shares = append(shares, share)
	}

	masterKey, err := shamir.Combine(shares)
	if err != nil {
		return fmt.Errorf("failed to reconstruct master key: %w", err)
	}

	inner, err := NewSimpleKMS(masterKey)
	wipeBytes(masterKey)
	if err != nil {
		return fmt.Errorf("reconstructed master key rejected: %w", err)
	}
	k.inner = inner

	for i := range k.receivedShares {
		wipeBytes(k.receivedShares[i])
	}
	k.receivedShares = make(map[int][]byte)

	return nil
}

// IsUnlocked reports whether the master key has been reconstructed.
func (k *ShamirKMS) IsUnlocked() bool {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.inner != nil
}

// SharesReceived returns how many shares are pending reconstruction.
func (k *ShamirKMS) SharesReceived() int {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return len(k.receivedShares)
}

func (k *ShamirKMS) unlocked() (*SimpleKMS, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	if k.inner == nil {
		return nil, fmt.Errorf("%w: %d of %d shares received", interfaces.ErrKMSLocked, len(k.receivedShares), k.threshold)
	}
	return k.inner, nil
}

func (k *ShamirKMS) PublicKey(acl common.Address) ([]byte, error) {
	inner, err := k.unlocked()
	if err != nil {
		return nil, err
	}
	return inner.PublicKey(acl)
}

func (k *ShamirKMS) DecryptionKey(acl common.Address) (*ecdh.PrivateKey, error) {
	inner, err := k.unlocked()
	if err != nil {
		return nil, err
	}
	return inner.DecryptionKey(acl)
}

func (k *ShamirKMS) PublicParams(acl common.Address, size int) ([]byte, error) {
	inner, err := k.unlocked()
	if err != nil {
		return nil, err
	}
	return inner.PublicParams(acl, size)
}

func (k *ShamirKMS) VerifierKey(acl common.Address) (*ecdsa.PrivateKey, error) {
	inner, err := k.unlocked()
	if err != nil {
		return nil, err
	}
	return inner.VerifierKey(acl)
}

func (k *ShamirKMS) KeyID(acl common.Address) (string, error) {
	inner, err := k.unlocked()
	if err != nil {
		return "", err
	}
	return inner.KeyID(acl)
}

// ShareDigest is the message an administrator signs to submit a share.
func ShareDigest(shareIndex int, share []byte) [32]byte {
	msg := make([]byte, 0, len(shareDomain)+4+len(share))
	msg = append(msg, shareDomain...)
	msg = binary.BigEndian.AppendUint32(msg, uint32(shareIndex))
	msg = append(msg, share...)
	return sha256.Sum256(msg)
}

// SignShare produces an ASN.1 ECDSA signature for a share submission.
func SignShare(shareIndex int, share []byte, privateKey *ecdsa.PrivateKey) ([]byte, error) {
	digest := ShareDigest(shareIndex, share)
	return ecdsa.SignASN1(rand.Reader, privateKey, digest[:])
}

func parseAdminPubKey(publicKeyPEM []byte) (any, error) {
	block, _ := pem.Decode(publicKeyPEM)
	if block == nil {
		return nil, errors.New("failed to decode admin public key PEM")
	}

	pubKey, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse admin public key: %w", err)
	}

	switch pubKey.(type) {
	case *ecdsa.PublicKey, ed25519.PublicKey:
		return pubKey, nil
	default:
		return nil, errors.New("admin public key is neither ECDSA nor ED25519 key")
	}
}

func adminFingerprint(publicKeyPEM []byte) string {
	fingerprint := sha256.Sum256(publicKeyPEM)
	return hex.EncodeToString(fingerprint[:])
}

func wipeBytes(data []byte) {
	for i := range data {
		data[i] = 0
	}
}
