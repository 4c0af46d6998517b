package keyserver

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"

	"github.com/ruteri/fhevm-instance-bootstrap/cryptoutils"
)

// AdminsConfig is the admin key file read by LoadAdminKeys.
type AdminsConfig struct {
	Admins []AdminMetadata `json:"admins"`
}

type AdminMetadata struct {
	ID     string `json:"id"`
	PubKey string `json:"pubkey"`
}

// AdminID derives an admin id from the admin's PEM public key.
func AdminID(publicKeyPEM []byte) string {
	hash := sha256.Sum256(publicKeyPEM)
	return hex.EncodeToString(hash[:])
}

// EncryptedShare is a key share sealed to one administrator.
type EncryptedShare struct {
	AdminID        string `json:"admin_id"`
	ShareIndex     int    `json:"share_index"`
	EncryptedShare []byte `json:"encrypted_share"`
}

// SealShares assigns shares to admins in id order and encrypts each to its admin's key.
// The admin id is bound as associated data.
func SealShares(adminPubKeys map[string][]byte, shares [][]byte) ([]EncryptedShare, error) {
	if len(shares) != len(adminPubKeys) {
		return nil, fmt.Errorf("got %d shares for %d admins", len(shares), len(adminPubKeys))
	}

	ids := make([]string, 0, len(adminPubKeys))
	for id := range adminPubKeys {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	sealed := make([]EncryptedShare, 0, len(ids))
	for i, id := range ids {
		ciphertext, err := cryptoutils.EncryptWithPublicKey(adminPubKeys[id], shares[i], []byte(id))
		if err != nil {
			return nil, fmt.Errorf("failed to encrypt share for admin %s: %w", id, err)
		}
		sealed = append(sealed, EncryptedShare{AdminID: id, ShareIndex: i, EncryptedShare: ciphertext})
	}
	return sealed, nil
}

// OpenShare decrypts a sealed share with the admin's PEM private key.
func OpenShare(sealed EncryptedShare, privateKeyPEM []byte) ([]byte, error) {
	return cryptoutils.DecryptWithPrivateKey(privateKeyPEM, sealed.EncryptedShare, []byte(sealed.AdminID))
}
