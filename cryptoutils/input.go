package cryptoutils

import (
	"crypto/ecdh"
	"crypto/ecdsa"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Ciphertext is a single encrypted input value.
type Ciphertext struct {
	Type   FheType
	Data   []byte
	Handle common.Hash
}

// EncryptInput encrypts value for contract under the ACL domain public key.
func EncryptInput(publicKeyPEM []byte, value *uint256.Int, contract, acl common.Address, chainID uint64) (*Ciphertext, error) {
	if value == nil {
		return nil, fmt.Errorf("nil value")
	}

	t := FheTypeFor(value)
	data, err := EncryptWithPublicKey(publicKeyPEM, EncodePlaintext(t, value), CiphertextAssociatedData(contract, acl, chainID))
	if err != nil {
		return nil, err
	}

	return &Ciphertext{
		Type:   t,
		Data:   data,
		Handle: ComputeHandle(data, 0, t, acl, chainID),
	}, nil
}

// DecryptInput recovers the value encrypted by EncryptInput.
func DecryptInput(key *ecdh.PrivateKey, data []byte, contract, acl common.Address, chainID uint64) (FheType, *uint256.Int, error) {
	plaintext, err := Decrypt(key, data, CiphertextAssociatedData(contract, acl, chainID))
	if err != nil {
		return 0, nil, err
	}
	return DecodePlaintext(plaintext)
}

// SignedInputProof builds and encodes a proof over handles signed by every key in signers.
// The ciphertext travels in the proof's extra data.
func SignedInputProof(signers []*ecdsa.PrivateKey, handles []common.Hash, ciphertext []byte, contract, acl common.Address, chainID uint64) ([]byte, error) {
	digest := InputProofDigest(handles, contract, acl, chainID, ciphertext)

	proof := InputProof{Handles: handles, ExtraData: ciphertext}
	for _, key := range signers {
		sig, err := SignInputProof(key, digest)
		if err != nil {
			return nil, err
		}
		proof.Signatures = append(proof.Signatures, sig)
	}
	return proof.Encode()
}
