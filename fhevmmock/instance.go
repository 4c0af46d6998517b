package fhevmmock

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"log/slog"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/ruteri/fhevm-instance-bootstrap/cryptoutils"
	"github.com/ruteri/fhevm-instance-bootstrap/interfaces"
	"github.com/ruteri/fhevm-instance-bootstrap/kms"
)

// Instance encrypts values in process with keys derived for one mock node.
type Instance struct {
	kms *kms.SimpleKMS

	rpcURL        string
	chainID       uint64
	acl           common.Address
	inputVerifier common.Address
	kmsVerifier   common.Address

	log *slog.Logger
}

// EncryptValue encrypts value for recipient and signs the input proof with the node's verifier key.
func (i *Instance) EncryptValue(ctx context.Context, value *uint256.Int, recipient common.Address) (*interfaces.EncryptedInput, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	publicKey, err := i.kms.PublicKey(i.acl)
	if err != nil {
		return nil, err
	}

	ct, err := cryptoutils.EncryptInput(publicKey, value, recipient, i.acl, i.chainID)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt input: %w", err)
	}

	signer, err := i.kms.VerifierKey(i.acl)
	if err != nil {
		return nil, err
	}

	handles := []common.Hash{ct.Handle}
	proof, err := cryptoutils.SignedInputProof([]*ecdsa.PrivateKey{signer}, handles, ct.Data, recipient, i.acl, i.chainID)
	if err != nil {
		return nil, err
	}

	i.log.Debug("Encrypted input", slog.String("type", ct.Type.String()), slog.String("handle", ct.Handle.Hex()))
	return &interfaces.EncryptedInput{Handles: handles, InputProof: proof}, nil
}

// PublicKey returns the PEM encoded encryption public key.
func (i *Instance) PublicKey() ([]byte, error) {
	return i.kms.PublicKey(i.acl)
}

// PublicParams returns the public params for size.
func (i *Instance) PublicParams(size int) ([]byte, error) {
	return i.kms.PublicParams(i.acl, size)
}

// DecryptInput verifies inputProof against the node's verifier and recovers the encrypted value.
func (i *Instance) DecryptInput(inputProof []byte, contract common.Address) (*uint256.Int, error) {
	proof, err := cryptoutils.DecodeInputProof(inputProof)
	if err != nil {
		return nil, err
	}

	verifier, err := i.kms.VerifierAddress(i.acl)
	if err != nil {
		return nil, err
	}
	if err := cryptoutils.VerifyInputProof(proof, contract, i.acl, i.chainID, []common.Address{verifier}); err != nil {
		return nil, err
	}

	key, err := i.kms.DecryptionKey(i.acl)
	if err != nil {
		return nil, err
	}
	_, value, err := cryptoutils.DecryptInput(key, proof.ExtraData, contract, i.acl, i.chainID)
	return value, err
}

// VerifierAddress returns the address signing input proofs of this instance.
func (i *Instance) VerifierAddress() (common.Address, error) {
	return i.kms.VerifierAddress(i.acl)
}

// RPCURL returns the endpoint of the node the instance was created for.
func (i *Instance) RPCURL() string {
	return i.rpcURL
}

// ChainID returns the chain id of the node.
func (i *Instance) ChainID() uint64 {
	return i.chainID
}

// ACLAddress returns the ACL contract address of the node.
func (i *Instance) ACLAddress() common.Address {
	return i.acl
}

// InputVerifierAddress returns the input verifier contract address of the node.
func (i *Instance) InputVerifierAddress() common.Address {
	return i.inputVerifier
}

// KMSVerifierAddress returns the KMS verifier contract address of the node.
func (i *Instance) KMSVerifierAddress() common.Address {
	return i.kmsVerifier
}
