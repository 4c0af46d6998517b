package cryptoutils

import (
	"crypto/ecdsa"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

var ErrInvalidInputProof = errors.New("invalid input proof")

var inputVerificationDomain = []byte("fhevm-input-verification-v1")

// InputProof attests that handles were produced from well-formed ciphertexts.
//
// Wire format: numHandles (1) | numSigners (1) | handles (32 each) | signatures (65 each) | extraData
type InputProof struct {
	Handles    []common.Hash
	Signatures [][]byte
	ExtraData  []byte
}

// Encode serializes the proof.
func (p InputProof) Encode() ([]byte, error) {
	if len(p.Handles) > 255 || len(p.Signatures) > 255 {
		return nil, fmt.Errorf("%w: too many handles or signers", ErrInvalidInputProof)
	}

	out := make([]byte, 0, 2+len(p.Handles)*common.HashLength+len(p.Signatures)*crypto.SignatureLength+len(p.ExtraData))
	out = append(out, byte(len(p.Handles)), byte(len(p.Signatures)))
	for _, h := range p.Handles {
		out = append(out, h.Bytes()...)
	}
	for _, sig := range p.Signatures {
		if len(sig) != crypto.SignatureLength {
			return nil, fmt.Errorf("%w: signature length %d", ErrInvalidInputProof, len(sig))
		}
		out = append(out, sig...)
	}
	return append(out, p.ExtraData...), nil
}

// DecodeInputProof parses the output of InputProof.Encode.
func DecodeInputProof(b []byte) (*InputProof, error) {
	if len(b) < 2 {
		return nil, fmt.Errorf("%w: too short", ErrInvalidInputProof)
	}
	numHandles, numSigners := int(b[0]), int(b[1])
	body := b[2:]

	need := numHandles*common.HashLength + numSigners*crypto.SignatureLength
	if len(body) < need {
		return nil, fmt.Errorf("%w: truncated", ErrInvalidInputProof)
	}

	proof := &InputProof{}
	for i := 0; i < numHandles; i++ {
		proof.Handles = append(proof.Handles, common.BytesToHash(body[:common.HashLength]))
		body = body[common.HashLength:]
	}
	for i := 0; i < numSigners; i++ {
		sig := make([]byte, crypto.SignatureLength)
		copy(sig, body[:crypto.SignatureLength])
		proof.Signatures = append(proof.Signatures, sig)
		body = body[crypto.SignatureLength:]
	}
	if len(body) > 0 {
		proof.ExtraData = append([]byte(nil), body...)
	}
	return proof, nil
}

// InputProofDigest is the message input verifier signers sign over.
func InputProofDigest(handles []common.Hash, contract, acl common.Address, chainID uint64, extraData []byte) common.Hash {
	var chainWord [32]byte
	binary.BigEndian.PutUint64(chainWord[24:], chainID)

	data := make([][]byte, 0, len(handles)+5)
	data = append(data, inputVerificationDomain)
	for _, h := range handles {
		data = append(data, h.Bytes())
	}
	data = append(data, contract.Bytes(), acl.Bytes(), chainWord[:], crypto.Keccak256(extraData))
	return crypto.Keccak256Hash(data...)
}

// SignInputProof signs digest with a secp256k1 verifier key.
func SignInputProof(key *ecdsa.PrivateKey, digest common.Hash) ([]byte, error) {
	sig, err := crypto.Sign(digest.Bytes(), key)
	if err != nil {
		return nil, fmt.Errorf("failed to sign input proof: %w", err)
	}
	return sig, nil
}

// RecoverInputSigner returns the address that produced sig over digest.
func RecoverInputSigner(digest common.Hash, sig []byte) (common.Address, error) {
	pub, err := crypto.SigToPub(digest.Bytes(), sig)
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: %v", ErrInvalidInputProof, err)
	}
	return crypto.PubkeyToAddress(*pub), nil
}

// VerifyInputProof checks that every signature in proof was produced by one of signers.
func VerifyInputProof(proof *InputProof, contract, acl common.Address, chainID uint64, signers []common.Address) error {
	if len(proof.Signatures) == 0 {
		return fmt.Errorf("%w: no signatures", ErrInvalidInputProof)
	}

	digest := InputProofDigest(proof.Handles, contract, acl, chainID, proof.ExtraData)
	for _, sig := range proof.Signatures {
		signer, err := RecoverInputSigner(digest, sig)
		if err != nil {
			return err
		}
		known := false
		for _, s := range signers {
			if s == signer {
				known = true
				break
			}
		}
		if !known {
			return fmt.Errorf("%w: unknown signer %s", ErrInvalidInputProof, signer.Hex())
		}
	}
	return nil
}
