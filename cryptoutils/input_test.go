package cryptoutils

import (
	"crypto/ecdh"
	"crypto/ecdsa"
	"crypto/rand"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	inputContract = common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")
	inputACL      = common.HexToAddress("0x687820221192C5B662b25367F70076A37bc79b6c")
)

func inputKeys(t *testing.T) (*ecdh.PrivateKey, []byte, *ecdsa.PrivateKey) {
	t.Helper()
	priv, err := ecdh.P256().GenerateKey(rand.Reader)
	require.NoError(t, err)
	pubPEM, err := MarshalPublicKeyPEM(priv.PublicKey())
	require.NoError(t, err)
	signer, err := crypto.GenerateKey()
	require.NoError(t, err)
	return priv, pubPEM, signer
}

func TestEncryptInput_RoundTrip(t *testing.T) {
	priv, pubPEM, _ := inputKeys(t)

	values := []*uint256.Int{
		uint256.NewInt(0),
		uint256.NewInt(42),
		uint256.NewInt(1 << 40),
		new(uint256.Int).Lsh(uint256.NewInt(1), 200),
	}

	for _, value := range values {
		t.Run(value.Dec(), func(t *testing.T) {
			ct, err := EncryptInput(pubPEM, value, inputContract, inputACL, 31337)
			require.NoError(t, err)

			index, chainID, fheType, version := HandleMetadata(ct.Handle)
			assert.Equal(t, uint8(0), index)
			assert.Equal(t, uint64(31337), chainID)
			assert.Equal(t, ct.Type, fheType)
			assert.Equal(t, uint8(HandleVersion), version)

			gotType, got, err := DecryptInput(priv, ct.Data, inputContract, inputACL, 31337)
			require.NoError(t, err)
			assert.Equal(t, ct.Type, gotType)
			assert.Equal(t, value, got)
		})
	}
}

func TestDecryptInput_WrongBinding(t *testing.T) {
	priv, pubPEM, _ := inputKeys(t)
	ct, err := EncryptInput(pubPEM, uint256.NewInt(7), inputContract, inputACL, 31337)
	require.NoError(t, err)

	_, _, err = DecryptInput(priv, ct.Data, inputACL, inputACL, 31337)
	assert.Error(t, err)
	_, _, err = DecryptInput(priv, ct.Data, inputContract, inputACL, 1)
	assert.Error(t, err)
}

func TestSignedInputProof(t *testing.T) {
	_, pubPEM, signer := inputKeys(t)
	ct, err := EncryptInput(pubPEM, uint256.NewInt(1000), inputContract, inputACL, 11155111)
	require.NoError(t, err)

	encoded, err := SignedInputProof([]*ecdsa.PrivateKey{signer}, []common.Hash{ct.Handle}, ct.Data, inputContract, inputACL, 11155111)
	require.NoError(t, err)

	proof, err := DecodeInputProof(encoded)
	require.NoError(t, err)
	assert.Equal(t, []common.Hash{ct.Handle}, proof.Handles)
	assert.Equal(t, ct.Data, proof.ExtraData)

	signerAddr := crypto.PubkeyToAddress(signer.PublicKey)
	assert.NoError(t, VerifyInputProof(proof, inputContract, inputACL, 11155111, []common.Address{signerAddr}))
	assert.ErrorIs(t, VerifyInputProof(proof, inputACL, inputACL, 11155111, []common.Address{signerAddr}), ErrInvalidInputProof)
}

func TestEncryptInput_Errors(t *testing.T) {
	_, err := EncryptInput([]byte("not a pem"), uint256.NewInt(1), inputContract, inputACL, 1)
	assert.ErrorIs(t, err, ErrInvalidPublicKey)

	_, pubPEM, _ := inputKeys(t)
	_, err = EncryptInput(pubPEM, nil, inputContract, inputACL, 1)
	assert.Error(t, err)
}
