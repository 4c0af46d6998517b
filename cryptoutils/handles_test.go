package cryptoutils

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testACL      = common.HexToAddress("0x687820221192C5B662b25367F70076A37bc79b6c")
	testContract = common.HexToAddress("0x1111111111111111111111111111111111111111")
)

func TestFheTypeFor(t *testing.T) {
	tests := []struct {
		value    *uint256.Int
		expected FheType
	}{
		{uint256.NewInt(0), FheUint8},
		{uint256.NewInt(255), FheUint8},
		{uint256.NewInt(256), FheUint16},
		{uint256.NewInt(1 << 20), FheUint32},
		{uint256.NewInt(1 << 40), FheUint64},
		{new(uint256.Int).Lsh(uint256.NewInt(1), 100), FheUint128},
		{new(uint256.Int).Lsh(uint256.NewInt(1), 200), FheUint256},
	}

	for _, tt := range tests {
		t.Run(tt.value.Dec(), func(t *testing.T) {
			assert.Equal(t, tt.expected, FheTypeFor(tt.value))
		})
	}
}

func TestPlaintextEncoding(t *testing.T) {
	v := uint256.NewInt(424242)
	ty := FheTypeFor(v)

	decodedType, decoded, err := DecodePlaintext(EncodePlaintext(ty, v))
	require.NoError(t, err)
	assert.Equal(t, FheUint32, decodedType)
	assert.True(t, v.Eq(decoded))

	_, _, err = DecodePlaintext(EncodePlaintext(FheUint8, uint256.NewInt(1000)))
	assert.ErrorIs(t, err, ErrInvalidCiphertext)

	_, _, err = DecodePlaintext([]byte{1, 2})
	assert.ErrorIs(t, err, ErrInvalidCiphertext)
}

func TestComputeHandle(t *testing.T) {
	ciphertext := []byte("ciphertext")
	handle := ComputeHandle(ciphertext, 3, FheUint64, testACL, 11155111)

	index, chainID, ty, version := HandleMetadata(handle)
	assert.Equal(t, uint8(3), index)
	assert.Equal(t, uint64(11155111), chainID)
	assert.Equal(t, FheUint64, ty)
	assert.Equal(t, HandleVersion, version)

	assert.Equal(t, handle, ComputeHandle(ciphertext, 3, FheUint64, testACL, 11155111))
	assert.NotEqual(t, handle, ComputeHandle(ciphertext, 3, FheUint64, testACL, 31337))
	assert.NotEqual(t, handle, ComputeHandle([]byte("other"), 3, FheUint64, testACL, 11155111))
}

func TestInputProofRoundTrip(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	signer := crypto.PubkeyToAddress(key.PublicKey)

	handles := []common.Hash{
		ComputeHandle([]byte("a"), 0, FheUint8, testACL, 31337),
		ComputeHandle([]byte("a"), 1, FheUint16, testACL, 31337),
	}
	extraData := []byte{0x00}

	digest := InputProofDigest(handles, testContract, testACL, 31337, extraData)
	sig, err := SignInputProof(key, digest)
	require.NoError(t, err)

	encoded, err := InputProof{Handles: handles, Signatures: [][]byte{sig}, ExtraData: extraData}.Encode()
	require.NoError(t, err)
	assert.Equal(t, byte(2), encoded[0])
	assert.Equal(t, byte(1), encoded[1])
	assert.Len(t, encoded, 2+2*32+65+1)

	proof, err := DecodeInputProof(encoded)
	require.NoError(t, err)
	assert.Equal(t, handles, proof.Handles)
	assert.Equal(t, extraData, proof.ExtraData)

	require.NoError(t, VerifyInputProof(proof, testContract, testACL, 31337, []common.Address{signer}))

	err = VerifyInputProof(proof, common.Address{}, testACL, 31337, []common.Address{signer})
	assert.ErrorIs(t, err, ErrInvalidInputProof)

	err = VerifyInputProof(&InputProof{Handles: handles}, testContract, testACL, 31337, []common.Address{signer})
	assert.ErrorIs(t, err, ErrInvalidInputProof)
}

func TestDecodeInputProof_Truncated(t *testing.T) {
	_, err := DecodeInputProof([]byte{1})
	assert.ErrorIs(t, err, ErrInvalidInputProof)

	_, err = DecodeInputProof([]byte{1, 1, 0xff})
	assert.ErrorIs(t, err, ErrInvalidInputProof)
}
